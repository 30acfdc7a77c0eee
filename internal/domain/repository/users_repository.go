package repository

import "github.com/oksasatya/user-accounts-service/internal/domain/entity"

// UsersRepository defines the persistence contract for the User aggregate.
// Save persists the user together with its owned addresses; Delete cascades
// to them. Lookups return (nil, nil) when no row matches.
type UsersRepository interface {
	FindByID(id string) (*entity.User, error)
	FindByGuid(guid string) (*entity.User, error)
	FindByUsernameExact(username string) (*entity.User, error)
	FindByEmailExact(email string) (*entity.User, error)
	// SearchByUsername returns users whose username contains fragment,
	// case-insensitively. An empty fragment matches everyone.
	SearchByUsername(fragment string) ([]*entity.User, error)
	Create(u *entity.User) error
	Save(u *entity.User) error
	Delete(u *entity.User) error
}
