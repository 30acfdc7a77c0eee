package repository

import "github.com/oksasatya/user-accounts-service/internal/domain/entity"

// AddressRepository defines the persistence contract for standalone address
// records. Addresses are normally reached through their owning User; this
// narrow interface exists for the independent lookup and the final delete on
// the address-removal path.
type AddressRepository interface {
	FindByID(id string) (*entity.Address, error)
	Save(a *entity.Address) error
	Delete(a *entity.Address) error
}
