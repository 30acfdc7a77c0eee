package application

import (
	"context"

	"github.com/oksasatya/user-accounts-service/internal/domain/entity"
)

// AddressesService is the address-centric creation path: it attaches a batch
// of addresses to an existing account and delegates persistence to the
// UsersService. It carries no invariants of its own; it exists so that
// addresses are always created through an account, never floating.
type AddressesService struct {
	Users *UsersService
}

func NewAddressesService(users *UsersService) *AddressesService {
	return &AddressesService{Users: users}
}

// CreateBatch appends every address in batch to the account identified by
// guid, restoring the owner back-reference on each, and persists the
// aggregate once.
func (s *AddressesService) CreateBatch(ctx context.Context, guid string, batch []*entity.Address) (*entity.User, error) {
	u, err := s.Users.Users.FindByGuid(guid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	for _, a := range batch {
		u.AddAddress(a)
	}
	return s.Users.persist(ctx, u)
}
