package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/user-accounts-service/internal/domain/entity"
	"github.com/oksasatya/user-accounts-service/internal/domain/repository"
)

type AddressRepository struct {
	pool *pgxpool.Pool
}

func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

func (r *AddressRepository) FindByID(id string) (*entity.Address, error) {
	ctx := context.Background()
	a := &entity.Address{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, street, city, state, zipcode, apartment, label
		FROM addresses
		WHERE id = $1
	`, id)
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Street, &a.City, &a.State, &a.Zipcode, &a.Apartment, &a.Label); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *AddressRepository) Save(a *entity.Address) error {
	ctx := context.Background()
	_, err := r.pool.Exec(ctx, `
		UPDATE addresses
		SET street = $1, city = $2, state = $3, zipcode = $4, apartment = $5, label = $6
		WHERE id = $7
	`, a.Street, a.City, a.State, a.Zipcode, a.Apartment, a.Label, a.ID)
	return err
}

func (r *AddressRepository) Delete(a *entity.Address) error {
	ctx := context.Background()
	_, err := r.pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1`, a.ID)
	return err
}

var _ repository.AddressRepository = (*AddressRepository)(nil)
