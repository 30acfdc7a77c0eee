package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/user-accounts-service/internal/domain/entity"
	"github.com/oksasatya/user-accounts-service/internal/domain/repository"
)

const userColumns = `id, guid, username, first_name, last_name, email, password_hash, avatar, bio, verified, created_at, updated_at`

type UsersRepository struct {
	pool *pgxpool.Pool
}

func NewUsersRepository(pool *pgxpool.Pool) *UsersRepository {
	return &UsersRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	err := row.Scan(&u.ID, &u.Guid, &u.Username, &u.FirstName, &u.LastName, &u.Email,
		&u.Password, &u.Avatar, &u.Bio, &u.Verified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// loadAddresses fills the owned collection in insertion order; the position
// column preserves the order the addresses were added in.
func (r *UsersRepository) loadAddresses(ctx context.Context, u *entity.User) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, street, city, state, zipcode, apartment, label
		FROM addresses
		WHERE user_id = $1
		ORDER BY position
	`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		a := &entity.Address{}
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Street, &a.City, &a.State, &a.Zipcode, &a.Apartment, &a.Label); err != nil {
			return err
		}
		u.Addresses = append(u.Addresses, a)
	}
	return rows.Err()
}

func (r *UsersRepository) findOne(query string, arg any) (*entity.User, error) {
	ctx := context.Background()
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil || u == nil {
		return nil, err
	}
	if err := r.loadAddresses(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UsersRepository) FindByID(id string) (*entity.User, error) {
	return r.findOne(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepository) FindByGuid(guid string) (*entity.User, error) {
	return r.findOne(`SELECT `+userColumns+` FROM users WHERE guid = $1`, guid)
}

func (r *UsersRepository) FindByUsernameExact(username string) (*entity.User, error) {
	return r.findOne(`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UsersRepository) FindByEmailExact(email string) (*entity.User, error) {
	return r.findOne(`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UsersRepository) SearchByUsername(fragment string) ([]*entity.User, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username
	`, fragment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range users {
		if err := r.loadAddresses(ctx, u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// Create inserts the user and its addresses in one transaction, populating
// storage ids and both timestamps (equal at creation) from the database.
func (r *UsersRepository) Create(u *entity.User) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO users (guid, username, first_name, last_name, email, password_hash, avatar, bio, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, u.Guid, u.Username, u.FirstName, u.LastName, u.Email, u.Password, u.Avatar, u.Bio, u.Verified)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return err
	}

	for i, a := range u.Addresses {
		a.OwnerID = u.ID
		row := tx.QueryRow(ctx, `
			INSERT INTO addresses (user_id, street, city, state, zipcode, apartment, label, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, u.ID, a.Street, a.City, a.State, a.Zipcode, a.Apartment, a.Label, i)
		if err := row.Scan(&a.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Save writes the aggregate back: the user row, updated addresses, and any
// new addresses appended in memory. UpdatedAt is advanced here. Removed
// address rows are deleted separately through the AddressRepository.
func (r *UsersRepository) Save(u *entity.User) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u.UpdatedAt = time.Now()
	res, err := tx.Exec(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, password_hash = $4,
		    avatar = $5, bio = $6, verified = $7, updated_at = $8
		WHERE id = $9
	`, u.FirstName, u.LastName, u.Email, u.Password, u.Avatar, u.Bio, u.Verified, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errors.New("user row vanished during save")
	}

	for i, a := range u.Addresses {
		if a.ID == "" {
			a.OwnerID = u.ID
			row := tx.QueryRow(ctx, `
				INSERT INTO addresses (user_id, street, city, state, zipcode, apartment, label, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id
			`, u.ID, a.Street, a.City, a.State, a.Zipcode, a.Apartment, a.Label, i)
			if err := row.Scan(&a.ID); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE addresses
			SET street = $1, city = $2, state = $3, zipcode = $4, apartment = $5, label = $6, position = $7
			WHERE id = $8 AND user_id = $9
		`, a.Street, a.City, a.State, a.Zipcode, a.Apartment, a.Label, i, a.ID, u.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Delete removes the user row; the addresses go with it via the foreign-key
// cascade.
func (r *UsersRepository) Delete(u *entity.User) error {
	ctx := context.Background()
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, u.ID)
	return err
}

var _ repository.UsersRepository = (*UsersRepository)(nil)
