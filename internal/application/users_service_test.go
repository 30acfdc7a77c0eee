package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-accounts-service/internal/domain/entity"
	"github.com/oksasatya/user-accounts-service/pkg/helpers"
)

func newUser(guid, username, email string) *entity.User {
	return &entity.User{
		Guid:      guid,
		Username:  username,
		FirstName: "first",
		LastName:  "last",
		Email:     email,
	}
}

func mustCreate(t *testing.T, svc *UsersService, u *entity.User) *entity.User {
	t.Helper()
	created, err := svc.CreateUser(context.Background(), u)
	require.NoError(t, err)
	require.NotNil(t, created)
	return created
}

func TestCreateUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u := newUser("g-1", "bakerBob", "baker@bob.com")
	u.Addresses = []*entity.Address{
		{Street: "123 Main St", City: "Reston", State: "VA", Zipcode: "20190"},
	}

	created, err := svc.CreateUser(ctx, u)
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt, "a fresh account has identical timestamps")

	require.Len(t, created.Addresses, 1)
	assert.NotEmpty(t, created.Addresses[0].ID)
	assert.Equal(t, created.ID, created.Addresses[0].OwnerID, "owner back-reference restored on create")
}

func TestCreateUserUniqueness(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mustCreate(t, svc, newUser("g-1", "bakerBob", "baker@bob.com"))

	tests := []struct {
		name    string
		user    *entity.User
		wantErr error
	}{
		{"duplicate username", newUser("g-2", "bakerBob", "other@mail.com"), ErrDuplicateUser},
		{"duplicate email", newUser("g-3", "otherName", "baker@bob.com"), ErrDuplicateUser},
		{"substring of taken username is fine", newUser("g-4", "baker", "fresh@mail.com"), nil},
		{"different case of taken username is fine", newUser("g-5", "BAKERBOB", "case@mail.com"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CreateUser(ctx, tt.user)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
		})
	}
}

func TestGetUserAbsent(t *testing.T) {
	svc, _ := newTestService()
	u, err := svc.GetUser(context.Background(), "nope")
	require.NoError(t, err, "absence on the full read path is not an error")
	assert.Nil(t, u)
}

func TestUpdateUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created := mustCreate(t, svc, newUser("g-1", "bakerBob", "baker@bob.com"))
	before := created.UpdatedAt

	time.Sleep(time.Millisecond)
	updated, err := svc.UpdateUser(ctx, "g-1", UpdateUserInput{
		FirstName: "Robert",
		LastName:  "Baker",
		Email:     "robert@bob.com",
		Bio:       "bakes",
		Verified:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, "Robert", updated.FirstName)
	assert.Equal(t, "robert@bob.com", updated.Email)
	assert.True(t, updated.Verified)
	assert.Equal(t, "bakerBob", updated.Username, "username is immutable through update")
	assert.Equal(t, "g-1", updated.Guid)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(before), "mutation advances UpdatedAt")
}

func TestUpdateUserAbsent(t *testing.T) {
	svc, _ := newTestService()
	u, err := svc.UpdateUser(context.Background(), "nope", UpdateUserInput{FirstName: "x"})
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestDeleteUser(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	u := newUser("g-1", "bakerBob", "baker@bob.com")
	u.Addresses = []*entity.Address{
		{Street: "123 Main St", City: "Reston", State: "VA", Zipcode: "20190"},
	}
	created := mustCreate(t, svc, u)
	addrID := created.Addresses[0].ID

	require.NoError(t, svc.DeleteUser(ctx, "g-1"))

	got, err := svc.GetUser(ctx, "g-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NotContains(t, store.addrs, addrID, "owned addresses go down with the account")

	assert.ErrorIs(t, svc.DeleteUser(ctx, "g-1"), ErrUserNotFound)
}

func TestAddAddress(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mustCreate(t, svc, newUser("g-1", "bakerBob", "baker@bob.com"))

	updated, err := svc.AddAddress(ctx, "g-1", &entity.Address{
		Street: "456 Elm St", City: "Herndon", State: "VA", Zipcode: "20170",
	})
	require.NoError(t, err)
	require.Len(t, updated.Addresses, 1)
	assert.NotEmpty(t, updated.Addresses[0].ID)
	assert.Equal(t, updated.ID, updated.Addresses[0].OwnerID)

	_, err = svc.AddAddress(ctx, "nope", &entity.Address{Street: "x", City: "y", State: "z", Zipcode: "0"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateAddress(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u := newUser("g-1", "bakerBob", "baker@bob.com")
	u.Addresses = []*entity.Address{
		{Street: "123 Main St", City: "Reston", State: "VA", Zipcode: "20190", Label: "home"},
	}
	created := mustCreate(t, svc, u)
	addrID := created.Addresses[0].ID

	updated, err := svc.UpdateAddress(ctx, "g-1", addrID, UpdateAddressInput{
		Street: "124 Main St", City: "Reston", State: "VA", Zipcode: "20190",
	})
	require.NoError(t, err)
	require.Len(t, updated.Addresses, 1)
	assert.Equal(t, "124 Main St", updated.Addresses[0].Street)
	assert.Equal(t, "home", updated.Addresses[0].Label, "nil label input preserves the stored label")

	home2 := "home2"
	updated, err = svc.UpdateAddress(ctx, "g-1", addrID, UpdateAddressInput{
		Street: "124 Main St", City: "Reston", State: "VA", Zipcode: "20190", Label: &home2,
	})
	require.NoError(t, err)
	assert.Equal(t, "home2", updated.Addresses[0].Label)
}

func TestUpdateAddressScopedToOwner(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	owner := newUser("g-1", "bakerBob", "baker@bob.com")
	owner.Addresses = []*entity.Address{
		{Street: "123 Main St", City: "Reston", State: "VA", Zipcode: "20190"},
	}
	created := mustCreate(t, svc, owner)
	mustCreate(t, svc, newUser("g-2", "janeDoe", "jane@doe.com"))

	// The id exists in storage but belongs to g-1; resolving it through g-2
	// must fail even though the record is fetchable.
	_, err := svc.UpdateAddress(ctx, "g-2", created.Addresses[0].ID, UpdateAddressInput{
		Street: "1 Hijack Ln", City: "x", State: "y", Zipcode: "0",
	})
	assert.ErrorIs(t, err, ErrAddressNotFound)

	_, err = svc.UpdateAddress(ctx, "g-1", "a-missing", UpdateAddressInput{Street: "x", City: "y", State: "z", Zipcode: "0"})
	assert.ErrorIs(t, err, ErrAddressNotFound)

	_, err = svc.UpdateAddress(ctx, "nope", created.Addresses[0].ID, UpdateAddressInput{Street: "x", City: "y", State: "z", Zipcode: "0"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteAddress(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	u := newUser("g-1", "janeDoe", "jane@doe.com")
	u.Addresses = []*entity.Address{
		{Street: "789 Oak St", City: "Vienna", State: "VA", Zipcode: "22180"},
		{Street: "12 Side St", City: "Vienna", State: "VA", Zipcode: "22181"},
	}
	created := mustCreate(t, svc, u)
	first, second := created.Addresses[0].ID, created.Addresses[1].ID

	require.NoError(t, svc.DeleteAddress(ctx, "g-1", first))

	got, err := svc.GetUser(ctx, "g-1")
	require.NoError(t, err)
	require.Len(t, got.Addresses, 1)
	assert.Equal(t, second, got.Addresses[0].ID, "remaining addresses keep their order")
	assert.NotContains(t, store.addrs, first, "the record itself is gone")

	assert.ErrorIs(t, svc.DeleteAddress(ctx, "g-1", first), ErrAddressNotFound)
}

func TestDeleteAddressScopedToOwner(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	owner := newUser("g-1", "bakerBob", "baker@bob.com")
	owner.Addresses = []*entity.Address{
		{Street: "123 Main St", City: "Reston", State: "VA", Zipcode: "20190"},
	}
	created := mustCreate(t, svc, owner)
	mustCreate(t, svc, newUser("g-2", "janeDoe", "jane@doe.com"))

	err := svc.DeleteAddress(ctx, "g-2", created.Addresses[0].ID)
	assert.ErrorIs(t, err, ErrAddressNotFound)
	assert.Contains(t, store.addrs, created.Addresses[0].ID, "the other account's record is untouched")
}

func TestGetUserCondensed(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u := newUser("g-1", "bakerBob", "baker@bob.com")
	u.Avatar = "https://cdn.example.com/a.png"
	mustCreate(t, svc, u)

	view, err := svc.GetUserCondensed(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, &entity.UserCondensed{
		Guid:     "g-1",
		Username: "bakerBob",
		Avatar:   "https://cdn.example.com/a.png",
		Email:    "baker@bob.com",
	}, view)

	// Unlike GetUser, absence is an error on the condensed path.
	_, err = svc.GetUserCondensed(ctx, "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSearchUsers(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mustCreate(t, svc, newUser("g-1", "bakerBob", "baker@bob.com"))
	mustCreate(t, svc, newUser("g-2", "bobBob", "bob@bob.com"))
	mustCreate(t, svc, newUser("g-3", "janeDoe", "jane@doe.com"))

	names := func(users []*entity.User) []string {
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.Username)
		}
		return out
	}

	got, err := svc.SearchUsers(ctx, "bob")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bakerBob", "bobBob"}, names(got))

	got, err = svc.SearchUsers(ctx, "BOB")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bakerBob", "bobBob"}, names(got), "matching ignores case")

	got, err = svc.SearchUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 3, "empty fragment matches everyone")

	got, err = svc.SearchUsers(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, got, "no match is (nil, nil), not an empty slice")
}

func TestUpdateAvatar(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mustCreate(t, svc, newUser("g-1", "bakerBob", "baker@bob.com"))

	updated, err := svc.UpdateAvatar(ctx, "g-1", "https://cdn.example.com/new.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/new.png", updated.Avatar)

	_, err = svc.UpdateAvatar(ctx, "nope", "https://cdn.example.com/new.png")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdatePassword(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	created := mustCreate(t, svc, newUser("g-1", "bakerBob", "baker@bob.com"))

	require.NoError(t, svc.UpdatePassword(ctx, "g-1", "hunter2hunter2"))

	stored := store.users[created.ID]
	assert.NotEqual(t, "hunter2hunter2", stored.Password, "only the hash is stored")
	assert.True(t, helpers.CompareHashAndPassword(stored.Password, "hunter2hunter2"))

	assert.ErrorIs(t, svc.UpdatePassword(ctx, "nope", "hunter2hunter2"), ErrUserNotFound)
}

// Walks an account through its whole life the way the API does.
func TestAccountLifecycle(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	u := newUser("g-1", "bakerBob", "baker@bob.com")
	created := mustCreate(t, svc, u)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	time.Sleep(time.Millisecond)
	withAddr, err := svc.AddAddress(ctx, "g-1", &entity.Address{
		Street: "123 Main St", City: "Reston", State: "VA", Zipcode: "20190",
	})
	require.NoError(t, err)
	require.True(t, withAddr.UpdatedAt.After(created.UpdatedAt))
	addrID := withAddr.Addresses[0].ID

	time.Sleep(time.Millisecond)
	afterUpdate, err := svc.UpdateAddress(ctx, "g-1", addrID, UpdateAddressInput{
		Street: "124 Main St", City: "Reston", State: "VA", Zipcode: "20190",
	})
	require.NoError(t, err)
	require.True(t, afterUpdate.UpdatedAt.After(withAddr.UpdatedAt))

	require.NoError(t, svc.DeleteAddress(ctx, "g-1", addrID))
	require.NoError(t, svc.DeleteUser(ctx, "g-1"))

	assert.Empty(t, store.users)
	assert.Empty(t, store.addrs)
}
