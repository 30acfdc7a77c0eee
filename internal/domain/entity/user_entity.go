package entity

import (
	"time"
)

// User is the aggregate root for the accounts domain. It owns its Addresses:
// an Address never exists outside the collection of exactly one User.
//
// ID is the storage key and is never exposed over the wire; Guid is the
// externally visible identifier issued by the upstream identity system and is
// immutable after creation. Password holds a bcrypt hash and is never
// serialized.
type User struct {
	ID        string     `json:"-"`
	Guid      string     `json:"guid"`
	Username  string     `json:"username"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Password  string     `json:"-"`
	Avatar    string     `json:"avatar,omitempty"`
	Bio       string     `json:"bio,omitempty"`
	Verified  bool       `json:"verified"`
	Addresses []*Address `json:"addresses"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// AddAddress appends a to the owned collection and restores the owner
// back-reference so both sides of the relationship stay consistent.
func (u *User) AddAddress(a *Address) {
	u.Addresses = append(u.Addresses, a)
	a.OwnerID = u.ID
}

// RemoveAddressAt drops the address at index i, preserving the insertion
// order of the remaining entries.
func (u *User) RemoveAddressAt(i int) {
	if i < 0 || i >= len(u.Addresses) {
		return
	}
	u.Addresses = append(u.Addresses[:i], u.Addresses[i+1:]...)
}

// UserCondensed is a reduced read-only projection of a User for cheap display use.
type UserCondensed struct {
	Guid     string `json:"guid"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Email    string `json:"email"`
}

// Condensed builds the condensed projection of u.
func (u *User) Condensed() *UserCondensed {
	return &UserCondensed{
		Guid:     u.Guid,
		Username: u.Username,
		Avatar:   u.Avatar,
		Email:    u.Email,
	}
}
