package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/oksasatya/user-accounts-service/internal/domain/entity"
)

// In-memory stand-ins for the postgres repositories. They mimic the contract
// the services rely on: lookups return fresh copies and (nil, nil) on absence,
// Create stamps both timestamps with the same instant, Save advances UpdatedAt
// and reconciles the owned address rows.
type fakeStore struct {
	users map[string]*entity.User    // keyed by ID
	addrs map[string]*entity.Address // keyed by ID
	seq   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string]*entity.User{},
		addrs: map[string]*entity.Address{},
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func cloneAddress(a *entity.Address) *entity.Address {
	cp := *a
	return &cp
}

func cloneUser(u *entity.User) *entity.User {
	cp := *u
	cp.Addresses = make([]*entity.Address, len(u.Addresses))
	for i, a := range u.Addresses {
		cp.Addresses[i] = cloneAddress(a)
	}
	return &cp
}

type fakeUsersRepo struct{ s *fakeStore }

func (r *fakeUsersRepo) find(match func(*entity.User) bool) (*entity.User, error) {
	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *fakeUsersRepo) FindByID(id string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id })
}

func (r *fakeUsersRepo) FindByGuid(guid string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Guid == guid })
}

func (r *fakeUsersRepo) FindByUsernameExact(username string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Username == username })
}

func (r *fakeUsersRepo) FindByEmailExact(email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email })
}

func (r *fakeUsersRepo) SearchByUsername(fragment string) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range r.s.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(fragment)) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *fakeUsersRepo) Create(u *entity.User) error {
	if u.ID == "" {
		u.ID = r.s.nextID("u")
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	for _, a := range u.Addresses {
		if a.ID == "" {
			a.ID = r.s.nextID("a")
		}
		a.OwnerID = u.ID
		r.s.addrs[a.ID] = cloneAddress(a)
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *fakeUsersRepo) Save(u *entity.User) error {
	prev, ok := r.s.users[u.ID]
	if !ok {
		return fmt.Errorf("save of unknown user %q", u.ID)
	}
	u.UpdatedAt = time.Now()
	kept := map[string]bool{}
	for _, a := range u.Addresses {
		if a.ID == "" {
			a.ID = r.s.nextID("a")
		}
		a.OwnerID = u.ID
		kept[a.ID] = true
		r.s.addrs[a.ID] = cloneAddress(a)
	}
	for _, a := range prev.Addresses {
		if !kept[a.ID] {
			delete(r.s.addrs, a.ID)
		}
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *fakeUsersRepo) Delete(u *entity.User) error {
	for _, a := range u.Addresses {
		delete(r.s.addrs, a.ID)
	}
	delete(r.s.users, u.ID)
	return nil
}

type fakeAddrRepo struct{ s *fakeStore }

func (r *fakeAddrRepo) FindByID(id string) (*entity.Address, error) {
	a, ok := r.s.addrs[id]
	if !ok {
		return nil, nil
	}
	return cloneAddress(a), nil
}

func (r *fakeAddrRepo) Save(a *entity.Address) error {
	r.s.addrs[a.ID] = cloneAddress(a)
	return nil
}

func (r *fakeAddrRepo) Delete(a *entity.Address) error {
	delete(r.s.addrs, a.ID)
	return nil
}

func newTestService() (*UsersService, *fakeStore) {
	s := newFakeStore()
	svc := NewUsersService(&fakeUsersRepo{s}, &fakeAddrRepo{s}, nil, nil, nil, nil, "", nil, "")
	return svc, s
}
