package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-accounts-service/internal/domain/entity"
	repo "github.com/oksasatya/user-accounts-service/internal/domain/repository"
	"github.com/oksasatya/user-accounts-service/pkg/helpers"
	"github.com/oksasatya/user-accounts-service/pkg/mailer"
)

var (
	ErrDuplicateUser   = errors.New("username or email already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrAddressNotFound = errors.New("address not found")
)

const condensedTTL = 5 * time.Minute

func condensedKey(guid string) string {
	return "user:condensed:" + guid
}

// UsersService owns the account-lifecycle and aggregate-consistency rules:
// username/email uniqueness at creation, ownership of the address collection,
// and the per-operation absent-account policy. Field-syntax validation happens
// at the HTTP boundary before any of these methods run.
//
// Redis, ES, GCS and the publisher are optional; a nil collaborator disables
// the corresponding side effect.
type UsersService struct {
	Users        repo.UsersRepository
	Addrs        repo.AddressRepository
	Redis        *redis.Client
	Logger       *logrus.Logger
	Pub          *helpers.RabbitPublisher
	ES           *elasticsearch.Client
	ESUsersIndex string
	GCS          *storage.Client
	GCSBucket    string
}

func NewUsersService(users repo.UsersRepository, addrs repo.AddressRepository, rdb *redis.Client, logger *logrus.Logger, pub *helpers.RabbitPublisher, es *elasticsearch.Client, esUsersIndex string, gcs *storage.Client, gcsBucket string) *UsersService {
	return &UsersService{
		Users:        users,
		Addrs:        addrs,
		Redis:        rdb,
		Logger:       logger,
		Pub:          pub,
		ES:           es,
		ESUsersIndex: esUsersIndex,
		GCS:          gcs,
		GCSBucket:    gcsBucket,
	}
}

// CreateUser persists a new account after checking that neither the username
// nor the email is already taken. The wire representation carries addresses
// without owner references, so the back-reference is restored on every entry
// before persisting.
func (s *UsersService) CreateUser(ctx context.Context, u *entity.User) (*entity.User, error) {
	byUsername, err := s.Users.FindByUsernameExact(u.Username)
	if err != nil {
		return nil, err
	}
	byEmail, err := s.Users.FindByEmailExact(u.Email)
	if err != nil {
		return nil, err
	}
	if byUsername != nil || byEmail != nil {
		return nil, ErrDuplicateUser
	}

	for _, a := range u.Addresses {
		a.OwnerID = u.ID
	}
	if err := s.Users.Create(u); err != nil {
		return nil, err
	}

	s.invalidateCondensed(ctx, u.Guid)
	s.publishWelcome(ctx, u)
	_ = s.indexUser(ctx, u)
	return u, nil
}

// GetUser looks an account up by guid. Absence is an expected outcome on this
// read path and is reported as (nil, nil), not as an error.
func (s *UsersService) GetUser(ctx context.Context, guid string) (*entity.User, error) {
	return s.Users.FindByGuid(guid)
}

// DeleteUser removes the account and, through the persistence cascade, all of
// its addresses.
func (s *UsersService) DeleteUser(ctx context.Context, guid string) error {
	u, err := s.Users.FindByGuid(guid)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	if err := s.Users.Delete(u); err != nil {
		return err
	}
	s.invalidateCondensed(ctx, guid)
	s.deindexUser(ctx, u)
	return nil
}

// UpdateUserInput carries the mutable display fields of an account. Username,
// guid, addresses and timestamps are never touched by UpdateUser.
type UpdateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Bio       string
	Verified  bool
	Avatar    string
}

// UpdateUser overwrites the display fields from in and persists. A missing
// account yields (nil, nil) for the boundary to map to no-content.
//
// Email uniqueness is deliberately not re-checked here; callers wanting that
// guarantee must pre-check at the boundary.
func (s *UsersService) UpdateUser(ctx context.Context, guid string, in UpdateUserInput) (*entity.User, error) {
	u, err := s.Users.FindByGuid(guid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.Email = in.Email
	u.Bio = in.Bio
	u.Verified = in.Verified
	u.Avatar = in.Avatar
	return s.persist(ctx, u)
}

// AddAddress appends address to the account's owned collection and persists
// the aggregate.
func (s *UsersService) AddAddress(ctx context.Context, guid string, address *entity.Address) (*entity.User, error) {
	u, err := s.Users.FindByGuid(guid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	u.AddAddress(address)
	return s.persist(ctx, u)
}

// UpdateAddressInput carries the mutable fields of an address. Label is a
// pointer: nil preserves the stored label, any other value overwrites it.
type UpdateAddressInput struct {
	Street    string
	City      string
	State     string
	Zipcode   string
	Apartment string
	Label     *string
}

// UpdateAddress overwrites the fields of the address identified by addressID,
// provided the account actually owns it. The address record is fetched
// independently but never trusted for the match: ownership is established
// only by scanning the account's own collection, so ids that exist in storage
// but belong to someone else are rejected.
func (s *UsersService) UpdateAddress(ctx context.Context, guid, addressID string, in UpdateAddressInput) (*entity.User, error) {
	u, err := s.Users.FindByGuid(guid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if _, err := s.Addrs.FindByID(addressID); err != nil {
		return nil, err
	}

	idx := indexOfAddress(u.Addresses, addressID)
	if idx == -1 {
		return nil, ErrAddressNotFound
	}
	a := u.Addresses[idx]
	a.Street = in.Street
	a.City = in.City
	a.State = in.State
	a.Zipcode = in.Zipcode
	a.Apartment = in.Apartment
	if in.Label != nil {
		a.Label = *in.Label
	}
	return s.persist(ctx, u)
}

// DeleteAddress removes the address from the account's collection, clears its
// owner back-reference, persists the account, then deletes the address record
// itself. Same scoped-ownership check as UpdateAddress.
func (s *UsersService) DeleteAddress(ctx context.Context, guid, addressID string) error {
	u, err := s.Users.FindByGuid(guid)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	record, err := s.Addrs.FindByID(addressID)
	if err != nil {
		return err
	}

	idx := indexOfAddress(u.Addresses, addressID)
	if idx == -1 || record == nil {
		return ErrAddressNotFound
	}
	u.RemoveAddressAt(idx)
	record.OwnerID = ""
	if _, err := s.persist(ctx, u); err != nil {
		return err
	}
	return s.Addrs.Delete(record)
}

// GetUserCondensed returns the condensed projection, caching it in Redis for
// a short TTL. Unlike GetUser, an absent account is an error here; the two
// read paths intentionally differ and callers depend on it.
func (s *UsersService) GetUserCondensed(ctx context.Context, guid string) (*entity.UserCondensed, error) {
	if s.Redis != nil {
		var cached entity.UserCondensed
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, condensedKey(guid), &cached); err == nil && ok {
			return &cached, nil
		}
	}
	u, err := s.Users.FindByGuid(guid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	view := u.Condensed()
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, condensedKey(guid), view, condensedTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("guid", guid).Warn("condensed cache set failed")
		}
	}
	return view, nil
}

// SearchUsers matches usernames containing fragment, case-insensitively. An
// empty fragment matches every account. An empty match set is reported as
// (nil, nil) so the boundary can answer no-content instead of an empty list.
func (s *UsersService) SearchUsers(ctx context.Context, fragment string) ([]*entity.User, error) {
	users, err := s.Users.SearchByUsername(fragment)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users, nil
}

// UpdateAvatar stores url as the account's avatar.
func (s *UsersService) UpdateAvatar(ctx context.Context, guid, url string) (*entity.User, error) {
	u, err := s.Users.FindByGuid(guid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	u.Avatar = url
	return s.persist(ctx, u)
}

// UploadAvatar streams an image to GCS and stores the resulting public URL as
// the account's avatar.
func (s *UsersService) UploadAvatar(ctx context.Context, guid string, r io.Reader, filename, contentType string) (*entity.User, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, errors.New("gcs not configured")
	}
	u, err := s.Users.FindByGuid(guid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", guid, uuid.NewString()+ext))
	url, err := helpers.UploadImageToGCS(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}
	u.Avatar = url
	return s.persist(ctx, u)
}

// UpdatePassword bcrypt-hashes plain and stores it. The hash never leaves the
// service.
func (s *UsersService) UpdatePassword(ctx context.Context, guid, plain string) error {
	u, err := s.Users.FindByGuid(guid)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	hash, err := helpers.HashPassword(plain)
	if err != nil {
		return err
	}
	u.Password = hash
	_, err = s.persist(ctx, u)
	return err
}

// persist saves the aggregate and runs the post-write side effects shared by
// every mutating operation: condensed-cache invalidation and re-indexing.
// The repository advances UpdatedAt as part of Save.
func (s *UsersService) persist(ctx context.Context, u *entity.User) (*entity.User, error) {
	if err := s.Users.Save(u); err != nil {
		return nil, err
	}
	s.invalidateCondensed(ctx, u.Guid)
	_ = s.indexUser(ctx, u)
	return u, nil
}

func (s *UsersService) invalidateCondensed(ctx context.Context, guid string) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, condensedKey(guid)); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("guid", guid).Warn("condensed cache invalidation failed")
	}
}

// publishWelcome enqueues the welcome email job. Fire-and-forget: a publish
// failure must never fail account creation.
func (s *UsersService) publishWelcome(ctx context.Context, u *entity.User) {
	if s.Pub == nil {
		return
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: "welcome",
		Data: map[string]any{
			"Username":  u.Username,
			"FirstName": u.FirstName,
		},
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("guid", u.Guid).Warn("welcome email publish failed")
	}
}

func (s *UsersService) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"guid":       u.Guid,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
		"bio":        u.Bio,
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.Guid, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("guid", u.Guid).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("guid", u.Guid).Warn("es index response error")
	}
	return nil
}

func (s *UsersService) deindexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: u.Guid}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("guid", u.Guid).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// SearchProfiles is the full-text counterpart to SearchUsers, backed by the
// secondary Elasticsearch index rather than the relational store.
func (s *UsersService) SearchProfiles(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "first_name", "last_name", "bio"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

// indexOfAddress is the linear ownership scan: the only way an address id is
// considered to belong to a user is by appearing in that user's collection.
func indexOfAddress(addrs []*entity.Address, id string) int {
	for i, a := range addrs {
		if a.ID == id {
			return i
		}
	}
	return -1
}
