package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/user-accounts-service/internal/application"
	"github.com/oksasatya/user-accounts-service/internal/domain/entity"
	"github.com/oksasatya/user-accounts-service/pkg/response"
	"github.com/oksasatya/user-accounts-service/pkg/validation"
)

// UsersAPI is the slice of the application layer the handler needs. Narrowed
// to an interface so handler tests can run against a mock.
type UsersAPI interface {
	CreateUser(ctx context.Context, u *entity.User) (*entity.User, error)
	GetUser(ctx context.Context, guid string) (*entity.User, error)
	DeleteUser(ctx context.Context, guid string) error
	UpdateUser(ctx context.Context, guid string, in userapp.UpdateUserInput) (*entity.User, error)
	AddAddress(ctx context.Context, guid string, address *entity.Address) (*entity.User, error)
	UpdateAddress(ctx context.Context, guid, addressID string, in userapp.UpdateAddressInput) (*entity.User, error)
	DeleteAddress(ctx context.Context, guid, addressID string) error
	GetUserCondensed(ctx context.Context, guid string) (*entity.UserCondensed, error)
	SearchUsers(ctx context.Context, fragment string) ([]*entity.User, error)
	UpdateAvatar(ctx context.Context, guid, url string) (*entity.User, error)
	UploadAvatar(ctx context.Context, guid string, r io.Reader, filename, contentType string) (*entity.User, error)
	UpdatePassword(ctx context.Context, guid, plain string) error
	SearchProfiles(ctx context.Context, q string, size int) ([]map[string]any, error)
}

// AddressesAPI is the batch creation path.
type AddressesAPI interface {
	CreateBatch(ctx context.Context, guid string, batch []*entity.Address) (*entity.User, error)
}

type UsersHandler struct {
	Svc    UsersAPI
	Addrs  AddressesAPI
	Logger *logrus.Logger
}

func NewUsersHandler(svc UsersAPI, addrs AddressesAPI, logger *logrus.Logger) *UsersHandler {
	return &UsersHandler{Svc: svc, Addrs: addrs, Logger: logger}
}

type addressRequest struct {
	Street    string  `json:"street" binding:"required"`
	City      string  `json:"city" binding:"required"`
	State     string  `json:"state" binding:"required"`
	Zipcode   string  `json:"zipcode" binding:"required"`
	Apartment string  `json:"apartment"`
	Label     *string `json:"label"`
}

func (r *addressRequest) toEntity() *entity.Address {
	a := &entity.Address{
		Street:    r.Street,
		City:      r.City,
		State:     r.State,
		Zipcode:   r.Zipcode,
		Apartment: r.Apartment,
	}
	if r.Label != nil {
		a.Label = *r.Label
	}
	return a
}

type createUserRequest struct {
	Guid      string           `json:"guid" binding:"required"`
	Username  string           `json:"username" binding:"required,min=5,max=20"`
	FirstName string           `json:"first_name" binding:"required"`
	LastName  string           `json:"last_name" binding:"required"`
	Email     string           `json:"email" binding:"required,email,max=30"`
	Avatar    string           `json:"avatar" binding:"omitempty,url"`
	Bio       string           `json:"bio"`
	Verified  bool             `json:"verified"`
	Addresses []addressRequest `json:"addresses" binding:"omitempty,dive"`
}

type updateUserRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email,max=30"`
	Bio       string `json:"bio"`
	Verified  bool   `json:"verified"`
	Avatar    string `json:"avatar" binding:"omitempty,url"`
}

type avatarRequest struct {
	URL string `json:"url" binding:"required,url"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required,pwd"`
}

type batchAddressesRequest struct {
	Addresses []addressRequest `json:"addresses" binding:"required,min=1,dive"`
}

// fail maps core errors to transport status: duplicates are rejected with 400,
// every not-found error is standardized to 404.
func (h *UsersHandler) fail(c *gin.Context, err error) {
	var resp response.APIResponse[any]
	switch {
	case errors.Is(err, userapp.ErrDuplicateUser):
		resp = response.Error[any](c, http.StatusBadRequest, "username or email already taken", nil)
	case errors.Is(err, userapp.ErrUserNotFound):
		resp = response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, userapp.ErrAddressNotFound):
		resp = response.Error[any](c, http.StatusNotFound, "address not found", nil)
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).Error("unexpected service error")
		}
		resp = response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
	c.JSON(resp.Status, resp)
}

func (h *UsersHandler) badRequest(c *gin.Context, err error) {
	resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
	c.JSON(resp.Status, resp)
}

func (h *UsersHandler) ok(c *gin.Context, data any, message string) {
	resp := response.Success(c, http.StatusOK, data, message, nil)
	c.JSON(resp.Status, resp)
}

// CreateUser handles POST /users.
func (h *UsersHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u := &entity.User{
		Guid:      req.Guid,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Avatar:    req.Avatar,
		Bio:       req.Bio,
		Verified:  req.Verified,
	}
	for i := range req.Addresses {
		u.Addresses = append(u.Addresses, req.Addresses[i].toEntity())
	}
	created, err := h.Svc.CreateUser(c.Request.Context(), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, created, "user created")
}

// GetUser handles GET /users/:guid. An absent account answers 204, not 404.
func (h *UsersHandler) GetUser(c *gin.Context) {
	u, err := h.Svc.GetUser(c.Request.Context(), c.Param("guid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if u == nil {
		c.Status(http.StatusNoContent)
		return
	}
	h.ok(c, u, "user")
}

// UpdateUser handles PATCH /users/:guid.
func (h *UsersHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("guid"), userapp.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Bio:       req.Bio,
		Verified:  req.Verified,
		Avatar:    req.Avatar,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if u == nil {
		c.Status(http.StatusNoContent)
		return
	}
	h.ok(c, u, "user updated")
}

// DeleteUser handles DELETE /users/:guid. Deletion is acknowledged with 202.
func (h *UsersHandler) DeleteUser(c *gin.Context) {
	if err := h.Svc.DeleteUser(c.Request.Context(), c.Param("guid")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// SearchUsers handles GET /users?username=. An empty match set answers 204.
func (h *UsersHandler) SearchUsers(c *gin.Context) {
	users, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("username"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if users == nil {
		c.Status(http.StatusNoContent)
		return
	}
	h.ok(c, users, "users")
}

// GetUserCondensed handles GET /users/:guid/condensed. Unlike GetUser, an
// absent account is 404 here; the two read paths intentionally differ.
func (h *UsersHandler) GetUserCondensed(c *gin.Context) {
	view, err := h.Svc.GetUserCondensed(c.Request.Context(), c.Param("guid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, view, "user condensed")
}

// AddAddress handles POST /users/:guid/addresses.
func (h *UsersHandler) AddAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.Svc.AddAddress(c.Request.Context(), c.Param("guid"), req.toEntity())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, u, "address added")
}

// AddAddressBatch handles POST /users/:guid/addresses/batch, the
// bulk-at-signup variant that goes through the addresses service.
func (h *UsersHandler) AddAddressBatch(c *gin.Context) {
	var req batchAddressesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	batch := make([]*entity.Address, 0, len(req.Addresses))
	for i := range req.Addresses {
		batch = append(batch, req.Addresses[i].toEntity())
	}
	u, err := h.Addrs.CreateBatch(c.Request.Context(), c.Param("guid"), batch)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, u, "addresses added")
}

// UpdateAddress handles PATCH /users/:guid/addresses/:addressId.
func (h *UsersHandler) UpdateAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.Svc.UpdateAddress(c.Request.Context(), c.Param("guid"), c.Param("addressId"), userapp.UpdateAddressInput{
		Street:    req.Street,
		City:      req.City,
		State:     req.State,
		Zipcode:   req.Zipcode,
		Apartment: req.Apartment,
		Label:     req.Label,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, u, "address updated")
}

// DeleteAddress handles DELETE /users/:guid/addresses/:addressId.
func (h *UsersHandler) DeleteAddress(c *gin.Context) {
	if err := h.Svc.DeleteAddress(c.Request.Context(), c.Param("guid"), c.Param("addressId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// UpdateAvatar handles PUT /users/:guid/avatar with a plain URL body.
func (h *UsersHandler) UpdateAvatar(c *gin.Context) {
	var req avatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.Svc.UpdateAvatar(c.Request.Context(), c.Param("guid"), req.URL)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, u, "avatar updated")
}

// UploadAvatar handles POST /users/:guid/avatar with a multipart image that
// is stored in GCS.
func (h *UsersHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "missing file", nil)
		c.JSON(resp.Status, resp)
		return
	}
	f, err := file.Open()
	if err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "unreadable file", nil)
		c.JSON(resp.Status, resp)
		return
	}
	defer func() { _ = f.Close() }()

	contentType := file.Header.Get("Content-Type")
	u, err := h.Svc.UploadAvatar(c.Request.Context(), c.Param("guid"), f, file.Filename, contentType)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, u, "avatar uploaded")
}

// UpdatePassword handles PUT /users/:guid/password.
func (h *UsersHandler) UpdatePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.Svc.UpdatePassword(c.Request.Context(), c.Param("guid"), req.Password); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"updated": true}, "password updated")
}

// SearchProfiles handles GET /profiles?q=, the full-text search backed by the
// secondary Elasticsearch index.
func (h *UsersHandler) SearchProfiles(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchProfiles(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, hits, "profiles")
}
