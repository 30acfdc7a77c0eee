package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-accounts-service/internal/container"
	handlers "github.com/oksasatya/user-accounts-service/internal/interface/http"
	"github.com/oksasatya/user-accounts-service/internal/interface/middleware"
	"github.com/oksasatya/user-accounts-service/pkg/helpers"
)

// UsersModule wires the account endpoints. Every route requires the
// upstream-issued token with the "user" role; the guid-scoped routes are
// additionally gated so callers can only act on their own account.
type UsersModule struct {
	Handler  *handlers.UsersHandler
	Verifier *helpers.TokenVerifier
}

func NewUsersModule(h *handlers.UsersHandler, v *helpers.TokenVerifier) *UsersModule {
	return &UsersModule{Handler: h, Verifier: v}
}

func (m *UsersModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Verifier, middleware.RoleUser))
	auth.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByCallerGuid(), nil),
	)

	auth.POST("/users", m.Handler.CreateUser)
	auth.GET("/users", m.Handler.SearchUsers)
	auth.GET("/profiles", m.Handler.SearchProfiles)

	own := auth.Group("/users/:guid")
	own.Use(middleware.RequireOwnGuid())
	{
		own.GET("", m.Handler.GetUser)
		own.PATCH("", m.Handler.UpdateUser)
		own.DELETE("", m.Handler.DeleteUser)
		own.GET("/condensed", m.Handler.GetUserCondensed)

		own.POST("/addresses", m.Handler.AddAddress)
		own.POST("/addresses/batch", m.Handler.AddAddressBatch)
		own.PATCH("/addresses/:addressId", m.Handler.UpdateAddress)
		own.DELETE("/addresses/:addressId", m.Handler.DeleteAddress)

		own.PUT("/avatar", m.Handler.UpdateAvatar)
		own.POST("/avatar", m.Handler.UploadAvatar)
		own.PUT("/password", m.Handler.UpdatePassword)
	}
}
