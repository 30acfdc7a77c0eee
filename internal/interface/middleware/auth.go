package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-accounts-service/pkg/helpers"
	"github.com/oksasatya/user-accounts-service/pkg/response"
)

const (
	CtxCallerGuidKey = "callerGuid"

	// RoleUser is required on every account endpoint.
	RoleUser = "user"
)

// Auth verifies the upstream-issued bearer token and stores the caller's guid
// in the Gin context. Authentication itself happened upstream; this layer only
// checks the signature and the role set.
func Auth(verifier *helpers.TokenVerifier, requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		claims, err := verifier.Parse(token)
		if err != nil {
			resp := response.Error[any](c, http.StatusUnauthorized, "invalid access token", err.Error())
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		if requiredRole != "" && !claims.HasRole(requiredRole) {
			resp := response.Error[any](c, http.StatusForbidden, "insufficient role", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set(CtxCallerGuidKey, claims.Guid)
		c.Next()
	}
}

// RequireOwnGuid rejects callers acting on an account other than their own.
// The guid path parameter must equal the authenticated caller's guid; the
// core services never perform this check themselves.
func RequireOwnGuid() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetString(CtxCallerGuidKey)
		if guid := c.Param("guid"); guid != "" && guid != caller {
			resp := response.Error[any](c, http.StatusForbidden, "cannot act on another user's account", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	// cookie fallback for browser clients
	if tok, err := c.Cookie("access_token"); err == nil {
		return tok
	}
	return ""
}
