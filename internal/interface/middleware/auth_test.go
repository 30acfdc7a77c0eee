package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/user-accounts-service/pkg/helpers"
)

func authRouter(t *testing.T, v *helpers.TokenVerifier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", Auth(v, RoleUser))
	g.GET("/users/:guid", RequireOwnGuid(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": c.GetString(CtxCallerGuidKey)})
	})
	return r
}

func TestAuth(t *testing.T) {
	v := helpers.NewTokenVerifier("test-secret")
	good, err := v.Sign("g-1", []string{"user"}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	noRole, _ := v.Sign("g-1", []string{"viewer"}, time.Minute)
	expired, _ := v.Sign("g-1", []string{"user"}, -time.Minute)
	otherKey, _ := helpers.NewTokenVerifier("other-secret").Sign("g-1", []string{"user"}, time.Minute)

	tests := []struct {
		name       string
		token      string
		path       string
		wantStatus int
	}{
		{"own account", good, "/users/g-1", http.StatusOK},
		{"someone else's account", good, "/users/g-2", http.StatusForbidden},
		{"missing token", "", "/users/g-1", http.StatusUnauthorized},
		{"expired token", expired, "/users/g-1", http.StatusUnauthorized},
		{"wrong key", otherKey, "/users/g-1", http.StatusUnauthorized},
		{"missing role", noRole, "/users/g-1", http.StatusForbidden},
	}
	r := authRouter(t, v)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAuthCookieFallback(t *testing.T) {
	v := helpers.NewTokenVerifier("test-secret")
	token, err := v.Sign("g-1", []string{"user"}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	r := authRouter(t, v)

	req := httptest.NewRequest(http.MethodGet, "/users/g-1", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}
