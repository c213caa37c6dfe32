package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuth guards admin routes with a bearer key. An empty key disables authentication,
// which keeps local development and the sample-data mode open.
type AdminAuth struct {
	key string
}

func NewAdminAuth(key string) *AdminAuth {
	return &AdminAuth{key: key}
}

// Enabled reports whether an admin key is configured
func (a *AdminAuth) Enabled() bool {
	return a.key != ""
}

// authFailure describes why a request's credentials were rejected
type authFailure struct {
	code    string
	message string
}

// check validates the "Authorization: Bearer <key>" header. Returns nil when access is allowed.
func (a *AdminAuth) check(c *gin.Context) *authFailure {
	if a.key == "" {
		return nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return &authFailure{code: "AUTH_REQUIRED", message: "Authorization header required"}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return &authFailure{code: "AUTH_INVALID_FORMAT", message: "Invalid authorization format. Use: Bearer <admin_key>"}
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(a.key)) != 1 {
		return &authFailure{code: "AUTH_INVALID_KEY", message: "Invalid admin key"}
	}
	return nil
}

// Require returns middleware that rejects requests without the admin key
func (a *AdminAuth) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if failure := a.check(c); failure != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": failure.message,
				"code":  failure.code,
			})
			return
		}
		c.Next()
	}
}

// Verify is a handler that lets clients check whether their stored key is still valid
func (a *AdminAuth) Verify(c *gin.Context) {
	if !a.Enabled() {
		c.JSON(http.StatusOK, gin.H{
			"valid":        true,
			"auth_enabled": false,
			"message":      "Authentication is not configured",
		})
		return
	}

	if failure := a.check(c); failure != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"valid": false,
			"error": failure.message,
			"code":  failure.code,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":        true,
		"auth_enabled": true,
	})
}

// Status is a public handler reporting whether authentication is enabled
func (a *AdminAuth) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"auth_enabled": a.Enabled(),
	})
}
