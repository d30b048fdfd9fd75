package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/atelier-digital/atelier-backend/internal/apperr"
	httpapi "github.com/atelier-digital/atelier-backend/internal/api/http"
)

const ctxIdentity = "auth_identity"

// RequireUser resolves the caller's session from the Authorization
// header. Unauthenticated calls are short-circuited with 401 and a
// WWW-Authenticate challenge; a broken verifier yields 503 instead, so
// clients can tell the two apart.
func RequireUser(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			httpapi.Abort(c, apperr.Auth("missing authorization token"))
			return
		}

		id, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnavailable {
				httpapi.Abort(c, err)
				return
			}
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			httpapi.Abort(c, apperr.Auth("invalid or expired token"))
			return
		}

		c.Set(ctxIdentity, id)
		c.Next()
	}
}

// RequireAdmin rejects authenticated non-admin callers with 403. Must
// run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CurrentIdentity(c)
		if id == nil {
			c.Header("WWW-Authenticate", "Bearer")
			httpapi.Abort(c, apperr.Auth("missing authorization token"))
			return
		}
		if !id.Admin {
			httpapi.Abort(c, apperr.Forbidden("admin privileges required"))
			return
		}
		c.Next()
	}
}

// RequireAdminPage is the page-context variant of RequireAdmin: instead
// of a JSON error it redirects to the unauthorized page.
func RequireAdminPage(v Verifier, unauthorizedPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token != "" {
			if id, err := v.Verify(c.Request.Context(), token); err == nil && id.Admin {
				c.Set(ctxIdentity, id)
				c.Next()
				return
			}
		}
		c.Redirect(http.StatusSeeOther, unauthorizedPath)
		c.Abort()
	}
}

// CurrentIdentity returns the identity set by RequireUser, or nil.
func CurrentIdentity(c *gin.Context) *Identity {
	if v, ok := c.Get(ctxIdentity); ok {
		if id, ok := v.(*Identity); ok {
			return id
		}
	}
	return nil
}

// UserUID returns the resolved caller's UID, or "".
func UserUID(c *gin.Context) string {
	if id := CurrentIdentity(c); id != nil {
		return id.UID
	}
	return ""
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
