package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Oswi777/Portal-Fisioterapia/internal/service"
)

const (
	sessionKey    = "session"
	authSourceKey = "auth_source"
	sourceCookie  = "cookie"
	sourceBearer  = "bearer"
)

type SessionResolver interface {
	Resolve(ctx context.Context, token string, ip string, userAgent string) (*service.Session, error)
}

// Auth attaches the caller's session when a valid Bearer token or session cookie is present.
// It never rejects a request; RequireSession and RequireRoles do that.
func Auth(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, source := "", ""
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token, source = strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), sourceBearer
		} else if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
			token, source = cookie, sourceCookie
		}

		if token != "" {
			session, err := resolver.Resolve(c.Request.Context(), token, c.ClientIP(), c.GetHeader("User-Agent"))
			if err == nil {
				c.Set(sessionKey, session)
				c.Set(authSourceKey, source)
			} else if !service.IsAuth(err) {
				_ = c.Error(err)
			}
		}

		c.Next()
	}
}

// CurrentSession returns the session attached by Auth, or nil for anonymous callers.
func CurrentSession(c *gin.Context) *service.Session {
	value, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, _ := value.(*service.Session)
	return session
}

func authenticatedByCookie(c *gin.Context) bool {
	return c.GetString(authSourceKey) == sourceCookie
}
