package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Oswi777/Portal-Fisioterapia/internal/security"
)

const (
	CSRFHeader    = "X-CSRF-Token"
	CSRFFormField = "csrf_token"
	csrfKey       = "csrf_token"
)

// CSRF protects cookie-authenticated requests. Safe methods pass and receive a token in the
// context for forms; unsafe methods must echo it back in the form field or the header.
// Bearer-authenticated and anonymous requests are not checked.
func CSRF(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := CurrentSession(c)
		if session == nil || !authenticatedByCookie(c) {
			c.Next()
			return
		}

		expected := security.CSRFToken(secret, session.ID)
		c.Set(csrfKey, expected)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		token := c.GetHeader(CSRFHeader)
		if token == "" {
			token = c.PostForm(CSRFFormField)
		}
		if !security.ValidCSRFToken(secret, session.ID, token) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid csrf token", "type": "Forbidden"})
			return
		}

		c.Next()
	}
}

// CSRFToken returns the token CSRF stored for the current request, if any.
func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfKey)
}
