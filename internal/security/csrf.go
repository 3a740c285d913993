package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignResource returns an HMAC-SHA256 over the parts joined by ':'.
func SignResource(secret string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, ":")))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CSRFToken binds a form token to one session.
func CSRFToken(secret string, sessionID string) string {
	return SignResource(secret, "csrf", sessionID)
}

func ValidCSRFToken(secret string, sessionID string, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(CSRFToken(secret, sessionID)))
}
