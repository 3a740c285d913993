package security

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var fastParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestArgon2RoundTrip(t *testing.T) {
	hash, err := HashPasswordWithParams("s3cret", fastParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := VerifyPassword("s3cret", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("wrong", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestVerifyPasswordAcceptsBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("legacy"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	ok, err := VerifyPassword("legacy", hash)
	if err != nil || !ok {
		t.Fatalf("expected bcrypt match, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("other", hash)
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch, ok=%v err=%v", ok, err)
	}
}

func TestVerifyPasswordRejectsUnknownFormat(t *testing.T) {
	if _, err := VerifyPassword("x", []byte("plaintext")); err == nil {
		t.Fatal("expected error for unknown hash format")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateSessionToken("secret", 7, "sess-1", "admin", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseSessionToken(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.SessionID != "sess-1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := ParseSessionToken(token, "other-secret"); err == nil {
		t.Fatal("expected signature failure with wrong secret")
	}
}

func TestSessionTokenExpired(t *testing.T) {
	token, err := GenerateSessionToken("secret", 7, "sess-1", "admin", time.Now().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseSessionToken(token, "secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestCSRFTokenBoundToSession(t *testing.T) {
	token := CSRFToken("secret", "sess-1")
	if !ValidCSRFToken("secret", "sess-1", token) {
		t.Fatal("expected token to validate")
	}
	if ValidCSRFToken("secret", "sess-2", token) {
		t.Fatal("token must not validate for another session")
	}
	if ValidCSRFToken("secret", "", "") {
		t.Fatal("empty token must not validate")
	}
}
