package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-agent/internal/config"
)

// ErrInvalidCredentials signals a username/password mismatch.
var ErrInvalidCredentials = errors.New("incorrect username or password")

// VerifyAdmin checks the supplied credentials against the configured admin
// principal. Prefers the bcrypt hash when configured, otherwise falls back
// to a constant-time comparison of the plain password.
func VerifyAdmin(cfg config.AuthConfig, username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.AdminUser)) == 1

	passOK := false
	if cfg.AdminPassHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(cfg.AdminPassHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(cfg.AdminPass)) == 1
	}

	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword hashes a plaintext password for ADMIN_PASS_HASH provisioning.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
