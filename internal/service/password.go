package service

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dtroode/regicide-accounts/internal/model"
)

// HashPassword derives the stored password value from the client password hash.
// The client hash is decoded from standard base64, salted by appending salt, hashed
// once with SHA-256 and encoded back to standard base64.
func HashPassword(passHash string, salt []byte) (string, error) {
	if len(salt) < model.PasswordSaltMinLength {
		return "", fmt.Errorf("password salt must be at least %d bytes", model.PasswordSaltMinLength)
	}

	raw, err := base64.StdEncoding.DecodeString(passHash)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrBadPassHash, err)
	}

	h := sha256.New()
	h.Write(raw)
	h.Write(salt)

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
