package model

import "time"

// AuthToken is the decoded content of a session token.
type AuthToken struct {
	UserID     string
	Issued     time.Time
	Expiration time.Time
	TokenID    string
}

// TokenCodec builds, reads and verifies session tokens.
type TokenCodec interface {
	Build(token AuthToken) (string, error)
	Parse(token string) (AuthToken, error)
	VerifySignature(token string) bool
	GenerateTokenID() (string, error)
}
