package model

import (
	"errors"
	"fmt"
)

// Validation errors are detected before any I/O.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidDisplayName = errors.New("invalid display name")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrBadPassHash        = errors.New("bad password hash")
)

// Authentication errors never tell an unknown user apart from a wrong password.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Conflict errors.
var (
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailExists   = errors.New("email is already registered")
)

var (
	// ErrIncompleteAccount means the account exists but some required shard is missing or unreadable.
	ErrIncompleteAccount = errors.New("account data is incomplete")
	// ErrPartialWrite means registration shards did not converge before the deadline.
	ErrPartialWrite = errors.New("account shards were only partially written")
)

// Token codec errors.
var (
	ErrTokenEncoding      = errors.New("failed to encode token")
	ErrTokenFormat        = errors.New("malformed token")
	ErrSigningKeyTooShort = errors.New("signing key is too short")
	ErrTokenExpired       = errors.New("token expiration is in the past or not after issue time")
	ErrTimeOutOfRange     = errors.New("token timestamp is out of range")
)

// Key-value store errors.
var (
	ErrNotFound        = errors.New("item not found")
	ErrConditionFailed = errors.New("conditional check failed")
)

// StoreError is an unexpected key-value store failure with the context it happened in.
type StoreError struct {
	Op       string
	User     string
	Property int
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed (user=%q property=%d): %v", e.Op, e.User, e.Property, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// RollbackError reports that compensating a failed registration did not succeed.
// The BasicInfo item of User is left behind without shards.
type RollbackError struct {
	User string
	Err  error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback of %q failed: %v", e.User, e.Err)
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}
