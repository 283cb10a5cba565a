package model

import (
	"context"
	"strings"
)

// Account is the aggregate persisted as several property items sharing one partition key.
type Account struct {
	Info         *BasicInfo    `json:"Info"`
	Cards        []Card        `json:"Cards"`
	Decks        []Deck        `json:"Decks"`
	Achievements []Achievement `json:"Achievements"`
}

// BasicInfo is the profile part of an account.
type BasicInfo struct {
	Username       string `json:"Username"`
	Email          string `json:"Email"`
	DisplayName    string `json:"DisplayName"`
	Coins          uint64 `json:"Coins"`
	Verified       bool   `json:"Verified"`
	CurrentTokenID string `json:"-"`
	// Provisioning is set while registration has not confirmed every shard.
	Provisioning bool `json:"-"`
}

// Card is an owned card and its count.
type Card struct {
	ID    uint16 `json:"Id"`
	Count uint16 `json:"Ct"`
}

// Deck is a named set of cards.
type Deck struct {
	ID    uint16 `json:"Id"`
	Name  string `json:"Name"`
	Cards []Card `json:"Cards"`
}

// Achievement tracks progress of a single achievement.
type Achievement struct {
	ID       uint16 `json:"Id"`
	Complete bool   `json:"Complete"`
	State    int32  `json:"State"`
}

// Account field constraints.
const (
	UsernameMinLength     = 5
	UsernameMaxLength     = 32
	DisplayNameMinLength  = 5
	DisplayNameMaxLength  = 48
	EmailMinLength        = 3
	EmailMaxLength        = 255
	PassHashMinLength     = 40
	PasswordSaltMinLength = 32
	MaxDeckID             = 32
)

// NormalizeUsername returns the canonical partition key for a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(username)
}

// Clone returns a deep copy of the account so templates can be reused safely.
func (a Account) Clone() Account {
	out := Account{}
	if a.Info != nil {
		info := *a.Info
		out.Info = &info
	}
	if a.Cards != nil {
		out.Cards = append([]Card(nil), a.Cards...)
	}
	if a.Decks != nil {
		out.Decks = make([]Deck, len(a.Decks))
		for i, d := range a.Decks {
			out.Decks[i] = Deck{ID: d.ID, Name: d.Name, Cards: append([]Card(nil), d.Cards...)}
		}
	}
	if a.Achievements != nil {
		out.Achievements = append([]Achievement(nil), a.Achievements...)
	}
	return out
}

// Registration carries everything AccountStore.Register persists.
type Registration struct {
	Username    string
	PassHash    string
	DisplayName string
	Email       string
	TokenID     string
	// Template seeds coins, cards, decks and achievements of the new account.
	Template Account
}

// AccountStore runs the login and registration protocols against a key-value store.
type AccountStore interface {
	Login(ctx context.Context, username, passHash, tokenID string) (Account, error)
	Register(ctx context.Context, reg Registration) (Account, error)
	// RevokeToken clears the current token if it still equals tokenID and reports whether it did.
	RevokeToken(ctx context.Context, username, tokenID string) (bool, error)
	CurrentTokenID(ctx context.Context, username string) (string, error)
}
