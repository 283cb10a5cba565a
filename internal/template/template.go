// Package template loads the account every new registration starts from.
package template

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
)

// DefaultKey is the object key of the template in the config bucket.
const DefaultKey = "default-account.json"

//go:embed default_account.json
var embedded []byte

var (
	ErrNoInfo  = errors.New("template has no basic info")
	ErrNoCards = errors.New("template has no cards")
)

// Loader resolves the template from object storage, a local file or the built-in default, in that order.
type Loader struct {
	storage model.Storage
	key     string
	file    string
	logger  *logger.Logger
}

// NewLoader creates a Loader. storage may be nil and file may be empty.
func NewLoader(storage model.Storage, key, file string, logger *logger.Logger) *Loader {
	if key == "" {
		key = DefaultKey
	}
	return &Loader{
		storage: storage,
		key:     key,
		file:    file,
		logger:  logger,
	}
}

// Load returns a validated template.
// A template missing from storage falls back to the file or the built-in default.
func (l *Loader) Load(ctx context.Context) (model.Account, error) {
	if l.storage != nil {
		account, err := l.fromStorage(ctx)
		switch {
		case err == nil:
			l.logger.Info("Template: loaded from storage", "key", l.key)
			return account, nil
		case errors.Is(err, model.ErrNotFound):
			l.logger.Warn("Template: not found in storage, falling back", "key", l.key)
		default:
			return model.Account{}, err
		}
	}

	if l.file != "" {
		f, err := os.Open(l.file)
		if err != nil {
			return model.Account{}, fmt.Errorf("failed to open template file: %w", err)
		}
		defer f.Close()

		account, err := Decode(f)
		if err != nil {
			return model.Account{}, fmt.Errorf("template file %s: %w", l.file, err)
		}
		l.logger.Info("Template: loaded from file", "file", l.file)
		return account, nil
	}

	account, err := Default()
	if err != nil {
		return model.Account{}, err
	}
	l.logger.Info("Template: using built-in default")
	return account, nil
}

// Publish validates account and uploads it under the loader's key.
func (l *Loader) Publish(ctx context.Context, account model.Account) error {
	if l.storage == nil {
		return errors.New("no template storage configured")
	}
	if err := Validate(account); err != nil {
		return err
	}

	data, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	if err := l.storage.Upload(ctx, l.key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to publish template: %w", err)
	}

	l.logger.Info("Template: published", "key", l.key, "cards", len(account.Cards), "decks", len(account.Decks))
	return nil
}

func (l *Loader) fromStorage(ctx context.Context) (model.Account, error) {
	rc, err := l.storage.Download(ctx, l.key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("failed to download template: %w", err)
	}
	defer rc.Close()

	account, err := Decode(rc)
	if err != nil {
		return model.Account{}, fmt.Errorf("template %s: %w", l.key, err)
	}
	return account, nil
}

// Default returns the built-in template.
func Default() (model.Account, error) {
	return Decode(bytes.NewReader(embedded))
}

// Decode reads and validates a JSON template.
func Decode(r io.Reader) (model.Account, error) {
	var account model.Account
	if err := json.NewDecoder(r).Decode(&account); err != nil {
		return model.Account{}, fmt.Errorf("failed to decode template: %w", err)
	}
	if err := Validate(account); err != nil {
		return model.Account{}, err
	}
	return account, nil
}

// Validate checks that account can seed a registration.
func Validate(account model.Account) error {
	if account.Info == nil {
		return ErrNoInfo
	}
	if len(account.Cards) == 0 {
		return ErrNoCards
	}
	return nil
}
