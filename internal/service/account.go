package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
	"github.com/dtroode/regicide-accounts/internal/schema"
)

// DefaultEmailIndex is the secondary index over the lowercase email attribute.
const DefaultEmailIndex = "Email-index"

// DefaultRegisterTimeout bounds a registration when no other timeout is configured.
const DefaultRegisterTimeout = 30 * time.Second

// RetryPolicy shapes the delays between batch write attempts. The first delay is
// Initial; every next one grows by half of the last increment (at most MaxStep), and
// the increment itself shrinks by a third each round.
type RetryPolicy struct {
	Initial   time.Duration
	Increment time.Duration
	MaxStep   time.Duration
}

// DefaultRetryPolicy starts at 100ms and grows by at most 200ms per attempt.
var DefaultRetryPolicy = RetryPolicy{
	Initial:   100 * time.Millisecond,
	Increment: 200 * time.Millisecond,
	MaxStep:   400 * time.Millisecond,
}

func (p RetryPolicy) backoff() retry.Backoff {
	delay := p.Initial
	increment := p.Increment

	return retry.BackoffFunc(func() (time.Duration, bool) {
		next := delay
		delay += min(increment/2, p.MaxStep)
		increment = time.Duration(float64(increment) / 1.5)
		return next, false
	})
}

var _ model.AccountStore = (*AccountStore)(nil)

// AccountStore implements the login and registration protocols on a key-value store.
type AccountStore struct {
	store      model.KeyValueStore
	schema     *schema.Schema
	salt       []byte
	emailIndex string
	retry      RetryPolicy
	timeout    time.Duration
	logger     *logger.Logger
}

// AccountStoreOption customizes an AccountStore.
type AccountStoreOption func(*AccountStore)

// WithEmailIndex overrides the name of the email index.
func WithEmailIndex(name string) AccountStoreOption {
	return func(s *AccountStore) {
		if name != "" {
			s.emailIndex = name
		}
	}
}

// WithRetryPolicy overrides the batch write backoff.
func WithRetryPolicy(p RetryPolicy) AccountStoreOption {
	return func(s *AccountStore) {
		s.retry = p
	}
}

// WithRegisterTimeout bounds every registration, including its shard write retries,
// regardless of the caller's deadline. Zero keeps only the caller's deadline.
func WithRegisterTimeout(d time.Duration) AccountStoreOption {
	return func(s *AccountStore) {
		s.timeout = d
	}
}

// NewAccountStore creates an AccountStore. salt must be at least 32 bytes.
func NewAccountStore(
	store model.KeyValueStore,
	schema *schema.Schema,
	salt []byte,
	logger *logger.Logger,
	opts ...AccountStoreOption,
) *AccountStore {
	s := &AccountStore{
		store:      store,
		schema:     schema,
		salt:       salt,
		emailIndex: DefaultEmailIndex,
		retry:      DefaultRetryPolicy,
		timeout:    DefaultRegisterTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates the user and rotates the current token to tokenID in a single
// conditional write, then reads the whole account.
func (s *AccountStore) Login(ctx context.Context, username, passHash, tokenID string) (model.Account, error) {
	if err := ValidateLogin(model.LoginRequest{Username: username, PassHash: passHash}); err != nil {
		return model.Account{}, err
	}
	if tokenID == "" {
		return model.Account{}, fmt.Errorf("%w: empty token id", model.ErrInvalidRequest)
	}

	user := model.NormalizeUsername(username)

	hashed, err := HashPassword(passHash, s.salt)
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}

	updated, err := s.store.UpdateItem(ctx, model.UpdateItemInput{
		Key:       model.ItemKey{User: user, Property: schema.PropertyBasicInfo},
		Set:       map[string]any{model.AttrToken: tokenID},
		Condition: model.Equals(model.AttrPassHash, hashed),
	})
	if err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			s.logger.Debug("Account store: login rejected",
				"user", user)
			return model.Account{}, model.ErrInvalidCredentials
		}
		return model.Account{}, s.storeError("login update", user, schema.PropertyBasicInfo, err)
	}

	if stored, _ := updated[model.AttrPassHash].(string); stored != hashed {
		s.logger.Warn("Account store: stored password hash differs after conditional update",
			"user", user)
		return model.Account{}, model.ErrInvalidCredentials
	}

	info, err := s.schema.DeserializeBasicInfo(updated, user)
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: %w", model.ErrIncompleteAccount, err)
	}
	if info.Provisioning {
		s.logger.Warn("Account store: account registration never completed",
			"user", user)
	}

	items, err := s.store.Query(ctx, model.QueryInput{
		User:           user,
		SortKey:        &model.SortKeyPredicate{Op: model.SortKeyGreaterThan, Value: schema.PropertyBasicInfo},
		ConsistentRead: true,
	})
	if err != nil {
		return model.Account{}, s.storeError("login query", user, -1, err)
	}

	account := s.schema.DeserializeShards(items, user)
	if len(account.Cards) == 0 {
		s.logger.Error("Account store: account has no cards",
			"user", user,
			"items", len(items))
		return model.Account{}, fmt.Errorf("%w: no cards", model.ErrIncompleteAccount)
	}
	account.Info = &info

	s.logger.Info("Account store: login succeeded",
		"user", user,
		"decks", len(account.Decks))

	return account, nil
}

// Register creates the account: a conditional put of the basic info, a best-effort
// email uniqueness check with rollback, then a batched write of every other shard
// retried until done or until ctx ends.
func (s *AccountStore) Register(ctx context.Context, reg model.Registration) (model.Account, error) {
	if err := ValidateRegistration(model.RegisterRequest{
		Username: reg.Username,
		PassHash: reg.PassHash,
		DispName: reg.DisplayName,
		Email:    reg.Email,
	}); err != nil {
		return model.Account{}, err
	}
	if reg.TokenID == "" {
		return model.Account{}, fmt.Errorf("%w: empty token id", model.ErrInvalidRequest)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	user := model.NormalizeUsername(reg.Username)

	hashed, err := HashPassword(reg.PassHash, s.salt)
	if err != nil {
		return model.Account{}, err
	}

	account := reg.Template.Clone()
	info := model.BasicInfo{
		Username:       user,
		Email:          reg.Email,
		DisplayName:    reg.DisplayName,
		CurrentTokenID: reg.TokenID,
		Provisioning:   true,
	}
	if account.Info != nil {
		info.Coins = account.Info.Coins
	}

	basic, err := s.schema.SerializeBasicInfo(info, hashed, reg.TokenID)
	if err != nil {
		return model.Account{}, err
	}
	shards, err := s.schema.SerializeShards(account, user)
	if err != nil {
		return model.Account{}, err
	}

	if err := s.store.PutItem(ctx, basic, model.AttributeNotExists(model.AttrUser)); err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			s.logger.Info("Account store: username already taken",
				"user", user)
			return model.Account{}, model.ErrUsernameTaken
		}
		return model.Account{}, s.storeError("register put", user, schema.PropertyBasicInfo, err)
	}

	duplicates, err := s.store.QueryIndex(ctx, model.IndexQueryInput{
		Index:       s.emailIndex,
		Attribute:   model.AttrEmail,
		Value:       strings.ToLower(reg.Email),
		ExcludeUser: user,
		Limit:       2,
		Projection:  []string{model.AttrEmail},
	})
	if err != nil {
		queryErr := s.storeError("register email query", user, schema.PropertyBasicInfo, err)
		if rbErr := s.rollback(ctx, user); rbErr != nil {
			return model.Account{}, errors.Join(queryErr, rbErr)
		}
		return model.Account{}, queryErr
	}
	if len(duplicates) > 0 {
		s.logger.Info("Account store: email already registered",
			"user", user)
		if rbErr := s.rollback(ctx, user); rbErr != nil {
			return model.Account{}, errors.Join(model.ErrEmailExists, rbErr)
		}
		return model.Account{}, model.ErrEmailExists
	}

	if err := s.writeShards(ctx, user, shards); err != nil {
		return model.Account{}, err
	}

	_, err = s.store.UpdateItem(ctx, model.UpdateItemInput{
		Key:       model.ItemKey{User: user, Property: schema.PropertyBasicInfo},
		Remove:    []string{model.AttrProvisioning},
		Condition: model.AttributeExists(model.AttrUser),
	})
	if err != nil {
		s.logger.Warn("Account store: failed to clear provisioning flag",
			"user", user,
			"error", err.Error())
	}

	info.Provisioning = false
	account.Info = &info

	s.logger.Info("Account store: registration succeeded",
		"user", user,
		"shards", len(shards))

	return account, nil
}

// RevokeToken removes the current token when it still equals tokenID.
// A token that was already rotated or removed is reported as not revoked, without error.
func (s *AccountStore) RevokeToken(ctx context.Context, username, tokenID string) (bool, error) {
	user := model.NormalizeUsername(username)

	_, err := s.store.UpdateItem(ctx, model.UpdateItemInput{
		Key:       model.ItemKey{User: user, Property: schema.PropertyBasicInfo},
		Remove:    []string{model.AttrToken},
		Condition: model.Equals(model.AttrToken, tokenID),
	})
	if err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			s.logger.Debug("Account store: token already revoked or rotated",
				"user", user)
			return false, nil
		}
		return false, s.storeError("revoke token", user, schema.PropertyBasicInfo, err)
	}

	return true, nil
}

// CurrentTokenID reads the token id on file with a consistent read.
// An account without a current token yields an empty id.
func (s *AccountStore) CurrentTokenID(ctx context.Context, username string) (string, error) {
	user := model.NormalizeUsername(username)

	item, err := s.store.GetItem(ctx, model.GetItemInput{
		Key:            model.ItemKey{User: user, Property: schema.PropertyBasicInfo},
		ConsistentRead: true,
		Projection:     []string{model.AttrToken},
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", model.ErrNotFound
		}
		return "", s.storeError("current token", user, schema.PropertyBasicInfo, err)
	}

	tokenID, _ := item[model.AttrToken].(string)
	return tokenID, nil
}

func (s *AccountStore) writeShards(ctx context.Context, user string, shards []model.Item) error {
	if len(shards) == 0 {
		return nil
	}

	pending := shards
	attempt := 0

	err := retry.Do(ctx, s.retry.backoff(), func(ctx context.Context) error {
		attempt++

		unprocessed, err := s.store.BatchWrite(ctx, pending)
		if err != nil {
			return err
		}
		if len(unprocessed) == 0 {
			return nil
		}

		s.logger.Debug("Account store: batch write left unprocessed items",
			"user", user,
			"attempt", attempt,
			"unprocessed", len(unprocessed))

		pending = unprocessed
		return retry.RetryableError(fmt.Errorf("%d items unprocessed", len(unprocessed)))
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.Error("Account store: registration shards not written before deadline",
			"user", user,
			"attempts", attempt,
			"pending", len(pending))
		return fmt.Errorf("%w: %d items pending: %w", model.ErrPartialWrite, len(pending), err)
	}

	return s.storeError("register batch write", user, -1, err)
}

// rollback deletes the basic info item written by a registration that cannot finish.
// ctx may already be done, so the delete runs on a detached context.
func (s *AccountStore) rollback(ctx context.Context, user string) error {
	err := s.store.DeleteItem(context.WithoutCancel(ctx), model.ItemKey{User: user, Property: schema.PropertyBasicInfo})
	if err == nil {
		return nil
	}

	s.logger.Error("Account store: rollback failed, basic info left behind",
		"user", user,
		"error", err.Error())
	return &model.RollbackError{User: user, Err: err}
}

func (s *AccountStore) storeError(op, user string, property int, err error) error {
	s.logger.Error("Account store: store operation failed",
		"op", op,
		"user", user,
		"property", property,
		"error", err.Error())
	return &model.StoreError{Op: op, User: user, Property: property, Err: err}
}
