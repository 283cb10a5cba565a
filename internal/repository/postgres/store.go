package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
)

var _ model.KeyValueStore = (*Store)(nil)

// Store keeps account items as JSONB rows of account_items keyed by (username, property).
// The generated email column plays the role of the email index.
type Store struct {
	db     *Connection
	logger *logger.Logger
}

func NewStore(db *Connection, logger *logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

func (s *Store) GetItem(ctx context.Context, in model.GetItemInput) (model.Item, error) {
	query := `SELECT attrs FROM account_items WHERE username = $1 AND property = $2`

	var raw []byte
	err := s.db.QueryRow(ctx, query, in.Key.User, in.Key.Property).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	item, err := decodeAttrs(raw)
	if err != nil {
		return nil, err
	}
	return project(item, in.Projection), nil
}

func (s *Store) PutItem(ctx context.Context, item model.Item, cond *model.Condition) error {
	key, err := keyOf(item)
	if err != nil {
		return err
	}
	attrs, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	args := []any{key.User, key.Property, string(attrs)}

	var query string
	if requiresItem(cond) {
		where, condArgs, err := conditionSQL(cond, "attrs", len(args)+1)
		if err != nil {
			return err
		}
		args = append(args, condArgs...)
		query = `UPDATE account_items SET attrs = $3::jsonb, updated_at = now()
				 WHERE username = $1 AND property = $2 AND ` + where
	} else {
		query = `INSERT INTO account_items (username, property, attrs) VALUES ($1, $2, $3::jsonb)
				 ON CONFLICT (username, property) DO UPDATE SET attrs = EXCLUDED.attrs, updated_at = now()`
		if cond != nil {
			where, condArgs, err := conditionSQL(cond, "account_items.attrs", len(args)+1)
			if err != nil {
				return err
			}
			args = append(args, condArgs...)
			query += ` WHERE ` + where
		}
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	if cond != nil && tag.RowsAffected() == 0 {
		return model.ErrConditionFailed
	}

	return nil
}

func (s *Store) UpdateItem(ctx context.Context, in model.UpdateItemInput) (model.Item, error) {
	if len(in.Set) == 0 && len(in.Remove) == 0 {
		return nil, fmt.Errorf("update of %s/%d has no actions", in.Key.User, in.Key.Property)
	}

	set, err := json.Marshal(in.Set)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update: %w", err)
	}
	keyAttrs, err := json.Marshal(map[string]any{
		model.AttrUser:     in.Key.User,
		model.AttrProperty: in.Key.Property,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	remove := in.Remove
	if remove == nil {
		remove = []string{}
	}
	args := []any{in.Key.User, in.Key.Property, string(set), remove}

	var query string
	if requiresItem(in.Condition) {
		where, condArgs, err := conditionSQL(in.Condition, "attrs", len(args)+1)
		if err != nil {
			return nil, err
		}
		args = append(args, condArgs...)
		query = `UPDATE account_items SET attrs = (attrs || $3::jsonb) - $4::text[], updated_at = now()
				 WHERE username = $1 AND property = $2 AND ` + where + `
				 RETURNING attrs`
	} else {
		args = append(args, string(keyAttrs))
		query = `INSERT INTO account_items (username, property, attrs)
				 VALUES ($1, $2, ($5::jsonb || $3::jsonb) - $4::text[])
				 ON CONFLICT (username, property) DO UPDATE
				 SET attrs = (account_items.attrs || $3::jsonb) - $4::text[], updated_at = now()`
		if in.Condition != nil {
			where, condArgs, err := conditionSQL(in.Condition, "account_items.attrs", len(args)+1)
			if err != nil {
				return nil, err
			}
			args = append(args, condArgs...)
			query += ` WHERE ` + where
		}
		query += ` RETURNING attrs`
	}

	var raw []byte
	err = s.db.QueryRow(ctx, query, args...).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	return decodeAttrs(raw)
}

func (s *Store) DeleteItem(ctx context.Context, key model.ItemKey) error {
	query := `DELETE FROM account_items WHERE username = $1 AND property = $2`

	if _, err := s.db.Exec(ctx, query, key.User, key.Property); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, in model.QueryInput) ([]model.Item, error) {
	query := `SELECT attrs FROM account_items WHERE username = $1`
	args := []any{in.User}

	if in.SortKey != nil {
		switch in.SortKey.Op {
		case model.SortKeyEqual:
			query += ` AND property = $2`
		case model.SortKeyGreaterThan:
			query += ` AND property > $2`
		default:
			return nil, fmt.Errorf("unsupported sort key operator %d", in.SortKey.Op)
		}
		args = append(args, in.SortKey.Value)
	}
	query += ` ORDER BY property`

	return s.collect(ctx, nil, query, args...)
}

// QueryIndex supports the email index only. The limit applies after ExcludeUser filtering.
func (s *Store) QueryIndex(ctx context.Context, in model.IndexQueryInput) ([]model.Item, error) {
	if in.Attribute != model.AttrEmail {
		return nil, fmt.Errorf("no index over attribute %s", in.Attribute)
	}

	query := `SELECT attrs FROM account_items WHERE email = $1`
	args := []any{in.Value}

	if in.ExcludeUser != "" {
		args = append(args, in.ExcludeUser)
		query += ` AND username <> $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY username, property`
	if in.Limit > 0 {
		args = append(args, in.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	return s.collect(ctx, in.Projection, query, args...)
}

// BatchWrite upserts every item in one round trip. Postgres never leaves items unprocessed.
func (s *Store) BatchWrite(ctx context.Context, items []model.Item) ([]model.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	query := `INSERT INTO account_items (username, property, attrs) VALUES ($1, $2, $3::jsonb)
			  ON CONFLICT (username, property) DO UPDATE SET attrs = EXCLUDED.attrs, updated_at = now()`

	batch := &pgx.Batch{}
	for _, item := range items {
		key, err := keyOf(item)
		if err != nil {
			return nil, err
		}
		attrs, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal item: %w", err)
		}
		batch.Queue(query, key.User, key.Property, string(attrs))
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range items {
		if _, err := results.Exec(); err != nil {
			return nil, fmt.Errorf("failed to batch write items: %w", err)
		}
	}

	return nil, nil
}

func (s *Store) collect(ctx context.Context, projection []string, query string, args ...any) ([]model.Item, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}

	raws, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}

	items := make([]model.Item, 0, len(raws))
	for _, raw := range raws {
		item, err := decodeAttrs(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, project(item, projection))
	}
	return items, nil
}

// requiresItem reports whether cond can only hold on an existing item.
func requiresItem(cond *model.Condition) bool {
	if cond == nil {
		return false
	}
	return cond.Kind == model.ConditionAttributeExists || cond.Kind == model.ConditionEquals
}

// conditionSQL renders cond as a predicate over the JSONB column col.
// Placeholders are numbered from first.
func conditionSQL(cond *model.Condition, col string, first int) (string, []any, error) {
	attr := "$" + strconv.Itoa(first)
	value := "$" + strconv.Itoa(first+1)

	switch cond.Kind {
	case model.ConditionAttributeNotExists:
		return fmt.Sprintf("(%s -> %s::text) IS NULL", col, attr), []any{cond.Attribute}, nil
	case model.ConditionAttributeExists:
		return fmt.Sprintf("(%s -> %s::text) IS NOT NULL", col, attr), []any{cond.Attribute}, nil
	case model.ConditionEquals, model.ConditionNotEquals:
		encoded, err := json.Marshal(cond.Value)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal condition value: %w", err)
		}
		op := "="
		if cond.Kind == model.ConditionNotEquals {
			op = "IS DISTINCT FROM"
		}
		return fmt.Sprintf("(%s -> %s::text) %s %s::jsonb", col, attr, op, value),
			[]any{cond.Attribute, string(encoded)}, nil
	default:
		return "", nil, fmt.Errorf("unsupported condition kind %d", cond.Kind)
	}
}

func keyOf(item model.Item) (model.ItemKey, error) {
	user, ok := item[model.AttrUser].(string)
	if !ok || strings.TrimSpace(user) == "" {
		return model.ItemKey{}, fmt.Errorf("item has no %s key", model.AttrUser)
	}

	var property int
	switch p := item[model.AttrProperty].(type) {
	case int:
		property = p
	case json.Number:
		n, err := strconv.Atoi(p.String())
		if err != nil {
			return model.ItemKey{}, fmt.Errorf("item has an invalid %s key: %w", model.AttrProperty, err)
		}
		property = n
	default:
		return model.ItemKey{}, fmt.Errorf("item has no integer %s key", model.AttrProperty)
	}

	return model.ItemKey{User: user, Property: property}, nil
}

func decodeAttrs(raw []byte) (model.Item, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var item model.Item
	if err := dec.Decode(&item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return item, nil
}

func project(item model.Item, attrs []string) model.Item {
	if len(attrs) == 0 {
		return item
	}
	out := make(model.Item, len(attrs))
	for _, attr := range attrs {
		if v, ok := item[attr]; ok {
			out[attr] = v
		}
	}
	return out
}
