// Package memory is an in-process model.KeyValueStore used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/dtroode/regicide-accounts/internal/model"
)

var _ model.KeyValueStore = (*Store)(nil)

// BatchHook decides which items of a batch call are left unprocessed.
// call counts batch calls starting from 1.
type BatchHook func(call int, items []model.Item) (unprocessed []model.Item)

// Store keeps items in memory. Every read and write is strongly consistent.
type Store struct {
	mu         sync.RWMutex
	items      map[string]map[int]model.Item
	batchHook  BatchHook
	batchCalls [][]model.Item
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		items: make(map[string]map[int]model.Item),
	}
}

// SetBatchHook installs hook on BatchWrite. Items the hook returns are not stored.
func (s *Store) SetBatchHook(hook BatchHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchHook = hook
}

// BatchCalls returns copies of every batch BatchWrite received.
func (s *Store) BatchCalls() [][]model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]model.Item, len(s.batchCalls))
	for i, call := range s.batchCalls {
		out[i] = copyItems(call)
	}
	return out
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, partition := range s.items {
		n += len(partition)
	}
	return n
}

func (s *Store) GetItem(ctx context.Context, in model.GetItemInput) (model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.lookup(in.Key)
	if !ok {
		return nil, model.ErrNotFound
	}

	return project(item, in.Projection), nil
}

func (s *Store) PutItem(ctx context.Context, item model.Item, cond *model.Condition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := keyOf(item)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.lookup(key)
	if !evaluate(cond, current) {
		return model.ErrConditionFailed
	}

	s.store(key, copyItem(item))
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, in model.UpdateItemInput) (model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.lookup(in.Key)
	if !evaluate(in.Condition, current) {
		return nil, model.ErrConditionFailed
	}

	updated := model.Item{}
	if exists {
		updated = copyItem(current)
	} else {
		updated[model.AttrUser] = in.Key.User
		updated[model.AttrProperty] = in.Key.Property
	}
	for attr, value := range in.Set {
		updated[attr] = copyValue(value)
	}
	for _, attr := range in.Remove {
		delete(updated, attr)
	}

	s.store(in.Key, updated)
	return copyItem(updated), nil
}

func (s *Store) DeleteItem(ctx context.Context, key model.ItemKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if partition, ok := s.items[key.User]; ok {
		delete(partition, key.Property)
		if len(partition) == 0 {
			delete(s.items, key.User)
		}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, in model.QueryInput) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	partition := s.items[in.User]
	properties := make([]int, 0, len(partition))
	for property := range partition {
		if in.SortKey != nil && !matchSortKey(*in.SortKey, property) {
			continue
		}
		properties = append(properties, property)
	}
	sort.Ints(properties)

	out := make([]model.Item, 0, len(properties))
	for _, property := range properties {
		out = append(out, copyItem(partition[property]))
	}
	return out, nil
}

// QueryIndex scans every item. The limit applies after ExcludeUser filtering.
func (s *Store) QueryIndex(ctx context.Context, in model.IndexQueryInput) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.items))
	for user := range s.items {
		users = append(users, user)
	}
	sort.Strings(users)

	var out []model.Item
	for _, user := range users {
		if in.ExcludeUser != "" && user == in.ExcludeUser {
			continue
		}
		for _, item := range s.items[user] {
			if v, ok := item[in.Attribute].(string); !ok || v != in.Value {
				continue
			}
			out = append(out, project(item, in.Projection))
			if in.Limit > 0 && int32(len(out)) >= in.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *Store) BatchWrite(ctx context.Context, items []model.Item) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.batchCalls = append(s.batchCalls, copyItems(items))

	var unprocessed []model.Item
	if s.batchHook != nil {
		unprocessed = s.batchHook(len(s.batchCalls), items)
	}

	for _, item := range items {
		if containsItem(unprocessed, item) {
			continue
		}
		key, err := keyOf(item)
		if err != nil {
			return nil, err
		}
		s.store(key, copyItem(item))
	}

	return copyItems(unprocessed), nil
}

func (s *Store) lookup(key model.ItemKey) (model.Item, bool) {
	partition, ok := s.items[key.User]
	if !ok {
		return nil, false
	}
	item, ok := partition[key.Property]
	return item, ok
}

func (s *Store) store(key model.ItemKey, item model.Item) {
	partition, ok := s.items[key.User]
	if !ok {
		partition = make(map[int]model.Item)
		s.items[key.User] = partition
	}
	partition[key.Property] = item
}

func keyOf(item model.Item) (model.ItemKey, error) {
	user, ok := item[model.AttrUser].(string)
	if !ok || user == "" {
		return model.ItemKey{}, fmt.Errorf("item has no %s key", model.AttrUser)
	}
	property, ok := item[model.AttrProperty].(int)
	if !ok {
		return model.ItemKey{}, fmt.Errorf("item has no integer %s key", model.AttrProperty)
	}
	return model.ItemKey{User: user, Property: property}, nil
}

func matchSortKey(p model.SortKeyPredicate, property int) bool {
	switch p.Op {
	case model.SortKeyEqual:
		return property == p.Value
	case model.SortKeyGreaterThan:
		return property > p.Value
	default:
		return false
	}
}

// evaluate applies cond to current; a nil current means the item does not exist.
func evaluate(cond *model.Condition, current model.Item) bool {
	if cond == nil {
		return true
	}

	value, exists := current[cond.Attribute]
	switch cond.Kind {
	case model.ConditionAttributeNotExists:
		return !exists
	case model.ConditionAttributeExists:
		return exists
	case model.ConditionEquals:
		return exists && reflect.DeepEqual(value, cond.Value)
	case model.ConditionNotEquals:
		// Matches the DynamoDB semantics: a missing attribute is not equal to anything.
		return !exists || !reflect.DeepEqual(value, cond.Value)
	default:
		return false
	}
}

func project(item model.Item, attrs []string) model.Item {
	if len(attrs) == 0 {
		return copyItem(item)
	}
	out := make(model.Item, len(attrs))
	for _, attr := range attrs {
		if v, ok := item[attr]; ok {
			out[attr] = copyValue(v)
		}
	}
	return out
}

func containsItem(items []model.Item, item model.Item) bool {
	for _, candidate := range items {
		if reflect.DeepEqual(candidate, item) {
			return true
		}
	}
	return false
}

func copyItems(items []model.Item) []model.Item {
	if items == nil {
		return nil
	}
	out := make([]model.Item, len(items))
	for i, item := range items {
		out[i] = copyItem(item)
	}
	return out
}

func copyItem(item model.Item) model.Item {
	if item == nil {
		return nil
	}
	out := make(model.Item, len(item))
	for k, v := range item {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = copyValue(inner)
		}
		return out
	case model.Item:
		return map[string]any(copyItem(t))
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = copyValue(inner)
		}
		return out
	default:
		return v
	}
}
