package model

import "context"

// Item attribute names shared by every store implementation.
const (
	AttrUser         = "User"
	AttrProperty     = "Property"
	AttrEmail        = "Email"
	AttrOrigEmail    = "OrigEmail"
	AttrDispName     = "DispName"
	AttrPassHash     = "PassHash"
	AttrToken        = "Token"
	AttrCoins        = "Coins"
	AttrVerified     = "Verify"
	AttrProvisioning = "Prov"
	AttrCards        = "Cards"
	AttrAchievements = "Achv"
)

// Item is a flat attribute map. Values are strings, numbers, bools,
// map[string]any and []any.
type Item map[string]any

// ItemKey addresses one item: the account partition and its property.
type ItemKey struct {
	User     string
	Property int
}

// ConditionKind enumerates supported condition predicates.
type ConditionKind int

const (
	ConditionAttributeNotExists ConditionKind = iota
	ConditionAttributeExists
	ConditionEquals
	ConditionNotEquals
)

// Condition is a predicate over the attributes of the stored item.
type Condition struct {
	Kind      ConditionKind
	Attribute string
	Value     any
}

// AttributeNotExists holds when the item, or the attribute on it, does not exist.
func AttributeNotExists(attr string) *Condition {
	return &Condition{Kind: ConditionAttributeNotExists, Attribute: attr}
}

// AttributeExists holds when the stored item carries attr.
func AttributeExists(attr string) *Condition {
	return &Condition{Kind: ConditionAttributeExists, Attribute: attr}
}

// Equals holds when attr equals value.
func Equals(attr string, value any) *Condition {
	return &Condition{Kind: ConditionEquals, Attribute: attr, Value: value}
}

// NotEquals holds when attr differs from value.
func NotEquals(attr string, value any) *Condition {
	return &Condition{Kind: ConditionNotEquals, Attribute: attr, Value: value}
}

// SortKeyOp enumerates sort key predicates usable in a Query.
type SortKeyOp int

const (
	SortKeyEqual SortKeyOp = iota
	SortKeyGreaterThan
)

// SortKeyPredicate restricts the Property range of a Query.
type SortKeyPredicate struct {
	Op    SortKeyOp
	Value int
}

// GetItemInput reads one item.
type GetItemInput struct {
	Key            ItemKey
	ConsistentRead bool
	// Projection limits returned attributes; empty means all.
	Projection []string
}

// UpdateItemInput sets and removes attributes of one item, optionally under a condition.
type UpdateItemInput struct {
	Key       ItemKey
	Set       map[string]any
	Remove    []string
	Condition *Condition
}

// QueryInput reads items of one partition.
type QueryInput struct {
	User           string
	SortKey        *SortKeyPredicate
	ConsistentRead bool
}

// IndexQueryInput reads a secondary index. Index reads are never strongly consistent.
type IndexQueryInput struct {
	Index       string
	Attribute   string
	Value       string
	ExcludeUser string
	Limit       int32
	Projection  []string
}

// KeyValueStore is the storage contract the account core needs.
// Failed conditions are reported as ErrConditionFailed, missing items as ErrNotFound.
type KeyValueStore interface {
	GetItem(ctx context.Context, in GetItemInput) (Item, error)
	PutItem(ctx context.Context, item Item, cond *Condition) error
	// UpdateItem returns every attribute of the item after the update.
	UpdateItem(ctx context.Context, in UpdateItemInput) (Item, error)
	DeleteItem(ctx context.Context, key ItemKey) error
	Query(ctx context.Context, in QueryInput) ([]Item, error)
	QueryIndex(ctx context.Context, in IndexQueryInput) ([]Item, error)
	// BatchWrite puts every item and returns the ones the store did not process.
	BatchWrite(ctx context.Context, items []Item) ([]Item, error)
}
