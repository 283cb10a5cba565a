// Package schema maps the account aggregate onto property items of a key-value store.
//
// Every account is stored under the partition key User = lowercase(username) and
// split by the sort key Property:
//
//	0   basic info
//	1   cards with id <= 32767
//	2   cards with id  > 32767
//	3   achievements
//	4   reserved
//	>4  one item per deck, Property = deck id + 4
//
// Splitting keeps every item far below the store's item size ceiling while a single
// range query (Property > 4) still returns every deck.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
)

// Property sort keys.
const (
	PropertyBasicInfo    = 0
	PropertyCardsLower   = 1
	PropertyCardsUpper   = 2
	PropertyAchievements = 3
	PropertyReserved     = 4
	// DeckPropertyOffset is added to a deck id to get its property.
	DeckPropertyOffset = 4
)

// MaxLowerCardID is the highest card id stored in the lower card shard.
const MaxLowerCardID = 32767

const (
	achvID       = "id"
	achvComplete = "cp"
	achvState    = "st"
)

// ErrMalformedItem is returned when an item lacks a required attribute or holds a badly typed one.
var ErrMalformedItem = errors.New("malformed account item")

// Schema serializes and deserializes account shards, logging what it had to skip.
type Schema struct {
	logger *logger.Logger
}

// New creates a Schema.
func New(logger *logger.Logger) *Schema {
	return &Schema{logger: logger}
}

// DeckProperty returns the sort key of a deck.
func DeckProperty(deckID uint16) int {
	return int(deckID) + DeckPropertyOffset
}

// SerializeBasicInfo builds the property 0 item. Empty optional values are omitted.
func (s *Schema) SerializeBasicInfo(info model.BasicInfo, passHash, tokenID string) (model.Item, error) {
	user := model.NormalizeUsername(info.Username)
	if user == "" {
		return nil, fmt.Errorf("%w: empty username", ErrMalformedItem)
	}

	item := model.Item{
		model.AttrUser:     user,
		model.AttrProperty: PropertyBasicInfo,
		model.AttrCoins:    info.Coins,
		model.AttrVerified: info.Verified,
	}
	if info.Email != "" {
		// The lowercase copy feeds the email index, the original keeps the user's casing.
		item[model.AttrEmail] = strings.ToLower(info.Email)
		item[model.AttrOrigEmail] = info.Email
	}
	if info.DisplayName != "" {
		item[model.AttrDispName] = info.DisplayName
	}
	if passHash != "" {
		item[model.AttrPassHash] = passHash
	}
	if tokenID != "" {
		item[model.AttrToken] = tokenID
	}
	if info.Provisioning {
		item[model.AttrProvisioning] = true
	}

	return item, nil
}

// SerializeCards splits cards into the lower and upper shard. A shard without cards is nil.
// Duplicate ids keep their first occurrence.
func (s *Schema) SerializeCards(cards []model.Card, username string) (lower, upper model.Item, err error) {
	user := model.NormalizeUsername(username)
	if user == "" {
		return nil, nil, fmt.Errorf("%w: empty username", ErrMalformedItem)
	}

	for _, c := range cards {
		shard := &lower
		property := PropertyCardsLower
		if c.ID > MaxLowerCardID {
			shard = &upper
			property = PropertyCardsUpper
		}

		if *shard == nil {
			*shard = model.Item{
				model.AttrUser:     user,
				model.AttrProperty: property,
				model.AttrCards:    map[string]any{},
			}
		}

		set := (*shard)[model.AttrCards].(map[string]any)
		id := strconv.FormatUint(uint64(c.ID), 10)
		if _, dup := set[id]; dup {
			s.logger.Warn("Schema: duplicate card dropped",
				"user", user,
				"card_id", c.ID)
			continue
		}
		set[id] = c.Count
	}

	return lower, upper, nil
}

// SerializeDecks builds one item per deck. Decks with id 0 or above the maximum, blank
// names or duplicate ids are skipped, as are cards with a zero count.
func (s *Schema) SerializeDecks(decks []model.Deck, username string) ([]model.Item, error) {
	user := model.NormalizeUsername(username)
	if user == "" {
		return nil, fmt.Errorf("%w: empty username", ErrMalformedItem)
	}

	out := make([]model.Item, 0, len(decks))
	seen := make(map[uint16]struct{}, len(decks))

	for _, d := range decks {
		if d.ID == 0 || d.ID > model.MaxDeckID {
			s.logger.Warn("Schema: deck id out of range, deck ignored",
				"user", user,
				"deck_id", d.ID)
			continue
		}
		if strings.TrimSpace(d.Name) == "" {
			s.logger.Warn("Schema: deck has an invalid name, deck ignored",
				"user", user,
				"deck_id", d.ID)
			continue
		}
		if _, dup := seen[d.ID]; dup {
			s.logger.Warn("Schema: duplicate deck id, deck ignored",
				"user", user,
				"deck_id", d.ID)
			continue
		}
		seen[d.ID] = struct{}{}

		set := make(map[string]any, len(d.Cards))
		for _, c := range d.Cards {
			if c.Count == 0 {
				continue
			}
			id := strconv.FormatUint(uint64(c.ID), 10)
			if _, dup := set[id]; dup {
				s.logger.Warn("Schema: duplicate card in deck dropped",
					"user", user,
					"deck_id", d.ID,
					"card_id", c.ID)
				continue
			}
			set[id] = c.Count
		}

		out = append(out, model.Item{
			model.AttrUser:     user,
			model.AttrProperty: DeckProperty(d.ID),
			model.AttrDispName: d.Name,
			model.AttrCards:    set,
		})
	}

	return out, nil
}

// SerializeAchievements builds the achievements item. Duplicate ids keep their first occurrence.
func (s *Schema) SerializeAchievements(achievements []model.Achievement, username string) (model.Item, error) {
	user := model.NormalizeUsername(username)
	if user == "" {
		return nil, fmt.Errorf("%w: empty username", ErrMalformedItem)
	}

	list := make([]any, 0, len(achievements))
	seen := make(map[uint16]struct{}, len(achievements))

	for _, a := range achievements {
		if _, dup := seen[a.ID]; dup {
			s.logger.Warn("Schema: duplicate achievement dropped",
				"user", user,
				"achievement_id", a.ID)
			continue
		}
		seen[a.ID] = struct{}{}

		list = append(list, map[string]any{
			achvID:       a.ID,
			achvComplete: a.Complete,
			achvState:    a.State,
		})
	}

	return model.Item{
		model.AttrUser:         user,
		model.AttrProperty:     PropertyAchievements,
		model.AttrAchievements: list,
	}, nil
}

// SerializeShards returns every non-basic item of account, ready for a batch write.
func (s *Schema) SerializeShards(account model.Account, username string) ([]model.Item, error) {
	lower, upper, err := s.SerializeCards(account.Cards, username)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize cards: %w", err)
	}

	decks, err := s.SerializeDecks(account.Decks, username)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize decks: %w", err)
	}

	items := make([]model.Item, 0, len(decks)+3)
	if lower != nil {
		items = append(items, lower)
	}
	if upper != nil {
		items = append(items, upper)
	}
	items = append(items, decks...)

	if account.Achievements != nil {
		achv, err := s.SerializeAchievements(account.Achievements, username)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize achievements: %w", err)
		}
		items = append(items, achv)
	}

	return items, nil
}

// Property returns the sort key of item.
func Property(item model.Item) (int, bool) {
	v, ok := item[model.AttrProperty]
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// DeserializeBasicInfo reads a property 0 item.
func (s *Schema) DeserializeBasicInfo(item model.Item, username string) (model.BasicInfo, error) {
	user := model.NormalizeUsername(username)
	if item == nil {
		return model.BasicInfo{}, s.malformed(user, PropertyBasicInfo, "item")
	}

	stored, ok := toString(item[model.AttrUser])
	if !ok || strings.TrimSpace(stored) == "" {
		return model.BasicInfo{}, s.malformed(user, PropertyBasicInfo, model.AttrUser)
	}
	coins, ok := toUint64(item[model.AttrCoins])
	if !ok {
		return model.BasicInfo{}, s.malformed(user, PropertyBasicInfo, model.AttrCoins)
	}
	email, ok := toString(item[model.AttrEmail])
	if !ok || strings.TrimSpace(email) == "" {
		return model.BasicInfo{}, s.malformed(user, PropertyBasicInfo, model.AttrEmail)
	}
	dispName, ok := toString(item[model.AttrDispName])
	if !ok || strings.TrimSpace(dispName) == "" {
		return model.BasicInfo{}, s.malformed(user, PropertyBasicInfo, model.AttrDispName)
	}
	tokenID, ok := toString(item[model.AttrToken])
	if !ok || strings.TrimSpace(tokenID) == "" {
		return model.BasicInfo{}, s.malformed(user, PropertyBasicInfo, model.AttrToken)
	}

	if orig, ok := toString(item[model.AttrOrigEmail]); ok && orig != "" {
		email = orig
	}
	verified, _ := toBool(item[model.AttrVerified])
	provisioning, _ := toBool(item[model.AttrProvisioning])

	return model.BasicInfo{
		Username:       stored,
		Email:          email,
		DisplayName:    dispName,
		Coins:          coins,
		Verified:       verified,
		CurrentTokenID: tokenID,
		Provisioning:   provisioning,
	}, nil
}

// DeserializeCards reads a card shard. Entries with an invalid id or count are skipped.
func (s *Schema) DeserializeCards(item model.Item, username string) ([]model.Card, error) {
	user := model.NormalizeUsername(username)
	property, _ := Property(item)

	set, ok := toMap(item[model.AttrCards])
	if !ok {
		return nil, s.malformed(user, property, model.AttrCards)
	}

	return s.readCardSet(set, user, property), nil
}

// DeserializeDeck reads a deck item.
func (s *Schema) DeserializeDeck(item model.Item, username string) (model.Deck, error) {
	user := model.NormalizeUsername(username)

	property, ok := Property(item)
	if !ok {
		return model.Deck{}, s.malformed(user, 0, model.AttrProperty)
	}
	deckID := property - DeckPropertyOffset
	if deckID <= 0 || deckID > model.MaxDeckID {
		return model.Deck{}, s.malformed(user, property, model.AttrProperty)
	}

	name, ok := toString(item[model.AttrDispName])
	if !ok || strings.TrimSpace(name) == "" {
		return model.Deck{}, s.malformed(user, property, model.AttrDispName)
	}

	rawCards, ok := item[model.AttrCards]
	if !ok {
		return model.Deck{}, s.malformed(user, property, model.AttrCards)
	}

	deck := model.Deck{ID: uint16(deckID), Name: name, Cards: []model.Card{}}
	// An empty deck is legal, a missing or non-map card set is read as empty.
	if set, ok := toMap(rawCards); ok {
		deck.Cards = s.readCardSet(set, user, property)
	}

	return deck, nil
}

// DeserializeAchievements reads the achievements item. Invalid and duplicate entries are skipped.
func (s *Schema) DeserializeAchievements(item model.Item, username string) ([]model.Achievement, error) {
	user := model.NormalizeUsername(username)

	list, ok := toList(item[model.AttrAchievements])
	if !ok {
		return nil, s.malformed(user, PropertyAchievements, model.AttrAchievements)
	}

	out := make([]model.Achievement, 0, len(list))
	seen := make(map[uint16]struct{}, len(list))

	for _, raw := range list {
		entry, ok := toMap(raw)
		if !ok {
			s.skipped(user, PropertyAchievements, "achievement is not a map")
			continue
		}
		id, ok := toUint16(entry[achvID])
		if !ok {
			s.skipped(user, PropertyAchievements, "achievement has an invalid id")
			continue
		}
		complete, ok := toBool(entry[achvComplete])
		if !ok {
			s.skipped(user, PropertyAchievements, "achievement has an invalid completion flag", "achievement_id", id)
			continue
		}
		state, ok := toInt32(entry[achvState])
		if !ok {
			s.skipped(user, PropertyAchievements, "achievement has an invalid state", "achievement_id", id)
			continue
		}
		if _, dup := seen[id]; dup {
			s.skipped(user, PropertyAchievements, "duplicate achievement", "achievement_id", id)
			continue
		}
		seen[id] = struct{}{}

		out = append(out, model.Achievement{ID: id, Complete: complete, State: state})
	}

	return out, nil
}

// DeserializeShards assembles cards, decks and achievements from non-basic items.
// Unreadable items are logged and skipped; callers decide which missing parts are fatal.
func (s *Schema) DeserializeShards(items []model.Item, username string) model.Account {
	user := model.NormalizeUsername(username)
	var account model.Account

	for _, item := range items {
		property, ok := Property(item)
		if !ok {
			s.skipped(user, -1, "item without property")
			continue
		}

		switch {
		case property == PropertyCardsLower || property == PropertyCardsUpper:
			cards, err := s.DeserializeCards(item, user)
			if err != nil {
				continue
			}
			account.Cards = append(account.Cards, cards...)
		case property == PropertyAchievements:
			achievements, err := s.DeserializeAchievements(item, user)
			if err != nil {
				continue
			}
			account.Achievements = achievements
		case property > PropertyReserved:
			deck, err := s.DeserializeDeck(item, user)
			if err != nil {
				continue
			}
			account.Decks = append(account.Decks, deck)
		}
	}

	return account
}

func (s *Schema) readCardSet(set map[string]any, user string, property int) []model.Card {
	cards := make([]model.Card, 0, len(set))
	for key, raw := range set {
		id, err := strconv.ParseUint(key, 10, 16)
		if err != nil || id == 0 {
			s.skipped(user, property, "card has an invalid id", "card_key", key)
			continue
		}
		count, ok := toUint16(raw)
		if !ok || count == 0 {
			s.skipped(user, property, "card has an invalid count", "card_id", id)
			continue
		}
		cards = append(cards, model.Card{ID: uint16(id), Count: count})
	}
	return cards
}

func (s *Schema) malformed(user string, property int, field string) error {
	s.logger.Warn("Schema: malformed account item",
		"user", user,
		"property", property,
		"field", field)
	return fmt.Errorf("%w: user %q property %d field %s", ErrMalformedItem, user, property, field)
}

func (s *Schema) skipped(user string, property int, reason string, args ...any) {
	s.logger.Warn("Schema: skipped account entry",
		append([]any{"user", user, "property", property, "reason", reason}, args...)...)
}
