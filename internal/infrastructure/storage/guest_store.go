package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/core/chat"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/core/offer"
)

// Key layout for the shared store. Each component owns one prefix.
const (
	keyGuestUsage        = "guest.feature_usage"
	keyGuestSubscription = "guest.subscription"
	keyGuestMode         = "guest.mode"
	keyGuestChats        = "guest.chats"
	prefixGuestOffer     = "guest.offer_state."
	keyLogoutSnapshot    = "snapshot.post_logout_usage"
	keyChatMigrationMap  = "migration.chat_map"
	keyLastOffer         = "offer.last_active"
)

// GuestStore wraps the key-value store with typed accessors for everything
// the guest identity persists. Malformed records degrade to "absent" with a
// warning, never to an error the caller has to handle.
type GuestStore struct {
	kv     ports.KeyValueStore
	logger ports.LoggingGateway
}

// NewGuestStore creates a guest store over the shared key-value store.
func NewGuestStore(kv ports.KeyValueStore, logger ports.LoggingGateway) *GuestStore {
	return &GuestStore{kv: kv, logger: logger}
}

// LogoutSnapshot preserves an account's state at sign-out so a following
// guest session is not a free reset.
type LogoutSnapshot struct {
	AccountID string                        `json:"account_id"`
	Usage     entitlement.FeatureUsage      `json:"usage"`
	State     entitlement.SubscriptionState `json:"subscription"`
	SavedAt   time.Time                     `json:"saved_at"`
}

// LoadUsage returns the persisted guest usage. The bool reports presence.
func (s *GuestStore) LoadUsage(ctx context.Context) (entitlement.FeatureUsage, bool, error) {
	var usage entitlement.FeatureUsage
	ok, err := s.load(ctx, keyGuestUsage, &usage)
	return usage, ok, err
}

// SaveUsage persists the guest usage counters.
func (s *GuestStore) SaveUsage(ctx context.Context, usage entitlement.FeatureUsage) error {
	return s.save(ctx, keyGuestUsage, usage)
}

// LoadSubscription returns the guest subscription snapshot.
func (s *GuestStore) LoadSubscription(ctx context.Context) (entitlement.SubscriptionState, bool, error) {
	var state entitlement.SubscriptionState
	ok, err := s.load(ctx, keyGuestSubscription, &state)
	if !ok {
		return entitlement.FreeSubscription(), false, err
	}
	return state, true, err
}

// SaveSubscription persists the guest subscription snapshot.
func (s *GuestStore) SaveSubscription(ctx context.Context, state entitlement.SubscriptionState) error {
	return s.save(ctx, keyGuestSubscription, state)
}

// OfferState returns the guest's state for one offer, nil when absent.
func (s *GuestStore) OfferState(ctx context.Context, offerID string) (*offer.State, error) {
	var state offer.State
	ok, err := s.load(ctx, prefixGuestOffer+offerID, &state)
	if err != nil || !ok {
		return nil, err
	}
	return &state, nil
}

// SaveOfferState persists one guest offer state, keyed by offer id so a
// second save for the same offer replaces rather than duplicates.
func (s *GuestStore) SaveOfferState(ctx context.Context, state offer.State) error {
	return s.save(ctx, prefixGuestOffer+state.OfferID, state)
}

// OfferStates lists every persisted guest offer state.
func (s *GuestStore) OfferStates(ctx context.Context) ([]offer.State, error) {
	keys, err := s.kv.Keys(ctx, prefixGuestOffer)
	if err != nil {
		return nil, err
	}
	var states []offer.State
	for _, k := range keys {
		var state offer.State
		ok, err := s.load(ctx, k, &state)
		if err != nil {
			return nil, err
		}
		if ok {
			states = append(states, state)
		}
	}
	return states, nil
}

// LoadChats returns the guest chat document, empty when absent.
func (s *GuestStore) LoadChats(ctx context.Context) (*chat.Document, error) {
	doc := chat.NewDocument()
	if _, err := s.load(ctx, keyGuestChats, doc); err != nil {
		return nil, err
	}
	if doc.Messages == nil {
		doc.Messages = make(map[string][]chat.Message)
	}
	return doc, nil
}

// SaveChats persists the guest chat document.
func (s *GuestStore) SaveChats(ctx context.Context, doc *chat.Document) error {
	return s.save(ctx, keyGuestChats, doc)
}

// GuestMode reports whether the guest-mode flag is set. The flag marks
// pending migration work: it is set on sign-out and cleared only after a
// migration run has attempted all its steps.
func (s *GuestStore) GuestMode(ctx context.Context) (bool, error) {
	var mode bool
	ok, err := s.load(ctx, keyGuestMode, &mode)
	if !ok {
		return false, err
	}
	return mode, err
}

// SetGuestMode sets or clears the guest-mode flag.
func (s *GuestStore) SetGuestMode(ctx context.Context, mode bool) error {
	return s.save(ctx, keyGuestMode, mode)
}

// ChatMigrationMap returns the local-chat-id to remote-chat-id mapping that
// keeps chat migration idempotent across relaunches.
func (s *GuestStore) ChatMigrationMap(ctx context.Context) (map[string]string, error) {
	m := make(map[string]string)
	if _, err := s.load(ctx, keyChatMigrationMap, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveChatMigrationMap persists the migration id mapping.
func (s *GuestStore) SaveChatMigrationMap(ctx context.Context, m map[string]string) error {
	return s.save(ctx, keyChatMigrationMap, m)
}

// SaveLogoutSnapshot records the account state captured at sign-out.
func (s *GuestStore) SaveLogoutSnapshot(ctx context.Context, snap LogoutSnapshot) error {
	return s.save(ctx, keyLogoutSnapshot, snap)
}

// LoadLogoutSnapshot returns the last sign-out snapshot, nil when absent.
func (s *GuestStore) LoadLogoutSnapshot(ctx context.Context) (*LogoutSnapshot, error) {
	var snap LogoutSnapshot
	ok, err := s.load(ctx, keyLogoutSnapshot, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// SaveLastOffer caches the most recently selected active offer for offline
// display.
func (s *GuestStore) SaveLastOffer(ctx context.Context, o offer.Offer) error {
	return s.save(ctx, keyLastOffer, o)
}

// LoadLastOffer returns the cached active offer, nil when absent.
func (s *GuestStore) LoadLastOffer(ctx context.Context) (*offer.Offer, error) {
	var o offer.Offer
	ok, err := s.load(ctx, keyLastOffer, &o)
	if err != nil || !ok {
		return nil, err
	}
	return &o, nil
}

func (s *GuestStore) load(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Log(ports.LogLevelWarn, "Discarding malformed record", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false, nil
	}
	return true, nil
}

func (s *GuestStore) save(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, raw)
}
