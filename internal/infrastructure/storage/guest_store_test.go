package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lexiscan.ai/cli/internal/core/chat"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/core/offer"
	"lexiscan.ai/cli/internal/infrastructure/logging"
)

func newGuestStore(t *testing.T) *GuestStore {
	t.Helper()
	kv, err := NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return NewGuestStore(kv, logging.NewConsoleLogger())
}

func TestGuestStore_Usage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newGuestStore(t)

	_, ok, err := s.LoadUsage(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should have no usage")

	require.NoError(t, s.SaveUsage(ctx, entitlement.DefaultFreeLimits()))

	usage, ok, err := s.LoadUsage(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	remaining, limited := usage.Remaining(entitlement.FeatureScanDocument)
	assert.True(t, limited)
	assert.Equal(t, 3, remaining)

	_, limited = usage.Remaining("unknown_feature")
	assert.False(t, limited, "unknown features read as unlimited")
}

func TestGuestStore_OfferState_KeyedByOfferID(t *testing.T) {
	ctx := context.Background()
	s := newGuestStore(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	state := offer.NewState("guest", offer.Offer{ID: "spring", Mode: offer.ModePerUser, Duration: time.Hour, Enabled: true}, now)
	require.NoError(t, s.SaveOfferState(ctx, state))

	got, err := s.OfferState(ctx, "spring")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, state.ID, got.ID)
	assert.True(t, state.StartedAt.Equal(got.StartedAt))

	missing, err := s.OfferState(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Re-saving replaces, never duplicates.
	require.NoError(t, s.SaveOfferState(ctx, state))
	states, err := s.OfferStates(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 1)
}

func TestGuestStore_Chats_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newGuestStore(t)
	now := time.Now().UTC()

	doc, err := s.LoadChats(ctx)
	require.NoError(t, err)
	c := doc.CreateChat("lease review", nil, now)
	_, err = doc.AppendMessage(c.ID, chat.RoleUser, "hello", nil, now)
	require.NoError(t, err)
	require.NoError(t, s.SaveChats(ctx, doc))

	loaded, err := s.LoadChats(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Chats, 1)
	assert.Equal(t, "lease review", loaded.Chats[0].Title)
	require.Len(t, loaded.MessagesFor(c.ID), 1)
}

func TestGuestStore_GuestMode_DefaultsToFalse(t *testing.T) {
	ctx := context.Background()
	s := newGuestStore(t)

	mode, err := s.GuestMode(ctx)
	require.NoError(t, err)
	assert.False(t, mode)

	require.NoError(t, s.SetGuestMode(ctx, true))
	mode, err = s.GuestMode(ctx)
	require.NoError(t, err)
	assert.True(t, mode)
}

func TestGuestStore_CorruptRecord_ReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "guest.feature_usage", []byte("{broken")))
	s := NewGuestStore(kv, logging.NewConsoleLogger())

	_, ok, err := s.LoadUsage(ctx)
	require.NoError(t, err, "corruption degrades to a miss, never an error")
	assert.False(t, ok)
}

func TestGuestStore_LogoutSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newGuestStore(t)

	missing, err := s.LoadLogoutSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, missing)

	two := 2
	snap := LogoutSnapshot{
		AccountID: "u1",
		Usage:     entitlement.FeatureUsage{entitlement.FeatureDocumentCheck: &two},
		State:     entitlement.SubscriptionState{Tier: entitlement.TierPro, Status: entitlement.StatusActive},
		SavedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.SaveLogoutSnapshot(ctx, snap))

	got, err := s.LoadLogoutSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.AccountID)
	remaining, _ := got.Usage.Remaining(entitlement.FeatureDocumentCheck)
	assert.Equal(t, 2, remaining)
}
