package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return s
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "guest.feature_usage", []byte(`{"scan_document":3}`)))

	raw, ok, err := s.Get(ctx, "guest.feature_usage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"scan_document":3}`, string(raw))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "guest.mode", []byte(`true`)))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	raw, ok, err := reopened.Get(ctx, "guest.mode")
	require.NoError(t, err)
	require.True(t, ok, "values should survive a restart")
	assert.Equal(t, "true", string(raw))
}

func TestFileStore_CorruptFile_DegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s, err := NewFileStore(path)
	require.NoError(t, err, "corruption must not be fatal")

	_, ok, err := s.Get(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, ok, "corrupt store reads as empty")
}

func TestFileStore_NonJSONValue_DoesNotPoisonTheStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "guest.feature_usage", []byte("{broken")))

	raw, ok, err := s.Get(ctx, "guest.feature_usage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "{broken", string(raw))

	// The store keeps flushing: other keys still write and read.
	require.NoError(t, s.Set(ctx, "guest.mode", []byte(`true`)))
	raw, ok, err = s.Get(ctx, "guest.mode")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", string(raw))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	raw, ok, err = reopened.Get(ctx, "guest.feature_usage")
	require.NoError(t, err)
	require.True(t, ok, "wrapped value survives a restart")
	assert.Equal(t, "{broken", string(raw))
}

func TestFileStore_MissingKey_IsAMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Delete(ctx, "missing"), "deleting a missing key is fine")
}

func TestFileStore_Keys_FiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "guest.offer_state.spring", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, "guest.offer_state.launch", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, "cache.analysis_index", []byte(`[]`)))

	keys, err := s.Keys(ctx, "guest.offer_state.")
	require.NoError(t, err)
	assert.Equal(t, []string{"guest.offer_state.launch", "guest.offer_state.spring"}, keys)
}

func TestFileStore_CanceledContext_ReturnsError(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, s.Set(ctx, "k", []byte(`1`)))
}
