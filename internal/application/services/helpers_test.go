package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/infrastructure/logging"
	"lexiscan.ai/cli/internal/infrastructure/storage"
)

func newTestGuestStore(t *testing.T) *storage.GuestStore {
	t.Helper()
	kv, err := storage.NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return storage.NewGuestStore(kv, logging.NewConsoleLogger())
}

func snapshotFor(accountID string, docCheckRemaining int) storage.LogoutSnapshot {
	v := docCheckRemaining
	return storage.LogoutSnapshot{
		AccountID: accountID,
		Usage:     entitlement.FeatureUsage{entitlement.FeatureDocumentCheck: &v},
		State:     entitlement.FreeSubscription(),
		SavedAt:   time.Now().UTC(),
	}
}
