package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/core/identity"
	"lexiscan.ai/cli/internal/core/offer"
	"lexiscan.ai/cli/internal/infrastructure/storage"
)

// MigrationService moves guest-local state into an authenticated account on
// sign-in, and snapshots account state back into the guest store on
// sign-out. Migration is strictly one-way: local records are copied, never
// deleted, so the guest store stays usable after a later sign-out.
type MigrationService struct {
	gateway ports.CatalogGateway
	store   *storage.GuestStore
	logger  ports.LoggingGateway
	now     func() time.Time
}

// NewMigrationService creates a migration engine.
func NewMigrationService(gateway ports.CatalogGateway, store *storage.GuestStore, logger ports.LoggingGateway) *MigrationService {
	return &MigrationService{gateway: gateway, store: store, logger: logger, now: time.Now}
}

// MigrateGuestToAccount runs the one-way guest-to-account pipeline. Each
// step is isolated: a failure is logged and the remaining steps still run,
// and the guest-mode flag is cleared once every step has been attempted.
// All steps are upserts keyed by deterministic ids, so a relaunch that
// re-runs the migration cannot duplicate chats or double-spend quota. The
// returned error joins the individual step failures for observability; the
// caller is expected to log and move on.
func (s *MigrationService) MigrateGuestToAccount(ctx context.Context, accountID string) error {
	s.logger.Log(ports.LogLevelInfo, "Starting guest migration", map[string]interface{}{
		"account": accountID,
	})

	var failures []error
	if err := s.migrateOfferStates(ctx, accountID); err != nil {
		failures = append(failures, fmt.Errorf("offer states: %w", err))
	}
	if err := s.migrateUsage(ctx, accountID); err != nil {
		failures = append(failures, fmt.Errorf("usage: %w", err))
	}
	if err := s.migrateSubscription(ctx, accountID); err != nil {
		failures = append(failures, fmt.Errorf("subscription: %w", err))
	}
	if err := s.migrateChats(ctx, accountID); err != nil {
		failures = append(failures, fmt.Errorf("chats: %w", err))
	}

	if err := s.store.SetGuestMode(ctx, false); err != nil {
		failures = append(failures, fmt.Errorf("guest flag: %w", err))
	}

	for _, err := range failures {
		s.logger.Log(ports.LogLevelWarn, "Migration step failed", map[string]interface{}{
			"account": accountID,
			"error":   err.Error(),
		})
	}
	return errors.Join(failures...)
}

// migrateOfferStates upserts every guest offer state under the account,
// preserving StartedAt and DismissedAt so the countdown does not restart and
// a dismissed promo stays dismissed.
func (s *MigrationService) migrateOfferStates(ctx context.Context, accountID string) error {
	states, err := s.store.OfferStates(ctx)
	if err != nil {
		return err
	}
	var failures []error
	for _, state := range states {
		state.IdentityRef = identity.Account(accountID).Ref()
		if err := s.gateway.UpsertUserOfferState(ctx, accountID, state); err != nil {
			failures = append(failures, fmt.Errorf("offer %s: %w", state.OfferID, err))
		}
	}
	return errors.Join(failures...)
}

// migrateUsage copies guest counters to the account as a floor: a remote
// counter is only ever lowered to match local consumption. Replaying a stale
// local snapshot can therefore never restore quota.
func (s *MigrationService) migrateUsage(ctx context.Context, accountID string) error {
	local, ok, err := s.store.LoadUsage(ctx)
	if err != nil || !ok {
		return err
	}
	remote, err := s.gateway.GetFeatureUsage(ctx, accountID)
	if err != nil {
		return err
	}
	var failures []error
	for f, v := range local {
		if v == nil {
			continue
		}
		current, limited := remote.Remaining(f)
		if limited && current <= *v {
			continue
		}
		if err := s.gateway.DecrementFeatureUsage(ctx, accountID, f, *v); err != nil {
			failures = append(failures, fmt.Errorf("feature %s: %w", f, err))
		}
	}
	return errors.Join(failures...)
}

// migrateSubscription replays a manually granted pro entitlement recorded in
// the guest snapshot against the account, reusing the same product and offer
// references.
func (s *MigrationService) migrateSubscription(ctx context.Context, accountID string) error {
	local, ok, err := s.store.LoadSubscription(ctx)
	if err != nil || !ok {
		return err
	}
	if !local.IsEntitled() || local.ProductID == nil {
		return nil
	}
	return s.gateway.GrantManualSubscription(ctx, accountID, *local.ProductID, local.OfferID)
}

// migrateChats copies every guest chat and its messages to the remote store,
// preserving role, content, and timestamp order. Chats already present in
// the persisted local-to-remote id map are skipped, which makes a re-run
// after a mid-migration crash safe. Device-local image data is not
// re-uploaded; those references are dropped.
func (s *MigrationService) migrateChats(ctx context.Context, accountID string) error {
	doc, err := s.store.LoadChats(ctx)
	if err != nil {
		return err
	}
	migrated, err := s.store.ChatMigrationMap(ctx)
	if err != nil {
		return err
	}

	var failures []error
	for _, c := range doc.Chats {
		if _, done := migrated[c.ID]; done {
			continue
		}
		remoteID, err := s.gateway.CreateChat(ctx, accountID, c)
		if err != nil {
			failures = append(failures, fmt.Errorf("chat %s: %w", c.ID, err))
			continue
		}
		migrated[c.ID] = remoteID
		if err := s.store.SaveChatMigrationMap(ctx, migrated); err != nil {
			failures = append(failures, fmt.Errorf("chat map: %w", err))
		}
		for _, m := range doc.MessagesFor(c.ID) {
			m.ImageURL = nil
			if err := s.gateway.AppendChatMessage(ctx, accountID, remoteID, m); err != nil {
				failures = append(failures, fmt.Errorf("chat %s message %s: %w", c.ID, m.ID, err))
			}
		}
	}
	return errors.Join(failures...)
}

// SnapshotOnSignOut preserves the account's state in the guest store before
// the session is cleared, so the next guest session inherits the same
// consumption instead of fresh free limits. Sets the guest-mode flag, which
// arms the next sign-in's migration.
func (s *MigrationService) SnapshotOnSignOut(ctx context.Context, accountID string, usage entitlement.FeatureUsage, sub entitlement.SubscriptionState, states []offer.State) error {
	if err := s.store.SaveUsage(ctx, usage); err != nil {
		return err
	}
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return err
	}
	guestRef := identity.Guest().Ref()
	for _, state := range states {
		state.IdentityRef = guestRef
		if err := s.store.SaveOfferState(ctx, state); err != nil {
			return err
		}
	}
	if err := s.store.SaveLogoutSnapshot(ctx, storage.LogoutSnapshot{
		AccountID: accountID,
		Usage:     usage,
		State:     sub,
		SavedAt:   s.now(),
	}); err != nil {
		return err
	}
	return s.store.SetGuestMode(ctx, true)
}
