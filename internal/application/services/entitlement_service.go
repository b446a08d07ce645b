package services

import (
	"context"
	"sync"
	"time"

	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/core/identity"
	"lexiscan.ai/cli/internal/core/offer"
	"lexiscan.ai/cli/internal/infrastructure/cache"
	"lexiscan.ai/cli/internal/infrastructure/storage"
)

// PaywallFunc is invoked when a metered feature hits its limit and the
// subscription screen should open. Supplied by the UI layer.
type PaywallFunc func(feature entitlement.Feature)

// EntitlementService is the single merged view the UI reads: effective
// usage, effective subscription, and offer state for whichever identity is
// active. It composes the quota tracker, offer manager, migration engine,
// and analysis cache, and owns the guest/account switch.
type EntitlementService struct {
	usage     *UsageService
	offers    *OfferService
	migration *MigrationService
	analyses  *cache.AnalysisCache
	gateway   ports.CatalogGateway
	store     *storage.GuestStore
	logger    ports.LoggingGateway
	paywall   PaywallFunc

	mu           sync.RWMutex
	id           identity.Identity
	subscription entitlement.SubscriptionState
	ensured      map[string]offer.State
}

// NewEntitlementService wires the composed services. paywall may be nil.
func NewEntitlementService(
	usage *UsageService,
	offers *OfferService,
	migration *MigrationService,
	analyses *cache.AnalysisCache,
	gateway ports.CatalogGateway,
	store *storage.GuestStore,
	logger ports.LoggingGateway,
	paywall PaywallFunc,
) *EntitlementService {
	return &EntitlementService{
		usage:        usage,
		offers:       offers,
		migration:    migration,
		analyses:     analyses,
		gateway:      gateway,
		store:        store,
		logger:       logger,
		paywall:      paywall,
		subscription: entitlement.FreeSubscription(),
		ensured:      make(map[string]offer.State),
	}
}

// Start binds the service to an identity and loads its state. For an
// account observed while the guest-mode flag is set, the one-way guest
// migration runs before usage is reloaded, so the merged counters are
// visible immediately.
func (s *EntitlementService) Start(ctx context.Context, id identity.Identity) error {
	sub := s.loadSubscription(ctx, id)

	s.mu.Lock()
	s.id = id
	s.subscription = sub
	s.ensured = make(map[string]offer.State)
	s.mu.Unlock()

	s.offers.SetIdentity(id)
	if err := s.usage.Activate(ctx, id); err != nil {
		return err
	}

	if !id.IsGuest() {
		pending, err := s.store.GuestMode(ctx)
		if err != nil {
			return err
		}
		if pending {
			if err := s.migration.MigrateGuestToAccount(ctx, id.AccountID()); err != nil {
				s.logger.Log(ports.LogLevelWarn, "Guest migration finished with failures", map[string]interface{}{
					"account": id.AccountID(),
					"error":   err.Error(),
				})
			}
			if err := s.usage.Reload(ctx); err != nil {
				s.logger.Log(ports.LogLevelWarn, "Usage reload after migration failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
	return nil
}

func (s *EntitlementService) loadSubscription(ctx context.Context, id identity.Identity) entitlement.SubscriptionState {
	if id.IsGuest() {
		sub, _, err := s.store.LoadSubscription(ctx)
		if err != nil {
			s.logger.Log(ports.LogLevelWarn, "Guest subscription load failed", map[string]interface{}{
				"error": err.Error(),
			})
			return entitlement.FreeSubscription()
		}
		return sub
	}

	sub, err := s.gateway.GetUserSubscription(ctx, id.AccountID())
	if err != nil {
		s.logger.Log(ports.LogLevelWarn, "Remote subscription fetch failed; degrading", map[string]interface{}{
			"account": id.AccountID(),
			"error":   err.Error(),
		})
		if snap, snapErr := s.store.LoadLogoutSnapshot(ctx); snapErr == nil && snap != nil && snap.AccountID == id.AccountID() {
			return snap.State
		}
		return entitlement.FreeSubscription()
	}
	if sub == nil {
		return entitlement.FreeSubscription()
	}
	return *sub
}

// SignIn switches to an authenticated identity, migrating pending guest
// state.
func (s *EntitlementService) SignIn(ctx context.Context, accountID string) error {
	return s.Start(ctx, identity.Account(accountID))
}

// SignOut snapshots the account state into the guest store and switches
// back to the guest identity. The snapshot, not the default free limits, is
// what the following guest session sees.
func (s *EntitlementService) SignOut(ctx context.Context) error {
	s.mu.RLock()
	id := s.id
	sub := s.subscription
	states := make([]offer.State, 0, len(s.ensured))
	for _, state := range s.ensured {
		states = append(states, state)
	}
	s.mu.RUnlock()

	if !id.IsGuest() {
		if err := s.migration.SnapshotOnSignOut(ctx, id.AccountID(), s.usage.Usage(), sub, states); err != nil {
			return err
		}
	}
	return s.Start(ctx, identity.Guest())
}

// Identity returns the active identity.
func (s *EntitlementService) Identity() identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// EffectiveUsage is the merged per-feature remaining-use view.
func (s *EntitlementService) EffectiveUsage() entitlement.FeatureUsage {
	return s.usage.Usage()
}

// EffectiveSubscription is the subscription record for the active identity.
func (s *EntitlementService) EffectiveSubscription() entitlement.SubscriptionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscription
}

// IsPro reports whether the active identity is entitled.
func (s *EntitlementService) IsPro() bool {
	return s.EffectiveSubscription().IsEntitled()
}

// CanUseFeature reports whether a feature may be consumed: entitled
// identities always may, otherwise the quota decides.
func (s *EntitlementService) CanUseFeature(f entitlement.Feature) bool {
	return s.IsPro() || s.usage.CanUse(f)
}

// DecrementFeatureUsage consumes one use. Entitled identities bypass
// metering entirely.
func (s *EntitlementService) DecrementFeatureUsage(ctx context.Context, f entitlement.Feature) error {
	if s.IsPro() {
		return nil
	}
	return s.usage.Decrement(ctx, f)
}

// OpenSubscriptionIfLimitReached checks the quota and, when exhausted,
// triggers the paywall. Returns true when the limit was reached.
func (s *EntitlementService) OpenSubscriptionIfLimitReached(f entitlement.Feature) bool {
	if s.CanUseFeature(f) {
		return false
	}
	if s.paywall != nil {
		s.paywall(f)
	}
	return true
}

// ActiveOffer returns the promotion to present, nil when none.
func (s *EntitlementService) ActiveOffer(ctx context.Context) *offer.Offer {
	return s.offers.ActiveOffer(ctx)
}

// EnsureOfferState reads or creates the active identity's offer state.
func (s *EntitlementService) EnsureOfferState(ctx context.Context, offerID string) (*offer.State, error) {
	state, err := s.offers.EnsureOfferState(ctx, offerID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ensured[offerID] = *state
	s.mu.Unlock()
	return state, nil
}

// DismissOffer hides the promo without deleting its record. The dismissed
// record stays in the tracked set so a later sign-out snapshots it and the
// next guest session sees the same terminal state instead of a restarted
// countdown.
func (s *EntitlementService) DismissOffer(ctx context.Context, offerID string) error {
	if err := s.offers.DismissOffer(ctx, offerID); err != nil {
		return err
	}
	state, err := s.offers.EnsureOfferState(ctx, offerID)
	if err != nil {
		s.logger.Log(ports.LogLevelWarn, "Dismissed offer state re-read failed; marking tracked copy", map[string]interface{}{
			"offer": offerID,
			"error": err.Error(),
		})
		s.mu.Lock()
		if prev, ok := s.ensured[offerID]; ok && prev.DismissedAt == nil {
			dismissed := time.Now()
			prev.DismissedAt = &dismissed
			s.ensured[offerID] = prev
		}
		s.mu.Unlock()
		return nil
	}
	s.mu.Lock()
	s.ensured[offerID] = *state
	s.mu.Unlock()
	return nil
}

// GetCachedAnalysis reads a cached analysis. Offline-safe, never errors.
func (s *EntitlementService) GetCachedAnalysis(ctx context.Context, id string) (*cache.Analysis, bool) {
	return s.analyses.Get(ctx, id)
}

// SetCachedAnalysis caches an analysis result, evicting beyond the bound.
func (s *EntitlementService) SetCachedAnalysis(ctx context.Context, a cache.Analysis) error {
	return s.analyses.Put(ctx, a, s.analyses.Index(ctx))
}

// RemoveCachedAnalysis drops one cached analysis.
func (s *EntitlementService) RemoveCachedAnalysis(ctx context.Context, id string) error {
	return s.analyses.Remove(ctx, id)
}

// GetCachedAnalysesList returns the analysis listing: the remote listing
// when reachable (also refreshing the offline index), the cached summaries
// otherwise.
func (s *EntitlementService) GetCachedAnalysesList(ctx context.Context) []ports.AnalysisSummary {
	id := s.Identity()
	if !id.IsGuest() {
		remote, err := s.gateway.ListAnalyses(ctx, id.AccountID())
		if err == nil {
			ids := make([]string, len(remote))
			for i, summary := range remote {
				ids[i] = summary.ID
			}
			if err := s.analyses.UpdateIndexOnly(ctx, ids); err != nil {
				s.logger.Log(ports.LogLevelWarn, "Analysis index refresh failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return remote
		}
		s.logger.Log(ports.LogLevelWarn, "Analysis listing failed; serving cached summaries", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return s.analyses.ListSummaries(ctx)
}
