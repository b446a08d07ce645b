package services

import (
	"context"
	"sync"
	"time"

	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/core/identity"
	"lexiscan.ai/cli/internal/infrastructure/storage"
)

const remoteWriteTimeout = 10 * time.Second

// UsageService tracks remaining feature uses for the active identity and
// applies decrements. Guest counters live in the device store; account
// counters live remotely with a local mirror that is written first, the
// remote write following as a detached task. Entitlement gating happens in
// EntitlementService, which composes this tracker.
type UsageService struct {
	gateway ports.CatalogGateway
	store   *storage.GuestStore
	logger  ports.LoggingGateway

	mu    sync.RWMutex
	id    identity.Identity
	usage entitlement.FeatureUsage
}

// NewUsageService creates an inactive tracker; call Activate to bind it to
// an identity.
func NewUsageService(gateway ports.CatalogGateway, store *storage.GuestStore, logger ports.LoggingGateway) *UsageService {
	return &UsageService{
		gateway: gateway,
		store:   store,
		logger:  logger,
		usage:   entitlement.DefaultFreeLimits(),
	}
}

// Activate loads the usage state for an identity. Guests resume their
// persisted counters; a brand-new guest is seeded from the server limits
// when reachable and from the hardcoded defaults otherwise. Accounts load
// the remote counters, degrading to the last local state on failure.
func (s *UsageService) Activate(ctx context.Context, id identity.Identity) error {
	usage, err := s.loadFor(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.id = id
	s.usage = usage
	s.mu.Unlock()
	return nil
}

func (s *UsageService) loadFor(ctx context.Context, id identity.Identity) (entitlement.FeatureUsage, error) {
	if id.IsGuest() {
		persisted, ok, err := s.store.LoadUsage(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			// A returning guest is never silently reset.
			return persisted, nil
		}
		seeded := s.fetchFreeLimits(ctx)
		if err := s.store.SaveUsage(ctx, seeded); err != nil {
			return nil, err
		}
		return seeded, nil
	}

	remote, err := s.gateway.GetFeatureUsage(ctx, id.AccountID())
	if err == nil {
		return remote, nil
	}
	s.logger.Log(ports.LogLevelWarn, "Remote usage fetch failed; using last known state", map[string]interface{}{
		"account": id.AccountID(),
		"error":   err.Error(),
	})
	if snap, snapErr := s.store.LoadLogoutSnapshot(ctx); snapErr == nil && snap != nil && snap.AccountID == id.AccountID() {
		return snap.Usage.Clone(), nil
	}
	return entitlement.DefaultFreeLimits(), nil
}

func (s *UsageService) fetchFreeLimits(ctx context.Context) entitlement.FeatureUsage {
	limits, err := s.gateway.GetPlanFeatureLimits(ctx)
	if err != nil {
		s.logger.Log(ports.LogLevelWarn, "Plan limits fetch failed; seeding hardcoded defaults", map[string]interface{}{
			"error": err.Error(),
		})
		return entitlement.DefaultFreeLimits()
	}
	seeded := entitlement.LimitsForTier(limits, entitlement.TierFree)
	if len(seeded) == 0 {
		return entitlement.DefaultFreeLimits()
	}
	return seeded
}

// Usage returns a copy of the current counters.
func (s *UsageService) Usage() entitlement.FeatureUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage.Clone()
}

// CanUse reports whether the feature has uses left for the active identity.
func (s *UsageService) CanUse(f entitlement.Feature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage.CanUse(f)
}

// Decrement consumes one use of a feature. The local state is written first;
// for accounts the remote write is detached and its failure only logged,
// reconciled by the next Reload. Exhausted and unlimited features are
// untouched.
func (s *UsageService) Decrement(ctx context.Context, f entitlement.Feature) error {
	s.mu.Lock()
	if !s.usage.Decrement(f) {
		s.mu.Unlock()
		return nil
	}
	id := s.id
	remaining, _ := s.usage.Remaining(f)
	snapshot := s.usage.Clone()
	s.mu.Unlock()

	if id.IsGuest() {
		return s.store.SaveUsage(ctx, snapshot)
	}

	// Detached task: failure is intentionally swallowed after logging, the
	// absolute value makes delayed or reordered delivery harmless.
	go func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), remoteWriteTimeout)
		defer cancel()
		if err := s.gateway.DecrementFeatureUsage(dctx, id.AccountID(), f, remaining); err != nil {
			s.logger.Log(ports.LogLevelWarn, "Detached usage write failed; reconciling on next reload", map[string]interface{}{
				"account": id.AccountID(),
				"feature": string(f),
				"error":   err.Error(),
			})
		}
	}()
	return nil
}

// Reload reconciles the mirror with its backing store. For accounts the
// remote counters are re-read and floored against local consumption, so a
// lost detached write can only ever under-count locally, never restore
// quota. Guests re-read the device store.
func (s *UsageService) Reload(ctx context.Context) error {
	s.mu.RLock()
	id := s.id
	local := s.usage.Clone()
	s.mu.RUnlock()

	if id.IsGuest() {
		persisted, ok, err := s.store.LoadUsage(ctx)
		if err != nil || !ok {
			return err
		}
		s.mu.Lock()
		s.usage = persisted
		s.mu.Unlock()
		return nil
	}

	remote, err := s.gateway.GetFeatureUsage(ctx, id.AccountID())
	if err != nil {
		s.logger.Log(ports.LogLevelWarn, "Usage reconciliation skipped", map[string]interface{}{
			"account": id.AccountID(),
			"error":   err.Error(),
		})
		return nil
	}
	merged := entitlement.FloorMerge(remote, local)
	s.mu.Lock()
	s.usage = merged
	s.mu.Unlock()
	return nil
}
