package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/core/identity"
	"lexiscan.ai/cli/internal/core/offer"
	"lexiscan.ai/cli/internal/infrastructure/storage"
)

// OfferService resolves the active promotion and manages per-identity offer
// state: read-or-create, dismissal, and redemption. Guest state lives in the
// device store; account state lives behind the gateway. Countdown math is
// pure and works offline.
type OfferService struct {
	gateway ports.CatalogGateway
	store   *storage.GuestStore
	logger  ports.LoggingGateway
	now     func() time.Time

	mu    sync.RWMutex
	id    identity.Identity
	known map[string]offer.Offer
}

// NewOfferService creates an offer manager bound to the guest identity.
func NewOfferService(gateway ports.CatalogGateway, store *storage.GuestStore, logger ports.LoggingGateway) *OfferService {
	return &OfferService{
		gateway: gateway,
		store:   store,
		logger:  logger,
		now:     time.Now,
		known:   make(map[string]offer.Offer),
	}
}

// SetIdentity switches the identity whose offer state is managed.
func (s *OfferService) SetIdentity(id identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// ActiveOffer returns the promotion to present right now: the
// soonest-expiring enabled offer. When the catalog is unreachable the last
// cached selection is reused as long as it is still running; a missing
// banner is never an error.
func (s *OfferService) ActiveOffer(ctx context.Context) *offer.Offer {
	now := s.now()
	offers, err := s.gateway.GetActiveOffers(ctx)
	if err != nil {
		s.logger.Log(ports.LogLevelWarn, "Offer fetch failed; falling back to cached offer", map[string]interface{}{
			"error": err.Error(),
		})
		cached, loadErr := s.store.LoadLastOffer(ctx)
		if loadErr != nil || cached == nil || !cached.ActiveAt(now) {
			return nil
		}
		return cached
	}

	s.mu.Lock()
	for _, o := range offers {
		s.known[o.ID] = o
	}
	s.mu.Unlock()

	selected := offer.SelectActive(offers, now)
	if selected != nil {
		if err := s.store.SaveLastOffer(ctx, *selected); err != nil {
			s.logger.Log(ports.LogLevelWarn, "Failed to cache active offer", map[string]interface{}{
				"offer": selected.ID,
				"error": err.Error(),
			})
		}
	}
	return selected
}

// EnsureOfferState reads or creates the identity's state for an offer.
// Calling it again returns the same record: the countdown never restarts and
// a dismissed offer stays dismissed.
func (s *OfferService) EnsureOfferState(ctx context.Context, offerID string) (*offer.State, error) {
	s.mu.RLock()
	id := s.id
	s.mu.RUnlock()

	if !id.IsGuest() {
		return s.gateway.EnsureUserOfferState(ctx, id.AccountID(), offerID)
	}

	existing, err := s.store.OfferState(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	o, err := s.offerByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	state := offer.NewState(id.Ref(), *o, s.now())
	if err := s.store.SaveOfferState(ctx, state); err != nil {
		return nil, err
	}
	return &state, nil
}

// DismissOffer records that the user closed the promo without purchasing.
// Terminal for display purposes; the record is kept so the offer is simply
// not re-shown. Dismissing twice keeps the original timestamp.
func (s *OfferService) DismissOffer(ctx context.Context, offerID string) error {
	s.mu.RLock()
	id := s.id
	s.mu.RUnlock()

	if !id.IsGuest() {
		return s.gateway.DismissUserOffer(ctx, id.AccountID(), offerID)
	}

	state, err := s.EnsureOfferState(ctx, offerID)
	if err != nil {
		return err
	}
	if state.DismissedAt != nil {
		return nil
	}
	dismissed := s.now()
	state.DismissedAt = &dismissed
	return s.store.SaveOfferState(ctx, *state)
}

// MarkRedeemed records that a purchase completed using this offer's
// discounted product.
func (s *OfferService) MarkRedeemed(ctx context.Context, offerID string) error {
	s.mu.RLock()
	id := s.id
	s.mu.RUnlock()

	state, err := s.EnsureOfferState(ctx, offerID)
	if err != nil {
		return err
	}
	if state.RedeemedAt != nil {
		return nil
	}
	redeemed := s.now()
	state.RedeemedAt = &redeemed

	if id.IsGuest() {
		return s.store.SaveOfferState(ctx, *state)
	}
	return s.gateway.UpsertUserOfferState(ctx, id.AccountID(), *state)
}

// CountdownFor computes the display countdown for an offer state.
func (s *OfferService) CountdownFor(state offer.State) offer.Countdown {
	return state.CountdownAt(s.now())
}

func (s *OfferService) offerByID(ctx context.Context, offerID string) (*offer.Offer, error) {
	s.mu.RLock()
	o, ok := s.known[offerID]
	s.mu.RUnlock()
	if ok {
		return &o, nil
	}

	offers, err := s.gateway.GetActiveOffers(ctx)
	if err == nil {
		s.mu.Lock()
		for _, fetched := range offers {
			s.known[fetched.ID] = fetched
		}
		o, ok = s.known[offerID]
		s.mu.Unlock()
		if ok {
			return &o, nil
		}
		return nil, fmt.Errorf("offer %s not found", offerID)
	}

	cached, loadErr := s.store.LoadLastOffer(ctx)
	if loadErr == nil && cached != nil && cached.ID == offerID {
		return cached, nil
	}
	return nil, fmt.Errorf("offer %s unavailable: %w", offerID, err)
}
