package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/core/chat"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/core/offer"
)

// fakeGateway is an in-memory CatalogGateway for service tests.
type fakeGateway struct {
	mu sync.Mutex

	products []entitlement.Product
	catalog  []entitlement.CatalogEntry
	limits   []entitlement.PlanFeatureLimit
	offers   []offer.Offer

	subs        map[string]*entitlement.SubscriptionState
	usage       map[string]entitlement.FeatureUsage
	offerStates map[string]map[string]offer.State
	chats       map[string][]remoteChat
	analyses    map[string][]ports.AnalysisSummary
	grants      []grantCall

	createChatCalls int
	failing         map[string]error
}

type remoteChat struct {
	id       string
	chat     chat.Chat
	messages []chat.Message
}

type grantCall struct {
	accountID string
	productID string
	offerID   *string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		subs:        make(map[string]*entitlement.SubscriptionState),
		usage:       make(map[string]entitlement.FeatureUsage),
		offerStates: make(map[string]map[string]offer.State),
		chats:       make(map[string][]remoteChat),
		analyses:    make(map[string][]ports.AnalysisSummary),
		failing:     make(map[string]error),
	}
}

func (g *fakeGateway) fail(method string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing[method] = fmt.Errorf("%s: connection refused", method)
}

func (g *fakeGateway) failure(method string) error {
	return g.failing[method]
}

func (g *fakeGateway) GetSubscriptionProducts(ctx context.Context) ([]entitlement.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("GetSubscriptionProducts"); err != nil {
		return nil, err
	}
	return g.products, nil
}

func (g *fakeGateway) GetFeatureCatalog(ctx context.Context) ([]entitlement.CatalogEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("GetFeatureCatalog"); err != nil {
		return nil, err
	}
	return g.catalog, nil
}

func (g *fakeGateway) GetPlanFeatureLimits(ctx context.Context) ([]entitlement.PlanFeatureLimit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("GetPlanFeatureLimits"); err != nil {
		return nil, err
	}
	return g.limits, nil
}

func (g *fakeGateway) GetActiveOffers(ctx context.Context) ([]offer.Offer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("GetActiveOffers"); err != nil {
		return nil, err
	}
	return g.offers, nil
}

func (g *fakeGateway) GetUserSubscription(ctx context.Context, accountID string) (*entitlement.SubscriptionState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("GetUserSubscription"); err != nil {
		return nil, err
	}
	return g.subs[accountID], nil
}

func (g *fakeGateway) GetFeatureUsage(ctx context.Context, accountID string) (entitlement.FeatureUsage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("GetFeatureUsage"); err != nil {
		return nil, err
	}
	if u, ok := g.usage[accountID]; ok {
		return u.Clone(), nil
	}
	return make(entitlement.FeatureUsage), nil
}

func (g *fakeGateway) EnsureUserOfferState(ctx context.Context, accountID, offerID string) (*offer.State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("EnsureUserOfferState"); err != nil {
		return nil, err
	}
	states, ok := g.offerStates[accountID]
	if !ok {
		states = make(map[string]offer.State)
		g.offerStates[accountID] = states
	}
	if existing, ok := states[offerID]; ok {
		return &existing, nil
	}
	now := time.Now().UTC()
	state := offer.State{
		ID:          uuid.NewString(),
		IdentityRef: "account:" + accountID,
		OfferID:     offerID,
		StartedAt:   now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}
	states[offerID] = state
	return &state, nil
}

func (g *fakeGateway) UpsertUserOfferState(ctx context.Context, accountID string, state offer.State) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("UpsertUserOfferState"); err != nil {
		return err
	}
	states, ok := g.offerStates[accountID]
	if !ok {
		states = make(map[string]offer.State)
		g.offerStates[accountID] = states
	}
	states[state.OfferID] = state
	return nil
}

func (g *fakeGateway) DismissUserOffer(ctx context.Context, accountID, offerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("DismissUserOffer"); err != nil {
		return err
	}
	states := g.offerStates[accountID]
	if state, ok := states[offerID]; ok && state.DismissedAt == nil {
		now := time.Now().UTC()
		state.DismissedAt = &now
		states[offerID] = state
	}
	return nil
}

func (g *fakeGateway) DecrementFeatureUsage(ctx context.Context, accountID string, feature entitlement.Feature, remaining int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("DecrementFeatureUsage"); err != nil {
		return err
	}
	u, ok := g.usage[accountID]
	if !ok {
		u = make(entitlement.FeatureUsage)
		g.usage[accountID] = u
	}
	v := remaining
	u[feature] = &v
	return nil
}

func (g *fakeGateway) GrantManualSubscription(ctx context.Context, accountID, productID string, offerID *string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("GrantManualSubscription"); err != nil {
		return err
	}
	g.grants = append(g.grants, grantCall{accountID: accountID, productID: productID, offerID: offerID})
	g.subs[accountID] = &entitlement.SubscriptionState{
		Tier:      entitlement.TierPro,
		Status:    entitlement.StatusActive,
		ProductID: &productID,
		OfferID:   offerID,
	}
	return nil
}

func (g *fakeGateway) CreateChat(ctx context.Context, accountID string, c chat.Chat) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("CreateChat"); err != nil {
		return "", err
	}
	g.createChatCalls++
	id := uuid.NewString()
	g.chats[accountID] = append(g.chats[accountID], remoteChat{id: id, chat: c})
	return id, nil
}

func (g *fakeGateway) AppendChatMessage(ctx context.Context, accountID, chatID string, m chat.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("AppendChatMessage"); err != nil {
		return err
	}
	for i := range g.chats[accountID] {
		if g.chats[accountID][i].id == chatID {
			g.chats[accountID][i].messages = append(g.chats[accountID][i].messages, m)
			return nil
		}
	}
	return fmt.Errorf("chat %s not found", chatID)
}

func (g *fakeGateway) ListChats(ctx context.Context, accountID string) ([]chat.Chat, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("ListChats"); err != nil {
		return nil, err
	}
	var chats []chat.Chat
	for _, rc := range g.chats[accountID] {
		c := rc.chat
		c.ID = rc.id
		chats = append(chats, c)
	}
	return chats, nil
}

func (g *fakeGateway) ListAnalyses(ctx context.Context, accountID string) ([]ports.AnalysisSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("ListAnalyses"); err != nil {
		return nil, err
	}
	return g.analyses[accountID], nil
}

func (g *fakeGateway) remoteUsage(accountID string, feature entitlement.Feature) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.usage[accountID]
	if !ok {
		return 0, false
	}
	return u.Remaining(feature)
}

func (g *fakeGateway) remoteChats(accountID string) []remoteChat {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]remoteChat, len(g.chats[accountID]))
	copy(out, g.chats[accountID])
	return out
}

func (g *fakeGateway) remoteOfferState(accountID, offerID string) (offer.State, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.offerStates[accountID][offerID]
	return state, ok
}
