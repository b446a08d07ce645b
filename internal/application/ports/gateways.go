package ports

import (
	"context"
	"time"

	"lexiscan.ai/cli/internal/core/chat"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/core/offer"
)

// CatalogGateway is the remote catalog and account store. Unauthenticated
// reads (products, features, limits, offers) need no account id; everything
// else operates on one authenticated account. Implementations must be safe
// for concurrent use.
type CatalogGateway interface {
	// GetSubscriptionProducts lists purchasable subscription products.
	GetSubscriptionProducts(ctx context.Context) ([]entitlement.Product, error)

	// GetFeatureCatalog lists the feature definitions for display.
	GetFeatureCatalog(ctx context.Context) ([]entitlement.CatalogEntry, error)

	// GetPlanFeatureLimits lists per-tier monthly limits.
	GetPlanFeatureLimits(ctx context.Context) ([]entitlement.PlanFeatureLimit, error)

	// GetActiveOffers lists administratively enabled promotions.
	GetActiveOffers(ctx context.Context) ([]offer.Offer, error)

	// GetUserSubscription returns the account's subscription record, nil if none.
	GetUserSubscription(ctx context.Context, accountID string) (*entitlement.SubscriptionState, error)

	// GetFeatureUsage returns the account's remaining-use counters.
	GetFeatureUsage(ctx context.Context, accountID string) (entitlement.FeatureUsage, error)

	// EnsureUserOfferState reads or creates the account's state for an offer.
	EnsureUserOfferState(ctx context.Context, accountID, offerID string) (*offer.State, error)

	// UpsertUserOfferState replaces the account's state for an offer,
	// preserving the provided timestamps. Keyed by (account, offer), so
	// replays are idempotent.
	UpsertUserOfferState(ctx context.Context, accountID string, state offer.State) error

	// DismissUserOffer records a dismissal for the account.
	DismissUserOffer(ctx context.Context, accountID, offerID string) error

	// DecrementFeatureUsage writes the new remaining count for one feature.
	// The value is absolute, derived from the latest local read, so
	// out-of-order delivery cannot compound drift.
	DecrementFeatureUsage(ctx context.Context, accountID string, feature entitlement.Feature, remaining int) error

	// GrantManualSubscription replays an already-granted pro entitlement.
	GrantManualSubscription(ctx context.Context, accountID, productID string, offerID *string) error

	// CreateChat creates a remote chat and returns its remote id.
	CreateChat(ctx context.Context, accountID string, c chat.Chat) (string, error)

	// AppendChatMessage appends one message to a remote chat.
	AppendChatMessage(ctx context.Context, accountID, chatID string, m chat.Message) error

	// ListChats lists the account's remote chats.
	ListChats(ctx context.Context, accountID string) ([]chat.Chat, error)

	// ListAnalyses lists the account's analysis summaries, newest first.
	ListAnalyses(ctx context.Context, accountID string) ([]AnalysisSummary, error)
}

// AnalysisSummary is the lightweight listing row for a stored analysis.
type AnalysisSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// LogLevel defines the logging level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggingGateway defines the interface for logging operations.
type LoggingGateway interface {
	// Log writes a message with structured fields at the given level.
	Log(level LogLevel, message string, fields map[string]interface{})

	// SetLogLevel sets the logging level.
	SetLogLevel(level LogLevel)

	// GetLogLevel returns the current logging level.
	GetLogLevel() LogLevel
}
