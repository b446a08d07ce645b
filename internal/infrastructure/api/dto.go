package api

import (
	"time"

	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/core/chat"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/core/offer"
)

// ProductDto represents a purchasable subscription product as returned by
// the API.
type ProductDto struct {
	ProductID  string `json:"product_id"`
	Interval   string `json:"interval"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
	TrialDays  int    `json:"trial_days"`
}

func (d ProductDto) toDomain() entitlement.Product {
	return entitlement.Product{
		ProductID:  d.ProductID,
		Interval:   d.Interval,
		PriceCents: d.PriceCents,
		Currency:   d.Currency,
		TrialDays:  d.TrialDays,
	}
}

// FeatureDto is one feature catalog row.
type FeatureDto struct {
	Feature   string `json:"feature"`
	SortOrder int    `json:"sort_order"`
	Title     string `json:"title"`
}

func (d FeatureDto) toDomain() entitlement.CatalogEntry {
	return entitlement.CatalogEntry{
		Feature:   entitlement.Feature(d.Feature),
		SortOrder: d.SortOrder,
		Title:     d.Title,
	}
}

// PlanLimitDto is one per-tier feature limit row. A null monthly_limit means
// unlimited.
type PlanLimitDto struct {
	Tier         string `json:"tier"`
	Feature      string `json:"feature"`
	MonthlyLimit *int   `json:"monthly_limit"`
}

func (d PlanLimitDto) toDomain() entitlement.PlanFeatureLimit {
	return entitlement.PlanFeatureLimit{
		Tier:         entitlement.Tier(d.Tier),
		Feature:      entitlement.Feature(d.Feature),
		MonthlyLimit: d.MonthlyLimit,
	}
}

// OfferDto represents a promotional offer definition.
type OfferDto struct {
	ID              string     `json:"id"`
	Mode            string     `json:"mode"`
	DiscountType    string     `json:"discount_type"`
	DiscountValue   int64      `json:"discount_value"`
	StartsAt        *time.Time `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	DurationSeconds int64      `json:"duration_seconds"`
	Enabled         bool       `json:"enabled"`
}

func (d OfferDto) toDomain() offer.Offer {
	return offer.Offer{
		ID:            d.ID,
		Mode:          offer.Mode(d.Mode),
		DiscountType:  offer.DiscountType(d.DiscountType),
		DiscountValue: d.DiscountValue,
		StartsAt:      d.StartsAt,
		EndsAt:        d.EndsAt,
		Duration:      time.Duration(d.DurationSeconds) * time.Second,
		Enabled:       d.Enabled,
	}
}

// OfferStateDto is a user's progress through one offer.
type OfferStateDto struct {
	ID          string     `json:"id"`
	IdentityRef string     `json:"identity_ref"`
	OfferID     string     `json:"offer_id"`
	StartedAt   time.Time  `json:"started_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	DismissedAt *time.Time `json:"dismissed_at"`
	RedeemedAt  *time.Time `json:"redeemed_at"`
}

func (d OfferStateDto) toDomain() offer.State {
	return offer.State{
		ID:          d.ID,
		IdentityRef: d.IdentityRef,
		OfferID:     d.OfferID,
		StartedAt:   d.StartedAt,
		ExpiresAt:   d.ExpiresAt,
		DismissedAt: d.DismissedAt,
		RedeemedAt:  d.RedeemedAt,
	}
}

func offerStateToDTO(s offer.State) OfferStateDto {
	return OfferStateDto{
		ID:          s.ID,
		IdentityRef: s.IdentityRef,
		OfferID:     s.OfferID,
		StartedAt:   s.StartedAt,
		ExpiresAt:   s.ExpiresAt,
		DismissedAt: s.DismissedAt,
		RedeemedAt:  s.RedeemedAt,
	}
}

// SubscriptionDto is a user's subscription record.
type SubscriptionDto struct {
	Tier      string  `json:"tier"`
	Status    string  `json:"status"`
	ProductID *string `json:"product_id"`
	OfferID   *string `json:"offer_id"`
}

func (d SubscriptionDto) toDomain() entitlement.SubscriptionState {
	return entitlement.SubscriptionState{
		Tier:      entitlement.Tier(d.Tier),
		Status:    entitlement.Status(d.Status),
		ProductID: d.ProductID,
		OfferID:   d.OfferID,
	}
}

// UsageDto carries per-feature remaining uses. A null value means unlimited.
type UsageDto struct {
	Remaining map[string]*int `json:"remaining"`
}

func (d UsageDto) toDomain() entitlement.FeatureUsage {
	usage := make(entitlement.FeatureUsage, len(d.Remaining))
	for f, v := range d.Remaining {
		usage[entitlement.Feature(f)] = v
	}
	return usage
}

// UsageWriteDto is the absolute-value usage write. The server stores the
// reported remaining count as-is.
type UsageWriteDto struct {
	Remaining int `json:"remaining"`
}

// GrantDto requests a manual subscription grant.
type GrantDto struct {
	ProductID string  `json:"product_id"`
	OfferID   *string `json:"offer_id"`
}

// ChatDto mirrors a chat header for creation requests.
type ChatDto struct {
	Title     string         `json:"title"`
	Context   map[string]any `json:"context,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func chatToDTO(c chat.Chat) ChatDto {
	return ChatDto{Title: c.Title, Context: c.Context, CreatedAt: c.CreatedAt}
}

// ChatCreatedDto is the server's answer to a chat creation.
type ChatCreatedDto struct {
	ID string `json:"id"`
}

// RemoteChatDto is a chat header as listed by the server.
type RemoteChatDto struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Context   map[string]any `json:"context,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (d RemoteChatDto) toDomain() chat.Chat {
	return chat.Chat{
		ID:        d.ID,
		Title:     d.Title,
		Context:   d.Context,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MessageDto mirrors a chat message for append requests.
type MessageDto struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

func messageToDTO(m chat.Message) MessageDto {
	return MessageDto{
		Role:      string(m.Role),
		Content:   m.Content,
		ImageURL:  m.ImageURL,
		CreatedAt: m.CreatedAt,
	}
}

// AnalysisSummaryDto is one row of the user's analysis history.
type AnalysisSummaryDto struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func (d AnalysisSummaryDto) toDomain() ports.AnalysisSummary {
	return ports.AnalysisSummary{
		ID:        d.ID,
		Title:     d.Title,
		Kind:      d.Kind,
		CreatedAt: d.CreatedAt,
	}
}
