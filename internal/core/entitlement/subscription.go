package entitlement

// Tier represents user subscription levels.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Status is the billing status attached to a subscription record.
type Status string

const (
	StatusActive      Status = "active"
	StatusTrialing    Status = "trialing"
	StatusGracePeriod Status = "grace_period"
	StatusPastDue     Status = "past_due"
	StatusCanceled    Status = "canceled"
	StatusInactive    Status = "inactive"
)

// SubscriptionState is a user's current subscription record, local or remote.
type SubscriptionState struct {
	Tier      Tier    `json:"tier"`
	Status    Status  `json:"status"`
	ProductID *string `json:"product_id"`
	OfferID   *string `json:"offer_id"`
}

// FreeSubscription is the default state for identities with no record.
func FreeSubscription() SubscriptionState {
	return SubscriptionState{Tier: TierFree, Status: StatusInactive}
}

// IsEntitled is the single authorization gate consulted before any quota
// check. Entitled identities bypass metering entirely.
func (s SubscriptionState) IsEntitled() bool {
	if s.Tier != TierPro {
		return false
	}
	switch s.Status {
	case StatusActive, StatusTrialing, StatusGracePeriod:
		return true
	}
	return false
}

// Product is a purchasable subscription product from the remote catalog.
type Product struct {
	ProductID  string `json:"product_id"`
	Interval   string `json:"interval"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
	TrialDays  int    `json:"trial_days"`
}
