package offer

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the derived lifecycle position of an offer state. Expiry is
// computed from the clock, never stored; dismissal and redemption are stored
// facts.
type Phase string

const (
	PhaseActive    Phase = "active"
	PhaseDismissed Phase = "dismissed"
	PhaseExpired   Phase = "expired"
	PhaseRedeemed  Phase = "redeemed"
)

// State is the per-identity record of one offer. There is at most one State
// per (identity, offer) pair; lookups create exactly once.
type State struct {
	ID          string     `json:"id"`
	IdentityRef string     `json:"identity_ref"`
	OfferID     string     `json:"offer_id"`
	StartedAt   time.Time  `json:"started_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	DismissedAt *time.Time `json:"dismissed_at"`
	RedeemedAt  *time.Time `json:"redeemed_at"`
}

// NewState starts an offer for an identity. Per-user offers count down from
// first view; global offers share the offer's own deadline.
func NewState(identityRef string, o Offer, now time.Time) State {
	expires := now.Add(o.Duration)
	if o.Mode == ModeGlobal && o.EndsAt != nil {
		expires = *o.EndsAt
	}
	return State{
		ID:          uuid.NewString(),
		IdentityRef: identityRef,
		OfferID:     o.ID,
		StartedAt:   now,
		ExpiresAt:   expires,
	}
}

// PhaseAt derives the lifecycle phase at the given instant. Redemption wins
// over dismissal, which wins over expiry.
func (s State) PhaseAt(now time.Time) Phase {
	switch {
	case s.RedeemedAt != nil:
		return PhaseRedeemed
	case s.DismissedAt != nil:
		return PhaseDismissed
	case now.After(s.ExpiresAt):
		return PhaseExpired
	default:
		return PhaseActive
	}
}

// Countdown is a decomposed remaining duration for display.
type Countdown struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IsZero reports whether the countdown has run out.
func (c Countdown) IsZero() bool {
	return c.Hours == 0 && c.Minutes == 0 && c.Seconds == 0
}

// CountdownUntil computes the time left before expiresAt, clamped at zero.
// Pure function of its inputs, so it works fully offline.
func CountdownUntil(expiresAt, now time.Time) Countdown {
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	total := int(remaining / time.Second)
	return Countdown{
		Hours:   total / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// CountdownAt returns the display countdown for this state.
func (s State) CountdownAt(now time.Time) Countdown {
	return CountdownUntil(s.ExpiresAt, now)
}
