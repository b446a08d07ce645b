package offer

import (
	"math"
	"sort"
	"time"
)

// Mode distinguishes offers with a shared deadline from offers whose
// countdown starts when a user first sees them.
type Mode string

const (
	ModeGlobal  Mode = "global"
	ModePerUser Mode = "per_user"
)

// DiscountType tags how DiscountValue is applied to a price.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Offer is a remote-defined, time-boxed promotion.
type Offer struct {
	ID            string        `json:"id"`
	Mode          Mode          `json:"mode"`
	DiscountType  DiscountType  `json:"discount_type"`
	DiscountValue int64         `json:"discount_value"`
	StartsAt      *time.Time    `json:"starts_at"`
	EndsAt        *time.Time    `json:"ends_at"`
	Duration      time.Duration `json:"duration"`
	Enabled       bool          `json:"enabled"`
}

// ActiveAt reports whether the offer is running at the given instant.
// Open-ended bounds are allowed on either side.
func (o Offer) ActiveAt(now time.Time) bool {
	if !o.Enabled {
		return false
	}
	if o.StartsAt != nil && now.Before(*o.StartsAt) {
		return false
	}
	if o.EndsAt != nil && now.After(*o.EndsAt) {
		return false
	}
	return true
}

// SelectActive picks the offer to present when several are running: the one
// with the earliest EndsAt wins. Offers without a deadline sort last. Returns
// nil when nothing is active.
func SelectActive(offers []Offer, now time.Time) *Offer {
	active := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if o.ActiveAt(now) {
			active = append(active, o)
		}
	}
	if len(active) == 0 {
		return nil
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i].EndsAt, active[j].EndsAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	selected := active[0]
	return &selected
}

// ApplyDiscount computes the discounted price in cents. Percent discounts
// round to the nearest cent, fixed discounts floor at zero, and a nil offer
// or unrecognized discount type fails open to the full price.
func ApplyDiscount(priceCents int64, o *Offer) int64 {
	if o == nil {
		return priceCents
	}
	switch o.DiscountType {
	case DiscountPercent:
		discounted := float64(priceCents) * (1 - float64(o.DiscountValue)/100)
		return int64(math.Round(discounted))
	case DiscountFixed:
		discounted := priceCents - o.DiscountValue
		if discounted < 0 {
			return 0
		}
		return discounted
	default:
		return priceCents
	}
}
