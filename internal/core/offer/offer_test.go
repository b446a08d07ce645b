package offer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestOffer_ActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offer  Offer
		active bool
	}{
		{
			name:   "WithinWindow_ShouldBeActive",
			offer:  Offer{Enabled: true, StartsAt: timePtr(now.Add(-time.Hour)), EndsAt: timePtr(now.Add(time.Hour))},
			active: true,
		},
		{
			name:   "BeforeStart_ShouldBeInactive",
			offer:  Offer{Enabled: true, StartsAt: timePtr(now.Add(time.Minute))},
			active: false,
		},
		{
			name:   "AfterEnd_ShouldBeInactive",
			offer:  Offer{Enabled: true, EndsAt: timePtr(now.Add(-time.Minute))},
			active: false,
		},
		{
			name:   "OpenEnded_ShouldBeActive",
			offer:  Offer{Enabled: true},
			active: true,
		},
		{
			name:   "Disabled_ShouldBeInactive",
			offer:  Offer{Enabled: false, StartsAt: timePtr(now.Add(-time.Hour)), EndsAt: timePtr(now.Add(time.Hour))},
			active: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, tt.offer.ActiveAt(now))
		})
	}
}

func TestSelectActive_PrefersSoonestExpiring(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	offers := []Offer{
		{ID: "late", Enabled: true, EndsAt: timePtr(now.Add(48 * time.Hour))},
		{ID: "soon", Enabled: true, EndsAt: timePtr(now.Add(2 * time.Hour))},
		{ID: "open", Enabled: true},
		{ID: "over", Enabled: true, EndsAt: timePtr(now.Add(-time.Hour))},
	}

	selected := SelectActive(offers, now)

	require.NotNil(t, selected)
	assert.Equal(t, "soon", selected.ID, "soonest-expiring active offer should win")
}

func TestSelectActive_NoActiveOffers_ReturnsNil(t *testing.T) {
	now := time.Now()
	offers := []Offer{
		{ID: "disabled", Enabled: false},
		{ID: "over", Enabled: true, EndsAt: timePtr(now.Add(-time.Hour))},
	}

	assert.Nil(t, SelectActive(offers, now))
	assert.Nil(t, SelectActive(nil, now))
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		offer    *Offer
		expected int64
	}{
		{
			name:     "PercentHalf_ShouldHalve",
			price:    1000,
			offer:    &Offer{DiscountType: DiscountPercent, DiscountValue: 50},
			expected: 500,
		},
		{
			name:     "PercentRounds_ToNearestCent",
			price:    999,
			offer:    &Offer{DiscountType: DiscountPercent, DiscountValue: 50},
			expected: 500,
		},
		{
			name:     "FixedLargerThanPrice_ShouldFloorAtZero",
			price:    1000,
			offer:    &Offer{DiscountType: DiscountFixed, DiscountValue: 1500},
			expected: 0,
		},
		{
			name:     "FixedSmall_ShouldSubtract",
			price:    1000,
			offer:    &Offer{DiscountType: DiscountFixed, DiscountValue: 250},
			expected: 750,
		},
		{
			name:     "NilOffer_ShouldFailOpenToFullPrice",
			price:    1000,
			offer:    nil,
			expected: 1000,
		},
		{
			name:     "UnknownType_ShouldFailOpenToFullPrice",
			price:    1000,
			offer:    &Offer{DiscountType: "loyalty", DiscountValue: 50},
			expected: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ApplyDiscount(tt.price, tt.offer))
		})
	}
}

func TestApplyDiscount_PropertyBased_StaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		price := int64(rapid.IntRange(0, 1_000_000).Draw(t, "price"))
		pct := int64(rapid.IntRange(0, 100).Draw(t, "pct"))
		fixed := int64(rapid.IntRange(0, 2_000_000).Draw(t, "fixed"))

		byPercent := ApplyDiscount(price, &Offer{DiscountType: DiscountPercent, DiscountValue: pct})
		assert.GreaterOrEqual(t, byPercent, int64(0), "percent discount must never go negative")
		assert.LessOrEqual(t, byPercent, price, "percent discount must never exceed the price")

		byFixed := ApplyDiscount(price, &Offer{DiscountType: DiscountFixed, DiscountValue: fixed})
		assert.GreaterOrEqual(t, byFixed, int64(0), "fixed discount must floor at zero")
		assert.LessOrEqual(t, byFixed, price, "fixed discount must never exceed the price")
	})
}
