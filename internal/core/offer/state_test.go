package offer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewState_PerUser_CountsDownFromFirstView(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	o := Offer{ID: "launch", Mode: ModePerUser, Duration: 24 * time.Hour, Enabled: true}

	state := NewState("guest", o, now)

	require.NotEmpty(t, state.ID)
	assert.Equal(t, "launch", state.OfferID)
	assert.Equal(t, now, state.StartedAt)
	assert.Equal(t, now.Add(24*time.Hour), state.ExpiresAt)
}

func TestNewState_Global_SharesOfferDeadline(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(72 * time.Hour)
	o := Offer{ID: "spring", Mode: ModeGlobal, EndsAt: &deadline, Enabled: true}

	state := NewState("account:u1", o, now)

	assert.Equal(t, deadline, state.ExpiresAt, "global offers expire at the shared deadline")
}

func TestState_PhaseAt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	dismissed := now.Add(-time.Hour)
	redeemed := now.Add(-30 * time.Minute)

	tests := []struct {
		name     string
		state    State
		expected Phase
	}{
		{
			name:     "BeforeExpiry_ShouldBeActive",
			state:    State{ExpiresAt: now.Add(time.Hour)},
			expected: PhaseActive,
		},
		{
			name:     "AfterExpiry_ShouldBeExpired",
			state:    State{ExpiresAt: now.Add(-time.Second)},
			expected: PhaseExpired,
		},
		{
			name:     "Dismissed_ShouldStayDismissedPastExpiry",
			state:    State{ExpiresAt: now.Add(-time.Hour), DismissedAt: &dismissed},
			expected: PhaseDismissed,
		},
		{
			name:     "Redeemed_ShouldWinOverDismissal",
			state:    State{ExpiresAt: now.Add(time.Hour), DismissedAt: &dismissed, RedeemedAt: &redeemed},
			expected: PhaseRedeemed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.PhaseAt(now))
		})
	}
}

func TestCountdownUntil(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		expected  Countdown
	}{
		{name: "NinetySeconds", expiresAt: now.Add(90 * time.Second), expected: Countdown{Hours: 0, Minutes: 1, Seconds: 30}},
		{name: "TwoHoursFiveMinutes", expiresAt: now.Add(2*time.Hour + 5*time.Minute), expected: Countdown{Hours: 2, Minutes: 5, Seconds: 0}},
		{name: "InThePast_ShouldClampToZero", expiresAt: now.Add(-time.Hour), expected: Countdown{}},
		{name: "ExactlyNow_ShouldBeZero", expiresAt: now, expected: Countdown{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountdownUntil(tt.expiresAt, now)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expected.IsZero(), got.IsZero())
		})
	}
}

func TestCountdownUntil_PropertyBased_DecomposesRemainingSeconds(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	rapid.Check(t, func(t *rapid.T) {
		seconds := rapid.IntRange(-86_400, 7*86_400).Draw(t, "seconds")

		c := CountdownUntil(now.Add(time.Duration(seconds)*time.Second), now)

		total := c.Hours*3600 + c.Minutes*60 + c.Seconds
		assert.Equal(t, max(0, seconds), total, "decomposition must reassemble to the clamped remainder")
		assert.GreaterOrEqual(t, c.Minutes, 0)
		assert.Less(t, c.Minutes, 60)
		assert.GreaterOrEqual(t, c.Seconds, 0)
		assert.Less(t, c.Seconds, 60)
	})
}
