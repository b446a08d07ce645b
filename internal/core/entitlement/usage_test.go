package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFeatureUsage_Decrement_StopsAtZero(t *testing.T) {
	start := 3
	usage := FeatureUsage{FeatureScanDocument: &start}

	for i := 0; i < 3; i++ {
		assert.True(t, usage.CanUse(FeatureScanDocument), "uses should be left before decrement %d", i+1)
		assert.True(t, usage.Decrement(FeatureScanDocument), "decrement %d should apply", i+1)
	}

	assert.False(t, usage.CanUse(FeatureScanDocument), "exhausted feature should not be usable")
	assert.False(t, usage.Decrement(FeatureScanDocument), "decrement past zero should be a no-op")

	remaining, limited := usage.Remaining(FeatureScanDocument)
	require.True(t, limited)
	assert.Equal(t, 0, remaining, "remaining count should floor at zero")
}

func TestFeatureUsage_Decrement_UnlimitedIsNoop(t *testing.T) {
	tests := []struct {
		name  string
		usage FeatureUsage
	}{
		{name: "NilEntry", usage: FeatureUsage{FeatureAILawyer: nil}},
		{name: "AbsentEntry", usage: FeatureUsage{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.usage.CanUse(FeatureAILawyer), "unlimited feature should be usable")
			assert.False(t, tt.usage.Decrement(FeatureAILawyer), "unlimited feature should never be decremented")
			_, limited := tt.usage.Remaining(FeatureAILawyer)
			assert.False(t, limited, "feature should stay unlimited")
		})
	}
}

func TestFeatureUsage_Decrement_OnlyTouchesConsumedFeature(t *testing.T) {
	usage := DefaultFreeLimits()
	before, _ := usage.Remaining(FeatureDocumentCheck)

	require.True(t, usage.Decrement(FeatureScanDocument))

	after, _ := usage.Remaining(FeatureDocumentCheck)
	assert.Equal(t, before, after, "other features should be untouched")
}

func TestFeatureUsage_Clone_IsIndependent(t *testing.T) {
	usage := DefaultFreeLimits()
	clone := usage.Clone()

	require.True(t, clone.Decrement(FeatureScanDocument))

	orig, _ := usage.Remaining(FeatureScanDocument)
	cloned, _ := clone.Remaining(FeatureScanDocument)
	assert.Equal(t, orig-1, cloned)
}

func TestFloorMerge_NeverRaisesCounters(t *testing.T) {
	tests := []struct {
		name     string
		base     *int
		floor    *int
		expected *int
	}{
		{name: "LocalLower_ShouldLower", base: intPtr(5), floor: intPtr(2), expected: intPtr(2)},
		{name: "LocalHigher_ShouldKeepRemote", base: intPtr(1), floor: intPtr(4), expected: intPtr(1)},
		{name: "RemoteUnlimited_ShouldAdoptLocal", base: nil, floor: intPtr(3), expected: intPtr(3)},
		{name: "LocalUnlimited_ShouldKeepRemote", base: intPtr(2), floor: nil, expected: intPtr(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := FeatureUsage{FeatureDocumentCompare: tt.base}
			floor := FeatureUsage{FeatureDocumentCompare: tt.floor}

			merged := FloorMerge(base, floor)

			got, limited := merged.Remaining(FeatureDocumentCompare)
			if tt.expected == nil {
				assert.False(t, limited)
			} else {
				require.True(t, limited)
				assert.Equal(t, *tt.expected, got)
			}
		})
	}
}

func TestFloorMerge_PropertyBased_ResultNeverExceedsEitherSide(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.IntRange(0, 100).Draw(t, "base")
		floor := rapid.IntRange(0, 100).Draw(t, "floor")

		merged := FloorMerge(
			FeatureUsage{FeatureScanDocument: &base},
			FeatureUsage{FeatureScanDocument: &floor},
		)

		got, limited := merged.Remaining(FeatureScanDocument)
		assert.True(t, limited)
		assert.LessOrEqual(t, got, base, "merge must never raise the remote counter")
		assert.LessOrEqual(t, got, floor, "merge must honor local consumption")
		assert.Equal(t, min(base, floor), got)
	})
}

func TestFeatureUsage_PropertyBased_DecrementNeverGoesNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.IntRange(0, 20).Draw(t, "start")
		calls := rapid.IntRange(0, 40).Draw(t, "calls")

		v := start
		usage := FeatureUsage{FeatureAILawyer: &v}
		for i := 0; i < calls; i++ {
			usage.Decrement(FeatureAILawyer)
		}

		remaining, limited := usage.Remaining(FeatureAILawyer)
		assert.True(t, limited)
		assert.GreaterOrEqual(t, remaining, 0, "remaining count must never go negative")
		assert.Equal(t, max(0, start-calls), remaining)
	})
}
