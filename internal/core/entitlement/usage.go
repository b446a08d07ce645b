package entitlement

// FeatureUsage maps a feature to its remaining use count. A nil count means
// the feature is unlimited for the current identity. Counts never go below
// zero.
type FeatureUsage map[Feature]*int

// DefaultFreeLimits returns the hardcoded free-tier fallback used when the
// remote plan limits cannot be fetched. Overwritten by server limits the
// first time they are retrieved for a brand-new guest.
func DefaultFreeLimits() FeatureUsage {
	return FeatureUsage{
		FeatureScanDocument:    intPtr(3),
		FeatureDocumentCheck:   intPtr(2),
		FeatureDocumentCompare: intPtr(1),
		FeatureAILawyer:        intPtr(5),
	}
}

// Remaining returns the remaining count for a feature. The second return
// value is false when the feature is unlimited (nil or absent entry).
func (u FeatureUsage) Remaining(f Feature) (int, bool) {
	v, ok := u[f]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// CanUse reports whether the feature has uses left, ignoring entitlement.
// Unlimited features are always usable.
func (u FeatureUsage) CanUse(f Feature) bool {
	remaining, limited := u.Remaining(f)
	return !limited || remaining > 0
}

// Decrement lowers the remaining count for f by one and reports whether the
// count changed. Unlimited and exhausted features are left untouched.
func (u FeatureUsage) Decrement(f Feature) bool {
	remaining, limited := u.Remaining(f)
	if !limited || remaining <= 0 {
		return false
	}
	next := remaining - 1
	u[f] = &next
	return true
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (u FeatureUsage) Clone() FeatureUsage {
	if u == nil {
		return nil
	}
	out := make(FeatureUsage, len(u))
	for f, v := range u {
		if v == nil {
			out[f] = nil
			continue
		}
		c := *v
		out[f] = &c
	}
	return out
}

// FloorMerge lowers counters in base to match the consumption recorded in
// floor, never raising them. Features that floor leaves unlimited are kept as
// base has them. Used when guest usage is merged into an account so a stale
// local snapshot can never restore quota.
func FloorMerge(base, floor FeatureUsage) FeatureUsage {
	merged := base.Clone()
	if merged == nil {
		merged = make(FeatureUsage)
	}
	for f, v := range floor {
		if v == nil {
			continue
		}
		current, limited := merged.Remaining(f)
		if !limited || *v < current {
			c := *v
			merged[f] = &c
		}
	}
	return merged
}

func intPtr(v int) *int { return &v }
