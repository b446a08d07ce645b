package entitlement

// Feature identifies a metered capability of the app.
type Feature string

const (
	FeatureScanDocument    Feature = "scan_document"
	FeatureDocumentCheck   Feature = "document_check"
	FeatureDocumentCompare Feature = "document_compare"
	FeatureAILawyer        Feature = "ai_lawyer"
)

// AllFeatures returns the fixed set of metered features in display order.
func AllFeatures() []Feature {
	return []Feature{
		FeatureScanDocument,
		FeatureDocumentCheck,
		FeatureDocumentCompare,
		FeatureAILawyer,
	}
}

// IsKnown reports whether f is one of the metered features.
func (f Feature) IsKnown() bool {
	switch f {
	case FeatureScanDocument, FeatureDocumentCheck, FeatureDocumentCompare, FeatureAILawyer:
		return true
	}
	return false
}

// CatalogEntry is a remote-defined feature description used for display.
type CatalogEntry struct {
	Feature   Feature `json:"feature"`
	SortOrder int     `json:"sort_order"`
	Title     string  `json:"title"`
}

// PlanFeatureLimit is a remote-defined monthly limit for one (tier, feature) pair.
// A nil MonthlyLimit means the feature is unlimited on that tier.
type PlanFeatureLimit struct {
	Tier         Tier    `json:"tier"`
	Feature      Feature `json:"feature"`
	MonthlyLimit *int    `json:"monthly_limit"`
}

// LimitsForTier folds a plan-limit listing into a FeatureUsage seeded at the
// full monthly allowance for the given tier. Features absent from the listing
// are treated as unlimited.
func LimitsForTier(limits []PlanFeatureLimit, tier Tier) FeatureUsage {
	usage := make(FeatureUsage)
	for _, l := range limits {
		if l.Tier != tier {
			continue
		}
		if l.MonthlyLimit == nil {
			usage[l.Feature] = nil
			continue
		}
		v := *l.MonthlyLimit
		usage[l.Feature] = &v
	}
	return usage
}
