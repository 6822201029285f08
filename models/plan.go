package models

// PlanTier represents a subscription level assigned to a tenant
type PlanTier string

const (
	PlanLite     PlanTier = "lite"
	PlanStandard PlanTier = "standard"
	PlanPro      PlanTier = "pro"

	// Custom variants are negotiated contracts that share the entitlement row
	// of their base tier.
	PlanLiteCustom     PlanTier = "lite_custom"
	PlanStandardCustom PlanTier = "standard_custom"
	PlanProCustom      PlanTier = "pro_custom"
)

// CanonicalPlanTiers lists the tiers that own an entitlement row
var CanonicalPlanTiers = []PlanTier{PlanLite, PlanStandard, PlanPro}

// PlanAliases maps aliased tiers to the canonical tier they resolve through
var PlanAliases = map[PlanTier]PlanTier{
	PlanLiteCustom:     PlanLite,
	PlanStandardCustom: PlanStandard,
	PlanProCustom:      PlanPro,
}

// String returns the string representation of the plan tier
func (p PlanTier) String() string {
	return string(p)
}

// IsValid reports whether the tier is canonical or a known alias
func (p PlanTier) IsValid() bool {
	if _, ok := PlanAliases[p]; ok {
		return true
	}
	for _, t := range CanonicalPlanTiers {
		if t == p {
			return true
		}
	}
	return false
}

// FeatureKind distinguishes quota-style features from on/off flags
type FeatureKind string

const (
	FeatureKindQuota FeatureKind = "quota"
	FeatureKindFlag  FeatureKind = "flag"
)

// FeatureKey identifies a gated capability
type FeatureKey string

const (
	// Quotas
	FeatureMaxAssets         FeatureKey = "max_assets"
	FeatureMaxMembers        FeatureKey = "max_members"
	FeatureMaxExclusionLists FeatureKey = "max_exclusion_lists"
	FeatureDataRetentionDays FeatureKey = "data_retention_days"
	FeatureMaxAPIKeys        FeatureKey = "max_api_keys"

	// Flags
	FeatureTrafficPanel      FeatureKey = "traffic_panel"
	FeatureFraudHeatmapPanel FeatureKey = "fraud_heatmap_panel"
	FeatureAutoExclusion     FeatureKey = "auto_exclusion"
	FeatureAPIAccess         FeatureKey = "api_access"
	FeatureCustomReports     FeatureKey = "custom_reports"
	FeatureSSO               FeatureKey = "sso"
)

// FeatureKinds declares the kind of every known feature key.
// A key missing from this map is unknown.
var FeatureKinds = map[FeatureKey]FeatureKind{
	FeatureMaxAssets:         FeatureKindQuota,
	FeatureMaxMembers:        FeatureKindQuota,
	FeatureMaxExclusionLists: FeatureKindQuota,
	FeatureDataRetentionDays: FeatureKindQuota,
	FeatureMaxAPIKeys:        FeatureKindQuota,

	FeatureTrafficPanel:      FeatureKindFlag,
	FeatureFraudHeatmapPanel: FeatureKindFlag,
	FeatureAutoExclusion:     FeatureKindFlag,
	FeatureAPIAccess:         FeatureKindFlag,
	FeatureCustomReports:     FeatureKindFlag,
	FeatureSSO:               FeatureKindFlag,
}

// Kind returns the declared kind of the feature and whether the feature is known
func (f FeatureKey) Kind() (FeatureKind, bool) {
	kind, ok := FeatureKinds[f]
	return kind, ok
}

// ReportDimension is a breakdown axis offered in traffic reports
type ReportDimension string

const (
	DimensionDomain     ReportDimension = "domain"
	DimensionCampaign   ReportDimension = "campaign"
	DimensionKeyword    ReportDimension = "keyword"
	DimensionPlacement  ReportDimension = "placement"
	DimensionEngagement ReportDimension = "engagement"
)

// AllReportDimensions lists every known report dimension
var AllReportDimensions = []ReportDimension{
	DimensionDomain,
	DimensionCampaign,
	DimensionKeyword,
	DimensionPlacement,
	DimensionEngagement,
}
