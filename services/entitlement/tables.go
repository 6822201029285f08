package entitlement

import "github.com/upb/fraudshield/models"

// FeatureTable maps each feature to its value per canonical plan tier
type FeatureTable map[models.FeatureKey]map[models.PlanTier]LimitValue

// DimensionTable maps each canonical plan tier to its enabled report dimensions
type DimensionTable map[models.PlanTier][]models.ReportDimension

// DefaultFeatureTable returns the built-in plan entitlements
func DefaultFeatureTable() FeatureTable {
	return FeatureTable{
		models.FeatureMaxAssets: {
			models.PlanLite:     Limit(5),
			models.PlanStandard: Limit(25),
			models.PlanPro:      Unlimited(),
		},
		models.FeatureMaxMembers: {
			models.PlanLite:     Limit(1),
			models.PlanStandard: Limit(5),
			models.PlanPro:      Limit(25),
		},
		models.FeatureMaxExclusionLists: {
			models.PlanLite:     Limit(1),
			models.PlanStandard: Limit(10),
			models.PlanPro:      Unlimited(),
		},
		models.FeatureDataRetentionDays: {
			models.PlanLite:     Limit(30),
			models.PlanStandard: Limit(90),
			models.PlanPro:      Limit(365),
		},
		models.FeatureMaxAPIKeys: {
			models.PlanLite:     Limit(0),
			models.PlanStandard: Limit(2),
			models.PlanPro:      Limit(10),
		},
		models.FeatureTrafficPanel: {
			models.PlanLite:     Flag(true),
			models.PlanStandard: Flag(true),
			models.PlanPro:      Flag(true),
		},
		models.FeatureFraudHeatmapPanel: {
			models.PlanLite:     Flag(false),
			models.PlanStandard: Flag(true),
			models.PlanPro:      Flag(true),
		},
		models.FeatureAutoExclusion: {
			models.PlanLite:     Flag(false),
			models.PlanStandard: Flag(true),
			models.PlanPro:      Flag(true),
		},
		models.FeatureAPIAccess: {
			models.PlanLite:     Flag(false),
			models.PlanStandard: Flag(false),
			models.PlanPro:      Flag(true),
		},
		models.FeatureCustomReports: {
			models.PlanLite:     Flag(false),
			models.PlanStandard: Flag(false),
			models.PlanPro:      Flag(true),
		},
		models.FeatureSSO: {
			models.PlanLite:     Flag(false),
			models.PlanStandard: Flag(false),
			models.PlanPro:      Flag(true),
		},
	}
}

// DefaultDimensionTable returns the built-in report dimensions per plan
func DefaultDimensionTable() DimensionTable {
	return DimensionTable{
		models.PlanLite: {
			models.DimensionDomain,
			models.DimensionCampaign,
		},
		models.PlanStandard: {
			models.DimensionDomain,
			models.DimensionCampaign,
			models.DimensionKeyword,
			models.DimensionPlacement,
		},
		models.PlanPro: models.AllReportDimensions,
	}
}
