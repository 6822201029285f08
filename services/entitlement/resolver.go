// Package entitlement resolves plan-tier feature limits and report dimensions.
//
// Tables are validated once, when the Resolver is built. A Resolver that was
// constructed successfully answers every (known feature, known tier) query.
package entitlement

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/services"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Resolver answers entitlement queries against validated tables
type Resolver struct {
	features   FeatureTable
	dimensions DimensionTable
	aliases    map[models.PlanTier]models.PlanTier
	logger     *zap.Logger
}

// NewResolver validates the tables and returns a Resolver.
// Every gap is reported in a single configuration error.
func NewResolver(features FeatureTable, dimensions DimensionTable, logger *zap.Logger) (*Resolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := ValidateTables(features, dimensions); err != nil {
		return nil, err
	}

	r := &Resolver{
		features:   copyFeatures(features),
		dimensions: copyDimensions(dimensions),
		aliases:    models.PlanAliases,
		logger:     logger,
	}

	logger.Info("entitlement tables validated",
		zap.Int("features", len(r.features)),
		zap.Int("plan_tiers", len(models.CanonicalPlanTiers)),
		zap.Int("plan_aliases", len(r.aliases)))

	return r, nil
}

// DefaultResolver builds a Resolver from the built-in tables
func DefaultResolver(logger *zap.Logger) (*Resolver, error) {
	return NewResolver(DefaultFeatureTable(), DefaultDimensionTable(), logger)
}

// ValidateTables checks that both tables are rectangular over the known
// features, canonical tiers and dimensions.
func ValidateTables(features FeatureTable, dimensions DimensionTable) error {
	var featureErrs error

	for _, feature := range sortedFeatureKeys() {
		kind := models.FeatureKinds[feature]
		row, ok := features[feature]
		if !ok {
			featureErrs = multierr.Append(featureErrs, fmt.Errorf("feature %q has no row", feature))
			continue
		}
		for _, tier := range models.CanonicalPlanTiers {
			value, ok := row[tier]
			if !ok || !value.IsDefined() {
				featureErrs = multierr.Append(featureErrs, fmt.Errorf("feature %q has no value for plan %q", feature, tier))
				continue
			}
			featureErrs = multierr.Append(featureErrs, checkKind(feature, kind, tier, value))
		}
		for tier := range row {
			if !lo.Contains(models.CanonicalPlanTiers, tier) {
				featureErrs = multierr.Append(featureErrs, fmt.Errorf("feature %q has a value for non-canonical plan %q", feature, tier))
			}
		}
	}
	for feature := range features {
		if _, known := models.FeatureKinds[feature]; !known {
			featureErrs = multierr.Append(featureErrs, fmt.Errorf("feature %q is not a known feature key", feature))
		}
	}
	for alias, target := range models.PlanAliases {
		if !lo.Contains(models.CanonicalPlanTiers, target) {
			featureErrs = multierr.Append(featureErrs, fmt.Errorf("plan alias %q targets non-canonical plan %q", alias, target))
		}
	}

	var dimensionErrs error
	for _, tier := range models.CanonicalPlanTiers {
		dims, ok := dimensions[tier]
		if !ok {
			dimensionErrs = multierr.Append(dimensionErrs, fmt.Errorf("plan %q has no report dimensions entry", tier))
			continue
		}
		for _, dim := range dims {
			if !lo.Contains(models.AllReportDimensions, dim) {
				dimensionErrs = multierr.Append(dimensionErrs, fmt.Errorf("plan %q enables unknown dimension %q", tier, dim))
			}
		}
	}
	for tier := range dimensions {
		if !lo.Contains(models.CanonicalPlanTiers, tier) {
			dimensionErrs = multierr.Append(dimensionErrs, fmt.Errorf("report dimensions set for non-canonical plan %q", tier))
		}
	}

	var errs error
	if featureErrs != nil {
		errs = multierr.Append(errs, services.ErrEntitlementTable.Wrap(featureErrs))
	}
	if dimensionErrs != nil {
		errs = multierr.Append(errs, services.ErrDimensionTable.Wrap(dimensionErrs))
	}
	return errs
}

func checkKind(feature models.FeatureKey, kind models.FeatureKind, tier models.PlanTier, value LimitValue) error {
	switch kind {
	case models.FeatureKindQuota:
		if !value.IsQuota() {
			return fmt.Errorf("feature %q is a quota but plan %q holds %s", feature, tier, value)
		}
		if n, ok := value.Count(); ok && n < 0 {
			return fmt.Errorf("feature %q has negative quota %d for plan %q", feature, n, tier)
		}
	case models.FeatureKindFlag:
		if !value.IsFlag() {
			return fmt.Errorf("feature %q is a flag but plan %q holds %s", feature, tier, value)
		}
	}
	return nil
}

// CanonicalTier resolves aliases. ok is false for unknown tiers.
func (r *Resolver) CanonicalTier(tier models.PlanTier) (models.PlanTier, bool) {
	if canonical, ok := r.aliases[tier]; ok {
		return canonical, true
	}
	if lo.Contains(models.CanonicalPlanTiers, tier) {
		return tier, true
	}
	return "", false
}

// Resolve returns the entitlement of feature under tier
func (r *Resolver) Resolve(feature models.FeatureKey, tier models.PlanTier) (LimitValue, error) {
	row, ok := r.features[feature]
	if !ok {
		r.logger.Error("entitlement lookup for unknown feature", zap.String("feature", string(feature)))
		return LimitValue{}, services.ErrUnknownFeature.WithDetail("feature", string(feature))
	}

	canonical, ok := r.CanonicalTier(tier)
	if !ok {
		r.logger.Error("entitlement lookup for unknown plan tier", zap.String("plan_tier", string(tier)))
		return LimitValue{}, services.ErrUnknownPlanTier.WithDetail("plan_tier", string(tier))
	}

	return row[canonical], nil
}

// ResolveAll returns every feature's entitlement under tier
func (r *Resolver) ResolveAll(tier models.PlanTier) (map[models.FeatureKey]LimitValue, error) {
	canonical, ok := r.CanonicalTier(tier)
	if !ok {
		return nil, services.ErrUnknownPlanTier.WithDetail("plan_tier", string(tier))
	}

	values := make(map[models.FeatureKey]LimitValue, len(r.features))
	for feature, row := range r.features {
		values[feature] = row[canonical]
	}
	return values, nil
}

// Allows reports whether one more unit of feature may be consumed under tier
func (r *Resolver) Allows(feature models.FeatureKey, tier models.PlanTier, usage int64) (bool, error) {
	value, err := r.Resolve(feature, tier)
	if err != nil {
		return false, err
	}
	return value.Allows(usage), nil
}

// Dimensions returns the report dimensions enabled for tier in canonical order
func (r *Resolver) Dimensions(tier models.PlanTier) ([]models.ReportDimension, error) {
	canonical, ok := r.CanonicalTier(tier)
	if !ok {
		return nil, services.ErrUnknownPlanTier.WithDetail("plan_tier", string(tier))
	}

	enabled := r.dimensions[canonical]
	return lo.Filter(models.AllReportDimensions, func(dim models.ReportDimension, _ int) bool {
		return lo.Contains(enabled, dim)
	}), nil
}

// HasDimension reports whether dim is enabled for tier
func (r *Resolver) HasDimension(tier models.PlanTier, dim models.ReportDimension) (bool, error) {
	canonical, ok := r.CanonicalTier(tier)
	if !ok {
		return false, services.ErrUnknownPlanTier.WithDetail("plan_tier", string(tier))
	}
	return lo.Contains(r.dimensions[canonical], dim), nil
}

func sortedFeatureKeys() []models.FeatureKey {
	keys := lo.Keys(models.FeatureKinds)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func copyFeatures(in FeatureTable) FeatureTable {
	out := make(FeatureTable, len(in))
	for feature, row := range in {
		cells := make(map[models.PlanTier]LimitValue, len(row))
		for tier, value := range row {
			cells[tier] = value
		}
		out[feature] = cells
	}
	return out
}

func copyDimensions(in DimensionTable) DimensionTable {
	out := make(DimensionTable, len(in))
	for tier, dims := range in {
		out[tier] = lo.Uniq(dims)
	}
	return out
}
