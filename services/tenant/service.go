// Package tenant resolves organizations to their assigned plan tier.
package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/repositories"
	"github.com/upb/fraudshield/services"
	"go.uber.org/zap"
)

// Service looks up organizations and their plan tier, caching plans per organization
type Service struct {
	orgs   repositories.OrganizationRepository
	txMgr  repositories.TransactionManager
	cache  *PlanCache
	logger *zap.Logger
}

// NewService creates a new tenant service
func NewService(orgs repositories.OrganizationRepository, txMgr repositories.TransactionManager, cache *PlanCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orgs:   orgs,
		txMgr:  txMgr,
		cache:  cache,
		logger: logger,
	}
}

// PlanFor returns the plan tier of an organization
func (s *Service) PlanFor(ctx context.Context, orgID uuid.UUID) (models.PlanTier, error) {
	if plan, ok := s.cache.Get(orgID); ok {
		return plan, nil
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return "", err
	}

	s.cache.Set(orgID, org.Plan)
	return org.Plan, nil
}

// Organization returns an organization and refreshes its cached plan
func (s *Service) Organization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(orgID, org.Plan)
	return org, nil
}

// ChangePlan assigns a new plan tier to an organization and returns the updated record
func (s *Service) ChangePlan(ctx context.Context, orgID uuid.UUID, plan models.PlanTier) (*models.Organization, error) {
	if !plan.IsValid() {
		return nil, services.ErrInvalidInput.WithDetail("plan", string(plan))
	}

	org, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Organization, error) {
		orgs := s.orgs.WithTx(tx)
		if err := orgs.UpdatePlan(ctx, orgID, plan); err != nil {
			return nil, err
		}
		return orgs.GetByID(ctx, orgID)
	})
	s.cache.Invalidate(orgID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization plan changed",
		zap.String("org_id", orgID.String()),
		zap.String("plan", plan.String()))
	return org, nil
}

// CleanupExpired drops expired plan entries and returns how many were removed
func (s *Service) CleanupExpired() int {
	return s.cache.CleanupExpired()
}

// CacheStats returns the plan cache statistics
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}
