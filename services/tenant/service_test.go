package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/repositories"
	"github.com/upb/fraudshield/services"
	"go.uber.org/zap"
)

// MockOrganizationRepository is a mock implementation of repositories.OrganizationRepository
type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *MockOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if org := args.Get(0); org != nil {
		return org.(*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	args := m.Called(ctx, slug)
	if org := args.Get(0); org != nil {
		return org.(*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) UpdatePlan(ctx context.Context, id uuid.UUID, plan models.PlanTier) error {
	args := m.Called(ctx, id, plan)
	return args.Error(0)
}

func (m *MockOrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrganizationRepository) WithTx(tx repositories.Transaction) repositories.OrganizationRepository {
	return m
}

// MockTransactionManager is a mock implementation of repositories.TransactionManager
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// MockTransaction is a mock implementation of repositories.Transaction
type MockTransaction struct {
	mock.Mock
}

func (m *MockTransaction) Commit() error {
	return m.Called().Error(0)
}

func (m *MockTransaction) Rollback() error {
	return m.Called().Error(0)
}

func (m *MockTransaction) Context() context.Context {
	return context.Background()
}

func newTestService(repo *MockOrganizationRepository, txMgr *MockTransactionManager, clock clockwork.Clock) *Service {
	return NewService(repo, txMgr, NewPlanCache(10, time.Minute, clock), zap.NewNop())
}

func TestService_PlanFor(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	org := &models.Organization{ID: orgID, Name: "Acme Ads", Plan: models.PlanStandardCustom}

	t.Run("caches the plan after the first lookup", func(t *testing.T) {
		repo := new(MockOrganizationRepository)
		svc := newTestService(repo, new(MockTransactionManager), nil)

		repo.On("GetByID", ctx, orgID).Return(org, nil).Once()

		for i := 0; i < 3; i++ {
			plan, err := svc.PlanFor(ctx, orgID)
			require.NoError(t, err)
			assert.Equal(t, models.PlanStandardCustom, plan)
		}

		repo.AssertExpectations(t)
		assert.Equal(t, uint64(2), svc.CacheStats().Hits)
	})

	t.Run("reloads after the TTL", func(t *testing.T) {
		repo := new(MockOrganizationRepository)
		clock := clockwork.NewFakeClock()
		svc := newTestService(repo, new(MockTransactionManager), clock)

		repo.On("GetByID", ctx, orgID).Return(org, nil).Twice()

		_, err := svc.PlanFor(ctx, orgID)
		require.NoError(t, err)
		clock.Advance(2 * time.Minute)
		_, err = svc.PlanFor(ctx, orgID)
		require.NoError(t, err)

		repo.AssertExpectations(t)
	})

	t.Run("propagates not found", func(t *testing.T) {
		repo := new(MockOrganizationRepository)
		svc := newTestService(repo, new(MockTransactionManager), nil)

		repo.On("GetByID", ctx, orgID).Return(nil, services.ErrOrganizationNotFound)

		_, err := svc.PlanFor(ctx, orgID)
		assert.ErrorIs(t, err, services.ErrOrganizationNotFound)
		assert.Equal(t, 0, svc.CacheStats().Size)
	})
}

func TestService_ChangePlan(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("commits and invalidates the cached plan", func(t *testing.T) {
		repo := new(MockOrganizationRepository)
		txMgr := new(MockTransactionManager)
		tx := new(MockTransaction)
		svc := newTestService(repo, txMgr, nil)

		repo.On("GetByID", ctx, orgID).Return(&models.Organization{ID: orgID, Plan: models.PlanLite}, nil).Once()
		_, err := svc.PlanFor(ctx, orgID)
		require.NoError(t, err)

		txMgr.On("Begin", ctx).Return(tx, nil)
		tx.On("Commit").Return(nil)
		repo.On("UpdatePlan", ctx, orgID, models.PlanPro).Return(nil)
		repo.On("GetByID", ctx, orgID).Return(&models.Organization{ID: orgID, Plan: models.PlanPro}, nil)

		updated, err := svc.ChangePlan(ctx, orgID, models.PlanPro)
		require.NoError(t, err)
		assert.Equal(t, models.PlanPro, updated.Plan)

		plan, err := svc.PlanFor(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, models.PlanPro, plan)

		repo.AssertExpectations(t)
		tx.AssertExpectations(t)
	})

	t.Run("rolls back when the update fails", func(t *testing.T) {
		repo := new(MockOrganizationRepository)
		txMgr := new(MockTransactionManager)
		tx := new(MockTransaction)
		svc := newTestService(repo, txMgr, nil)

		txMgr.On("Begin", ctx).Return(tx, nil)
		tx.On("Rollback").Return(nil)
		repo.On("UpdatePlan", ctx, orgID, models.PlanPro).Return(services.ErrOrganizationNotFound)

		_, err := svc.ChangePlan(ctx, orgID, models.PlanPro)
		assert.ErrorIs(t, err, services.ErrOrganizationNotFound)
		tx.AssertExpectations(t)
		tx.AssertNotCalled(t, "Commit")
	})

	t.Run("rejects unknown tiers before touching the database", func(t *testing.T) {
		repo := new(MockOrganizationRepository)
		txMgr := new(MockTransactionManager)
		svc := newTestService(repo, txMgr, nil)

		_, err := svc.ChangePlan(ctx, orgID, models.PlanTier("enterprise"))
		assert.True(t, services.IsValidationError(err))
		txMgr.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("begin failure", func(t *testing.T) {
		repo := new(MockOrganizationRepository)
		txMgr := new(MockTransactionManager)
		svc := newTestService(repo, txMgr, nil)

		txMgr.On("Begin", ctx).Return(nil, errors.New("pool exhausted"))

		_, err := svc.ChangePlan(ctx, orgID, models.PlanLite)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})
}
