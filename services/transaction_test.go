package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/repositories"
)

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
	return m.Called(ctx, fn).Error(0)
}

type MockTransaction struct {
	mock.Mock
}

func (m *MockTransaction) Commit() error   { return m.Called().Error(0) }
func (m *MockTransaction) Rollback() error { return m.Called().Error(0) }
func (m *MockTransaction) Context() context.Context {
	return context.Background()
}

func TestWithTransactionResult(t *testing.T) {
	orgID := uuid.New()
	upgraded := &models.Organization{ID: orgID, Plan: models.PlanPro}

	tests := []struct {
		name        string
		beginErr    error
		workErr     error
		commitErr   error
		rollbackErr error
		wantOrg     *models.Organization
		wantErr     string
		wantIs      error
	}{
		{
			name:    "commits and returns the organization",
			wantOrg: upgraded,
		},
		{
			name:     "begin failure skips the work",
			beginErr: errors.New("connection reset"),
			wantErr:  "failed to begin transaction",
		},
		{
			name:    "work failure rolls back and keeps the domain error",
			workErr: ErrOrganizationNotFound,
			wantIs:  ErrOrganizationNotFound,
		},
		{
			name:        "rollback failure is combined with the work error",
			workErr:     ErrOrganizationNotFound,
			rollbackErr: errors.New("bad connection"),
			wantErr:     "rollback failed",
			wantIs:      ErrOrganizationNotFound,
		},
		{
			name:      "commit failure is reported",
			commitErr: errors.New("serialization failure"),
			wantErr:   "failed to commit transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			txMgr := new(MockTransactionManager)
			tx := new(MockTransaction)

			if tt.beginErr != nil {
				txMgr.On("Begin", ctx).Return(nil, tt.beginErr)
			} else {
				txMgr.On("Begin", ctx).Return(tx, nil)
			}
			if tt.workErr != nil {
				tx.On("Rollback").Return(tt.rollbackErr)
			} else if tt.beginErr == nil {
				tx.On("Commit").Return(tt.commitErr)
			}

			called := false
			org, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Organization, error) {
				called = true
				if tt.workErr != nil {
					return nil, tt.workErr
				}
				return upgraded, nil
			})

			assert.Equal(t, tt.beginErr == nil, called)
			if tt.wantErr == "" && tt.wantIs == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.wantOrg, org)
			} else {
				require.Error(t, err)
				assert.Nil(t, org)
				if tt.wantErr != "" {
					assert.Contains(t, err.Error(), tt.wantErr)
				}
				if tt.wantIs != nil {
					assert.ErrorIs(t, err, tt.wantIs)
				}
			}
			txMgr.AssertExpectations(t)
			tx.AssertExpectations(t)
		})
	}
}

func TestWithTransactionResult_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	txMgr := new(MockTransactionManager)
	tx := new(MockTransaction)
	txMgr.On("Begin", ctx).Return(tx, nil)
	tx.On("Rollback").Return(nil)

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (int, error) {
			panic("boom")
		})
	})
	tx.AssertExpectations(t)
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()
	txMgr := new(MockTransactionManager)
	tx := new(MockTransaction)
	txMgr.On("Begin", ctx).Return(tx, nil)
	tx.On("Rollback").Return(nil)

	err := WithTransaction(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		return ErrInvalidInput
	})

	assert.ErrorIs(t, err, ErrInvalidInput)
	tx.AssertExpectations(t)
	tx.AssertNotCalled(t, "Commit")
}
