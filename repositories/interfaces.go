package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/fraudshield/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// OrganizationRepository handles organization (tenant) data operations
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// GetByID retrieves an organization by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	// GetBySlug retrieves an organization by slug
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// List retrieves all organizations with pagination
	List(ctx context.Context, limit, offset int) ([]*models.Organization, error)

	// UpdatePlan changes the plan tier of an organization
	UpdatePlan(ctx context.Context, id uuid.UUID, plan models.PlanTier) error

	// Delete deletes an organization
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) OrganizationRepository
}

// UserRepository handles dashboard users and their admin profiles
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user, including the admin profile if any
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetBySubject retrieves a user by token subject, including the admin profile if any
	GetBySubject(ctx context.Context, subject string) (*models.User, error)

	// GetByOrgID retrieves all users of an organization
	GetByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.User, error)

	// SetAdminProfile attaches or replaces the admin profile of a user.
	// A nil profile removes admin access.
	SetAdminProfile(ctx context.Context, userID uuid.UUID, profile *models.AdminProfile) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// ExclusionRepository handles exclusion (block) records
type ExclusionRepository interface {
	// Create creates a new exclusion record
	Create(ctx context.Context, exclusion *models.Exclusion) error

	// GetByID retrieves an exclusion scoped to its organization
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Exclusion, error)

	// ListByOrgID retrieves the exclusions of an organization with pagination
	ListByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Exclusion, error)

	// MarkExcluded records a successful push to the ad network and clears any error
	MarkExcluded(ctx context.Context, id uuid.UUID, at time.Time) error

	// RecordError records a propagation failure
	RecordError(ctx context.Context, id uuid.UUID, message string) error

	// MarkRemoved records an explicit removal
	MarkRemoved(ctx context.Context, id uuid.UUID, at time.Time) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) ExclusionRepository
}

// Repositories holds all repository instances
type Repositories struct {
	Organizations OrganizationRepository
	Users         UserRepository
	Exclusions    ExclusionRepository
}
