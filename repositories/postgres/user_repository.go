package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/repositories"
	"github.com/upb/fraudshield/services"
	"go.uber.org/zap"
)

// Users are always read together with their optional admin profile
const userSelect = `
	SELECT u.id, u.email, u.subject, u.org_id, u.created_at, u.updated_at, a.access_level
	FROM users u
	LEFT JOIN admin_profiles a ON a.user_id = u.id
`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
	tx     repositories.Transaction
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user. An attached admin profile is stored alongside.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, subject, org_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor := executorFor(ctx, r.db, r.tx)
	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Subject,
		user.OrgID,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if user.Admin != nil {
		if err := r.SetAdminProfile(ctx, user.ID, user.Admin); err != nil {
			return err
		}
	}

	r.logger.Debug("user created", zap.String("id", user.ID.String()), zap.String("email", user.Email))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := userSelect + `WHERE u.id = $1`

	user, err := scanUser(executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrUserNotFound.WithDetail("id", id.String())
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetBySubject retrieves a user by token subject
func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	query := userSelect + `WHERE u.subject = $1`

	user, err := scanUser(executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, subject))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrUserNotFound.WithDetail("subject", subject)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByOrgID retrieves all users in an organization
func (r *UserRepository) GetByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	query := userSelect + `WHERE u.org_id = $1 ORDER BY u.created_at DESC`

	executor := executorFor(ctx, r.db, r.tx)
	rows, err := executor.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by org: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// SetAdminProfile upserts the admin profile of a user, or deletes it when profile is nil
func (r *UserRepository) SetAdminProfile(ctx context.Context, userID uuid.UUID, profile *models.AdminProfile) error {
	executor := executorFor(ctx, r.db, r.tx)

	if profile == nil {
		if _, err := executor.ExecContext(ctx, `DELETE FROM admin_profiles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to remove admin profile: %w", err)
		}
		r.logger.Debug("admin profile removed", zap.String("user_id", userID.String()))
		return nil
	}

	if !profile.AccessLevel.IsValid() {
		return services.ErrInvalidInput.WithDetail("access_level", string(profile.AccessLevel))
	}

	query := `
		INSERT INTO admin_profiles (user_id, access_level)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET access_level = EXCLUDED.access_level
	`
	if _, err := executor.ExecContext(ctx, query, userID, profile.AccessLevel); err != nil {
		return fmt.Errorf("failed to set admin profile: %w", err)
	}

	r.logger.Debug("admin profile set",
		zap.String("user_id", userID.String()),
		zap.String("access_level", string(profile.AccessLevel)))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *UserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return &UserRepository{
		db:     r.db,
		logger: r.logger,
		tx:     tx,
	}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var accessLevel sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Subject,
		&user.OrgID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&accessLevel,
	)
	if err != nil {
		return nil, err
	}
	if accessLevel.Valid {
		user.Admin = &models.AdminProfile{AccessLevel: models.AccessLevel(accessLevel.String)}
	}
	return user, nil
}
