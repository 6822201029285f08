package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/repositories"
	"github.com/upb/fraudshield/services"
	"go.uber.org/zap"
)

const exclusionColumns = `id, org_id, target, target_type, removed_at, error_message, excluded_at, expires_at, created_at`

// ExclusionRepository implements the repositories.ExclusionRepository interface
type ExclusionRepository struct {
	db     *DB
	logger *zap.Logger
	tx     repositories.Transaction
}

// NewExclusionRepository creates a new exclusion repository
func NewExclusionRepository(db *DB, logger *zap.Logger) repositories.ExclusionRepository {
	return &ExclusionRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new exclusion record
func (r *ExclusionRepository) Create(ctx context.Context, exclusion *models.Exclusion) error {
	query := `
		INSERT INTO exclusions (` + exclusionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	executor := executorFor(ctx, r.db, r.tx)
	_, err := executor.ExecContext(ctx, query,
		exclusion.ID,
		exclusion.OrgID,
		exclusion.Target,
		exclusion.TargetType,
		exclusion.RemovedAt,
		exclusion.ErrorMessage,
		exclusion.ExcludedAt,
		exclusion.ExpiresAt,
		exclusion.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create exclusion: %w", err)
	}

	r.logger.Debug("exclusion created",
		zap.String("id", exclusion.ID.String()),
		zap.String("org_id", exclusion.OrgID.String()),
		zap.String("target", exclusion.Target))
	return nil
}

// GetByID retrieves an exclusion by ID within an organization
func (r *ExclusionRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Exclusion, error) {
	query := `SELECT ` + exclusionColumns + ` FROM exclusions WHERE id = $1 AND org_id = $2`

	exclusion, err := scanExclusion(executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrExclusionNotFound.WithDetail("id", id.String())
		}
		return nil, fmt.Errorf("failed to get exclusion: %w", err)
	}

	return exclusion, nil
}

// ListByOrgID retrieves the exclusions of an organization, newest first
func (r *ExclusionRepository) ListByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Exclusion, error) {
	query := `
		SELECT ` + exclusionColumns + `
		FROM exclusions
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	executor := executorFor(ctx, r.db, r.tx)
	rows, err := executor.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list exclusions: %w", err)
	}
	defer rows.Close()

	var exclusions []*models.Exclusion
	for rows.Next() {
		exclusion, err := scanExclusion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exclusion: %w", err)
		}
		exclusions = append(exclusions, exclusion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exclusion rows: %w", err)
	}

	return exclusions, nil
}

// MarkExcluded records a successful push and clears any stored error
func (r *ExclusionRepository) MarkExcluded(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE exclusions SET excluded_at = $2, error_message = NULL WHERE id = $1`
	return r.exec(ctx, "mark exclusion excluded", query, id, at)
}

// RecordError records a propagation failure message
func (r *ExclusionRepository) RecordError(ctx context.Context, id uuid.UUID, message string) error {
	query := `UPDATE exclusions SET error_message = $2 WHERE id = $1`
	return r.exec(ctx, "record exclusion error", query, id, message)
}

// MarkRemoved records an explicit removal
func (r *ExclusionRepository) MarkRemoved(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE exclusions SET removed_at = $2 WHERE id = $1 AND removed_at IS NULL`
	return r.exec(ctx, "mark exclusion removed", query, id, at)
}

// WithTx returns a new repository instance bound to the transaction
func (r *ExclusionRepository) WithTx(tx repositories.Transaction) repositories.ExclusionRepository {
	return &ExclusionRepository{
		db:     r.db,
		logger: r.logger,
		tx:     tx,
	}
}

// exec runs a single-row update and maps zero affected rows to not found
func (r *ExclusionRepository) exec(ctx context.Context, op, query string, id uuid.UUID, arg interface{}) error {
	executor := executorFor(ctx, r.db, r.tx)
	result, err := executor.ExecContext(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return services.ErrExclusionNotFound.WithDetail("id", id.String())
	}

	r.logger.Debug(op, zap.String("id", id.String()))
	return nil
}

func scanExclusion(row rowScanner) (*models.Exclusion, error) {
	exclusion := &models.Exclusion{}
	err := row.Scan(
		&exclusion.ID,
		&exclusion.OrgID,
		&exclusion.Target,
		&exclusion.TargetType,
		&exclusion.RemovedAt,
		&exclusion.ErrorMessage,
		&exclusion.ExcludedAt,
		&exclusion.ExpiresAt,
		&exclusion.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return exclusion, nil
}
