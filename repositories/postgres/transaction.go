package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/fraudshield/repositories"
	"github.com/upb/fraudshield/services"
	"go.uber.org/zap"
)

type txContextKey struct{}

// TransactionManager opens PostgreSQL transactions for the plan change flow
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{db: db, logger: logger}
}

// Begin starts a transaction. The returned transaction's Context carries it,
// so repositories called with that context join the transaction.
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Transaction{tx: sqlTx, logger: tm.logger}
	tx.ctx = context.WithValue(ctx, txContextKey{}, tx)
	tm.logger.Debug("transaction started")
	return tx, nil
}

// InTransaction runs fn with a transaction-bound context
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	err := services.WithTransaction(ctx, tm, func(_ context.Context, tx repositories.Transaction) error {
		return fn(tx.Context(), tx)
	})
	if err != nil {
		tm.logger.Debug("transaction aborted", zap.Error(err))
	}
	return err
}

// Transaction wraps *sql.Tx
type Transaction struct {
	tx     *sql.Tx
	ctx    context.Context
	logger *zap.Logger
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed")
	return nil
}

// Rollback rolls back the transaction. Rolling back a finished transaction is a no-op.
func (t *Transaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return nil
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.logger.Debug("transaction rolled back")
	return nil
}

// Context returns the transaction-bound context
func (t *Transaction) Context() context.Context {
	return t.ctx
}

// Executor is satisfied by both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// executorFor picks, in order: a transaction bound through WithTx, one carried
// by ctx, then the pool.
func executorFor(ctx context.Context, db *DB, tx repositories.Transaction) Executor {
	if pgTx, ok := tx.(*Transaction); ok && pgTx != nil {
		return pgTx.tx
	}
	if pgTx, ok := ctx.Value(txContextKey{}).(*Transaction); ok {
		return pgTx.tx
	}
	return db.DB
}
