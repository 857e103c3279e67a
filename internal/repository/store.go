// Package repository implements the engine's storage surface on PostgreSQL
// with raw SQL. All mutations used by the state machine go through InTx;
// read-only consumers use the plain connection.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/common/metrics"
	"github.com/LYTE-studios/werkr-engine/internal/declaration"
	"github.com/LYTE-studios/werkr-engine/internal/engine"
	"github.com/LYTE-studios/werkr-engine/internal/profile"
	"github.com/LYTE-studios/werkr-engine/internal/stats"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	_ engine.Storage    = (*Store)(nil)
	_ declaration.Store = (*Store)(nil)
	_ profile.Store     = (*Store)(nil)
	_ stats.Store       = (*Store)(nil)
)

// Store bundles all repositories over one connection or transaction.
type Store struct {
	db         *sql.DB
	q          Querier
	maxRetries int
	log        logger.Logger
}

func NewStore(db *sql.DB, maxRetries int, log logger.Logger) *Store {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Store{db: db, q: db, maxRetries: maxRetries, log: log}
}

func (s *Store) withTx(tx *sql.Tx) *Store {
	return &Store{db: s.db, q: tx, maxRetries: s.maxRetries, log: s.log}
}

// InTx runs fn in a serializable transaction, retrying on serialization
// failures and deadlocks up to the configured bound. Exhausting the budget
// surfaces a concurrency conflict instead of silently dropping one of the
// contending operations.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, r engine.Repos) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.TxRetries.Inc()
			s.log.Debug("retrying transaction after serialization conflict", map[string]interface{}{
				"attempt": attempt,
			})
		}
		err = s.runTx(ctx, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
	}
	return domainerr.NewConcurrencyConflict(err)
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, r engine.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, s.withTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
