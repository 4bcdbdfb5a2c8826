// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories can
// run the same statements inside or outside a transaction.
type Querier = sqlx.ExtContext

// StoreError wraps a driver-level failure. It always means the in-flight
// operation may or may not have committed, so callers must surface it
// rather than retry blindly.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapErr tags a repository-level failure with the operation it came from.
// Returns nil when err is nil so call sites can wrap unconditionally.
func WrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Store provides transactional access to the relational store.
type Store struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return NewStore(db), nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:     db,
		tracer: otel.Tracer("biblio/storage"),
	}
}

// Querier returns the underlying pool for non-transactional reads.
func (s *Store) Querier() Querier { return s.db }

// DB exposes the pool for callers that manage their own statements,
// such as the bulk loader.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// InTx runs fn inside a serializable transaction. The transaction is rolled
// back on any error from fn, so a failed business-rule check never leaves
// partial state behind.
func (s *Store) InTx(ctx context.Context, op string, fn func(ctx context.Context, q Querier) error) error {
	ctx, span := s.tracer.Start(ctx, op,
		trace.WithAttributes(attribute.String("db.operation", op)),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return &StoreError{Op: op + ": begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, tx); err != nil {
		span.RecordError(err)
		return err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return &StoreError{Op: op + ": commit", Err: err}
	}
	return nil
}
