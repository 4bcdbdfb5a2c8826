// internal/loader/loader.go
package loader

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"biblio/internal/catalog"
	"biblio/internal/normalize"
)

// Loader bulk-inserts normalized row sets into the relational store using
// COPY. One LoadDir call is one transaction: either every table loads or
// none does.
type Loader struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Loader { return &Loader{db: db} }

// Counts reports how many rows each table received.
type Counts struct {
	Books     int
	Authors   int
	Links     int
	Borrowers int
}

// EnsureSchema applies the idempotent DDL.
func (l *Loader) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// LoadDir loads the four normalized CSV files written by the normalizer.
// Load order follows foreign keys: authors and books before links.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Counts, error) {
	var counts Counts

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	counts.Books, err = l.copyFile(ctx, tx, filepath.Join(dir, normalize.BooksFile),
		pq.CopyIn("books", "isbn", "title", "publisher", "total_copies", "available_copies"),
		func(row []string) []any { return []any{row[0], row[1], row[2], row[3], row[4]} })
	if err != nil {
		return counts, err
	}

	counts.Authors, err = l.copyFile(ctx, tx, filepath.Join(dir, normalize.AuthorsFile),
		pq.CopyIn("authors", "author_id", "name", "name_key"),
		func(row []string) []any { return []any{row[0], row[1], catalog.NameKey(row[1])} })
	if err != nil {
		return counts, err
	}

	counts.Links, err = l.copyFile(ctx, tx, filepath.Join(dir, normalize.LinksFile),
		pq.CopyIn("book_authors", "isbn", "author_id", "position"),
		func(row []string) []any { return []any{row[0], row[1], row[2]} })
	if err != nil {
		return counts, err
	}

	counts.Borrowers, err = l.copyFile(ctx, tx, filepath.Join(dir, normalize.BorrowersFile),
		pq.CopyIn("borrowers", "card_id", "name", "address", "phone", "fine_balance"),
		func(row []string) []any { return []any{row[0], row[1], row[2], row[3], row[4]} })
	if err != nil {
		return counts, err
	}

	// COPY bypasses the identity sequence; realign it so later manual
	// cataloging does not collide with loaded author ids.
	_, err = tx.ExecContext(ctx, `
		SELECT setval(pg_get_serial_sequence('authors', 'author_id'),
		              GREATEST((SELECT COALESCE(MAX(author_id), 1) FROM authors), 1))
	`)
	if err != nil {
		return counts, fmt.Errorf("realign author sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("commit load: %w", err)
	}

	slog.Info("bulk load complete",
		"books", counts.Books,
		"authors", counts.Authors,
		"links", counts.Links,
		"borrowers", counts.Borrowers,
	)
	return counts, nil
}

func (l *Loader) copyFile(ctx context.Context, tx *sqlx.Tx, path, copyStmt string, values func([]string) []any) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%s: missing header row", path)
	}

	stmt, err := tx.PrepareContext(ctx, copyStmt)
	if err != nil {
		return 0, fmt.Errorf("prepare copy for %s: %w", path, err)
	}
	defer func(s *sql.Stmt) { _ = s.Close() }(stmt)

	n := 0
	for _, row := range rows[1:] {
		if _, err := stmt.ExecContext(ctx, values(row)...); err != nil {
			return 0, fmt.Errorf("copy row into %s: %w", path, err)
		}
		n++
	}
	// Final Exec flushes the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("flush copy for %s: %w", path, err)
	}
	return n, nil
}
