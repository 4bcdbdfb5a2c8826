// internal/catalog/repository.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"biblio/internal/storage"
)

// Repository gives relational access to BOOK, AUTHORS and BOOK_AUTHORS.
// Methods take a storage.Querier so the circulation service can run them
// inside its own transaction.
type Repository struct{}

func NewRepository() *Repository { return &Repository{} }

// Get fetches one book with its authors in catalog order.
func (r *Repository) Get(ctx context.Context, q storage.Querier, isbn string) (*Book, error) {
	var book Book
	err := sqlx.GetContext(ctx, q, &book, `
		SELECT isbn, title, publisher, total_copies, available_copies
		FROM books
		WHERE isbn = $1
	`, isbn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.WrapErr("catalog.get", err)
	}
	if err := r.attachAuthors(ctx, q, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *Repository) attachAuthors(ctx context.Context, q storage.Querier, book *Book) error {
	err := sqlx.SelectContext(ctx, q, &book.Authors, `
		SELECT a.name
		FROM book_authors ba
		JOIN authors a ON a.author_id = ba.author_id
		WHERE ba.isbn = $1
		ORDER BY ba.position
	`, book.ISBN)
	return storage.WrapErr("catalog.authors", err)
}

// Search finds books by title substring, author-name substring, or exact
// ISBN. Results come back in match-position order, ties broken by ISBN, so
// the same query always renders the same list.
func (r *Repository) Search(ctx context.Context, q storage.Querier, query string, by SearchBy) ([]Book, error) {
	var (
		books []Book
		err   error
	)
	switch by {
	case SearchByTitle:
		err = sqlx.SelectContext(ctx, q, &books, `
			SELECT isbn, title, publisher, total_copies, available_copies
			FROM books
			WHERE lower(title) LIKE '%' || lower($1) || '%'
			ORDER BY position(lower($1) IN lower(title)), isbn
		`, query)
	case SearchByAuthor:
		err = sqlx.SelectContext(ctx, q, &books, `
			SELECT b.isbn, b.title, b.publisher, b.total_copies, b.available_copies
			FROM books b
			JOIN book_authors ba ON ba.isbn = b.isbn
			JOIN authors a ON a.author_id = ba.author_id
			WHERE lower(a.name) LIKE '%' || lower($1) || '%'
			GROUP BY b.isbn, b.title, b.publisher, b.total_copies, b.available_copies
			ORDER BY min(position(lower($1) IN lower(a.name))), b.isbn
		`, query)
	case SearchByISBN:
		err = sqlx.SelectContext(ctx, q, &books, `
			SELECT isbn, title, publisher, total_copies, available_copies
			FROM books
			WHERE isbn = $1
		`, query)
	default:
		return nil, fmt.Errorf("catalog: unknown search mode %q", by)
	}
	if err != nil {
		return nil, storage.WrapErr("catalog.search", err)
	}
	for i := range books {
		if err := r.attachAuthors(ctx, q, &books[i]); err != nil {
			return nil, err
		}
	}
	return books, nil
}

// ReserveCopy takes one available copy off the shelf. The decrement is
// conditional, so two concurrent reservations cannot oversell the last copy.
func (r *Repository) ReserveCopy(ctx context.Context, q storage.Querier, isbn string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1
		WHERE isbn = $1 AND available_copies > 0
	`, isbn)
	if err != nil {
		return storage.WrapErr("catalog.reserve", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var exists bool
	err = sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`, isbn)
	if err != nil {
		return storage.WrapErr("catalog.reserve", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNoCopies
}

// ReleaseCopy puts a copy back. Availability is capped at the total copy
// count; hitting the cap here means the loan and book rows disagree.
func (r *Repository) ReleaseCopy(ctx context.Context, q storage.Querier, isbn string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1
		WHERE isbn = $1 AND available_copies < total_copies
	`, isbn)
	if err != nil {
		return storage.WrapErr("catalog.release", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCopyConflict
	}
	return nil
}

// Insert catalogs a new title with its author list. Author names are
// deduplicated against AUTHORS by normalized key; first-seen casing wins.
func (r *Repository) Insert(ctx context.Context, q storage.Querier, b *Book) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO books (isbn, title, publisher, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ISBN, b.Title, b.Publisher, b.TotalCopies, b.AvailableCopies)
	if storage.IsUniqueViolation(err) {
		return ErrDuplicateISBN
	}
	if err != nil {
		return storage.WrapErr("catalog.insert", err)
	}

	for pos, name := range b.Authors {
		authorID, err := r.upsertAuthor(ctx, q, name)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO book_authors (isbn, author_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (isbn, author_id) DO NOTHING
		`, b.ISBN, authorID, pos)
		if err != nil {
			return storage.WrapErr("catalog.link", err)
		}
	}
	return nil
}

func (r *Repository) upsertAuthor(ctx context.Context, q storage.Querier, name string) (int, error) {
	var id int
	err := q.QueryRowxContext(ctx, `
		INSERT INTO authors (name, name_key)
		VALUES ($1, $2)
		ON CONFLICT (name_key) DO UPDATE SET name_key = EXCLUDED.name_key
		RETURNING author_id
	`, name, NameKey(name)).Scan(&id)
	if err != nil {
		return 0, storage.WrapErr("catalog.author", err)
	}
	return id, nil
}
