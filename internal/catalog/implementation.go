// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"

	"biblio/internal/normalize"
	"biblio/internal/storage"
)

// service implements the Service interface.
type service struct {
	store *storage.Store
	repo  *Repository
}

// NewService creates a catalog service backed by the relational store.
func NewService(store *storage.Store, repo *Repository) Service {
	return &service{store: store, repo: repo}
}

// AddBook catalogs a single title outside a batch run. The ISBN is
// canonicalized the same way the normalizer does it, so manual entry and
// bulk load land on the same identifier.
func (s *service) AddBook(ctx context.Context, book *Book) (*Book, error) {
	isbn, err := normalize.CanonicalISBN(book.ISBN)
	if err != nil {
		return nil, fmt.Errorf("add book: %w", err)
	}
	if book.Title == "" {
		return nil, fmt.Errorf("add book: title is required")
	}
	if book.TotalCopies < 0 {
		return nil, fmt.Errorf("add book: negative copy count")
	}

	added := &Book{
		ISBN:            isbn,
		Title:           book.Title,
		Publisher:       book.Publisher,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.TotalCopies,
		Authors:         book.Authors,
	}
	err = s.store.InTx(ctx, "catalog.add_book", func(ctx context.Context, q storage.Querier) error {
		return s.repo.Insert(ctx, q, added)
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// GetBook fetches one title with its authors.
func (s *service) GetBook(ctx context.Context, isbn string) (*Book, error) {
	canonical, err := normalize.CanonicalISBN(isbn)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, s.store.Querier(), canonical)
}
