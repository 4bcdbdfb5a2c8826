// internal/borrower/implementation.go
package borrower

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"biblio/internal/storage"
)

// service implements the Service interface.
type service struct {
	store   *storage.Store
	repo    *Repository
	limiter *rate.Limiter
}

// NewService creates a borrower service backed by the relational store.
func NewService(store *storage.Store, repo *Repository) Service {
	return &service{
		store:   store,
		repo:    repo,
		limiter: rate.NewLimiter(rate.Every(time.Second), 20),
	}
}

// Register creates a new borrower with a zero fine balance.
func (s *service) Register(ctx context.Context, b *Borrower) (*Borrower, error) {
	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}
	if !ValidCardID(b.CardID) {
		return nil, ErrInvalidCardID
	}

	registered := &Borrower{
		CardID:  b.CardID,
		Name:    b.Name,
		Address: b.Address,
		Phone:   b.Phone,
	}
	err := s.store.InTx(ctx, "borrower.register", func(ctx context.Context, q storage.Querier) error {
		return s.repo.Insert(ctx, q, registered)
	})
	if err != nil {
		return nil, err
	}
	return registered, nil
}

// Get fetches one borrower by card id.
func (s *service) Get(ctx context.Context, cardID string) (*Borrower, error) {
	return s.repo.Get(ctx, s.store.Querier(), cardID)
}
