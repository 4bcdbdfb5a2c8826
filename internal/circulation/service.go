// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"biblio/internal/borrower"
	"biblio/internal/catalog"
	"biblio/internal/storage"
)

// Service defines the interface for the circulation desk: searching the
// catalog, checking books out and in, and settling fines.
type Service interface {
	Search(ctx context.Context, query string, by catalog.SearchBy) ([]catalog.Book, error)
	Checkout(ctx context.Context, cardID, isbn string) (*Loan, error)
	Return(ctx context.Context, loanID uuid.UUID) (*Loan, error)
	PayFine(ctx context.Context, cardID string, amount float64) (float64, error)
	LoanHistory(ctx context.Context, cardID string) ([]Loan, error)
}

// Store is the transactional slice of storage.Store the service needs.
// Every mutating operation runs inside one InTx call.
type Store interface {
	Querier() storage.Querier
	InTx(ctx context.Context, op string, fn func(ctx context.Context, q storage.Querier) error) error
}

// CatalogRepository is the catalog access the service depends on.
type CatalogRepository interface {
	Get(ctx context.Context, q storage.Querier, isbn string) (*catalog.Book, error)
	Search(ctx context.Context, q storage.Querier, query string, by catalog.SearchBy) ([]catalog.Book, error)
	ReserveCopy(ctx context.Context, q storage.Querier, isbn string) error
	ReleaseCopy(ctx context.Context, q storage.Querier, isbn string) error
}

// BorrowerRepository is the borrower access the service depends on.
type BorrowerRepository interface {
	Get(ctx context.Context, q storage.Querier, cardID string) (*borrower.Borrower, error)
	AddFine(ctx context.Context, q storage.Querier, cardID string, amount float64) error
	DeductFine(ctx context.Context, q storage.Querier, cardID string, amount float64) (float64, bool, error)
}

// LoanRepository is the loan access the service depends on.
type LoanRepository interface {
	Insert(ctx context.Context, q storage.Querier, loan *Loan) error
	Get(ctx context.Context, q storage.Querier, id uuid.UUID) (*Loan, error)
	CountOpen(ctx context.Context, q storage.Querier, cardID string) (int, error)
	MarkReturned(ctx context.Context, q storage.Querier, id uuid.UUID, returnedAt time.Time, fine float64) (bool, error)
	ListByCard(ctx context.Context, q storage.Querier, cardID string) ([]Loan, error)
}
