// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"biblio/internal/catalog"
	"biblio/internal/normalize"
	"biblio/internal/storage"
)

// service implements the Service interface.
type service struct {
	store     Store
	books     CatalogRepository
	borrowers BorrowerRepository
	loans     LoanRepository
	policy    Policy
	now       func() time.Time
}

// NewService creates a circulation service. All business rules come from
// the injected policy.
func NewService(store Store, books CatalogRepository, borrowers BorrowerRepository, loans LoanRepository, policy Policy) Service {
	return &service{
		store:     store,
		books:     books,
		borrowers: borrowers,
		loans:     loans,
		policy:    policy,
		now:       time.Now,
	}
}

// Search looks up books by title, author, or ISBN. No match is an empty
// result, not an error.
func (s *service) Search(ctx context.Context, query string, by catalog.SearchBy) ([]catalog.Book, error) {
	if by == catalog.SearchByISBN {
		canonical, err := normalize.CanonicalISBN(query)
		if err != nil {
			return nil, nil
		}
		query = canonical
	}
	return s.books.Search(ctx, s.store.Querier(), query, by)
}

// Checkout lends one copy to a borrower. The availability check and the
// decrement are one conditional update inside the transaction, so the last
// copy cannot be handed out twice.
func (s *service) Checkout(ctx context.Context, cardID, isbn string) (*Loan, error) {
	canonical, err := normalize.CanonicalISBN(isbn)
	if err != nil {
		return nil, catalog.ErrNotFound
	}

	var loan *Loan
	err = s.store.InTx(ctx, "circulation.checkout", func(ctx context.Context, q storage.Querier) error {
		holder, err := s.borrowers.Get(ctx, q, cardID)
		if err != nil {
			return err
		}
		if holder.FineBalance > s.policy.FineThreshold {
			return ErrFineThreshold
		}

		open, err := s.loans.CountOpen(ctx, q, cardID)
		if err != nil {
			return err
		}
		if open >= s.policy.MaxOpenLoans {
			return ErrLoanLimitExceeded
		}

		if err := s.books.ReserveCopy(ctx, q, canonical); err != nil {
			return err
		}

		now := s.now()
		loan = &Loan{
			ID:           uuid.New(),
			ISBN:         canonical,
			CardID:       cardID,
			CheckoutDate: now,
			DueDate:      now.AddDate(0, 0, s.policy.LoanPeriodDays),
			Status:       StatusActive,
		}
		return s.loans.Insert(ctx, q, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Return closes an open loan: stamps the return date, computes the overdue
// fine, adds it to the borrower's balance, and puts the copy back.
func (s *service) Return(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	var returned *Loan
	err := s.store.InTx(ctx, "circulation.return", func(ctx context.Context, q storage.Querier) error {
		loan, err := s.loans.Get(ctx, q, loanID)
		if err != nil {
			return err
		}
		if loan.Status == StatusReturned {
			return ErrAlreadyReturned
		}

		now := s.now()
		fine := fineFor(overdueDays(now, loan.DueDate), s.policy.DailyFineRate)

		ok, err := s.loans.MarkReturned(ctx, q, loanID, now, fine)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyReturned
		}

		if fine > 0 {
			if err := s.borrowers.AddFine(ctx, q, loan.CardID, fine); err != nil {
				return err
			}
		}

		if err := s.books.ReleaseCopy(ctx, q, loan.ISBN); err != nil {
			if errors.Is(err, catalog.ErrCopyConflict) {
				return fmt.Errorf("%w: release %s: %v", ErrInventoryConsistency, loan.ISBN, err)
			}
			return err
		}

		loan.ReturnDate = &now
		loan.FineAmount = &fine
		loan.Status = StatusReturned
		returned = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

// PayFine settles part or all of the borrower's balance. Overpayment is
// rejected, never clamped.
func (s *service) PayFine(ctx context.Context, cardID string, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidPayment
	}

	var balance float64
	err := s.store.InTx(ctx, "circulation.pay_fine", func(ctx context.Context, q storage.Querier) error {
		holder, err := s.borrowers.Get(ctx, q, cardID)
		if err != nil {
			return err
		}
		if amount > holder.FineBalance {
			return ErrInvalidPayment
		}

		newBalance, ok, err := s.borrowers.DeductFine(ctx, q, cardID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidPayment
		}
		balance = newBalance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// LoanHistory lists the borrower's loans, open and returned, most recent
// checkout first.
func (s *service) LoanHistory(ctx context.Context, cardID string) ([]Loan, error) {
	q := s.store.Querier()
	if _, err := s.borrowers.Get(ctx, q, cardID); err != nil {
		return nil, err
	}
	return s.loans.ListByCard(ctx, q, cardID)
}
