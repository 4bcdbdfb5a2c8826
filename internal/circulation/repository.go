// internal/circulation/repository.go
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"biblio/internal/storage"
)

// Repository gives relational access to LOAN.
type Repository struct{}

func NewRepository() *Repository { return &Repository{} }

// Insert records a freshly checked-out loan.
func (r *Repository) Insert(ctx context.Context, q storage.Querier, loan *Loan) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO loans (loan_id, isbn, card_id, checkout_date, due_date, return_date, fine_amount)
		VALUES ($1, $2, $3, $4, $5, NULL, NULL)
	`, loan.ID, loan.ISBN, loan.CardID, loan.CheckoutDate, loan.DueDate)
	return storage.WrapErr("loan.insert", err)
}

// Get fetches one loan by id.
func (r *Repository) Get(ctx context.Context, q storage.Querier, id uuid.UUID) (*Loan, error) {
	var loan Loan
	err := sqlx.GetContext(ctx, q, &loan, `
		SELECT loan_id, isbn, card_id, checkout_date, due_date, return_date, fine_amount
		FROM loans
		WHERE loan_id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, storage.WrapErr("loan.get", err)
	}
	tagStatus(&loan)
	return &loan, nil
}

// CountOpen returns the borrower's number of open loans.
func (r *Repository) CountOpen(ctx context.Context, q storage.Querier, cardID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, `
		SELECT COUNT(*) FROM loans
		WHERE card_id = $1 AND return_date IS NULL
	`, cardID)
	if err != nil {
		return 0, storage.WrapErr("loan.count_open", err)
	}
	return n, nil
}

// MarkReturned closes an open loan, setting return date and fine together
// so the both-or-neither invariant holds at the row level. ok is false when
// the loan was not open, which a concurrent return can cause.
func (r *Repository) MarkReturned(ctx context.Context, q storage.Querier, id uuid.UUID, returnedAt time.Time, fine float64) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE loans
		SET return_date = $2, fine_amount = $3
		WHERE loan_id = $1 AND return_date IS NULL
	`, id, returnedAt, fine)
	if err != nil {
		return false, storage.WrapErr("loan.mark_returned", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ListByCard returns the borrower's full loan history, most recent
// checkout first.
func (r *Repository) ListByCard(ctx context.Context, q storage.Querier, cardID string) ([]Loan, error) {
	var loans []Loan
	err := sqlx.SelectContext(ctx, q, &loans, `
		SELECT loan_id, isbn, card_id, checkout_date, due_date, return_date, fine_amount
		FROM loans
		WHERE card_id = $1
		ORDER BY checkout_date DESC, loan_id
	`, cardID)
	if err != nil {
		return nil, storage.WrapErr("loan.list", err)
	}
	for i := range loans {
		tagStatus(&loans[i])
	}
	return loans, nil
}

func tagStatus(loan *Loan) {
	if loan.ReturnDate == nil {
		loan.Status = StatusActive
	} else {
		loan.Status = StatusReturned
	}
}
