// internal/borrower/repository.go
package borrower

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"biblio/internal/storage"
)

// Repository gives relational access to BORROWER. Fine mutations are
// conditional updates so a concurrent payment and return cannot drive the
// balance negative.
type Repository struct{}

func NewRepository() *Repository { return &Repository{} }

// Get fetches one borrower by card id.
func (r *Repository) Get(ctx context.Context, q storage.Querier, cardID string) (*Borrower, error) {
	var b Borrower
	err := sqlx.GetContext(ctx, q, &b, `
		SELECT card_id, name, address, phone, fine_balance
		FROM borrowers
		WHERE card_id = $1
	`, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.WrapErr("borrower.get", err)
	}
	return &b, nil
}

// Insert registers a new borrower.
func (r *Repository) Insert(ctx context.Context, q storage.Querier, b *Borrower) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO borrowers (card_id, name, address, phone, fine_balance)
		VALUES ($1, $2, $3, $4, $5)
	`, b.CardID, b.Name, b.Address, b.Phone, b.FineBalance)
	if storage.IsUniqueViolation(err) {
		return ErrDuplicateCard
	}
	return storage.WrapErr("borrower.insert", err)
}

// AddFine increases the borrower's balance by amount.
func (r *Repository) AddFine(ctx context.Context, q storage.Querier, cardID string, amount float64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE borrowers
		SET fine_balance = round((fine_balance + $2)::numeric, 2)
		WHERE card_id = $1
	`, cardID, amount)
	if err != nil {
		return storage.WrapErr("borrower.add_fine", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeductFine lowers the balance by amount, refusing to go below zero.
// ok is false when the balance did not cover the amount.
func (r *Repository) DeductFine(ctx context.Context, q storage.Querier, cardID string, amount float64) (newBalance float64, ok bool, err error) {
	err = q.QueryRowxContext(ctx, `
		UPDATE borrowers
		SET fine_balance = round((fine_balance - $2)::numeric, 2)
		WHERE card_id = $1 AND fine_balance >= $2
		RETURNING fine_balance
	`, cardID, amount).Scan(&newBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storage.WrapErr("borrower.deduct_fine", err)
	}
	return newBalance, true, nil
}
