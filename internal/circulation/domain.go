// internal/circulation/domain.go
package circulation

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// Status is the loan lifecycle state. A loan is created ACTIVE and moves to
// RETURNED exactly once; RETURNED is terminal.
type Status string

const (
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
)

// Loan represents one checkout of one copy. ReturnDate and FineAmount are
// both nil while the loan is open and both set once it is returned; every
// write path maintains that pairing.
type Loan struct {
	ID           uuid.UUID  `db:"loan_id" json:"loan_id"`
	ISBN         string     `db:"isbn" json:"isbn"`
	CardID       string     `db:"card_id" json:"card_id"`
	CheckoutDate time.Time  `db:"checkout_date" json:"checkout_date"`
	DueDate      time.Time  `db:"due_date" json:"due_date"`
	ReturnDate   *time.Time `db:"return_date" json:"return_date,omitempty"`
	FineAmount   *float64   `db:"fine_amount" json:"fine_amount,omitempty"`
	Status       Status     `db:"-" json:"status"`
}

// Policy holds the circulation rules. It is injected by the host
// application; the service never reads configuration itself.
type Policy struct {
	LoanPeriodDays int
	DailyFineRate  float64
	MaxOpenLoans   int
	FineThreshold  float64
}

var (
	ErrLoanNotFound      = errors.New("circulation: loan not found")
	ErrAlreadyReturned   = errors.New("circulation: loan already returned")
	ErrLoanLimitExceeded = errors.New("circulation: open loan limit reached")
	ErrFineThreshold     = errors.New("circulation: outstanding fines block checkout")
	ErrInvalidPayment    = errors.New("circulation: invalid payment amount")

	// ErrInventoryConsistency indicates the loan and book rows disagree,
	// e.g. a return that would push availability past the total count.
	ErrInventoryConsistency = errors.New("circulation: inventory consistency violation")
)

// overdueDays counts whole civil days past the due date, never negative.
func overdueDays(returnedAt, due time.Time) int {
	days := int(civilDay(returnedAt).Sub(civilDay(due)) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fineFor rounds to whole cents at the one place a fine is produced.
func fineFor(days int, dailyRate float64) float64 {
	return math.Round(float64(days)*dailyRate*100) / 100
}
