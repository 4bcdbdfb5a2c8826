// internal/borrower/domain.go
package borrower

import (
	"errors"
	"regexp"
)

// Borrower represents a library card holder. The fine balance only moves
// through returns (up) and payments (down) and never goes negative.
type Borrower struct {
	CardID      string  `db:"card_id" json:"card_id"`
	Name        string  `db:"name" json:"name"`
	Address     string  `db:"address" json:"address,omitempty"`
	Phone       string  `db:"phone" json:"phone,omitempty"`
	FineBalance float64 `db:"fine_balance" json:"fine_balance"`
}

var (
	ErrNotFound      = errors.New("borrower: not found")
	ErrDuplicateCard = errors.New("borrower: card id already registered")
	ErrInvalidCardID = errors.New("borrower: invalid card id")

	// ErrRateLimited guards the registration endpoint against bursts.
	ErrRateLimited = errors.New("borrower: registration rate limit exceeded")
)

var cardIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{4,16}$`)

// ValidCardID reports whether id has the expected card id shape.
func ValidCardID(id string) bool {
	return cardIDPattern.MatchString(id)
}
