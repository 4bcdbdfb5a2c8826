// internal/borrower/service.go
package borrower

import "context"

// Service defines the interface for borrower registration and lookup.
type Service interface {
	Register(ctx context.Context, b *Borrower) (*Borrower, error)
	Get(ctx context.Context, cardID string) (*Borrower, error)
}
