// internal/catalog/service.go
package catalog

import "context"

// Service defines the interface for catalog maintenance.
type Service interface {
	AddBook(ctx context.Context, book *Book) (*Book, error)
	GetBook(ctx context.Context, isbn string) (*Book, error)
}
