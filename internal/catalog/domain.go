// internal/catalog/domain.go
package catalog

import (
	"errors"
	"strings"
)

// Book represents one cataloged title. Copies of the same ISBN are tracked
// as counts, not as separate rows; available never exceeds total.
type Book struct {
	ISBN            string   `db:"isbn" json:"isbn"`
	Title           string   `db:"title" json:"title"`
	Publisher       string   `db:"publisher" json:"publisher,omitempty"`
	TotalCopies     int      `db:"total_copies" json:"total_copies"`
	AvailableCopies int      `db:"available_copies" json:"available_copies"`
	Authors         []string `db:"-" json:"authors"`
}

// Author is a deduplicated author with a surrogate id.
type Author struct {
	ID   int    `db:"author_id" json:"author_id"`
	Name string `db:"name" json:"name"`
}

// SearchBy selects the search mode: substring on title or author name,
// exact on ISBN.
type SearchBy string

const (
	SearchByTitle  SearchBy = "title"
	SearchByAuthor SearchBy = "author"
	SearchByISBN   SearchBy = "isbn"
)

var (
	ErrNotFound = errors.New("catalog: book not found")

	// ErrNoCopies means every copy of the title is currently on loan.
	ErrNoCopies = errors.New("catalog: no copy available")

	// ErrCopyConflict means a release would push availability past the
	// total copy count, which only happens if stored state is corrupt.
	ErrCopyConflict = errors.New("catalog: available copies would exceed total")

	ErrDuplicateISBN = errors.New("catalog: isbn already cataloged")
)

// NameKey folds case and collapses whitespace. AUTHORS is unique on this
// key, so "Jane Doe" and " jane doe " stay one author no matter which
// write path sees them first.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
