// internal/normalize/domain.go
package normalize

import "fmt"

// BookRow is one normalized BOOK row ready for bulk load.
type BookRow struct {
	ISBN            string
	Title           string
	Publisher       string
	TotalCopies     int
	AvailableCopies int
}

// AuthorRow is one normalized AUTHORS row. IDs are surrogate, assigned
// sequentially in first-seen order starting at 1.
type AuthorRow struct {
	ID   int
	Name string
}

// LinkRow is one normalized BOOK_AUTHORS row. Position preserves the
// per-book author order from the extract; position 0 is the primary author.
type LinkRow struct {
	ISBN     string
	AuthorID int
	Position int
}

// BorrowerRow is one normalized BORROWER row. Fine balance always starts
// at zero for a freshly loaded borrower.
type BorrowerRow struct {
	CardID      string
	Name        string
	Address     string
	Phone       string
	FineBalance float64
}

// MalformedRowError describes a single rejected input row. Rejections are
// batch-tolerant: the normalizer records them and continues.
type MalformedRowError struct {
	Line   int
	Field  string
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: field %q: %s", e.Line, e.Field, e.Reason)
}

// Summary is the audit output of one normalization run. Given identical
// input ordering the counts are deterministic.
type Summary struct {
	BooksAccepted     int `json:"books_accepted"`
	DistinctAuthors   int `json:"distinct_authors"`
	Links             int `json:"links"`
	BorrowersAccepted int `json:"borrowers_accepted"`
	RowsRejected      int `json:"rows_rejected"`
}

// Result holds the four normalized row sets plus per-row diagnostics.
type Result struct {
	Books     []BookRow
	Authors   []AuthorRow
	Links     []LinkRow
	Borrowers []BorrowerRow
	Rejected  []*MalformedRowError
	Summary   Summary
}
