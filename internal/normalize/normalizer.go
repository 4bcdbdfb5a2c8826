// internal/normalize/normalizer.go
package normalize

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
)

// Normalizer turns raw book and borrower extracts into third-normal-form
// row sets with deduplicated authors and a book-author link table. One
// Normalizer instance is one run; the author id mapping is not reused
// across runs.
type Normalizer struct {
	dedup *AuthorDedup
}

func NewNormalizer() *Normalizer {
	return &Normalizer{dedup: NewAuthorDedup()}
}

// Normalize processes both extracts. Each input includes its header row.
// A malformed row is recorded and skipped, never fatal; the returned error
// covers batch-level problems only (missing or unusable headers).
func (n *Normalizer) Normalize(bookRecords, borrowerRecords [][]string) (*Result, error) {
	res := &Result{}

	if err := n.normalizeBooks(bookRecords, res); err != nil {
		return nil, err
	}
	if err := n.normalizeBorrowers(borrowerRecords, res); err != nil {
		return nil, err
	}

	res.Authors = n.dedup.Authors()
	res.Summary = Summary{
		BooksAccepted:     len(res.Books),
		DistinctAuthors:   len(res.Authors),
		Links:             len(res.Links),
		BorrowersAccepted: len(res.Borrowers),
		RowsRejected:      len(res.Rejected),
	}
	return res, nil
}

func (n *Normalizer) normalizeBooks(records [][]string, res *Result) error {
	if len(records) == 0 {
		return fmt.Errorf("book extract: no header row")
	}
	parser, err := NewBookParser(records[0])
	if err != nil {
		return err
	}

	index := make(map[string]int) // isbn -> position in res.Books
	for i, record := range records[1:] {
		line := i + 2 // 1-based, after the header
		raw, rowErr := parser.Parse(line, record)
		if rowErr != nil {
			n.reject(res, rowErr)
			continue
		}

		if at, seen := index[raw.ISBN]; seen {
			// Duplicate rows are extra physical copies of the same title:
			// the first row's descriptive fields win, counts accumulate.
			res.Books[at].TotalCopies += raw.Copies
			res.Books[at].AvailableCopies += raw.Copies
			continue
		}

		index[raw.ISBN] = len(res.Books)
		res.Books = append(res.Books, BookRow{
			ISBN:            raw.ISBN,
			Title:           raw.Title,
			Publisher:       raw.Publisher,
			TotalCopies:     raw.Copies,
			AvailableCopies: raw.Copies,
		})

		// Positions stay dense even when a repeated author is skipped.
		linked := make(map[int]bool, len(raw.Authors))
		for _, name := range raw.Authors {
			id := n.dedup.Resolve(name)
			if linked[id] {
				continue
			}
			linked[id] = true
			res.Links = append(res.Links, LinkRow{ISBN: raw.ISBN, AuthorID: id, Position: len(linked) - 1})
		}
	}
	return nil
}

func (n *Normalizer) normalizeBorrowers(records [][]string, res *Result) error {
	if len(records) == 0 {
		return fmt.Errorf("borrower extract: no header row")
	}
	parser, err := NewBorrowerParser(records[0])
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i, record := range records[1:] {
		line := i + 2
		raw, rowErr := parser.Parse(line, record)
		if rowErr != nil {
			n.reject(res, rowErr)
			continue
		}
		if seen[raw.CardID] {
			n.reject(res, &MalformedRowError{Line: line, Field: colCardID, Reason: "duplicate card id: " + raw.CardID})
			continue
		}
		seen[raw.CardID] = true
		res.Borrowers = append(res.Borrowers, BorrowerRow{
			CardID:  raw.CardID,
			Name:    raw.Name,
			Address: raw.Address,
			Phone:   raw.Phone,
		})
	}
	return nil
}

func (n *Normalizer) reject(res *Result, rowErr *MalformedRowError) {
	slog.Warn("skipping malformed row", "line", rowErr.Line, "field", rowErr.Field, "reason", rowErr.Reason)
	res.Rejected = append(res.Rejected, rowErr)
}

// ReadRecords reads a whole CSV extract, header included. Rows may have a
// varying number of columns (repeated author columns are optional).
func ReadRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read extract: %w", err)
	}
	return records, nil
}
