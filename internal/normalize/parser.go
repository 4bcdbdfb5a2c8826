// internal/normalize/parser.go
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extract column names, matched case-insensitively against the header row.
const (
	colISBN      = "isbn"
	colTitle     = "title"
	colPublisher = "publisher"
	colCopies    = "copies"
	colAuthor    = "author"
	colCardID    = "card_id"
	colName      = "name"
	colAddress   = "address"
	colPhone     = "phone"
	colJoined    = "joined"
)

var cardIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{4,16}$`)

// RawBook is one parsed book extract row before deduplication. Authors is
// the ordered author list exactly as it appeared, duplicates included.
type RawBook struct {
	ISBN      string
	Title     string
	Publisher string
	Copies    int
	Authors   []string
}

// RawBorrower is one parsed borrower extract row.
type RawBorrower struct {
	CardID  string
	Name    string
	Address string
	Phone   string
	Joined  string
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// BookParser parses raw book extract rows positionally against a header row.
type BookParser struct {
	isbn      int
	title     int
	publisher int
	copies    int
	authors   []int // every "author"/"authors"/"author2"... column, in order
}

// NewBookParser validates the header and records column positions.
func NewBookParser(header []string) (*BookParser, error) {
	idx := headerIndex(header)
	p := &BookParser{isbn: -1, title: -1, publisher: -1, copies: -1}
	// Scan the header slice, not the index map: an extract may repeat the
	// literal column name ("author,author"), and the map keeps only one.
	for i, name := range header {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(name)), colAuthor) {
			p.authors = append(p.authors, i)
		}
	}

	var ok bool
	if p.isbn, ok = idx[colISBN]; !ok {
		return nil, fmt.Errorf("book header: missing required column %q", colISBN)
	}
	if p.title, ok = idx[colTitle]; !ok {
		return nil, fmt.Errorf("book header: missing required column %q", colTitle)
	}
	if p.publisher, ok = idx[colPublisher]; !ok {
		p.publisher = -1
	}
	if p.copies, ok = idx[colCopies]; !ok {
		p.copies = -1
	}
	if len(p.authors) == 0 {
		return nil, fmt.Errorf("book header: missing author column")
	}
	return p, nil
}

// Parse turns one record into a RawBook or reports what made it malformed.
// line is the 1-based input line, used only for diagnostics.
func (p *BookParser) Parse(line int, record []string) (*RawBook, *MalformedRowError) {
	isbn, err := CanonicalISBN(field(record, p.isbn))
	if err != nil {
		return nil, &MalformedRowError{Line: line, Field: colISBN, Reason: err.Error()}
	}

	title := field(record, p.title)
	if title == "" {
		return nil, &MalformedRowError{Line: line, Field: colTitle, Reason: "missing required value"}
	}

	copies := 1
	if p.copies >= 0 {
		raw := field(record, p.copies)
		if raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &MalformedRowError{Line: line, Field: colCopies, Reason: "not a number: " + raw}
			}
			if n < 0 {
				return nil, &MalformedRowError{Line: line, Field: colCopies, Reason: "negative copy count"}
			}
			copies = n
		}
	}

	authors := splitAuthors(record, p.authors)
	if len(authors) == 0 {
		return nil, &MalformedRowError{Line: line, Field: colAuthor, Reason: "missing required value"}
	}

	return &RawBook{
		ISBN:      isbn,
		Title:     title,
		Publisher: field(record, p.publisher),
		Copies:    copies,
		Authors:   authors,
	}, nil
}

// splitAuthors flattens author columns into an ordered name list. A single
// column may carry a delimited multi-value ("Doe, Jane; Smith, John"), or
// the extract may repeat author columns; both arrive here the same way.
func splitAuthors(record []string, cols []int) []string {
	var out []string
	for _, c := range cols {
		for _, part := range strings.Split(field(record, c), ";") {
			if name := strings.TrimSpace(part); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// BorrowerParser parses raw borrower extract rows.
type BorrowerParser struct {
	cardID  int
	name    int
	address int
	phone   int
	joined  int
}

// NewBorrowerParser validates the header and records column positions.
func NewBorrowerParser(header []string) (*BorrowerParser, error) {
	idx := headerIndex(header)
	p := &BorrowerParser{cardID: -1, name: -1, address: -1, phone: -1, joined: -1}

	var ok bool
	if p.cardID, ok = idx[colCardID]; !ok {
		return nil, fmt.Errorf("borrower header: missing required column %q", colCardID)
	}
	if p.name, ok = idx[colName]; !ok {
		return nil, fmt.Errorf("borrower header: missing required column %q", colName)
	}
	if i, ok := idx[colAddress]; ok {
		p.address = i
	}
	if i, ok := idx[colPhone]; ok {
		p.phone = i
	}
	if i, ok := idx[colJoined]; ok {
		p.joined = i
	}
	return p, nil
}

// Parse turns one record into a RawBorrower or reports what made it malformed.
func (p *BorrowerParser) Parse(line int, record []string) (*RawBorrower, *MalformedRowError) {
	cardID := field(record, p.cardID)
	if !cardIDPattern.MatchString(cardID) {
		return nil, &MalformedRowError{Line: line, Field: colCardID, Reason: "invalid card id: " + cardID}
	}

	name := field(record, p.name)
	if name == "" {
		return nil, &MalformedRowError{Line: line, Field: colName, Reason: "missing required value"}
	}

	joined := field(record, p.joined)
	if joined != "" {
		if _, err := time.Parse("2006-01-02", joined); err != nil {
			return nil, &MalformedRowError{Line: line, Field: colJoined, Reason: "not an ISO date: " + joined}
		}
	}

	return &RawBorrower{
		CardID:  cardID,
		Name:    name,
		Address: field(record, p.address),
		Phone:   field(record, p.phone),
		Joined:  joined,
	}, nil
}

// CanonicalISBN strips hyphens and spaces and validates the remaining shape:
// 13 digits, or 10 characters where the check digit may be X.
func CanonicalISBN(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("missing required value")
	}
	s := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(raw))
	switch len(s) {
	case 10:
		for i, r := range s {
			if r >= '0' && r <= '9' {
				continue
			}
			if r == 'X' && i == 9 {
				continue
			}
			return "", fmt.Errorf("invalid isbn: %s", raw)
		}
	case 13:
		for _, r := range s {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("invalid isbn: %s", raw)
			}
		}
	default:
		return "", fmt.Errorf("invalid isbn length: %s", raw)
	}
	return s, nil
}
