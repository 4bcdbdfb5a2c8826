// internal/normalize/writer.go
package normalize

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Output file names, one per normalized table. The loader consumes these.
const (
	BooksFile     = "books.csv"
	AuthorsFile   = "authors.csv"
	LinksFile     = "book_authors.csv"
	BorrowersFile = "borrowers.csv"
)

// WriteFiles writes the four row sets under dir as CSV, one header row per
// file. Output order follows the row sets, so identical input yields
// byte-identical files.
func WriteFiles(res *Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(w *csv.Writer) error
	}{
		{BooksFile, res.writeBooks},
		{AuthorsFile, res.writeAuthors},
		{LinksFile, res.writeLinks},
		{BorrowersFile, res.writeBorrowers},
	}
	for _, out := range writers {
		if err := writeCSV(filepath.Join(dir, out.name), out.write); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, write func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func (r *Result) writeBooks(w *csv.Writer) error {
	if err := w.Write([]string{"isbn", "title", "publisher", "total_copies", "available_copies"}); err != nil {
		return err
	}
	for _, b := range r.Books {
		row := []string{b.ISBN, b.Title, b.Publisher, strconv.Itoa(b.TotalCopies), strconv.Itoa(b.AvailableCopies)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) writeAuthors(w *csv.Writer) error {
	if err := w.Write([]string{"author_id", "name"}); err != nil {
		return err
	}
	for _, a := range r.Authors {
		if err := w.Write([]string{strconv.Itoa(a.ID), a.Name}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) writeLinks(w *csv.Writer) error {
	if err := w.Write([]string{"isbn", "author_id", "position"}); err != nil {
		return err
	}
	for _, l := range r.Links {
		if err := w.Write([]string{l.ISBN, strconv.Itoa(l.AuthorID), strconv.Itoa(l.Position)}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) writeBorrowers(w *csv.Writer) error {
	if err := w.Write([]string{"card_id", "name", "address", "phone", "fine_balance"}); err != nil {
		return err
	}
	for _, b := range r.Borrowers {
		row := []string{b.CardID, b.Name, b.Address, b.Phone, strconv.FormatFloat(b.FineBalance, 'f', 2, 64)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// writeTo is used by tests to capture a single table without touching disk.
func writeTo(w io.Writer, write func(*csv.Writer) error) error {
	cw := csv.NewWriter(w)
	if err := write(cw); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
