// cmd/etl/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"biblio/internal/config"
	"biblio/internal/loader"
	"biblio/internal/normalize"
)

// CLI is the batch side of the system: turn raw extracts into normalized
// row sets, then bulk-load them into the relational store.
type CLI struct {
	Normalize NormalizeCmd `cmd:"" help:"Normalize raw book/borrower CSV extracts into 3NF row sets"`
	Load      LoadCmd      `cmd:"" help:"Bulk-load normalized row sets into the database"`
}

type NormalizeCmd struct {
	Books     string `short:"b" required:"" help:"Path to the raw book extract CSV"`
	Borrowers string `short:"r" required:"" help:"Path to the raw borrower extract CSV"`
	Out       string `short:"o" default:"./normalized" help:"Directory for the normalized row sets"`
}

func (c *NormalizeCmd) Run() error {
	bookRecords, err := readExtract(c.Books)
	if err != nil {
		return err
	}
	borrowerRecords, err := readExtract(c.Borrowers)
	if err != nil {
		return err
	}

	result, err := normalize.NewNormalizer().Normalize(bookRecords, borrowerRecords)
	if err != nil {
		return err
	}
	if err := normalize.WriteFiles(result, c.Out); err != nil {
		return err
	}

	slog.Info("normalization complete",
		"books", result.Summary.BooksAccepted,
		"authors", result.Summary.DistinctAuthors,
		"links", result.Summary.Links,
		"borrowers", result.Summary.BorrowersAccepted,
		"rejected", result.Summary.RowsRejected,
		"out", c.Out,
	)
	return nil
}

type LoadCmd struct {
	Dir         string `short:"d" default:"./normalized" help:"Directory holding the normalized row sets"`
	DatabaseURL string `help:"Postgres connection string (defaults to the configured database_url)"`
}

func (c *LoadCmd) Run() error {
	dsn := c.DatabaseURL
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dsn = cfg.DatabaseURL
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	l := loader.New(db)
	if err := l.EnsureSchema(ctx); err != nil {
		return err
	}
	_, err = l.LoadDir(ctx, c.Dir)
	return err
}

func readExtract(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	defer func() { _ = f.Close() }()
	return normalize.ReadRecords(f)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("biblio-etl"),
		kong.Description("Normalize and load library catalog extracts."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run())
}
