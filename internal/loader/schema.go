// internal/loader/schema.go
package loader

// Schema is the relational shape the core reads and writes. Idempotent so
// the loader can run against a fresh or an already-initialized database.
const Schema = `
CREATE TABLE IF NOT EXISTS books (
	isbn             TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	publisher        TEXT NOT NULL DEFAULT '',
	total_copies     INT  NOT NULL CHECK (total_copies >= 0),
	available_copies INT  NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies)
);

CREATE TABLE IF NOT EXISTS authors (
	author_id INT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name      TEXT NOT NULL,
	name_key  TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS book_authors (
	isbn      TEXT NOT NULL REFERENCES books (isbn),
	author_id INT  NOT NULL REFERENCES authors (author_id),
	position  INT  NOT NULL,
	PRIMARY KEY (isbn, author_id)
);

CREATE TABLE IF NOT EXISTS borrowers (
	card_id      TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	address      TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	fine_balance NUMERIC(8,2) NOT NULL DEFAULT 0 CHECK (fine_balance >= 0)
);

CREATE TABLE IF NOT EXISTS loans (
	loan_id       UUID PRIMARY KEY,
	isbn          TEXT NOT NULL REFERENCES books (isbn),
	card_id       TEXT NOT NULL REFERENCES borrowers (card_id),
	checkout_date TIMESTAMPTZ NOT NULL,
	due_date      TIMESTAMPTZ NOT NULL,
	return_date   TIMESTAMPTZ,
	fine_amount   NUMERIC(8,2),
	CHECK ((return_date IS NULL) = (fine_amount IS NULL))
);

CREATE INDEX IF NOT EXISTS loans_card_id_idx ON loans (card_id);
CREATE INDEX IF NOT EXISTS loans_open_idx ON loans (isbn) WHERE return_date IS NULL;
`
