// Package analytics implements the analytics projector (C7): rendering the
// canonical store's Frequency rows into a self-contained SQLite file.
package analytics

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// pragmas are applied at creation per §6.4.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA synchronous = OFF",
	"PRAGMA journal_mode = MEMORY",
	"PRAGMA cache_size = 20000",
	"PRAGMA page_size = 65536",
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS term (
	id   INTEGER PRIMARY KEY,
	len  INTEGER NOT NULL,
	text TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS monthly (
	term_id      INTEGER NOT NULL REFERENCES term(id),
	min_sent_len INTEGER NOT NULL,
	day          INTEGER NOT NULL,
	hits         INTEGER NOT NULL,
	authors      INTEGER NOT NULL,
	PRIMARY KEY (term_id, min_sent_len, day)
) WITHOUT ROWID;

-- day=0 is the all-time sentinel (§4.5); WITHOUT ROWID requires every
-- primary key column be NOT NULL, so all-time rows use the sentinel
-- rather than an actual NULL.
CREATE TABLE IF NOT EXISTS yearly (
	term_id      INTEGER NOT NULL REFERENCES term(id),
	min_sent_len INTEGER NOT NULL,
	day          INTEGER NOT NULL,
	hits         INTEGER NOT NULL,
	authors      INTEGER NOT NULL,
	PRIMARY KEY (term_id, min_sent_len, day)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS total_monthly (
	day          INTEGER NOT NULL,
	term_len     INTEGER NOT NULL,
	min_sent_len INTEGER NOT NULL,
	hits         INTEGER NOT NULL,
	authors      INTEGER NOT NULL,
	PRIMARY KEY (day, term_len, min_sent_len)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS total_yearly (
	day          INTEGER NOT NULL,
	term_len     INTEGER NOT NULL,
	min_sent_len INTEGER NOT NULL,
	hits         INTEGER NOT NULL,
	authors      INTEGER NOT NULL,
	PRIMARY KEY (day, term_len, min_sent_len)
) WITHOUT ROWID;
`

// Open creates (or opens) a SQLite file at path, applies the performance
// pragmas, and ensures the schema of §4.7/§6.4 exists.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("analytics: opening %s: %w", path, err)
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("analytics: applying pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("analytics: creating schema: %w", err)
	}
	return db, nil
}
