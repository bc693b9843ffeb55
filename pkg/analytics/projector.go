package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/sonamute/pkg/canonstore"
	"github.com/sipeed/sonamute/pkg/fileutil"
	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

// BatchSize bounds rows per insert batch (§6.4: ≈5000).
const BatchSize = 5000

// dayKey converts a time.Time bucket day into the integer representation
// stored in the monthly/yearly tables.
func dayKey(day time.Time) int64 {
	return day.Unix()
}

type frequencyRow struct {
	term       smtypes.Term
	minSentLen int
	day        time.Time
	hits       uint64
	authors    map[uuid.UUID]struct{} // countable authors only
	isYearly   bool
	isAllTime  bool
}

// Projector reads Frequency rows from a canonical store and renders them
// into a full SQLite file, then a trimmed copy (§4.7).
type Projector struct {
	Store canonstore.Store
}

func NewProjector(store canonstore.Store) *Projector {
	return &Projector{Store: store}
}

// mergeKey identifies one (term, min_sent_len, day, kind) row as it will
// appear in the monthly/yearly tables, which carry no attribute or
// community dimension. AttrAll is the only attribute merged into these
// rows: SentenceStart/SentenceEnd are strict subsets of it, counted
// separately only to drive other analyses, and summing them in here would
// triple-count a one-word sentence. A term is counted once per community
// (§4.5 step 2 groups sentences by community before counting), so hits and
// author sets from every community sharing a key are merged here before
// any author-set is reduced to a count.
type mergeKey struct {
	term       string
	minSentLen int
	day        int64
	kind       smtypes.BucketKind
}

type mergedFrequency struct {
	term      smtypes.Term
	hits      uint64
	authors   map[uuid.UUID]struct{}
	isYearly  bool
	isAllTime bool
}

// BuildRows reads every stored Frequency row and prunes it into the set the
// projector will write (§4.7). Rows are merged across communities by
// (term, min_sent_len, day, kind) before an author set is reduced to its
// non-trivial members (num_tp_sentences ≥ MinSentsNeeded, checked via
// Store.IsAuthorCountable) — merging first is required, since a correct
// distinct-author count cannot be recovered once per-community sets have
// already been collapsed to scalars. A term is dropped entirely if its
// cumulative all-time hits (summed across every min_sent_len in the day=0
// yearly bucket) fall under MinHitsNeeded.
func (p *Projector) BuildRows(ctx context.Context) ([]frequencyRow, error) {
	freqs, err := p.Store.AllFrequencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading frequencies: %w", err)
	}

	merged := make(map[mergeKey]*mergedFrequency, len(freqs))
	for _, f := range freqs {
		if f.Attr != smtypes.AttrAll {
			continue
		}
		key := mergeKey{term: f.Term.Text, minSentLen: f.MinSentLen, day: f.Day.Unix(), kind: f.Kind}
		m, ok := merged[key]
		if !ok {
			m = &mergedFrequency{
				term:      f.Term,
				authors:   make(map[uuid.UUID]struct{}, len(f.Authors)),
				isYearly:  f.Kind == smtypes.BucketYear,
				isAllTime: f.Kind == smtypes.BucketYear && f.Day.Unix() == 0,
			}
			merged[key] = m
		}
		m.hits += f.Hits
		for a := range f.Authors {
			m.authors[a] = struct{}{}
		}
	}

	allTimeHits := make(map[string]uint64, len(merged))
	rows := make([]frequencyRow, 0, len(merged))
	for key, m := range merged {
		countable := make(map[uuid.UUID]struct{}, len(m.authors))
		for a := range m.authors {
			ok, err := p.Store.IsAuthorCountable(ctx, a)
			if err != nil {
				return nil, fmt.Errorf("checking author %s: %w", a, err)
			}
			if ok {
				countable[a] = struct{}{}
			}
		}

		if m.isAllTime {
			allTimeHits[m.term.Text] += m.hits
		}

		rows = append(rows, frequencyRow{
			term:       m.term,
			minSentLen: key.minSentLen,
			day:        time.Unix(key.day, 0).UTC(),
			hits:       m.hits,
			authors:    countable,
			isYearly:   m.isYearly,
			isAllTime:  m.isAllTime,
		})
	}

	pruned := rows[:0]
	for _, r := range rows {
		if allTimeHits[r.term.Text] < smtypes.MinHitsNeeded {
			continue
		}
		pruned = append(pruned, r)
	}
	return pruned, nil
}

// Project builds the full analytics file at fullPath, then copies it to
// trimPath and applies postprocessing scripts (in lexicographic order) to
// the copy. The trimmed copy is only written once the full file has been
// written successfully, and it lands via fileutil's atomic rename. The full
// file itself is written in place at fullPath, so a failed write can leave
// a partial full file behind.
func (p *Projector) Project(ctx context.Context, fullPath, trimPath string, postprocessDir string) error {
	rows, err := p.BuildRows(ctx)
	if err != nil {
		return fmt.Errorf("analytics: building rows: %w", err)
	}
	if err := p.writeFull(ctx, fullPath, rows); err != nil {
		return fmt.Errorf("analytics: writing full store: %w", err)
	}
	if err := copyFile(fullPath, trimPath); err != nil {
		return fmt.Errorf("analytics: copying to trimmed store: %w", err)
	}
	if err := p.applyPostprocess(ctx, trimPath, postprocessDir); err != nil {
		return fmt.Errorf("analytics: applying postprocess scripts: %w", err)
	}
	return nil
}

func (p *Projector) writeFull(ctx context.Context, path string, rows []frequencyRow) error {
	db, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	termIDs, err := insertTerms(ctx, db, rows)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// BuildRows already merged every community's contribution to a given
	// (term, min_sent_len, day, kind), so each row is unique within its
	// table and a plain insert is correct; no ON CONFLICT accumulation
	// is needed (or safe: it would double-count a row inserted twice).
	monthlyStmt, err := tx.PrepareContext(ctx, `INSERT INTO monthly (term_id, min_sent_len, day, hits, authors)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer monthlyStmt.Close()

	yearlyStmt, err := tx.PrepareContext(ctx, `INSERT INTO yearly (term_id, min_sent_len, day, hits, authors)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer yearlyStmt.Close()

	totalMonthly := map[[3]int64]*totalRow{}
	totalYearly := map[[3]int64]*totalRow{}

	count := 0
	for _, r := range rows {
		termID := termIDs[r.term.Text]
		day := dayKey(r.day)
		authorCount := len(r.authors)

		if r.isYearly {
			if _, err := yearlyStmt.ExecContext(ctx, termID, r.minSentLen, day, r.hits, authorCount); err != nil {
				return fmt.Errorf("inserting yearly row: %w", err)
			}
			addTotal(totalYearly, r.term.Len, r.minSentLen, day, r.hits, r.authors)
		} else {
			if _, err := monthlyStmt.ExecContext(ctx, termID, r.minSentLen, day, r.hits, authorCount); err != nil {
				return fmt.Errorf("inserting monthly row: %w", err)
			}
			addTotal(totalMonthly, r.term.Len, r.minSentLen, day, r.hits, r.authors)
		}

		count++
		if count%BatchSize == 0 {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("committing batch: %w", err)
			}
			tx, err = db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
		}
	}

	if err := writeTotals(ctx, tx, "total_monthly", totalMonthly); err != nil {
		return err
	}
	if err := writeTotals(ctx, tx, "total_yearly", totalYearly); err != nil {
		return err
	}

	return tx.Commit()
}

// totalRow accumulates hits and a union of countable author ids across
// every term sharing a (day, term_len, min_sent_len) key. A total's
// author count is the cardinality of that union, not the max of any one
// contributing term's count: two different terms almost always have
// partially-overlapping but distinct author sets.
type totalRow struct {
	hits    uint64
	authors map[uuid.UUID]struct{}
}

func addTotal(m map[[3]int64]*totalRow, termLen, minSentLen int, day int64, hits uint64, authors map[uuid.UUID]struct{}) {
	key := [3]int64{day, int64(termLen), int64(minSentLen)}
	t, ok := m[key]
	if !ok {
		t = &totalRow{authors: make(map[uuid.UUID]struct{}, len(authors))}
		m[key] = t
	}
	t.hits += hits
	for a := range authors {
		t.authors[a] = struct{}{}
	}
}

func writeTotals(ctx context.Context, tx *sql.Tx, table string, totals map[[3]int64]*totalRow) error {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (day, term_len, min_sent_len, hits, authors) VALUES (?, ?, ?, ?, ?)`, table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for key, t := range totals {
		if _, err := stmt.ExecContext(ctx, key[0], key[1], key[2], t.hits, len(t.authors)); err != nil {
			return fmt.Errorf("inserting %s row: %w", table, err)
		}
	}
	return nil
}

func insertTerms(ctx context.Context, db *sql.DB, rows []frequencyRow) (map[string]int64, error) {
	distinct := map[string]int{}
	for _, r := range rows {
		distinct[r.term.Text] = r.term.Len
	}
	texts := make([]string, 0, len(distinct))
	for t := range distinct {
		texts = append(texts, t)
	}
	sort.Strings(texts)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO term (len, text) VALUES (?, ?)
		ON CONFLICT(text) DO UPDATE SET len = excluded.len RETURNING id`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make(map[string]int64, len(texts))
	for _, text := range texts {
		var id int64
		if err := stmt.QueryRowContext(ctx, distinct[text], text).Scan(&id); err != nil {
			return nil, fmt.Errorf("inserting term %q: %w", text, err)
		}
		ids[text] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// copyFile duplicates a SQLite file via a read-then-atomic-write, so a
// reader of trimPath never observes a partially-copied file.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(dst, data, 0o644)
}

// applyPostprocess runs every .sql script in dir, in lexicographic order,
// against the trimmed store (§4.7).
func (p *Projector) applyPostprocess(ctx context.Context, trimPath, dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading postprocess dir: %w", err)
	}

	var scripts []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			scripts = append(scripts, e.Name())
		}
	}
	sort.Strings(scripts)

	db, err := sql.Open("sqlite", trimPath)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, name := range scripts {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.WarnCF("analytics", "skipping unreadable postprocess script", map[string]any{"script": name, "error": err.Error()})
			continue
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("applying postprocess script %s: %w", name, err)
		}
	}
	return nil
}
