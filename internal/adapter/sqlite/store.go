// Package sqlite implements the per-language case store on SQLite.
// Each language lives in its own database file; tag sessions may work on a
// private in-memory copy.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	sq "github.com/Masterminds/squirrel"

	"github.com/heartmarshall/casetagger/internal/adapter/outcomeloader"
	"github.com/heartmarshall/casetagger/internal/domain"
)

const (
	casesTable    = "cases"
	countersTable = "cases_from_counter"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store provides case persistence for one language backed by SQLite.
type Store struct {
	db       *sql.DB
	tx       *TxManager
	language string
	// path is empty for in-memory stores.
	path string
}

// Language returns the language the store holds cases for.
func (s *Store) Language() string { return s.language }

// Path returns the database file, or "" for an in-memory store.
func (s *Store) Path() string { return s.path }

// TxManager returns the transaction manager bound to the store's database.
func (s *Store) TxManager() *TxManager { return s.tx }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Destroy closes the store and removes its database file. Opening the same
// language afterwards yields an empty store.
func (s *Store) Destroy(_ context.Context) error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if s.path == "" {
		return nil
	}
	for _, p := range []string{s.path, s.path + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// InsertOrIncrement records one observation of c: the case row and its
// (type, from) counter are both created with one occurrence or incremented.
// Both writes share a transaction, joining the caller's if ctx carries one.
func (s *Store) InsertOrIncrement(ctx context.Context, c domain.Case) error {
	caseQuery, caseArgs, err := psql.Insert(casesTable).
		Columns("type", "case_from", "case_to", "occurrences").
		Values(int64(c.Type), c.From, c.To, 1).
		Suffix("ON CONFLICT (type, case_from, case_to) DO UPDATE SET occurrences = " + casesTable + ".occurrences + 1").
		ToSql()
	if err != nil {
		return fmt.Errorf("build case upsert: %w", err)
	}

	counterQuery, counterArgs, err := psql.Insert(countersTable).
		Columns("type", "case_from", "occurrences").
		Values(int64(c.Type), c.From, 1).
		Suffix("ON CONFLICT (type, case_from) DO UPDATE SET occurrences = " + countersTable + ".occurrences + 1").
		ToSql()
	if err != nil {
		return fmt.Errorf("build counter upsert: %w", err)
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := QuerierFromCtx(ctx, s.db)
		if _, err := q.ExecContext(ctx, caseQuery, caseArgs...); err != nil {
			return mapError(err, "case", c.Type.String())
		}
		if _, err := q.ExecContext(ctx, counterQuery, counterArgs...); err != nil {
			return mapError(err, "case counter", c.Type.String())
		}
		return nil
	})
}

// Load adds rows in bulk. Occurrences of rows that already exist are summed.
func (s *Store) Load(ctx context.Context, cases []domain.Case, counters []domain.CaseFromCounter) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := QuerierFromCtx(ctx, s.db)

		for _, c := range cases {
			query, args, err := psql.Insert(casesTable).
				Columns("type", "case_from", "case_to", "occurrences").
				Values(int64(c.Type), c.From, c.To, c.Occurrences).
				Suffix("ON CONFLICT (type, case_from, case_to) DO UPDATE SET occurrences = " + casesTable + ".occurrences + excluded.occurrences").
				ToSql()
			if err != nil {
				return fmt.Errorf("build case load: %w", err)
			}
			if _, err := q.ExecContext(ctx, query, args...); err != nil {
				return mapError(err, "case", c.Type.String())
			}
		}

		for _, f := range counters {
			query, args, err := psql.Insert(countersTable).
				Columns("type", "case_from", "occurrences").
				Values(int64(f.Type), f.From, f.Occurrences).
				Suffix("ON CONFLICT (type, case_from) DO UPDATE SET occurrences = " + countersTable + ".occurrences + excluded.occurrences").
				ToSql()
			if err != nil {
				return fmt.Errorf("build counter load: %w", err)
			}
			if _, err := q.ExecContext(ctx, query, args...); err != nil {
				return mapError(err, "case counter", f.Type.String())
			}
		}
		return nil
	})
}

// Reset deletes every case and counter.
func (s *Store) Reset(ctx context.Context) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := QuerierFromCtx(ctx, s.db)
		for _, table := range []string{casesTable, countersTable} {
			query, args, err := psql.Delete(table).ToSql()
			if err != nil {
				return fmt.Errorf("build reset %s: %w", table, err)
			}
			if _, err := q.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// FetchAllOutcomes returns, for every candidate in order, each stored case
// sharing the candidate's type and from-string, with Prob set to its share
// of the (type, from) counter. Candidates are not deduplicated: a repeated
// candidate contributes its outcomes again. Rows whose counter is missing
// yield a *domain.IntegrityError.
func (s *Store) FetchAllOutcomes(ctx context.Context, candidates domain.Cases) (domain.Cases, error) {
	return outcomeloader.Fetch(ctx, candidates, s.outcomes)
}

// outcomes loads the stored cases of every key in one query.
func (s *Store) outcomes(ctx context.Context, keys []domain.FromKey) (map[domain.FromKey]domain.Cases, error) {
	match := make(sq.Or, len(keys))
	for i, k := range keys {
		match[i] = sq.Eq{"c.type": int64(k.Type), "c.case_from": k.From}
	}
	query, args, err := psql.
		Select("c.type", "c.case_from", "c.case_to", "c.occurrences", "f.occurrences").
		From(casesTable + " c").
		LeftJoin(countersTable + " f ON f.type = c.type AND f.case_from = c.case_from").
		Where(match).
		OrderBy("c.type", "c.case_from", "c.case_to").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outcomes query: %w", err)
	}

	rows, err := QuerierFromCtx(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "outcomes", fmt.Sprintf("batch of %d", len(keys)))
	}
	defer rows.Close()

	var out domain.Cases
	for rows.Next() {
		var (
			typ   int64
			c     domain.Case
			total sql.NullInt64
		)
		if err := rows.Scan(&typ, &c.From, &c.To, &c.Occurrences, &total); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		c.Type = domain.CaseType(typ)
		if !total.Valid {
			return nil, &domain.IntegrityError{Type: c.Type, From: c.From}
		}
		c.Prob = domain.RawProbability(c.Occurrences, int(total.Int64))
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomeloader.Group(out), nil
}

// GetCase returns one stored case. Returns domain.ErrNotFound if absent.
func (s *Store) GetCase(ctx context.Context, t domain.CaseType, from, to string) (*domain.Case, error) {
	query, args, err := psql.Select("type", "case_from", "case_to", "occurrences").
		From(casesTable).
		Where(sq.Eq{"type": int64(t), "case_from": from, "case_to": to}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build case query: %w", err)
	}

	var (
		typ int64
		c   domain.Case
	)
	row := QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query, args...)
	if err := row.Scan(&typ, &c.From, &c.To, &c.Occurrences); err != nil {
		return nil, mapError(err, "case", fmt.Sprintf("%s %q", t, from))
	}
	c.Type = domain.CaseType(typ)
	return &c, nil
}

// GetCounter returns the counter of a (type, from) pair. Returns
// domain.ErrNotFound if absent.
func (s *Store) GetCounter(ctx context.Context, t domain.CaseType, from string) (*domain.CaseFromCounter, error) {
	query, args, err := psql.Select("type", "case_from", "occurrences").
		From(countersTable).
		Where(sq.Eq{"type": int64(t), "case_from": from}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build counter query: %w", err)
	}

	var (
		typ int64
		f   domain.CaseFromCounter
	)
	row := QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query, args...)
	if err := row.Scan(&typ, &f.From, &f.Occurrences); err != nil {
		return nil, mapError(err, "case counter", fmt.Sprintf("%s %q", t, from))
	}
	f.Type = domain.CaseType(typ)
	return &f, nil
}

// AllCases returns every stored case in insertion order.
func (s *Store) AllCases(ctx context.Context) ([]domain.Case, error) {
	query, args, err := psql.Select("type", "case_from", "case_to", "occurrences").
		From(casesTable).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cases query: %w", err)
	}

	rows, err := QuerierFromCtx(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	cases := []domain.Case{}
	for rows.Next() {
		var (
			typ int64
			c   domain.Case
		)
		if err := rows.Scan(&typ, &c.From, &c.To, &c.Occurrences); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c.Type = domain.CaseType(typ)
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// AllCounters returns every stored counter in insertion order.
func (s *Store) AllCounters(ctx context.Context) ([]domain.CaseFromCounter, error) {
	query, args, err := psql.Select("type", "case_from", "occurrences").
		From(countersTable).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build counters query: %w", err)
	}

	rows, err := QuerierFromCtx(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer rows.Close()

	counters := []domain.CaseFromCounter{}
	for rows.Next() {
		var (
			typ int64
			f   domain.CaseFromCounter
		)
		if err := rows.Scan(&typ, &f.From, &f.Occurrences); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		f.Type = domain.CaseType(typ)
		counters = append(counters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	return counters, nil
}

// Loader receives a bulk copy of a store's rows.
type Loader interface {
	Load(ctx context.Context, cases []domain.Case, counters []domain.CaseFromCounter) error
}

// CopyInto copies every case and counter into dst.
func (s *Store) CopyInto(ctx context.Context, dst Loader) error {
	cases, err := s.AllCases(ctx)
	if err != nil {
		return fmt.Errorf("copy cases: %w", err)
	}
	counters, err := s.AllCounters(ctx)
	if err != nil {
		return fmt.Errorf("copy counters: %w", err)
	}
	if err := dst.Load(ctx, cases, counters); err != nil {
		return fmt.Errorf("copy into: %w", err)
	}
	return nil
}
