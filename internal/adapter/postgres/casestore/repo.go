// Package casestore implements the case store on PostgreSQL. All languages
// share the cases and cases_from_counter tables; each Repo is scoped to
// one language.
package casestore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/casetagger/internal/adapter/outcomeloader"
	postgres "github.com/heartmarshall/casetagger/internal/adapter/postgres"
	"github.com/heartmarshall/casetagger/internal/domain"
)

const (
	casesTable    = "cases"
	countersTable = "cases_from_counter"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repo provides case persistence for one language backed by PostgreSQL.
type Repo struct {
	pool     *pgxpool.Pool
	tx       *postgres.TxManager
	language string
}

// New creates a case repository scoped to language.
func New(pool *pgxpool.Pool, language string) (*Repo, error) {
	if language == "" {
		return nil, domain.InvalidInput("language is empty")
	}
	return &Repo{pool: pool, tx: postgres.NewTxManager(pool), language: language}, nil
}

// Language returns the language the repository is scoped to.
func (r *Repo) Language() string { return r.language }

// TxManager returns the transaction manager bound to the repository's pool.
func (r *Repo) TxManager() *postgres.TxManager { return r.tx }

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

func (r *Repo) caseUpsert(c domain.Case, occurrences int, increment string) (string, []any, error) {
	return psql.Insert(casesTable).
		Columns("language", "type", "case_from", "case_to", "occurrences").
		Values(r.language, int64(c.Type), c.From, c.To, occurrences).
		Suffix("ON CONFLICT ON CONSTRAINT cases_identity DO UPDATE SET occurrences = " + casesTable + ".occurrences + " + increment).
		ToSql()
}

func (r *Repo) counterUpsert(t domain.CaseType, from string, occurrences int, increment string) (string, []any, error) {
	return psql.Insert(countersTable).
		Columns("language", "type", "case_from", "occurrences").
		Values(r.language, int64(t), from, occurrences).
		Suffix("ON CONFLICT ON CONSTRAINT cases_from_counter_identity DO UPDATE SET occurrences = " + countersTable + ".occurrences + " + increment).
		ToSql()
}

// InsertOrIncrement records one observation of c. The case row and its
// (type, from) counter are updated in one transaction, joining the
// caller's if ctx carries one.
func (r *Repo) InsertOrIncrement(ctx context.Context, c domain.Case) error {
	caseQuery, caseArgs, err := r.caseUpsert(c, 1, "1")
	if err != nil {
		return fmt.Errorf("build case upsert: %w", err)
	}
	counterQuery, counterArgs, err := r.counterUpsert(c.Type, c.From, 1, "1")
	if err != nil {
		return fmt.Errorf("build counter upsert: %w", err)
	}

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)
		if _, err := q.Exec(ctx, caseQuery, caseArgs...); err != nil {
			return postgres.MapError(err, "case", c.Type.String())
		}
		if _, err := q.Exec(ctx, counterQuery, counterArgs...); err != nil {
			return postgres.MapError(err, "case counter", c.Type.String())
		}
		return nil
	})
}

// Load adds rows in bulk with one batch. Occurrences of rows that already
// exist are summed.
func (r *Repo) Load(ctx context.Context, cases []domain.Case, counters []domain.CaseFromCounter) error {
	if len(cases) == 0 && len(counters) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range cases {
		query, args, err := r.caseUpsert(c, c.Occurrences, "excluded.occurrences")
		if err != nil {
			return fmt.Errorf("build case load: %w", err)
		}
		batch.Queue(query, args...)
	}
	for _, f := range counters {
		query, args, err := r.counterUpsert(f.Type, f.From, f.Occurrences, "excluded.occurrences")
		if err != nil {
			return fmt.Errorf("build counter load: %w", err)
		}
		batch.Queue(query, args...)
	}

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		results := postgres.QuerierFromCtx(ctx, r.pool).SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return postgres.MapError(err, "case load", r.language)
			}
		}
		return results.Close()
	})
}

// Reset deletes every case and counter of the repository's language.
func (r *Repo) Reset(ctx context.Context) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)
		for _, table := range []string{casesTable, countersTable} {
			query, args, err := psql.Delete(table).Where(sq.Eq{"language": r.language}).ToSql()
			if err != nil {
				return fmt.Errorf("build reset %s: %w", table, err)
			}
			if _, err := q.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

// Destroy deletes the language's rows. The shared tables stay in place.
func (r *Repo) Destroy(ctx context.Context) error {
	return r.Reset(ctx)
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// FetchAllOutcomes returns, for every candidate in order, each stored case
// sharing the candidate's type and from-string, with Prob set to its share
// of the (type, from) counter. A repeated candidate contributes its
// outcomes again. Rows whose counter is missing yield a
// *domain.IntegrityError.
func (r *Repo) FetchAllOutcomes(ctx context.Context, candidates domain.Cases) (domain.Cases, error) {
	return outcomeloader.Fetch(ctx, candidates, r.outcomes)
}

// outcomes loads the stored cases of every key in one query.
func (r *Repo) outcomes(ctx context.Context, keys []domain.FromKey) (map[domain.FromKey]domain.Cases, error) {
	match := make(sq.Or, len(keys))
	for i, k := range keys {
		match[i] = sq.Eq{"c.type": int64(k.Type), "c.case_from": k.From}
	}
	query, args, err := psql.
		Select("c.type", "c.case_from", "c.case_to", "c.occurrences", "f.occurrences").
		From(casesTable + " c").
		LeftJoin(countersTable + " f ON f.language = c.language AND f.type = c.type AND f.case_from = c.case_from").
		Where(sq.Eq{"c.language": r.language}).
		Where(match).
		OrderBy("c.type", "c.case_from", "c.case_to").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outcomes query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "outcomes", fmt.Sprintf("batch of %d", len(keys)))
	}
	defer rows.Close()

	var out domain.Cases
	for rows.Next() {
		var (
			typ   int64
			occ   int32
			c     domain.Case
			total pgtype.Int4
		)
		if err := rows.Scan(&typ, &c.From, &c.To, &occ, &total); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		c.Type = domain.CaseType(typ)
		c.Occurrences = int(occ)
		if !total.Valid {
			return nil, &domain.IntegrityError{Type: c.Type, From: c.From}
		}
		c.Prob = domain.RawProbability(c.Occurrences, int(total.Int32))
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomeloader.Group(out), nil
}

// GetCase returns one stored case. Returns domain.ErrNotFound if absent.
func (r *Repo) GetCase(ctx context.Context, t domain.CaseType, from, to string) (*domain.Case, error) {
	query, args, err := psql.Select("occurrences").
		From(casesTable).
		Where(sq.Eq{"language": r.language, "type": int64(t), "case_from": from, "case_to": to}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build case query: %w", err)
	}

	var occ int32
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&occ); err != nil {
		return nil, postgres.MapError(err, "case", fmt.Sprintf("%s %q", t, from))
	}
	return &domain.Case{Type: t, From: from, To: to, Occurrences: int(occ)}, nil
}

// GetCounter returns the counter of a (type, from) pair. Returns
// domain.ErrNotFound if absent.
func (r *Repo) GetCounter(ctx context.Context, t domain.CaseType, from string) (*domain.CaseFromCounter, error) {
	query, args, err := psql.Select("occurrences").
		From(countersTable).
		Where(sq.Eq{"language": r.language, "type": int64(t), "case_from": from}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build counter query: %w", err)
	}

	var occ int32
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&occ); err != nil {
		return nil, postgres.MapError(err, "case counter", fmt.Sprintf("%s %q", t, from))
	}
	return &domain.CaseFromCounter{Type: t, From: from, Occurrences: int(occ)}, nil
}

// AllCases returns every case of the language in insertion order.
func (r *Repo) AllCases(ctx context.Context) ([]domain.Case, error) {
	query, args, err := psql.Select("type", "case_from", "case_to", "occurrences").
		From(casesTable).
		Where(sq.Eq{"language": r.language}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cases query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	cases, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Case, error) {
		var (
			typ int64
			occ int32
			c   domain.Case
		)
		err := row.Scan(&typ, &c.From, &c.To, &occ)
		c.Type = domain.CaseType(typ)
		c.Occurrences = int(occ)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// AllCounters returns every counter of the language in insertion order.
func (r *Repo) AllCounters(ctx context.Context) ([]domain.CaseFromCounter, error) {
	query, args, err := psql.Select("type", "case_from", "occurrences").
		From(countersTable).
		Where(sq.Eq{"language": r.language}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build counters query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}

	counters, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CaseFromCounter, error) {
		var (
			typ int64
			occ int32
			f   domain.CaseFromCounter
		)
		err := row.Scan(&typ, &f.From, &occ)
		f.Type = domain.CaseType(typ)
		f.Occurrences = int(occ)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	return counters, nil
}

// Loader receives a bulk copy of a store's rows.
type Loader interface {
	Load(ctx context.Context, cases []domain.Case, counters []domain.CaseFromCounter) error
}

// CopyInto copies every case and counter of the language into dst.
func (r *Repo) CopyInto(ctx context.Context, dst Loader) error {
	cases, err := r.AllCases(ctx)
	if err != nil {
		return fmt.Errorf("copy cases: %w", err)
	}
	counters, err := r.AllCounters(ctx)
	if err != nil {
		return fmt.Errorf("copy counters: %w", err)
	}
	if err := dst.Load(ctx, cases, counters); err != nil {
		return fmt.Errorf("copy into: %w", err)
	}
	return nil
}
