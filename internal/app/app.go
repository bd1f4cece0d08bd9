// Package app wires configuration, stores and services into per-language
// taggers and runs them.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/casetagger/internal/adapter/cache"
	"github.com/heartmarshall/casetagger/internal/adapter/postgres"
	"github.com/heartmarshall/casetagger/internal/adapter/postgres/casestore"
	"github.com/heartmarshall/casetagger/internal/adapter/sqlite"
	"github.com/heartmarshall/casetagger/internal/config"
	"github.com/heartmarshall/casetagger/internal/domain"
	"github.com/heartmarshall/casetagger/internal/feature"
	"github.com/heartmarshall/casetagger/internal/probability"
	"github.com/heartmarshall/casetagger/internal/service/tagger"
	"github.com/heartmarshall/casetagger/pkg/ctxutil"
)

// Mode tells OpenLanguage what the store will be used for.
type Mode int

const (
	// ModeTrain opens the persistent store for writing.
	ModeTrain Mode = iota
	// ModeTag opens the store for lookups only, honouring store.use_memory
	// and store.cache_size.
	ModeTag
)

// App holds the resources shared by every language of one run.
type App struct {
	cfg   *config.Config
	log   *slog.Logger
	pool  *pgxpool.Pool
	runID uuid.UUID

	featureOpts feature.Options
	engineOpts  probability.Options
	taggerOpts  tagger.Options
}

// New builds an App from a validated configuration. With the postgres
// driver it connects and migrates the database.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	featureOpts, engineOpts, taggerOpts := Options(cfg.Tagger)
	if err := engineOpts.Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{
		cfg:         cfg,
		log:         log,
		runID:       uuid.New(),
		featureOpts: featureOpts,
		engineOpts:  engineOpts,
		taggerOpts:  taggerOpts,
	}

	if cfg.Store.Driver == config.DriverPostgres {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		a.pool = pool
	}

	log.Info("starting casetagger",
		slog.String("version", BuildVersion()),
		slog.String("run_id", a.runID.String()),
		slog.String("driver", cfg.Store.Driver),
	)

	return a, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// RunID identifies this process in logs.
func (a *App) RunID() uuid.UUID { return a.runID }

// Context returns ctx tagged with the run ID.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxutil.WithRunID(ctx, a.runID)
}

// Options converts the tagger section into the option values of the
// extractor, the probability engine and the service.
func Options(tc config.TaggerConfig) (feature.Options, probability.Options, tagger.Options) {
	groups := tc.CaseGroups
	if groups == nil {
		groups = domain.DefaultCaseGroups()
	}

	featureOpts := feature.Options{
		RegisterNgrams:            tc.RegisterNgrams,
		SurroundingNgramMaxLength: tc.SurroundingNgramMaxLength,
		TupleMaxLength:            tc.TupleMaxLength,
		IgnoreTuplesOfSameGroup:   tc.IgnoreTuplesOfSameGroup,
		IgnoreEmptyFromCases:      tc.IgnoreEmptyFromCases,
		CaseGroups:                groups,
	}

	engineOpts := probability.Options{
		AdjustForImportance:   tc.AdjustForImportance,
		AdjustForOccurrence:   tc.AdjustForOccurrence,
		AdjustCollectionally:  tc.AdjustCollectionally,
		ImportanceStrategy:    probability.ImportanceStrategy(tc.ImportanceStrategy),
		OccurrenceStrategy:    probability.OccurrenceStrategy(tc.OccurrenceStrategy),
		OccurrenceHalfLife:    tc.OccurrenceHalfLife,
		OccurrenceSteepness:   tc.OccurrenceSteepness,
		OccurrenceCutoff:      tc.OccurrenceCutoff,
		CollectionalSteepness: tc.CollectionalSteepness,
		Importance:            tc.CaseImportance,
		Overrides:             tc.Overrides,
	}

	taggerOpts := tagger.Options{
		RegisterEmptyPOS:   tc.RegisterEmptyPOS,
		RegisterEmptyGloss: tc.RegisterEmptyGloss,
		NumberOfPasses:     tc.NumberOfPasses,
	}

	return featureOpts, engineOpts, taggerOpts
}

type outcomeStore interface {
	InsertOrIncrement(ctx context.Context, c domain.Case) error
	FetchAllOutcomes(ctx context.Context, candidates domain.Cases) (domain.Cases, error)
}

// caseStore is what a Language needs from either backend.
type caseStore interface {
	outcomeStore
	Reset(ctx context.Context) error
	Destroy(ctx context.Context) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Language is a tagger service bound to the store of one language.
type Language struct {
	Name    string
	Service *tagger.Service

	store caseStore
	cache *cache.Store
	close func() error
}

// OpenLanguage opens the store of lang and builds a service on top of it.
// The caller must Close the result.
func (a *App) OpenLanguage(ctx context.Context, lang string, mode Mode) (*Language, error) {
	store, tx, closeFn, err := a.openStore(ctx, lang, mode)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", lang, err)
	}

	l := &Language{Name: lang, store: store, close: closeFn}

	var lookup outcomeStore = store
	if mode == ModeTag && a.cfg.Store.CacheSize > 0 {
		c, err := cache.New(store, a.cfg.Store.CacheSize)
		if err != nil {
			_ = closeFn()
			return nil, err
		}
		l.cache = c
		lookup = c
	}

	// The language attribute comes from ctx through contextHandler.
	extractor := feature.NewExtractor(a.featureOpts, lang)
	engineOpts := a.engineOpts
	engineOpts.Overrides = extractor.NormalizeOverrides(a.engineOpts.Overrides)

	l.Service = tagger.NewService(
		a.log,
		lookup,
		tx,
		extractor,
		probability.NewEngine(a.log, engineOpts),
		a.taggerOpts,
	)
	return l, nil
}

func (a *App) openStore(ctx context.Context, lang string, mode Mode) (caseStore, txManager, func() error, error) {
	inMemory := mode == ModeTag && a.cfg.Store.UseMemory

	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		repo, err := casestore.New(a.pool, lang)
		if err != nil {
			return nil, nil, nil, err
		}
		if !inMemory {
			return repo, repo.TxManager(), func() error { return nil }, nil
		}
		mem, err := sqlite.OpenMemory(ctx, lang)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repo.CopyInto(ctx, mem); err != nil {
			_ = mem.Close()
			return nil, nil, nil, err
		}
		return mem, mem.TxManager(), mem.Close, nil

	default:
		var (
			s   *sqlite.Store
			err error
		)
		if inMemory {
			s, err = sqlite.OpenMemoryCopy(ctx, a.cfg.Store.Dir, lang)
		} else {
			s, err = sqlite.Open(ctx, a.cfg.Store.Dir, lang)
		}
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s.TxManager(), s.Close, nil
	}
}

// Destroy removes the language's store. The Language must not be used
// afterwards.
func (l *Language) Destroy(ctx context.Context) error {
	l.close = func() error { return nil }
	return l.store.Destroy(ctx)
}

// CacheStats reports outcome cache usage; ok is false when caching is off.
func (l *Language) CacheStats() (cache.Stats, bool) {
	if l.cache == nil {
		return cache.Stats{}, false
	}
	return l.cache.Stats(), true
}

// Close releases the store.
func (l *Language) Close() error {
	return l.close()
}
