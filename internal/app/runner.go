package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/casetagger/internal/corpus"
	"github.com/heartmarshall/casetagger/internal/domain"
	"github.com/heartmarshall/casetagger/internal/service/tagger"
	"github.com/heartmarshall/casetagger/pkg/ctxutil"
)

// LanguageResult holds the outcome of one language's run.
type LanguageResult struct {
	Language string
	Texts    int
	Train    tagger.TrainStats
	Eval     *tagger.EvalResult
	Duration time.Duration
	Err      error
}

// languageOpener is satisfied by *App.
type languageOpener interface {
	OpenLanguage(ctx context.Context, lang string, mode Mode) (*Language, error)
}

// Runner fans a batch of texts out over their languages. Each language
// owns its store, so languages run concurrently up to the configured
// parallelism while the texts of one language are processed in order.
type Runner struct {
	log         *slog.Logger
	opener      languageOpener
	parallelism int
}

// NewRunner creates a Runner.
func NewRunner(log *slog.Logger, opener languageOpener, parallelism int) *Runner {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Runner{log: log, opener: opener, parallelism: parallelism}
}

type job func(ctx context.Context, l *Language, texts []*domain.Text, res *LanguageResult) error

// Train trains every text into the store of its language.
func (r *Runner) Train(ctx context.Context, texts []*domain.Text) ([]LanguageResult, error) {
	return r.run(ctx, texts, ModeTrain, func(ctx context.Context, l *Language, texts []*domain.Text, res *LanguageResult) error {
		for _, text := range texts {
			stats, err := l.Service.Train(ctx, text)
			if err != nil {
				return fmt.Errorf("train %q: %w", text.Title, err)
			}
			res.Train = res.Train.Add(stats)
		}
		return nil
	})
}

// Tag fills in POS tags and glosses of every text in place.
func (r *Runner) Tag(ctx context.Context, texts []*domain.Text) ([]LanguageResult, error) {
	return r.run(ctx, texts, ModeTag, func(ctx context.Context, l *Language, texts []*domain.Text, _ *LanguageResult) error {
		for _, text := range texts {
			if err := l.Service.Tag(ctx, text); err != nil {
				return fmt.Errorf("tag %q: %w", text.Title, err)
			}
		}
		return nil
	})
}

// Test evaluates every text against its own annotation and merges the
// results per language.
func (r *Runner) Test(ctx context.Context, texts []*domain.Text) ([]LanguageResult, error) {
	return r.run(ctx, texts, ModeTag, func(ctx context.Context, l *Language, texts []*domain.Text, res *LanguageResult) error {
		results := make([]*tagger.EvalResult, 0, len(texts))
		for _, text := range texts {
			eval, err := l.Service.Evaluate(ctx, text)
			if err != nil {
				return fmt.Errorf("evaluate %q: %w", text.Title, err)
			}
			results = append(results, eval)
		}
		res.Eval = tagger.MergeResults(results...)
		return nil
	})
}

// run groups texts by language and applies fn to each group. A failing
// language does not stop the others; the joined error names every failure.
// Results are in first-seen language order.
func (r *Runner) run(ctx context.Context, texts []*domain.Text, mode Mode, fn job) ([]LanguageResult, error) {
	langs, byLang := corpus.SplitByLanguage(texts)
	results := make([]LanguageResult, len(langs))

	var g errgroup.Group
	g.SetLimit(r.parallelism)

	var mu sync.Mutex
	var errs []error

	for i, lang := range langs {
		g.Go(func() error {
			res := &results[i]
			res.Language = lang
			res.Texts = len(byLang[lang])

			lctx := ctxutil.WithLanguage(ctx, lang)
			start := time.Now()
			res.Err = r.runLanguage(lctx, lang, byLang[lang], mode, fn, res)
			res.Duration = time.Since(start)

			if res.Err != nil {
				r.log.ErrorContext(lctx, "language failed", slog.String("error", res.Err.Error()))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", lang, res.Err))
				mu.Unlock()
				return nil
			}
			r.log.InfoContext(lctx, "language completed",
				slog.Int("texts", res.Texts),
				slog.Duration("duration", res.Duration),
			)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

func (r *Runner) runLanguage(ctx context.Context, lang string, texts []*domain.Text, mode Mode, fn job, res *LanguageResult) (err error) {
	l, err := r.opener.OpenLanguage(ctx, lang, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := l.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()

	if err := fn(ctx, l, texts, res); err != nil {
		return err
	}

	if stats, ok := l.CacheStats(); ok {
		r.log.DebugContext(ctx, "outcome cache",
			slog.Int64("hits", stats.Hits),
			slog.Int64("misses", stats.Misses),
		)
	}
	return nil
}

// Reset destroys the store of one language.
func (r *Runner) Reset(ctx context.Context, lang string) error {
	ctx = ctxutil.WithLanguage(ctx, lang)
	l, err := r.opener.OpenLanguage(ctx, lang, ModeTrain)
	if err != nil {
		return err
	}
	if err := l.Destroy(ctx); err != nil {
		_ = l.Close()
		return fmt.Errorf("destroy %s: %w", lang, err)
	}
	r.log.InfoContext(ctx, "store destroyed")
	return nil
}
