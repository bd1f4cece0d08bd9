// Package tagger trains case stores from annotated texts and tags new
// texts with the POS tags and glosses the stored cases predict.
package tagger

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/casetagger/internal/domain"
)

type caseStore interface {
	InsertOrIncrement(ctx context.Context, c domain.Case) error
	FetchAllOutcomes(ctx context.Context, candidates domain.Cases) (domain.Cases, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type caseExtractor interface {
	WordCases(phrase *domain.Phrase, word *domain.Word) (domain.Cases, error)
	MorphemeCases(phrase *domain.Phrase, word *domain.Word, morpheme *domain.Morpheme) (domain.Cases, error)
}

type outcomeSelector interface {
	Select(ctx context.Context, candidates, outcomes domain.Cases) string
}

// Options controls training and tagging.
type Options struct {
	// RegisterEmptyPOS trains on words without a POS tag, teaching the
	// store that a context predicts "no tag".
	RegisterEmptyPOS bool
	// RegisterEmptyGloss does the same for morphemes without glosses.
	RegisterEmptyGloss bool
	// NumberOfPasses is how many times Tag walks a text. Values below 1
	// are treated as 1.
	NumberOfPasses int
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		RegisterEmptyPOS:   true,
		RegisterEmptyGloss: true,
		NumberOfPasses:     2,
	}
}

// Service trains and tags texts of one language. It is not safe for
// concurrent use; run one Service per language.
type Service struct {
	store     caseStore
	tx        txManager
	extractor caseExtractor
	engine    outcomeSelector
	opts      Options
	log       *slog.Logger
}

// NewService creates a new tagger service.
func NewService(
	log *slog.Logger,
	store caseStore,
	tx txManager,
	extractor caseExtractor,
	engine outcomeSelector,
	opts Options,
) *Service {
	if opts.NumberOfPasses < 1 {
		opts.NumberOfPasses = 1
	}
	return &Service{
		store:     store,
		tx:        tx,
		extractor: extractor,
		engine:    engine,
		opts:      opts,
		log:       log.With("service", "tagger"),
	}
}
