package tagger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/casetagger/internal/adapter/sqlite"
	"github.com/heartmarshall/casetagger/internal/domain"
	"github.com/heartmarshall/casetagger/internal/feature"
	"github.com/heartmarshall/casetagger/internal/probability"
)

//go:generate moq -out case_store_mock_test.go -pkg tagger . caseStore
//go:generate moq -out tx_manager_mock_test.go -pkg tagger . txManager

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(store caseStore, tx txManager, opts Options) *Service {
	logger := testLogger()
	return NewService(
		logger,
		store,
		tx,
		feature.NewExtractor(feature.DefaultOptions(), "en"),
		probability.NewEngine(logger, probability.DefaultOptions()),
		opts,
	)
}

// passthroughTx runs fn directly, as a transaction manager without a database would.
func passthroughTx() *txManagerMock {
	return &txManagerMock{
		RunInTxFunc: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
}

// newSQLiteService wires the service to a private in-memory store.
func newSQLiteService(t *testing.T, engineOpts probability.Options) *Service {
	t.Helper()
	store, err := sqlite.OpenMemory(context.Background(), "en")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := testLogger()
	return NewService(
		logger,
		store,
		store.TxManager(),
		feature.NewExtractor(feature.DefaultOptions(), "en"),
		probability.NewEngine(logger, engineOpts),
		DefaultOptions(),
	)
}

func phrase(pairs ...string) *domain.Phrase {
	p := &domain.Phrase{}
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Words = append(p.Words, &domain.Word{Word: pairs[i], POS: pairs[i+1]})
	}
	return p
}

func textOf(phrases ...*domain.Phrase) *domain.Text {
	return &domain.Text{Title: "test", Language: "en", Phrases: phrases}
}

func posOf(text *domain.Text) []string {
	var tags []string
	for _, w := range text.Words() {
		tags = append(tags, w.POS)
	}
	return tags
}

// ---------------------------------------------------------------------------
// Train tests
// ---------------------------------------------------------------------------

func TestService_Train_OneTransactionPerPhrase(t *testing.T) {
	t.Parallel()

	store := &caseStoreMock{
		InsertOrIncrementFunc: func(ctx context.Context, c domain.Case) error { return nil },
	}
	tx := passthroughTx()
	svc := newTestService(store, tx, DefaultOptions())

	text := textOf(phrase("a", "X", "b", "Y"), phrase("c", "Z"))
	stats, err := svc.Train(context.Background(), text)

	require.NoError(t, err)
	assert.Len(t, tx.RunInTxCalls(), 2)
	assert.Equal(t, 2, stats.Phrases)
	assert.Equal(t, 3, stats.Words)
	assert.Zero(t, stats.Morphemes)
	assert.Equal(t, len(store.InsertOrIncrementCalls()), stats.Cases)
	assert.Positive(t, stats.Cases)
}

func TestService_Train_EmptyPOSPolicy(t *testing.T) {
	t.Parallel()

	var outcomes []string
	store := &caseStoreMock{
		InsertOrIncrementFunc: func(ctx context.Context, c domain.Case) error {
			outcomes = append(outcomes, c.To)
			return nil
		},
	}
	opts := DefaultOptions()
	opts.RegisterEmptyPOS = false
	opts.RegisterEmptyGloss = false
	svc := newTestService(store, passthroughTx(), opts)

	text := textOf(&domain.Phrase{Words: []*domain.Word{
		{Word: "untagged", Morphemes: []*domain.Morpheme{{Morpheme: "un"}}},
	}})
	stats, err := svc.Train(context.Background(), text)

	require.NoError(t, err)
	assert.Zero(t, stats.Words)
	assert.Zero(t, stats.Morphemes)
	assert.Empty(t, outcomes)
}

func TestService_Train_RegistersEmptyPOSByDefault(t *testing.T) {
	t.Parallel()

	store := &caseStoreMock{
		InsertOrIncrementFunc: func(ctx context.Context, c domain.Case) error { return nil },
	}
	svc := newTestService(store, passthroughTx(), DefaultOptions())

	text := textOf(&domain.Phrase{Words: []*domain.Word{
		{Word: "untagged", Morphemes: []*domain.Morpheme{{Morpheme: "un"}}},
	}})
	stats, err := svc.Train(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Words)
	assert.Equal(t, 1, stats.Morphemes)
	for _, call := range store.InsertOrIncrementCalls() {
		assert.Empty(t, call.C.To)
	}
}

func TestService_Train_NilText(t *testing.T) {
	t.Parallel()

	svc := newTestService(nil, nil, DefaultOptions())

	_, err := svc.Train(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Train(context.Background(), textOf(nil))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_Train_StoreErrorStops(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	store := &caseStoreMock{
		InsertOrIncrementFunc: func(ctx context.Context, c domain.Case) error { return boom },
	}
	tx := passthroughTx()
	svc := newTestService(store, tx, DefaultOptions())

	_, err := svc.Train(context.Background(), textOf(phrase("a", "X"), phrase("b", "Y")))

	require.ErrorIs(t, err, boom)
	assert.Len(t, tx.RunInTxCalls(), 1)
	assert.Len(t, store.InsertOrIncrementCalls(), 1)
}

func TestService_Train_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := newTestService(&caseStoreMock{}, passthroughTx(), DefaultOptions())

	_, err := svc.Train(ctx, textOf(phrase("a", "X")))
	assert.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Tag tests
// ---------------------------------------------------------------------------

func TestService_Tag_IntegrityErrorAborts(t *testing.T) {
	t.Parallel()

	store := &caseStoreMock{
		FetchAllOutcomesFunc: func(ctx context.Context, candidates domain.Cases) (domain.Cases, error) {
			return nil, &domain.IntegrityError{Type: domain.WordPOS, From: "a"}
		},
	}
	svc := newTestService(store, nil, DefaultOptions())

	err := svc.Tag(context.Background(), textOf(phrase("a", "", "b", "")))

	require.ErrorIs(t, err, domain.ErrIntegrity)
	assert.Len(t, store.FetchAllOutcomesCalls(), 1)
}

func TestService_Tag_RunsConfiguredPasses(t *testing.T) {
	t.Parallel()

	store := &caseStoreMock{
		FetchAllOutcomesFunc: func(ctx context.Context, candidates domain.Cases) (domain.Cases, error) {
			return nil, nil
		},
	}
	opts := DefaultOptions()
	opts.NumberOfPasses = 3
	svc := newTestService(store, nil, opts)

	text := textOf(&domain.Phrase{Words: []*domain.Word{
		{Word: "a", Morphemes: []*domain.Morpheme{{Morpheme: "a"}}},
	}})
	require.NoError(t, svc.Tag(context.Background(), text))

	// one word and one morpheme lookup per pass
	assert.Len(t, store.FetchAllOutcomesCalls(), 6)
	assert.Empty(t, text.Phrases[0].Words[0].POS)
	assert.Nil(t, text.Phrases[0].Words[0].Morphemes[0].Glosses)
}

func TestService_Tag_NilText(t *testing.T) {
	t.Parallel()

	svc := newTestService(nil, nil, DefaultOptions())
	assert.ErrorIs(t, svc.Tag(context.Background(), nil), domain.ErrInvalidInput)
}

func TestService_TrainThenTag_UnseenPhrase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newSQLiteService(t, probability.DefaultOptions())

	_, err := svc.Train(ctx, textOf(phrase("These", "DET", "are", "V", "my", "PRON", "phrases", "N")))
	require.NoError(t, err)

	unseen := textOf(&domain.Phrase{Words: []*domain.Word{
		{Word: "This"}, {Word: "is"}, {Word: "a"}, {Word: "phrase"},
	}})
	require.NoError(t, svc.Tag(ctx, unseen))
	assert.Len(t, posOf(unseen), 4)

	shared := textOf(&domain.Phrase{Words: []*domain.Word{
		{Word: "These"}, {Word: "are"}, {Word: "a"}, {Word: "phrase"},
	}})
	require.NoError(t, svc.Tag(ctx, shared))
	tags := posOf(shared)
	assert.Equal(t, "DET", tags[0])
	assert.Equal(t, "V", tags[1])
}

func TestService_Tag_DeterministicWithCompetingOutcomes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newSQLiteService(t, probability.DefaultOptions())

	_, err := svc.Train(ctx, textOf(
		phrase("I", "PRON", "run", "V", "home", "ADV"),
		phrase("a", "DET", "run", "N", "ends", "V"),
		phrase("we", "PRON", "run", "V", "fast", "ADV"),
	))
	require.NoError(t, err)

	target := func() *domain.Text {
		return textOf(&domain.Phrase{Words: []*domain.Word{{Word: "the"}, {Word: "run"}}})
	}
	first, second := target(), target()
	require.NoError(t, svc.Tag(ctx, first))
	require.NoError(t, svc.Tag(ctx, second))

	runTag := posOf(first)[1]
	assert.Contains(t, []string{"N", "V"}, runTag)
	assert.Equal(t, posOf(first), posOf(second))
}

func TestService_TrainThenTag_RecoversTrainingText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newSQLiteService(t, probability.DefaultOptions())

	gold := textOf(
		phrase("These", "DET", "are", "V", "my", "PRON", "phrases", "N"),
		&domain.Phrase{Words: []*domain.Word{
			{Word: "Bilene", POS: "N", Morphemes: []*domain.Morpheme{
				{Morpheme: "bil", Glosses: []string{"car"}},
				{Morpheme: "ene", Glosses: []string{"PL", "DEF"}},
			}},
		}},
	)
	_, err := svc.Train(ctx, gold)
	require.NoError(t, err)

	tagged := gold.Clone()
	tagged.StripAnnotations()
	tagged.Phrases[0].Words[0].Word = "THESE"
	require.NoError(t, svc.Tag(ctx, tagged))

	assert.Equal(t, []string{"DET", "V", "PRON", "N", "N"}, posOf(tagged))
	morphemes := tagged.Morphemes()
	assert.Equal(t, []string{"car"}, morphemes[0].Glosses)
	assert.Equal(t, []string{"DEF", "PL"}, morphemes[1].Glosses)
}

func TestService_Tag_OverrideWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	opts := probability.DefaultOptions()
	opts.Overrides = map[domain.FromKey]string{{Type: domain.WordPOS, From: "these"}: "PN"}
	svc := newSQLiteService(t, opts)

	_, err := svc.Train(ctx, textOf(phrase("These", "DET")))
	require.NoError(t, err)

	text := textOf(phrase("these", ""))
	require.NoError(t, svc.Tag(ctx, text))
	assert.Equal(t, []string{"PN"}, posOf(text))
}

// ---------------------------------------------------------------------------
// Evaluate tests
// ---------------------------------------------------------------------------

func TestService_Evaluate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newSQLiteService(t, probability.DefaultOptions())

	gold := textOf(phrase("These", "DET", "are", "V", "my", "PRON", "phrases", "N"))
	_, err := svc.Train(ctx, gold)
	require.NoError(t, err)

	res, err := svc.Evaluate(ctx, gold)
	require.NoError(t, err)

	assert.Equal(t, 4, res.WordsTotal)
	assert.Equal(t, 4, res.WordsCorrect)
	assert.InDelta(t, 100.0, res.WordAccuracy(), 1e-9)
	assert.InDelta(t, -1.0, res.MorphemeAccuracy(), 1e-9, "no morphemes to score")
	assert.Equal(t, []string{"DET", "V", "PRON", "N"}, posOf(gold), "gold is not modified")
}

func TestCompare_RecordsErrors(t *testing.T) {
	t.Parallel()

	gold := textOf(&domain.Phrase{Words: []*domain.Word{
		{Word: "a", POS: "X", Morphemes: []*domain.Morpheme{{Morpheme: "a", Glosses: []string{"1SG", "FOC"}}}},
		{Word: "b", POS: "Y"},
	}})
	predicted := gold.Clone()
	predicted.Phrases[0].Words[1].POS = "Z"
	predicted.Phrases[0].Words[0].Morphemes[0].Glosses = []string{"FOC", "1SG"}

	res := Compare(gold, predicted)

	assert.Equal(t, 1, res.WordsCorrect)
	assert.Equal(t, []WordError{{Word: "b", Expected: "Y", Got: "Z"}}, res.WordErrors)
	assert.Equal(t, 1, res.MorphemesCorrect, "gloss order does not matter")
	assert.InDelta(t, 50.0, res.WordAccuracy(), 1e-9)
}

func TestEvalResult_Detail(t *testing.T) {
	t.Parallel()

	res := &EvalResult{
		WordErrors:     []WordError{{Word: "b", Expected: "Y", Got: "Z"}},
		MorphemeErrors: []MorphemeError{{Morpheme: "ene", Expected: "DEF.PL", Got: ""}},
	}

	assert.Equal(t,
		"  Wrong words (1):\n"+
			"    b: expected \"Y\", got \"Z\"\n"+
			"  Wrong morphemes (1):\n"+
			"    ene: expected \"DEF.PL\", got \"\"\n",
		res.Detail())
	assert.NotContains(t, res.String(), "Wrong words")
}

func TestMergeResults(t *testing.T) {
	t.Parallel()

	a := &EvalResult{Title: "a", WordsTotal: 4, WordsCorrect: 3, WordErrors: []WordError{{Word: "x"}}}
	b := &EvalResult{Title: "b", WordsTotal: 6, WordsCorrect: 2, MorphemesTotal: 2, MorphemesCorrect: 1}

	merged := MergeResults(a, nil, b)

	require.NotNil(t, merged)
	assert.Equal(t, "a | b", merged.Title)
	assert.Equal(t, 10, merged.WordsTotal)
	assert.Equal(t, 5, merged.WordsCorrect)
	assert.Equal(t, 2, merged.MorphemesTotal)
	assert.Len(t, merged.WordErrors, 1)
	assert.Equal(t, "a", a.Title, "inputs are not modified")
	assert.Nil(t, MergeResults())
	assert.Contains(t, merged.String(), "Words correctly tagged = 5 (50.00 %)")
}
