package sqlite_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/casetagger/internal/adapter/sqlite"
	"github.com/heartmarshall/casetagger/internal/domain"
)

func openMemory(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.OpenMemory(context.Background(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertOrIncrement_Twice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	c := domain.Case{Type: domain.WordPOS, From: "x", To: "y"}
	require.NoError(t, s.InsertOrIncrement(ctx, c))
	require.NoError(t, s.InsertOrIncrement(ctx, c))

	got, err := s.GetCase(ctx, c.Type, c.From, c.To)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Occurrences)

	counter, err := s.GetCounter(ctx, c.Type, c.From)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.Occurrences)
}

func TestInsertOrIncrement_CounterSumsOutcomes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	for _, to := range []string{"N", "V", "N", "ADJ"} {
		require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "run", To: to}))
	}

	counter, err := s.GetCounter(ctx, domain.WordPOS, "run")
	require.NoError(t, err)
	assert.Equal(t, 4, counter.Occurrences)

	cases, err := s.AllCases(ctx)
	require.NoError(t, err)
	sum := 0
	for _, c := range cases {
		sum += c.Occurrences
	}
	assert.Equal(t, counter.Occurrences, sum)
}

func TestFetchAllOutcomes_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.MorphGloss, From: "x", To: "y"}))

	var candidates domain.Cases
	candidates.Add(domain.MorphGloss, "x", "")

	got, err := s.FetchAllOutcomes(ctx, candidates)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].To)
	assert.Equal(t, 1, got[0].Occurrences)
	assert.InDelta(t, 1.0, got[0].Prob, 1e-9)
}

func TestFetchAllOutcomes_DuplicateCandidatesCountAgain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	for _, to := range []string{"c", "a", "b"} {
		require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "w", To: to}))
	}
	require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.MorphemePOS, From: "w", To: "z"}))

	var candidates domain.Cases
	candidates.Add(domain.WordPOS, "w", "")
	candidates.Add(domain.WordPOS, "w", "")
	candidates.Add(domain.WordPOS, "unseen", "")

	got, err := s.FetchAllOutcomes(ctx, candidates)
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].To, got[1].To, got[2].To}, "ordered by outcome")
	for _, c := range got {
		assert.Equal(t, domain.WordPOS, c.Type)
		assert.InDelta(t, 1.0/3, c.Prob, 1e-9)
	}
}

func TestFetchAllOutcomes_InterleavedKeysKeepCandidateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	for _, to := range []string{"b", "a"} {
		require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "w", To: to}))
	}
	require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.MorphemePOS, From: "w", To: "z"}))
	require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.GlossPOS, From: "PL", To: "N"}))

	var candidates domain.Cases
	candidates.Add(domain.MorphemePOS, "w", "")
	candidates.Add(domain.GlossPOS, "PL", "")
	candidates.Add(domain.WordPOS, "w", "")
	candidates.Add(domain.MorphemePOS, "w", "")

	got, err := s.FetchAllOutcomes(ctx, candidates)
	require.NoError(t, err)

	var tos []string
	for _, c := range got {
		tos = append(tos, c.To)
	}
	assert.Equal(t, []string{"z", "N", "a", "b", "z"}, tos)
}

func TestFetchAllOutcomes_ManyKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	var candidates domain.Cases
	for i := range 450 {
		from := strconv.Itoa(i)
		require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: from, To: "N"}))
		candidates.Add(domain.WordPOS, from, "")
	}

	got, err := s.FetchAllOutcomes(ctx, candidates)
	require.NoError(t, err)
	require.Len(t, got, 450)
	for i, c := range got {
		assert.Equal(t, strconv.Itoa(i), c.From)
	}
}

func TestFetchAllOutcomes_MissingCounter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	// A case row without its counter can only appear through a bulk load.
	require.NoError(t, s.Load(ctx, []domain.Case{{Type: domain.WordPOS, From: "x", To: "y", Occurrences: 1}}, nil))

	var candidates domain.Cases
	candidates.Add(domain.WordPOS, "x", "")

	_, err := s.FetchAllOutcomes(ctx, candidates)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	var integrity *domain.IntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, "x", integrity.From)
}

func TestGetCase_NotFound(t *testing.T) {
	t.Parallel()
	s := openMemory(t)

	_, err := s.GetCase(context.Background(), domain.WordPOS, "nope", "N")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.GetCounter(context.Background(), domain.WordPOS, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnicodeRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	c := domain.Case{Type: domain.WordPOS, From: "ɔkra", To: "Ñ"}
	require.NoError(t, s.InsertOrIncrement(ctx, c))

	got, err := s.GetCase(ctx, c.Type, c.From, c.To)
	require.NoError(t, err)
	assert.True(t, got.Equal(c))
}

func TestLargeCaseType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	c := domain.Case{Type: domain.SuffixNgramGloss | domain.POSGloss | domain.MorphGloss, From: "a@b", To: "PL"}
	require.NoError(t, s.InsertOrIncrement(ctx, c))

	got, err := s.GetCase(ctx, c.Type, c.From, c.To)
	require.NoError(t, err)
	assert.Equal(t, c.Type, got.Type)
}

func TestCopyIntoMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	file, err := sqlite.Open(ctx, dir, "nob")
	require.NoError(t, err)
	require.NoError(t, file.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "hei", To: "INTJ"}))
	require.NoError(t, file.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "hei", To: "INTJ"}))
	require.NoError(t, file.Close())

	mem, err := sqlite.OpenMemoryCopy(ctx, dir, "nob")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })
	assert.Empty(t, mem.Path())

	got, err := mem.GetCase(ctx, domain.WordPOS, "hei", "INTJ")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Occurrences)

	counter, err := mem.GetCounter(ctx, domain.WordPOS, "hei")
	require.NoError(t, err)
	assert.Equal(t, 2, counter.Occurrences)

	// Writes to the copy leave the file untouched.
	require.NoError(t, mem.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "hei", To: "INTJ"}))
	file, err = sqlite.Open(ctx, dir, "nob")
	require.NoError(t, err)
	defer file.Close()
	got, err = file.GetCase(ctx, domain.WordPOS, "hei", "INTJ")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Occurrences)
}

func TestMemoryStoresAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a := openMemory(t)
	b := openMemory(t)
	require.NoError(t, a.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "x", To: "y"}))

	cases, err := b.AllCases(ctx)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "x", To: "y"}))
	require.NoError(t, s.Reset(ctx))

	cases, err := s.AllCases(ctx)
	require.NoError(t, err)
	assert.Empty(t, cases)
	counters, err := s.AllCounters(ctx)
	require.NoError(t, err)
	assert.Empty(t, counters)
}

func TestDestroy_ThenReopenIsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	s, err := sqlite.Open(ctx, dir, "twi")
	require.NoError(t, err)
	require.NoError(t, s.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "x", To: "y"}))
	require.FileExists(t, sqlite.FilePath(dir, "twi"))

	require.NoError(t, s.Destroy(ctx))
	_, err = os.Stat(sqlite.FilePath(dir, "twi"))
	assert.True(t, os.IsNotExist(err))

	s, err = sqlite.Open(ctx, dir, "twi")
	require.NoError(t, err)
	defer s.Close()
	cases, err := s.AllCases(ctx)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestOpen_RejectsBadLanguage(t *testing.T) {
	t.Parallel()

	for _, lang := range []string{"", "  ", "../etc", `a\b`} {
		_, err := sqlite.Open(context.Background(), t.TempDir(), lang)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "language %q", lang)
	}
}

func TestRunInTx_RollbackUndoesBothWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMemory(t)
	sentinel := errors.New("abort")

	err := s.TxManager().RunInTx(ctx, func(ctx context.Context) error {
		if err := s.InsertOrIncrement(ctx, domain.Case{Type: domain.WordPOS, From: "x", To: "y"}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = s.GetCase(ctx, domain.WordPOS, "x", "y")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetCounter(ctx, domain.WordPOS, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
