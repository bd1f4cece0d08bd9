package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/casetagger/internal/domain"
)

func tupleExtractor(maxLen int, ignoreSameGroup bool) *Extractor {
	opts := DefaultOptions()
	opts.TupleMaxLength = maxLen
	opts.IgnoreTuplesOfSameGroup = ignoreSameGroup
	opts.CaseGroups = domain.CaseGroups{1: 1, 4: 3, 16: 3}
	return NewExtractor(opts, "")
}

func TestTupleCases_SkipsSameGroup(t *testing.T) {
	t.Parallel()

	var atoms domain.Cases
	atoms.Add(1, "a", "b")
	atoms.Add(4, "c", "b")
	atoms.Add(16, "c", "b")

	got := tupleExtractor(3, true).TupleCases(atoms)

	assert.True(t, got.Contains(domain.Case{Type: 1, From: "a", To: "b"}))
	assert.True(t, got.Contains(domain.Case{Type: 4, From: "c", To: "b"}))
	assert.True(t, got.Contains(domain.Case{Type: 16, From: "c", To: "b"}))
	assert.True(t, got.Contains(domain.Case{Type: 5, From: "a@c", To: "b"}))
	assert.True(t, got.Contains(domain.Case{Type: 17, From: "a@c", To: "b"}))
	assert.False(t, got.Contains(domain.Case{Type: 20, From: "c@c", To: "b"}))
	assert.False(t, got.Contains(domain.Case{Type: 21, From: "a@c@c", To: "b"}))
	assert.Len(t, got, 5)
}

func TestTupleCases_AllCombinationsWhenGroupsIgnored(t *testing.T) {
	t.Parallel()

	var atoms domain.Cases
	atoms.Add(1, "a", "b")
	atoms.Add(4, "c", "b")
	atoms.Add(16, "c", "b")

	got := tupleExtractor(3, false).TupleCases(atoms)

	assert.True(t, got.Contains(domain.Case{Type: 20, From: "c@c", To: "b"}))
	assert.True(t, got.Contains(domain.Case{Type: 21, From: "a@c@c", To: "b"}))
	// 3 atoms + 3 pairs + 1 triple
	assert.Len(t, got, 7)
}

func TestTupleCases_MembersSortedByType(t *testing.T) {
	t.Parallel()

	var atoms domain.Cases
	atoms.Add(domain.GlossPOS, "FOC", "PRT")
	atoms.Add(domain.WordPOS, "na", "PRT")

	got := NewExtractor(DefaultOptions(), "").TupleCases(atoms)

	require.Len(t, got, 3)
	assert.Equal(t, domain.WordPOS|domain.GlossPOS, got[2].Type)
	assert.Equal(t, "na@FOC", got[2].From)
	assert.Equal(t, "PRT", got[2].To)
}

func TestTupleCases_ArityBounds(t *testing.T) {
	t.Parallel()

	var atoms domain.Cases
	atoms.Add(1, "a", "x")
	atoms.Add(2, "b", "x")
	atoms.Add(32, "c", "x")

	assert.Len(t, tupleExtractor(1, true).TupleCases(atoms), 3, "arity 1 adds nothing")
	assert.Len(t, tupleExtractor(2, true).TupleCases(atoms), 6)
	assert.Len(t, tupleExtractor(10, true).TupleCases(atoms), 7, "arity is capped by the atom count")
	assert.Empty(t, tupleExtractor(3, true).TupleCases(nil))
}

func TestCombinations(t *testing.T) {
	t.Parallel()

	var got [][]int
	combinations(4, 2, func(idx []int) {
		got = append(got, append([]int(nil), idx...))
	})

	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, got)

	calls := 0
	combinations(2, 3, func([]int) { calls++ })
	assert.Zero(t, calls)
}
