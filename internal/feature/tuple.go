package feature

import (
	"cmp"
	"slices"
	"strings"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// TupleCases returns atoms followed by every tuple case built from them.
// For each arity 2..TupleMaxLength and each combination of atoms (in index
// order) a case is emitted whose type ORs the member types and whose
// from-string joins the members, sorted by type, with TupleDelimiter.
// Combinations with two members in the same case group are skipped when
// IgnoreTuplesOfSameGroup is set. Only atoms are combined, never tuples.
func (e *Extractor) TupleCases(atoms domain.Cases) domain.Cases {
	out := slices.Clone(atoms)
	n := len(atoms)
	maxLen := min(e.opts.TupleMaxLength, n)

	members := make([]domain.Case, 0, max(maxLen, 0))
	for k := 2; k <= maxLen; k++ {
		combinations(n, k, func(idx []int) {
			members = members[:0]
			for _, i := range idx {
				members = append(members, atoms[i])
			}
			if e.opts.IgnoreTuplesOfSameGroup && e.sharesGroup(members) {
				return
			}
			out = append(out, joinTuple(members))
		})
	}
	return out
}

func (e *Extractor) sharesGroup(members []domain.Case) bool {
	seen := make(map[int]struct{}, len(members))
	for _, m := range members {
		for _, atom := range m.Type.Atoms() {
			g := e.opts.CaseGroups.GroupOf(atom)
			if _, ok := seen[g]; ok {
				return true
			}
			seen[g] = struct{}{}
		}
	}
	return false
}

func joinTuple(members []domain.Case) domain.Case {
	sorted := slices.Clone(members)
	slices.SortStableFunc(sorted, func(a, b domain.Case) int { return cmp.Compare(a.Type, b.Type) })

	var t domain.CaseType
	froms := make([]string, len(sorted))
	for i, m := range sorted {
		t |= m.Type
		froms[i] = m.From
	}
	return domain.Case{
		Type:        t,
		From:        strings.Join(froms, TupleDelimiter),
		To:          sorted[0].To,
		Occurrences: 1,
	}
}

// combinations calls fn with every k-subset of [0, n) in lexicographic
// order. The slice passed to fn is reused between calls.
func combinations(n, k int, fn func(idx []int)) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
