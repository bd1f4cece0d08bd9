package domain

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// CaseType is a bitmask of atomic feature categories. Atomic types have a
// single bit set; tuple cases OR several atomic types together.
type CaseType uint32

// Atomic case types. The bit layout matches the one stored in existing
// databases and must not be renumbered.
const (
	WordPOS             CaseType = 1 << 0
	MorphemePOS         CaseType = 1 << 1
	SurroundingNgramPOS CaseType = 1 << 2
	PrefixNgramPOS      CaseType = 1 << 3
	SuffixNgramPOS      CaseType = 1 << 4
	GlossPOS            CaseType = 1 << 5

	MorphGloss            CaseType = 1 << 16
	WordGloss             CaseType = 1 << 17
	SurroundingNgramGloss CaseType = 1 << 18
	PrefixNgramGloss      CaseType = 1 << 19
	SuffixNgramGloss      CaseType = 1 << 20
	POSGloss              CaseType = 1 << 21
)

var caseTypeNames = map[CaseType]string{
	WordPOS:               "word_pos",
	MorphemePOS:           "morpheme_pos",
	SurroundingNgramPOS:   "surrounding_ngram_pos",
	PrefixNgramPOS:        "prefix_ngram_pos",
	SuffixNgramPOS:        "suffix_ngram_pos",
	GlossPOS:              "gloss_pos",
	MorphGloss:            "morph_gloss",
	WordGloss:             "word_gloss",
	SurroundingNgramGloss: "surrounding_ngram_gloss",
	PrefixNgramGloss:      "prefix_ngram_gloss",
	SuffixNgramGloss:      "suffix_ngram_gloss",
	POSGloss:              "pos_gloss",
}

// AtomicCaseTypes lists every named atomic type in bit order.
func AtomicCaseTypes() []CaseType {
	return []CaseType{
		WordPOS, MorphemePOS, SurroundingNgramPOS, PrefixNgramPOS, SuffixNgramPOS, GlossPOS,
		MorphGloss, WordGloss, SurroundingNgramGloss, PrefixNgramGloss, SuffixNgramGloss, POSGloss,
	}
}

// Atoms returns the atomic types set in t, lowest bit first.
func (t CaseType) Atoms() []CaseType {
	atoms := make([]CaseType, 0, bits.OnesCount32(uint32(t)))
	for i := 0; i < 32; i++ {
		if bit := CaseType(1) << i; t&bit != 0 {
			atoms = append(atoms, bit)
		}
	}
	return atoms
}

// Has reports whether every bit of other is set in t.
func (t CaseType) Has(other CaseType) bool { return other != 0 && t&other == other }

// Union ORs t with the given types.
func (t CaseType) Union(others ...CaseType) CaseType {
	for _, o := range others {
		t |= o
	}
	return t
}

// IsAtomic reports whether exactly one bit is set.
func (t CaseType) IsAtomic() bool { return bits.OnesCount32(uint32(t)) == 1 }

func (t CaseType) String() string {
	if t == 0 {
		return "none"
	}
	atoms := t.Atoms()
	names := make([]string, len(atoms))
	for i, a := range atoms {
		if name, ok := caseTypeNames[a]; ok {
			names[i] = name
		} else {
			names[i] = strconv.FormatUint(uint64(a), 10)
		}
	}
	return strings.Join(names, "|")
}

// ParseCaseType accepts an atomic type name, a "|"-joined list of names,
// or a decimal bitmask.
func ParseCaseType(s string) (CaseType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("case type: empty")
	}
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		if n == 0 {
			return 0, fmt.Errorf("case type: zero mask")
		}
		return CaseType(n), nil
	}

	var t CaseType
	for _, part := range strings.Split(s, "|") {
		part = strings.ToLower(strings.TrimSpace(part))
		found := false
		for ct, name := range caseTypeNames {
			if name == part {
				t |= ct
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("case type: unknown name %q", part)
		}
	}
	return t, nil
}

// Case is a typed observation mapping a feature string to an outcome.
// Identity is (Type, From, To); Occurrences is persisted, Prob is transient.
type Case struct {
	Type        CaseType
	From        string
	To          string
	Occurrences int
	Prob        float64
}

// CaseKey is the identity of a Case.
type CaseKey struct {
	Type CaseType
	From string
	To   string
}

// RawProbability is a case's occurrences over the total of its (type, from)
// counter, kept within [0, 1].
func RawProbability(occurrences, total int) float64 {
	if total <= 0 || occurrences <= 0 {
		return 0
	}
	return min(float64(occurrences)/float64(total), 1)
}

// FromKey identifies every case sharing a type and from-string.
type FromKey struct {
	Type CaseType
	From string
}

// Key returns the identity of c.
func (c Case) Key() CaseKey { return CaseKey{Type: c.Type, From: c.From, To: c.To} }

// FromKey returns the (type, from) half of the identity.
func (c Case) FromKey() FromKey { return FromKey{Type: c.Type, From: c.From} }

// Equal compares identity only; occurrences and probability are ignored.
func (c Case) Equal(other Case) bool { return c.Key() == other.Key() }

func (c Case) String() string {
	return fmt.Sprintf("%s %q => %q [occurrences=%d, prob=%.4f]", c.Type, c.From, c.To, c.Occurrences, c.Prob)
}

// CaseFromCounter is the total occurrence count over all outcomes of one
// (type, from) pair. It is the denominator of a case's raw probability.
type CaseFromCounter struct {
	Type        CaseType
	From        string
	Occurrences int
}

// Cases is an ordered collection scoped to one token's decision.
type Cases []Case

// Add appends a new case with one occurrence.
func (cs *Cases) Add(t CaseType, from, to string) {
	*cs = append(*cs, Case{Type: t, From: from, To: to, Occurrences: 1})
}

// Contains reports whether a case with the same identity is present.
func (cs Cases) Contains(c Case) bool {
	for _, x := range cs {
		if x.Equal(c) {
			return true
		}
	}
	return false
}

// FromKeys returns the distinct (type, from) pairs in first-seen order.
func (cs Cases) FromKeys() []FromKey {
	seen := make(map[FromKey]struct{}, len(cs))
	keys := make([]FromKey, 0, len(cs))
	for _, c := range cs {
		k := c.FromKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// CaseGroups assigns each atomic type to a group. Tuples are never formed
// from two members of the same group when grouping is enforced.
type CaseGroups map[CaseType]int

// GroupOf returns the group of an atomic type. Types absent from the map
// form a group of their own.
func (g CaseGroups) GroupOf(t CaseType) int {
	if group, ok := g[t]; ok {
		return group
	}
	return -int(t)
}

// DefaultCaseGroups mirrors the grouping used by existing trained stores:
// all n-gram features of one side share a group.
func DefaultCaseGroups() CaseGroups {
	return CaseGroups{
		WordPOS:               1,
		MorphemePOS:           2,
		SurroundingNgramPOS:   3,
		PrefixNgramPOS:        3,
		SuffixNgramPOS:        3,
		MorphGloss:            4,
		WordGloss:             5,
		SurroundingNgramGloss: 6,
		PrefixNgramGloss:      6,
		SuffixNgramGloss:      6,
		GlossPOS:              7,
		POSGloss:              8,
	}
}
