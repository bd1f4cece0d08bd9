package feature

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// Separators used inside from-strings. NgramDelimiter is stripped from every
// token, so a joined window can always be split back into its tokens.
const (
	NgramDelimiter = "\x1f"
	TupleDelimiter = "@"
	Filler         = "<#>"
	TargetMarker   = "*"
)

var delimiterStripper = strings.NewReplacer(NgramDelimiter, "")

// normalizer lowercases tokens with the casing rules of one language.
// A cases.Caser keeps state, so a normalizer must not be shared between goroutines.
type normalizer struct {
	lower cases.Caser
}

func newNormalizer(lang string) normalizer {
	tag := language.Und
	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			tag = parsed
		}
	}
	return normalizer{lower: cases.Lower(tag)}
}

func (n normalizer) token(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	return delimiterStripper.Replace(n.lower.String(s))
}

// NormalizeFrom rewrites a hand-written from-string the way extraction
// would have produced it for t. Surface members are lowercased for the
// extractor's language, label members only lose delimiters. N-gram
// members are returned as written. Tuple members are split on
// TupleDelimiter and matched to the atoms of t in ascending order.
func (e *Extractor) NormalizeFrom(t domain.CaseType, from string) string {
	atoms := t.Atoms()
	if len(atoms) <= 1 {
		return e.normalizeMember(t, from)
	}
	members := strings.SplitN(from, TupleDelimiter, len(atoms))
	for i, m := range members {
		members[i] = e.normalizeMember(atoms[i], m)
	}
	return strings.Join(members, TupleDelimiter)
}

// NormalizeOverrides returns a copy of overrides with every key's from-string
// passed through NormalizeFrom. When two keys collapse to the same one the
// key that sorts first by from-string wins.
func (e *Extractor) NormalizeOverrides(overrides map[domain.FromKey]string) map[domain.FromKey]string {
	if overrides == nil {
		return nil
	}
	keys := slices.SortedFunc(maps.Keys(overrides), func(a, b domain.FromKey) int {
		return cmp.Or(cmp.Compare(a.Type, b.Type), cmp.Compare(a.From, b.From))
	})
	out := make(map[domain.FromKey]string, len(overrides))
	for _, k := range keys {
		nk := domain.FromKey{Type: k.Type, From: e.NormalizeFrom(k.Type, k.From)}
		if _, ok := out[nk]; !ok {
			out[nk] = overrides[k]
		}
	}
	return out
}

func (e *Extractor) normalizeMember(t domain.CaseType, s string) string {
	switch t {
	case domain.WordPOS, domain.MorphemePOS, domain.MorphGloss, domain.WordGloss:
		return e.norm.token(s)
	case domain.GlossPOS, domain.POSGloss:
		return label(s)
	default:
		return s
	}
}
