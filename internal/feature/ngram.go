package feature

import (
	"strings"

	"github.com/heartmarshall/casetagger/internal/domain"
)

type ngramTypes struct {
	surrounding domain.CaseType
	prefix      domain.CaseType
	suffix      domain.CaseType
}

var (
	posNgramTypes = ngramTypes{
		surrounding: domain.SurroundingNgramPOS,
		prefix:      domain.PrefixNgramPOS,
		suffix:      domain.SuffixNgramPOS,
	}
	glossNgramTypes = ngramTypes{
		surrounding: domain.SurroundingNgramGloss,
		prefix:      domain.PrefixNgramGloss,
		suffix:      domain.SuffixNgramGloss,
	}
)

// ngramSource describes a sequence of tokens around a target index. surface
// and label render the token at a position inside the sequence.
type ngramSource struct {
	types   ngramTypes
	length  int
	index   int
	to      string
	surface func(i int) string
	label   func(i int) string
}

// window classifies a length-n window starting at start relative to index.
type window struct {
	start, end int
	typ        domain.CaseType
}

// windows lists every window of length 2..maxLen that contains index, in
// order of increasing length and start. The window ending at index is a
// prefix, the one starting at it a suffix, any other one surrounds it.
// Prefix and suffix windows must fit inside [0, length); surrounding
// windows may overhang and are filled later.
func windows(length, index, maxLen int, types ngramTypes) []window {
	var ws []window
	for size := 2; size <= maxLen; size++ {
		for start := index - size + 1; start <= index; start++ {
			end := start + size - 1
			w := window{start: start, end: end, typ: types.surrounding}
			switch {
			case start == index:
				w.typ = types.suffix
			case end == index:
				w.typ = types.prefix
			}
			inBounds := start >= 0 && end < length
			if !inBounds && w.typ != types.surrounding {
				continue
			}
			ws = append(ws, w)
		}
	}
	return ws
}

func (e *Extractor) addNgrams(cs *domain.Cases, src ngramSource) {
	for _, w := range windows(src.length, src.index, e.opts.SurroundingNgramMaxLength, src.types) {
		e.add(cs, w.typ, renderWindow(w, src.length, src.surface), src.to)
		e.add(cs, w.typ, renderWindow(w, src.length, src.label), src.to)
	}
}

func renderWindow(w window, length int, render func(i int) string) string {
	parts := make([]string, 0, w.end-w.start+1)
	for i := w.start; i <= w.end; i++ {
		if i < 0 || i >= length {
			parts = append(parts, Filler)
			continue
		}
		parts = append(parts, render(i))
	}
	return strings.Join(parts, NgramDelimiter)
}
