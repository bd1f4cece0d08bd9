package domain

import (
	"slices"
	"strings"
)

// GlossSeparator joins the glosses of one morpheme into a single outcome.
const GlossSeparator = "."

// Text is an annotated document in one language.
type Text struct {
	Title    string
	Language string
	Phrases  []*Phrase
}

// Phrase is an ordered sequence of words.
type Phrase struct {
	Phrase      string
	Translation string
	Words       []*Word
}

// Word carries a surface form, an optional POS tag, and its morphemes.
type Word struct {
	Word      string
	POS       string
	Morphemes []*Morpheme
}

// Morpheme carries a surface form and zero or more glosses.
type Morpheme struct {
	Morpheme string
	Glosses  []string
}

// GlossesConcatenated returns the glosses sorted alphabetically and joined
// by GlossSeparator. The receiver's slice is left untouched.
func (m *Morpheme) GlossesConcatenated() string {
	if m == nil || len(m.Glosses) == 0 {
		return ""
	}
	sorted := slices.Clone(m.Glosses)
	slices.Sort(sorted)
	return strings.Join(sorted, GlossSeparator)
}

// SplitGlosses is the inverse of GlossesConcatenated. An empty string
// yields no glosses.
func SplitGlosses(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, GlossSeparator)
}

// IndexOfWord returns the position of w in the phrase, or -1.
func (p *Phrase) IndexOfWord(w *Word) int {
	for i, x := range p.Words {
		if x == w {
			return i
		}
	}
	return -1
}

// IndexOfMorpheme returns the position of m in the word, or -1.
func (w *Word) IndexOfMorpheme(m *Morpheme) int {
	for i, x := range w.Morphemes {
		if x == m {
			return i
		}
	}
	return -1
}

// Words returns every word of the text in reading order.
func (t *Text) Words() []*Word {
	var words []*Word
	for _, p := range t.Phrases {
		if p == nil {
			continue
		}
		words = append(words, p.Words...)
	}
	return words
}

// Morphemes returns every morpheme of the text in reading order.
func (t *Text) Morphemes() []*Morpheme {
	var morphemes []*Morpheme
	for _, w := range t.Words() {
		if w == nil {
			continue
		}
		morphemes = append(morphemes, w.Morphemes...)
	}
	return morphemes
}

// Clone returns a deep copy of the text.
func (t *Text) Clone() *Text {
	if t == nil {
		return nil
	}
	out := &Text{Title: t.Title, Language: t.Language, Phrases: make([]*Phrase, len(t.Phrases))}
	for i, p := range t.Phrases {
		if p == nil {
			continue
		}
		np := &Phrase{Phrase: p.Phrase, Translation: p.Translation, Words: make([]*Word, len(p.Words))}
		for j, w := range p.Words {
			if w == nil {
				continue
			}
			nw := &Word{Word: w.Word, POS: w.POS, Morphemes: make([]*Morpheme, len(w.Morphemes))}
			for k, m := range w.Morphemes {
				if m == nil {
					continue
				}
				nw.Morphemes[k] = &Morpheme{Morpheme: m.Morpheme, Glosses: slices.Clone(m.Glosses)}
			}
			np.Words[j] = nw
		}
		out.Phrases[i] = np
	}
	return out
}

// StripAnnotations clears every POS tag and gloss in place.
func (t *Text) StripAnnotations() {
	for _, w := range t.Words() {
		if w == nil {
			continue
		}
		w.POS = ""
		for _, m := range w.Morphemes {
			if m != nil {
				m.Glosses = nil
			}
		}
	}
}

// Validate checks the structural shape the tagger relies on.
func (t *Text) Validate() error {
	if t == nil {
		return InvalidInput("text is nil")
	}
	for i, p := range t.Phrases {
		if p == nil {
			return InvalidInput("phrase %d is nil", i)
		}
		for j, w := range p.Words {
			if w == nil {
				return InvalidInput("phrase %d: word %d is nil", i, j)
			}
			for k, m := range w.Morphemes {
				if m == nil {
					return InvalidInput("phrase %d: word %d: morpheme %d is nil", i, j, k)
				}
			}
		}
	}
	return nil
}
