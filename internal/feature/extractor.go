// Package feature turns a token in its context into candidate cases.
// Extraction is pure: it never touches a store.
package feature

import (
	"github.com/heartmarshall/casetagger/internal/domain"
)

// Extractor builds candidate cases for words and morphemes of one language.
type Extractor struct {
	opts Options
	norm normalizer
}

// NewExtractor creates an Extractor for texts in the given language.
func NewExtractor(opts Options, lang string) *Extractor {
	if opts.CaseGroups == nil {
		opts.CaseGroups = domain.DefaultCaseGroups()
	}
	return &Extractor{opts: opts, norm: newNormalizer(lang)}
}

// ForLanguage returns an Extractor with the same options and another language.
func (e *Extractor) ForLanguage(lang string) *Extractor {
	return &Extractor{opts: e.opts, norm: newNormalizer(lang)}
}

// Options returns the options the extractor was built with.
func (e *Extractor) Options() Options { return e.opts }

// WordCases returns the candidate cases predicting the POS of word.
// Every case carries the word's current POS as its outcome.
func (e *Extractor) WordCases(phrase *domain.Phrase, word *domain.Word) (domain.Cases, error) {
	if phrase == nil || word == nil {
		return nil, domain.InvalidInput("word cases need a phrase and a word")
	}
	idx := phrase.IndexOfWord(word)
	if idx < 0 {
		return nil, domain.InvalidInput("word %q is not part of the phrase", word.Word)
	}

	pos := word.POS
	var cs domain.Cases

	e.add(&cs, domain.WordPOS, e.norm.token(word.Word), pos)
	for _, m := range word.Morphemes {
		if m == nil {
			return nil, domain.InvalidInput("word %q has a nil morpheme", word.Word)
		}
		if from := e.norm.token(m.Morpheme); from != "" {
			cs.Add(domain.MorphemePOS, from, pos)
		}
	}
	for _, m := range word.Morphemes {
		if gloss := label(m.GlossesConcatenated()); gloss != "" {
			cs.Add(domain.GlossPOS, gloss, pos)
		}
	}

	if e.opts.RegisterNgrams {
		words := phrase.Words
		e.addNgrams(&cs, ngramSource{
			types:  posNgramTypes,
			length: len(words),
			index:  idx,
			to:     pos,
			surface: func(i int) string {
				return e.norm.token(words[i].Word)
			},
			label: func(i int) string {
				if i == idx {
					return TargetMarker
				}
				return label(words[i].POS)
			},
		})
	}

	return e.TupleCases(cs), nil
}

// MorphemeCases returns the candidate cases predicting the glosses of
// morpheme. The outcome is the morpheme's sorted, "."-joined gloss string.
func (e *Extractor) MorphemeCases(phrase *domain.Phrase, word *domain.Word, morpheme *domain.Morpheme) (domain.Cases, error) {
	if phrase == nil || word == nil || morpheme == nil {
		return nil, domain.InvalidInput("morpheme cases need a phrase, a word and a morpheme")
	}
	wordIdx := phrase.IndexOfWord(word)
	if wordIdx < 0 {
		return nil, domain.InvalidInput("word %q is not part of the phrase", word.Word)
	}
	morphIdx := word.IndexOfMorpheme(morpheme)
	if morphIdx < 0 {
		return nil, domain.InvalidInput("morpheme %q is not part of word %q", morpheme.Morpheme, word.Word)
	}

	gloss := morpheme.GlossesConcatenated()
	var cs domain.Cases

	e.add(&cs, domain.MorphGloss, e.norm.token(morpheme.Morpheme), gloss)
	e.add(&cs, domain.WordGloss, e.norm.token(word.Word), gloss)
	e.add(&cs, domain.POSGloss, label(word.POS), gloss)

	if e.opts.RegisterNgrams {
		morphemes := word.Morphemes
		e.addNgrams(&cs, ngramSource{
			types:  glossNgramTypes,
			length: len(morphemes),
			index:  morphIdx,
			to:     gloss,
			surface: func(i int) string {
				return e.norm.token(morphemes[i].Morpheme)
			},
			label: func(i int) string {
				if i == morphIdx {
					return TargetMarker
				}
				return label(morphemes[i].GlossesConcatenated())
			},
		})

		words := phrase.Words
		e.addNgrams(&cs, ngramSource{
			types:  glossNgramTypes,
			length: len(words),
			index:  wordIdx,
			to:     gloss,
			surface: func(i int) string {
				return e.norm.token(words[i].Word)
			},
			label: func(i int) string {
				return label(words[i].POS)
			},
		})
	}

	return e.TupleCases(cs), nil
}

// add appends an atomic case unless its from-string is empty and empty
// features are ignored.
func (e *Extractor) add(cs *domain.Cases, t domain.CaseType, from, to string) {
	if from == "" && e.opts.IgnoreEmptyFromCases {
		return
	}
	cs.Add(t, from, to)
}

func label(s string) string {
	return delimiterStripper.Replace(s)
}
