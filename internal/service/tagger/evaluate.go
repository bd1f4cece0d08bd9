package tagger

import (
	"context"
	"fmt"
	"strings"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// WordError is a word whose predicted POS differs from the gold one.
type WordError struct {
	Word     string
	Expected string
	Got      string
}

// MorphemeError is a morpheme whose predicted glosses differ from the gold ones.
type MorphemeError struct {
	Morpheme string
	Expected string
	Got      string
}

// EvalResult compares a tagged text with its gold annotation.
type EvalResult struct {
	Title            string
	WordsTotal       int
	WordsCorrect     int
	MorphemesTotal   int
	MorphemesCorrect int
	WordErrors       []WordError
	MorphemeErrors   []MorphemeError
}

// WordAccuracy returns the percentage of correctly tagged words, or -1
// when there were none.
func (r *EvalResult) WordAccuracy() float64 {
	return accuracy(r.WordsCorrect, r.WordsTotal)
}

// MorphemeAccuracy returns the percentage of correctly glossed morphemes,
// or -1 when there were none.
func (r *EvalResult) MorphemeAccuracy() float64 {
	return accuracy(r.MorphemesCorrect, r.MorphemesTotal)
}

func accuracy(correct, total int) float64 {
	if total == 0 {
		return -1
	}
	return 100 * float64(correct) / float64(total)
}

func (r *EvalResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Result for %s:\n", r.Title)
	fmt.Fprintf(&b, "  Words total = %d\n", r.WordsTotal)
	fmt.Fprintf(&b, "  Morphemes total = %d\n", r.MorphemesTotal)
	fmt.Fprintf(&b, "  Words correctly tagged = %d (%.2f %%)\n", r.WordsCorrect, r.WordAccuracy())
	fmt.Fprintf(&b, "  Morphemes correctly tagged = %d (%.2f %%)\n", r.MorphemesCorrect, r.MorphemeAccuracy())
	return b.String()
}

// Detail lists every mistagged word and morpheme in reading order.
func (r *EvalResult) Detail() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Wrong words (%d):\n", len(r.WordErrors))
	for _, e := range r.WordErrors {
		fmt.Fprintf(&b, "    %s: expected %q, got %q\n", e.Word, e.Expected, e.Got)
	}
	fmt.Fprintf(&b, "  Wrong morphemes (%d):\n", len(r.MorphemeErrors))
	for _, e := range r.MorphemeErrors {
		fmt.Fprintf(&b, "    %s: expected %q, got %q\n", e.Morpheme, e.Expected, e.Got)
	}
	return b.String()
}

// MergeResults sums results into one. Nil results are skipped.
func MergeResults(results ...*EvalResult) *EvalResult {
	var merged *EvalResult
	for _, r := range results {
		if r == nil {
			continue
		}
		if merged == nil {
			cp := *r
			cp.WordErrors = append([]WordError(nil), r.WordErrors...)
			cp.MorphemeErrors = append([]MorphemeError(nil), r.MorphemeErrors...)
			merged = &cp
			continue
		}
		merged.Title += " | " + r.Title
		merged.WordsTotal += r.WordsTotal
		merged.WordsCorrect += r.WordsCorrect
		merged.MorphemesTotal += r.MorphemesTotal
		merged.MorphemesCorrect += r.MorphemesCorrect
		merged.WordErrors = append(merged.WordErrors, r.WordErrors...)
		merged.MorphemeErrors = append(merged.MorphemeErrors, r.MorphemeErrors...)
	}
	return merged
}

// Evaluate tags an unannotated copy of gold and compares it with gold.
// Gold itself is left untouched.
func (s *Service) Evaluate(ctx context.Context, gold *domain.Text) (*EvalResult, error) {
	if err := gold.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	tagged := gold.Clone()
	tagged.StripAnnotations()
	if err := s.Tag(ctx, tagged); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	res := Compare(gold, tagged)
	s.log.InfoContext(ctx, "text evaluated",
		"title", res.Title,
		"word_accuracy", res.WordAccuracy(),
		"morpheme_accuracy", res.MorphemeAccuracy(),
	)
	return res, nil
}

// Compare scores predicted against gold word by word and morpheme by
// morpheme in reading order. Both texts must have the same shape.
func Compare(gold, predicted *domain.Text) *EvalResult {
	res := &EvalResult{Title: gold.Title}

	goldWords, predWords := gold.Words(), predicted.Words()
	for i, w := range goldWords {
		res.WordsTotal++
		got := ""
		if i < len(predWords) {
			got = predWords[i].POS
		}
		if w.POS == got {
			res.WordsCorrect++
			continue
		}
		res.WordErrors = append(res.WordErrors, WordError{Word: w.Word, Expected: w.POS, Got: got})
	}

	goldMorphemes, predMorphemes := gold.Morphemes(), predicted.Morphemes()
	for i, m := range goldMorphemes {
		res.MorphemesTotal++
		expected, got := m.GlossesConcatenated(), ""
		if i < len(predMorphemes) {
			got = predMorphemes[i].GlossesConcatenated()
		}
		if expected == got {
			res.MorphemesCorrect++
			continue
		}
		res.MorphemeErrors = append(res.MorphemeErrors, MorphemeError{Morpheme: m.Morpheme, Expected: expected, Got: got})
	}

	return res
}
