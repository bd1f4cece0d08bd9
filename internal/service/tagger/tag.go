package tagger

import (
	"context"
	"fmt"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// Tag assigns a POS tag to every word and glosses to every morpheme of
// text, overwriting existing values. Each pass sees the assignments of the
// previous one, and within a pass a word's new POS is visible to its
// morphemes and to the words after it.
func (s *Service) Tag(ctx context.Context, text *domain.Text) error {
	if err := text.Validate(); err != nil {
		return fmt.Errorf("tag: %w", err)
	}

	for pass := 1; pass <= s.opts.NumberOfPasses; pass++ {
		for i, phrase := range text.Phrases {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("tag: %w", err)
			}
			if err := s.tagPhrase(ctx, phrase); err != nil {
				return fmt.Errorf("tag pass %d phrase %d: %w", pass, i, err)
			}
		}
		s.log.DebugContext(ctx, "tag pass done", "title", text.Title, "pass", pass)
	}
	return nil
}

func (s *Service) tagPhrase(ctx context.Context, phrase *domain.Phrase) error {
	for _, word := range phrase.Words {
		candidates, err := s.extractor.WordCases(phrase, word)
		if err != nil {
			return err
		}
		pos, err := s.decide(ctx, candidates)
		if err != nil {
			return fmt.Errorf("word %q: %w", word.Word, err)
		}
		word.POS = pos

		for _, morpheme := range word.Morphemes {
			candidates, err := s.extractor.MorphemeCases(phrase, word, morpheme)
			if err != nil {
				return err
			}
			gloss, err := s.decide(ctx, candidates)
			if err != nil {
				return fmt.Errorf("morpheme %q: %w", morpheme.Morpheme, err)
			}
			morpheme.Glosses = domain.SplitGlosses(gloss)
		}
	}
	return nil
}

func (s *Service) decide(ctx context.Context, candidates domain.Cases) (string, error) {
	outcomes, err := s.store.FetchAllOutcomes(ctx, candidates)
	if err != nil {
		return "", err
	}
	return s.engine.Select(ctx, candidates, outcomes), nil
}
