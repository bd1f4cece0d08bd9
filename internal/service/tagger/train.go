package tagger

import (
	"context"
	"fmt"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// TrainStats counts what one Train call recorded.
type TrainStats struct {
	Phrases   int
	Words     int
	Morphemes int
	Cases     int
}

// Add sums two stats.
func (s TrainStats) Add(other TrainStats) TrainStats {
	return TrainStats{
		Phrases:   s.Phrases + other.Phrases,
		Words:     s.Words + other.Words,
		Morphemes: s.Morphemes + other.Morphemes,
		Cases:     s.Cases + other.Cases,
	}
}

// Train records every case of text in the store. Each phrase is committed
// in its own transaction; on error, phrases committed so far stay.
func (s *Service) Train(ctx context.Context, text *domain.Text) (TrainStats, error) {
	var stats TrainStats
	if err := text.Validate(); err != nil {
		return stats, fmt.Errorf("train: %w", err)
	}

	for i, phrase := range text.Phrases {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("train: %w", err)
		}

		var phraseStats TrainStats
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			phraseStats = TrainStats{Phrases: 1}
			return s.trainPhrase(ctx, phrase, &phraseStats)
		})
		if err != nil {
			return stats, fmt.Errorf("train phrase %d: %w", i, err)
		}
		stats = stats.Add(phraseStats)
	}

	s.log.InfoContext(ctx, "text trained",
		"title", text.Title,
		"phrases", stats.Phrases,
		"words", stats.Words,
		"morphemes", stats.Morphemes,
		"cases", stats.Cases,
	)
	return stats, nil
}

func (s *Service) trainPhrase(ctx context.Context, phrase *domain.Phrase, stats *TrainStats) error {
	for _, word := range phrase.Words {
		if word.POS != "" || s.opts.RegisterEmptyPOS {
			cases, err := s.extractor.WordCases(phrase, word)
			if err != nil {
				return err
			}
			if err := s.insertAll(ctx, cases); err != nil {
				return err
			}
			stats.Words++
			stats.Cases += len(cases)
		}

		for _, morpheme := range word.Morphemes {
			if len(morpheme.Glosses) == 0 && !s.opts.RegisterEmptyGloss {
				continue
			}
			cases, err := s.extractor.MorphemeCases(phrase, word, morpheme)
			if err != nil {
				return err
			}
			if err := s.insertAll(ctx, cases); err != nil {
				return err
			}
			stats.Morphemes++
			stats.Cases += len(cases)
		}
	}
	return nil
}

func (s *Service) insertAll(ctx context.Context, cases domain.Cases) error {
	for _, c := range cases {
		if err := s.store.InsertOrIncrement(ctx, c); err != nil {
			return fmt.Errorf("insert %s: %w", c.Type, err)
		}
	}
	return nil
}
