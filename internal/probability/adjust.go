package probability

import (
	"math"
	"strings"

	"github.com/heartmarshall/casetagger/internal/domain"
	"github.com/heartmarshall/casetagger/internal/feature"
)

// clamp keeps p inside [0, 1]. NaN maps to 0.
func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// importance returns the weight of a case type under the configured strategy.
func (e *Engine) importance(t domain.CaseType) float64 {
	atoms := t.Atoms()
	if len(atoms) == 0 {
		return 0
	}
	var sum float64
	for _, a := range atoms {
		w, ok := e.opts.Importance[a]
		if !ok {
			w = 1
		}
		sum += w
	}
	if e.opts.ImportanceStrategy == ImportanceSum {
		return sum
	}
	return sum / float64(len(atoms))
}

// segments counts the tokens a from-string was built from: one per tuple
// member plus one per extra n-gram token inside a member.
func segments(c domain.Case) int {
	n := len(c.Type.Atoms())
	if n == 0 {
		n = 1
	}
	return n + strings.Count(c.From, feature.NgramDelimiter)
}

// complexity applies 1 - ∏(1 - p/i) for i = 1..n. A single segment leaves p
// unchanged.
func complexity(p float64, n int) float64 {
	miss := 1.0
	for i := 1; i <= n; i++ {
		miss *= 1 - p/float64(i)
	}
	return 1 - miss
}

// occurrenceFactor scales down rarely seen cases. Non-positive occurrences
// yield 0.
func (e *Engine) occurrenceFactor(occ int) float64 {
	if occ <= 0 {
		return 0
	}
	x := float64(occ)
	if e.opts.OccurrenceStrategy == OccurrenceCutoff {
		if occ > e.opts.OccurrenceCutoff {
			return 1
		}
		return 1 - 0.5*math.Exp(-x/5)
	}
	return sigmoid(e.opts.OccurrenceSteepness * (x - e.opts.OccurrenceHalfLife))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Adjust returns the adjusted probability of a single case.
func (e *Engine) Adjust(c domain.Case) float64 {
	if c.Occurrences <= 0 {
		return 0
	}
	p := clamp(c.Prob)
	if e.opts.AdjustForImportance {
		p = clamp(p * e.importance(c.Type))
	}
	p = clamp(complexity(p, segments(c)))
	if e.opts.AdjustForOccurrence {
		p = clamp(p * e.occurrenceFactor(c.Occurrences))
	}
	return p
}
