// Package probability reduces the stored outcomes of a token's candidate
// cases to a single winning label.
package probability

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// Engine adjusts, combines and ranks outcome cases. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	opts Options
	log  *slog.Logger
}

// NewEngine creates an Engine. A nil logger discards trace output.
func NewEngine(log *slog.Logger, opts Options) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.ImportanceStrategy == "" {
		opts.ImportanceStrategy = ImportanceMean
	}
	if opts.OccurrenceStrategy == "" {
		opts.OccurrenceStrategy = OccurrenceSigmoid
	}
	return &Engine{opts: opts, log: log.With("component", "probability")}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Select returns the label for a token. A literal override matching any
// candidate wins outright; otherwise the stored outcomes are merged.
func (e *Engine) Select(ctx context.Context, candidates, outcomes domain.Cases) string {
	if to, ok := e.Override(candidates); ok {
		e.log.DebugContext(ctx, "override applied", "outcome", to)
		return to
	}
	return e.Merge(ctx, outcomes)
}

// Override returns the outcome of the first candidate with a configured
// literal override.
func (e *Engine) Override(candidates domain.Cases) (string, bool) {
	if len(e.opts.Overrides) == 0 {
		return "", false
	}
	for _, c := range candidates {
		if to, ok := e.opts.Overrides[c.FromKey()]; ok {
			return to, true
		}
	}
	return "", false
}

// Merge adjusts every outcome, combines outcomes sharing a label and
// returns the most probable label. Ties go to the label seen first.
// An empty input has no opinion and yields "".
func (e *Engine) Merge(ctx context.Context, outcomes domain.Cases) string {
	if len(outcomes) == 0 {
		return ""
	}
	trace := e.log.Enabled(ctx, slog.LevelDebug)

	adjusted := make(domain.Cases, len(outcomes))
	for i, c := range outcomes {
		c.Prob = e.Adjust(c)
		adjusted[i] = c
		if trace {
			e.log.DebugContext(ctx, "case adjusted", "case", c.String())
		}
	}

	combined := Combine(adjusted)
	if e.opts.AdjustCollectionally {
		e.Collectional(combined)
	}

	best := 0
	for i, c := range combined {
		if trace {
			e.log.DebugContext(ctx, "case combined", "case", c.String())
		}
		if c.Prob > combined[best].Prob {
			best = i
		}
	}
	if trace {
		e.log.DebugContext(ctx, "best case", "case", combined[best].String())
	}
	return combined[best].To
}

// Combine collapses cases with the same outcome into one, in first-seen
// order. The combined probability is 1 - ∏(1 - p) and occurrences are summed.
func Combine(cases domain.Cases) domain.Cases {
	index := make(map[string]int, len(cases))
	miss := make([]float64, 0, len(cases))
	out := make(domain.Cases, 0, len(cases))

	for _, c := range cases {
		i, ok := index[c.To]
		if !ok {
			i = len(out)
			index[c.To] = i
			out = append(out, domain.Case{Type: c.Type, From: c.From, To: c.To})
			miss = append(miss, 1)
		}
		miss[i] *= 1 - clamp(c.Prob)
		out[i].Occurrences += c.Occurrences
	}
	for i := range out {
		out[i].Prob = clamp(1 - miss[i])
	}
	return out
}

// Collectional rescales each combined case by a sigmoid of its occurrence
// count centered on half the largest count. It is a no-op when no case
// has a positive count.
func (e *Engine) Collectional(cases domain.Cases) {
	maxOcc := 0
	for _, c := range cases {
		maxOcc = max(maxOcc, c.Occurrences)
	}
	if maxOcc <= 0 {
		return
	}
	half := float64(maxOcc) / 2
	for i := range cases {
		x := (float64(cases[i].Occurrences) - half) / half
		cases[i].Prob = clamp(cases[i].Prob * sigmoid(e.opts.CollectionalSteepness*x))
	}
}
