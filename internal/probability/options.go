package probability

import (
	"fmt"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// ImportanceStrategy folds the per-atom importance weights of a case into
// one factor.
type ImportanceStrategy string

const (
	ImportanceMean ImportanceStrategy = "mean"
	ImportanceSum  ImportanceStrategy = "sum"
)

// OccurrenceStrategy selects the occurrence dampening curve.
type OccurrenceStrategy string

const (
	// OccurrenceSigmoid is a logistic curve centered on OccurrenceHalfLife.
	OccurrenceSigmoid OccurrenceStrategy = "sigmoid"
	// OccurrenceCutoff leaves cases above OccurrenceCutoff untouched and
	// discounts the rest by 1 - e^(-occ/5)/2.
	OccurrenceCutoff OccurrenceStrategy = "cutoff"
)

// Options configures an Engine. The zero value disables every adjustment
// except the complexity factor; use DefaultOptions as a starting point.
type Options struct {
	AdjustForImportance   bool
	AdjustForOccurrence   bool
	AdjustCollectionally  bool
	ImportanceStrategy    ImportanceStrategy
	OccurrenceStrategy    OccurrenceStrategy
	OccurrenceHalfLife    float64
	OccurrenceSteepness   float64
	OccurrenceCutoff      int
	CollectionalSteepness float64

	// Importance holds a weight per atomic type. Missing types weigh 1.
	Importance map[domain.CaseType]float64
	// Overrides maps a (type, from) pair to a fixed outcome.
	Overrides map[domain.FromKey]string
}

// DefaultOptions returns the engine settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		AdjustForImportance:   true,
		AdjustForOccurrence:   false,
		AdjustCollectionally:  true,
		ImportanceStrategy:    ImportanceMean,
		OccurrenceStrategy:    OccurrenceSigmoid,
		OccurrenceHalfLife:    5,
		OccurrenceSteepness:   1,
		OccurrenceCutoff:      100,
		CollectionalSteepness: 2,
	}
}

// Validate reports the first invalid strategy name.
func (o Options) Validate() error {
	switch o.ImportanceStrategy {
	case ImportanceMean, ImportanceSum:
	default:
		return fmt.Errorf("importance strategy %q: want %q or %q", o.ImportanceStrategy, ImportanceMean, ImportanceSum)
	}
	switch o.OccurrenceStrategy {
	case OccurrenceSigmoid, OccurrenceCutoff:
	default:
		return fmt.Errorf("occurrence strategy %q: want %q or %q", o.OccurrenceStrategy, OccurrenceSigmoid, OccurrenceCutoff)
	}
	return nil
}
