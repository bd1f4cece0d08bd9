package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// Validate performs business-rule validation on the loaded configuration
// and fills the derived tagger maps. Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.Dir) == "" {
			return fmt.Errorf("store.dir must not be empty")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when store.driver is %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q (got %q)", DriverSQLite, DriverPostgres, c.Store.Driver)
	}
	if c.Store.CacheSize < 0 {
		return fmt.Errorf("store.cache_size must be >= 0 (got %d)", c.Store.CacheSize)
	}

	if c.Run.Parallelism < 1 {
		return fmt.Errorf("run.parallelism must be >= 1 (got %d)", c.Run.Parallelism)
	}

	if err := c.Tagger.validate(); err != nil {
		return fmt.Errorf("tagger: %w", err)
	}

	return nil
}

func (l *LogConfig) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return fmt.Errorf("level %q: %w", l.Level, err)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json (got %q)", l.Format)
	}
	return nil
}

func (t *TaggerConfig) validate() error {
	if t.SurroundingNgramMaxLength < 1 {
		return fmt.Errorf("surrounding_ngram_max_length must be >= 1 (got %d)", t.SurroundingNgramMaxLength)
	}
	if t.TupleMaxLength < 1 {
		return fmt.Errorf("tuple_max_length must be >= 1 (got %d)", t.TupleMaxLength)
	}
	if t.NumberOfPasses < 1 {
		return fmt.Errorf("number_of_passes must be >= 1 (got %d)", t.NumberOfPasses)
	}
	switch t.ImportanceStrategy {
	case "mean", "sum":
	default:
		return fmt.Errorf("importance_strategy must be mean or sum (got %q)", t.ImportanceStrategy)
	}
	switch t.OccurrenceStrategy {
	case "sigmoid", "cutoff":
	default:
		return fmt.Errorf("occurrence_strategy must be sigmoid or cutoff (got %q)", t.OccurrenceStrategy)
	}
	if t.OccurrenceSteepness <= 0 {
		return fmt.Errorf("occurrence_steepness must be > 0 (got %v)", t.OccurrenceSteepness)
	}
	if t.OccurrenceCutoff < 0 {
		return fmt.Errorf("occurrence_cutoff must be >= 0 (got %d)", t.OccurrenceCutoff)
	}
	if t.CollectionalSteepness <= 0 {
		return fmt.Errorf("collectional_steepness must be > 0 (got %v)", t.CollectionalSteepness)
	}

	importance, err := ParseCaseImportance(t.CaseImportanceRaw)
	if err != nil {
		return fmt.Errorf("case_importance: %w", err)
	}
	t.CaseImportance = importance

	groups, err := ParseCaseGroups(t.CaseGroupsRaw)
	if err != nil {
		return fmt.Errorf("case_groups: %w", err)
	}
	t.CaseGroups = groups

	overrides, err := ParseOverrides(t.OverridesRaw)
	if err != nil {
		return fmt.Errorf("case_literal_overrides: %w", err)
	}
	t.Overrides = overrides

	return nil
}

// ParseCaseImportance converts name-keyed weights into a per-type map.
// Keys must name atomic types and weights must be >= 0. A nil or empty
// input returns nil, meaning every type weighs 1.
func ParseCaseImportance(raw map[string]float64) (map[domain.CaseType]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[domain.CaseType]float64, len(raw))
	for name, weight := range raw {
		t, err := parseAtomic(name)
		if err != nil {
			return nil, err
		}
		if weight < 0 {
			return nil, fmt.Errorf("%s: weight must be >= 0 (got %v)", name, weight)
		}
		out[t] = weight
	}
	return out, nil
}

// ParseCaseGroups converts name-keyed groups into domain.CaseGroups.
// An empty input returns the default grouping.
func ParseCaseGroups(raw map[string]int) (domain.CaseGroups, error) {
	if len(raw) == 0 {
		return domain.DefaultCaseGroups(), nil
	}
	out := make(domain.CaseGroups, len(raw))
	for name, group := range raw {
		t, err := parseAtomic(name)
		if err != nil {
			return nil, err
		}
		out[t] = group
	}
	return out, nil
}

// ParseOverrides builds the override lookup. Types may be tuples; a
// repeated (type, from) pair is an error.
func ParseOverrides(raw []OverrideConfig) (map[domain.FromKey]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[domain.FromKey]string, len(raw))
	for i, o := range raw {
		t, err := domain.ParseCaseType(o.Type)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if o.From == "" {
			return nil, fmt.Errorf("[%d]: from must not be empty", i)
		}
		key := domain.FromKey{Type: t, From: o.From}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("[%d]: duplicate override for %s %q", i, t, o.From)
		}
		out[key] = o.To
	}
	return out, nil
}

func parseAtomic(name string) (domain.CaseType, error) {
	t, err := domain.ParseCaseType(name)
	if err != nil {
		return 0, err
	}
	if !t.IsAtomic() {
		return 0, fmt.Errorf("%s: not an atomic case type", name)
	}
	return t, nil
}
