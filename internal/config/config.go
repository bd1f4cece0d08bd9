package config

import (
	"time"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// Config is the root application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Tagger   TaggerConfig   `yaml:"tagger"`
	Run      RunConfig      `yaml:"run"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects where cases are persisted.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"sqlite"`
	// Dir holds one <language>_db.db file per language (sqlite only).
	Dir string `yaml:"dir" env:"STORE_DIR" env-default:"./db"`
	// UseMemory loads the persistent store into memory before tagging.
	UseMemory bool `yaml:"use_memory" env:"STORE_USE_MEMORY"`
	// CacheSize is the number of candidate lookups kept in the LRU; 0 disables it.
	CacheSize int `yaml:"cache_size" env:"STORE_CACHE_SIZE" env-default:"0"`
}

// DatabaseConfig holds PostgreSQL connection settings.
// DSN is only required when store.driver is "postgres".
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// TaggerConfig holds training, extraction and probability settings.
//
// Tagger fields carry no env-default tags: cleanenv applies defaults to
// zero values, which would override an explicit false or 0 from YAML.
// Their defaults are preset by Default instead.
type TaggerConfig struct {
	RegisterEmptyPOS          bool `yaml:"register_empty_pos"           env:"TAGGER_REGISTER_EMPTY_POS"`
	RegisterEmptyGloss        bool `yaml:"register_empty_gloss"         env:"TAGGER_REGISTER_EMPTY_GLOSS"`
	RegisterNgrams            bool `yaml:"register_ngrams"              env:"TAGGER_REGISTER_NGRAMS"`
	SurroundingNgramMaxLength int  `yaml:"surrounding_ngram_max_length" env:"TAGGER_SURROUNDING_NGRAM_MAX_LENGTH"`
	TupleMaxLength            int  `yaml:"tuple_max_length"             env:"TAGGER_TUPLE_MAX_LENGTH"`
	IgnoreTuplesOfSameGroup   bool `yaml:"ignore_tuples_of_same_group"  env:"TAGGER_IGNORE_TUPLES_OF_SAME_GROUP"`
	IgnoreEmptyFromCases      bool `yaml:"ignore_empty_from_cases"      env:"TAGGER_IGNORE_EMPTY_FROM_CASES"`
	NumberOfPasses            int  `yaml:"number_of_passes"             env:"TAGGER_NUMBER_OF_PASSES"`
	PrintTestErrorDetail      bool `yaml:"print_test_error_detail"      env:"TAGGER_PRINT_TEST_ERROR_DETAIL"`

	AdjustForOccurrence   bool    `yaml:"adjust_for_occurrence"  env:"TAGGER_ADJUST_FOR_OCCURRENCE"`
	AdjustForImportance   bool    `yaml:"adjust_for_importance"  env:"TAGGER_ADJUST_FOR_IMPORTANCE"`
	AdjustCollectionally  bool    `yaml:"adjust_collectionally"  env:"TAGGER_ADJUST_COLLECTIONALLY"`
	ImportanceStrategy    string  `yaml:"importance_strategy"    env:"TAGGER_IMPORTANCE_STRATEGY"`
	OccurrenceStrategy    string  `yaml:"occurrence_strategy"    env:"TAGGER_OCCURRENCE_STRATEGY"`
	OccurrenceHalfLife    float64 `yaml:"occurrence_half_life"   env:"TAGGER_OCCURRENCE_HALF_LIFE"`
	OccurrenceSteepness   float64 `yaml:"occurrence_steepness"   env:"TAGGER_OCCURRENCE_STEEPNESS"`
	OccurrenceCutoff      int     `yaml:"occurrence_cutoff"      env:"TAGGER_OCCURRENCE_CUTOFF"`
	CollectionalSteepness float64 `yaml:"collectional_steepness" env:"TAGGER_COLLECTIONAL_STEEPNESS"`

	// CaseImportanceRaw and CaseGroupsRaw are keyed by type name (e.g. "word_pos").
	CaseImportanceRaw map[string]float64 `yaml:"case_importance"`
	CaseGroupsRaw     map[string]int     `yaml:"case_groups"`
	OverridesRaw      []OverrideConfig   `yaml:"case_literal_overrides"`

	// Derived in Validate.
	CaseImportance map[domain.CaseType]float64 `yaml:"-"`
	CaseGroups     domain.CaseGroups           `yaml:"-"`
	Overrides      map[domain.FromKey]string   `yaml:"-"`
}

// OverrideConfig pins the outcome of one (type, from) pair.
type OverrideConfig struct {
	Type string `yaml:"type"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// RunConfig controls how multi-language commands are scheduled.
type RunConfig struct {
	// Parallelism bounds how many languages are processed at once.
	Parallelism int `yaml:"parallelism" env:"RUN_PARALLELISM" env-default:"1"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Default returns a Config with the tagger defaults preset.
// Every other default comes from env-default tags during Load.
func Default() Config {
	return Config{
		Tagger: TaggerConfig{
			RegisterEmptyPOS:          true,
			RegisterEmptyGloss:        true,
			RegisterNgrams:            true,
			SurroundingNgramMaxLength: 4,
			TupleMaxLength:            3,
			IgnoreTuplesOfSameGroup:   true,
			IgnoreEmptyFromCases:      true,
			NumberOfPasses:            2,
			AdjustForImportance:       true,
			AdjustCollectionally:      true,
			ImportanceStrategy:        "mean",
			OccurrenceStrategy:        "sigmoid",
			OccurrenceHalfLife:        5,
			OccurrenceSteepness:       1,
			OccurrenceCutoff:          100,
			CollectionalSteepness:     2,
		},
	}
}
