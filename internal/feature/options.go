package feature

import "github.com/heartmarshall/casetagger/internal/domain"

// Options controls which candidate cases are generated for a token.
type Options struct {
	RegisterNgrams            bool
	SurroundingNgramMaxLength int
	TupleMaxLength            int
	IgnoreTuplesOfSameGroup   bool
	IgnoreEmptyFromCases      bool
	CaseGroups                domain.CaseGroups
}

// DefaultOptions returns the settings existing trained stores were built with.
func DefaultOptions() Options {
	return Options{
		RegisterNgrams:            true,
		SurroundingNgramMaxLength: 4,
		TupleMaxLength:            3,
		IgnoreTuplesOfSameGroup:   true,
		IgnoreEmptyFromCases:      true,
		CaseGroups:                domain.DefaultCaseGroups(),
	}
}
