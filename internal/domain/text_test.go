package domain

import (
	"errors"
	"testing"
)

func TestMorpheme_GlossesConcatenated(t *testing.T) {
	t.Parallel()

	m := &Morpheme{Morpheme: "ba", Glosses: []string{"1SG", "3SG", "2SG"}}

	if got := m.GlossesConcatenated(); got != "1SG.2SG.3SG" {
		t.Errorf("GlossesConcatenated() = %q", got)
	}
	if m.Glosses[1] != "3SG" {
		t.Error("GlossesConcatenated must not reorder the receiver")
	}
	if got := (&Morpheme{}).GlossesConcatenated(); got != "" {
		t.Errorf("empty glosses = %q, want empty", got)
	}
}

func TestSplitGlosses(t *testing.T) {
	t.Parallel()

	if got := SplitGlosses(""); got != nil {
		t.Errorf("SplitGlosses(\"\") = %v, want nil", got)
	}
	got := SplitGlosses("PL.DEF")
	if len(got) != 2 || got[0] != "PL" || got[1] != "DEF" {
		t.Errorf("SplitGlosses = %v", got)
	}
}

func TestText_CloneAndStrip(t *testing.T) {
	t.Parallel()

	orig := &Text{
		Title:    "t",
		Language: "nob",
		Phrases: []*Phrase{{Words: []*Word{
			{Word: "Hei", POS: "INTJ", Morphemes: []*Morpheme{{Morpheme: "hei", Glosses: []string{"GREET"}}}},
		}}},
	}

	clone := orig.Clone()
	clone.StripAnnotations()

	if orig.Phrases[0].Words[0].POS != "INTJ" {
		t.Error("stripping the clone changed the original POS")
	}
	if len(orig.Phrases[0].Words[0].Morphemes[0].Glosses) != 1 {
		t.Error("stripping the clone changed the original glosses")
	}
	if clone.Phrases[0].Words[0].POS != "" || clone.Phrases[0].Words[0].Morphemes[0].Glosses != nil {
		t.Error("clone was not stripped")
	}
	if len(clone.Words()) != 1 || len(clone.Morphemes()) != 1 {
		t.Error("clone lost structure")
	}
}

func TestText_Validate(t *testing.T) {
	t.Parallel()

	var nilText *Text
	if err := nilText.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil text: got %v, want ErrInvalidInput", err)
	}

	bad := &Text{Phrases: []*Phrase{{Words: []*Word{nil}}}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil word: got %v, want ErrInvalidInput", err)
	}

	good := &Text{Phrases: []*Phrase{{Words: []*Word{{Word: "a"}}}}}
	if err := good.Validate(); err != nil {
		t.Errorf("valid text: unexpected error %v", err)
	}
}
