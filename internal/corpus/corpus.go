// Package corpus reads and writes annotated texts as YAML documents.
// JSON is a subset of YAML, so JSON files parse as well.
package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/casetagger/internal/domain"
)

type document struct {
	Texts []textDoc `yaml:"texts"`
}

type textDoc struct {
	Title    string      `yaml:"title"`
	Language string      `yaml:"language"`
	Phrases  []phraseDoc `yaml:"phrases"`
}

type phraseDoc struct {
	Phrase      string    `yaml:"phrase,omitempty"`
	Translation string    `yaml:"translation,omitempty"`
	Words       []wordDoc `yaml:"words"`
}

type wordDoc struct {
	Word      string        `yaml:"word"`
	POS       string        `yaml:"pos,omitempty"`
	Morphemes []morphemeDoc `yaml:"morphemes,omitempty"`
}

type morphemeDoc struct {
	Morpheme string   `yaml:"morpheme"`
	Glosses  []string `yaml:"glosses,omitempty"`
}

// ParseError reports a document that could not be read.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse corpus: %v", e.Err)
	}
	return fmt.Sprintf("parse corpus %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes one document. Unknown fields are rejected.
func Parse(r io.Reader) ([]*domain.Text, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Err: errors.New("empty document")}
		}
		return nil, &ParseError{Err: err}
	}

	if errs := doc.validate(); len(errs) > 0 {
		return nil, &ParseError{Err: domain.NewValidationErrors(errs)}
	}

	texts := make([]*domain.Text, len(doc.Texts))
	for i, t := range doc.Texts {
		texts[i] = t.toDomain()
	}
	return texts, nil
}

// validate reports words and morphemes without a surface form.
func (d document) validate() []domain.FieldError {
	var errs []domain.FieldError
	for i, t := range d.Texts {
		for j, p := range t.Phrases {
			for k, w := range p.Words {
				field := fmt.Sprintf("texts[%d].phrases[%d].words[%d]", i, j, k)
				if strings.TrimSpace(w.Word) == "" {
					errs = append(errs, domain.FieldError{Field: field + ".word", Message: "must not be empty"})
				}
				for l, m := range w.Morphemes {
					if strings.TrimSpace(m.Morpheme) == "" {
						errs = append(errs, domain.FieldError{
							Field:   fmt.Sprintf("%s.morphemes[%d].morpheme", field, l),
							Message: "must not be empty",
						})
					}
				}
			}
		}
	}
	return errs
}

// ParseFile reads and decodes the document at path.
func ParseFile(path string) ([]*domain.Text, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	texts, err := Parse(bytes.NewReader(data))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return nil, pe
		}
		return nil, err
	}
	return texts, nil
}

// ReadFiles parses every path. Texts of the readable files are returned
// together with the joined errors of the others.
func ReadFiles(paths ...string) ([]*domain.Text, error) {
	var (
		texts []*domain.Text
		errs  []error
	)
	for _, p := range paths {
		t, err := ParseFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		texts = append(texts, t...)
	}
	return texts, errors.Join(errs...)
}

// Write encodes texts as one YAML document.
func Write(w io.Writer, texts []*domain.Text) error {
	doc := document{Texts: make([]textDoc, 0, len(texts))}
	for _, t := range texts {
		if t == nil {
			continue
		}
		doc.Texts = append(doc.Texts, fromDomain(t))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	return enc.Close()
}

// SplitByLanguage groups texts by language. Languages are listed in the
// order they first appear.
func SplitByLanguage(texts []*domain.Text) ([]string, map[string][]*domain.Text) {
	var order []string
	groups := make(map[string][]*domain.Text)
	for _, t := range texts {
		if t == nil {
			continue
		}
		if _, ok := groups[t.Language]; !ok {
			order = append(order, t.Language)
		}
		groups[t.Language] = append(groups[t.Language], t)
	}
	return order, groups
}

func (t textDoc) toDomain() *domain.Text {
	text := &domain.Text{Title: t.Title, Language: t.Language, Phrases: make([]*domain.Phrase, len(t.Phrases))}
	for i, p := range t.Phrases {
		phrase := &domain.Phrase{Phrase: p.Phrase, Translation: p.Translation, Words: make([]*domain.Word, len(p.Words))}
		for j, w := range p.Words {
			word := &domain.Word{Word: w.Word, POS: w.POS, Morphemes: make([]*domain.Morpheme, len(w.Morphemes))}
			for k, m := range w.Morphemes {
				word.Morphemes[k] = &domain.Morpheme{Morpheme: m.Morpheme, Glosses: m.Glosses}
			}
			phrase.Words[j] = word
		}
		text.Phrases[i] = phrase
	}
	return text
}

func fromDomain(t *domain.Text) textDoc {
	doc := textDoc{Title: t.Title, Language: t.Language, Phrases: make([]phraseDoc, 0, len(t.Phrases))}
	for _, p := range t.Phrases {
		if p == nil {
			continue
		}
		pd := phraseDoc{Phrase: p.Phrase, Translation: p.Translation, Words: make([]wordDoc, 0, len(p.Words))}
		for _, w := range p.Words {
			if w == nil {
				continue
			}
			wd := wordDoc{Word: w.Word, POS: w.POS}
			for _, m := range w.Morphemes {
				if m == nil {
					continue
				}
				wd.Morphemes = append(wd.Morphemes, morphemeDoc{Morpheme: m.Morpheme, Glosses: m.Glosses})
			}
			pd.Words = append(pd.Words, wd)
		}
		doc.Phrases = append(doc.Phrases, pd)
	}
	return doc
}
