package sentiment

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// negationFactor is applied to a polar word preceded by a negator.
const negationFactor = -0.5

// modifierReach is how many unknown tokens a negator or intensifier survives.
const modifierReach = 2

// Lexicon holds word polarities and modifiers.
type Lexicon struct {
	Words        map[string]float64 `yaml:"words"`
	Intensifiers map[string]float64 `yaml:"intensifiers"`
	Negators     []string           `yaml:"negators"`
}

// LexiconScorer scores text offline from a word list. The score is the mean
// of every matched word's polarity after intensifier and negation handling.
type LexiconScorer struct {
	words        map[string]float64
	intensifiers map[string]float64
	negators     map[string]struct{}
}

// NewLexiconScorer loads the built-in lexicon.
func NewLexiconScorer() (*LexiconScorer, error) {
	return ParseLexicon(defaultLexiconYAML)
}

// ParseLexicon builds a scorer from lexicon YAML.
func ParseLexicon(data []byte) (*LexiconScorer, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	if len(lex.Words) == 0 {
		return nil, fmt.Errorf("lexicon has no words")
	}

	s := &LexiconScorer{
		words:        make(map[string]float64, len(lex.Words)),
		intensifiers: make(map[string]float64, len(lex.Intensifiers)),
		negators:     make(map[string]struct{}, len(lex.Negators)),
	}
	for w, v := range lex.Words {
		s.words[normalize(w)] = v
	}
	for w, v := range lex.Intensifiers {
		s.intensifiers[normalize(w)] = v
	}
	for _, w := range lex.Negators {
		s.negators[normalize(w)] = struct{}{}
	}
	return s, nil
}

// Score never fails; text without known words scores 0.
// A modifier reaches only the next few tokens of its own clause.
func (s *LexiconScorer) Score(_ context.Context, text string) (float64, error) {
	var scores []float64
	for _, clause := range clauses(normalize(text)) {
		var (
			boost   = 1.0
			negated bool
			gap     int
		)
		for _, tok := range tokenize(clause) {
			if _, ok := s.negators[tok]; ok {
				negated, gap = true, 0
				continue
			}
			if m, ok := s.intensifiers[tok]; ok {
				boost, gap = boost*m, 0
				continue
			}
			v, ok := s.words[tok]
			if !ok {
				if gap++; gap > modifierReach {
					boost, negated = 1.0, false
				}
				continue
			}
			v *= boost
			if negated {
				v *= negationFactor
			}
			scores = append(scores, clamp(v))
			boost, negated, gap = 1.0, false, 0
		}
	}

	if len(scores) == 0 {
		return 0, nil
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return clamp(sum / float64(len(scores))), nil
}

func normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "’", "'")
	return cases.Fold().String(s)
}

// clauses splits text at sentence and clause punctuation.
func clauses(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '.', ',', ';', ':', '!', '?', '\n':
			return true
		}
		return false
	})
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	toks := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "'"); f != "" {
			toks = append(toks, f)
		}
	}
	return toks
}
