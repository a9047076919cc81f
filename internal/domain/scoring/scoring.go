// Package scoring computes string similarity scores on a 0-100 scale.
package scoring

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	edlib "github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxScore is the score of identical inputs.
const MaxScore = 100

// Processor prepares a string before it is tokenized.
type Processor func(string) string

// Scorer rates how similar two strings are, from 0 to MaxScore.
type Scorer interface {
	Score(a, b string) float64
}

// Option applies a configuration option to the TokenSortScorer.
type Option func(*TokenSortScorer)

// WithProcessor replaces the default preprocessing.
func WithProcessor(p Processor) Option {
	return func(s *TokenSortScorer) {
		if p != nil {
			s.process = p
		}
	}
}

// TokenSortScorer compares strings independently of word order: both sides
// are processed, split on whitespace, sorted and rejoined before their
// Indel similarity is computed.
type TokenSortScorer struct {
	process Processor
}

// NewTokenSortScorer creates a scorer using Fold unless told otherwise.
func NewTokenSortScorer(opts ...Option) *TokenSortScorer {
	s := &TokenSortScorer{process: Fold}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the token-sort ratio of a and b. It is 0 when either side
// is empty after processing.
func (s *TokenSortScorer) Score(a, b string) float64 {
	return Ratio(sortTokens(s.process(a)), sortTokens(s.process(b)))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// Ratio is the normalized Indel similarity 200*LCS/(len(a)+len(b)) over
// runes, where LCS is the longest common subsequence.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	return float64(2*MaxScore*edlib.LCS(a, b)) / float64(la+lb)
}

// Fold lowercases s, strips diacritics and replaces every rune that is not a
// letter or digit with a space.
func Fold(s string) string {
	// Transformers keep state, so each call builds its own chain.
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(strip, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded))
}

// Identity leaves s unchanged.
func Identity(s string) string { return s }
