// Package tokenizer provides text tokenisation for the search engine.
//
// A Tokenizer turns text into a lazy, restartable sequence of normalised
// terms. The same text must always yield the same sequence. Implementations
// are selected by name through New so that language specific normalisation
// can be swapped without touching the index.
package tokenizer

import (
	"fmt"
	"iter"
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenizer is the capability the index and the query parser depend on.
// Tokens yields a non-nil error only when the underlying analyser fails; the
// sequence stops after the first error.
type Tokenizer interface {
	Tokens(text string) iter.Seq2[Token, error]
}

// Options configures the built-in tokenizers.
type Options struct {
	StopWords bool
	Stem      bool
}

// New returns the tokenizer registered under name.
func New(name string, opts Options) (Tokenizer, error) {
	switch name {
	case "", "simple":
		return NewSimple(opts), nil
	case "unicode":
		return NewUnicode(opts), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q: %w", name, apperrors.ErrInvalidInput)
	}
}

// Collect drains the sequence into a slice, wrapping any failure with
// ErrTokenizerFailure.
func Collect(t Tokenizer, text string) ([]Token, error) {
	tokens := make([]Token, 0, 8)
	for tok, err := range t.Tokens(text) {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrTokenizerFailure, err)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Simple lower-cases input and splits on non-alphanumeric boundaries.
// Stop-word removal and suffix stemming are opt-in.
type Simple struct {
	opts Options
}

// NewSimple creates a Simple tokenizer.
func NewSimple(opts Options) *Simple {
	return &Simple{opts: opts}
}

// Tokens implements Tokenizer. Positions count only emitted terms, so removed
// stop-words do not leave gaps.
func (s *Simple) Tokens(text string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		pos := 0
		for word := range strings.FieldsFuncSeq(strings.ToLower(text), isSeparator) {
			if s.opts.StopWords {
				if len(word) < 2 {
					continue
				}
				if _, isStop := stopWords[word]; isStop {
					continue
				}
			}
			if s.opts.Stem {
				word = stem(word)
				if word == "" {
					continue
				}
			}
			if !yield(Token{Term: word, Position: pos}, nil) {
				return
			}
			pos++
		}
	}
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
}

var suffixes = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
