package tokenizer

import (
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

func terms(t *testing.T, tok Tokenizer, text string) []string {
	t.Helper()
	tokens, err := Collect(tok, text)
	require.NoError(t, err)
	out := make([]string, len(tokens))
	for i, tk := range tokens {
		out[i] = tk.Term
	}
	return out
}

func TestSimple_SplitsAndLowercases(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{"plain", "The cat sat", []string{"the", "cat", "sat"}},
		{"punctuation", "dog, ran!  (fast)", []string{"dog", "ran", "fast"}},
		{"digits", "route 66", []string{"route", "66"}},
		{"diacritics kept", "Rāmaḥ vanaṃ gacchati", []string{"rāmaḥ", "vanaṃ", "gacchati"}},
		{"empty", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, terms(t, NewSimple(Options{}), tt.input))
		})
	}
}

func TestSimple_PositionsAreConsecutive(t *testing.T) {
	tokens, err := Collect(NewSimple(Options{StopWords: true}), "the quick fox of the hill")
	require.NoError(t, err)

	require.Len(t, tokens, 3)
	for i, tk := range tokens {
		assert.Equal(t, i, tk.Position)
	}
	assert.Equal(t, "hill", tokens[2].Term)
}

func TestSimple_StopWordsAndStemming(t *testing.T) {
	tok := NewSimple(Options{StopWords: true, Stem: true})

	assert.Equal(t, []string{"search", "engin", "index"}, terms(t, tok, "the searching engines indexing"))
}

func TestSimple_Deterministic(t *testing.T) {
	tok := NewSimple(Options{})
	text := strings.Repeat("alpha beta gamma ", 20)

	seq := tok.Tokens(text)
	var first, second []Token
	for tk := range seq {
		first = append(first, tk)
	}
	for tk := range seq {
		second = append(second, tk)
	}
	assert.Equal(t, first, second)
}

func TestSimple_EarlyStop(t *testing.T) {
	count := 0
	for range NewSimple(Options{}).Tokens("a b c d e") {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestUnicode_Tokens(t *testing.T) {
	tok := NewUnicode(Options{})

	assert.Equal(t, []string{"the", "cat", "sat"}, terms(t, tok, "The CAT sat."))

	tokens, err := Collect(tok, "one two three")
	require.NoError(t, err)
	assert.Equal(t, 2, tokens[2].Position)
}

func TestUnicode_StopWords(t *testing.T) {
	tok := NewUnicode(Options{StopWords: true})

	tokens, err := Collect(tok, "the cat and the dog")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, Token{Term: "dog", Position: 1}, tokens[1])
}

func TestNew(t *testing.T) {
	tok, err := New("simple", Options{})
	require.NoError(t, err)
	assert.IsType(t, &Simple{}, tok)

	tok, err = New("unicode", Options{})
	require.NoError(t, err)
	assert.IsType(t, &Unicode{}, tok)

	_, err = New("sanskrit", Options{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

type brokenTokenizer struct{}

func (brokenTokenizer) Tokens(string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		if !yield(Token{Term: "ok"}, nil) {
			return
		}
		yield(Token{}, errors.New("analyzer crashed"))
	}
}

func TestCollect_WrapsFailure(t *testing.T) {
	_, err := Collect(brokenTokenizer{}, "anything")

	assert.ErrorIs(t, err, apperrors.ErrTokenizerFailure)
	assert.Contains(t, err.Error(), "analyzer crashed")
}

func BenchmarkTokenize(b *testing.B) {
	text := strings.Repeat("Distributed search engines tokenize, index and rank text. ", 50)
	tokenizers := map[string]Tokenizer{
		"simple":           NewSimple(Options{}),
		"simple_stop_stem": NewSimple(Options{StopWords: true, Stem: true}),
		"unicode":          NewUnicode(Options{}),
	}
	for name, tok := range tokenizers {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				if _, err := Collect(tok, text); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
