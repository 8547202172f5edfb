package tokenizer

import (
	"iter"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Unicode segments text on Unicode word boundaries using bleve's analysis
// pipeline, which handles scripts the Simple tokenizer splits poorly.
type Unicode struct {
	analyzer *analysis.DefaultAnalyzer
}

// NewUnicode builds the bleve analyzer: unicode tokenizer, lower-case filter,
// then optional stop-word and porter filters.
func NewUnicode(opts Options) *Unicode {
	filters := []analysis.TokenFilter{lowercase.NewLowerCaseFilter()}
	if opts.StopWords {
		tokenMap := analysis.NewTokenMap()
		for word := range stopWords {
			tokenMap.AddToken(word)
		}
		filters = append(filters, stop.NewStopTokensFilter(tokenMap))
	}
	if opts.Stem {
		filters = append(filters, porter.NewPorterStemmer())
	}
	return &Unicode{
		analyzer: &analysis.DefaultAnalyzer{
			Tokenizer:    unicode.NewUnicodeTokenizer(),
			TokenFilters: filters,
		},
	}
}

// Tokens implements Tokenizer. The analyzer runs eagerly per call; the
// returned sequence is restartable because every range re-analyses the text.
func (u *Unicode) Tokens(text string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		stream := u.analyzer.Analyze([]byte(text))
		pos := 0
		for _, tok := range stream {
			if len(tok.Term) == 0 {
				continue
			}
			if !yield(Token{Term: string(tok.Term), Position: pos}, nil) {
				return
			}
			pos++
		}
	}
}
