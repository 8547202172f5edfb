package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokPhrase
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokWord:
		return "word"
	case tokPhrase:
		return "phrase"
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	}
	return "unknown"
}

type lexeme struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits the raw query into lexemes. Positions are byte offsets.
func lex(query string) ([]lexeme, error) {
	var out []lexeme
	i := 0
	for i < len(query) {
		r, size := utf8.DecodeRuneInString(query[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			out = append(out, lexeme{kind: tokLParen, text: "(", pos: i})
			i += size
		case r == ')':
			out = append(out, lexeme{kind: tokRParen, text: ")", pos: i})
			i += size
		case r == '"':
			end := strings.IndexByte(query[i+1:], '"')
			if end < 0 {
				return nil, newSyntaxError(i, "unterminated phrase")
			}
			out = append(out, lexeme{kind: tokPhrase, text: query[i+1 : i+1+end], pos: i})
			i += end + 2
		default:
			start := i
			for i < len(query) {
				r, size := utf8.DecodeRuneInString(query[i:])
				if unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' {
					break
				}
				i += size
			}
			word := query[start:i]
			out = append(out, lexeme{kind: keyword(word), text: word, pos: start})
		}
	}
	out = append(out, lexeme{kind: tokEOF, pos: len(query)})
	return out, nil
}

func keyword(word string) tokenKind {
	switch {
	case strings.EqualFold(word, "AND"):
		return tokAnd
	case strings.EqualFold(word, "OR"):
		return tokOr
	case strings.EqualFold(word, "NOT"):
		return tokNot
	}
	return tokWord
}
