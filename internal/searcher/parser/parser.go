// Package parser turns a query string into a query tree.
//
// Grammar, lowest precedence first:
//
//	query   := or EOF
//	or      := and ( "OR" and )*
//	and     := unary ( ["AND"] unary )*
//	unary   := "NOT" unary | primary
//	primary := "(" or ")" | PHRASE | WORD
//
// Keywords are case-insensitive. Adjacent operands are joined by AND.
package parser

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// SyntaxError reports a malformed query. Pos is the byte offset of the
// offending input.
type SyntaxError struct {
	Pos int
	Msg string
}

func newSyntaxError(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d: %s", apperrors.ErrQuerySyntax, e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return apperrors.ErrQuerySyntax
}

// Parse builds the query tree for query. Words and phrases are normalised
// with tok, the same tokenizer used at ingestion. A word that normalises to
// several terms becomes a phrase; one that normalises to nothing is dropped,
// except under NOT, where it stands as EmptyNode. If every operand is dropped
// the result is EmptyNode.
func Parse(query string, tok tokenizer.Tokenizer) (Node, error) {
	if strings.TrimSpace(query) == "" {
		return nil, newSyntaxError(0, "empty query")
	}
	lexemes, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{lexemes: lexemes, tok: tok}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if next := p.peek(); next.kind != tokEOF {
		if next.kind == tokRParen {
			return nil, newSyntaxError(next.pos, "unbalanced parenthesis")
		}
		return nil, newSyntaxError(next.pos, "unexpected %s", next.kind)
	}
	if n == nil {
		return EmptyNode{}, nil
	}
	return n, nil
}

type parser struct {
	lexemes []lexeme
	pos     int
	tok     tokenizer.Tokenizer
}

func (p *parser) peek() lexeme {
	return p.lexemes[p.pos]
}

func (p *parser) next() lexeme {
	l := p.lexemes[p.pos]
	if l.kind != tokEOF {
		p.pos++
	}
	return l
}

// Sub-parsers return a nil Node for operands that normalised away.

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := appendNode(nil, first)
	for p.peek().kind == tokOr {
		op := p.next()
		if err := p.expectOperand(op); err != nil {
			return nil, err
		}
		n, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = appendNode(children, n)
	}
	return combine(children, func(c []Node) Node { return OrNode{Children: c} }), nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := appendNode(nil, first)
	for {
		switch p.peek().kind {
		case tokAnd:
			op := p.next()
			if err := p.expectOperand(op); err != nil {
				return nil, err
			}
		case tokWord, tokPhrase, tokNot, tokLParen:
		default:
			return combine(children, func(c []Node) Node { return AndNode{Children: c} }), nil
		}
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = appendNode(children, n)
	}
}

func (p *parser) parseUnary() (Node, error) {
	if p.peek().kind != tokNot {
		return p.parsePrimary()
	}
	op := p.next()
	if err := p.expectOperand(op); err != nil {
		return nil, err
	}
	child, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if child == nil {
		// The negated operand matches nothing, so NOT keeps every document.
		child = EmptyNode{}
	}
	return NotNode{Child: child}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	l := p.next()
	switch l.kind {
	case tokWord:
		return p.normalise(l)
	case tokPhrase:
		return p.normalise(l)
	case tokLParen:
		if p.peek().kind == tokRParen {
			return nil, newSyntaxError(p.peek().pos, "empty group")
		}
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, newSyntaxError(l.pos, "unbalanced parenthesis")
		}
		p.next()
		return n, nil
	case tokRParen:
		return nil, newSyntaxError(l.pos, "unbalanced parenthesis")
	case tokEOF:
		return nil, newSyntaxError(l.pos, "unexpected end of query")
	default:
		return nil, newSyntaxError(l.pos, "dangling operator %s", l.kind)
	}
}

// expectOperand fails when op is not followed by something it can apply to.
func (p *parser) expectOperand(op lexeme) error {
	switch p.peek().kind {
	case tokWord, tokPhrase, tokNot, tokLParen:
		return nil
	}
	return newSyntaxError(op.pos, "dangling operator %s", op.kind)
}

func (p *parser) normalise(l lexeme) (Node, error) {
	tokens, err := tokenizer.Collect(p.tok, l.text)
	if err != nil {
		return nil, fmt.Errorf("normalising %q: %w", l.text, err)
	}
	switch len(tokens) {
	case 0:
		return nil, nil
	case 1:
		return TermNode{Term: tokens[0].Term}, nil
	}
	phrase := PhraseNode{
		Terms:   make([]string, len(tokens)),
		Offsets: make([]int, len(tokens)),
	}
	base := tokens[0].Position
	for i, t := range tokens {
		phrase.Terms[i] = t.Term
		phrase.Offsets[i] = t.Position - base
	}
	return phrase, nil
}

func appendNode(nodes []Node, n Node) []Node {
	if n == nil {
		return nodes
	}
	return append(nodes, n)
}

func combine(children []Node, build func([]Node) Node) Node {
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	}
	return build(children)
}
