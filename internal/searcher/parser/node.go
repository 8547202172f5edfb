package parser

import (
	"strconv"
	"strings"
)

// Node is one vertex of a parsed query tree.
type Node interface {
	String() string
	node()
}

// TermNode matches documents containing Term.
type TermNode struct {
	Term string
}

// PhraseNode matches documents where Terms[i] occurs at the first term's
// position plus Offsets[i].
type PhraseNode struct {
	Terms   []string
	Offsets []int
}

type AndNode struct {
	Children []Node
}

type OrNode struct {
	Children []Node
}

// NotNode matches every live document that Child does not.
type NotNode struct {
	Child Node
}

// EmptyNode matches nothing. It stands in for a query whose words all
// normalised away.
type EmptyNode struct{}

func (TermNode) node()   {}
func (PhraseNode) node() {}
func (AndNode) node()    {}
func (OrNode) node()     {}
func (NotNode) node()    {}
func (EmptyNode) node()  {}

func (n TermNode) String() string {
	return strconv.Quote(n.Term)
}

func (n PhraseNode) String() string {
	parts := make([]string, len(n.Terms))
	for i, term := range n.Terms {
		parts[i] = term + "@" + strconv.Itoa(n.Offsets[i])
	}
	return "(PHRASE " + strings.Join(parts, " ") + ")"
}

func (n AndNode) String() string {
	return group("AND", n.Children)
}

func (n OrNode) String() string {
	return group("OR", n.Children)
}

func (n NotNode) String() string {
	return "(NOT " + n.Child.String() + ")"
}

func (EmptyNode) String() string {
	return "(EMPTY)"
}

func group(op string, children []Node) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(op)
	for _, child := range children {
		b.WriteString(" ")
		b.WriteString(child.String())
	}
	b.WriteString(")")
	return b.String()
}

// PositiveTerms returns the distinct terms that contribute to scoring: those
// not under an odd number of NOTs, in first-seen order.
func PositiveTerms(n Node) []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	var walk func(n Node, negated bool)
	walk = func(n Node, negated bool) {
		switch n := n.(type) {
		case TermNode:
			if !negated {
				add(n.Term)
			}
		case PhraseNode:
			if !negated {
				for _, term := range n.Terms {
					add(term)
				}
			}
		case AndNode:
			for _, child := range n.Children {
				walk(child, negated)
			}
		case OrNode:
			for _, child := range n.Children {
				walk(child, negated)
			}
		case NotNode:
			walk(n.Child, !negated)
		}
	}
	walk(n, false)
	return terms
}
