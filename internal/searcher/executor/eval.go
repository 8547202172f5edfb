package executor

import (
	"context"
	"fmt"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
)

// Evaluate returns the ascending IDs of the live documents matching n. ctx
// is checked before each node, so a cancelled query stops at the next node
// boundary.
func Evaluate(ctx context.Context, r index.Reader, n parser.Node) ([]docstore.DocumentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch n := n.(type) {
	case parser.TermNode:
		return r.Postings(n.Term).DocIDs(), nil
	case parser.PhraseNode:
		return evalPhrase(r, n), nil
	case parser.AndNode:
		var result []docstore.DocumentID
		for i, child := range n.Children {
			ids, err := Evaluate(ctx, r, child)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				result = ids
			} else {
				result = intersect(result, ids)
			}
			if len(result) == 0 {
				return result, nil
			}
		}
		return result, nil
	case parser.OrNode:
		var result []docstore.DocumentID
		for _, child := range n.Children {
			ids, err := Evaluate(ctx, r, child)
			if err != nil {
				return nil, err
			}
			result = union(result, ids)
		}
		return result, nil
	case parser.NotNode:
		excluded, err := Evaluate(ctx, r, n.Child)
		if err != nil {
			return nil, err
		}
		return difference(r.Documents(), excluded), nil
	case parser.EmptyNode:
		return []docstore.DocumentID{}, nil
	default:
		return nil, fmt.Errorf("unsupported query node %T", n)
	}
}

// evalPhrase intersects the phrase terms' documents, then keeps those where
// every term sits at the first term's position plus its offset.
func evalPhrase(r index.Reader, n parser.PhraseNode) []docstore.DocumentID {
	lists := make([]index.PostingList, len(n.Terms))
	var candidates []docstore.DocumentID
	for i, term := range n.Terms {
		lists[i] = r.Postings(term)
		if i == 0 {
			candidates = lists[i].DocIDs()
		} else {
			candidates = intersect(candidates, lists[i].DocIDs())
		}
		if len(candidates) == 0 {
			return []docstore.DocumentID{}
		}
	}
	positions := make([]map[docstore.DocumentID][]int, len(lists))
	for i, list := range lists {
		positions[i] = make(map[docstore.DocumentID][]int, len(candidates))
		for _, p := range list {
			positions[i][p.DocID] = p.Positions
		}
	}
	result := make([]docstore.DocumentID, 0, len(candidates))
	for _, id := range candidates {
		if adjacent(id, positions, n.Offsets) {
			result = append(result, id)
		}
	}
	return result
}

func adjacent(id docstore.DocumentID, positions []map[docstore.DocumentID][]int, offsets []int) bool {
	for _, start := range positions[0][id] {
		base := start - offsets[0]
		matched := true
		for i := 1; i < len(positions); i++ {
			if _, found := slices.BinarySearch(positions[i][id], base+offsets[i]); !found {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func intersect(a, b []docstore.DocumentID) []docstore.DocumentID {
	out := make([]docstore.DocumentID, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func union(a, b []docstore.DocumentID) []docstore.DocumentID {
	out := make([]docstore.DocumentID, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func difference(a, b []docstore.DocumentID) []docstore.DocumentID {
	out := make([]docstore.DocumentID, 0, len(a))
	j := 0
	for _, id := range a {
		for j < len(b) && b[j] < id {
			j++
		}
		if j < len(b) && b[j] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
