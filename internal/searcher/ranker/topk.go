package ranker

import "container/heap"

// topK returns the best k docs in rank order without sorting the rest.
func topK(docs []ScoredDoc, k int) []ScoredDoc {
	h := make(worstFirst, 0, k+1)
	for _, doc := range docs {
		heap.Push(&h, doc)
		if h.Len() > k {
			heap.Pop(&h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

// worstFirst is a min-heap in rank order: the root is the doc that would be
// ranked last.
type worstFirst []ScoredDoc

func (h worstFirst) Len() int { return len(h) }

func (h worstFirst) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h worstFirst) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
