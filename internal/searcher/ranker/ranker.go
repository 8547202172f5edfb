// Package ranker scores matched documents with a tf-idf baseline.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
)

type ScoredDoc struct {
	DocID docstore.DocumentID `json:"doc_id"`
	Score float64             `json:"score"`
}

// Rank scores every candidate as the sum over terms of
// tf(d,t) * ln(N / (1 + df(t))), orders by score descending then ID
// ascending and keeps at most limit results (limit <= 0 keeps all).
// Candidates with no scoring term get 0.
func Rank(r index.Reader, candidates []docstore.DocumentID, terms []string, limit int) []ScoredDoc {
	scores := make(map[docstore.DocumentID]float64, len(candidates))
	for _, id := range candidates {
		scores[id] = 0
	}
	totalDocs := r.TotalDocuments()
	for _, term := range terms {
		postings := r.Postings(term)
		if len(postings) == 0 {
			continue
		}
		idf := IDF(totalDocs, len(postings))
		for _, p := range postings {
			if _, ok := scores[p.DocID]; ok {
				scores[p.DocID] += float64(p.Frequency) * idf
			}
		}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for id, score := range scores {
		result = append(result, ScoredDoc{DocID: id, Score: score})
	}
	if limit > 0 && len(result) > limit {
		return topK(result, limit)
	}
	Sort(result)
	return result
}

// IDF is ln(N / (1 + df)). It is negative for terms present in most
// documents.
func IDF(totalDocs, docFreq int) float64 {
	if totalDocs == 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(1+docFreq))
}

// Sort orders by score descending, then document ID ascending.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}
