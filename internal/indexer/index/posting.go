package index

import "github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"

// Posting records one document containing a term, how often the term occurs
// there and at which token positions.
type Posting struct {
	DocID     docstore.DocumentID `json:"d"`
	Frequency int                 `json:"f"`
	Positions []int               `json:"p,omitempty"`
}

// PostingList is ordered by ascending DocID.
type PostingList []Posting

// DocIDs returns the document identifiers of the list in order.
func (pl PostingList) DocIDs() []docstore.DocumentID {
	ids := make([]docstore.DocumentID, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

// TermEntry is a term with its full posting list, as exported by Snapshot.
type TermEntry struct {
	Term     string      `json:"t"`
	Postings PostingList `json:"p"`
}

// TermPostings is the per-document aggregate for one distinct term, as
// produced by the index writer.
type TermPostings struct {
	Term      string
	Frequency int
	Positions []int
}

// Stats summarises index size.
type Stats struct {
	Terms     int `json:"terms"`
	Documents int `json:"documents"`
	Postings  int `json:"postings"`
}
