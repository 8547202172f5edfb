// Package index implements the in-memory inverted index. Each term maps to a
// skiplist of postings keyed by document ID; a reverse per-document term list
// makes removal proportional to the document's own vocabulary.
package index

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/huandu/skiplist"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// ErrOutOfOrder is returned when a posting would not extend its term's list
// in ascending document order.
var ErrOutOfOrder = errors.New("posting out of document order")

// Reader is a consistent read view over the index. Methods on a Reader never
// take locks; it is only valid inside the View callback that produced it.
type Reader interface {
	Postings(term string) PostingList
	DocumentFrequency(term string) int
	TotalDocuments() int
	Documents() []docstore.DocumentID
	Contains(id docstore.DocumentID) bool
}

type InvertedIndex struct {
	mu       sync.RWMutex
	terms    map[string]*skiplist.SkipList
	docTerms map[docstore.DocumentID][]string
	live     map[docstore.DocumentID]struct{}
	postings int
}

func New() *InvertedIndex {
	return &InvertedIndex{
		terms:    make(map[string]*skiplist.SkipList),
		docTerms: make(map[docstore.DocumentID][]string),
		live:     make(map[docstore.DocumentID]struct{}),
	}
}

// AddPosting appends a posting for term. Documents are ingested in increasing
// ID order, so a posting whose ID does not exceed the term's last ID is
// rejected with ErrOutOfOrder.
func (m *InvertedIndex) AddPosting(term string, id docstore.DocumentID, frequency int, positions []int) error {
	if frequency < 0 {
		return fmt.Errorf("negative frequency %d for term %q: %w", frequency, term, apperrors.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOrder(term, id); err != nil {
		return err
	}
	m.live[id] = struct{}{}
	m.appendLocked(term, Posting{DocID: id, Frequency: frequency, Positions: slices.Clone(positions)})
	return nil
}

// Index adds every distinct term of one document in a single critical
// section, so readers observe either all of the document's postings or none.
// The document becomes live even when it has no terms.
func (m *InvertedIndex) Index(id docstore.DocumentID, terms []TermPostings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.live[id]; exists {
		return fmt.Errorf("document %d already indexed: %w", id, ErrOutOfOrder)
	}
	for _, tp := range terms {
		if tp.Frequency < 0 {
			return fmt.Errorf("negative frequency %d for term %q: %w", tp.Frequency, tp.Term, apperrors.ErrInvalidInput)
		}
		if err := m.checkOrder(tp.Term, id); err != nil {
			return err
		}
	}
	m.live[id] = struct{}{}
	for _, tp := range terms {
		m.appendLocked(tp.Term, Posting{DocID: id, Frequency: tp.Frequency, Positions: slices.Clone(tp.Positions)})
	}
	return nil
}

// RemovePostings removes every posting referencing id and drops it from the
// live document set. It returns the number of postings removed.
func (m *InvertedIndex) RemovePostings(id docstore.DocumentID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, term := range m.docTerms[id] {
		list, ok := m.terms[term]
		if !ok {
			continue
		}
		if list.Remove(uint64(id)) != nil {
			removed++
			m.postings--
		}
		if list.Len() == 0 {
			delete(m.terms, term)
		}
	}
	delete(m.docTerms, id)
	delete(m.live, id)
	return removed
}

// Postings returns an ordered copy of the term's postings; unknown terms
// yield an empty list.
func (m *InvertedIndex) Postings(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.postingsLocked(term)
}

func (m *InvertedIndex) DocumentFrequency(term string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.documentFrequencyLocked(term)
}

func (m *InvertedIndex) TotalDocuments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// Documents returns the live document IDs in ascending order.
func (m *InvertedIndex) Documents() []docstore.DocumentID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.documentsLocked()
}

func (m *InvertedIndex) Contains(id docstore.DocumentID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.live[id]
	return ok
}

// View runs fn against a consistent read view. Writers are blocked until fn
// returns.
func (m *InvertedIndex) View(fn func(r Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(view{m})
}

func (m *InvertedIndex) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Terms:     len(m.terms),
		Documents: len(m.live),
		Postings:  m.postings,
	}
}

// Snapshot exports every term's postings sorted by term, plus the live
// document set.
func (m *InvertedIndex) Snapshot() ([]TermEntry, []docstore.DocumentID) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.terms))
	for _, term := range slices.Sorted(maps.Keys(m.terms)) {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: m.postingsLocked(term),
		})
	}
	return entries, m.documentsLocked()
}

// Restore replaces the index contents with the given entries. Every posting
// must reference a live document and each list must be strictly ascending.
func (m *InvertedIndex) Restore(entries []TermEntry, live []docstore.DocumentID) error {
	liveSet := make(map[docstore.DocumentID]struct{}, len(live))
	for _, id := range live {
		liveSet[id] = struct{}{}
	}
	fresh := New()
	fresh.live = liveSet
	for _, entry := range entries {
		for _, p := range entry.Postings {
			if _, ok := liveSet[p.DocID]; !ok {
				return fmt.Errorf("term %q references unknown document %d: %w", entry.Term, p.DocID, apperrors.ErrInvalidInput)
			}
			if err := fresh.checkOrder(entry.Term, p.DocID); err != nil {
				return err
			}
			fresh.appendLocked(entry.Term, p)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = fresh.terms
	m.docTerms = fresh.docTerms
	m.live = fresh.live
	m.postings = fresh.postings
	return nil
}

func (m *InvertedIndex) checkOrder(term string, id docstore.DocumentID) error {
	list, ok := m.terms[term]
	if !ok || list.Len() == 0 {
		return nil
	}
	if last := list.Back().Key().(uint64); uint64(id) <= last {
		return fmt.Errorf("term %q: document %d after %d: %w", term, id, last, ErrOutOfOrder)
	}
	return nil
}

func (m *InvertedIndex) appendLocked(term string, p Posting) {
	list, ok := m.terms[term]
	if !ok {
		list = skiplist.New(skiplist.Uint64)
		m.terms[term] = list
	}
	list.Set(uint64(p.DocID), p)
	m.docTerms[p.DocID] = append(m.docTerms[p.DocID], term)
	m.postings++
}

func (m *InvertedIndex) postingsLocked(term string) PostingList {
	list, ok := m.terms[term]
	if !ok {
		return PostingList{}
	}
	result := make(PostingList, 0, list.Len())
	for elem := list.Front(); elem != nil; elem = elem.Next() {
		p := elem.Value.(Posting)
		p.Positions = slices.Clone(p.Positions)
		result = append(result, p)
	}
	return result
}

func (m *InvertedIndex) documentFrequencyLocked(term string) int {
	list, ok := m.terms[term]
	if !ok {
		return 0
	}
	return list.Len()
}

func (m *InvertedIndex) documentsLocked() []docstore.DocumentID {
	return slices.Sorted(maps.Keys(m.live))
}

type view struct {
	m *InvertedIndex
}

func (v view) Postings(term string) PostingList  { return v.m.postingsLocked(term) }
func (v view) DocumentFrequency(term string) int { return v.m.documentFrequencyLocked(term) }
func (v view) TotalDocuments() int               { return len(v.m.live) }
func (v view) Documents() []docstore.DocumentID  { return v.m.documentsLocked() }
func (v view) Contains(id docstore.DocumentID) bool {
	_, ok := v.m.live[id]
	return ok
}
