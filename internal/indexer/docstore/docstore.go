// Package docstore owns stored documents: their identifiers, original text
// and field metadata. The inverted index refers to documents only by ID.
package docstore

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// DocumentID identifies a stored document. IDs start at 1, increase
// monotonically and are never reused.
type DocumentID uint64

// BodyField is the field name under which the document text is indexed.
const BodyField = "body"

// Document is an immutable stored document.
type Document struct {
	ID        DocumentID        `json:"id"`
	Text      string            `json:"text"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store is an in-memory, concurrency-safe document store with tombstones.
type Store struct {
	mu        sync.RWMutex
	docs      map[DocumentID]Document
	tombstone map[DocumentID]struct{}
	nextID    DocumentID
	capacity  int
}

// New creates a Store. capacity bounds the number of live documents; zero
// means unbounded.
func New(capacity int) *Store {
	return &Store{
		docs:      make(map[DocumentID]Document),
		tombstone: make(map[DocumentID]struct{}),
		nextID:    1,
		capacity:  capacity,
	}
}

// Put assigns the next identifier and stores the document.
func (s *Store) Put(text string, fields map[string]string) (DocumentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacity > 0 && len(s.docs) >= s.capacity {
		return 0, fmt.Errorf("storing document (capacity %d): %w", s.capacity, apperrors.ErrStorageFull)
	}
	id := s.nextID
	s.nextID++
	s.docs[id] = Document{
		ID:        id,
		Text:      text,
		Fields:    maps.Clone(fields),
		CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

// Get returns the document or ErrDocumentNotFound if the identifier was never
// assigned or has been deleted.
func (s *Store) Get(id DocumentID) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	doc.Fields = maps.Clone(doc.Fields)
	return doc, nil
}

// Delete tombstones the document. Deleting an unknown or already deleted
// document is a no-op.
func (s *Store) Delete(id DocumentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return
	}
	delete(s.docs, id)
	s.tombstone[id] = struct{}{}
}

// Exists reports whether id refers to a live document.
func (s *Store) Exists(id DocumentID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[id]
	return ok
}

// Len returns the number of live documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Tombstones returns the number of deleted documents.
func (s *Store) Tombstones() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tombstone)
}

// NextID returns the identifier the next Put will assign.
func (s *Store) NextID() DocumentID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// Snapshot returns the live documents ordered by ID.
func (s *Store) Snapshot() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.docs))
	for _, id := range slices.Sorted(maps.Keys(s.docs)) {
		doc := s.docs[id]
		doc.Fields = maps.Clone(doc.Fields)
		out = append(out, doc)
	}
	return out
}

// Restore replaces the store contents. Identifiers below nextID that are not
// among docs are treated as tombstoned.
func (s *Store) Restore(docs []Document, nextID DocumentID) error {
	docMap := make(map[DocumentID]Document, len(docs))
	for _, doc := range docs {
		if doc.ID == 0 || doc.ID >= nextID {
			return fmt.Errorf("restoring document %d with next id %d: %w", doc.ID, nextID, apperrors.ErrInvalidInput)
		}
		docMap[doc.ID] = doc
	}
	tombstone := make(map[DocumentID]struct{})
	for id := DocumentID(1); id < nextID; id++ {
		if _, ok := docMap[id]; !ok {
			tombstone[id] = struct{}{}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = docMap
	s.tombstone = tombstone
	s.nextID = nextID
	return nil
}
