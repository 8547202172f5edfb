// Package ingestion defines the request/response types and Kafka event schema
// used to add, replace and delete documents.
package ingestion

import "time"

// Op names the change an IngestEvent applies.
type Op string

const (
	OpAdd     Op = "add"
	OpReindex Op = "reindex"
	OpDelete  Op = "delete"
)

// DocumentRequest is the JSON body accepted by POST and PUT on documents.
type DocumentRequest struct {
	Text   string            `json:"text"`
	Fields map[string]string `json:"fields,omitempty"`
}

// DocumentResponse is returned after a write.
type DocumentResponse struct {
	DocumentID uint64 `json:"document_id"`
	Status     string `json:"status"`
	ReplacedID uint64 `json:"replaced_id,omitempty"`
}

// IngestEvent is the Kafka message payload consumed by the index consumer.
// DocumentID is required for reindex and delete.
type IngestEvent struct {
	Op         Op                `json:"op"`
	DocumentID uint64            `json:"document_id,omitempty"`
	Text       string            `json:"text,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	EmittedAt  time.Time         `json:"emitted_at"`
}
