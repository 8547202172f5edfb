// Package validator checks document requests and ingest events before they
// reach the engine and returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

const (
	maxTextLength     = 1048576
	maxFields         = 64
	maxFieldKeyLength = 128
	maxFieldValLength = 4096
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, field := range keys {
		parts[i] = fmt.Sprintf("%s:%s", field, e.Fields[field])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateDocumentRequest requires non-blank text within size bounds and
// sane metadata fields.
func ValidateDocumentRequest(req *ingestion.DocumentRequest) error {
	errs := make(map[string]string)
	checkText(req.Text, errs)
	checkFields(req.Fields, errs)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateIngestEvent checks that the event's op is known and carries what
// the op needs.
func ValidateIngestEvent(event *ingestion.IngestEvent) error {
	errs := make(map[string]string)
	switch event.Op {
	case ingestion.OpAdd:
		checkText(event.Text, errs)
		checkFields(event.Fields, errs)
	case ingestion.OpReindex:
		if event.DocumentID == 0 {
			errs["document_id"] = "document_id is required for reindex"
		}
		checkText(event.Text, errs)
		checkFields(event.Fields, errs)
	case ingestion.OpDelete:
		if event.DocumentID == 0 {
			errs["document_id"] = "document_id is required for delete"
		}
	default:
		errs["op"] = fmt.Sprintf("unknown op %q", event.Op)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkText(text string, errs map[string]string) {
	switch {
	case strings.TrimSpace(text) == "":
		errs["text"] = "text is required and must not be blank"
	case len(text) > maxTextLength:
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	}
}

func checkFields(fields map[string]string, errs map[string]string) {
	if len(fields) > maxFields {
		errs["fields"] = fmt.Sprintf("at most %d fields are allowed", maxFields)
		return
	}
	for key, value := range fields {
		switch {
		case strings.TrimSpace(key) == "":
			errs["fields"] = "field names must not be blank"
		case len(key) > maxFieldKeyLength:
			errs["fields."+key[:16]] = fmt.Sprintf("field name must be at most %d bytes", maxFieldKeyLength)
		case len(value) > maxFieldValLength:
			errs["fields."+key] = fmt.Sprintf("field value must be at most %d bytes", maxFieldValLength)
		}
	}
}
