package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

func TestValidateDocumentRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     ingestion.DocumentRequest
		invalid []string
	}{
		{"ok", ingestion.DocumentRequest{Text: "the cat sat", Fields: map[string]string{"lang": "en"}}, nil},
		{"blank text", ingestion.DocumentRequest{Text: "   "}, []string{"text"}},
		{"huge text", ingestion.DocumentRequest{Text: strings.Repeat("a", maxTextLength+1)}, []string{"text"}},
		{"blank field name", ingestion.DocumentRequest{Text: "x", Fields: map[string]string{" ": "v"}}, []string{"fields"}},
		{"huge field value", ingestion.DocumentRequest{Text: "x", Fields: map[string]string{"k": strings.Repeat("v", maxFieldValLength+1)}}, []string{"fields.k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentRequest(&tt.req)
			if tt.invalid == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			for _, field := range tt.invalid {
				assert.Contains(t, verr.Fields, field)
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestValidateIngestEvent(t *testing.T) {
	assert.NoError(t, ValidateIngestEvent(&ingestion.IngestEvent{Op: ingestion.OpAdd, Text: "hello"}))
	assert.NoError(t, ValidateIngestEvent(&ingestion.IngestEvent{Op: ingestion.OpDelete, DocumentID: 3}))
	assert.NoError(t, ValidateIngestEvent(&ingestion.IngestEvent{Op: ingestion.OpReindex, DocumentID: 3, Text: "new"}))

	var verr *ValidationError
	require.ErrorAs(t, ValidateIngestEvent(&ingestion.IngestEvent{Op: "upsert"}), &verr)
	assert.Contains(t, verr.Fields, "op")

	require.ErrorAs(t, ValidateIngestEvent(&ingestion.IngestEvent{Op: ingestion.OpReindex}), &verr)
	assert.Contains(t, verr.Fields, "document_id")
	assert.Contains(t, verr.Fields, "text")
	assert.Equal(t, "document_id:document_id is required for reindex; text:text is required and must not be blank", verr.Error())
}
