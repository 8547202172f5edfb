// Package errors holds the sentinel errors shared by the index, the query
// layer and the HTTP surface, and classifies them for callers.
package errors

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrStorageFull      = errors.New("document store full")
	ErrQuerySyntax      = errors.New("query syntax error")
	ErrTokenizerFailure = errors.New("tokenizer failure")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTimeout          = errors.New("operation timed out")
)

// kind describes how one sentinel surfaces to callers. A permanent error
// fails the same way every time it is retried.
type kind struct {
	sentinel  error
	status    int
	permanent bool
}

// kinds is checked in order; the first match wins.
var kinds = []kind{
	{ErrDocumentNotFound, http.StatusNotFound, true},
	{ErrInvalidInput, http.StatusBadRequest, true},
	{ErrQuerySyntax, http.StatusBadRequest, true},
	{ErrTokenizerFailure, http.StatusUnprocessableEntity, true},
	{ErrStorageFull, http.StatusInsufficientStorage, false},
	{ErrTimeout, http.StatusServiceUnavailable, false},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, false},
}

func classify(err error) (kind, bool) {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k, true
		}
	}
	return kind{}, false
}

// HTTPStatusCode maps err to a response status. Unclassified errors are 500.
func HTTPStatusCode(err error) int {
	if k, ok := classify(err); ok {
		return k.status
	}
	return http.StatusInternalServerError
}

// IsPermanent reports whether retrying the operation that produced err
// cannot succeed. Unclassified errors are assumed transient.
func IsPermanent(err error) bool {
	k, ok := classify(err)
	return ok && k.permanent
}
