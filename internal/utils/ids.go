package utils

import "github.com/google/uuid"

// NewDocumentID returns the identifier under which an indexed document is
// tracked in the registry and the chunk store.
func NewDocumentID() string {
	return uuid.NewString()
}
