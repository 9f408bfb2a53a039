package catalog

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// DefaultPreviewLength is the default number of runes kept in TextPreview.
const DefaultPreviewLength = 200

// Record describes one stored vector.
type Record struct {
	// ID is a unique, immutable UUID.
	ID string `json:"id"`

	// InternalIndex is the position of the vector in the index.
	InternalIndex uint32 `json:"internal_index"`

	// Namespace is the optional partition label. Empty means global.
	Namespace string `json:"namespace,omitempty"`

	// TextPreview is the source text truncated to the preview length.
	TextPreview string `json:"text_preview"`

	CreatedAt time.Time  `json:"created_at"`
	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// Metadata holds caller-supplied fields.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewRecord creates a record with a fresh UUID. InternalIndex is assigned by Catalog.Append.
func NewRecord(text, namespace string, metadata map[string]any, previewLength int, now time.Time) Record {
	return Record{
		ID:          uuid.NewString(),
		Namespace:   namespace,
		TextPreview: Preview(text, previewLength),
		CreatedAt:   now.UTC(),
		Metadata:    metadata,
	}
}

// Placeholder returns a deleted record standing in for a vector whose record was lost.
func Placeholder(internalIndex uint32, now time.Time) Record {
	at := now.UTC()
	return Record{
		ID:            uuid.NewString(),
		InternalIndex: internalIndex,
		CreatedAt:     at,
		Deleted:       true,
		DeletedAt:     &at,
		Metadata:      map[string]any{"placeholder": true},
	}
}

// Preview truncates text to at most n runes. n <= 0 uses DefaultPreviewLength.
func Preview(text string, n int) string {
	if n <= 0 {
		n = DefaultPreviewLength
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// Clone returns a copy whose metadata map and deletion time are not shared.
func (r Record) Clone() Record {
	if r.Metadata != nil {
		r.Metadata = maps.Clone(r.Metadata)
	}
	if r.DeletedAt != nil {
		at := *r.DeletedAt
		r.DeletedAt = &at
	}
	return r
}
