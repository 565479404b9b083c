// Package retrieval orchestrates the ingest, delete, and search paths over
// the chunker, embedding provider, and durable vector store. Every store
// operation it issues is scoped to the calling tenant.
package retrieval

import "fmt"

// User identifies the tenant on whose behalf an operation runs.
type User struct {
	ID string
}

// NodeType classifies the origin of a document.
type NodeType string

const (
	NodeTypeNote     NodeType = "note"
	NodeTypeResource NodeType = "resource"
)

// OwnerKind selects which payload field a deleteByOwner call matches on.
type OwnerKind string

const (
	OwnerNote     OwnerKind = "noteId"
	OwnerResource OwnerKind = "resourceId"
)

// Metadata describes a document's origin and grouping.
type Metadata struct {
	NodeType      NodeType
	NoteID        string
	ResourceID    string
	URL           string
	Title         string
	CollectionIDs []string
}

// Document is the ingestion input: one logical piece of content plus its
// metadata. ID must be stable across re-ingestions of the same content so
// that chunk point ids stay idempotent.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// QueryFilter narrows a retrieve call. Each populated facet becomes an
// independent any-of condition; facets are conjoined with AND.
type QueryFilter struct {
	NodeTypes     []string
	URLs          []string
	NoteIDs       []string
	ResourceIDs   []string
	CollectionIDs []string
}

// Query is the hybrid search request. Vector, when set, skips query
// embedding. TopK defaults to DefaultTopK when non-positive.
type Query struct {
	Query  string
	Vector []float32
	Filter QueryFilter
	TopK   int
}

// ContentPayload is one ranked search result.
type ContentPayload struct {
	ID            string
	DocumentID    string
	NodeType      string
	NoteID        string
	ResourceID    string
	URL           string
	Title         string
	Content       string
	Sequence      int
	CollectionIDs []string
	Score         float32
}

// IngestReceipt summarizes a successful ingest.
type IngestReceipt struct {
	DocumentID string
	Chunks     int
	SizeBytes  int
}

// ValidationError indicates a malformed document or query shape.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
