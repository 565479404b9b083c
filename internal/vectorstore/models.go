// Package vectorstore defines the durable vector store capability interface
// and its Qdrant and chromem-backed implementations.
package vectorstore

import (
	"context"
	"encoding/json"
)

// Payload keys stamped on every stored point.
const (
	KeyTenantID      = "tenantId"
	KeyDocumentID    = "documentId"
	KeyNodeType      = "nodeType"
	KeyNoteID        = "noteId"
	KeyResourceID    = "resourceId"
	KeyURL           = "url"
	KeyTitle         = "title"
	KeyType          = "type"
	KeySequence      = "sequence"
	KeyContent       = "content"
	KeyCollectionIDs = "collectionIds"
)

// Point is the stored unit: one chunk's embedding plus its payload.
// IDs are stable per (documentId, sequence), so re-upserting replaces the
// prior vector and payload instead of duplicating.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit with its similarity score.
type ScoredPoint struct {
	Point
	Score float32
}

// Store is the durable vector store capability interface.
//
// Upsert is idempotent by point id and per-point atomic; batch-level
// atomicity is not guaranteed. Delete and Search operate on a conjunction
// filter and must always be scoped by at least a tenant condition, which the
// retrieval orchestrator supplies.
type Store interface {
	Upsert(ctx context.Context, points []Point) error
	Delete(ctx context.Context, filter Filter) error
	Search(ctx context.Context, vector []float32, filter Filter, topK int) ([]ScoredPoint, error)
	EstimateSize(points []Point) int
	Health(ctx context.Context) error
	Close() error
}

// EstimateSize approximates the serialized size of points in bytes for
// storage-quota accounting. Pure function, no side effects.
func EstimateSize(points []Point) int {
	total := 0
	for _, p := range points {
		total += len(p.ID) + 4*len(p.Vector)
		if b, err := json.Marshal(p.Payload); err == nil {
			total += len(b)
		}
	}
	return total
}
