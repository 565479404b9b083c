package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// listSep joins list-valued payload fields into chromem's string-only
// metadata. The separator never occurs in ids or urls.
const listSep = "\x1f"

// ChromemStore implements Store on chromem-go's persistent embedded
// database. It is the single-node variant for deployments without a Qdrant
// service: pure Go, gob files on disk, no external process.
//
// Search fetches all candidate points and applies the filter in process,
// which is fine at embedded scale but makes this variant unsuitable for
// large multi-tenant deployments.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
	logger     *slog.Logger
}

// NewChromemStore opens (or creates) a persistent chromem database at path.
func NewChromemStore(path, collection string, dimension int, logger *slog.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	expanded, err := expandHome(path)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	db, err := chromem.NewPersistentDB(expanded, false)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	// Embeddings are always supplied by the caller, so no embedding
	// function is wired into the collection.
	col, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	logger.Info("opened chromem store", "path", expanded, "collection", collection, "dimension", dimension)
	return &ChromemStore{db: db, collection: col, dimension: dimension, logger: logger}, nil
}

func expandHome(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Upsert stores points; existing ids are replaced.
func (s *ChromemStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(points))
	for i, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("%w: point %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(p.Vector), s.dimension)
		}
		content, _ := p.Payload[KeyContent].(string)
		docs = append(docs, chromem.Document{
			ID:        p.ID,
			Content:   content,
			Metadata:  payloadToMetadata(p.Payload),
			Embedding: p.Vector,
		})
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return &StoreError{Op: "upsert", Err: err}
	}
	return nil
}

// Delete removes all points matching the filter. Refuses empty filters.
func (s *ChromemStore) Delete(ctx context.Context, filter Filter) error {
	if filter.Empty() {
		return ErrEmptyFilter
	}

	// chromem's where clause is equality-only, so any-of conditions are
	// expanded into one delete per value combination.
	for _, where := range expandWhere(filter) {
		if err := s.collection.Delete(ctx, where, nil); err != nil {
			return &StoreError{Op: "delete", Err: err}
		}
	}
	return nil
}

// expandWhere turns a conjunction with any-of conditions into the cartesian
// set of equality-only where maps.
func expandWhere(filter Filter) []map[string]string {
	wheres := []map[string]string{{}}
	for _, c := range filter.Must {
		values := c.Any
		if len(values) == 0 {
			values = []string{c.Value}
		}
		next := make([]map[string]string, 0, len(wheres)*len(values))
		for _, base := range wheres {
			for _, v := range values {
				where := make(map[string]string, len(base)+1)
				for k, bv := range base {
					where[k] = bv
				}
				where[c.Key] = v
				next = append(next, where)
			}
		}
		wheres = next
	}
	return wheres
}

// Search returns the topK most similar points matching the filter.
func (s *ChromemStore) Search(ctx context.Context, vector []float32, filter Filter, topK int) ([]ScoredPoint, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}
	if filter.Empty() {
		return nil, ErrEmptyFilter
	}

	// chromem caps nResults at the collection size and cannot express
	// any-of matches, so fetch every candidate and filter here.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, count, nil, nil)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}

	hits := make([]ScoredPoint, 0, topK)
	for _, r := range results {
		payload := metadataToPayload(r.Metadata, r.Content)
		if !filter.Matches(payload) {
			continue
		}
		hits = append(hits, ScoredPoint{
			Point: Point{ID: r.ID, Payload: payload},
			Score: r.Similarity,
		})
		if len(hits) == topK {
			break
		}
	}
	return hits, nil
}

// EstimateSize reports the approximate serialized size of points in bytes.
func (s *ChromemStore) EstimateSize(points []Point) int {
	return EstimateSize(points)
}

// Health reports readiness; the embedded database is always reachable.
func (s *ChromemStore) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemStore) Close() error {
	return nil
}

// payloadToMetadata flattens a payload into chromem's string metadata.
func payloadToMetadata(payload map[string]any) map[string]string {
	meta := make(map[string]string, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case string:
			meta[key] = v
		case int:
			meta[key] = strconv.Itoa(v)
		case []string:
			meta[key] = strings.Join(v, listSep)
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			meta[key] = strings.Join(parts, listSep)
		default:
			meta[key] = fmt.Sprint(v)
		}
	}
	return meta
}

// metadataToPayload reverses payloadToMetadata. Joined lists are split
// back; numeric fields stay strings and are parsed by consumers.
func metadataToPayload(meta map[string]string, content string) map[string]any {
	payload := make(map[string]any, len(meta)+1)
	for key, value := range meta {
		if strings.Contains(value, listSep) {
			payload[key] = strings.Split(value, listSep)
			continue
		}
		payload[key] = value
	}
	if content != "" {
		payload[KeyContent] = content
	}
	return payload
}
