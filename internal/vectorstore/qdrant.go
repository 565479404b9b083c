package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// upsertBatchSize bounds points per Qdrant upsert request.
const upsertBatchSize = 100

// indexedFields are the payload fields queries and deletes filter on.
// Without payload indexes, Qdrant filtering degrades badly at scale.
var indexedFields = []string{
	KeyTenantID,
	KeyDocumentID,
	KeyNodeType,
	KeyNoteID,
	KeyResourceID,
	KeyURL,
	KeyCollectionIDs,
}

// QdrantStore implements Store against a Qdrant deployment over gRPC.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
	logger     *slog.Logger
}

// NewQdrantStore connects to Qdrant, verifies health with retry, and
// ensures the collection exists with the expected vector dimension and
// payload indexes. Fails fast if Qdrant is unreachable.
func NewQdrantStore(host string, port int, collection string, dimension int, logger *slog.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, &StoreError{Op: "connect", Err: err}
	}

	s := &QdrantStore{
		client:     client,
		collection: collection,
		dimension:  dimension,
		logger:     logger,
	}

	ctx := context.Background()
	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return s, nil
}

// healthCheckWithRetry probes Qdrant with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// ensureCollection creates the collection and payload indexes if absent.
// Idempotent.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return &StoreError{Op: "list collections", Err: err}
	}
	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &StoreError{Op: "create collection", Err: err}
	}

	for _, field := range indexedFields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return &StoreError{Op: "create payload index", Err: fmt.Errorf("field %s: %w", field, err)}
		}
	}

	s.logger.Info("created qdrant collection", "collection", s.collection, "dimension", s.dimension)
	return nil
}

// Upsert stores points in batches. Idempotent by point id: re-upserting an
// id replaces its vector and payload.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	for i, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("%w: point %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(p.Vector), s.dimension)
		}
	}

	for i := 0; i < len(points); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(points))

		batch := make([]*qdrant.PointStruct, 0, end-i)
		for _, p := range points[i:end] {
			batch = append(batch, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(p.ID),
				Vectors: qdrant.NewVectors(p.Vector...),
				Payload: qdrant.NewValueMap(p.Payload),
			})
		}

		if err := s.upsertWithRetry(ctx, batch); err != nil {
			return &StoreError{Op: "upsert", Err: fmt.Errorf("batch %d-%d: %w", i, end, err)}
		}
	}

	return nil
}

// upsertWithRetry performs one upsert request with exponential backoff.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// Delete removes all points matching the filter. Refuses empty filters.
func (s *QdrantStore) Delete(ctx context.Context, filter Filter) error {
	if filter.Empty() {
		return ErrEmptyFilter
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: toQdrantFilter(filter),
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

// Search returns the topK points most similar to vector that match the
// filter, ranked by similarity descending.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, filter Filter, topK int) ([]ScoredPoint, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}
	if filter.Empty() {
		return nil, ErrEmptyFilter
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}

	hits := make([]ScoredPoint, 0, len(results))
	for _, result := range results {
		hits = append(hits, ScoredPoint{
			Point: Point{
				ID:      result.Id.GetUuid(),
				Payload: fromQdrantPayload(result.Payload),
			},
			Score: result.Score,
		})
	}
	return hits, nil
}

// EstimateSize reports the approximate serialized size of points in bytes.
func (s *QdrantStore) EstimateSize(points []Point) int {
	return EstimateSize(points)
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// toQdrantFilter converts the filter grammar to Qdrant conditions.
func toQdrantFilter(filter Filter) *qdrant.Filter {
	must := make([]*qdrant.Condition, 0, len(filter.Must))
	for _, c := range filter.Must {
		if len(c.Any) > 0 {
			must = append(must, qdrant.NewMatchKeywords(c.Key, c.Any...))
			continue
		}
		must = append(must, qdrant.NewMatch(c.Key, c.Value))
	}
	return &qdrant.Filter{Must: must}
}

// fromQdrantPayload converts a Qdrant payload back to plain Go values.
func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = qdrantValueToAny(value)
	}
	return out
}

func qdrantValueToAny(value *qdrant.Value) any {
	switch kind := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return int(kind.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, qdrantValueToAny(item))
		}
		return out
	default:
		return nil
	}
}
