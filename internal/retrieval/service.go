package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/spoolhq/spool/internal/chunker"
	"github.com/spoolhq/spool/internal/embedding"
	"github.com/spoolhq/spool/internal/markdown"
	"github.com/spoolhq/spool/internal/vectorstore"
)

// DefaultTopK bounds a retrieve call that does not name a limit.
const DefaultTopK = 10

// pointNamespace seeds deterministic chunk point ids. Fixed so the same
// (documentId, sequence) always maps to the same point id across restarts.
var pointNamespace = uuid.MustParse("9f2c1ad6-35b8-4f06-9c2e-7a40d6f1b0aa")

// Service is the retrieval orchestrator.
type Service struct {
	splitter *chunker.Splitter
	provider embedding.Provider
	store    vectorstore.Store
	cleaner  *markdown.Cleaner
	logger   *slog.Logger
}

// NewService wires the orchestrator. The provider's dimension must match
// the store's collection dimension; the store enforces this on every write.
func NewService(splitter *chunker.Splitter, provider embedding.Provider, store vectorstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		splitter: splitter,
		provider: provider,
		store:    store,
		cleaner:  markdown.NewCleaner(),
		logger:   logger,
	}
}

// PointID derives the stable point id for one chunk of a document.
func PointID(documentID string, sequence int) string {
	return uuid.NewSHA1(pointNamespace, []byte(documentID+"#"+strconv.Itoa(sequence))).String()
}

// Ingest chunks, embeds, and upserts one document for user. If embedding
// fails nothing is written. An upsert failure surfaces as is; chunk ids are
// deterministic, so the caller can retry the whole call safely.
func (s *Service) Ingest(ctx context.Context, user User, doc Document) (IngestReceipt, error) {
	if user.ID == "" {
		return IngestReceipt{}, &ValidationError{Field: "user", Message: "tenant id is required"}
	}
	if doc.ID == "" {
		return IngestReceipt{}, &ValidationError{Field: "document", Message: "document id is required"}
	}
	if doc.Metadata.NodeType == "" {
		return IngestReceipt{}, &ValidationError{Field: "document", Message: "node type is required"}
	}

	if doc.Metadata.Title == "" {
		doc.Metadata.Title = s.cleaner.Title([]byte(doc.Content))
	}

	cleaned := s.cleaner.CleanString(doc.Content)
	chunks := s.splitter.Split(cleaned)
	if len(chunks) == 0 {
		s.logger.Debug("document has no content to index", "document", doc.ID)
		return IngestReceipt{DocumentID: doc.ID}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return IngestReceipt{}, fmt.Errorf("embed document %s: %w", doc.ID, err)
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:      PointID(doc.ID, c.Sequence),
			Vector:  vectors[i],
			Payload: s.pointPayload(user, doc, c),
		}
	}

	if err := s.store.Upsert(ctx, points); err != nil {
		return IngestReceipt{}, fmt.Errorf("index document %s: %w", doc.ID, err)
	}

	receipt := IngestReceipt{
		DocumentID: doc.ID,
		Chunks:     len(points),
		SizeBytes:  s.store.EstimateSize(points),
	}
	s.logger.Info("ingested document",
		"tenant", user.ID, "document", doc.ID, "chunks", receipt.Chunks, "bytes", receipt.SizeBytes)
	return receipt, nil
}

func (s *Service) pointPayload(user User, doc Document, c chunker.Chunk) map[string]any {
	payload := map[string]any{
		vectorstore.KeyTenantID:   user.ID,
		vectorstore.KeyDocumentID: doc.ID,
		vectorstore.KeyNodeType:   string(doc.Metadata.NodeType),
		vectorstore.KeySequence:   c.Sequence,
		vectorstore.KeyContent:    c.Content,
	}
	if doc.Metadata.NoteID != "" {
		payload[vectorstore.KeyNoteID] = doc.Metadata.NoteID
	}
	if doc.Metadata.ResourceID != "" {
		payload[vectorstore.KeyResourceID] = doc.Metadata.ResourceID
	}
	if doc.Metadata.URL != "" {
		payload[vectorstore.KeyURL] = doc.Metadata.URL
	}
	if doc.Metadata.Title != "" {
		payload[vectorstore.KeyTitle] = doc.Metadata.Title
	}
	if len(doc.Metadata.CollectionIDs) > 0 {
		payload[vectorstore.KeyCollectionIDs] = doc.Metadata.CollectionIDs
	}
	return payload
}

// DeleteByOwner removes every point of user's that belongs to the named
// note or resource. The tenant condition is always conjoined here, never
// taken from the caller.
func (s *Service) DeleteByOwner(ctx context.Context, user User, kind OwnerKind, ownerID string) error {
	if user.ID == "" {
		return &ValidationError{Field: "user", Message: "tenant id is required"}
	}
	if ownerID == "" {
		return &ValidationError{Field: "owner", Message: "owner id is required"}
	}

	var key string
	switch kind {
	case OwnerNote:
		key = vectorstore.KeyNoteID
	case OwnerResource:
		key = vectorstore.KeyResourceID
	default:
		return &ValidationError{Field: "owner", Message: fmt.Sprintf("unknown owner kind %q", kind)}
	}

	filter := vectorstore.Filter{}.And(
		vectorstore.Match(vectorstore.KeyTenantID, user.ID),
		vectorstore.Match(key, ownerID),
	)
	if err := s.store.Delete(ctx, filter); err != nil {
		return fmt.Errorf("delete %s=%s: %w", key, ownerID, err)
	}

	s.logger.Info("deleted owner content", "tenant", user.ID, "kind", string(kind), "owner", ownerID)
	return nil
}

// Retrieve runs a hybrid search scoped to user. The query vector is taken
// from the request when present, otherwise embedded from the query text.
func (s *Service) Retrieve(ctx context.Context, user User, q Query) ([]ContentPayload, error) {
	if user.ID == "" {
		return nil, &ValidationError{Field: "user", Message: "tenant id is required"}
	}
	if len(q.Vector) == 0 && q.Query == "" {
		return nil, &ValidationError{Field: "query", Message: "either query text or a vector is required"}
	}

	topK := q.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector := q.Vector
	if len(vector) == 0 {
		var err error
		vector, err = s.provider.EmbedQuery(ctx, q.Query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
	}

	filter := buildFilter(user, q.Filter)

	hits, err := s.store.Search(ctx, vector, filter, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	payloads := make([]ContentPayload, 0, len(hits))
	for _, hit := range hits {
		payloads = append(payloads, toContentPayload(hit))
	}

	s.logger.Debug("retrieved content", "tenant", user.ID, "hits", len(payloads), "topK", topK)
	return payloads, nil
}

// buildFilter conjoins the tenant condition with one any-of condition per
// populated facet. The tenant condition comes first and cannot be overridden
// by the request filter.
func buildFilter(user User, f QueryFilter) vectorstore.Filter {
	filter := vectorstore.Filter{}.And(vectorstore.Match(vectorstore.KeyTenantID, user.ID))

	facets := []struct {
		key    string
		values []string
	}{
		{vectorstore.KeyNodeType, f.NodeTypes},
		{vectorstore.KeyURL, f.URLs},
		{vectorstore.KeyNoteID, f.NoteIDs},
		{vectorstore.KeyResourceID, f.ResourceIDs},
		{vectorstore.KeyCollectionIDs, f.CollectionIDs},
	}
	for _, facet := range facets {
		if len(facet.values) > 0 {
			filter = filter.And(vectorstore.MatchAny(facet.key, facet.values))
		}
	}
	return filter
}

func toContentPayload(hit vectorstore.ScoredPoint) ContentPayload {
	p := hit.Payload
	return ContentPayload{
		ID:            hit.ID,
		DocumentID:    asString(p[vectorstore.KeyDocumentID]),
		NodeType:      asString(p[vectorstore.KeyNodeType]),
		NoteID:        asString(p[vectorstore.KeyNoteID]),
		ResourceID:    asString(p[vectorstore.KeyResourceID]),
		URL:           asString(p[vectorstore.KeyURL]),
		Title:         asString(p[vectorstore.KeyTitle]),
		Content:       asString(p[vectorstore.KeyContent]),
		Sequence:      asInt(p[vectorstore.KeySequence]),
		CollectionIDs: asStrings(p[vectorstore.KeyCollectionIDs]),
		Score:         hit.Score,
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asInt accepts both numeric payload values and their string renderings;
// the embedded store keeps all metadata as strings.
func asInt(v any) int {
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case string:
		n, _ := strconv.Atoi(val)
		return n
	default:
		return 0
	}
}

func asStrings(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}
