package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spoolhq/spool/internal/chunker"
	"github.com/spoolhq/spool/internal/embedding"
	"github.com/spoolhq/spool/internal/vectorstore"
)

// fakeStore is an in-memory vectorstore.Store with cosine ranking and the
// same filter semantics as the real backends.
type fakeStore struct {
	mu          sync.Mutex
	points      map[string]vectorstore.Point
	upsertCalls int
	failUpsert  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: make(map[string]vectorstore.Point)}
}

func (s *fakeStore) Upsert(ctx context.Context, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.failUpsert != nil {
		return s.failUpsert
	}
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, filter vectorstore.Filter) error {
	if filter.Empty() {
		return vectorstore.ErrEmptyFilter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points {
		if filter.Matches(p.Payload) {
			delete(s.points, id)
		}
	}
	return nil
}

func (s *fakeStore) Search(ctx context.Context, vector []float32, filter vectorstore.Filter, topK int) ([]vectorstore.ScoredPoint, error) {
	if filter.Empty() {
		return nil, vectorstore.ErrEmptyFilter
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var hits []vectorstore.ScoredPoint
	for _, p := range s.points {
		if !filter.Matches(p.Payload) {
			continue
		}
		hits = append(hits, vectorstore.ScoredPoint{Point: p, Score: cosine(vector, p.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *fakeStore) EstimateSize(points []vectorstore.Point) int {
	return vectorstore.EstimateSize(points)
}

func (s *fakeStore) Health(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                     { return nil }

func (s *fakeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

func cosine(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// failingProvider always fails, for abort-before-write tests.
type failingProvider struct{}

func (failingProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, &embedding.EmbeddingError{Provider: "failing", Err: errors.New("boom")}
}

func (failingProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, &embedding.EmbeddingError{Provider: "failing", Err: errors.New("boom")}
}

func (failingProvider) Dimension() int { return 64 }

func newService(store vectorstore.Store) *Service {
	return NewService(chunker.NewSplitter(1000), embedding.NewLocalProvider(64), store, nil)
}

func TestIngestThenRetrieve(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	receipt, err := svc.Ingest(ctx, User{ID: "u1"}, Document{
		ID:      "d1",
		Content: strings.Repeat("A", 1200),
		Metadata: Metadata{
			NodeType: NodeTypeNote,
			NoteID:   "n1",
		},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, receipt.Chunks, 2, "1200 units at max 1000 must split")
	assert.Greater(t, receipt.SizeBytes, 0)

	payloads, err := svc.Retrieve(ctx, User{ID: "u1"}, Query{
		Query:  "A",
		Filter: QueryFilter{NoteIDs: []string{"n1"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, payloads)
	for _, p := range payloads {
		assert.Equal(t, "n1", p.NoteID)
		assert.Equal(t, "d1", p.DocumentID)
		assert.NotEmpty(t, p.Content)
	}
}

func TestRetrieveNeverCrossesTenants(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, User{ID: "u1"}, Document{
		ID:       "d1",
		Content:  "a private note about deadlines",
		Metadata: Metadata{NodeType: NodeTypeNote, NoteID: "n1"},
	})
	require.NoError(t, err)

	payloads, err := svc.Retrieve(ctx, User{ID: "u2"}, Query{Query: "a private note about deadlines"})
	require.NoError(t, err)
	assert.Empty(t, payloads, "another tenant's query must see nothing")

	// Even naming u1's note id explicitly must not leak.
	payloads, err = svc.Retrieve(ctx, User{ID: "u2"}, Query{
		Query:  "deadlines",
		Filter: QueryFilter{NoteIDs: []string{"n1"}},
	})
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestDeleteByOwnerScoping(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	for _, doc := range []Document{
		{ID: "d1", Content: "resource one content", Metadata: Metadata{NodeType: NodeTypeResource, ResourceID: "r1"}},
		{ID: "d2", Content: "resource two content", Metadata: Metadata{NodeType: NodeTypeResource, ResourceID: "r2"}},
	} {
		_, err := svc.Ingest(ctx, User{ID: "u1"}, doc)
		require.NoError(t, err)
	}
	// Same resource id under a different tenant must survive the delete.
	_, err := svc.Ingest(ctx, User{ID: "u2"}, Document{
		ID:       "d3",
		Content:  "resource one content",
		Metadata: Metadata{NodeType: NodeTypeResource, ResourceID: "r1"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteByOwner(ctx, User{ID: "u1"}, OwnerResource, "r1"))

	payloads, err := svc.Retrieve(ctx, User{ID: "u1"}, Query{
		Query:  "resource content",
		Filter: QueryFilter{ResourceIDs: []string{"r1"}},
	})
	require.NoError(t, err)
	assert.Empty(t, payloads)

	payloads, err = svc.Retrieve(ctx, User{ID: "u1"}, Query{
		Query:  "resource content",
		Filter: QueryFilter{ResourceIDs: []string{"r2"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payloads, "other resource ids remain")

	payloads, err = svc.Retrieve(ctx, User{ID: "u2"}, Query{
		Query:  "resource content",
		Filter: QueryFilter{ResourceIDs: []string{"r1"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payloads, "other tenants remain")
}

func TestEmbeddingFailureAbortsBeforeWrite(t *testing.T) {
	store := newFakeStore()
	svc := NewService(chunker.NewSplitter(1000), failingProvider{}, store, nil)

	_, err := svc.Ingest(context.Background(), User{ID: "u1"}, Document{
		ID:       "d1",
		Content:  "content that will fail to embed",
		Metadata: Metadata{NodeType: NodeTypeNote, NoteID: "n1"},
	})
	require.Error(t, err)

	var embErr *embedding.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
	assert.Zero(t, store.upsertCalls, "no upsert may be issued after an embed failure")
	assert.Zero(t, store.len())
}

func TestIngestIdempotentPointIDs(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, User{ID: "u1"}, Document{
		ID:       "d1",
		Content:  "first version of the note",
		Metadata: Metadata{NodeType: NodeTypeNote, NoteID: "n1"},
	})
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, User{ID: "u1"}, Document{
		ID:       "d1",
		Content:  "second version of the note",
		Metadata: Metadata{NodeType: NodeTypeNote, NoteID: "n1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, store.len(), "re-ingesting a document must replace, not duplicate")

	payloads, err := svc.Retrieve(ctx, User{ID: "u1"}, Query{
		Query:  "the note",
		Filter: QueryFilter{NoteIDs: []string{"n1"}},
	})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0].Content, "second version")
}

func TestIngestSequencePreserved(t *testing.T) {
	store := newFakeStore()
	svc := NewService(chunker.NewSplitter(40), embedding.NewLocalProvider(64), store, nil)
	ctx := context.Background()

	content := "First paragraph of the document.\n\nSecond paragraph of the document.\n\nThird paragraph of the document."
	receipt, err := svc.Ingest(ctx, User{ID: "u1"}, Document{
		ID:       "d1",
		Content:  content,
		Metadata: Metadata{NodeType: NodeTypeNote, NoteID: "n1"},
	})
	require.NoError(t, err)
	require.Greater(t, receipt.Chunks, 1)

	payloads, err := svc.Retrieve(ctx, User{ID: "u1"}, Query{
		Query:  "paragraph",
		Filter: QueryFilter{NoteIDs: []string{"n1"}},
		TopK:   50,
	})
	require.NoError(t, err)
	require.Len(t, payloads, receipt.Chunks)

	seen := make(map[int]bool)
	for _, p := range payloads {
		seen[p.Sequence] = true
	}
	for i := 0; i < receipt.Chunks; i++ {
		assert.True(t, seen[i], "sequence %d missing", i)
	}
}

func TestRetrieveWithPrecomputedVector(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, User{ID: "u1"}, Document{
		ID:       "d1",
		Content:  "vector search without query text",
		Metadata: Metadata{NodeType: NodeTypeNote, NoteID: "n1"},
	})
	require.NoError(t, err)

	provider := embedding.NewLocalProvider(64)
	vector, err := provider.EmbedQuery(ctx, "vector search")
	require.NoError(t, err)

	payloads, err := svc.Retrieve(ctx, User{ID: "u1"}, Query{Vector: vector})
	require.NoError(t, err)
	assert.NotEmpty(t, payloads)
}

func TestRetrieveValidation(t *testing.T) {
	svc := newService(newFakeStore())
	ctx := context.Background()

	var valErr *ValidationError

	_, err := svc.Retrieve(ctx, User{}, Query{Query: "x"})
	assert.ErrorAs(t, err, &valErr)

	_, err = svc.Retrieve(ctx, User{ID: "u1"}, Query{})
	assert.ErrorAs(t, err, &valErr)
}

func TestIngestValidation(t *testing.T) {
	svc := newService(newFakeStore())
	ctx := context.Background()

	var valErr *ValidationError

	_, err := svc.Ingest(ctx, User{}, Document{ID: "d1", Metadata: Metadata{NodeType: NodeTypeNote}})
	assert.ErrorAs(t, err, &valErr)

	_, err = svc.Ingest(ctx, User{ID: "u1"}, Document{Metadata: Metadata{NodeType: NodeTypeNote}})
	assert.ErrorAs(t, err, &valErr)

	_, err = svc.Ingest(ctx, User{ID: "u1"}, Document{ID: "d1"})
	assert.ErrorAs(t, err, &valErr)
}

func TestIngestEmptyDocument(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	receipt, err := svc.Ingest(context.Background(), User{ID: "u1"}, Document{
		ID:       "d1",
		Content:  "",
		Metadata: Metadata{NodeType: NodeTypeNote, NoteID: "n1"},
	})
	require.NoError(t, err)
	assert.Zero(t, receipt.Chunks)
	assert.Zero(t, store.len())
}

func TestDeleteByOwnerValidation(t *testing.T) {
	svc := newService(newFakeStore())
	ctx := context.Background()

	var valErr *ValidationError

	assert.ErrorAs(t, svc.DeleteByOwner(ctx, User{}, OwnerNote, "n1"), &valErr)
	assert.ErrorAs(t, svc.DeleteByOwner(ctx, User{ID: "u1"}, OwnerNote, ""), &valErr)
	assert.ErrorAs(t, svc.DeleteByOwner(ctx, User{ID: "u1"}, OwnerKind("folder"), "f1"), &valErr)
}

func TestIngestDerivesTitleFromHeading(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, User{ID: "u1"}, Document{
		ID:       "d1",
		Content:  "# Release Notes\n\nEverything that changed this week.",
		Metadata: Metadata{NodeType: NodeTypeNote, NoteID: "n1"},
	})
	require.NoError(t, err)

	payloads, err := svc.Retrieve(ctx, User{ID: "u1"}, Query{Query: "changed"})
	require.NoError(t, err)
	require.NotEmpty(t, payloads)
	assert.Equal(t, "Release Notes", payloads[0].Title)
}

func TestPointIDDeterministic(t *testing.T) {
	assert.Equal(t, PointID("d1", 0), PointID("d1", 0))
	assert.NotEqual(t, PointID("d1", 0), PointID("d1", 1))
	assert.NotEqual(t, PointID("d1", 0), PointID("d2", 0))
}
