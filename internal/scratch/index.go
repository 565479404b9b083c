// Package scratch provides a process-lifetime vector index for exploratory
// retrieval. Nothing here persists; the index is rebuilt on every start.
package scratch

import (
	"context"
	"fmt"
	"log/slog"

	chromem "github.com/philippgille/chromem-go"

	"github.com/spoolhq/spool/internal/embedding"
)

// Document is one entry in the ephemeral index.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float32
}

// Index is an in-memory vector index backed by chromem. Documents are
// embedded on insert through the configured provider and searched by
// similarity with an optional caller predicate.
type Index struct {
	collection *chromem.Collection
	provider   embedding.Provider
	logger     *slog.Logger
}

// New builds an empty in-memory index.
func New(provider embedding.Provider, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection("scratch", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create scratch collection: %w", err)
	}

	return &Index{collection: col, provider: provider, logger: logger}, nil
}

// Add embeds the documents in one batch and inserts them. Re-adding an
// existing id replaces the prior entry.
func (idx *Index) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document %d has no id", i)
		}
		texts[i] = d.Content
	}

	vectors, err := idx.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	entries := make([]chromem.Document, len(docs))
	for i, d := range docs {
		entries[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Content,
			Metadata:  d.Metadata,
			Embedding: vectors[i],
		}
	}

	if err := idx.collection.AddDocuments(ctx, entries, 1); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}

	idx.logger.Debug("added documents to scratch index", "count", len(docs), "total", idx.collection.Count())
	return nil
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int {
	return idx.collection.Count()
}

// Search embeds the query and returns up to k documents ranked by
// similarity descending. A nil predicate admits every document.
func (idx *Index) Search(ctx context.Context, query string, k int, predicate func(Document) bool) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}
	count := idx.collection.Count()
	if count == 0 {
		return nil, nil
	}

	vector, err := idx.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Candidates beyond k are needed because the predicate filters after
	// ranking, so fetch everything and trim below.
	results, err := idx.collection.QueryEmbedding(ctx, vector, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query scratch index: %w", err)
	}

	hits := make([]Document, 0, k)
	for _, r := range results {
		doc := Document{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    r.Similarity,
		}
		if predicate != nil && !predicate(doc) {
			continue
		}
		hits = append(hits, doc)
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}
