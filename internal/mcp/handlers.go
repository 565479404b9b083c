package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/spoolhq/spool/internal/reader"
	"github.com/spoolhq/spool/internal/retrieval"
	"github.com/spoolhq/spool/internal/scratch"
)

// makeSearchHandler creates the search_content tool handler.
func makeSearchHandler(retriever *retrieval.Service, user retrieval.User) func(
	context.Context, *mcp.CallToolRequest, SearchContentInput,
) (*mcp.CallToolResult, SearchContentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchContentInput) (
		*mcp.CallToolResult, SearchContentOutput, error,
	) {
		payloads, err := retriever.Retrieve(ctx, user, retrieval.Query{
			Query: input.Query,
			TopK:  input.TopK,
			Filter: retrieval.QueryFilter{
				NodeTypes:     input.NodeTypes,
				URLs:          input.URLs,
				NoteIDs:       input.NoteIDs,
				ResourceIDs:   input.ResourceIDs,
				CollectionIDs: input.CollectionIDs,
			},
		})
		if err != nil {
			return nil, SearchContentOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]SearchResult, 0, len(payloads))
		for _, p := range payloads {
			results = append(results, SearchResult{
				DocumentID: p.DocumentID,
				NodeType:   p.NodeType,
				NoteID:     p.NoteID,
				ResourceID: p.ResourceID,
				URL:        p.URL,
				Title:      p.Title,
				Content:    p.Content,
				Sequence:   p.Sequence,
				Score:      p.Score,
			})
		}

		if len(results) == 0 {
			return nil, SearchContentOutput{
				Results: []SearchResult{},
				Message: "No matching content found. Try broader search terms or fewer filters.",
			}, nil
		}
		return nil, SearchContentOutput{Results: results}, nil
	}
}

// makeIngestURLHandler creates the ingest_url tool handler. The fetched
// page's url doubles as the document id, so re-ingesting a url replaces its
// prior chunks.
func makeIngestURLHandler(retriever *retrieval.Service, fetcher *reader.Client, user retrieval.User) func(
	context.Context, *mcp.CallToolRequest, IngestURLInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestURLInput) (
		*mcp.CallToolResult, IngestOutput, error,
	) {
		page, err := fetcher.Fetch(ctx, input.URL)
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("fetch failed: %w", err)
		}

		receipt, err := retriever.Ingest(ctx, user, retrieval.Document{
			ID:      input.URL,
			Content: page.Content,
			Metadata: retrieval.Metadata{
				NodeType:      retrieval.NodeTypeResource,
				ResourceID:    input.ResourceID,
				URL:           input.URL,
				Title:         page.Title,
				CollectionIDs: input.CollectionIDs,
			},
		})
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("ingest failed: %w", err)
		}

		return nil, IngestOutput{
			DocumentID: receipt.DocumentID,
			Chunks:     receipt.Chunks,
			SizeBytes:  receipt.SizeBytes,
			Title:      page.Title,
		}, nil
	}
}

// makeIngestContentHandler creates the ingest_content tool handler.
func makeIngestContentHandler(retriever *retrieval.Service, user retrieval.User) func(
	context.Context, *mcp.CallToolRequest, IngestContentInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestContentInput) (
		*mcp.CallToolResult, IngestOutput, error,
	) {
		receipt, err := retriever.Ingest(ctx, user, retrieval.Document{
			ID:      "note:" + input.NoteID,
			Content: input.Content,
			Metadata: retrieval.Metadata{
				NodeType:      retrieval.NodeTypeNote,
				NoteID:        input.NoteID,
				Title:         input.Title,
				CollectionIDs: input.CollectionIDs,
			},
		})
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("ingest failed: %w", err)
		}

		return nil, IngestOutput{
			DocumentID: receipt.DocumentID,
			Chunks:     receipt.Chunks,
			SizeBytes:  receipt.SizeBytes,
			Title:      input.Title,
		}, nil
	}
}

// makeScratchAddHandler creates the scratch_add tool handler.
func makeScratchAddHandler(index *scratch.Index) func(
	context.Context, *mcp.CallToolRequest, ScratchAddInput,
) (*mcp.CallToolResult, ScratchAddOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ScratchAddInput) (
		*mcp.CallToolResult, ScratchAddOutput, error,
	) {
		docs := make([]scratch.Document, len(input.Items))
		for i, item := range input.Items {
			docs[i] = scratch.Document{
				ID:       item.ID,
				Content:  item.Content,
				Metadata: item.Tags,
			}
		}

		if err := index.Add(ctx, docs); err != nil {
			return nil, ScratchAddOutput{}, fmt.Errorf("scratch add failed: %w", err)
		}
		return nil, ScratchAddOutput{Indexed: len(docs), Total: index.Len()}, nil
	}
}

// makeScratchSearchHandler creates the scratch_search tool handler.
func makeScratchSearchHandler(index *scratch.Index) func(
	context.Context, *mcp.CallToolRequest, ScratchSearchInput,
) (*mcp.CallToolResult, ScratchSearchOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ScratchSearchInput) (
		*mcp.CallToolResult, ScratchSearchOutput, error,
	) {
		topK := input.TopK
		if topK <= 0 {
			topK = 10
		}

		var predicate func(scratch.Document) bool
		if len(input.Tags) > 0 {
			predicate = func(d scratch.Document) bool {
				for key, want := range input.Tags {
					if d.Metadata[key] != want {
						return false
					}
				}
				return true
			}
		}

		hits, err := index.Search(ctx, input.Query, topK, predicate)
		if err != nil {
			return nil, ScratchSearchOutput{}, fmt.Errorf("scratch search failed: %w", err)
		}

		results := make([]ScratchResult, 0, len(hits))
		for _, hit := range hits {
			results = append(results, ScratchResult{
				ID:      hit.ID,
				Content: hit.Content,
				Tags:    hit.Metadata,
				Score:   hit.Score,
			})
		}

		if len(results) == 0 {
			return nil, ScratchSearchOutput{
				Results: []ScratchResult{},
				Message: "No matching scratch content found.",
			}, nil
		}
		return nil, ScratchSearchOutput{Results: results}, nil
	}
}

// makeDeleteOwnerHandler creates the delete_owner tool handler.
func makeDeleteOwnerHandler(retriever *retrieval.Service, user retrieval.User) func(
	context.Context, *mcp.CallToolRequest, DeleteOwnerInput,
) (*mcp.CallToolResult, DeleteOwnerOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DeleteOwnerInput) (
		*mcp.CallToolResult, DeleteOwnerOutput, error,
	) {
		if err := retriever.DeleteByOwner(ctx, user, retrieval.OwnerKind(input.Kind), input.OwnerID); err != nil {
			return nil, DeleteOwnerOutput{}, fmt.Errorf("delete failed: %w", err)
		}
		return nil, DeleteOwnerOutput{Deleted: true}, nil
	}
}
