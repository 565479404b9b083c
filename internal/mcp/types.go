// Package mcp exposes the retrieval pipeline over the Model Context
// Protocol: ingesting urls and raw content, hybrid search, and scoped
// deletion.
package mcp

// SearchContentInput defines the input parameters for the search_content tool.
type SearchContentInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query"`
	// TopK is the maximum number of chunks to return.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=50,default=10,description=Maximum number of results to return"`
	// NodeTypes restricts results to these node types (e.g. note, resource).
	NodeTypes []string `json:"node_types,omitempty" jsonschema:"description=Restrict results to these node types"`
	// URLs restricts results to content ingested from these urls.
	URLs []string `json:"urls,omitempty" jsonschema:"description=Restrict results to these source urls"`
	// NoteIDs restricts results to these note ids.
	NoteIDs []string `json:"note_ids,omitempty" jsonschema:"description=Restrict results to these note ids"`
	// ResourceIDs restricts results to these resource ids.
	ResourceIDs []string `json:"resource_ids,omitempty" jsonschema:"description=Restrict results to these resource ids"`
	// CollectionIDs restricts results to these collection ids.
	CollectionIDs []string `json:"collection_ids,omitempty" jsonschema:"description=Restrict results to these collection ids"`
}

// SearchContentOutput contains the ranked search results.
type SearchContentOutput struct {
	Results []SearchResult `json:"results"`
	// Message provides informational context when there are no results.
	Message string `json:"message,omitempty"`
}

// SearchResult is one ranked chunk.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	NodeType   string  `json:"node_type"`
	NoteID     string  `json:"note_id,omitempty"`
	ResourceID string  `json:"resource_id,omitempty"`
	URL        string  `json:"url,omitempty"`
	Title      string  `json:"title,omitempty"`
	Content    string  `json:"content"`
	Sequence   int     `json:"sequence"`
	Score      float32 `json:"score"`
}

// IngestURLInput defines the input parameters for the ingest_url tool.
type IngestURLInput struct {
	// URL is the page to fetch and index.
	URL string `json:"url" jsonschema:"required,description=The url to fetch and index"`
	// ResourceID groups the ingested content for later deletion.
	ResourceID string `json:"resource_id" jsonschema:"required,description=Resource id that owns the ingested content"`
	// CollectionIDs optionally tags the content with collections.
	CollectionIDs []string `json:"collection_ids,omitempty" jsonschema:"description=Collection ids to tag the content with"`
}

// IngestContentInput defines the input parameters for the ingest_content tool.
type IngestContentInput struct {
	// Content is the raw text to index.
	Content string `json:"content" jsonschema:"required,description=The raw text to index"`
	// NoteID groups the ingested content for later deletion.
	NoteID string `json:"note_id" jsonschema:"required,description=Note id that owns the ingested content"`
	// Title optionally labels the content.
	Title string `json:"title,omitempty" jsonschema:"description=Optional title for the content"`
	// CollectionIDs optionally tags the content with collections.
	CollectionIDs []string `json:"collection_ids,omitempty" jsonschema:"description=Collection ids to tag the content with"`
}

// IngestOutput summarizes a completed ingest.
type IngestOutput struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	SizeBytes  int    `json:"size_bytes"`
	Title      string `json:"title,omitempty"`
}

// ScratchAddInput defines the input parameters for the scratch_add tool.
type ScratchAddInput struct {
	// Items are the documents to index in the scratch workspace.
	Items []ScratchItem `json:"items" jsonschema:"required,description=Documents to add to the scratch index"`
}

// ScratchItem is one document for the scratch index.
type ScratchItem struct {
	ID      string            `json:"id" jsonschema:"required,description=Stable id; re-adding an id replaces it"`
	Content string            `json:"content" jsonschema:"required,description=The text to index"`
	Tags    map[string]string `json:"tags,omitempty" jsonschema:"description=Optional key/value tags used by scratch_search"`
}

// ScratchAddOutput acknowledges an add.
type ScratchAddOutput struct {
	Indexed int `json:"indexed"`
	Total   int `json:"total"`
}

// ScratchSearchInput defines the input parameters for the scratch_search tool.
type ScratchSearchInput struct {
	Query string `json:"query" jsonschema:"required,description=The semantic search query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=50,default=10,description=Maximum number of results"`
	// Tags restricts results to documents carrying all of these tag values.
	Tags map[string]string `json:"tags,omitempty" jsonschema:"description=Require these tag values on every result"`
}

// ScratchSearchOutput contains the ranked scratch results.
type ScratchSearchOutput struct {
	Results []ScratchResult `json:"results"`
	Message string          `json:"message,omitempty"`
}

// ScratchResult is one ranked scratch document.
type ScratchResult struct {
	ID      string            `json:"id"`
	Content string            `json:"content"`
	Tags    map[string]string `json:"tags,omitempty"`
	Score   float32           `json:"score"`
}

// DeleteOwnerInput defines the input parameters for the delete_owner tool.
type DeleteOwnerInput struct {
	// Kind is the owner id field to match: "noteId" or "resourceId".
	Kind string `json:"kind" jsonschema:"required,description=Owner kind: noteId or resourceId"`
	// OwnerID is the note or resource id whose content is removed.
	OwnerID string `json:"owner_id" jsonschema:"required,description=The note or resource id to delete"`
}

// DeleteOwnerOutput acknowledges a completed delete.
type DeleteOwnerOutput struct {
	Deleted bool `json:"deleted"`
}
