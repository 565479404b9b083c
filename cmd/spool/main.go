// Package main provides the spool CLI: content ingestion, hybrid search,
// archival, and the MCP server.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spoolhq/spool/internal/archive"
	"github.com/spoolhq/spool/internal/chunker"
	"github.com/spoolhq/spool/internal/config"
	"github.com/spoolhq/spool/internal/embedding"
	"github.com/spoolhq/spool/internal/markdown"
	mcpserver "github.com/spoolhq/spool/internal/mcp"
	"github.com/spoolhq/spool/internal/reader"
	"github.com/spoolhq/spool/internal/retrieval"
	"github.com/spoolhq/spool/internal/scratch"
	"github.com/spoolhq/spool/internal/vectorstore"
)

var (
	flagUser        string
	flagResourceID  string
	flagNoteID      string
	flagCollections []string
	flagTopK        int
	flagHTTP        bool
	flagPort        string
)

var rootCmd = &cobra.Command{
	Use:   "spool",
	Short: "Content ingestion and hybrid retrieval",
	Long: `Spool fetches, chunks, embeds, and indexes content into a vector
store, then answers filtered semantic queries over it.

Environment variables:
  SPOOL_READER_ENDPOINT     Reader endpoint for url fetches (default: https://r.jina.ai)
  SPOOL_EMBEDDING_PROVIDER  openai or local (default: openai)
  SPOOL_EMBEDDING_API_KEY   OpenAI API key (required for the openai provider)
  SPOOL_STORE_BACKEND       qdrant or chromem (default: qdrant)
  SPOOL_STORE_HOST          Qdrant host (default: localhost)
  SPOOL_STORE_PORT          Qdrant gRPC port (default: 6334)
  SPOOL_STORE_PATH          chromem data directory
  SPOOL_ARCHIVE_DIR         archive object directory`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <url>",
	Short: "Fetch a url and index its content",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantically search indexed content",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <noteId|resourceId> <owner-id>",
	Short: "Remove all indexed content owned by a note or resource",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

var archiveCmd = &cobra.Command{
	Use:   "archive <url>",
	Short: "Fetch a url, embed its chunks, and write an archival record",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchive,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <key>",
	Short: "Load an archival record and index its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Runs the MCP server over stdio for local clients, or over
Streamable HTTP with --http. The HTTP mode also serves /health.`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "local", "tenant id all operations run as")

	ingestCmd.Flags().StringVar(&flagResourceID, "resource-id", "", "resource id that owns the content (defaults to the url)")
	ingestCmd.Flags().StringSliceVar(&flagCollections, "collection", nil, "collection ids to tag the content with")

	searchCmd.Flags().IntVar(&flagTopK, "top-k", retrieval.DefaultTopK, "maximum number of results")
	searchCmd.Flags().StringVar(&flagNoteID, "note-id", "", "restrict to a note id")
	searchCmd.Flags().StringVar(&flagResourceID, "resource-id", "", "restrict to a resource id")
	searchCmd.Flags().StringSliceVar(&flagCollections, "collection", nil, "restrict to collection ids")

	restoreCmd.Flags().StringVar(&flagResourceID, "resource-id", "", "resource id the restored content belongs to (defaults to the record url)")

	serveCmd.Flags().BoolVar(&flagHTTP, "http", false, "serve MCP over HTTP instead of stdio")
	serveCmd.Flags().StringVar(&flagPort, "port", "8080", "HTTP listen port")

	rootCmd.AddCommand(ingestCmd, searchCmd, deleteCmd, archiveCmd, restoreCmd, serveCmd)
}

func main() {
	// Load .env if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newProvider(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimension, 0)
	case "local":
		return embedding.NewLocalProvider(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func newStore(cfg *config.Config, logger *slog.Logger) (vectorstore.Store, error) {
	switch cfg.Store.Backend {
	case "qdrant":
		return vectorstore.NewQdrantStore(cfg.Store.Host, cfg.Store.Port, cfg.Store.Collection, cfg.Embedding.Dimension, logger)
	case "chromem":
		return vectorstore.NewChromemStore(cfg.Store.Path, cfg.Store.Collection, cfg.Embedding.Dimension, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildPipeline wires the full ingest/search path from configuration.
func buildPipeline(logger *slog.Logger) (*retrieval.Service, *reader.Client, vectorstore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	fetcher, err := reader.NewClient(cfg.Reader.Endpoint, cfg.Reader.CacheCapacity, cfg.Reader.Timeout, logger)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	svc := retrieval.NewService(chunker.NewSplitter(cfg.Chunker.MaxSize), provider, store, logger)
	return svc, fetcher, store, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	svc, fetcher, store, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	url := args[0]
	resourceID := flagResourceID
	if resourceID == "" {
		resourceID = url
	}

	page, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	receipt, err := svc.Ingest(ctx, retrieval.User{ID: flagUser}, retrieval.Document{
		ID:      url,
		Content: page.Content,
		Metadata: retrieval.Metadata{
			NodeType:      retrieval.NodeTypeResource,
			ResourceID:    resourceID,
			URL:           url,
			Title:         page.Title,
			CollectionIDs: flagCollections,
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %s\n", url)
	fmt.Printf("  Title:  %s\n", page.Title)
	fmt.Printf("  Chunks: %d\n", receipt.Chunks)
	fmt.Printf("  Size:   %d bytes\n", receipt.SizeBytes)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	svc, _, store, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	filter := retrieval.QueryFilter{CollectionIDs: flagCollections}
	if flagNoteID != "" {
		filter.NoteIDs = []string{flagNoteID}
	}
	if flagResourceID != "" {
		filter.ResourceIDs = []string{flagResourceID}
	}

	payloads, err := svc.Retrieve(ctx, retrieval.User{ID: flagUser}, retrieval.Query{
		Query:  strings.Join(args, " "),
		TopK:   flagTopK,
		Filter: filter,
	})
	if err != nil {
		return err
	}

	if len(payloads) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, p := range payloads {
		fmt.Printf("%d. [%.3f] %s", i+1, p.Score, p.DocumentID)
		if p.Title != "" {
			fmt.Printf(" (%s)", p.Title)
		}
		fmt.Printf("\n   %s\n", firstLine(p.Content))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	svc, _, store, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	kind := retrieval.OwnerKind(args[0])
	if err := svc.DeleteByOwner(ctx, retrieval.User{ID: flagUser}, kind, args[1]); err != nil {
		return err
	}

	fmt.Printf("Deleted content for %s=%s\n", args[0], args[1])
	return nil
}

// runArchive fetches a url, embeds its chunks, and writes the encoded
// record to the archive directory. The record key is <user>/<title-or-url>.
func runArchive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	fetcher, err := reader.NewClient(cfg.Reader.Endpoint, cfg.Reader.CacheCapacity, cfg.Reader.Timeout, logger)
	if err != nil {
		return err
	}
	fsStore, err := archive.NewFSStore(expandArchiveDir(cfg.Archive.Dir), logger)
	if err != nil {
		return err
	}
	archiver := archive.NewArchiver(fsStore, logger)

	url := args[0]
	page, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	cleaner := markdown.NewCleaner()
	chunks := chunker.NewSplitter(cfg.Chunker.MaxSize).Split(cleaner.CleanString(page.Content))
	if len(chunks) == 0 {
		return fmt.Errorf("no content to archive at %s", url)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}

	record := archive.ContentChunks{Chunks: make([]archive.Chunk, len(chunks))}
	for i, c := range chunks {
		record.Chunks[i] = archive.Chunk{
			ID:      retrieval.PointID(url, c.Sequence),
			URL:     url,
			Type:    string(retrieval.NodeTypeResource),
			Title:   page.Title,
			Content: c.Content,
			Vector:  vectors[i],
		}
	}

	key := flagUser + "/" + sanitizeKey(url) + ".bin"
	size, err := archiver.Archive(ctx, key, record)
	if err != nil {
		return err
	}

	fmt.Printf("Archived %s\n", url)
	fmt.Printf("  Key:    %s\n", key)
	fmt.Printf("  Chunks: %d\n", len(record.Chunks))
	fmt.Printf("  Size:   %d bytes\n", size)
	return nil
}

// runRestore decodes an archival record and upserts its chunks into the
// durable store for the calling tenant.
func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	fsStore, err := archive.NewFSStore(expandArchiveDir(cfg.Archive.Dir), logger)
	if err != nil {
		return err
	}
	archiver := archive.NewArchiver(fsStore, logger)

	record, err := archiver.Load(ctx, args[0])
	if err != nil {
		return err
	}
	if len(record.Chunks) == 0 {
		return fmt.Errorf("record %s holds no chunks", args[0])
	}

	points := make([]vectorstore.Point, len(record.Chunks))
	for i, c := range record.Chunks {
		resourceID := flagResourceID
		if resourceID == "" {
			resourceID = c.URL
		}
		payload := map[string]any{
			vectorstore.KeyTenantID:   flagUser,
			vectorstore.KeyDocumentID: c.URL,
			vectorstore.KeyNodeType:   c.Type,
			vectorstore.KeyResourceID: resourceID,
			vectorstore.KeySequence:   i,
			vectorstore.KeyContent:    c.Content,
		}
		if c.URL != "" {
			payload[vectorstore.KeyURL] = c.URL
		}
		if c.Title != "" {
			payload[vectorstore.KeyTitle] = c.Title
		}
		points[i] = vectorstore.Point{ID: c.ID, Vector: c.Vector, Payload: payload}
	}

	if err := store.Upsert(ctx, points); err != nil {
		return err
	}

	fmt.Printf("Restored %d chunks from %s\n", len(points), args[0])
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	fetcher, err := reader.NewClient(cfg.Reader.Endpoint, cfg.Reader.CacheCapacity, cfg.Reader.Timeout, logger)
	if err != nil {
		return err
	}
	svc := retrieval.NewService(chunker.NewSplitter(cfg.Chunker.MaxSize), provider, store, logger)

	// Scratch lives for this process only.
	scratchIndex, err := scratch.New(provider, logger)
	if err != nil {
		return err
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Retriever: svc,
		Reader:    fetcher,
		Scratch:   scratchIndex,
		User:      retrieval.User{ID: flagUser},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
	mux.HandleFunc("/", mcpserver.NewLandingHandler())

	if flagHTTP {
		addr := "0.0.0.0:" + flagPort
		logger.Info("starting HTTP server", "addr", addr)
		return http.ListenAndServe(addr, mux)
	}

	// Stdio mode still serves /health in the background for local checks.
	go func() {
		addr := "0.0.0.0:" + flagPort
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("health server stopped", "error", err)
		}
	}()

	logger.Info("starting MCP server (stdio)", "user", flagUser)
	return server.Run(ctx)
}

// sanitizeKey flattens a url into a single path segment.
func sanitizeKey(url string) string {
	replacer := strings.NewReplacer("://", "_", "/", "_", "?", "_", "#", "_", "&", "_", " ", "_")
	return replacer.Replace(url)
}

func expandArchiveDir(dir string) string {
	if strings.HasPrefix(dir, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + dir[1:]
		}
	}
	return dir
}
