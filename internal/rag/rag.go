package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"paperpal/internal/models"
	"paperpal/internal/parser"
)

// Store persists embedding records and answers filtered similarity queries.
type Store interface {
	// AddChunks embeds every chunk and persists the records tagged with
	// paperID. Nothing is persisted when any embedding fails.
	AddChunks(ctx context.Context, paperID string, chunks []models.Chunk) error
	// Search returns up to k records whose metadata paper_id equals
	// paperID, closest first. An empty result is not an error.
	Search(ctx context.Context, paperID, query string, k int) ([]models.Fragment, error)
	// PaperIDs lists the distinct paper identifiers present in the store.
	PaperIDs(ctx context.Context) ([]string, error)
	// Reset deletes all records; the store is usable again immediately.
	Reset(ctx context.Context) error
}

// Stage identifies how far an ingestion got before finishing or failing.
type Stage int

const (
	StageReceived Stage = iota
	StageLoaded
	StageChunked
	StageStored
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageLoaded:
		return "loaded"
	case StageChunked:
		return "chunked"
	case StageStored:
		return "stored"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// IngestResult reports the outcome of one ingestion run. On failure, Stage
// is the last stage that completed.
type IngestResult struct {
	Stage  Stage
	Pages  int
	Chunks int
	Err    error
}

func (r IngestResult) OK() bool {
	return r.Err == nil && r.Stage == StageDone
}

// Pipeline runs the ingestion path: load pages, chunk, embed and store.
// It is synchronous and request-scoped; no retries are attempted.
type Pipeline struct {
	store        Store
	chunkSize    int
	chunkOverlap int
}

func NewPipeline(store Store, chunkSize, chunkOverlap int) *Pipeline {
	return &Pipeline{store: store, chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Ingest processes one uploaded PDF under the given paper identifier.
func (p *Pipeline) Ingest(ctx context.Context, pdfPath, paperID string) IngestResult {
	log.Info().Str("paper_id", paperID).Str("file", pdfPath).Msg("Starting ingestion")

	pages, err := parser.LoadPDF(pdfPath)
	if err != nil {
		return IngestResult{Stage: StageReceived, Err: fmt.Errorf("failed to load PDF: %w", err)}
	}
	if len(pages) == 0 {
		return IngestResult{Stage: StageReceived, Err: errors.New("document yielded no pages")}
	}

	chunks := parser.ChunkPages(pages, p.chunkSize, p.chunkOverlap)
	if len(chunks) == 0 {
		return IngestResult{Stage: StageLoaded, Pages: len(pages), Err: errors.New("document yielded no chunks")}
	}

	if err := p.store.AddChunks(ctx, paperID, chunks); err != nil {
		return IngestResult{
			Stage:  StageChunked,
			Pages:  len(pages),
			Chunks: len(chunks),
			Err:    fmt.Errorf("failed to store chunks: %w", err),
		}
	}

	log.Info().Str("paper_id", paperID).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Ingestion complete")
	return IngestResult{Stage: StageDone, Pages: len(pages), Chunks: len(chunks)}
}

// Retriever applies the query-time policy (top-k, paper filter) on a Store.
type Retriever struct {
	store Store
	topK  int
}

func NewRetriever(store Store, topK int) *Retriever {
	return &Retriever{store: store, topK: topK}
}

// Retrieve returns the k closest fragments for the question, restricted to
// one paper. k <= 0 uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, paperID, question string, k int) ([]models.Fragment, error) {
	if k <= 0 {
		k = r.topK
	}
	return r.store.Search(ctx, paperID, question, k)
}
