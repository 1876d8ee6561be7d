package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"paperpal/internal/models"
)

const compress = false

// Store encapsulates the chromem-go database operations. It persists one
// collection of embedding records on disk; metadata on every record carries
// the owning paper identifier.
type Store struct {
	db             *chromem.DB
	embedder       embeddings.Embedder
	collectionName string
	dimension      int

	mu         sync.Mutex
	collection *chromem.Collection
}

// NewStore opens (or creates) the persistent database under dbPath.
// dimension must match the embedding model's output size.
func NewStore(dbPath, collectionName string, dimension int, embedder embeddings.Embedder) (*Store, error) {
	db, err := chromem.NewPersistentDB(dbPath, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %v", err)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &Store{
		db:             db,
		embedder:       embedder,
		collectionName: collectionName,
		dimension:      dimension,
		collection:     collection,
	}, nil
}

func (s *Store) col() *chromem.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection
}

// AddChunks embeds all chunks first and writes them in one batch, so a
// failed embedding call persists nothing.
func (s *Store) AddChunks(ctx context.Context, paperID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to store for paper %s", paperID)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		emb, err := s.embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", chunk.ChunkID, err)
		}
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s-%d", paperID, chunk.ChunkID),
			Content: chunk.Content,
			Metadata: map[string]string{
				models.MetaPaperID: paperID,
				"page":             strconv.Itoa(chunk.PageNumber),
				"chunk":            strconv.Itoa(chunk.ChunkID),
			},
			Embedding: emb,
		})
	}

	if err := s.col().AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search embeds the query and returns the k nearest records tagged with
// paperID, closest first.
func (s *Store) Search(ctx context.Context, paperID, query string, k int) ([]models.Fragment, error) {
	collection := s.col()
	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
		Where:          map[string]string{models.MetaPaperID: paperID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	fragments := make([]models.Fragment, 0, len(results))
	for _, res := range results {
		fragments = append(fragments, models.Fragment{
			Content:    res.Content,
			Metadata:   res.Metadata,
			Similarity: res.Similarity,
		})
	}
	return fragments, nil
}

// PaperIDs lists the distinct paper identifiers in the collection, sorted.
// chromem-go has no metadata enumeration, so all records are fetched with a
// probe vector of the configured dimension; no external calls are made.
func (s *Store) PaperIDs(ctx context.Context) ([]string, error) {
	collection := s.col()
	count := collection.Count()
	if count == 0 {
		return nil, nil
	}

	probe := make([]float32, s.dimension)
	probe[0] = 1
	results, err := collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: probe,
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %v", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, res := range results {
		id := res.Metadata[models.MetaPaperID]
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Reset irreversibly drops all records. The collection is recreated right
// away so subsequent adds need no extra setup.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	collection, err := s.db.GetOrCreateCollection(s.collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %v", err)
	}
	s.collection = collection
	log.Info().Str("collection", s.collectionName).Msg("Vector store reset")
	return nil
}
