package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"paperpal/internal/models"
)

const tableName = "paper_chunks"

// Record is one embedding record in the postgres/pgvector backend.
// pgvector.Vector encodes as a vector literal; a plain float slice would be
// sent as a postgres array and rejected by the vector column.
type Record struct {
	bun.BaseModel `bun:"table:paper_chunks,alias:pc"`
	ID            int64           `bun:"id,pk,autoincrement"`
	PaperID       string          `bun:"paper_id,notnull"`
	PageNumber    int             `bun:"page_number"`
	ChunkID       int             `bun:"chunk_id"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
}

// Connect opens a postgres connection for the pgvector backend.
func Connect(dsn, password string, debug bool) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(password)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Store implements the vector store contract on postgres with pgvector.
type Store struct {
	db        *bun.DB
	embedder  embeddings.Embedder
	dimension int
}

// NewStore wraps an open connection. dimension sets the width of the vector
// column and must match the embedding model's output size.
func NewStore(db *bun.DB, embedder embeddings.Embedder, dimension int) *Store {
	return &Store{db: db, embedder: embedder, dimension: dimension}
}

// Dimension returns the configured vector column width.
func (s *Store) Dimension() int {
	return s.dimension
}

func tableDDL(dimension int) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	paper_id TEXT NOT NULL,
	page_number INTEGER,
	chunk_id INTEGER,
	content TEXT NOT NULL,
	embedding vector(%d) NOT NULL
)`, tableName, dimension)
}

// Init enables the pgvector extension and creates the records table when
// missing. Plain DDL because the vector column width is configuration, not
// something the model struct can express.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, tableDDL(s.dimension)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AddChunks embeds every chunk before writing, then inserts the whole batch
// in one statement so a failed embedding call persists nothing.
func (s *Store) AddChunks(ctx context.Context, paperID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to store for paper %s", paperID)
	}

	records := make([]Record, 0, len(chunks))
	for _, chunk := range chunks {
		emb, err := s.embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", chunk.ChunkID, err)
		}
		records = append(records, Record{
			PaperID:    paperID,
			PageNumber: chunk.PageNumber,
			ChunkID:    chunk.ChunkID,
			Content:    chunk.Content,
			Embedding:  pgvector.NewVector(emb),
		})
	}

	_, err := s.db.NewInsert().Model(&records).Exec(ctx)
	return err
}

// Search orders by vector distance, restricted to one paper.
func (s *Store) Search(ctx context.Context, paperID, query string, k int) ([]models.Fragment, error) {
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var records []Record
	err = s.db.NewSelect().
		Model(&records).
		Where("paper_id = ?", paperID).
		OrderExpr("embedding <-> ?", pgvector.NewVector(queryEmbedding)).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	fragments := make([]models.Fragment, 0, len(records))
	for _, rec := range records {
		fragments = append(fragments, models.Fragment{
			Content: rec.Content,
			Metadata: map[string]string{
				models.MetaPaperID: rec.PaperID,
				"page":             fmt.Sprintf("%d", rec.PageNumber),
				"chunk":            fmt.Sprintf("%d", rec.ChunkID),
			},
		})
	}
	return fragments, nil
}

// PaperIDs lists distinct paper identifiers, sorted.
func (s *Store) PaperIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().
		Model((*Record)(nil)).
		ColumnExpr("DISTINCT paper_id").
		OrderExpr("paper_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Reset drops and recreates the records table.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.NewDropTable().Model((*Record)(nil)).IfExists().Exec(ctx); err != nil {
		return err
	}
	return s.Init(ctx)
}
