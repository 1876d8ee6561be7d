package db

import (
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableDDLUsesConfiguredDimension(t *testing.T) {
	ddl := tableDDL(768)
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS paper_chunks")
	assert.Contains(t, ddl, "vector(768)")
	assert.NotContains(t, ddl, "1536")
}

func TestNewStoreKeepsDimension(t *testing.T) {
	store := NewStore(nil, nil, 512)
	assert.Equal(t, 512, store.Dimension())
}

func TestEmbeddingEncodesAsVectorLiteral(t *testing.T) {
	val, err := pgvector.NewVector([]float32{1, 2.5, -3}).Value()
	require.NoError(t, err)
	assert.Equal(t, "[1,2.5,-3]", val)
}
