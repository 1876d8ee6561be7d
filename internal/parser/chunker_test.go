package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperpal/internal/models"
)

func repeatText(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		b.WriteString("lorem ipsum dolor sit amet ")
	}
	return b.String()[:n]
}

func TestChunkPagesSingleChunk(t *testing.T) {
	pages := []models.PageText{{Number: 1, Text: "short page"}}

	chunks := ChunkPages(pages, 100, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short page", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 1, chunks[0].ChunkID)
}

func TestChunkPagesEmptyInput(t *testing.T) {
	assert.Nil(t, ChunkPages(nil, 100, 20))
	assert.Nil(t, ChunkPages([]models.PageText{}, 100, 20))
	assert.Nil(t, ChunkPages([]models.PageText{{Number: 1, Text: "   "}, {Number: 2, Text: ""}}, 100, 20))
}

func TestChunkPagesSizeAndOverlap(t *testing.T) {
	const size, overlap = 100, 20
	pages := []models.PageText{{Number: 1, Text: repeatText(450)}}

	chunks := ChunkPages(pages, size, overlap)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk.Content)), size, "chunk %d exceeds maximum size", i)
		assert.Equal(t, i+1, chunk.ChunkID)
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		next := []rune(chunks[i].Content)
		assert.Equal(t, string(prev[len(prev)-overlap:]), string(next[:overlap]),
			"chunks %d and %d do not share the expected overlap", i-1, i)
	}
}

func TestChunkPagesReconstruction(t *testing.T) {
	const size, overlap = 100, 20
	pages := []models.PageText{
		{Number: 1, Text: repeatText(260)},
		{Number: 2, Text: repeatText(180)},
		{Number: 3, Text: repeatText(90)},
	}
	original := pages[0].Text + "\n" + pages[1].Text + "\n" + pages[2].Text

	chunks := ChunkPages(pages, size, overlap)
	require.NotEmpty(t, chunks)

	rebuilt := chunks[0].Content
	for _, chunk := range chunks[1:] {
		runes := []rune(chunk.Content)
		rebuilt += string(runes[overlap:])
	}
	assert.Equal(t, original, rebuilt)
}

func TestChunkPagesPageAttribution(t *testing.T) {
	pages := []models.PageText{
		{Number: 1, Text: repeatText(50)},
		{Number: 2, Text: repeatText(200)},
	}

	chunks := ChunkPages(pages, 60, 10)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 2, chunks[len(chunks)-1].PageNumber)
}

func TestChunkPagesClampsExcessiveOverlap(t *testing.T) {
	pages := []models.PageText{{Number: 1, Text: repeatText(300)}}

	// Overlap not below chunk size would never advance; it must be clamped.
	chunks := ChunkPages(pages, 50, 80)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk.Content)), 50)
	}
	last := chunks[len(chunks)-1].Content
	assert.True(t, strings.HasSuffix(pages[0].Text, last))
}

func TestChunkPagesDefaults(t *testing.T) {
	pages := []models.PageText{{Number: 1, Text: repeatText(2500)}}

	chunks := ChunkPages(pages, 0, -5)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk.Content)), 1000)
	}
}
