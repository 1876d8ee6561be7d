package parser

import (
	"strings"

	"paperpal/internal/models"
)

const (
	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 200  // characters
)

// ChunkPages splits the concatenated page text into chunks of at most
// maxChars runes, each overlapping the previous one by overlapChars runes.
// Boundaries may fall mid-sentence. Each chunk is attributed to the page
// containing its first character. Pure; returns nil for empty input.
func ChunkPages(pages []models.PageText, maxChars, overlapChars int) []models.Chunk {
	if maxChars <= 0 {
		maxChars = defaultChunkSize
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}
	if len(pages) == 0 {
		return nil
	}

	// Concatenated text plus the rune offset where each page begins, so
	// chunks can be mapped back to a source page.
	var text []rune
	pageStarts := make([]int, 0, len(pages))
	for i, p := range pages {
		if i > 0 {
			text = append(text, '\n')
		}
		pageStarts = append(pageStarts, len(text))
		text = append(text, []rune(p.Text)...)
	}
	if strings.TrimSpace(string(text)) == "" {
		return nil
	}

	pageAt := func(offset int) int {
		page := pages[0].Number
		for i, s := range pageStarts {
			if offset >= s {
				page = pages[i].Number
			}
		}
		return page
	}

	var chunks []models.Chunk
	start := 0
	for {
		end := start + maxChars
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, models.Chunk{
			Content:    string(text[start:end]),
			PageNumber: pageAt(start),
			ChunkID:    len(chunks) + 1,
		})
		if end == len(text) {
			break
		}
		start = end - overlapChars
	}
	return chunks
}
