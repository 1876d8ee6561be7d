package models

// PageText is the extracted plain text of one PDF page.
type PageText struct {
	Number int
	Text   string
}

// Chunk represents a bounded slice of a document's text with metadata
type Chunk struct {
	Content    string
	PageNumber int
	ChunkID    int
}

// Fragment is one retrieved embedding record, closest first.
type Fragment struct {
	Content    string
	Metadata   map[string]string
	Similarity float32
}

// Paper is one processed upload as listed by the papers endpoint.
type Paper struct {
	PaperID     string `json:"paper_id"`
	DisplayName string `json:"display_name"`
}
