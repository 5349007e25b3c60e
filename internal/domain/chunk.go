package domain

// Payload keys stored alongside every vector. knowledge-base and document
// identity are mandatory on every entry; search filters rely on them.
const (
	PayloadKeyContent    = "content"
	PayloadKeyBrainID    = "brain_id"
	PayloadKeyDocumentID = "document_id"
	PayloadKeyFileType   = "file_type"
	PayloadKeyPage       = "page"
)

// Chunk is a bounded span of extracted text, the unit that gets embedded.
// Chunks are transient; they exist only between extraction and upsert.
type Chunk struct {
	DocumentID int64
	Content    string
	Page       *int
	Embedding  []float32
}

// VectorEntry is one (vector, payload) pair written to the vector index.
type VectorEntry struct {
	ID        string
	Embedding []float32
	Payload   map[string]any
}

// VectorMatch is one scored search hit returned by the vector index.
type VectorMatch struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Source describes where a retrieved chunk came from, surfaced to callers
// alongside generated answers.
type Source struct {
	DocumentID int64    `json:"document_id"`
	Content    string   `json:"content"`
	Score      float32  `json:"score"`
	Page       *int     `json:"page,omitempty"`
	FileType   FileType `json:"file_type,omitempty"`
}
