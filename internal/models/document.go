package models

// MetaSource is the metadata key every Document and Chunk carries.
const (
	MetaSource   = "source"
	MetaBlobType = "blobType"
	MetaPages    = "pages"

	BlobSource = "blob"
)

// Document is a normalized unit of extracted text plus provenance metadata.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Source returns the document origin, a file path or "blob".
func (d Document) Source() string {
	return d.Metadata[MetaSource]
}

// Chunk is a bounded slice of a Document's content.
type Chunk struct {
	Content       string            `json:"content"`
	Metadata      map[string]string `json:"metadata"`
	SequenceIndex int               `json:"sequence_index"`
	// Offset is the rune position of Content within the parent document.
	Offset int `json:"offset"`
}

// Source returns the origin of the chunk's parent document.
func (c Chunk) Source() string {
	return c.Metadata[MetaSource]
}

// CopyMetadata returns a shallow copy of m, never nil.
func CopyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
