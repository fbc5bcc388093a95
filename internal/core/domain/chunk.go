package domain

import "strings"

// ContentType classifies what kind of content a chunk carries.
type ContentType string

// Chunk content types.
const (
	// ContentText is prose accumulated from paragraph items.
	ContentText ContentType = "text"

	// ContentTable is a table rendered as a self-describing text block.
	ContentTable ContentType = "table"

	// ContentImage is a generated caption standing in for an image.
	ContentImage ContentType = "image"
)

// IsValid returns true for a known content type.
func (t ContentType) IsValid() bool {
	switch t {
	case ContentText, ContentTable, ContentImage:
		return true
	}
	return false
}

// Chunk is the retrievable unit of document content. Every chunk belongs to
// exactly one document; its section path is fixed at chunking time.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// ContentType classifies the chunk payload.
	ContentType ContentType

	// Text is the chunk payload. For images this is the generated caption,
	// for tables the rendered table block.
	Text string

	// Heading is the nearest enclosing section heading, if any.
	Heading string

	// SectionPath is the ordered list of ancestor heading titles from the
	// document root down to this chunk's section.
	SectionPath []string

	// Pages is the ordered set of page numbers the chunk spans.
	Pages []int

	// Index is the chunk's position in document reading order.
	Index int

	// Embedding is the vector representation used for similarity search.
	Embedding []float32
}

// EmbeddingText returns the text that is embedded for this chunk. The
// section path is prepended so structural context contributes to the vector.
func (c Chunk) EmbeddingText() string {
	if len(c.SectionPath) == 0 {
		return c.Text
	}
	return "[Section: " + strings.Join(c.SectionPath, " > ") + "]\n" + c.Text
}
