package domain

// ItemKind is the type of a node in a parsed document tree.
type ItemKind string

// Parsed content item kinds.
const (
	// ItemHeading is a section header. Level records its nesting depth.
	ItemHeading ItemKind = "heading"

	// ItemParagraph is body text, including list items.
	ItemParagraph ItemKind = "paragraph"

	// ItemTable is a table rendered as a self-describing text block.
	ItemTable ItemKind = "table"

	// ItemImage is a picture. Text holds its caption once one exists;
	// ImageData holds the raw bytes until captioning.
	ItemImage ItemKind = "image"
)

// ContentItem is one node of a parsed document in reading order.
type ContentItem struct {
	// Kind classifies the node.
	Kind ItemKind

	// Text is the node's textual content. Empty for images that have not
	// been captioned yet.
	Text string

	// Level is the heading nesting depth (1 = top level). Zero for
	// non-heading items.
	Level int

	// Pages lists the page numbers this item appears on.
	Pages []int

	// ImageData holds raw image bytes for ItemImage nodes. It is dropped
	// after captioning so parsed documents stay small.
	ImageData []byte
}

// ParsedDocument is the structured output of the PDF parsing capability:
// an ordered sequence of typed content items plus file-level metadata.
type ParsedDocument struct {
	// Filename is the source file name.
	Filename string

	// Title is the document title, empty if the parser found none.
	Title string

	// ContentHash is the SHA-256 hex digest of the raw file bytes.
	ContentHash string

	// PageCount is the number of pages in the source document.
	PageCount int

	// Items are the content nodes in reading order.
	Items []ContentItem
}

// ImageCount returns the number of image items that still carry raw bytes.
func (d *ParsedDocument) ImageCount() int {
	n := 0
	for i := range d.Items {
		if d.Items[i].Kind == ItemImage && len(d.Items[i].ImageData) > 0 {
			n++
		}
	}
	return n
}

// DropImageData clears raw image bytes from all items.
func (d *ParsedDocument) DropImageData() {
	for i := range d.Items {
		d.Items[i].ImageData = nil
	}
}
