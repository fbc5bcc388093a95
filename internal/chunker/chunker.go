// Package chunker turns a parsed document tree into an ordered sequence of
// retrieval chunks that carry their structural context.
package chunker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// DefaultChunkSize is the default target chunk size in characters.
const DefaultChunkSize = 1000

// DefaultMinChunkSize is the default size below which a text chunk is
// merged into its section's preceding text chunk instead of standing alone.
const DefaultMinChunkSize = 100

// hardMinChunkSize is the floor below which text is discarded as noise.
const hardMinChunkSize = 25

// Chunker splits a parsed document along its section structure.
//
// Headings open sections and never produce chunks themselves; paragraphs
// accumulate into a rolling buffer bounded by the chunk size; tables and
// images are atomic, one chunk each. Every chunk carries the section path
// that was open at its position in reading order.
type Chunker struct {
	chunkSize      int
	minChunkSize   int
	includeHeading bool
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithMinChunkSize sets the size in characters below which a text chunk is
// merged into the preceding text chunk of the same section. Short-section
// documents (resumes, one-page reports) still produce chunks: text with no
// merge target is emitted on its own rather than dropped.
func WithMinChunkSize(size int) Option {
	return func(c *Chunker) {
		if size >= 0 {
			c.minChunkSize = size
		}
	}
}

// WithHeadingPrefix controls whether the section heading is prepended to
// chunk content. Enabled by default.
func WithHeadingPrefix(enabled bool) Option {
	return func(c *Chunker) {
		c.includeHeading = enabled
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:      DefaultChunkSize,
		minChunkSize:   DefaultMinChunkSize,
		includeHeading: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result carries the emitted chunks and their per-type counts.
type Result struct {
	Chunks []domain.Chunk
	Counts domain.ChunkCounts
}

// sectionState tracks the currently open headings while walking the
// document in reading order.
type sectionState struct {
	// path holds the open heading titles, outermost first.
	path []string
	// levels holds the nesting depth of each open heading.
	levels []int
}

// open pushes a heading, closing any open headings at the same or deeper level.
func (s *sectionState) open(title string, level int) {
	if level < 1 {
		level = 1
	}
	for len(s.levels) > 0 && s.levels[len(s.levels)-1] >= level {
		s.levels = s.levels[:len(s.levels)-1]
		s.path = s.path[:len(s.path)-1]
	}
	s.levels = append(s.levels, level)
	s.path = append(s.path, title)
}

// current returns a copy of the open section path and the nearest heading.
func (s *sectionState) current() ([]string, string) {
	if len(s.path) == 0 {
		return nil, ""
	}
	path := make([]string, len(s.path))
	copy(path, s.path)
	return path, path[len(path)-1]
}

// Chunk walks the parsed document and emits chunks in reading order.
//
// Images without a caption are skipped; the gap is the caller's to log,
// captioning happens upstream of the chunker.
func (c *Chunker) Chunk(doc *domain.ParsedDocument, documentID string) Result {
	w := &walker{
		chunker:    c,
		documentID: documentID,
	}

	for _, item := range doc.Items {
		switch item.Kind {
		case domain.ItemHeading:
			// Heading boundary flushes the rolling buffer. A pure
			// container heading with no direct text produces no chunk of
			// its own; its children inherit it through the section path.
			w.flush()
			w.sections.open(strings.TrimSpace(item.Text), item.Level)

		case domain.ItemTable:
			w.flush()
			w.emitAtomic(renderTable(item.Text), domain.ContentTable, item.Pages)

		case domain.ItemImage:
			if strings.TrimSpace(item.Text) == "" {
				continue
			}
			w.flush()
			w.emitAtomic(fmt.Sprintf("[Image: %s]", strings.TrimSpace(item.Text)), domain.ContentImage, item.Pages)

		case domain.ItemParagraph:
			w.accumulate(item)
		}
	}
	w.flush()

	return Result{Chunks: w.chunks, Counts: w.counts}
}

// walker holds the mutable state of one chunking pass.
type walker struct {
	chunker    *Chunker
	documentID string
	sections   sectionState

	buffer      []string
	bufferPages map[int]struct{}
	bufferLen   int

	chunks []domain.Chunk
	counts domain.ChunkCounts
}

// accumulate appends paragraph text to the rolling buffer, flushing first
// when the budget would be exceeded.
func (w *walker) accumulate(item domain.ContentItem) {
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return
	}
	if w.bufferLen > 0 && w.bufferLen+len(text) > w.chunker.chunkSize {
		w.flush()
	}
	if w.bufferPages == nil {
		w.bufferPages = make(map[int]struct{})
	}
	w.buffer = append(w.buffer, text)
	w.bufferLen += len(text)
	for _, p := range item.Pages {
		w.bufferPages[p] = struct{}{}
	}
}

// flush emits the rolling buffer as one text chunk. Buffers under the
// configured minimum are folded into the preceding text chunk of the same
// section when one exists; buffers under the hard floor are discarded.
func (w *walker) flush() {
	if len(w.buffer) == 0 {
		return
	}
	content := strings.Join(w.buffer, "\n\n")
	pages := sortedPages(w.bufferPages)
	w.buffer = nil
	w.bufferPages = nil
	w.bufferLen = 0

	if len(content) < hardMinChunkSize {
		return
	}
	if len(content) < w.chunker.minChunkSize && w.mergeIntoPrevious(content, pages) {
		return
	}
	w.emit(content, domain.ContentText, pages)
}

// mergeIntoPrevious appends an undersized buffer to the last emitted chunk
// when that chunk is text from the same section. Reports whether it merged.
func (w *walker) mergeIntoPrevious(content string, pages []int) bool {
	if len(w.chunks) == 0 {
		return false
	}
	last := &w.chunks[len(w.chunks)-1]
	path, _ := w.sections.current()
	if last.ContentType != domain.ContentText ||
		strings.Join(last.SectionPath, "\x00") != strings.Join(path, "\x00") {
		return false
	}
	last.Text += "\n\n" + content
	last.Pages = uniqueSortedPages(append(last.Pages, pages...))
	return true
}

// emitAtomic emits a table or image chunk.
func (w *walker) emitAtomic(content string, contentType domain.ContentType, pages []int) {
	w.emit(content, contentType, uniqueSortedPages(pages))
}

func (w *walker) emit(content string, contentType domain.ContentType, pages []int) {
	path, heading := w.sections.current()

	if w.chunker.includeHeading && heading != "" {
		content = "## " + heading + "\n\n" + content
	}

	w.chunks = append(w.chunks, domain.Chunk{
		ID:          uuid.New().String(),
		DocumentID:  w.documentID,
		ContentType: contentType,
		Text:        content,
		Heading:     heading,
		SectionPath: path,
		Pages:       pages,
		Index:       len(w.chunks),
	})

	switch contentType {
	case domain.ContentText:
		w.counts.Text++
	case domain.ContentTable:
		w.counts.Table++
	case domain.ContentImage:
		w.counts.Image++
	}
}

// renderTable wraps table text in a self-describing block so it embeds
// like prose.
func renderTable(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "Table:") {
		return text
	}
	return "Table:\n" + text
}

func sortedPages(set map[int]struct{}) []int {
	if len(set) == 0 {
		return nil
	}
	pages := make([]int, 0, len(set))
	for p := range set {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

func uniqueSortedPages(pages []int) []int {
	if len(pages) == 0 {
		return nil
	}
	set := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		set[p] = struct{}{}
	}
	return sortedPages(set)
}
