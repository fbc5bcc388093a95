package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func paragraph(text string, pages ...int) domain.ContentItem {
	return domain.ContentItem{Kind: domain.ItemParagraph, Text: text, Pages: pages}
}

func heading(text string, level int, pages ...int) domain.ContentItem {
	return domain.ContentItem{Kind: domain.ItemHeading, Text: text, Level: level, Pages: pages}
}

func TestChunker_EmptyDocument(t *testing.T) {
	result := New().Chunk(&domain.ParsedDocument{}, "doc-1")
	assert.Empty(t, result.Chunks)
	assert.Zero(t, result.Counts.Total())
}

func TestChunker_SingleParagraph(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		paragraph("A paragraph long enough to clear the minimum chunk size floor.", 1),
	}}

	result := New().Chunk(doc, "doc-1")

	require.Len(t, result.Chunks, 1)
	chunk := result.Chunks[0]
	assert.Equal(t, "doc-1", chunk.DocumentID)
	assert.Equal(t, domain.ContentText, chunk.ContentType)
	assert.Equal(t, []int{1}, chunk.Pages)
	assert.Zero(t, chunk.Index)
	assert.Empty(t, chunk.SectionPath)
	assert.Equal(t, 1, result.Counts.Text)
}

func TestChunker_SectionPathTracksNesting(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		heading("Chapter One", 1, 1),
		heading("Background", 2, 1),
		paragraph("Text inside the background subsection of chapter one.", 1),
		heading("Chapter Two", 1, 2),
		paragraph("Text directly under chapter two after the subsection closed.", 2),
	}}

	result := New().Chunk(doc, "doc-1")
	require.Len(t, result.Chunks, 2)

	assert.Equal(t, []string{"Chapter One", "Background"}, result.Chunks[0].SectionPath)
	assert.Equal(t, "Background", result.Chunks[0].Heading)

	// The level-1 heading closed both open sections.
	assert.Equal(t, []string{"Chapter Two"}, result.Chunks[1].SectionPath)
	assert.Equal(t, "Chapter Two", result.Chunks[1].Heading)
}

func TestChunker_SameLevelHeadingReplaces(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		heading("First Section", 2),
		paragraph("Paragraph belonging to the first section of the document."),
		heading("Second Section", 2),
		paragraph("Paragraph belonging to the second section of the document."),
	}}

	result := New().Chunk(doc, "doc-1")
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, []string{"First Section"}, result.Chunks[0].SectionPath)
	assert.Equal(t, []string{"Second Section"}, result.Chunks[1].SectionPath)
}

func TestChunker_ParagraphsAccumulateUntilBudget(t *testing.T) {
	first := strings.Repeat("a", 400)
	second := strings.Repeat("b", 400)
	third := strings.Repeat("c", 400)
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		paragraph(first, 1),
		paragraph(second, 1),
		paragraph(third, 2),
	}}

	result := New(WithChunkSize(1000), WithHeadingPrefix(false)).Chunk(doc, "doc-1")

	// 400+400 fits in 1000; adding the third would exceed it.
	require.Len(t, result.Chunks, 2)
	assert.Contains(t, result.Chunks[0].Text, first)
	assert.Contains(t, result.Chunks[0].Text, second)
	assert.Equal(t, []int{1}, result.Chunks[0].Pages)
	assert.Contains(t, result.Chunks[1].Text, third)
	assert.Equal(t, []int{2}, result.Chunks[1].Pages)
}

func TestChunker_ShortFragmentsDropped(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		paragraph("tiny"),
	}}

	result := New().Chunk(doc, "doc-1")
	assert.Empty(t, result.Chunks)
}

func TestChunker_HardFloorKeepsShortSections(t *testing.T) {
	// MinChunkSize larger than the hard floor must not drop modest but
	// meaningful sections.
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		paragraph("Thirty-plus characters of content."),
	}}

	result := New(WithMinChunkSize(500)).Chunk(doc, "doc-1")
	assert.Len(t, result.Chunks, 1)
}

func TestChunker_SmallTailMergesIntoPreviousChunk(t *testing.T) {
	big := strings.Repeat("a", 90)
	tail := "short closing sentence here."
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		paragraph(big, 1),
		paragraph(tail, 2),
	}}

	result := New(WithChunkSize(100), WithMinChunkSize(50), WithHeadingPrefix(false)).Chunk(doc, "doc-1")

	// The undersized tail folds into the preceding chunk of the section
	// instead of standing alone.
	require.Len(t, result.Chunks, 1)
	assert.Contains(t, result.Chunks[0].Text, big)
	assert.Contains(t, result.Chunks[0].Text, tail)
	assert.Equal(t, []int{1, 2}, result.Chunks[0].Pages)
	assert.Equal(t, 1, result.Counts.Text)
}

func TestChunker_SmallTailInNewSectionStandsAlone(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		heading("Intro", 1),
		paragraph(strings.Repeat("a", 90), 1),
		heading("Appendix", 1),
		paragraph("short appendix note, kept.", 2),
	}}

	result := New(WithChunkSize(100), WithMinChunkSize(50), WithHeadingPrefix(false)).Chunk(doc, "doc-1")

	// No merging across section boundaries; the short section keeps its
	// own chunk rather than being dropped.
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, []string{"Intro"}, result.Chunks[0].SectionPath)
	assert.Equal(t, []string{"Appendix"}, result.Chunks[1].SectionPath)
	assert.Contains(t, result.Chunks[1].Text, "appendix note")
}

func TestChunker_TableIsAtomic(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		heading("Financials", 1),
		paragraph("Narrative before the table, long enough to form its own chunk."),
		domain.ContentItem{Kind: domain.ItemTable, Text: "Q1 | 100\nQ2 | 120", Pages: []int{3}},
	}}

	result := New().Chunk(doc, "doc-1")
	require.Len(t, result.Chunks, 2)

	table := result.Chunks[1]
	assert.Equal(t, domain.ContentTable, table.ContentType)
	assert.Contains(t, table.Text, "Table:")
	assert.Contains(t, table.Text, "Q1 | 100")
	assert.Equal(t, []int{3}, table.Pages)
	assert.Equal(t, 1, result.Counts.Table)
}

func TestChunker_CaptionedImageBecomesChunk(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		domain.ContentItem{Kind: domain.ItemImage, Text: "A bar chart of quarterly revenue", Pages: []int{2}},
	}}

	result := New().Chunk(doc, "doc-1")
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, domain.ContentImage, result.Chunks[0].ContentType)
	assert.Contains(t, result.Chunks[0].Text, "[Image: A bar chart of quarterly revenue]")
	assert.Equal(t, 1, result.Counts.Image)
}

func TestChunker_UncaptionedImageSkipped(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		domain.ContentItem{Kind: domain.ItemImage, Text: "", Pages: []int{2}},
	}}

	result := New().Chunk(doc, "doc-1")
	assert.Empty(t, result.Chunks)
}

func TestChunker_HeadingPrefix(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		heading("Methodology", 1),
		paragraph("The study sampled two hundred responses across regions."),
	}}

	with := New().Chunk(doc, "doc-1")
	require.Len(t, with.Chunks, 1)
	assert.True(t, strings.HasPrefix(with.Chunks[0].Text, "## Methodology"))

	without := New(WithHeadingPrefix(false)).Chunk(doc, "doc-1")
	require.Len(t, without.Chunks, 1)
	assert.False(t, strings.HasPrefix(without.Chunks[0].Text, "##"))
	assert.Equal(t, "Methodology", without.Chunks[0].Heading)
}

func TestChunker_IndexFollowsReadingOrder(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		paragraph("First block of prose, long enough to be kept as a chunk."),
		domain.ContentItem{Kind: domain.ItemTable, Text: "a | b"},
		paragraph("Second block of prose, also long enough to be kept."),
	}}

	result := New().Chunk(doc, "doc-1")
	require.Len(t, result.Chunks, 3)
	for i, chunk := range result.Chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestChunker_PagesMergedAndSorted(t *testing.T) {
	doc := &domain.ParsedDocument{Items: []domain.ContentItem{
		paragraph("Paragraph spanning onto the next page of the document.", 2),
		paragraph("Continuation paragraph on the following pages of text.", 3, 2),
	}}

	result := New(WithHeadingPrefix(false)).Chunk(doc, "doc-1")
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, []int{2, 3}, result.Chunks[0].Pages)
}
