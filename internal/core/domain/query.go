package domain

import (
	"fmt"
	"strings"
)

// RetrievedSource is a chunk returned by retrieval together with its
// similarity score and the document metadata needed for citation. It is a
// transient projection produced per query and never persisted.
type RetrievedSource struct {
	// Chunk is the retrieved unit.
	Chunk Chunk

	// Filename is the owning document's file name.
	Filename string

	// Title is the owning document's title.
	Title string

	// Score is the cosine similarity in [0, 1]; higher is more relevant.
	Score float64
}

// Citation returns a short citation string suitable for display.
func (s RetrievedSource) Citation() string {
	pages := "?"
	if len(s.Chunk.Pages) > 0 {
		parts := make([]string, len(s.Chunk.Pages))
		for i, p := range s.Chunk.Pages {
			parts[i] = fmt.Sprintf("p.%d", p)
		}
		pages = strings.Join(parts, ", ")
	}
	if s.Chunk.Heading != "" {
		return fmt.Sprintf("%s - %s (%s)", s.Filename, s.Chunk.Heading, pages)
	}
	return fmt.Sprintf("%s (%s)", s.Filename, pages)
}

// ContextBlock renders the source as a numbered context passage for the
// generation prompt. The header carries enough structure for the model to
// cite the passage.
func (s RetrievedSource) ContextBlock(n int) string {
	pages := "?"
	if len(s.Chunk.Pages) > 0 {
		parts := make([]string, len(s.Chunk.Pages))
		for i, p := range s.Chunk.Pages {
			parts[i] = fmt.Sprintf("p.%d", p)
		}
		pages = strings.Join(parts, ", ")
	}
	section := s.Chunk.Heading
	if len(s.Chunk.SectionPath) > 0 {
		section = strings.Join(s.Chunk.SectionPath, " > ")
	}
	if section == "" {
		section = "-"
	}
	return fmt.Sprintf("[%d] File: %s | Section: %s | Pages: %s\n%s",
		n, s.Filename, section, pages, s.Chunk.Text)
}

// Usage records token consumption for one language model call.
type Usage struct {
	// InputTokens is the prompt token count.
	InputTokens int

	// OutputTokens is the completion token count.
	OutputTokens int
}

// Add accumulates another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// modelPricing holds USD cost per one million tokens.
type modelPricing struct {
	inputPerM  float64
	outputPerM float64
}

// pricingByPrefix maps model name prefixes to pricing. Prices are
// approximations for cost display, not billing.
var pricingByPrefix = []struct {
	prefix  string
	pricing modelPricing
}{
	{"claude-3-5-sonnet", modelPricing{3.0, 15.0}},
	{"claude-3-5-haiku", modelPricing{0.8, 4.0}},
	{"claude", modelPricing{3.0, 15.0}},
	{"gpt-4o-mini", modelPricing{0.15, 0.6}},
	{"gpt-4o", modelPricing{2.5, 10.0}},
	{"gpt-4", modelPricing{30.0, 60.0}},
}

// Answer is the complete result of one buffered generation turn.
type Answer struct {
	// Question is the user's question.
	Question string

	// Text is the generated answer.
	Text string

	// Sources are the retrieved sources the answer was grounded in,
	// restricted to those actually supplied to the model.
	Sources []RetrievedSource

	// ModelID names the language model that produced the answer.
	ModelID string

	// Usage is the token consumption of the call.
	Usage Usage
}

// EstimatedCostUSD returns a rough cost estimate for the underlying model
// call. Unknown models cost zero.
func (a Answer) EstimatedCostUSD() float64 {
	for _, entry := range pricingByPrefix {
		if strings.HasPrefix(a.ModelID, entry.prefix) {
			in := float64(a.Usage.InputTokens) / 1_000_000 * entry.pricing.inputPerM
			out := float64(a.Usage.OutputTokens) / 1_000_000 * entry.pricing.outputPerM
			return in + out
		}
	}
	return 0
}

// FormatSources returns a numbered source list matching inline [N] citations.
func (a Answer) FormatSources() string {
	if len(a.Sources) == 0 {
		return "No sources."
	}
	lines := make([]string, len(a.Sources))
	for i, s := range a.Sources {
		lines[i] = fmt.Sprintf("[%d] %s", i+1, s.Citation())
	}
	return strings.Join(lines, "\n")
}
