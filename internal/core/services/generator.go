package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Ensure Generator implements the interface.
var _ driving.QueryService = (*Generator)(nil)

// DefaultContextBudget caps the total characters of source text included
// in one prompt.
const DefaultContextBudget = 12000

// DefaultAnswerTokens caps answer length when the caller does not override it.
const DefaultAnswerTokens = 1024

// systemPrompt enforces grounded, cited answers.
const systemPrompt = `You are a precise assistant that answers questions based on provided document excerpts.

Answer the user's question using ONLY the information in the numbered context passages provided.
Follow these rules strictly:
- Cite sources inline using [1], [2], etc. matching the passage numbers
- Preserve all numbers, measurements, and data exactly as written
- If the context does not contain enough information to answer fully, say so clearly and state what is missing
- If passages contain conflicting information, note the discrepancy explicitly
- Do not add information from your own knowledge beyond what the context provides`

// noContextAnswer is returned without calling the model when retrieval
// finds nothing.
const noContextAnswer = "I could not find any relevant information in the indexed documents."

// Generator turns a question and retrieved sources into a grounded,
// citation-annotated answer, buffered or streamed.
type Generator struct {
	retriever     driving.Retriever
	llm           driven.LLMService
	contextBudget int
}

// GeneratorOption configures the generator.
type GeneratorOption func(*Generator)

// WithContextBudget caps total prompt context characters.
func WithContextBudget(chars int) GeneratorOption {
	return func(g *Generator) {
		if chars > 0 {
			g.contextBudget = chars
		}
	}
}

// NewGenerator creates a query service over a retriever and an LLM.
func NewGenerator(retriever driving.Retriever, llm driven.LLMService, opts ...GeneratorOption) *Generator {
	g := &Generator{
		retriever:     retriever,
		llm:           llm,
		contextBudget: DefaultContextBudget,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ask runs a buffered query turn.
func (g *Generator) Ask(ctx context.Context, question string, opts driving.QueryOptions) (*domain.Answer, error) {
	sources, err := g.retriever.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return g.emptyAnswer(question), nil
	}

	prompt, included := g.buildPrompt(question, sources)
	text, usage, err := g.llm.Generate(ctx, prompt, g.generateOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Question: question,
		Text:     text,
		Sources:  citedSubset(text, included),
		ModelID:  g.llm.ModelName(),
		Usage:    usage,
	}, nil
}

// AskStream runs a streaming query turn.
//
// The returned channel carries zero or more delta events and then exactly
// one terminal event, after which it is closed. A model failure mid-stream
// still produces a terminal error event; the stream is never closed
// silently. Cancelling ctx stops the upstream model call; the producer
// stops as soon as the consumer's context ends.
func (g *Generator) AskStream(ctx context.Context, question string, opts driving.QueryOptions) (<-chan domain.StreamEvent, error) {
	sources, err := g.retriever.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.StreamEvent)

	if len(sources) == 0 {
		go func() {
			defer close(events)
			answer := g.emptyAnswer(question)
			g.send(ctx, events, domain.DeltaEvent(answer.Text))
			g.send(ctx, events, domain.DoneEvent(nil, answer.ModelID, answer.Usage))
		}()
		return events, nil
	}

	prompt, included := g.buildPrompt(question, sources)
	deltas, err := g.llm.GenerateStream(ctx, prompt, g.generateOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("start generation stream: %w", err)
	}

	go func() {
		defer close(events)

		var answer strings.Builder
		var usage domain.Usage

		for delta := range deltas {
			switch {
			case delta.Err != nil:
				g.send(ctx, events, domain.ErrorEvent(delta.Err.Error()))
				return
			case delta.Done:
				if delta.Usage != nil {
					usage = *delta.Usage
				}
			default:
				answer.WriteString(delta.Text)
				if !g.send(ctx, events, domain.DeltaEvent(delta.Text)) {
					// Consumer is gone; ctx cancellation has already
					// stopped the upstream call.
					return
				}
			}
		}

		cited := citedSubset(answer.String(), included)
		g.send(ctx, events, domain.DoneEvent(cited, g.llm.ModelName(), usage))
	}()

	return events, nil
}

// send delivers an event unless the consumer's context has ended.
func (g *Generator) send(ctx context.Context, events chan<- domain.StreamEvent, event domain.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (g *Generator) generateOptions(opts driving.QueryOptions) driven.GenerateOptions {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAnswerTokens
	}
	return driven.GenerateOptions{
		System:    systemPrompt,
		MaxTokens: maxTokens,
	}
}

func (g *Generator) emptyAnswer(question string) *domain.Answer {
	return &domain.Answer{
		Question: question,
		Text:     noContextAnswer,
		Sources:  []domain.RetrievedSource{},
		ModelID:  g.llm.ModelName(),
	}
}

// buildPrompt assembles the numbered context block and returns the sources
// that actually made it into the prompt.
//
// Sources are included greedily in descending score order until the
// character budget is exhausted. A source is included whole or not at all;
// its text is never split across the truncation boundary.
func (g *Generator) buildPrompt(question string, sources []domain.RetrievedSource) (string, []domain.RetrievedSource) {
	ordered := make([]domain.RetrievedSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	var included []domain.RetrievedSource
	var blocks []string
	budget := g.contextBudget
	for _, source := range ordered {
		block := source.ContextBlock(len(included) + 1)
		if len(block) > budget && len(included) > 0 {
			logger.Debug("Context budget exhausted after %d sources", len(included))
			break
		}
		if len(block) > budget {
			// Even the best source alone exceeds the budget; include it
			// anyway so the model has something to ground on.
			logger.Warn("Single source exceeds context budget (%d chars)", len(block))
		}
		included = append(included, source)
		blocks = append(blocks, block)
		budget -= len(block)
	}

	prompt := fmt.Sprintf("Context passages:\n\n%s\n\n---\n\nQuestion: %s",
		strings.Join(blocks, "\n\n"), question)
	return prompt, included
}

// citedSubset returns the prompt-included sources the answer actually
// cites via [N] markers. Markers are matched against the numbering used in
// the prompt; out-of-range markers are ignored. When no markers parse, all
// included sources are returned; the orchestrator never fabricates a
// source and never returns one it did not supply.
func citedSubset(answer string, included []domain.RetrievedSource) []domain.RetrievedSource {
	cited := make(map[int]bool)
	for i := 0; i < len(answer); i++ {
		if answer[i] != '[' {
			continue
		}
		end := strings.IndexByte(answer[i:], ']')
		if end < 0 {
			break
		}
		n, err := strconv.Atoi(answer[i+1 : i+end])
		if err == nil && n >= 1 && n <= len(included) {
			cited[n] = true
		}
		i += end
	}
	if len(cited) == 0 {
		return included
	}
	out := make([]domain.RetrievedSource, 0, len(cited))
	for i, source := range included {
		if cited[i+1] {
			out = append(out, source)
		}
	}
	return out
}
