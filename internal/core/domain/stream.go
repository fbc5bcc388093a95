package domain

import "encoding/json"

// StreamEventType tags one event in a streaming generation turn.
type StreamEventType string

// Stream event types. A stream is zero or more delta events followed by
// exactly one terminal event (done or error). Nothing follows a terminal
// event.
const (
	// StreamDelta carries an incremental piece of answer text.
	StreamDelta StreamEventType = "delta"

	// StreamDone is the successful terminal event. It carries the final
	// sources, model and usage.
	StreamDone StreamEventType = "done"

	// StreamError is the failing terminal event.
	StreamError StreamEventType = "error"
)

// StreamEvent is the wire contract of one generation turn: a tagged union
// of incremental text and terminal metadata. Each event marshals to a
// self-contained JSON record so the boundary can frame events as NDJSON
// without ambiguity.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// Text is set for delta events.
	Text string `json:"text,omitempty"`

	// Sources, ModelID and Usage are set on the done event.
	Sources []RetrievedSource `json:"-"`
	ModelID string            `json:"model_id,omitempty"`
	Usage   *Usage            `json:"-"`

	// Err is set on the error event.
	Err string `json:"message,omitempty"`
}

// IsTerminal reports whether the event ends the stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == StreamDone || e.Type == StreamError
}

// DeltaEvent builds an incremental text event.
func DeltaEvent(text string) StreamEvent {
	return StreamEvent{Type: StreamDelta, Text: text}
}

// DoneEvent builds the successful terminal event.
func DoneEvent(sources []RetrievedSource, modelID string, usage Usage) StreamEvent {
	return StreamEvent{Type: StreamDone, Sources: sources, ModelID: modelID, Usage: &usage}
}

// ErrorEvent builds the failing terminal event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: StreamError, Err: message}
}

// streamSourceJSON is the flattened wire form of a source citation.
type streamSourceJSON struct {
	DocumentID  string   `json:"document_id"`
	Filename    string   `json:"filename"`
	Heading     string   `json:"heading"`
	SectionPath []string `json:"section_path"`
	Pages       []int    `json:"pages"`
	ContentType string   `json:"content_type"`
	Score       float64  `json:"score"`
}

// streamEventJSON is the wire form of a stream event.
type streamEventJSON struct {
	Type         StreamEventType    `json:"type"`
	Text         string             `json:"text,omitempty"`
	Sources      []streamSourceJSON `json:"sources,omitempty"`
	ModelID      string             `json:"model_id,omitempty"`
	InputTokens  int                `json:"input_tokens,omitempty"`
	OutputTokens int                `json:"output_tokens,omitempty"`
	Message      string             `json:"message,omitempty"`
}

// MarshalJSON renders the event as one self-contained record.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	out := streamEventJSON{
		Type:    e.Type,
		Text:    e.Text,
		ModelID: e.ModelID,
		Message: e.Err,
	}
	if e.Usage != nil {
		out.InputTokens = e.Usage.InputTokens
		out.OutputTokens = e.Usage.OutputTokens
	}
	for _, s := range e.Sources {
		out.Sources = append(out.Sources, streamSourceJSON{
			DocumentID:  s.Chunk.DocumentID,
			Filename:    s.Filename,
			Heading:     s.Chunk.Heading,
			SectionPath: s.Chunk.SectionPath,
			Pages:       s.Chunk.Pages,
			ContentType: string(s.Chunk.ContentType),
			Score:       s.Score,
		})
	}
	return json.Marshal(out)
}
