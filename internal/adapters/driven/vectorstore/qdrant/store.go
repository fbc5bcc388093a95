// Package qdrant provides a vector store backed by a Qdrant server over
// its REST API. Point IDs are deterministic UUIDs derived from chunk IDs
// so re-upserting the same chunk overwrites the previous point.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const defaultCollection = "docquery_chunks"

// Store is a Qdrant-backed vector store.
type Store struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

// Option configures a Store.
type Option func(*Store)

// WithAPIKey sets the api-key header on every request.
func WithAPIKey(key string) Option {
	return func(s *Store) { s.apiKey = key }
}

// WithCollection overrides the default collection name.
func WithCollection(name string) Option {
	return func(s *Store) { s.collection = name }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) { s.client = client }
}

// NewStore creates a Qdrant client and ensures the collection exists with
// cosine distance and the given vector size.
func NewStore(baseURL string, dimensions int, opts ...Option) (*Store, error) {
	s := &Store{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		collection: defaultCollection,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 409 when the collection already exists, which is fine.
	if err := s.doJSON(context.Background(), http.MethodPut,
		fmt.Sprintf("/collections/%s", s.collection), body, nil, http.StatusConflict); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	return s, nil
}

// Close is a no-op; the REST client holds no persistent connection.
func (s *Store) Close() error {
	return nil
}

// Upsert writes chunks as points with wait=true so a subsequent search
// sees them.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		points[i] = map[string]any{
			"id":     pointID(chunk.ID),
			"vector": chunk.Embedding,
			"payload": map[string]any{
				"chunk_id":     chunk.ID,
				"document_id":  chunk.DocumentID,
				"content_type": string(chunk.ContentType),
				"content":      chunk.Text,
				"heading":      chunk.Heading,
				"section_path": chunk.SectionPath,
				"pages":        chunk.Pages,
				"position":     chunk.Index,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", s.collection), body, nil)
}

// Search queries the collection, restricting to the scoped document IDs
// when scope is non-nil.
func (s *Store) Search(ctx context.Context, query []float32, scope []string, k int) ([]driven.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if scope != nil && len(scope) == 0 {
		return []driven.SearchHit{}, nil
	}

	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	if scope != nil {
		req["filter"] = documentFilter(scope)
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", s.collection), req, &resp); err != nil {
		return nil, err
	}

	hits := make([]driven.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		score := r.Score
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		hits = append(hits, driven.SearchHit{
			Chunk: chunkFromPayload(r.Payload),
			Score: score,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})
	return hits, nil
}

// DeleteByDocument removes every point whose payload matches the document.
// Qdrant's delete-by-filter does not report a count, so we count first.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	n, err := s.countFiltered(ctx, documentFilter([]string{documentID}))
	if err != nil {
		return 0, err
	}
	body := map[string]any{"filter": documentFilter([]string{documentID})}
	if err := s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection), body, nil); err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the total number of stored points.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.countFiltered(ctx, nil)
}

// DocumentStats aggregates chunk counts per document by scrolling payloads.
func (s *Store) DocumentStats(ctx context.Context) (map[string]domain.ChunkCounts, error) {
	stats := make(map[string]domain.ChunkCounts)
	var offset any
	for {
		req := map[string]any{
			"limit":        256,
			"with_payload": []string{"document_id", "content_type"},
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.doJSON(ctx, http.MethodPost,
			fmt.Sprintf("/collections/%s/points/scroll", s.collection), req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			docID, _ := p.Payload["document_id"].(string)
			contentType, _ := p.Payload["content_type"].(string)
			counts := stats[docID]
			switch domain.ContentType(contentType) {
			case domain.ContentText:
				counts.Text++
			case domain.ContentTable:
				counts.Table++
			case domain.ContentImage:
				counts.Image++
			}
			stats[docID] = counts
		}
		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	return stats, nil
}

func (s *Store) countFiltered(ctx context.Context, filter map[string]any) (int, error) {
	req := map[string]any{"exact": true}
	if filter != nil {
		req["filter"] = filter
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/count", s.collection), req, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Store) doJSON(ctx context.Context, method, path string, body, out any, okStatuses ...int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && !statusAllowed(resp.StatusCode, okStatuses) {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func statusAllowed(code int, allowed []int) bool {
	for _, a := range allowed {
		if code == a {
			return true
		}
	}
	return false
}

// documentFilter builds a match-any filter over payload document IDs.
func documentFilter(documentIDs []string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   "document_id",
				"match": map[string]any{"any": documentIDs},
			},
		},
	}
}

// pointID maps a chunk ID onto a stable UUID, which Qdrant requires for
// point identifiers.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func chunkFromPayload(payload map[string]any) domain.Chunk {
	var chunk domain.Chunk
	if v, ok := payload["chunk_id"].(string); ok {
		chunk.ID = v
	}
	if v, ok := payload["document_id"].(string); ok {
		chunk.DocumentID = v
	}
	if v, ok := payload["content_type"].(string); ok {
		chunk.ContentType = domain.ContentType(v)
	}
	if v, ok := payload["content"].(string); ok {
		chunk.Text = v
	}
	if v, ok := payload["heading"].(string); ok {
		chunk.Heading = v
	}
	if v, ok := payload["section_path"].([]any); ok {
		for _, part := range v {
			if s, ok := part.(string); ok {
				chunk.SectionPath = append(chunk.SectionPath, s)
			}
		}
	}
	if v, ok := payload["pages"].([]any); ok {
		for _, page := range v {
			if f, ok := page.(float64); ok {
				chunk.Pages = append(chunk.Pages, int(f))
			}
		}
	}
	if v, ok := payload["position"].(float64); ok {
		chunk.Index = int(v)
	}
	return chunk
}
