// Package docling provides a document parser adapter backed by a
// docling-serve instance. The service does PDF layout analysis and OCR;
// this adapter flattens its document tree into reading-order content items.
package docling

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.DocumentParser = (*Parser)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:5001"
	DefaultTimeout = 10 * time.Minute
)

// Config holds configuration for the docling parser.
type Config struct {
	// BaseURL is the docling-serve base URL (default: http://localhost:5001).
	BaseURL string

	// OCR enables OCR for scanned pages.
	OCR bool

	// ExportImages asks the service to inline picture bytes so they can
	// be captioned.
	ExportImages bool

	// Timeout is the request timeout (default: 10m). Large scanned PDFs
	// take a while.
	Timeout time.Duration
}

// Parser converts PDFs via docling-serve.
type Parser struct {
	client       *http.Client
	baseURL      string
	ocr          bool
	exportImages bool
}

// NewParser creates a docling parser adapter.
func NewParser(cfg Config) *Parser {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Parser{
		client:       &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		ocr:          cfg.OCR,
		exportImages: cfg.ExportImages,
	}
}

// convertResponse is the docling-serve conversion response, reduced to the
// fields we consume.
type convertResponse struct {
	Status   string `json:"status"`
	Document struct {
		JSONContent *doclingDocument `json:"json_content"`
	} `json:"document"`
	Errors []struct {
		ErrorMessage string `json:"error_message"`
	} `json:"errors"`
}

// doclingDocument is the subset of the DoclingDocument schema we need:
// flat node arrays plus the body tree that fixes reading order.
type doclingDocument struct {
	Name     string         `json:"name"`
	Texts    []textNode     `json:"texts"`
	Tables   []tableNode    `json:"tables"`
	Pictures []pictureNode  `json:"pictures"`
	Groups   []groupNode    `json:"groups"`
	Body     groupNode      `json:"body"`
	Pages    map[string]any `json:"pages"`
}

type ref struct {
	Ref string `json:"$ref"`
}

type groupNode struct {
	Children []ref `json:"children"`
}

type provenance struct {
	PageNo int `json:"page_no"`
}

type textNode struct {
	Label string       `json:"label"`
	Text  string       `json:"text"`
	Level int          `json:"level"`
	Prov  []provenance `json:"prov"`
}

type tableNode struct {
	Data struct {
		Grid [][]tableCell `json:"grid"`
	} `json:"data"`
	Prov []provenance `json:"prov"`
}

type tableCell struct {
	Text string `json:"text"`
}

type pictureNode struct {
	Image *struct {
		URI string `json:"uri"`
	} `json:"image"`
	Prov []provenance `json:"prov"`
}

// Parse uploads the file for conversion and flattens the result.
func (p *Parser) Parse(ctx context.Context, data []byte, filename string) (*domain.ParsedDocument, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}

	fields := map[string]string{
		"to_formats":        "json",
		"image_export_mode": "placeholder",
		"do_ocr":            strconv.FormatBool(p.ocr),
	}
	if p.exportImages {
		fields["image_export_mode"] = "embedded"
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1alpha/convert/file", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParserUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("docling error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var convResp convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&convResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if convResp.Status != "success" || convResp.Document.JSONContent == nil {
		msg := convResp.Status
		if len(convResp.Errors) > 0 {
			msg = convResp.Errors[0].ErrorMessage
		}
		return nil, fmt.Errorf("docling conversion failed: %s", msg)
	}

	doc := convResp.Document.JSONContent
	parsed := &domain.ParsedDocument{
		Filename:    filename,
		ContentHash: domain.ContentHash(data),
		PageCount:   len(doc.Pages),
	}
	p.walk(doc, doc.Body.Children, parsed)

	if len(parsed.Items) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	return parsed, nil
}

// walk resolves body references in reading order, recursing through groups.
func (p *Parser) walk(doc *doclingDocument, children []ref, parsed *domain.ParsedDocument) {
	for _, child := range children {
		kind, index, ok := splitRef(child.Ref)
		if !ok {
			continue
		}
		switch kind {
		case "texts":
			if index < len(doc.Texts) {
				p.addText(doc.Texts[index], parsed)
			}
		case "tables":
			if index < len(doc.Tables) {
				p.addTable(doc.Tables[index], parsed)
			}
		case "pictures":
			if index < len(doc.Pictures) {
				p.addPicture(doc.Pictures[index], parsed)
			}
		case "groups":
			if index < len(doc.Groups) {
				p.walk(doc, doc.Groups[index].Children, parsed)
			}
		}
	}
}

func (p *Parser) addText(node textNode, parsed *domain.ParsedDocument) {
	text := strings.TrimSpace(node.Text)
	if text == "" {
		return
	}
	switch node.Label {
	case "title":
		if parsed.Title == "" {
			parsed.Title = text
		}
		parsed.Items = append(parsed.Items, domain.ContentItem{
			Kind:  domain.ItemHeading,
			Text:  text,
			Level: 1,
			Pages: pages(node.Prov),
		})
	case "section_header":
		level := node.Level
		if level <= 0 {
			level = 1
		}
		parsed.Items = append(parsed.Items, domain.ContentItem{
			Kind:  domain.ItemHeading,
			Text:  text,
			Level: level,
			Pages: pages(node.Prov),
		})
	case "page_header", "page_footer", "footnote":
		// Boilerplate, not worth indexing.
	default:
		parsed.Items = append(parsed.Items, domain.ContentItem{
			Kind:  domain.ItemParagraph,
			Text:  text,
			Pages: pages(node.Prov),
		})
	}
}

func (p *Parser) addTable(node tableNode, parsed *domain.ParsedDocument) {
	var rows []string
	for _, row := range node.Data.Grid {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.TrimSpace(cell.Text)
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	text := strings.TrimSpace(strings.Join(rows, "\n"))
	if text == "" {
		return
	}
	parsed.Items = append(parsed.Items, domain.ContentItem{
		Kind:  domain.ItemTable,
		Text:  text,
		Pages: pages(node.Prov),
	})
}

func (p *Parser) addPicture(node pictureNode, parsed *domain.ParsedDocument) {
	item := domain.ContentItem{
		Kind:  domain.ItemImage,
		Pages: pages(node.Prov),
	}
	if node.Image != nil {
		item.ImageData = decodeDataURI(node.Image.URI)
	}
	parsed.Items = append(parsed.Items, item)
}

// Ping validates the service is reachable by checking the health endpoint.
func (p *Parser) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("docling: failed to create ping request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("docling: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("docling: API returned status %d", resp.StatusCode)
	}
	return nil
}

// splitRef parses a JSON pointer like "#/texts/12" into its kind and index.
func splitRef(r string) (kind string, index int, ok bool) {
	parts := strings.Split(strings.TrimPrefix(r, "#/"), "/")
	if len(parts) != 2 {
		return "", 0, false
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return parts[0], index, true
}

func pages(prov []provenance) []int {
	var out []int
	seen := make(map[int]bool)
	for _, p := range prov {
		if p.PageNo > 0 && !seen[p.PageNo] {
			seen[p.PageNo] = true
			out = append(out, p.PageNo)
		}
	}
	return out
}

// decodeDataURI extracts raw bytes from a base64 data URI, returning nil
// for anything else.
func decodeDataURI(uri string) []byte {
	idx := strings.Index(uri, ";base64,")
	if !strings.HasPrefix(uri, "data:") || idx < 0 {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(uri[idx+len(";base64,"):])
	if err != nil {
		return nil
	}
	return data
}
