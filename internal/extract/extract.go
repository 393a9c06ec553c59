// Package extract derives structured metadata from PDF files using a
// vision-capable Ollama model. Pages are rendered to images with MuPDF
// (go-fitz) and submitted with a fixed instructional prompt; the model's
// JSON answer is normalized into domain.MetadataFields at this boundary.
//
// There is deliberately no fallback: if the model call or the JSON parse
// fails, the caller gets an error and nothing else. Partial metadata was
// judged worse than "not yet indexed" - an unindexed file is retried on
// the next pass for free.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/ollama/ollama/api"

	"github.com/yonie/localpdfvault/internal/domain"
)

// renderDPI is the resolution pages are rasterized at. 180 DPI (2.5x the
// PDF's 72 DPI baseline) is enough for the model to read body text.
const renderDPI = 180

// DefaultMaxPagesPerEnd limits large documents to their first and last N
// pages. 0 means "render all pages".
const DefaultMaxPagesPerEnd = 3

// DefaultTimeout bounds one extraction call. Vision inference over
// multiple page images is slow, so this is generous.
const DefaultTimeout = 2 * time.Minute

// ErrNoJSON is returned when the model's response contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in model response")

// Config holds the connection and page-selection settings.
type Config struct {
	// Host is the Ollama base URL, e.g. "http://localhost:11434".
	Host string

	// Model is the vision model name.
	Model string

	// MaxPagesPerEnd selects the first and last N pages of large
	// documents; 0 renders every page.
	MaxPagesPerEnd int

	// Timeout bounds a single generate call.
	Timeout time.Duration
}

// OllamaExtractor is the production extractor backed by a remote Ollama
// server.
type OllamaExtractor struct {
	client         *api.Client
	host           string
	model          string
	maxPagesPerEnd int
	logger         *slog.Logger
}

// NewOllamaExtractor creates an extractor for the given server and model.
func NewOllamaExtractor(cfg Config, logger *slog.Logger) (*OllamaExtractor, error) {
	u, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OllamaExtractor{
		client:         api.NewClient(u, &http.Client{Timeout: timeout}),
		host:           cfg.Host,
		model:          cfg.Model,
		maxPagesPerEnd: cfg.MaxPagesPerEnd,
		logger:         logger,
	}, nil
}

// Host returns the configured Ollama base URL.
func (e *OllamaExtractor) Host() string { return e.host }

// Model returns the configured model name.
func (e *OllamaExtractor) Model() string { return e.model }

// Ping verifies the Ollama server is reachable.
func (e *OllamaExtractor) Ping(ctx context.Context) error {
	if _, err := e.client.List(ctx); err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", e.host, err)
	}
	return nil
}

// Models returns the names of the models available on the server.
func (e *OllamaExtractor) Models(ctx context.Context) ([]string, error) {
	resp, err := e.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Extract renders the file's pages and asks the vision model for
// metadata. It returns fully-populated fields or an error - never both.
func (e *OllamaExtractor) Extract(ctx context.Context, path string) (domain.MetadataFields, error) {
	var fields domain.MetadataFields

	images, total, err := renderPages(path, e.maxPagesPerEnd)
	if err != nil {
		return fields, fmt.Errorf("render pages: %w", err)
	}

	e.logger.Debug("submitting pages for vision analysis",
		"path", path, "pages", len(images), "total_pages", total)

	stream := false
	req := &api.GenerateRequest{
		Model:  e.model,
		Prompt: buildPrompt(filepath.Base(path)),
		Stream: &stream,
		Images: images,
		Options: map[string]any{
			"temperature": 0.1,
			"top_p":       0.9,
			"num_predict": 1000,
		},
	}

	var raw strings.Builder
	err = e.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		raw.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return fields, fmt.Errorf("ollama generate: %w", err)
	}

	fields, err = parseMetadata(raw.String())
	if err != nil {
		return domain.MetadataFields{}, err
	}
	return fields, nil
}

// renderPages rasterizes the selected pages to PNG. It returns the image
// data and the document's total page count.
func renderPages(path string, maxPagesPerEnd int) ([]api.ImageData, int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return nil, 0, errors.New("pdf has no pages")
	}

	pages := selectPages(total, maxPagesPerEnd)
	images := make([]api.ImageData, 0, len(pages))
	for _, p := range pages {
		png, err := doc.ImagePNG(p, renderDPI)
		if err != nil {
			return nil, total, fmt.Errorf("render page %d: %w", p, err)
		}
		images = append(images, api.ImageData(png))
	}
	return images, total, nil
}

// selectPages picks which 0-based pages to render: all of them for small
// documents (or when perEnd is 0), otherwise the first and last perEnd.
func selectPages(total, perEnd int) []int {
	if perEnd <= 0 || total <= perEnd*2 {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i
		}
		return pages
	}

	pages := make([]int, 0, perEnd*2)
	for i := 0; i < perEnd; i++ {
		pages = append(pages, i)
	}
	for i := total - perEnd; i < total; i++ {
		pages = append(pages, i)
	}
	return pages
}

// buildPrompt returns the fixed instructional prompt, embedding the
// filename and the field schema the model must return.
func buildPrompt(filename string) string {
	return fmt.Sprintf(`Analyze this PDF document and extract metadata in JSON format.

Document: %s

Extract and return only a JSON object with these fields:
- subject: "document title or main topic"
- summary: "brief 2-3 sentence summary of the content"
- date: "document date in YYYY-MM-DD format if visible, otherwise empty string"
- sender: "sender/from information (person, company, or organization)"
- recipient: "recipient/to information (person, company, or organization)"
- document_type: "type of document (invoice, contract, letter, report, deed, legal document, etc.)"
- tags: ["relevant", "categorization", "keywords", "for", "this", "document"]

Look for dates, names, addresses, official seals, document types, and any other identifying information.
Use your vision capabilities to read and understand the document content.
Suggest helpful tags that would categorize this document for easy searching and organization.

Respond with only valid JSON, no additional text.`, filename)
}

// parseMetadata pulls the first JSON object out of the model's response
// text and normalizes it. Models occasionally wrap the JSON in prose, so
// everything from the first '{' to the last '}' is taken as the object.
func parseMetadata(response string) (domain.MetadataFields, error) {
	var fields domain.MetadataFields

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return fields, ErrNoJSON
	}

	if err := json.Unmarshal([]byte(response[start:end+1]), &fields); err != nil {
		return domain.MetadataFields{}, fmt.Errorf("parse model response: %w", err)
	}

	// Missing fields already decoded to zero values; tags must never be nil.
	if fields.Tags == nil {
		fields.Tags = []string{}
	}
	return fields, nil
}
