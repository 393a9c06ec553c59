// Package mcp provides MCP tool handlers for the vault server.
// These handlers parse tool arguments and delegate to the store and the
// indexing orchestrator.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yonie/localpdfvault/internal/domain"
	"github.com/yonie/localpdfvault/internal/indexer"
	"github.com/yonie/localpdfvault/internal/store"
)

// SearchArgs defines the arguments for the vault_search tool.
type SearchArgs struct {
	Query string `json:"query" jsonschema_description:"Free-text search query (e.g. 'invoice acme 2024')"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results (default 50)"`
}

// ListArgs defines the arguments for the vault_list tool.
type ListArgs struct {
	Limit int `json:"limit,omitempty" jsonschema_description:"Maximum number of records (default 1000)"`
}

// IndexArgs defines the arguments for the vault_index tool.
type IndexArgs struct {
	Path  string `json:"path" jsonschema_description:"Directory to scan recursively for PDF files"`
	Force bool   `json:"force,omitempty" jsonschema_description:"Re-extract documents that are already indexed (default: false)"`
}

// EmptyArgs is used by tools that take no arguments.
type EmptyArgs struct{}

// Handlers wraps the store and orchestrator behind MCP tools.
type Handlers struct {
	store  *store.Store
	orch   *indexer.Orchestrator
	logger *slog.Logger
}

// NewHandlers creates handlers with the given collaborators.
func NewHandlers(st *store.Store, orch *indexer.Orchestrator, logger *slog.Logger) *Handlers {
	return &Handlers{store: st, orch: orch, logger: logger}
}

// Register adds every vault tool to the server.
func (h *Handlers) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "vault_search",
		Description: "Search the indexed PDF collection. Returns relevance-ranked records with per-term match annotations.",
	}, h.Search)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vault_list",
		Description: "List indexed documents, most recently updated first.",
	}, h.List)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vault_stats",
		Description: "Collection statistics: total documents, counts per document type, extraction errors.",
	}, h.Stats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vault_index",
		Description: "Start a background indexing run over a directory of PDF files. Poll vault_index_status for progress.",
	}, h.Index)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vault_index_status",
		Description: "Progress of the current or most recent indexing run.",
	}, h.IndexStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vault_index_stop",
		Description: "Request cooperative cancellation of the active indexing run.",
	}, h.IndexStop)
}

// Search handles the vault_search tool call.
func (h *Handlers) Search(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		h.logger.Error("vault_search: query is required")
		return nil, nil, fmt.Errorf("query is required")
	}

	results, err := h.store.Search(query, args.Limit)
	if err != nil {
		h.logger.Error("vault_search: failed", "query", query, "error", err)
		return nil, nil, err
	}

	h.logger.Info("vault_search: success", "query", query, "results", len(results))

	if len(results) == 0 {
		return textResult("No documents matched the query."), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d result(s) for %q:\n\n", len(results), query)
	for i, res := range results {
		sb.WriteString(formatResult(i+1, res))
	}
	return textResult(sb.String()), nil, nil
}

// List handles the vault_list tool call.
func (h *Handlers) List(ctx context.Context, req *mcp.CallToolRequest, args ListArgs) (*mcp.CallToolResult, any, error) {
	records, err := h.store.List(args.Limit)
	if err != nil {
		h.logger.Error("vault_list: failed", "error", err)
		return nil, nil, err
	}

	if len(records) == 0 {
		return textResult("The vault is empty. Use vault_index to index a directory."), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d document(s):\n\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&sb, "- %s | %s | %s | updated %s\n",
			rec.Fingerprint[:min(12, len(rec.Fingerprint))],
			orUnknown(rec.Subject),
			orUnknown(rec.DocumentType),
			rec.LastUpdated.Format(time.RFC3339))
	}
	return textResult(sb.String()), nil, nil
}

// Stats handles the vault_stats tool call.
func (h *Handlers) Stats(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, any, error) {
	stats, err := h.store.Stats()
	if err != nil {
		h.logger.Error("vault_stats: failed", "error", err)
		return nil, nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total documents: %d\nExtraction errors: %d\n", stats.Total, stats.Errors)
	if len(stats.ByType) > 0 {
		sb.WriteString("By type:\n")
		for typ, n := range stats.ByType {
			fmt.Fprintf(&sb, "  %s: %d\n", typ, n)
		}
	}
	return textResult(sb.String()), nil, nil
}

// Index handles the vault_index tool call.
func (h *Handlers) Index(ctx context.Context, req *mcp.CallToolRequest, args IndexArgs) (*mcp.CallToolResult, any, error) {
	path := strings.TrimSpace(args.Path)
	if path == "" {
		h.logger.Error("vault_index: path is required")
		return nil, nil, fmt.Errorf("path is required")
	}

	if err := h.orch.Start(path, args.Force); err != nil {
		h.logger.Error("vault_index: rejected", "path", path, "error", err)
		return nil, nil, err
	}

	h.logger.Info("vault_index: run started", "path", path, "force", args.Force)
	return textResult("Indexing started. Poll vault_index_status for progress."), nil, nil
}

// IndexStatus handles the vault_index_status tool call.
func (h *Handlers) IndexStatus(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, any, error) {
	status, err := h.store.Status()
	if err != nil {
		h.logger.Error("vault_index_status: failed", "error", err)
		return nil, nil, err
	}
	return textResult(formatStatus(status)), nil, nil
}

// IndexStop handles the vault_index_stop tool call.
func (h *Handlers) IndexStop(ctx context.Context, req *mcp.CallToolRequest, args EmptyArgs) (*mcp.CallToolResult, any, error) {
	if err := h.orch.Stop(); err != nil {
		h.logger.Error("vault_index_stop: failed", "error", err)
		return nil, nil, err
	}
	return textResult("Stop requested. The run halts at the next file boundary."), nil, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Formatting helpers
// ─────────────────────────────────────────────────────────────────────────────

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func formatResult(rank int, res domain.SearchResult) string {
	var sb strings.Builder
	rec := res.Record

	fmt.Fprintf(&sb, "%d. %s (score %d)\n", rank, orUnknown(rec.Subject), res.Score)
	fmt.Fprintf(&sb, "   file: %s\n", rec.SourcePath)
	if rec.DocumentType != "" {
		fmt.Fprintf(&sb, "   type: %s\n", rec.DocumentType)
	}
	if rec.Date != "" {
		fmt.Fprintf(&sb, "   date: %s\n", rec.Date)
	}
	if len(res.Matches) > 0 {
		parts := make([]string, 0, len(res.Matches))
		for _, m := range res.Matches {
			parts = append(parts, fmt.Sprintf("%s (%s)", m.Term, strings.Join(m.Fields, ", ")))
		}
		fmt.Fprintf(&sb, "   matched: %s\n", strings.Join(parts, "; "))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func formatStatus(st domain.IndexingStatus) string {
	if !st.IsRunning {
		return fmt.Sprintf("No run active. Last run: %d processed, %d skipped, %d errors (directory: %s)",
			st.Processed, st.Skipped, st.Errors, orUnknown(st.LastDirectory))
	}
	return fmt.Sprintf("Running (%s): %d/%d processed, %d skipped, %d errors, current: %s",
		st.RunID, st.Processed, st.Total, st.Skipped, st.Errors, st.CurrentFile)
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
