// Package sharepointsearch implements the sharepoint_search tool:
// full-text document search over the site's Search REST API.
package sharepointsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/registry"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/sharepoint"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

// Searcher is the slice of the SharePoint client this tool needs.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, extensions []string) ([]sharepoint.SearchResult, error)
}

// SearchTool finds documents on the configured site.
type SearchTool struct {
	mu       sync.Mutex
	searcher Searcher
	cfg      *config.Config
}

func init() {
	registry.Register(&SearchTool{})
}

const defaultDescription = "Search documents on the configured SharePoint site by keyword. Returns title, server path, size, modification time and a hit-highlighted summary per result; use the returned path with sharepoint_download or sharepoint_excel."

// Definition returns the tool's definition for MCP registration
func (t *SearchTool) Definition() mcp.Tool {
	description := defaultDescription
	if cfg := t.config(); cfg.SearchToolDescription != "" {
		description = cfg.SearchToolDescription
	}
	return mcp.NewTool(
		"sharepoint_search",
		mcp.WithDescription(description),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Full-text search keywords"),
		),
		mcp.WithString("file_extension",
			mcp.Description("Restrict results to one extension (e.g. 'xlsx'); must be on the configured allow-list"),
		),
		mcp.WithString("format",
			mcp.Description("Response shape: 'detailed' (default) or 'compact' (title, path and extension only)"),
			mcp.Enum("detailed", "compact"),
		),
		mcp.WithNumber("max_results",
			mcp.Description(fmt.Sprintf("Maximum results to return (default %d, ceiling %d)", config.DefaultMaxSearchResults, config.MaxSearchResultsCeiling)),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

type compactResult struct {
	Title         string `json:"title"`
	Path          string `json:"path"`
	FileExtension string `json:"file_extension,omitempty"`
}

// Execute runs the search and shapes the response.
func (t *SearchTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]interface{}) (*mcp.CallToolResult, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	cfg := t.config()

	extensions := cfg.AllowedExtensions
	if ext, _ := args["file_extension"].(string); ext != "" {
		if !cfg.ExtensionAllowed(ext) {
			return nil, fmt.Errorf("file extension '%s' is not on the allow-list (%v)", ext, cfg.AllowedExtensions)
		}
		extensions = []string{ext}
	}

	maxResults := cfg.MaxSearchResults
	if n, ok := args["max_results"].(float64); ok && int(n) > 0 {
		maxResults = min(int(n), config.MaxSearchResultsCeiling)
	}

	searcher, err := t.searchClient(logger)
	if err != nil {
		return nil, err
	}
	results, err := searcher.Search(ctx, query, maxResults, extensions)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"query": query, "results": len(results)}).Info("SharePoint search completed")

	var payload any
	if format, _ := args["format"].(string); format == "compact" {
		compact := make([]compactResult, 0, len(results))
		for _, r := range results {
			compact = append(compact, compactResult{Title: r.Title, Path: r.Path, FileExtension: r.FileExtension})
		}
		payload = map[string]any{"query": query, "result_count": len(compact), "results": compact}
	} else {
		payload = map[string]any{"query": query, "result_count": len(results), "results": results}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *SearchTool) searchClient(logger *logrus.Logger) (Searcher, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.searcher != nil {
		return t.searcher, nil
	}
	client, err := sharepoint.DefaultClient(logger)
	if err != nil {
		return nil, err
	}
	t.searcher = client
	return t.searcher, nil
}

func (t *SearchTool) config() *config.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg == nil {
		t.cfg = config.Load()
	}
	return t.cfg
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *SearchTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "Find spreadsheets mentioning quarterly revenue",
				Arguments:      map[string]interface{}{"query": "quarterly revenue", "file_extension": "xlsx"},
				ExpectedResult: "Matching .xlsx documents with paths usable by sharepoint_excel",
			},
			{
				Description:    "Compact listing for a broad query",
				Arguments:      map[string]interface{}{"query": "onboarding", "format": "compact", "max_results": 10},
				ExpectedResult: "Up to 10 results with title, path and extension only",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "[SEARCH_QUERY] the search query was rejected as malformed",
				Solution: "Remove special operators and unbalanced quotes; plain keywords work best",
			},
			{
				Problem:  "No results although the document exists",
				Solution: "The search index lags uploads by a few minutes; also check the extension allow-list",
			},
		},
		WhenToUse:    "Locating documents by content or title before downloading or reading them",
		WhenNotToUse: "Searching inside one spreadsheet's cells (use sharepoint_excel with query)",
	}
}
