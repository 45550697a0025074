// Package excel implements the sharepoint_excel tool: spreadsheet
// range reads and in-file search against workbooks fetched from
// SharePoint, with sheet-name resolution, range normalization and
// frozen-header handling.
package excel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/registry"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/sharepoint"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/spreadsheet"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

// FileFetcher downloads raw file bytes by server-relative path. The
// SharePoint client satisfies it; tests inject fakes.
type FileFetcher interface {
	FetchFile(ctx context.Context, path string) ([]byte, error)
}

// ExcelTool reads and searches SharePoint-hosted spreadsheets.
type ExcelTool struct {
	mu      sync.Mutex
	fetcher FileFetcher
	cfg     *config.Config
}

func init() {
	registry.Register(&ExcelTool{})
}

const defaultDescription = `Read cell ranges or search for values inside a SharePoint-hosted Excel (.xlsx) file.

Read mode (no query): returns the requested range per sheet with header rows split out, merge info, freeze-pane metadata and the effective range actually read. Omit cell_range for the whole sheet, or pass a cell ("C5"), a column ("J"), a row ("3"), or a rectangle ("A1:D10").
Search mode (query set): scans cells for comma-separated OR terms (case-insensitive substring) and returns match coordinates; set include_surrounding_cells to inline each match's full row.

Use metadata_only=true first on unfamiliar or large files to inspect structure cheaply.`

// Definition returns the tool's definition for MCP registration
func (t *ExcelTool) Definition() mcp.Tool {
	description := defaultDescription
	if cfg := t.config(); cfg.ExcelToolDescription != "" {
		description = cfg.ExcelToolDescription
	}
	return mcp.NewTool(
		"sharepoint_excel",
		mcp.WithDescription(description),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Server-relative path of the spreadsheet (e.g. '/sites/docs/Shared Documents/report.xlsx')"),
		),
		mcp.WithString("query",
			mcp.Description("Search mode: comma-separated OR terms matched case-insensitively against cell values"),
		),
		mcp.WithString("sheet",
			mcp.Description("Target sheet name; fuzzy-resolved when the exact name is not found"),
		),
		mcp.WithString("cell_range",
			mcp.Description("Range expression: 'A1:D10', single cell 'C5', column 'J', or row '3'. Omit for full dimensions"),
		),
		mcp.WithBoolean("include_header",
			mcp.Description("Split frozen header rows from data rows (default true)"),
		),
		mcp.WithBoolean("metadata_only",
			mcp.Description("Return structure (dimensions, headers, merges, panes) without data rows (default false)"),
		),
		mcp.WithBoolean("include_frozen_rows",
			mcp.Description("Auto-include the frozen header rectangle in the effective range (default true)"),
		),
		mcp.WithBoolean("expand_axis_range",
			mcp.Description("Expand column-only/row-only ranges across the sheet's actual populated extent (default false)"),
		),
		mcp.WithBoolean("include_cell_styles",
			mcp.Description("Add fill colour, column width and row height per cell (default false)"),
		),
		mcp.WithBoolean("include_surrounding_cells",
			mcp.Description("Search mode: inline the full row containing each match (default false)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// readResponse is the read-mode payload.
type readResponse struct {
	FilePath        string                       `json:"file_path"`
	Sheets          []*spreadsheet.SheetResult   `json:"sheets"`
	SheetResolution *spreadsheet.SheetResolution `json:"sheet_resolution,omitempty"`
	AvailableSheets []string                     `json:"available_sheets,omitempty"`
}

// searchResponse is the search-mode payload.
type searchResponse struct {
	FilePath        string                       `json:"file_path"`
	Mode            string                       `json:"mode"`
	Query           string                       `json:"query"`
	MatchCount      int                          `json:"match_count"`
	Matches         []spreadsheet.Match          `json:"matches"`
	Truncated       bool                         `json:"truncated,omitempty"`
	SheetResolution *spreadsheet.SheetResolution `json:"sheet_resolution,omitempty"`
}

// Execute dispatches to search mode when a query is present, range-read
// mode otherwise.
func (t *ExcelTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]interface{}) (*mcp.CallToolResult, error) {
	filePath := stringArg(args, "file_path")
	if filePath == "" {
		return nil, fmt.Errorf("file_path is required")
	}

	fetcher, err := t.fileFetcher(logger)
	if err != nil {
		return nil, err
	}
	data, err := fetcher.FetchFile(ctx, filePath)
	if err != nil {
		return nil, err
	}

	wb, err := spreadsheet.NewWorkbookCache(cache).Open(filePath, data)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"file_path":   filePath,
		"fingerprint": wb.Fingerprint,
		"sheets":      len(wb.Sheets),
	}).Debug("Workbook ready")

	limits := t.config().Limits
	if query := stringArg(args, "query"); query != "" {
		return t.executeSearch(wb, filePath, query, args, limits)
	}
	return t.executeRead(wb, filePath, args, limits)
}

func (t *ExcelTool) executeSearch(wb *spreadsheet.Workbook, filePath, query string, args map[string]interface{}, limits spreadsheet.Limits) (*mcp.CallToolResult, error) {
	opts := spreadsheet.SearchOptions{
		IncludeSurroundingCells: boolArg(args, "include_surrounding_cells", false),
		Limits:                  limits,
	}

	response := &searchResponse{FilePath: filePath, Mode: "search", Query: query}
	if requested := stringArg(args, "sheet"); requested != "" {
		resolution := spreadsheet.ResolveSheet(requested, wb.SheetNames())
		response.SheetResolution = &resolution
		if resolution.Matched() {
			opts.Sheet = resolution.Resolved
		}
		// Unresolved sheet: scan everything rather than failing.
	}

	result := spreadsheet.Search(wb, query, opts)
	response.MatchCount = result.MatchCount
	response.Matches = result.Matches
	response.Truncated = result.Truncated
	return jsonResult(response)
}

func (t *ExcelTool) executeRead(wb *spreadsheet.Workbook, filePath string, args map[string]interface{}, limits spreadsheet.Limits) (*mcp.CallToolResult, error) {
	rangeStr := stringArg(args, "cell_range")
	expr, err := spreadsheet.ParseRangeExpression(rangeStr)
	if err != nil {
		return nil, err
	}

	requestedSheet := stringArg(args, "sheet")
	if requestedSheet == "" {
		requestedSheet = expr.Sheet // "Sheet1!A1:B2" qualifier
	}

	response := &readResponse{FilePath: filePath, Sheets: []*spreadsheet.SheetResult{}}
	selected := wb.Sheets
	if requestedSheet != "" {
		resolution := spreadsheet.ResolveSheet(requestedSheet, wb.SheetNames())
		response.SheetResolution = &resolution
		switch {
		case resolution.Matched():
			sheet, _ := wb.Sheet(resolution.Resolved)
			selected = []*spreadsheet.Sheet{sheet}
		case expr.Kind != spreadsheet.RangeEmpty:
			// A range without a resolvable sheet is recoverable: scan
			// the range across every sheet.
			response.AvailableSheets = wb.SheetNames()
		default:
			// No range either: return the candidates instead of an
			// error so the caller can retry with a corrected name.
			response.AvailableSheets = wb.SheetNames()
			return jsonResult(response)
		}
	}

	extractOpts := spreadsheet.ExtractOptions{
		IncludeHeader: boolArg(args, "include_header", true),
		MetadataOnly:  boolArg(args, "metadata_only", false),
		IncludeStyles: boolArg(args, "include_cell_styles", false),
	}
	normOpts := spreadsheet.NormalizeOptions{
		IncludeFrozenRows: boolArg(args, "include_frozen_rows", true),
		ExpandAxisRange:   boolArg(args, "expand_axis_range", false),
		MetadataOnly:      extractOpts.MetadataOnly,
		Limits:            limits,
	}

	for _, sheet := range selected {
		effective, headerIncluded, err := spreadsheet.NormalizeRange(expr, sheet, normOpts)
		if err != nil {
			return nil, err
		}
		sheetResult := spreadsheet.ExtractSheet(sheet, rangeStr, effective, extractOpts)
		sheetResult.FrozenHeaderIncluded = headerIncluded
		response.Sheets = append(response.Sheets, sheetResult)
	}
	return jsonResult(response)
}

// fileFetcher returns the injected fetcher or lazily constructs the
// SharePoint client from configuration on first use.
func (t *ExcelTool) fileFetcher(logger *logrus.Logger) (FileFetcher, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fetcher != nil {
		return t.fetcher, nil
	}

	client, err := sharepoint.DefaultClient(logger)
	if err != nil {
		return nil, err
	}
	t.fetcher = client
	return t.fetcher, nil
}

func (t *ExcelTool) config() *config.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.configLocked()
}

func (t *ExcelTool) configLocked() *config.Config {
	if t.cfg == nil {
		t.cfg = config.Load()
	}
	return t.cfg
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]interface{}, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *ExcelTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Inspect an unfamiliar file's structure before reading data",
				Arguments: map[string]interface{}{
					"file_path":     "/sites/docs/Shared Documents/budget.xlsx",
					"metadata_only": true,
				},
				ExpectedResult: "Sheet names, dimensions, header rows, merged ranges and freeze panes without any data rows",
			},
			{
				Description: "Read a bounded range from a named sheet",
				Arguments: map[string]interface{}{
					"file_path":  "/sites/docs/Shared Documents/budget.xlsx",
					"sheet":      "FY2024",
					"cell_range": "A1:F20",
				},
				ExpectedResult: "header_rows/data_rows for A1:F20 with merge info per cell",
			},
			{
				Description: "Find where totals live, with row context inlined",
				Arguments: map[string]interface{}{
					"file_path":                 "/sites/docs/Shared Documents/budget.xlsx",
					"query":                     "Total,Sum",
					"include_surrounding_cells": true,
				},
				ExpectedResult: "Matches with sheet, coordinate, value and the full containing row per match",
			},
		},
		CommonPatterns: []string{
			"metadata_only first, then a narrow cell_range read",
			"search for a label, then read the matched cell's column with cell_range='<coordinate>'",
			"single-cell ranges expand to the column context: 'C5' reads C1:C5",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "RangeTooLarge error on a wide or unbounded read",
				Solution: "Pass a narrower cell_range, or raise EXCEL_MAX_RANGE_CELLS/ROWS/COLS if the default ceilings are too tight for your files",
			},
			{
				Problem:  "sheet_resolution reports not_found or ambiguous",
				Solution: "Use the exact name from available_sheets/candidates; matching is case-insensitive but must be unique",
			},
			{
				Problem:  "Column read ('J') returns fewer rows than the sheet holds",
				Solution: "Set expand_axis_range=true to scan the actual populated extent instead of the declared dimensions",
			},
		},
		ParameterDetails: map[string]string{
			"cell_range": "Accepts 'A1:D10', 'C5' (expands to C1:C5), 'J' or 'J:K' (columns), '3' or '3:7' (rows), and 'Sheet1!A1:D10'",
			"query":      "Comma-separated OR terms; presence of query switches the tool to search mode",
		},
		WhenToUse:    "Reading or locating values inside spreadsheets stored in SharePoint without downloading them",
		WhenNotToUse: "Editing spreadsheets or evaluating formulas; downloads of non-Excel files (use sharepoint_download)",
	}
}
