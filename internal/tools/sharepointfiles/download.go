// Package sharepointfiles implements the sharepoint_download and
// sharepoint_upload tools for moving raw document bytes in and out of
// the site's document libraries.
package sharepointfiles

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/registry"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/sharepoint"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

// Downloader is the slice of the SharePoint client the download tool needs.
type Downloader interface {
	FetchFile(ctx context.Context, serverRelativePath string) ([]byte, error)
}

// DownloadTool fetches a document's bytes by server-relative path.
type DownloadTool struct {
	mu         sync.Mutex
	downloader Downloader
	cfg        *config.Config
}

func init() {
	registry.Register(&DownloadTool{})
}

const defaultDownloadDescription = "Download a document from the configured SharePoint site by its server-relative path (as returned by sharepoint_search). Returns the file content base64-encoded together with its name and size."

// Definition returns the tool's definition for MCP registration
func (t *DownloadTool) Definition() mcp.Tool {
	description := defaultDownloadDescription
	if cfg := t.config(); cfg.DownloadToolDescription != "" {
		description = cfg.DownloadToolDescription
	}
	return mcp.NewTool(
		"sharepoint_download",
		mcp.WithDescription(description),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Server-relative path of the file (e.g. '/sites/docs/Shared Documents/report.xlsx')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

type downloadResponse struct {
	FilePath      string `json:"file_path"`
	FileName      string `json:"file_name"`
	Size          int    `json:"size"`
	ContentBase64 string `json:"content_base64"`
}

// Execute downloads the file and returns its base64-encoded content.
func (t *DownloadTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]interface{}) (*mcp.CallToolResult, error) {
	filePath, _ := args["file_path"].(string)
	if filePath == "" {
		return nil, fmt.Errorf("file_path is required")
	}
	if ext := path.Ext(filePath); ext != "" && !t.config().ExtensionAllowed(ext) {
		return nil, fmt.Errorf("file extension '%s' is not on the allow-list", ext)
	}

	downloader, err := t.client(logger)
	if err != nil {
		return nil, err
	}
	data, err := downloader.FetchFile(ctx, filePath)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": filePath, "bytes": len(data)}).Info("Downloaded SharePoint file")

	response := downloadResponse{
		FilePath:      filePath,
		FileName:      path.Base(filePath),
		Size:          len(data),
		ContentBase64: base64.StdEncoding.EncodeToString(data),
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (t *DownloadTool) client(logger *logrus.Logger) (Downloader, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.downloader != nil {
		return t.downloader, nil
	}
	client, err := sharepoint.DefaultClient(logger)
	if err != nil {
		return nil, err
	}
	t.downloader = client
	return t.downloader, nil
}

func (t *DownloadTool) config() *config.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg == nil {
		t.cfg = config.Load()
	}
	return t.cfg
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *DownloadTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "Download a spreadsheet found via sharepoint_search",
				Arguments:      map[string]interface{}{"file_path": "/sites/docs/Shared Documents/q1.xlsx"},
				ExpectedResult: "JSON with file_name, size and base64-encoded content",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "[FILE_NOT_FOUND] the file does not exist at the given path",
				Solution: "Paths are server-relative and case-sensitive; copy the path from a sharepoint_search result",
			},
			{
				Problem:  "The extension is rejected by the allow-list",
				Solution: "Set SHAREPOINT_ALLOWED_EXTENSIONS to include the extension you need",
			},
		},
		WhenToUse:    "Retrieving a document's raw content for local processing",
		WhenNotToUse: "Reading spreadsheet cells (sharepoint_excel returns structured data without the base64 round-trip)",
	}
}
