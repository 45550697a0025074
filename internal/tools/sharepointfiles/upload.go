package sharepointfiles

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/registry"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/sharepoint"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

// Uploader is the slice of the SharePoint client the upload tool needs.
type Uploader interface {
	UploadFile(ctx context.Context, folderPath, fileName string, data []byte) (string, error)
}

// UploadTool writes a document into a library folder. It overwrites
// existing files, so registration requires explicit enablement via
// ENABLE_ADDITIONAL_TOOLS.
type UploadTool struct {
	mu       sync.Mutex
	uploader Uploader
	cfg      *config.Config
}

func init() {
	registry.Register(&UploadTool{})
}

const defaultUploadDescription = "Upload a document to a folder on the configured SharePoint site. Content is supplied base64-encoded; an existing file at the same path is replaced."

// Definition returns the tool's definition for MCP registration
func (t *UploadTool) Definition() mcp.Tool {
	description := defaultUploadDescription
	if cfg := t.config(); cfg.UploadToolDescription != "" {
		description = cfg.UploadToolDescription
	}
	return mcp.NewTool(
		"sharepoint_upload",
		mcp.WithDescription(description),
		mcp.WithString("folder_path",
			mcp.Required(),
			mcp.Description("Server-relative folder to upload into (e.g. '/sites/docs/Shared Documents')"),
		),
		mcp.WithString("file_name",
			mcp.Required(),
			mcp.Description("Name of the file to create, including extension"),
		),
		mcp.WithString("content_base64",
			mcp.Required(),
			mcp.Description("File content, base64-encoded"),
		),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

type uploadResponse struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
	Size     int    `json:"size"`
}

// Execute decodes the content and writes it to the target folder.
func (t *UploadTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]interface{}) (*mcp.CallToolResult, error) {
	folderPath, _ := args["folder_path"].(string)
	if folderPath == "" {
		return nil, fmt.Errorf("folder_path is required")
	}
	fileName, _ := args["file_name"].(string)
	if fileName == "" {
		return nil, fmt.Errorf("file_name is required")
	}
	if strings.ContainsAny(fileName, "/\\") {
		return nil, fmt.Errorf("file_name must not contain path separators")
	}
	if ext := path.Ext(fileName); !t.config().ExtensionAllowed(ext) {
		return nil, fmt.Errorf("file extension '%s' is not on the allow-list", ext)
	}

	encoded, _ := args["content_base64"].(string)
	if encoded == "" {
		return nil, fmt.Errorf("content_base64 is required")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("content_base64 is not valid base64: %w", err)
	}

	uploader, err := t.client(logger)
	if err != nil {
		return nil, err
	}
	createdPath, err := uploader.UploadFile(ctx, strings.TrimRight(folderPath, "/"), fileName, data)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": createdPath, "bytes": len(data)}).Info("Uploaded SharePoint file")

	payload, err := json.Marshal(uploadResponse{FilePath: createdPath, FileName: fileName, Size: len(data)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (t *UploadTool) client(logger *logrus.Logger) (Uploader, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.uploader != nil {
		return t.uploader, nil
	}
	client, err := sharepoint.DefaultClient(logger)
	if err != nil {
		return nil, err
	}
	t.uploader = client
	return t.uploader, nil
}

func (t *UploadTool) config() *config.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg == nil {
		t.cfg = config.Load()
	}
	return t.cfg
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *UploadTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Upload a CSV export into a document library",
				Arguments: map[string]interface{}{
					"folder_path":    "/sites/docs/Shared Documents/exports",
					"file_name":      "summary.csv",
					"content_base64": "aWQsbmFtZQoxLHdpZGdldAo=",
				},
				ExpectedResult: "JSON with the created file's server-relative path and size",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "The tool is not listed by the server",
				Solution: "sharepoint_upload must be enabled explicitly: add it to ENABLE_ADDITIONAL_TOOLS",
			},
			{
				Problem:  "[AUTHORIZATION] the app is not permitted to write",
				Solution: "App-only write requires Sites.ReadWrite.All (or Sites.Selected with write access) granted to the app registration",
			},
		},
		WhenToUse:    "Publishing generated or modified documents back to the site",
		WhenNotToUse: "Overwriting files you have not downloaded and inspected first",
	}
}
