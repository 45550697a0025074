// Package sharepoint is the Repository Service client: document search
// over the Search REST API, file download and file upload, with
// categorized errors shaped for LLM consumers.
package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ncdcdev/sharepoint-docs-mcp/internal/auth"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/cache"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/utils/httpclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	requestTimeout  = 60 * time.Second
	maxDownloadSize = 100 << 20 // 100 MiB
	searchCacheTTL  = 60 * time.Second
)

// Client talks to one SharePoint site. All requests share a rate
// limiter so bursts of tool calls do not trip the service's throttling.
type Client struct {
	siteURL  string
	tokens   auth.TokenProvider
	http     *http.Client
	limiter  *rate.Limiter
	searches *cache.Cache
	logger   *logrus.Logger
}

// NewClient builds a client for the configured site.
func NewClient(cfg *config.Config, tokens auth.TokenProvider, logger *logrus.Logger) *Client {
	return &Client{
		siteURL:  cfg.SiteURL,
		tokens:   tokens,
		http:     httpclient.New(requestTimeout, logger),
		limiter:  rate.NewLimiter(rate.Limit(2), 5),
		searches: cache.New(searchCacheTTL),
		logger:   logger,
	}
}

// SearchResult is one document hit from the Search REST API.
type SearchResult struct {
	Title         string `json:"title"`
	Path          string `json:"path"`
	Size          int64  `json:"size,omitempty"`
	LastModified  string `json:"last_modified,omitempty"`
	FileExtension string `json:"file_extension,omitempty"`
	Summary       string `json:"summary,omitempty"`
}

// Search runs a full-text query against the site, restricted to the
// given file extensions when any are supplied.
func (c *Client) Search(ctx context.Context, query string, maxResults int, extensions []string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/_api/search/query?querytext='%s'&selectproperties='%s'&rowlimit=%d",
		c.siteURL,
		url.QueryEscape(buildQueryText(query, extensions)),
		"Title,Path,Size,LastModifiedTime,FileExtension,HitHighlightedSummary",
		maxResults,
	)

	// Identical queries within the TTL are served from cache; the
	// search index lags uploads anyway, so staleness here is free.
	if cached, ok := c.searches.Get(endpoint); ok {
		if results, ok := cached.([]SearchResult); ok {
			return results, nil
		}
	}

	body, err := c.get(ctx, "search", query, endpoint)
	if err != nil {
		return nil, err
	}
	results, err := parseSearchResponse(body)
	if err != nil {
		return nil, &ServiceError{
			Category: CategoryUnknown,
			Message:  "the search response could not be parsed",
			Cause:    err,
		}
	}
	c.searches.Set(endpoint, results)
	c.logger.WithFields(logrus.Fields{"query": query, "results": len(results)}).Debug("SharePoint search completed")
	return results, nil
}

// buildQueryText appends an extension filter clause to the caller's
// query, e.g. `report (fileextension:docx OR fileextension:xlsx)`.
func buildQueryText(query string, extensions []string) string {
	query = strings.ReplaceAll(query, "'", "''")
	if len(extensions) == 0 {
		return query
	}
	clauses := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		clauses = append(clauses, "fileextension:"+ext)
	}
	return fmt.Sprintf("%s (%s)", query, strings.Join(clauses, " OR "))
}

// FetchFile downloads a file's bytes by server-relative path. It
// satisfies the excel tool's fetcher interface.
func (c *Client) FetchFile(ctx context.Context, serverRelativePath string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/_api/web/GetFileByServerRelativeUrl('%s')/$value",
		c.siteURL, escapeODataPath(serverRelativePath))

	data, err := c.get(ctx, "download", serverRelativePath, endpoint)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{"path": serverRelativePath, "bytes": len(data)}).Debug("Downloaded file")
	return data, nil
}

// UploadFile writes bytes into a document library folder and returns
// the created file's server-relative URL. Existing files are replaced.
func (c *Client) UploadFile(ctx context.Context, folderPath, fileName string, data []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/_api/web/GetFolderByServerRelativeUrl('%s')/Files/add(url='%s',overwrite=true)",
		c.siteURL, escapeODataPath(folderPath), escapeODataPath(fileName))

	body, err := c.do(ctx, "upload", folderPath+"/"+fileName, http.MethodPost, endpoint, data)
	if err != nil {
		return "", err
	}

	var payload struct {
		D struct {
			ServerRelativeUrl string `json:"ServerRelativeUrl"`
		} `json:"d"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.D.ServerRelativeUrl == "" {
		// Upload succeeded even if the echo could not be parsed.
		return folderPath + "/" + fileName, nil
	}
	return payload.D.ServerRelativeUrl, nil
}

func (c *Client) get(ctx context.Context, operation, subject, endpoint string) ([]byte, error) {
	return c.do(ctx, operation, subject, http.MethodGet, endpoint, nil)
}

func (c *Client) do(ctx context.Context, operation, subject, method, endpoint string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &ServiceError{
			Category: CategoryAuthentication,
			Message:  "could not obtain an access token",
			Solution: "Check the SHAREPOINT_* auth configuration",
			Cause:    err,
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json;odata=verbose")
	if payload != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, classifyStatus(resp.StatusCode, operation, subject)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
}

// escapeODataPath doubles single quotes for embedding inside the OData
// string literal of the endpoint URL.
func escapeODataPath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}

// parseSearchResponse digs the row cells out of the verbose OData
// envelope the Search API returns.
func parseSearchResponse(body []byte) ([]SearchResult, error) {
	var envelope struct {
		D struct {
			Query struct {
				PrimaryQueryResult struct {
					RelevantResults struct {
						Table struct {
							Rows struct {
								Results []struct {
									Cells struct {
										Results []struct {
											Key   string `json:"Key"`
											Value string `json:"Value"`
										} `json:"results"`
									} `json:"Cells"`
								} `json:"results"`
							} `json:"Rows"`
						} `json:"Table"`
					} `json:"RelevantResults"`
				} `json:"PrimaryQueryResult"`
			} `json:"query"`
		} `json:"d"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	rows := envelope.D.Query.PrimaryQueryResult.RelevantResults.Table.Rows.Results
	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		var r SearchResult
		for _, cell := range row.Cells.Results {
			switch cell.Key {
			case "Title":
				r.Title = cell.Value
			case "Path":
				r.Path = cell.Value
			case "Size":
				r.Size, _ = strconv.ParseInt(cell.Value, 10, 64)
			case "LastModifiedTime":
				r.LastModified = cell.Value
			case "FileExtension":
				r.FileExtension = cell.Value
			case "HitHighlightedSummary":
				r.Summary = cell.Value
			}
		}
		if r.Path != "" {
			results = append(results, r)
		}
	}
	return results, nil
}
