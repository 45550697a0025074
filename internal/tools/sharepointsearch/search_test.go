package sharepointsearch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/sharepoint"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []sharepoint.SearchResult
	err     error

	gotQuery      string
	gotMax        int
	gotExtensions []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int, extensions []string) ([]sharepoint.SearchResult, error) {
	f.gotQuery = query
	f.gotMax = maxResults
	f.gotExtensions = extensions
	return f.results, f.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTool(searcher Searcher) *SearchTool {
	return &SearchTool{
		searcher: searcher,
		cfg: &config.Config{
			AllowedExtensions: []string{"xlsx", "docx"},
			MaxSearchResults:  20,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestSearchDetailedFormat(t *testing.T) {
	fake := &fakeSearcher{results: []sharepoint.SearchResult{
		{Title: "Q1 Report", Path: "/sites/docs/Shared Documents/q1.xlsx", Size: 1024, FileExtension: "xlsx", Summary: "Q1 revenue"},
	}}
	tool := newTool(fake)

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"query": "revenue",
	})
	require.NoError(t, err)

	var payload struct {
		Query       string                    `json:"query"`
		ResultCount int                       `json:"result_count"`
		Results     []sharepoint.SearchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, "revenue", payload.Query)
	assert.Equal(t, 1, payload.ResultCount)
	require.Len(t, payload.Results, 1)
	assert.Equal(t, "Q1 revenue", payload.Results[0].Summary)

	assert.Equal(t, "revenue", fake.gotQuery)
	assert.Equal(t, 20, fake.gotMax)
	assert.Equal(t, []string{"xlsx", "docx"}, fake.gotExtensions)
}

func TestSearchCompactFormatDropsDetails(t *testing.T) {
	fake := &fakeSearcher{results: []sharepoint.SearchResult{
		{Title: "Q1 Report", Path: "/sites/docs/q1.xlsx", Size: 1024, FileExtension: "xlsx", Summary: "Q1 revenue"},
	}}
	tool := newTool(fake)

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"query":  "revenue",
		"format": "compact",
	})
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, `"path":"/sites/docs/q1.xlsx"`)
	assert.NotContains(t, text, "summary")
	assert.NotContains(t, text, "size")
}

func TestSearchExtensionFilter(t *testing.T) {
	fake := &fakeSearcher{}
	tool := newTool(fake)

	_, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"query":          "report",
		"file_extension": "xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"xlsx"}, fake.gotExtensions)
}

func TestSearchRejectsDisallowedExtension(t *testing.T) {
	tool := newTool(&fakeSearcher{})

	_, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"query":          "report",
		"file_extension": "exe",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allow-list")
}

func TestSearchMaxResultsClamped(t *testing.T) {
	fake := &fakeSearcher{}
	tool := newTool(fake)

	_, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"query":       "report",
		"max_results": float64(500),
	})
	require.NoError(t, err)
	assert.Equal(t, config.MaxSearchResultsCeiling, fake.gotMax)
}

func TestSearchRequiresQuery(t *testing.T) {
	tool := newTool(&fakeSearcher{})

	_, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}

func TestSearchDefinition(t *testing.T) {
	tool := newTool(&fakeSearcher{})
	def := tool.Definition()
	assert.Equal(t, "sharepoint_search", def.Name)
	assert.Contains(t, def.InputSchema.Required, "query")
}
