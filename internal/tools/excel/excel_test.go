package excel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/config"
	"github.com/ncdcdev/sharepoint-docs-mcp/internal/spreadsheet"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeFetcher struct {
	data    []byte
	err     error
	fetches int
}

func (f *fakeFetcher) FetchFile(_ context.Context, _ string) ([]byte, error) {
	f.fetches++
	return f.data, f.err
}

// fixtureBytes builds a two-sheet workbook:
//
//	Budget (frozen header row):
//	  A1 Item    B1 Amount
//	  A2 Widget  B2 42.5
//	  A3 Gadget  B3 7
//	  A4 Total   B4 49.5
//	Summary:
//	  A1 Grand Total  B1 49.5
func fixtureBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	require.NoError(t, f.SetSheetName("Sheet1", "Budget"))
	require.NoError(t, f.SetCellValue("Budget", "A1", "Item"))
	require.NoError(t, f.SetCellValue("Budget", "B1", "Amount"))
	require.NoError(t, f.SetCellValue("Budget", "A2", "Widget"))
	require.NoError(t, f.SetCellValue("Budget", "B2", 42.5))
	require.NoError(t, f.SetCellValue("Budget", "A3", "Gadget"))
	require.NoError(t, f.SetCellValue("Budget", "B3", 7))
	require.NoError(t, f.SetCellValue("Budget", "A4", "Total"))
	require.NoError(t, f.SetCellValue("Budget", "B4", 49.5))
	require.NoError(t, f.SetPanes("Budget", &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}))

	_, err := f.NewSheet("Summary")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Summary", "A1", "Grand Total"))
	require.NoError(t, f.SetCellValue("Summary", "B1", 49.5))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTool(fetcher FileFetcher) *ExcelTool {
	return &ExcelTool{
		fetcher: fetcher,
		cfg:     &config.Config{Limits: spreadsheet.DefaultLimits()},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

// readPayload mirrors readResponse with loosely typed cells so the
// native JSON values can be asserted directly.
type readPayload struct {
	FilePath string `json:"file_path"`
	Sheets   []struct {
		Name                 string `json:"name"`
		Dimensions           string `json:"dimensions"`
		EffectiveRange       string `json:"effective_range"`
		FrozenHeaderIncluded bool   `json:"frozen_header_included"`
		FrozenRows           int    `json:"frozen_rows"`
		HeaderRows           []struct {
			Row   int `json:"row"`
			Cells []struct {
				Coordinate string `json:"coordinate"`
				Value      any    `json:"value"`
			} `json:"cells"`
		} `json:"header_rows"`
		DataRows []struct {
			Row   int `json:"row"`
			Cells []struct {
				Coordinate string `json:"coordinate"`
				Value      any    `json:"value"`
			} `json:"cells"`
		} `json:"data_rows"`
	} `json:"sheets"`
	SheetResolution *struct {
		Requested   string   `json:"requested"`
		Resolved    string   `json:"resolved"`
		Status      string   `json:"status"`
		Suggestions []string `json:"suggestions"`
	} `json:"sheet_resolution"`
	AvailableSheets []string `json:"available_sheets"`
}

func TestExecuteReadNamedSheet(t *testing.T) {
	tool := newTool(&fakeFetcher{data: fixtureBytes(t)})

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
		"sheet":     "Budget",
	})
	require.NoError(t, err)

	var payload readPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	require.Len(t, payload.Sheets, 1)
	sheet := payload.Sheets[0]
	assert.Equal(t, "Budget", sheet.Name)
	assert.Equal(t, 1, sheet.FrozenRows)
	// Full dimensions already cover the header row.
	assert.False(t, sheet.FrozenHeaderIncluded)

	// Frozen row 1 is split out as the header; data starts at row 2.
	require.Len(t, sheet.HeaderRows, 1)
	assert.Equal(t, "Item", sheet.HeaderRows[0].Cells[0].Value)
	require.Len(t, sheet.DataRows, 3)
	assert.Equal(t, "Widget", sheet.DataRows[0].Cells[0].Value)
	assert.Equal(t, 42.5, sheet.DataRows[0].Cells[1].Value)

	require.NotNil(t, payload.SheetResolution)
	assert.Equal(t, "exact", payload.SheetResolution.Status)
}

func TestExecuteReadCasefoldResolution(t *testing.T) {
	tool := newTool(&fakeFetcher{data: fixtureBytes(t)})

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
		"sheet":     "budget",
	})
	require.NoError(t, err)

	var payload readPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	require.NotNil(t, payload.SheetResolution)
	assert.Equal(t, "casefold", payload.SheetResolution.Status)
	assert.Equal(t, "Budget", payload.SheetResolution.Resolved)
	require.Len(t, payload.Sheets, 1)
}

func TestExecuteReadUnknownSheetNoRange(t *testing.T) {
	tool := newTool(&fakeFetcher{data: fixtureBytes(t)})

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
		"sheet":     "Budge",
	})
	require.NoError(t, err)

	var payload readPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	// No data is read; the caller gets the real names to retry with.
	assert.Empty(t, payload.Sheets)
	assert.ElementsMatch(t, []string{"Budget", "Summary"}, payload.AvailableSheets)
	require.NotNil(t, payload.SheetResolution)
	assert.Equal(t, "not_found", payload.SheetResolution.Status)
	assert.Contains(t, payload.SheetResolution.Suggestions, "Budget")
}

func TestExecuteReadUnknownSheetWithRangeScansAll(t *testing.T) {
	tool := newTool(&fakeFetcher{data: fixtureBytes(t)})

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path":  "/sites/docs/budget.xlsx",
		"sheet":      "Budge",
		"cell_range": "A1:B2",
	})
	require.NoError(t, err)

	var payload readPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Len(t, payload.Sheets, 2)
	assert.ElementsMatch(t, []string{"Budget", "Summary"}, payload.AvailableSheets)
}

func TestExecuteReadSheetQualifierInRange(t *testing.T) {
	tool := newTool(&fakeFetcher{data: fixtureBytes(t)})

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path":  "/sites/docs/budget.xlsx",
		"cell_range": "Summary!A1:B1",
	})
	require.NoError(t, err)

	var payload readPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	require.Len(t, payload.Sheets, 1)
	assert.Equal(t, "Summary", payload.Sheets[0].Name)
}

func TestExecuteReadRangeTooLarge(t *testing.T) {
	tool := &ExcelTool{
		fetcher: &fakeFetcher{data: fixtureBytes(t)},
		cfg: &config.Config{Limits: spreadsheet.Limits{
			MaxRangeCells: 4,
			MaxRangeRows:  1000,
			MaxRangeCols:  100,
			MaxMatches:    500,
		}},
	}

	_, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
		"sheet":     "Budget",
	})
	var tooLarge *spreadsheet.RangeTooLargeError
	require.ErrorAs(t, err, &tooLarge)
}

func TestExecuteMetadataOnlyIgnoresSizeCeilings(t *testing.T) {
	// metadata_only exists to size up files too big to read outright,
	// so structure must come back even when the full dimensions blow
	// every ceiling.
	tool := &ExcelTool{
		fetcher: &fakeFetcher{data: fixtureBytes(t)},
		cfg: &config.Config{Limits: spreadsheet.Limits{
			MaxRangeCells: 2,
			MaxRangeRows:  1,
			MaxRangeCols:  1,
			MaxMatches:    500,
		}},
	}

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path":     "/sites/docs/budget.xlsx",
		"sheet":         "Budget",
		"metadata_only": true,
	})
	require.NoError(t, err)

	var payload readPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	require.Len(t, payload.Sheets, 1)
	sheet := payload.Sheets[0]
	assert.NotEmpty(t, sheet.Dimensions)
	assert.Equal(t, 1, sheet.FrozenRows)
	require.Len(t, sheet.HeaderRows, 1)
	assert.Empty(t, sheet.DataRows)
}

func TestExecuteReadReportsFrozenHeaderUnion(t *testing.T) {
	tool := newTool(&fakeFetcher{data: fixtureBytes(t)})

	// "B3" expands to B1:B3; unioning the frozen header row widens the
	// effective range to A1:B3 and the response says so.
	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path":  "/sites/docs/budget.xlsx",
		"sheet":      "Budget",
		"cell_range": "B3",
	})
	require.NoError(t, err)

	var payload readPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	require.Len(t, payload.Sheets, 1)
	assert.Equal(t, "A1:B3", payload.Sheets[0].EffectiveRange)
	assert.True(t, payload.Sheets[0].FrozenHeaderIncluded)
}

func TestExecuteSearchMode(t *testing.T) {
	tool := newTool(&fakeFetcher{data: fixtureBytes(t)})

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
		"query":     "total",
	})
	require.NoError(t, err)

	var payload struct {
		Mode       string `json:"mode"`
		MatchCount int    `json:"match_count"`
		Matches    []struct {
			Sheet      string `json:"sheet"`
			Coordinate string `json:"coordinate"`
		} `json:"matches"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, "search", payload.Mode)
	// "total" hits Budget!A4 and Summary!A1.
	assert.Equal(t, 2, payload.MatchCount)
}

func TestExecuteSearchSheetRestriction(t *testing.T) {
	tool := newTool(&fakeFetcher{data: fixtureBytes(t)})

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
		"query":     "total",
		"sheet":     "Summary",
	})
	require.NoError(t, err)

	var payload struct {
		MatchCount int `json:"match_count"`
		Matches    []struct {
			Sheet string `json:"sheet"`
		} `json:"matches"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	require.Equal(t, 1, payload.MatchCount)
	assert.Equal(t, "Summary", payload.Matches[0].Sheet)
}

func TestExecuteSearchUnresolvedSheetScansAll(t *testing.T) {
	tool := newTool(&fakeFetcher{data: fixtureBytes(t)})

	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
		"query":     "total",
		"sheet":     "NoSuchSheet",
	})
	require.NoError(t, err)

	var payload struct {
		MatchCount      int `json:"match_count"`
		SheetResolution *struct {
			Status string `json:"status"`
		} `json:"sheet_resolution"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, 2, payload.MatchCount)
	require.NotNil(t, payload.SheetResolution)
	assert.Equal(t, "not_found", payload.SheetResolution.Status)
}

func TestExecuteRequiresFilePath(t *testing.T) {
	tool := newTool(&fakeFetcher{})
	_, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file_path is required")
}

func TestExecutePropagatesFetchError(t *testing.T) {
	tool := newTool(&fakeFetcher{err: errors.New("download failed")})
	_, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
	})
	require.Error(t, err)
	assert.EqualError(t, err, "download failed")
}

func TestExecuteRejectsCorruptedFile(t *testing.T) {
	tool := newTool(&fakeFetcher{data: []byte("not a spreadsheet")})
	_, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
	})
	var invalid *spreadsheet.InvalidFormatError
	require.ErrorAs(t, err, &invalid)
}

func TestExecuteReusesCachedWorkbook(t *testing.T) {
	fetcher := &fakeFetcher{data: fixtureBytes(t)}
	tool := newTool(fetcher)
	cache := &sync.Map{}

	args := map[string]interface{}{
		"file_path": "/sites/docs/budget.xlsx",
		"sheet":     "Budget",
	}
	_, err := tool.Execute(context.Background(), testLogger(), cache, args)
	require.NoError(t, err)
	_, err = tool.Execute(context.Background(), testLogger(), cache, args)
	require.NoError(t, err)

	// The file is re-fetched per call but parsed once for identical bytes.
	assert.Equal(t, 2, fetcher.fetches)
	entries := 0
	cache.Range(func(_, _ any) bool {
		entries++
		return true
	})
	assert.Equal(t, 1, entries)
}

func TestDefinition(t *testing.T) {
	tool := newTool(&fakeFetcher{})
	def := tool.Definition()
	assert.Equal(t, "sharepoint_excel", def.Name)
	assert.Contains(t, def.InputSchema.Required, "file_path")
}
