package spreadsheet

import "strings"

// Match is one search hit. Row carries the full containing row when
// surrounding-cell context was requested; it is built from the already
// loaded grid, so attaching it costs no additional file access.
type Match struct {
	Sheet      string       `json:"sheet"`
	Coordinate string       `json:"coordinate"`
	Value      CellValue    `json:"value"`
	Row        []CellRecord `json:"row,omitempty"`
}

// SearchResult is the shaped output of an in-file search.
type SearchResult struct {
	Query      string  `json:"query"`
	MatchCount int     `json:"match_count"`
	Matches    []Match `json:"matches"`
	Truncated  bool    `json:"truncated,omitempty"`
}

// SearchOptions controls in-file search behaviour.
type SearchOptions struct {
	// Sheet restricts the scan to one sheet (exact name) when non-empty.
	Sheet string
	// IncludeSurroundingCells inlines the full row per match, saving the
	// caller a follow-up range read for context.
	IncludeSurroundingCells bool
	Limits                  Limits
}

// Search scans every populated cell for comma-separated OR terms: a cell
// matches when its stringified value contains any term, case-insensitive.
// Matches are returned in scan order (sheets in file order, cells
// row-major); there is no relevance ranking. An empty result is not an
// error.
func Search(wb *Workbook, query string, opts SearchOptions) *SearchResult {
	result := &SearchResult{Query: query, Matches: []Match{}}
	terms := splitTerms(query)
	if len(terms) == 0 {
		return result
	}

	for _, sheet := range wb.Sheets {
		if opts.Sheet != "" && sheet.Name != opts.Sheet {
			continue
		}
		for row := 1; row <= sheet.MaxRow; row++ {
			for col := 1; col <= sheet.MaxCol; col++ {
				cell := sheet.CellAt(row, col)
				if cell.Value.IsEmpty() || !matchesAny(cell.Value.String(), terms) {
					continue
				}
				if opts.Limits.MaxMatches > 0 && len(result.Matches) >= opts.Limits.MaxMatches {
					result.Truncated = true
					result.MatchCount = len(result.Matches)
					return result
				}
				match := Match{
					Sheet:      sheet.Name,
					Coordinate: Coordinate{Row: row, Col: col}.Name(),
					Value:      cell.Value,
				}
				if opts.IncludeSurroundingCells {
					match.Row = extractRow(sheet, row, 1, sheet.MaxCol, ExtractOptions{}).Cells
				}
				result.Matches = append(result.Matches, match)
			}
		}
	}
	result.MatchCount = len(result.Matches)
	return result
}

// splitTerms splits a comma-separated OR query into lowercased,
// trimmed, non-empty terms.
func splitTerms(query string) []string {
	var terms []string
	for _, t := range strings.Split(query, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func matchesAny(value string, terms []string) bool {
	lower := strings.ToLower(value)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
