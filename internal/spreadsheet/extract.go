package spreadsheet

// ExtractOptions controls response shaping for a range read.
type ExtractOptions struct {
	// IncludeHeader partitions output into header_rows/data_rows when
	// the sheet has frozen rows; false emits a flat rows list.
	IncludeHeader bool
	// MetadataOnly suppresses data rows while keeping headers and
	// structure, for cheap inspection of large files.
	MetadataOnly bool
	// IncludeStyles adds fill colour, column width and row height per
	// cell. Merge membership is structural and always included.
	IncludeStyles bool
}

// CellRecord is one emitted cell.
type CellRecord struct {
	Coordinate string     `json:"coordinate"`
	Value      CellValue  `json:"value"`
	Merged     *MergeInfo `json:"merged,omitempty"`
	Style      *CellStyle `json:"style,omitempty"`
}

// RowRecord is one emitted row of the effective range.
type RowRecord struct {
	Row   int          `json:"row"`
	Cells []CellRecord `json:"cells"`
}

// SheetResult is the shaped output for one sheet. FrozenHeaderIncluded
// reports whether the frozen-header rectangle was unioned into the
// effective range beyond what the caller asked for.
type SheetResult struct {
	Name                 string      `json:"name"`
	Dimensions           string      `json:"dimensions"`
	RequestedRange       string      `json:"requested_range,omitempty"`
	EffectiveRange       string      `json:"effective_range,omitempty"`
	FrozenHeaderIncluded bool        `json:"frozen_header_included,omitempty"`
	FreezePanes          string      `json:"freeze_panes,omitempty"`
	FrozenRows           int         `json:"frozen_rows,omitempty"`
	FrozenCols           int         `json:"frozen_cols,omitempty"`
	MergedRanges         []string    `json:"merged_ranges,omitempty"`
	HeaderRows           []RowRecord `json:"header_rows,omitempty"`
	DataRows             []RowRecord `json:"data_rows,omitempty"`
	Rows                 []RowRecord `json:"rows,omitempty"`
}

// ExtractSheet walks the effective range in row-major order and shapes
// the response for one sheet. requestedRange echoes the caller's input
// so silent expansion is detectable against EffectiveRange.
func ExtractSheet(sheet *Sheet, requestedRange string, effective CanonicalRange, opts ExtractOptions) *SheetResult {
	result := &SheetResult{
		Name:           sheet.Name,
		Dimensions:     sheet.Dimensions().String(),
		RequestedRange: requestedRange,
		EffectiveRange: effective.String(),
		FreezePanes:    sheet.FreezePane,
		FrozenRows:     sheet.FrozenRows,
		FrozenCols:     sheet.FrozenCols,
	}
	for _, region := range sheet.MergedRegions() {
		result.MergedRanges = append(result.MergedRanges, region.Range.String())
	}

	splitHeader := opts.IncludeHeader && sheet.FrozenRows > 0
	for row := effective.Start.Row; row <= effective.End.Row; row++ {
		isHeader := splitHeader && row <= sheet.FrozenRows
		if opts.MetadataOnly && !isHeader {
			continue
		}
		record := extractRow(sheet, row, effective.Start.Col, effective.End.Col, opts)
		switch {
		case isHeader:
			result.HeaderRows = append(result.HeaderRows, record)
		case splitHeader:
			result.DataRows = append(result.DataRows, record)
		default:
			result.Rows = append(result.Rows, record)
		}
	}
	if opts.MetadataOnly && !splitHeader {
		result.Rows = nil
	}
	return result
}

func extractRow(sheet *Sheet, row, startCol, endCol int, opts ExtractOptions) RowRecord {
	record := RowRecord{Row: row, Cells: make([]CellRecord, 0, endCol-startCol+1)}
	for col := startCol; col <= endCol; col++ {
		record.Cells = append(record.Cells, extractCell(sheet, Coordinate{Row: row, Col: col}, opts.IncludeStyles))
	}
	return record
}

func extractCell(sheet *Sheet, coord Coordinate, includeStyles bool) CellRecord {
	cell := sheet.CellAt(coord.Row, coord.Col)
	record := CellRecord{
		Coordinate: coord.Name(),
		Value:      cell.Value,
	}
	if region, ok := sheet.MergeAt(coord); ok {
		record.Merged = &MergeInfo{
			Range:    region.Range.String(),
			IsAnchor: region.Anchor == coord,
		}
		// Non-anchor merged cells read as empty in the file; surface
		// the region's display value so rows stay interpretable.
		if cell.Value.IsEmpty() {
			record.Value = region.Value
		}
	}
	if includeStyles {
		record.Style = sheet.StyleFor(coord, cell.StyleID)
	}
	return record
}
