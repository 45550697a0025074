package spreadsheet

import "strings"

// CellStyle is the per-cell presentation record emitted when the caller
// asks for styles. Width and height describe the cell's column and row,
// not the cell itself.
type CellStyle struct {
	FillColor   string  `json:"fill_color,omitempty"`
	ColumnWidth float64 `json:"column_width,omitempty"`
	RowHeight   float64 `json:"row_height,omitempty"`
}

// StyleFor assembles the style record for one cell, consulting the
// workbook-level fill, width and height caches.
func (s *Sheet) StyleFor(coord Coordinate, styleID int) *CellStyle {
	style := &CellStyle{
		FillColor:   s.wb.fillColor(styleID),
		ColumnWidth: s.wb.columnWidth(s.Name, coord.Col),
		RowHeight:   s.wb.rowHeight(s.Name, coord.Row),
	}
	if style.FillColor == "" && style.ColumnWidth == 0 && style.RowHeight == 0 {
		return nil
	}
	return style
}

// fillColor resolves a style ID to its pattern-fill colour as "#RRGGBB".
// Results are cached per workbook since style IDs repeat heavily.
func (w *Workbook) fillColor(styleID int) string {
	if styleID == 0 {
		return ""
	}
	w.styleMu.Lock()
	defer w.styleMu.Unlock()
	if color, ok := w.fillColors[styleID]; ok {
		return color
	}

	color := ""
	w.fileMu.Lock()
	style, err := w.file.GetStyle(styleID)
	w.fileMu.Unlock()
	if err == nil && style != nil && style.Fill.Type == "pattern" && len(style.Fill.Color) > 0 {
		if c := normalizeARGB(style.Fill.Color[0]); c != "" {
			color = c
		}
	}
	w.fillColors[styleID] = color
	return color
}

// normalizeARGB converts an ARGB hex string to "#RRGGBB", dropping the
// alpha channel.
func normalizeARGB(argb string) string {
	c := strings.TrimPrefix(strings.ToUpper(argb), "#")
	switch len(c) {
	case 8:
		return "#" + c[2:]
	case 6:
		return "#" + c
	}
	return ""
}

func (w *Workbook) columnWidth(sheetName string, col int) float64 {
	w.styleMu.Lock()
	defer w.styleMu.Unlock()
	byCol, ok := w.colWidths[sheetName]
	if !ok {
		byCol = make(map[int]float64)
		w.colWidths[sheetName] = byCol
	}
	if width, ok := byCol[col]; ok {
		return width
	}

	width := 0.0
	name, err := ColumnIndexToName(col)
	if err == nil {
		w.fileMu.Lock()
		if v, err := w.file.GetColWidth(sheetName, name); err == nil {
			width = v
		}
		w.fileMu.Unlock()
	}
	byCol[col] = width
	return width
}

func (w *Workbook) rowHeight(sheetName string, row int) float64 {
	w.styleMu.Lock()
	defer w.styleMu.Unlock()
	byRow, ok := w.rowHeights[sheetName]
	if !ok {
		byRow = make(map[int]float64)
		w.rowHeights[sheetName] = byRow
	}
	if height, ok := byRow[row]; ok {
		return height
	}

	height := 0.0
	w.fileMu.Lock()
	if v, err := w.file.GetRowHeight(sheetName, row); err == nil {
		height = v
	}
	w.fileMu.Unlock()
	byRow[row] = height
	return height
}
