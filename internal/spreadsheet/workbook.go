package spreadsheet

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// maxFrozenRows bounds how many frozen header rows a freeze pane can
// claim, guarding against crafted files declaring absurd splits.
const maxFrozenRows = 100

// Cell is one addressable unit of a loaded sheet.
type Cell struct {
	Value   CellValue
	StyleID int
}

// Sheet is the read-only model of one worksheet, populated at load time.
type Sheet struct {
	Name string

	// MaxRow/MaxCol are the scanned populated extent; Declared is the
	// dimension rectangle the file itself claims, which may be stale.
	MaxRow   int
	MaxCol   int
	Declared CanonicalRange

	FrozenRows int
	FrozenCols int
	FreezePane string // first unfrozen cell, e.g. "A2"

	cells [][]Cell

	mergeOnce sync.Once
	merged    []MergedRegion
	wb        *Workbook
}

// Dimensions returns the sheet's real bounding rectangle from A1.
func (s *Sheet) Dimensions() CanonicalRange {
	maxRow, maxCol := s.MaxRow, s.MaxCol
	if maxRow < 1 {
		maxRow = 1
	}
	if maxCol < 1 {
		maxCol = 1
	}
	return CanonicalRange{
		Start: Coordinate{Row: 1, Col: 1},
		End:   Coordinate{Row: maxRow, Col: maxCol},
	}
}

func (s *Sheet) declaredMaxRow() int {
	if s.Declared.End.Row > 0 {
		return s.Declared.End.Row
	}
	return s.MaxRow
}

func (s *Sheet) declaredMaxCol() int {
	if s.Declared.End.Col > 0 {
		return s.Declared.End.Col
	}
	return s.MaxCol
}

// CellAt returns the cell at a 1-based position; positions outside the
// populated extent read as null cells.
func (s *Sheet) CellAt(row, col int) Cell {
	if row < 1 || col < 1 || row > len(s.cells) {
		return Cell{Value: NullValue()}
	}
	r := s.cells[row-1]
	if col > len(r) {
		return Cell{Value: NullValue()}
	}
	return r[col-1]
}

// Workbook is the immutable in-memory model of a parsed spreadsheet.
// The underlying excelize file is retained for lazy merge and style
// queries; access to it is serialized through fileMu.
type Workbook struct {
	Fingerprint string
	Sheets      []*Sheet

	file   *excelize.File
	fileMu sync.Mutex

	styleMu    sync.Mutex
	fillColors map[int]string
	colWidths  map[string]map[int]float64
	rowHeights map[string]map[int]float64
}

// ComputeFingerprint derives the cache key for a file's content:
// a truncated hex SHA-256 of the raw bytes.
func ComputeFingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:32]
}

// Load parses raw spreadsheet bytes into a Workbook. A byte stream that
// is not a well-formed container fails with *InvalidFormatError and
// never yields a partially populated workbook. Load performs no I/O
// beyond the supplied bytes.
func Load(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidFormatError{Cause: err}
	}

	wb := &Workbook{
		Fingerprint: ComputeFingerprint(data),
		file:        f,
		fillColors:  make(map[int]string),
		colWidths:   make(map[string]map[int]float64),
		rowHeights:  make(map[string]map[int]float64),
	}
	for _, name := range f.GetSheetList() {
		sheet, err := wb.loadSheet(name)
		if err != nil {
			return nil, err
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

// Sheet returns the sheet with the exact given name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SheetNames returns sheet names in file order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, 0, len(w.Sheets))
	for _, s := range w.Sheets {
		names = append(names, s.Name)
	}
	return names
}

func (w *Workbook) loadSheet(name string) (*Sheet, error) {
	f := w.file
	sheet := &Sheet{Name: name, wb: w}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, &SheetError{Operation: "scan", SheetName: name, Cause: err}
	}
	sheet.MaxRow = len(rows)
	for _, r := range rows {
		if len(r) > sheet.MaxCol {
			sheet.MaxCol = len(r)
		}
	}

	if dim, err := f.GetSheetDimension(name); err == nil && dim != "" {
		if declared, err := ParseCanonicalRange(dim); err == nil {
			sheet.Declared = declared
		}
	}
	if sheet.Declared.End.Row == 0 {
		sheet.Declared = sheet.Dimensions()
	}

	if panes, err := f.GetPanes(name); err == nil && panes.Freeze {
		sheet.FrozenRows = min(panes.YSplit, maxFrozenRows)
		sheet.FrozenCols = panes.XSplit
		sheet.FreezePane = panes.TopLeftCell
	}

	sheet.cells = make([][]Cell, sheet.MaxRow)
	for ri := range sheet.cells {
		sheet.cells[ri] = make([]Cell, sheet.MaxCol)
		for ci := range sheet.cells[ri] {
			var formatted string
			if ci < len(rows[ri]) {
				formatted = rows[ri][ci]
			}
			cell, err := w.readCell(name, Coordinate{Row: ri + 1, Col: ci + 1}, formatted)
			if err != nil {
				return nil, err
			}
			sheet.cells[ri][ci] = cell
		}
	}
	return sheet, nil
}

// readCell types a single cell from its raw and formatted values.
func (w *Workbook) readCell(sheetName string, coord Coordinate, formatted string) (Cell, error) {
	f := w.file
	axis := coord.Name()

	raw, err := f.GetCellValue(sheetName, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return Cell{}, &SheetError{Operation: "read cell", SheetName: sheetName, Cause: err}
	}
	if raw == "" && formatted == "" {
		return Cell{Value: NullValue()}, nil
	}

	styleID, _ := f.GetCellStyle(sheetName, axis)
	cellType, _ := f.GetCellType(sheetName, axis)
	value := w.typeCell(cellType, styleID, raw, formatted)

	if formula, err := f.GetCellFormula(sheetName, axis); err == nil && formula != "" {
		value = FormulaValue(value)
	}
	return Cell{Value: value, StyleID: styleID}, nil
}

func (w *Workbook) typeCell(cellType excelize.CellType, styleID int, raw, formatted string) CellValue {
	switch cellType {
	case excelize.CellTypeBool:
		return BoolValue(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeDate:
		if v, ok := parseExcelDate(raw); ok {
			return v
		}
		return TextValue(formatted)
	case excelize.CellTypeInlineString, excelize.CellTypeSharedString, excelize.CellTypeError:
		return TextValue(formatted)
	}

	// Plain numeric cells carry no type attribute; dates are numbers
	// distinguished only by their number format.
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		if w.hasDateFormat(styleID) {
			if t, err := excelize.ExcelDateToTime(n, false); err == nil {
				return DateValue(t)
			}
		}
		return NumberValue(n)
	}
	if formatted != "" {
		return TextValue(formatted)
	}
	return TextValue(raw)
}

func parseExcelDate(raw string) (CellValue, bool) {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return CellValue{}, false
	}
	t, err := excelize.ExcelDateToTime(n, false)
	if err != nil {
		return CellValue{}, false
	}
	return DateValue(t), true
}

// hasDateFormat reports whether a style uses one of the built-in
// date/time number formats.
func (w *Workbook) hasDateFormat(styleID int) bool {
	if styleID == 0 {
		return false
	}
	style, err := w.file.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	return isBuiltInDateFormat(style.NumFmt)
}

func isBuiltInDateFormat(numFmt int) bool {
	switch {
	case numFmt >= 14 && numFmt <= 22:
		return true
	case numFmt >= 27 && numFmt <= 36:
		return true
	case numFmt >= 45 && numFmt <= 47:
		return true
	case numFmt >= 50 && numFmt <= 58:
		return true
	}
	return false
}
