package spreadsheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fixtureBytes builds a two-sheet workbook in memory:
//
//	Sales (frozen header row, merged A5:B6, styled A1):
//	  A1 Item    B1 Amount  C1 When        D1 Active
//	  A2 Widget  B2 42.5    C2 2024-03-01  D2 true
//	  A3 Gadget  B3 7       C3 2024-03-02  D3 false
//	  A4 Total   B4 49.5
//	  A5 Notes (merged through B6)
//	Summary:
//	  A1 Sum     B1 100
func fixtureBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	require.NoError(t, f.SetSheetName("Sheet1", "Sales"))
	require.NoError(t, f.SetCellValue("Sales", "A1", "Item"))
	require.NoError(t, f.SetCellValue("Sales", "B1", "Amount"))
	require.NoError(t, f.SetCellValue("Sales", "C1", "When"))
	require.NoError(t, f.SetCellValue("Sales", "D1", "Active"))
	require.NoError(t, f.SetCellValue("Sales", "A2", "Widget"))
	require.NoError(t, f.SetCellValue("Sales", "B2", 42.5))
	require.NoError(t, f.SetCellValue("Sales", "C2", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellBool("Sales", "D2", true))
	require.NoError(t, f.SetCellValue("Sales", "A3", "Gadget"))
	require.NoError(t, f.SetCellValue("Sales", "B3", 7))
	require.NoError(t, f.SetCellValue("Sales", "C3", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellBool("Sales", "D3", false))
	require.NoError(t, f.SetCellValue("Sales", "A4", "Total"))
	require.NoError(t, f.SetCellValue("Sales", "B4", 49.5))
	require.NoError(t, f.SetCellValue("Sales", "A5", "Notes"))
	require.NoError(t, f.MergeCell("Sales", "A5", "B6"))

	styleID, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FF0000"}},
	})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sales", "A1", "A1", styleID))
	require.NoError(t, f.SetColWidth("Sales", "A", "A", 20))
	require.NoError(t, f.SetRowHeight("Sales", 1, 28))

	require.NoError(t, f.SetPanes("Sales", &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}))

	_, err = f.NewSheet("Summary")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Summary", "A1", "Sum"))
	require.NoError(t, f.SetCellValue("Summary", "B1", 100))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func loadFixture(t *testing.T) *Workbook {
	t.Helper()
	wb, err := Load(fixtureBytes(t))
	require.NoError(t, err)
	return wb
}

func TestLoadRejectsCorruptedBytes(t *testing.T) {
	wb, err := Load([]byte("this is not a spreadsheet"))
	assert.Nil(t, wb)
	var formatErr *InvalidFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, err.Error(), "re-upload")
}

func TestLoadSheetStructure(t *testing.T) {
	wb := loadFixture(t)
	assert.Equal(t, []string{"Sales", "Summary"}, wb.SheetNames())

	sales, ok := wb.Sheet("Sales")
	require.True(t, ok)
	assert.GreaterOrEqual(t, sales.MaxRow, 5)
	assert.GreaterOrEqual(t, sales.MaxCol, 4)
	assert.Equal(t, 1, sales.FrozenRows)
	assert.Equal(t, 0, sales.FrozenCols)
	assert.Equal(t, "A2", sales.FreezePane)

	summary, ok := wb.Sheet("Summary")
	require.True(t, ok)
	assert.Equal(t, 0, summary.FrozenRows)
	assert.Equal(t, 1, summary.MaxRow)
	assert.Equal(t, 2, summary.MaxCol)
}

func TestLoadTypedValues(t *testing.T) {
	wb := loadFixture(t)
	sales, _ := wb.Sheet("Sales")

	item := sales.CellAt(1, 1).Value
	assert.Equal(t, KindText, item.Kind)
	assert.Equal(t, "Item", item.Text)

	amount := sales.CellAt(2, 2).Value
	assert.Equal(t, KindNumber, amount.Kind)
	assert.Equal(t, 42.5, amount.Number)

	when := sales.CellAt(2, 3).Value
	require.Equal(t, KindDate, when.Kind)
	assert.Equal(t, "2024-03-01", when.Native())

	active := sales.CellAt(2, 4).Value
	assert.Equal(t, KindBool, active.Kind)
	assert.True(t, active.Bool)

	inactive := sales.CellAt(3, 4).Value
	assert.Equal(t, KindBool, inactive.Kind)
	assert.False(t, inactive.Bool)

	blank := sales.CellAt(4, 3).Value
	assert.True(t, blank.IsEmpty())

	outside := sales.CellAt(999, 999).Value
	assert.Equal(t, KindNull, outside.Kind)
}

func TestMergedRegions(t *testing.T) {
	wb := loadFixture(t)
	sales, _ := wb.Sheet("Sales")

	regions := sales.MergedRegions()
	require.Len(t, regions, 1)
	assert.Equal(t, "A5:B6", regions[0].Range.String())
	assert.Equal(t, Coordinate{Row: 5, Col: 1}, regions[0].Anchor)
	assert.Equal(t, "Notes", regions[0].Value.Text)

	// Second access returns the cached index, not a recomputed one.
	again := sales.MergedRegions()
	assert.Same(t, &regions[0], &again[0])

	region, ok := sales.MergeAt(Coordinate{Row: 6, Col: 2})
	require.True(t, ok)
	assert.Equal(t, "A5:B6", region.Range.String())

	_, ok = sales.MergeAt(Coordinate{Row: 1, Col: 1})
	assert.False(t, ok)
}

func TestMergedRegionAnchorFallback(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	// Value parked off-anchor inside the merged region.
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "displaced"))
	require.NoError(t, f.MergeCell("Sheet1", "A1", "C3"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := Load(buf.Bytes())
	require.NoError(t, err)
	sheet, _ := wb.Sheet("Sheet1")
	regions := sheet.MergedRegions()
	require.Len(t, regions, 1)
	assert.Equal(t, Coordinate{Row: 2, Col: 2}, regions[0].Anchor)
	assert.Equal(t, "displaced", regions[0].Value.Text)
}

func TestFingerprintStability(t *testing.T) {
	data := fixtureBytes(t)
	assert.Equal(t, ComputeFingerprint(data), ComputeFingerprint(data))
	assert.NotEqual(t, ComputeFingerprint(data), ComputeFingerprint(append([]byte{0}, data...)))
	assert.Len(t, ComputeFingerprint(data), 32)
}

func TestStyleFor(t *testing.T) {
	wb := loadFixture(t)
	sales, _ := wb.Sheet("Sales")

	styled := sales.CellAt(1, 1)
	style := sales.StyleFor(Coordinate{Row: 1, Col: 1}, styled.StyleID)
	require.NotNil(t, style)
	assert.Equal(t, "#FF0000", style.FillColor)
	assert.Equal(t, 20.0, style.ColumnWidth)
	assert.Equal(t, 28.0, style.RowHeight)
}
