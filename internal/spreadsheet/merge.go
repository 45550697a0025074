package spreadsheet

import "sort"

// MergedRegion is a rectangular block of visually merged cells. Anchor
// is the coordinate whose value the region displays: the top-left cell,
// or the first non-empty cell in row-major order when the top-left is
// empty (some producers park the value elsewhere in the region).
type MergedRegion struct {
	Range  CanonicalRange
	Anchor Coordinate
	Value  CellValue
}

// MergeInfo is the per-cell merge membership record emitted during
// extraction.
type MergeInfo struct {
	Range    string `json:"range"`
	IsAnchor bool   `json:"is_anchor"`
}

// MergedRegions returns the sheet's merged regions, sorted by top-left
// position. The index is computed once per sheet on first access and
// reused for every later call against the same loaded workbook.
func (s *Sheet) MergedRegions() []MergedRegion {
	s.mergeOnce.Do(func() {
		s.merged = s.computeMergedRegions()
	})
	return s.merged
}

func (s *Sheet) computeMergedRegions() []MergedRegion {
	s.wb.fileMu.Lock()
	mergeCells, err := s.wb.file.GetMergeCells(s.Name)
	s.wb.fileMu.Unlock()
	if err != nil {
		return nil
	}

	regions := make([]MergedRegion, 0, len(mergeCells))
	for _, mc := range mergeCells {
		start, err := ParseCoordinate(mc.GetStartAxis())
		if err != nil {
			continue
		}
		end, err := ParseCoordinate(mc.GetEndAxis())
		if err != nil {
			continue
		}
		region := MergedRegion{
			Range:  CanonicalRange{Start: start, End: end},
			Anchor: start,
			Value:  s.CellAt(start.Row, start.Col).Value,
		}
		if region.Value.IsEmpty() {
			region.Anchor, region.Value = s.firstPopulated(region.Range)
		}
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool {
		a, b := regions[i].Range.Start, regions[j].Range.Start
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	return regions
}

// firstPopulated scans a rectangle in row-major order for the first
// non-empty cell; falls back to the top-left when the region is blank.
func (s *Sheet) firstPopulated(r CanonicalRange) (Coordinate, CellValue) {
	for row := r.Start.Row; row <= r.End.Row; row++ {
		for col := r.Start.Col; col <= r.End.Col; col++ {
			cell := s.CellAt(row, col)
			if !cell.Value.IsEmpty() {
				return Coordinate{Row: row, Col: col}, cell.Value
			}
		}
	}
	return r.Start, NullValue()
}

// MergeAt returns the merged region containing the coordinate, if any.
// Regions never overlap within a sheet, so the first hit is the only one.
func (s *Sheet) MergeAt(c Coordinate) (MergedRegion, bool) {
	for _, region := range s.MergedRegions() {
		if region.Range.Start.Row > c.Row {
			break // sorted by start row; nothing later can contain c
		}
		if region.Range.Contains(c) {
			return region, true
		}
	}
	return MergedRegion{}, false
}
