package spreadsheet

// NormalizeOptions controls range normalization behaviour.
type NormalizeOptions struct {
	// IncludeFrozenRows unions the frozen-header rectangle into the
	// effective range so headers travel with any data range.
	IncludeFrozenRows bool
	// ExpandAxisRange expands column-only/row-only input across the
	// sheet's actual populated extent instead of the declared
	// dimensions, at the cost of trusting the full-sheet scan.
	ExpandAxisRange bool
	// MetadataOnly marks a structure-only read. No data rows are
	// emitted for those, so the size ceilings do not apply; the whole
	// point of a metadata read is sizing up files too big to read
	// outright.
	MetadataOnly bool
	Limits       Limits
}

// NormalizeRange turns a parsed range expression plus the target sheet's
// metadata into the effective range actually read. The second return
// value reports whether frozen header rows/columns were auto-included.
//
// Rules are ordered; the first matching rule wins:
//  1. empty input             -> the sheet's full dimensions
//  2. column-only / row-only  -> expanded across the other axis
//  3. single cell "C5"        -> "C1:C5" (column context up to the row)
//  4. single row "D5:H5"      -> "A5:H5" (widened leftward for labels)
//  5. full rectangle          -> as given, clipped to sheet bounds
//
// After the rules, frozen header rows/columns are unioned in (unless
// disabled or already covered), then the size ceilings are enforced.
// Metadata-only reads skip the ceilings.
func NormalizeRange(expr RangeExpression, sheet *Sheet, opts NormalizeOptions) (CanonicalRange, bool, error) {
	maxRow := sheet.MaxRow
	maxCol := sheet.MaxCol
	if maxRow < 1 {
		maxRow = 1
	}
	if maxCol < 1 {
		maxCol = 1
	}

	var effective CanonicalRange
	switch expr.Kind {
	case RangeEmpty:
		effective = CanonicalRange{
			Start: Coordinate{Row: 1, Col: 1},
			End:   Coordinate{Row: maxRow, Col: maxCol},
		}

	case RangeColumnOnly:
		endRow := sheet.declaredMaxRow()
		if opts.ExpandAxisRange {
			endRow = maxRow
		}
		if endRow < 1 {
			endRow = 1
		}
		effective = CanonicalRange{
			Start: Coordinate{Row: 1, Col: expr.StartCol},
			End:   Coordinate{Row: endRow, Col: expr.EndCol},
		}

	case RangeRowOnly:
		endCol := sheet.declaredMaxCol()
		if opts.ExpandAxisRange {
			endCol = maxCol
		}
		if endCol < 1 {
			endCol = 1
		}
		effective = CanonicalRange{
			Start: Coordinate{Row: expr.StartRow, Col: 1},
			End:   Coordinate{Row: expr.EndRow, Col: endCol},
		}

	case RangeSingleCell:
		// A single coordinate usually comes from a search match; the
		// caller wants the column context from the top down to it.
		effective = CanonicalRange{
			Start: Coordinate{Row: 1, Col: expr.Start.Col},
			End:   expr.Start,
		}

	case RangeFull:
		effective = CanonicalRange{Start: expr.Start, End: expr.End}
		if expr.Start.Row == expr.End.Row && expr.Start.Col > 1 {
			// Single-row request: widen leftward so row labels come along.
			effective.Start.Col = 1
		}
		effective = clipRange(effective, maxRow, maxCol)

	default:
		return CanonicalRange{}, false, &InvalidCoordinateError{Token: expr.Raw, Message: "unrecognised range expression"}
	}

	headerIncluded := false
	if opts.IncludeFrozenRows {
		if header, ok := frozenHeaderRect(sheet, effective); ok && !effective.Covers(header) {
			effective = effective.Union(header)
			headerIncluded = true
		}
	}

	if !opts.MetadataOnly {
		if err := opts.Limits.Check(effective); err != nil {
			return CanonicalRange{}, false, err
		}
	}
	return effective, headerIncluded, nil
}

// frozenHeaderRect returns the header rectangle implied by the sheet's
// freeze pane, spanning the effective range's far edge so the union
// stays a tight bounding box.
func frozenHeaderRect(sheet *Sheet, effective CanonicalRange) (CanonicalRange, bool) {
	switch {
	case sheet.FrozenRows > 0:
		return CanonicalRange{
			Start: Coordinate{Row: 1, Col: 1},
			End:   Coordinate{Row: sheet.FrozenRows, Col: effective.End.Col},
		}, true
	case sheet.FrozenCols > 0:
		return CanonicalRange{
			Start: Coordinate{Row: 1, Col: 1},
			End:   Coordinate{Row: effective.End.Row, Col: sheet.FrozenCols},
		}, true
	}
	return CanonicalRange{}, false
}

func clipRange(r CanonicalRange, maxRow, maxCol int) CanonicalRange {
	if r.End.Row > maxRow && r.Start.Row <= maxRow {
		r.End.Row = maxRow
	}
	if r.End.Col > maxCol && r.Start.Col <= maxCol {
		r.End.Col = maxCol
	}
	return r
}
