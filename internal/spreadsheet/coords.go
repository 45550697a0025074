package spreadsheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Coordinate is a 1-based (row, column) cell position.
type Coordinate struct {
	Row int
	Col int
}

// Excel hard limits
const (
	MaxRows    = 1048576
	MaxColumns = 16384
)

var (
	cellPattern       = regexp.MustCompile(`^[A-Za-z]+[0-9]+$`)
	columnOnlyPattern = regexp.MustCompile(`^[A-Za-z]+(:[A-Za-z]+)?$`)
	rowOnlyPattern    = regexp.MustCompile(`^[0-9]+(:[0-9]+)?$`)
)

// ColumnNameToIndex interprets a base-26 column label case-insensitively
// (A=1, Z=26, AA=27, ...).
func ColumnNameToIndex(name string) (int, error) {
	if name == "" {
		return 0, &InvalidCoordinateError{Token: name, Message: "column label is empty"}
	}
	idx := 0
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			idx = idx*26 + int(r-'A') + 1
		case r >= 'a' && r <= 'z':
			idx = idx*26 + int(r-'a') + 1
		default:
			return 0, &InvalidCoordinateError{Token: name, Message: "column label must be alphabetic"}
		}
		if idx > MaxColumns {
			return 0, &InvalidCoordinateError{Token: name, Message: fmt.Sprintf("column exceeds limit of %d", MaxColumns)}
		}
	}
	return idx, nil
}

// ColumnIndexToName is the inverse of ColumnNameToIndex.
func ColumnIndexToName(idx int) (string, error) {
	if idx < 1 {
		return "", &InvalidCoordinateError{Token: strconv.Itoa(idx), Message: "column index must be >= 1"}
	}
	var b []byte
	for idx > 0 {
		idx--
		b = append([]byte{byte('A' + idx%26)}, b...)
		idx /= 26
	}
	return string(b), nil
}

// ParseCoordinate parses a cell reference like "A1" into a Coordinate.
// Absolute markers ($A$1) are tolerated and stripped.
func ParseCoordinate(ref string) (Coordinate, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(ref), "$", "")
	if !cellPattern.MatchString(cleaned) {
		return Coordinate{}, &InvalidCoordinateError{Token: ref, Message: "expected a cell reference like 'A1'"}
	}
	split := 0
	for split < len(cleaned) && !isDigit(cleaned[split]) {
		split++
	}
	col, err := ColumnNameToIndex(cleaned[:split])
	if err != nil {
		return Coordinate{}, err
	}
	row, err := strconv.Atoi(cleaned[split:])
	if err != nil || row < 1 {
		return Coordinate{}, &InvalidCoordinateError{Token: ref, Message: "row number must be a positive integer"}
	}
	if row > MaxRows {
		return Coordinate{}, &InvalidCoordinateError{Token: ref, Message: fmt.Sprintf("row exceeds limit of %d", MaxRows)}
	}
	return Coordinate{Row: row, Col: col}, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Name renders the coordinate as a cell reference like "A1".
func (c Coordinate) Name() string {
	name, err := ColumnIndexToName(c.Col)
	if err != nil {
		return ""
	}
	return name + strconv.Itoa(c.Row)
}

// RangeKind classifies a parsed range expression.
type RangeKind int

const (
	RangeEmpty RangeKind = iota
	RangeSingleCell
	RangeFull
	RangeColumnOnly
	RangeRowOnly
)

// RangeExpression is the parsed form of a caller-supplied range string.
// Exactly one of the coordinate sets is meaningful depending on Kind.
type RangeExpression struct {
	Raw   string
	Sheet string // optional "Sheet!" qualifier
	Kind  RangeKind

	Start Coordinate // SingleCell (both == Start) and Full
	End   Coordinate

	StartCol, EndCol int // ColumnOnly
	StartRow, EndRow int // RowOnly
}

// ParseRangeExpression parses a range string: a bare range ("A1:D10"), a
// sheet-qualified range ("Sheet1!A1:D10"), a single cell, a column-only
// reference ("J" or "J:K") or a row-only reference ("3" or "3:7").
func ParseRangeExpression(input string) (RangeExpression, error) {
	expr := RangeExpression{Raw: input}
	s := strings.TrimSpace(input)
	if s == "" {
		expr.Kind = RangeEmpty
		return expr, nil
	}

	if i := strings.LastIndex(s, "!"); i >= 0 {
		expr.Sheet = strings.Trim(s[:i], "'")
		s = s[i+1:]
	}
	s = strings.ReplaceAll(s, "$", "")

	switch {
	case cellPattern.MatchString(s):
		coord, err := ParseCoordinate(s)
		if err != nil {
			return expr, err
		}
		expr.Kind = RangeSingleCell
		expr.Start, expr.End = coord, coord
		return expr, nil

	case columnOnlyPattern.MatchString(s):
		parts := strings.SplitN(s, ":", 2)
		start, err := ColumnNameToIndex(parts[0])
		if err != nil {
			return expr, err
		}
		end := start
		if len(parts) == 2 {
			if end, err = ColumnNameToIndex(parts[1]); err != nil {
				return expr, err
			}
		}
		if end < start {
			return expr, &InvalidCoordinateError{Token: input, Message: "end column precedes start column"}
		}
		expr.Kind = RangeColumnOnly
		expr.StartCol, expr.EndCol = start, end
		return expr, nil

	case rowOnlyPattern.MatchString(s):
		parts := strings.SplitN(s, ":", 2)
		start, err := strconv.Atoi(parts[0])
		if err != nil || start < 1 {
			return expr, &InvalidCoordinateError{Token: input, Message: "row number must be a positive integer"}
		}
		end := start
		if len(parts) == 2 {
			if end, err = strconv.Atoi(parts[1]); err != nil || end < 1 {
				return expr, &InvalidCoordinateError{Token: input, Message: "row number must be a positive integer"}
			}
		}
		if end < start {
			return expr, &InvalidCoordinateError{Token: input, Message: "end row precedes start row"}
		}
		expr.Kind = RangeRowOnly
		expr.StartRow, expr.EndRow = start, end
		return expr, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return expr, &InvalidCoordinateError{Token: input, Message: "expected a range like 'A1:D10'"}
	}
	start, err := ParseCoordinate(parts[0])
	if err != nil {
		return expr, err
	}
	end, err := ParseCoordinate(parts[1])
	if err != nil {
		return expr, err
	}
	if end.Row < start.Row || end.Col < start.Col {
		return expr, &InvalidCoordinateError{Token: input, Message: "end cell precedes start cell"}
	}
	expr.Kind = RangeFull
	expr.Start, expr.End = start, end
	return expr, nil
}

// CanonicalRange is a resolved, bounded rectangle: both coordinates are
// >= (1,1) and End is never before Start.
type CanonicalRange struct {
	Start Coordinate
	End   Coordinate
}

// String renders the range as "A1:D10".
func (r CanonicalRange) String() string {
	return r.Start.Name() + ":" + r.End.Name()
}

// Rows returns the row count of the rectangle.
func (r CanonicalRange) Rows() int { return r.End.Row - r.Start.Row + 1 }

// Cols returns the column count of the rectangle.
func (r CanonicalRange) Cols() int { return r.End.Col - r.Start.Col + 1 }

// Cells returns the total cell count of the rectangle.
func (r CanonicalRange) Cells() int { return r.Rows() * r.Cols() }

// Contains reports whether the coordinate falls inside the rectangle.
func (r CanonicalRange) Contains(c Coordinate) bool {
	return c.Row >= r.Start.Row && c.Row <= r.End.Row &&
		c.Col >= r.Start.Col && c.Col <= r.End.Col
}

// Covers reports whether other is fully inside r.
func (r CanonicalRange) Covers(other CanonicalRange) bool {
	return r.Contains(other.Start) && r.Contains(other.End)
}

// Union returns the bounding box of both rectangles.
func (r CanonicalRange) Union(other CanonicalRange) CanonicalRange {
	return CanonicalRange{
		Start: Coordinate{Row: min(r.Start.Row, other.Start.Row), Col: min(r.Start.Col, other.Start.Col)},
		End:   Coordinate{Row: max(r.End.Row, other.End.Row), Col: max(r.End.Col, other.End.Col)},
	}
}

// ParseCanonicalRange parses a strict "A1:D10" or "A1" string into a
// CanonicalRange, as produced by the underlying parser for dimensions
// and merge ranges.
func ParseCanonicalRange(s string) (CanonicalRange, error) {
	parts := strings.Split(strings.ReplaceAll(s, "$", ""), ":")
	start, err := ParseCoordinate(parts[0])
	if err != nil {
		return CanonicalRange{}, err
	}
	end := start
	if len(parts) == 2 {
		if end, err = ParseCoordinate(parts[1]); err != nil {
			return CanonicalRange{}, err
		}
	}
	if end.Row < start.Row || end.Col < start.Col {
		return CanonicalRange{}, &InvalidCoordinateError{Token: s, Message: "end cell precedes start cell"}
	}
	return CanonicalRange{Start: start, End: end}, nil
}
