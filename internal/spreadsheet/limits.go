package spreadsheet

// Limits holds the read ceilings enforced after range normalization.
// They exist to bound memory and response size, not to mirror Excel's
// own limits; callers can override them through configuration.
type Limits struct {
	MaxRangeCells int
	MaxRangeRows  int
	MaxRangeCols  int
	MaxMatches    int // search result ceiling
}

// DefaultLimits returns conservative ceilings sized for responses a
// language-model consumer can actually digest.
func DefaultLimits() Limits {
	return Limits{
		MaxRangeCells: 10000,
		MaxRangeRows:  1000,
		MaxRangeCols:  100,
		MaxMatches:    500,
	}
}

// Check validates a normalized range against the ceilings. The returned
// error names the first dimension that exceeded its ceiling.
func (l Limits) Check(r CanonicalRange) error {
	if l.MaxRangeRows > 0 && r.Rows() > l.MaxRangeRows {
		return &RangeTooLargeError{Range: r.String(), Dimension: "rows", Actual: r.Rows(), Limit: l.MaxRangeRows}
	}
	if l.MaxRangeCols > 0 && r.Cols() > l.MaxRangeCols {
		return &RangeTooLargeError{Range: r.String(), Dimension: "columns", Actual: r.Cols(), Limit: l.MaxRangeCols}
	}
	if l.MaxRangeCells > 0 && r.Cells() > l.MaxRangeCells {
		return &RangeTooLargeError{Range: r.String(), Dimension: "cells", Actual: r.Cells(), Limit: l.MaxRangeCells}
	}
	return nil
}
