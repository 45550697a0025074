package spreadsheet

import "fmt"

// InvalidCoordinateError represents malformed coordinate or range syntax.
// Syntax errors are permanent for the given input and are never retried.
type InvalidCoordinateError struct {
	Token   string
	Message string
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate '%s': %s", e.Token, e.Message)
}

// InvalidFormatError indicates the supplied bytes are not a parseable workbook
type InvalidFormatError struct {
	Cause error
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("not a valid spreadsheet file: %v (verify the file opens in Excel and re-upload if corrupted)", e.Cause)
}

func (e *InvalidFormatError) Unwrap() error {
	return e.Cause
}

// RangeTooLargeError indicates a normalized range exceeds a configured ceiling.
// Dimension names which ceiling was exceeded ("cells", "rows" or "columns").
type RangeTooLargeError struct {
	Range     string
	Dimension string
	Actual    int
	Limit     int
}

func (e *RangeTooLargeError) Error() string {
	return fmt.Sprintf("range '%s' exceeds the maximum of %d %s (requested %d); narrow cell_range and try again",
		e.Range, e.Limit, e.Dimension, e.Actual)
}

// WorkbookError represents errors related to workbook operations
type WorkbookError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *WorkbookError) Error() string {
	return fmt.Sprintf("workbook error during %s on %s: %v", e.Operation, e.Path, e.Cause)
}

func (e *WorkbookError) Unwrap() error {
	return e.Cause
}

// SheetError represents errors related to worksheet operations
type SheetError struct {
	Operation string
	SheetName string
	Cause     error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("worksheet error during %s on sheet '%s': %v", e.Operation, e.SheetName, e.Cause)
}

func (e *SheetError) Unwrap() error {
	return e.Cause
}
