package spreadsheet

import (
	"encoding/json"
	"strconv"
	"time"
)

// ValueKind discriminates the CellValue union.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindNumber
	KindBool
	KindDate
	KindFormula
)

// CellValue is a tagged union over the value types a cell can hold.
// Formula cells wrap the computed result so consumers can distinguish
// literal values from calculated ones.
type CellValue struct {
	Kind   ValueKind
	Text   string
	Number float64
	Bool   bool
	Date   time.Time
	Result *CellValue // KindFormula only
}

func NullValue() CellValue              { return CellValue{Kind: KindNull} }
func TextValue(s string) CellValue      { return CellValue{Kind: KindText, Text: s} }
func NumberValue(n float64) CellValue   { return CellValue{Kind: KindNumber, Number: n} }
func BoolValue(b bool) CellValue        { return CellValue{Kind: KindBool, Bool: b} }
func DateValue(t time.Time) CellValue   { return CellValue{Kind: KindDate, Date: t} }
func FormulaValue(r CellValue) CellValue {
	return CellValue{Kind: KindFormula, Result: &r}
}

// IsEmpty reports whether the value is null or empty text.
func (v CellValue) IsEmpty() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindText:
		return v.Text == ""
	case KindFormula:
		return v.Result == nil || v.Result.IsEmpty()
	}
	return false
}

// Native returns the value as the type it should carry in JSON output:
// nil, string, float64 or bool. Dates are formatted as ISO 8601 strings
// since JSON has no date type.
func (v CellValue) Native() any {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number
	case KindBool:
		return v.Bool
	case KindDate:
		return formatDate(v.Date)
	case KindFormula:
		if v.Result != nil {
			return v.Result.Native()
		}
		return nil
	}
	return nil
}

// String renders the value for substring search and logging.
func (v CellValue) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindDate:
		return formatDate(v.Date)
	case KindFormula:
		if v.Result != nil {
			return v.Result.String()
		}
	}
	return ""
}

// MarshalJSON emits the native representation so numeric and boolean
// cell values keep their type on the wire.
func (v CellValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}
