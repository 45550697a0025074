package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchORTerms(t *testing.T) {
	wb := loadFixture(t)

	// "Total" hits Sales!A4, "Sum" hits Summary!A1 (and nothing else),
	// case-insensitively, in scan order.
	result := Search(wb, "total,SUM", SearchOptions{Limits: DefaultLimits()})
	require.Equal(t, 2, result.MatchCount)
	assert.Equal(t, "Sales", result.Matches[0].Sheet)
	assert.Equal(t, "A4", result.Matches[0].Coordinate)
	assert.Equal(t, "Summary", result.Matches[1].Sheet)
	assert.Equal(t, "A1", result.Matches[1].Coordinate)
}

func TestSearchNoMatchesIsNotAnError(t *testing.T) {
	wb := loadFixture(t)
	result := Search(wb, "nothing-here", SearchOptions{Limits: DefaultLimits()})
	assert.Equal(t, 0, result.MatchCount)
	assert.NotNil(t, result.Matches)
	assert.Empty(t, result.Matches)
}

func TestSearchSheetRestriction(t *testing.T) {
	wb := loadFixture(t)
	result := Search(wb, "sum", SearchOptions{Sheet: "Sales", Limits: DefaultLimits()})
	assert.Equal(t, 0, result.MatchCount)

	result = Search(wb, "sum", SearchOptions{Sheet: "Summary", Limits: DefaultLimits()})
	assert.Equal(t, 1, result.MatchCount)
}

func TestSearchSurroundingCells(t *testing.T) {
	wb := loadFixture(t)
	result := Search(wb, "Widget", SearchOptions{IncludeSurroundingCells: true, Limits: DefaultLimits()})
	require.Equal(t, 1, result.MatchCount)

	row := result.Matches[0].Row
	require.NotEmpty(t, row)
	// The full containing row is inlined: Widget, 42.5, the date, true.
	assert.Equal(t, "A2", row[0].Coordinate)
	assert.Equal(t, "Widget", row[0].Value.Text)
	assert.Equal(t, 42.5, row[1].Value.Number)
	assert.Equal(t, KindBool, row[3].Value.Kind)
}

func TestSearchWithoutSurroundingCells(t *testing.T) {
	wb := loadFixture(t)
	result := Search(wb, "Widget", SearchOptions{Limits: DefaultLimits()})
	require.Equal(t, 1, result.MatchCount)
	assert.Empty(t, result.Matches[0].Row)
}

func TestSearchNumericValues(t *testing.T) {
	wb := loadFixture(t)
	// Numbers are matched on their stringified form.
	result := Search(wb, "42.5", SearchOptions{Limits: DefaultLimits()})
	require.Equal(t, 1, result.MatchCount)
	assert.Equal(t, "B2", result.Matches[0].Coordinate)
}

func TestSearchMatchCeiling(t *testing.T) {
	wb := loadFixture(t)
	result := Search(wb, "a", SearchOptions{Limits: Limits{MaxMatches: 2}})
	assert.Equal(t, 2, result.MatchCount)
	assert.True(t, result.Truncated)
}

func TestSearchEmptyQuery(t *testing.T) {
	wb := loadFixture(t)
	result := Search(wb, " , ,", SearchOptions{Limits: DefaultLimits()})
	assert.Equal(t, 0, result.MatchCount)
}
