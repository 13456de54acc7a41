package xlcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixtureSheet(t *testing.T) *Sheet {
	t.Helper()
	sst := &SharedStrings{}
	sst.Add("hello")
	sst.AddRich(RichText{Runs: []TextRun{{Text: "world"}}})

	raw := &WorksheetData{
		Dimension: "A1:B2",
		Rows: []RawRow{
			{
				Index: 1,
				Cells: []RawCell{
					{Ref: CellReference{Col: 1, Row: 1}, Value: RawCellValue{Kind: RawSharedString, SSTIdx: 0}},
					{Ref: CellReference{Col: 2, Row: 1}, Value: RawCellValue{Kind: RawSharedString, SSTIdx: 1}},
				},
			},
			{
				Index: 2,
				Cells: []RawCell{
					{Ref: CellReference{Col: 1, Row: 2}, Value: RawCellValue{Kind: RawSharedString, SSTIdx: 99}},
				},
			},
		},
	}
	return &Sheet{
		info:          SheetInfo{Name: "Sheet1"},
		raw:           raw,
		sharedStrings: sst,
		styles:        &StylesInfo{},
	}
}

func TestSharedStringResolution(t *testing.T) {
	sh := newFixtureSheet(t)

	plain := sh.Cell(CellReference{Col: 1, Row: 1})
	require.Equal(t, ValueText, plain.Kind)
	assert.Equal(t, "hello", plain.Text)

	rich := sh.Cell(CellReference{Col: 2, Row: 1})
	require.Equal(t, ValueRichText, rich.Kind)
	assert.Equal(t, "world", rich.Rich.PlainText())
}

func TestSharedStringOutOfRangeBecomesErrorValue(t *testing.T) {
	sh := newFixtureSheet(t)
	v := sh.Cell(CellReference{Col: 1, Row: 2})
	assert.Equal(t, ValueError, v.Kind)
}

func TestCellOnMissingRowIsEmpty(t *testing.T) {
	sh := newFixtureSheet(t)
	v := sh.Cell(CellReference{Col: 5, Row: 99})
	assert.Equal(t, ValueEmpty, v.Kind)
}

func TestSerialDate1900Bug(t *testing.T) {
	assert.Equal(t, "1900-02-28", serialToISODate(59))
	assert.Equal(t, "1900-03-01", serialToISODate(61))
	// serial 60 is the fictitious 1900-02-29; must not panic.
	assert.NotPanics(t, func() { serialToISODate(60) })
}

func TestFindExactMatch(t *testing.T) {
	sh := newFixtureSheet(t)
	refs := sh.Find("hello")
	require.Len(t, refs, 1)
	assert.Equal(t, CellReference{Col: 1, Row: 1}, refs[0])
}

func TestFindAllPredicate(t *testing.T) {
	sh := newFixtureSheet(t)
	refs := sh.FindAll(func(v CellValue) bool { return v.Kind == ValueError })
	require.Len(t, refs, 1)
	assert.Equal(t, CellReference{Col: 1, Row: 2}, refs[0])
}

func TestResolveNumberWithDateStyleBecomesDate(t *testing.T) {
	sh := newFixtureSheet(t)
	sh.styles = &StylesInfo{CellXfs: []CellFormat{{NumFmtID: 14}}}
	styleID := 0
	v := sh.resolve(RawCellValue{Kind: RawNumber, Num: 45292}, &styleID)
	require.Equal(t, ValueDate, v.Kind)
	assert.Equal(t, "2024-01-01", v.Date)
}
