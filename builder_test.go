package xlcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTwoSheetWorkbook(t *testing.T) []byte {
	t.Helper()
	w := NewWorkbookWriter()
	boldStyle := w.Style(CellFormat{FontID: 1})

	s1 := w.AddSheet("First")
	ref, err := ParseCellReference("A1")
	require.NoError(t, err)
	s1.WriteText(ref, "hello")
	s1.Style(ref, boldStyle)
	s1.MergeCells("A1:B1")

	s2 := w.AddSheet("Second")
	ref2, err := ParseCellReference("C3")
	require.NoError(t, err)
	s2.WriteNumber(ref2, 42)

	w.AddDefinedName(DefinedName{Name: "MyRange", RefersTo: "First!$A$1"})

	data, err := w.Save()
	require.NoError(t, err)
	return data
}

func TestBuildThenReopenRoundTrip(t *testing.T) {
	data := buildTwoSheetWorkbook(t)

	wb, err := Open(data)
	require.NoError(t, err)

	sheets := wb.Sheets()
	require.Len(t, sheets, 2)
	assert.Equal(t, "First", sheets[0].Name)
	assert.Equal(t, "Second", sheets[1].Name)

	sheet1, err := wb.Sheet("First")
	require.NoError(t, err)
	v := sheet1.Cell(CellReference{Col: 1, Row: 1})
	require.Equal(t, ValueText, v.Kind)
	assert.Equal(t, "hello", v.Text)

	style := sheet1.CellStyle(CellReference{Col: 1, Row: 1})
	assert.Equal(t, 1, style.FontID)

	merged := sheet1.MergedRanges()
	require.Len(t, merged, 1)
	assert.Equal(t, CellRange{MinRow: 1, MaxRow: 1, MinCol: 1, MaxCol: 2}, merged[0])

	sheet2, err := wb.Sheet("Second")
	require.NoError(t, err)
	v2 := sheet2.Cell(CellReference{Col: 3, Row: 3})
	require.Equal(t, ValueNumber, v2.Kind)
	assert.Equal(t, 42.0, v2.Num)

	names := wb.DefinedNames()
	require.Len(t, names, 1)
	assert.Equal(t, "MyRange", names[0].Name)
	assert.Equal(t, "First!$A$1", names[0].RefersTo)
}

func TestDeterministicSerialization(t *testing.T) {
	a := buildTwoSheetWorkbook(t)
	b := buildTwoSheetWorkbook(t)
	assert.Equal(t, a, b, "two equivalent builder sequences must produce byte-identical output")
}

func TestPrintAreaAndTitlesRoundTrip(t *testing.T) {
	w := NewWorkbookWriter()
	s1 := w.AddSheet("First")
	s1.SetPrintArea("A1:D20")
	s1.SetPrintTitles("$1:$2", "$A:$A")
	w.AddSheet("Second")

	data, err := w.Save()
	require.NoError(t, err)

	wb, err := Open(data)
	require.NoError(t, err)

	sheet1, err := wb.Sheet("First")
	require.NoError(t, err)
	require.NotNil(t, sheet1.PrintArea())
	assert.Equal(t, "A1:D20", sheet1.PrintArea().Ref)
	require.NotNil(t, sheet1.PrintTitles())
	assert.Equal(t, "$1:$2", sheet1.PrintTitles().Rows)
	assert.Equal(t, "$A:$A", sheet1.PrintTitles().Cols)

	sheet2, err := wb.Sheet("Second")
	require.NoError(t, err)
	assert.Nil(t, sheet2.PrintArea())
	assert.Nil(t, sheet2.PrintTitles())
}

func TestAutoFilterColumnRoundTrip(t *testing.T) {
	w := NewWorkbookWriter()
	s1 := w.AddSheet("First")
	s1.SetAutoFilter("A1:B10")
	s1.SetAutoFilterColumn(0, "Apples", "Pears")

	data, err := w.Save()
	require.NoError(t, err)

	wb, err := Open(data)
	require.NoError(t, err)
	sheet1, err := wb.Sheet("First")
	require.NoError(t, err)

	af := sheet1.AutoFilter()
	require.NotNil(t, af)
	assert.Equal(t, "A1:B10", af.Ref)
	require.Len(t, af.FilterColumns, 1)
	assert.Equal(t, 0, af.FilterColumns[0].ColID)
	require.Len(t, af.FilterColumns[0].Filters, 2)
	assert.Equal(t, "Apples", af.FilterColumns[0].Filters[0].Val)
	assert.Equal(t, "Pears", af.FilterColumns[0].Filters[1].Val)
}

func TestDocPropsRoundTrip(t *testing.T) {
	w := NewWorkbookWriter()
	w.AddSheet("First")
	w.SetCoreProperties(CoreProperties{Title: "Quarterly Report", Creator: "Alice", Created: "2026-01-01T00:00:00Z"})
	w.SetAppProperties(AppProperties{Application: "xlcore", Company: "Acme"})

	data, err := w.Save()
	require.NoError(t, err)

	wb, err := Open(data)
	require.NoError(t, err)

	core, err := wb.CoreProperties()
	require.NoError(t, err)
	require.NotNil(t, core)
	assert.Equal(t, "Quarterly Report", core.Title)
	assert.Equal(t, "Alice", core.Creator)
	assert.Equal(t, "2026-01-01T00:00:00Z", core.Created)

	app, err := wb.AppProperties()
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, "xlcore", app.Application)
	assert.Equal(t, "Acme", app.Company)
}

func TestDocPropsAbsentWhenUnset(t *testing.T) {
	data := buildTwoSheetWorkbook(t)
	wb, err := Open(data)
	require.NoError(t, err)

	core, err := wb.CoreProperties()
	require.NoError(t, err)
	assert.Nil(t, core)

	app, err := wb.AppProperties()
	require.NoError(t, err)
	assert.Nil(t, app)
}

func TestSaveAssignsPerSheetTableRelIDs(t *testing.T) {
	w := NewWorkbookWriter()
	s1 := w.AddSheet("S1")
	cols := []TableColumn{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	s1.AddTable(TableData{Name: "T1", Ref: "A1:B2", Columns: cols})
	s1.AddTable(TableData{Name: "T2", Ref: "D1:E2", Columns: cols})
	s2 := w.AddSheet("S2")
	s2.AddTable(TableData{Name: "T3", Ref: "A1:B2", Columns: cols})

	data, err := w.Save()
	require.NoError(t, err)

	wb, err := Open(data)
	require.NoError(t, err)
	require.Len(t, wb.Tables, 3)
}
