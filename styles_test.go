package xlcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDateFormatCode(t *testing.T) {
	assert.True(t, isDateFormatCode("yyyy-mm-dd"))
	assert.False(t, isDateFormatCode("#,##0.00"))
	assert.False(t, isDateFormatCode("@"))
	// The general rule (y/m/d/h/s outside quoted literals) governs: the
	// unquoted "mm" still makes this a date format despite the quoted "y"
	// (see DESIGN.md's date-format quoted-literal edge case note).
	assert.True(t, isDateFormatCode(`"y"mm`))
}

func TestIsDateFormatBuiltinRange(t *testing.T) {
	s := &StylesInfo{CellXfs: []CellFormat{{NumFmtID: 14}, {NumFmtID: 22}, {NumFmtID: 13}, {NumFmtID: 23}}}
	assert.True(t, s.IsDateFormat(0))
	assert.True(t, s.IsDateFormat(1))
	assert.False(t, s.IsDateFormat(2))
	assert.False(t, s.IsDateFormat(3))
}

func TestIsDateFormatCustomCode(t *testing.T) {
	s := &StylesInfo{
		NumFmts: map[int]string{200: "yyyy-mm-dd", 201: "#,##0.00"},
		CellXfs: []CellFormat{{NumFmtID: 200}, {NumFmtID: 201}},
	}
	assert.True(t, s.IsDateFormat(0))
	assert.False(t, s.IsDateFormat(1))
}

func TestIsDateFormatOutOfRangeIndex(t *testing.T) {
	s := &StylesInfo{}
	assert.False(t, s.IsDateFormat(-1))
	assert.False(t, s.IsDateFormat(5))
}
