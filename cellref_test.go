package xlcore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellReferenceRoundTrip(t *testing.T) {
	cases := []string{"A1", "Z9", "AA10", "AZ51", "BA1", "$A$1", "A$1", "$A1", "XFD1048576"}
	for _, s := range cases {
		ref, err := ParseCellReference(s)
		require.NoError(t, err, s)
		want := strings.ToUpper(strings.ReplaceAll(s, "$", ""))
		assert.Equal(t, want, ref.String(), s)
	}
}

func TestCellReferenceRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "1A", "A", "1", "A-1"} {
		_, err := ParseCellReference(s)
		assert.Error(t, err, s)
	}
}

func TestColumnIndexBijection(t *testing.T) {
	for i := 0; i <= 16383; i++ {
		letters := ColumnIndexToLetters(i)
		assert.Equal(t, i, ColumnLettersToIndex(letters), "index=%d letters=%s", i, letters)
	}
}

func TestColumnIndexToLettersKnownValues(t *testing.T) {
	cases := map[int]string{0: "A", 25: "Z", 26: "AA", 51: "AZ", 52: "BA"}
	for idx, want := range cases {
		assert.Equal(t, want, ColumnIndexToLetters(idx))
	}
}

func TestCellRangeIntersects(t *testing.T) {
	a := CellRange{MinRow: 1, MaxRow: 5, MinCol: 1, MaxCol: 5}
	b := CellRange{MinRow: 3, MaxRow: 10, MinCol: 3, MaxCol: 10}
	disjoint := CellRange{MinRow: 100, MaxRow: 101, MinCol: 1, MaxCol: 1}

	assert.True(t, a.Intersects(b))
	assert.True(t, b.Intersects(a), "intersects must be commutative")
	assert.True(t, a.Intersects(a), "intersects must be reflexive")
	assert.False(t, a.Intersects(disjoint))
	assert.False(t, disjoint.Intersects(a))
}

func TestParseCellRangeSingleRef(t *testing.T) {
	r, err := ParseCellRange("B2")
	require.NoError(t, err)
	assert.Equal(t, CellRange{MinRow: 2, MaxRow: 2, MinCol: 2, MaxCol: 2}, r)
}

func TestParseCellRangeNormalizesOrder(t *testing.T) {
	r, err := ParseCellRange("C5:A1")
	require.NoError(t, err)
	assert.Equal(t, CellRange{MinRow: 1, MaxRow: 5, MinCol: 1, MaxCol: 3}, r)
}
