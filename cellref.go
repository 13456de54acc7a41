package xlcore

import (
	"strconv"
	"strings"
)

// CellReference is a column-letter/row pair. Column letters are
// base-26, one-indexed at the letter level: A=1, Z=26, AA=27; the zero-based
// integer column index is letters_value-1.
type CellReference struct {
	Col int // one-indexed letter value (A=1)
	Row int // one-indexed
}

// ParseCellReference accepts and strips "$" absolute markers; rejects empty
// letter or empty digit components.
func ParseCellReference(s string) (CellReference, error) {
	s = strings.ReplaceAll(s, "$", "")
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	// Tolerate lowercase input by uppercasing first.
	if i == 0 {
		upper := strings.ToUpper(s)
		if upper != s {
			return ParseCellReference(upper)
		}
	}
	letters, digits := s[:i], s[i:]
	if letters == "" || digits == "" {
		return CellReference{}, &PackageError{Code: ErrInvalidCellReference, Detail: s}
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return CellReference{}, &PackageError{Code: ErrInvalidCellReference, Detail: s}
		}
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return CellReference{}, &PackageError{Code: ErrInvalidCellReference, Detail: s}
	}
	col := ColumnLettersToIndex(letters) + 1
	return CellReference{Col: col, Row: row}, nil
}

// String renders the reference with uppercase letters and no "$" markers.
func (c CellReference) String() string {
	return ColumnIndexToLetters(c.Col-1) + strconv.Itoa(c.Row)
}

// ColumnIndexToLetters converts a zero-based column index to base-26
// letters (0->A, 25->Z, 26->AA, 51->AZ, 52->BA).
func ColumnIndexToLetters(index int) string {
	index++ // switch to one-indexed letter value
	var buf []byte
	for index > 0 {
		index--
		buf = append([]byte{byte('A' + index%26)}, buf...)
		index /= 26
	}
	return string(buf)
}

// ColumnLettersToIndex converts base-26 letters (A->0, Z->25, AA->26) to a
// zero-based column index. Input is assumed already uppercase.
func ColumnLettersToIndex(letters string) int {
	n := 0
	for _, c := range letters {
		n = n*26 + int(c-'A'+1)
	}
	return n - 1
}

// CellRange is an inclusive rectangular region, one-indexed on both axes.
type CellRange struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

// ParseCellRange parses an "A1:B2" style range. A bare single reference
// ("A1") yields a 1x1 range.
func ParseCellRange(s string) (CellRange, error) {
	parts := strings.SplitN(s, ":", 2)
	start, err := ParseCellReference(parts[0])
	if err != nil {
		return CellRange{}, err
	}
	end := start
	if len(parts) == 2 {
		end, err = ParseCellReference(parts[1])
		if err != nil {
			return CellRange{}, err
		}
	}
	r := CellRange{MinRow: start.Row, MaxRow: end.Row, MinCol: start.Col, MaxCol: end.Col}
	if r.MinRow > r.MaxRow {
		r.MinRow, r.MaxRow = r.MaxRow, r.MinRow
	}
	if r.MinCol > r.MaxCol {
		r.MinCol, r.MaxCol = r.MaxCol, r.MinCol
	}
	return r, nil
}

// Intersects reports whether a and b overlap; commutative and reflexive.
func (a CellRange) Intersects(b CellRange) bool {
	return a.MinRow <= b.MaxRow && b.MinRow <= a.MaxRow &&
		a.MinCol <= b.MaxCol && b.MinCol <= a.MaxCol
}

// References enumerates every CellReference inside the rectangle, in
// row-major order.
func (a CellRange) References() []CellReference {
	refs := make([]CellReference, 0, (a.MaxRow-a.MinRow+1)*(a.MaxCol-a.MinCol+1))
	for row := a.MinRow; row <= a.MaxRow; row++ {
		for col := a.MinCol; col <= a.MaxCol; col++ {
			refs = append(refs, CellReference{Col: col, Row: row})
		}
	}
	return refs
}

// sqrefIntersects tests target against sqref, a space-separated list of
// single references and colon-ranges; any member intersecting target counts
// as a match.
func sqrefIntersects(sqref string, target CellRange) bool {
	for _, tok := range strings.Fields(sqref) {
		r, err := ParseCellRange(tok)
		if err != nil {
			continue
		}
		if r.Intersects(target) {
			return true
		}
	}
	return false
}
