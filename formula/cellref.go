package formula

import "strconv"

// CellRef is a one-indexed column/row pair, independent of xlcore's
// CellReference so this package has no import back to the parent package
// (the bridge lives in xlcore, not here).
type CellRef struct {
	Col, Row int
}

// RangeRef is an inclusive rectangle over CellRef coordinates.
type RangeRef struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

// columnLettersToIndex converts base-26 letters (A->1, Z->26, AA->27) to a
// one-based column index. Input must already be uppercase.
func columnLettersToIndex(letters string) int {
	n := 0
	for _, c := range letters {
		n = n*26 + int(c-'A'+1)
	}
	return n
}

func columnIndexToLetters(index int) string {
	var buf []byte
	for index > 0 {
		index--
		buf = append([]byte{byte('A' + index%26)}, buf...)
		index /= 26
	}
	return string(buf)
}

// parseCellRef parses an "A1"-style reference (optionally with "$" markers
// to be stripped by the caller). Returns ok=false if it does not parse as a
// cell reference.
func parseCellRef(s string) (CellRef, bool) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	letters, digits := s[:i], s[i:]
	if letters == "" || digits == "" {
		return CellRef{}, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return CellRef{}, false
		}
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return CellRef{}, false
	}
	return CellRef{Col: columnLettersToIndex(letters), Row: row}, true
}

// String renders ref in "A1" notation.
func (c CellRef) String() string {
	return columnIndexToLetters(c.Col) + strconv.Itoa(c.Row)
}

// ParseCellRef parses an "A1"-style reference, stripping any "$" anchors.
func ParseCellRef(s string) (CellRef, bool) {
	return parseCellRef(stripDollar(s))
}

func stripDollar(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '$' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
