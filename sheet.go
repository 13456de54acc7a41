package xlcore

import "sort"

// Sheet is an immutable snapshot of a worksheet checked out of a Workbook:
// its raw rows plus the shared-strings/styles tables captured at checkout
// time. A Sheet never reflects later mutation of its parent
// Workbook.
type Sheet struct {
	workbook      *Workbook
	info          SheetInfo
	raw           *WorksheetData
	sharedStrings *SharedStrings
	styles        *StylesInfo
	comments      *CommentsData
	rels          *Relationships
}

// Name returns the sheet's name.
func (s *Sheet) Name() string { return s.info.Name }

// Visibility returns the sheet's visibility state.
func (s *Sheet) Visibility() SheetVisibility { return s.info.Visibility }

// Dimension returns the declared used-range, as written by the producer
// (not recomputed).
func (s *Sheet) Dimension() string { return s.raw.Dimension }

// View returns the sheet's view state (pane split/freeze, selection, zoom),
// or nil when the worksheet carries no sheetView element.
func (s *Sheet) View() *SheetView { return s.raw.View }

func (s *Sheet) findCell(ref CellReference) (*RawCell, bool) {
	for i := range s.raw.Rows {
		if s.raw.Rows[i].Index != ref.Row {
			continue
		}
		for j := range s.raw.Rows[i].Cells {
			if s.raw.Rows[i].Cells[j].Ref == ref {
				return &s.raw.Rows[i].Cells[j], true
			}
		}
		return nil, false
	}
	return nil, false
}

// resolve turns a RawCellValue into the public CellValue sum type,
// applying shared-string lookup and style-driven date promotion.
func (s *Sheet) resolve(raw RawCellValue, styleID *int) CellValue {
	switch raw.Kind {
	case RawSharedString:
		entry, ok := s.sharedStrings.At(raw.SSTIdx)
		if !ok {
			return errorCellValue(itoa(raw.SSTIdx))
		}
		if entry.IsRich {
			return CellValue{Kind: ValueRichText, Rich: entry.Rich, Text: entry.Plain}
		}
		return CellValue{Kind: ValueText, Text: entry.Plain}
	case RawInlineString:
		return CellValue{Kind: ValueText, Text: raw.Str}
	case RawBoolean:
		return CellValue{Kind: ValueBoolean, Bool: raw.Bool}
	case RawError:
		return CellValue{Kind: ValueError, Err: raw.Str}
	case RawDate:
		return CellValue{Kind: ValueDate, Date: raw.Str}
	case RawNumber:
		if styleID != nil && s.styles.IsDateFormat(*styleID) {
			return CellValue{Kind: ValueDate, Date: serialToISODate(raw.Num), Num: raw.Num}
		}
		return CellValue{Kind: ValueNumber, Num: raw.Num}
	default:
		return CellValue{Kind: ValueEmpty}
	}
}

// Cell resolves the value at ref, returning a ValueEmpty CellValue when no
// cell record exists there.
func (s *Sheet) Cell(ref CellReference) CellValue {
	cell, ok := s.findCell(ref)
	if !ok {
		return CellValue{Kind: ValueEmpty}
	}
	return s.resolve(cell.Value, cell.StyleID)
}

// Formula returns the formula text at ref and whether one is present.
func (s *Sheet) Formula(ref CellReference) (string, bool) {
	cell, ok := s.findCell(ref)
	if !ok || !cell.HasForm {
		return "", false
	}
	return cell.Formula, true
}

// CellStyle returns the resolved cell format at ref, or the format at index
// 0 (the default xf) when the cell is absent or carries no explicit style.
func (s *Sheet) CellStyle(ref CellReference) CellFormat {
	cell, ok := s.findCell(ref)
	if !ok || cell.StyleID == nil {
		return s.styles.At(0)
	}
	return s.styles.At(*cell.StyleID)
}

// Row returns the cells of row index (one-indexed) in column order, and
// whether the row has any recorded data.
func (s *Sheet) Row(index int) ([]RawCell, bool) {
	for _, r := range s.raw.Rows {
		if r.Index == index {
			cells := append([]RawCell(nil), r.Cells...)
			sort.Slice(cells, func(i, j int) bool { return cells[i].Ref.Col < cells[j].Ref.Col })
			return cells, true
		}
	}
	return nil, false
}

// Rows returns every row in document order, already present in ascending
// row order on disk; callers needing a lazy iterator can range
// over this slice directly since the whole worksheet is held in memory
// once parsed.
func (s *Sheet) Rows() []RawRow { return s.raw.Rows }

// Range resolves every cell inside r (inclusive), row-major, one entry per
// reference; a reference with no recorded cell yields a ValueEmpty entry.
func (s *Sheet) Range(r CellRange) []CellValue {
	out := make([]CellValue, 0, (r.MaxRow-r.MinRow+1)*(r.MaxCol-r.MinCol+1))
	for _, ref := range r.References() {
		out = append(out, s.Cell(ref))
	}
	return out
}

// Column returns every recorded cell in the given one-indexed column, in
// row order.
func (s *Sheet) Column(col int) []RawCell {
	var out []RawCell
	for _, r := range s.raw.Rows {
		for _, c := range r.Cells {
			if c.Ref.Col == col {
				out = append(out, c)
			}
		}
	}
	return out
}

// Find returns every cell reference whose resolved text equals needle.
func (s *Sheet) Find(needle string) []CellReference {
	return s.FindAll(func(v CellValue) bool { return v.String() == needle })
}

// FindAll returns every cell reference whose resolved value satisfies
// predicate, in row-major order.
func (s *Sheet) FindAll(predicate func(CellValue) bool) []CellReference {
	var out []CellReference
	for _, r := range s.raw.Rows {
		for _, c := range r.Cells {
			v := s.resolve(c.Value, c.StyleID)
			if predicate(v) {
				out = append(out, c.Ref)
			}
		}
	}
	return out
}

// Validations returns the data validations whose sqref intersects ref.
func (s *Sheet) Validations(ref CellReference) []DataValidation {
	target := CellRange{MinRow: ref.Row, MaxRow: ref.Row, MinCol: ref.Col, MaxCol: ref.Col}
	var out []DataValidation
	for _, dv := range s.raw.DataValidations {
		if sqrefIntersects(dv.Sqref, target) {
			out = append(out, dv)
		}
	}
	return out
}

// Hyperlink returns the hyperlink anchored at ref, if any, as parsed: its
// RelID is the raw relationship id and is not resolved to a target.
func (s *Sheet) Hyperlink(ref CellReference) (Hyperlink, bool) {
	for _, hl := range s.raw.Hyperlinks {
		if hl.Ref == ref {
			return hl, true
		}
	}
	return Hyperlink{}, false
}

// Comment returns the resolved comment anchored at ref, if any.
func (s *Sheet) Comment(ref CellReference) (Comment, bool) {
	if s.comments == nil {
		return Comment{}, false
	}
	for _, c := range s.comments.Resolved() {
		if c.Ref == ref {
			return c, true
		}
	}
	return Comment{}, false
}

// ConditionalFormats returns the conditional-format blocks whose sqref
// intersects ref.
func (s *Sheet) ConditionalFormats(ref CellReference) []ConditionalFormat {
	target := CellRange{MinRow: ref.Row, MaxRow: ref.Row, MinCol: ref.Col, MaxCol: ref.Col}
	var out []ConditionalFormat
	for _, cf := range s.raw.ConditionalFormats {
		if sqrefIntersects(cf.Sqref, target) {
			out = append(out, cf)
		}
	}
	return out
}

// MergedRanges returns the sheet's merged-cell ranges as parsed CellRanges,
// silently skipping any malformed entry.
func (s *Sheet) MergedRanges() []CellRange {
	var out []CellRange
	for _, ref := range s.raw.MergedRanges {
		if r, err := ParseCellRange(ref); err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Protection returns the sheet's protection record, if present.
func (s *Sheet) Protection() *SheetProtection { return s.raw.Protection }

// AutoFilter returns the sheet's autofilter range, if any.
func (s *Sheet) AutoFilter() *AutoFilter { return s.raw.AutoFilter }

// PrintArea returns the sheet's print area, if set.
func (s *Sheet) PrintArea() *PrintArea { return s.raw.PrintArea }

// PrintTitles returns the sheet's repeating print rows/columns, if set.
func (s *Sheet) PrintTitles() *PrintTitles { return s.raw.PrintTitles }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// serialToISODate reproduces Excel's 1900 leap-year bug: serial date 60 is
// the fictitious 1900-02-29; every serial from 60 onward is shifted by one
// day relative to the true Gregorian calendar, and this core preserves
// that bug rather than correcting it.
func serialToISODate(serial float64) string {
	days := int(serial)
	if days >= 60 {
		days--
	}
	// Epoch: serial 1 == 1900-01-01.
	const epochDays = -25568 // days from 1970-01-01 to 1899-12-31
	jdn := epochDays + days
	return civilFromDays(jdn)
}

// civilFromDays converts a proleptic-Gregorian day count (days since
// 1970-01-01, Howard Hinnant's algorithm) into an ISO-8601 date string.
func civilFromDays(z int) string {
	z += 719468
	era := z / 146097
	if z < 0 && z%146097 != 0 {
		era--
	}
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d := doy - (153*mp+2)/5 + 1
	m := mp + 3
	if mp >= 10 {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return formatISO(y, m, d)
}

func formatISO(y, m, d int) string {
	pad := func(n int) string {
		s := itoa(n)
		if len(s) < 2 {
			s = "0" + s
		}
		return s
	}
	return itoa(y) + "-" + pad(m) + "-" + pad(d)
}
