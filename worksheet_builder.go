package xlcore

import (
	"fmt"
	"strconv"
	"strings"
)

// worksheetBuilder accumulates rows/cells and worksheet-level collections
// and emits SpreadsheetML by hand-written streaming XML: stable ordering,
// stable ids, and entity escaping without materializing an intermediate
// DOM for large sheets.
type worksheetBuilder struct {
	rows               map[int]*RawRow
	cols               []RawColumn
	merged             []string
	validations        []DataValidation
	hyperlinks         []Hyperlink
	conditionalFormats []ConditionalFormat
	protection         *SheetProtection
	autoFilter         *AutoFilter
	pageSetup          *PageSetup
	margins            *Margins
	printArea          *PrintArea
	printTitles        *PrintTitles
	legacyDrawingRelID string
	view               *SheetView
}

func newWorksheetBuilder() *worksheetBuilder {
	return &worksheetBuilder{rows: make(map[int]*RawRow)}
}

func (b *worksheetBuilder) rowFor(index int) *RawRow {
	r, ok := b.rows[index]
	if !ok {
		r = &RawRow{Index: index}
		b.rows[index] = r
	}
	return r
}

func (b *worksheetBuilder) setCell(cell RawCell) {
	row := b.rowFor(cell.Ref.Row)
	for i, c := range row.Cells {
		if c.Ref == cell.Ref {
			row.Cells[i] = cell
			return
		}
	}
	row.Cells = append(row.Cells, cell)
}

func (b *worksheetBuilder) sortedRowIndices() []int {
	idx := make([]int, 0, len(b.rows))
	for i := range b.rows {
		idx = append(idx, i)
	}
	// insertion sort is fine; sheets rarely exceed a few thousand rows in
	// the builder path, and it needs no sort package import here.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && idx[j-1] > idx[j]; j-- {
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
	return idx
}

func (b *worksheetBuilder) dimension() string {
	if len(b.rows) == 0 {
		return "A1"
	}
	minRow, maxRow := -1, -1
	minCol, maxCol := -1, -1
	for _, idx := range b.sortedRowIndices() {
		row := b.rows[idx]
		if minRow == -1 || row.Index < minRow {
			minRow = row.Index
		}
		if row.Index > maxRow {
			maxRow = row.Index
		}
		for _, c := range row.Cells {
			if minCol == -1 || c.Ref.Col < minCol {
				minCol = c.Ref.Col
			}
			if c.Ref.Col > maxCol {
				maxCol = c.Ref.Col
			}
		}
	}
	if minCol == -1 {
		minCol, maxCol = 1, 1
	}
	start := CellReference{Col: minCol, Row: minRow}
	end := CellReference{Col: maxCol, Row: maxRow}
	if start == end {
		return start.String()
	}
	return start.String() + ":" + end.String()
}

func (b *worksheetBuilder) build() ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(xmlDeclaration)
	sb.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`)
	fmt.Fprintf(&sb, `<dimension ref="%s"/>`, escapeXMLText(b.dimension()))

	if b.view != nil {
		writeSheetView(&sb, b.view)
	}

	if b.protection != nil {
		writeSheetProtection(&sb, b.protection)
	}

	if len(b.cols) > 0 {
		sb.WriteString(`<cols>`)
		for _, c := range b.cols {
			sb.WriteString(`<col `)
			fmt.Fprintf(&sb, `min="%d" max="%d" `, c.Min, c.Max)
			if c.Width != 0 {
				fmt.Fprintf(&sb, `width="%s" `, formatFloat(c.Width))
			}
			if c.CustomWidth {
				sb.WriteString(`customWidth="1" `)
			}
			if c.Hidden {
				sb.WriteString(`hidden="1" `)
			}
			if c.StyleID != nil {
				fmt.Fprintf(&sb, `style="%d" `, *c.StyleID)
			}
			if c.OutlineLevel != 0 {
				fmt.Fprintf(&sb, `outlineLevel="%d" `, c.OutlineLevel)
			}
			sb.WriteString(`/>`)
		}
		sb.WriteString(`</cols>`)
	}

	sb.WriteString(`<sheetData>`)
	for _, idx := range b.sortedRowIndices() {
		writeRow(&sb, b.rows[idx])
	}
	sb.WriteString(`</sheetData>`)

	if b.autoFilter != nil {
		writeAutoFilter(&sb, b.autoFilter)
	}

	if len(b.merged) > 0 {
		fmt.Fprintf(&sb, `<mergeCells count="%d">`, len(b.merged))
		for _, m := range b.merged {
			fmt.Fprintf(&sb, `<mergeCell ref="%s"/>`, escapeXMLText(m))
		}
		sb.WriteString(`</mergeCells>`)
	}

	for _, cf := range b.conditionalFormats {
		writeConditionalFormat(&sb, cf)
	}

	if len(b.validations) > 0 {
		fmt.Fprintf(&sb, `<dataValidations count="%d">`, len(b.validations))
		for _, v := range b.validations {
			writeValidation(&sb, v)
		}
		sb.WriteString(`</dataValidations>`)
	}

	for _, h := range b.hyperlinks {
		writeHyperlink(&sb, h)
	}

	// Print area/titles have no dedicated worksheet element: they are
	// emitted as reserved _xlnm.Print_Area/Print_Titles defined names at
	// save time, see buildPrintDefinedNames.

	if b.pageSetup != nil {
		sb.WriteString(`<pageSetup `)
		fmt.Fprintf(&sb, `paperSize="%d" orientation="%s" scale="%d" `, b.pageSetup.PaperSize, b.pageSetup.Orientation, b.pageSetup.Scale)
		if b.pageSetup.FitToWidth != nil {
			fmt.Fprintf(&sb, `fitToWidth="%d" `, *b.pageSetup.FitToWidth)
		}
		if b.pageSetup.FitToHeight != nil {
			fmt.Fprintf(&sb, `fitToHeight="%d" `, *b.pageSetup.FitToHeight)
		}
		sb.WriteString(`/>`)
	}
	if b.margins != nil {
		fmt.Fprintf(&sb, `<pageMargins left="%s" right="%s" top="%s" bottom="%s" header="%s" footer="%s"/>`,
			formatFloat(b.margins.Left), formatFloat(b.margins.Right), formatFloat(b.margins.Top),
			formatFloat(b.margins.Bottom), formatFloat(b.margins.Header), formatFloat(b.margins.Footer))
	}

	if b.legacyDrawingRelID != "" {
		fmt.Fprintf(&sb, `<legacyDrawing r:id="%s"/>`, escapeXMLText(b.legacyDrawingRelID))
	}

	sb.WriteString(`</worksheet>`)
	return []byte(sb.String()), nil
}

func writeSheetView(sb *strings.Builder, v *SheetView) {
	sb.WriteString(`<sheetViews><sheetView `)
	if v.RightToLeft {
		sb.WriteString(`rightToLeft="1" `)
	}
	if !v.ShowGridLines {
		sb.WriteString(`showGridLines="0" `)
	}
	if v.TabSelected {
		sb.WriteString(`tabSelected="1" `)
	}
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 100
	}
	fmt.Fprintf(sb, `zoomScale="%d" workbookViewId="0">`, zoom)
	if v.Pane != nil {
		p := v.Pane
		sb.WriteString(`<pane `)
		if p.XSplit != 0 {
			fmt.Fprintf(sb, `xSplit="%s" `, formatFloat(p.XSplit))
		}
		if p.YSplit != 0 {
			fmt.Fprintf(sb, `ySplit="%s" `, formatFloat(p.YSplit))
		}
		if p.TopLeftCell != "" {
			fmt.Fprintf(sb, `topLeftCell="%s" `, escapeXMLText(p.TopLeftCell))
		}
		if p.ActivePane != "" {
			fmt.Fprintf(sb, `activePane="%s" `, escapeXMLText(p.ActivePane))
		}
		if p.State != "" {
			fmt.Fprintf(sb, `state="%s" `, p.State)
		}
		sb.WriteString(`/>`)
	}
	if v.ActiveCell != "" || v.Sqref != "" {
		sb.WriteString(`<selection `)
		if v.ActiveCell != "" {
			fmt.Fprintf(sb, `activeCell="%s" `, escapeXMLText(v.ActiveCell))
		}
		if v.Sqref != "" {
			fmt.Fprintf(sb, `sqref="%s" `, escapeXMLText(v.Sqref))
		}
		sb.WriteString(`/>`)
	}
	sb.WriteString(`</sheetView></sheetViews>`)
}

func writeAutoFilter(sb *strings.Builder, af *AutoFilter) {
	if len(af.FilterColumns) == 0 {
		fmt.Fprintf(sb, `<autoFilter ref="%s"/>`, escapeXMLText(af.Ref))
		return
	}
	fmt.Fprintf(sb, `<autoFilter ref="%s">`, escapeXMLText(af.Ref))
	for _, fc := range af.FilterColumns {
		fmt.Fprintf(sb, `<filterColumn colId="%d">`, fc.ColID)
		if len(fc.Filters) > 0 {
			sb.WriteString(`<filters>`)
			for _, f := range fc.Filters {
				fmt.Fprintf(sb, `<filter val="%s"/>`, escapeXMLText(f.Val))
			}
			sb.WriteString(`</filters>`)
		}
		sb.WriteString(`</filterColumn>`)
	}
	sb.WriteString(`</autoFilter>`)
}

func writeSheetProtection(sb *strings.Builder, p *SheetProtection) {
	sb.WriteString(`<sheetProtection `)
	if p.Sheet {
		sb.WriteString(`sheet="1" `)
	}
	writeDenyAttr(sb, "objects", p.Objects)
	writeDenyAttr(sb, "scenarios", p.Scenarios)
	writeDenyAttr(sb, "formatCells", p.FormatCells)
	writeDenyAttr(sb, "formatColumns", p.FormatColumns)
	writeDenyAttr(sb, "formatRows", p.FormatRows)
	writeDenyAttr(sb, "insertColumns", p.InsertColumns)
	writeDenyAttr(sb, "insertRows", p.InsertRows)
	writeDenyAttr(sb, "insertHyperlinks", p.InsertHyperlinks)
	writeDenyAttr(sb, "deleteColumns", p.DeleteColumns)
	writeDenyAttr(sb, "deleteRows", p.DeleteRows)
	writeDenyAttr(sb, "sort", p.Sort)
	writeDenyAttr(sb, "autoFilter", p.AutoFilter)
	writeDenyAttr(sb, "pivotTables", p.PivotTables)
	if p.PasswordHash != "" {
		fmt.Fprintf(sb, `password="%s" `, p.PasswordHash)
	}
	sb.WriteString(`/>`)
}

// writeDenyAttr serializes the "allowed defaults to true, 0 denies"
// convention: we only emit the attribute (as "0") when the flag denies,
// otherwise we omit it and rely on the documented default.
func writeDenyAttr(sb *strings.Builder, name string, allowed bool) {
	if !allowed {
		fmt.Fprintf(sb, `%s="0" `, name)
	}
}

func writeRow(sb *strings.Builder, row *RawRow) {
	fmt.Fprintf(sb, `<row r="%d"`, row.Index)
	if row.CustomHeight {
		fmt.Fprintf(sb, ` ht="%s" customHeight="1"`, formatFloat(row.Height))
	}
	if row.Hidden {
		sb.WriteString(` hidden="1"`)
	}
	if row.OutlineLevel != 0 {
		fmt.Fprintf(sb, ` outlineLevel="%d"`, row.OutlineLevel)
	}
	sb.WriteString(`>`)
	sortedCells := append([]RawCell(nil), row.Cells...)
	for i := 1; i < len(sortedCells); i++ {
		for j := i; j > 0 && sortedCells[j-1].Ref.Col > sortedCells[j].Ref.Col; j-- {
			sortedCells[j-1], sortedCells[j] = sortedCells[j], sortedCells[j-1]
		}
	}
	for _, c := range sortedCells {
		writeCell(sb, c)
	}
	sb.WriteString(`</row>`)
}

func writeCell(sb *strings.Builder, c RawCell) {
	fmt.Fprintf(sb, `<c r="%s"`, c.Ref.String())
	if c.StyleID != nil {
		fmt.Fprintf(sb, ` s="%d"`, *c.StyleID)
	}
	switch c.Value.Kind {
	case RawSharedString:
		sb.WriteString(` t="s"`)
	case RawBoolean:
		sb.WriteString(` t="b"`)
	case RawInlineString:
		sb.WriteString(` t="str"`)
	case RawError:
		sb.WriteString(` t="e"`)
	case RawDate:
		sb.WriteString(` t="d"`)
	}
	sb.WriteString(`>`)
	if c.HasForm {
		fmt.Fprintf(sb, `<f>%s</f>`, escapeXMLText(c.Formula))
	}
	switch c.Value.Kind {
	case RawSharedString:
		fmt.Fprintf(sb, `<v>%d</v>`, c.Value.SSTIdx)
	case RawBoolean:
		if c.Value.Bool {
			sb.WriteString(`<v>1</v>`)
		} else {
			sb.WriteString(`<v>0</v>`)
		}
	case RawNumber:
		fmt.Fprintf(sb, `<v>%s</v>`, formatFloat(c.Value.Num))
	case RawInlineString, RawError, RawDate:
		fmt.Fprintf(sb, `<v>%s</v>`, escapeXMLText(c.Value.Str))
	}
	sb.WriteString(`</c>`)
}

func writeValidation(sb *strings.Builder, v DataValidation) {
	fmt.Fprintf(sb, `<dataValidation type="%s" sqref="%s"`, v.Kind, escapeXMLText(v.Sqref))
	if v.AllowBlank {
		sb.WriteString(` allowBlank="1"`)
	}
	if v.Operator != "" {
		fmt.Fprintf(sb, ` operator="%s"`, v.Operator)
	}
	sb.WriteString(`>`)
	if v.Formula1 != "" {
		fmt.Fprintf(sb, `<formula1>%s</formula1>`, escapeXMLText(v.Formula1))
	}
	if v.Formula2 != "" {
		fmt.Fprintf(sb, `<formula2>%s</formula2>`, escapeXMLText(v.Formula2))
	}
	sb.WriteString(`</dataValidation>`)
}

func writeHyperlink(sb *strings.Builder, h Hyperlink) {
	fmt.Fprintf(sb, `<hyperlink ref="%s"`, h.Ref.String())
	if h.RelID != "" {
		fmt.Fprintf(sb, ` r:id="%s"`, h.RelID)
	}
	if h.Location != "" {
		fmt.Fprintf(sb, ` location="%s"`, escapeXMLText(h.Location))
	}
	if h.Display != "" {
		fmt.Fprintf(sb, ` display="%s"`, escapeXMLText(h.Display))
	}
	if h.Tooltip != "" {
		fmt.Fprintf(sb, ` tooltip="%s"`, escapeXMLText(h.Tooltip))
	}
	sb.WriteString(`/>`)
}

func writeConditionalFormat(sb *strings.Builder, cf ConditionalFormat) {
	fmt.Fprintf(sb, `<conditionalFormatting sqref="%s">`, escapeXMLText(cf.Sqref))
	for _, r := range cf.Rules {
		fmt.Fprintf(sb, `<cfRule type="%s"`, r.Kind)
		if r.Operator != "" {
			fmt.Fprintf(sb, ` operator="%s"`, r.Operator)
		}
		if r.Priority != nil {
			fmt.Fprintf(sb, ` priority="%d"`, *r.Priority)
		}
		if r.DxfID != nil {
			fmt.Fprintf(sb, ` dxfId="%d"`, *r.DxfID)
		}
		if r.StopIfTrue {
			sb.WriteString(` stopIfTrue="1"`)
		}
		sb.WriteString(`>`)
		for _, f := range r.Formulas {
			fmt.Fprintf(sb, `<formula>%s</formula>`, escapeXMLText(f))
		}
		switch r.Kind {
		case CFDataBar:
			fmt.Fprintf(sb, `<dataBar showValue="%s">`, boolAttr(r.ShowValue))
			if r.Min != nil {
				fmt.Fprintf(sb, `<cfvo type="%s" val="%s"/>`, r.Min.Type, escapeXMLText(r.Min.Value))
			}
			if r.Max != nil {
				fmt.Fprintf(sb, `<cfvo type="%s" val="%s"/>`, r.Max.Type, escapeXMLText(r.Max.Value))
			}
			fmt.Fprintf(sb, `<color rgb="%s"/>`, r.Color)
			sb.WriteString(`</dataBar>`)
		case CFColorScale:
			sb.WriteString(`<colorScale>`)
			for _, v := range r.Values {
				fmt.Fprintf(sb, `<cfvo type="%s" val="%s"/>`, v.Type, escapeXMLText(v.Value))
			}
			for _, c := range r.Colors {
				fmt.Fprintf(sb, `<color rgb="%s"/>`, c)
			}
			sb.WriteString(`</colorScale>`)
		case CFIconSet:
			fmt.Fprintf(sb, `<iconSet iconSet="%s" showValue="%s" reverse="%s" percent="%s">`,
				r.IconSetName, boolAttr(r.ShowValue), boolAttr(r.Reverse), boolAttr(r.Percent))
			for _, v := range r.Values {
				fmt.Fprintf(sb, `<cfvo type="%s" val="%s"/>`, v.Type, escapeXMLText(v.Value))
			}
			sb.WriteString(`</iconSet>`)
		}
		sb.WriteString(`</cfRule>`)
	}
	sb.WriteString(`</conditionalFormatting>`)
}

func boolAttr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// formatFloat renders a float64 with a fixed, locale-independent format so
// numeric round-trips never depend on process-wide locale.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
