package xlcore

import (
	"fmt"
	"strings"
)

// SheetWriter accumulates one worksheet's state for a WorkbookWriter.
// It is single-owner: never share a SheetWriter across goroutines.
type SheetWriter struct {
	name       string
	visibility SheetVisibility
	body       *worksheetBuilder

	wb               *WorkbookWriter
	externalLinkRels []Relationship
	commentsData     *CommentsData
	tables           []TableData
}

// Write sets the raw cell value directly; WriteText/WriteNumber/
// WriteBoolean/WriteFormula below are convenience wrappers over this.
func (sw *SheetWriter) Write(ref CellReference, v RawCellValue) *SheetWriter {
	sw.body.setCell(RawCell{Ref: ref, Value: v})
	return sw
}

// WriteText stores text as a shared string, the space-efficient default for
// repeated text across a sheet.
func (sw *SheetWriter) WriteText(ref CellReference, text string) *SheetWriter {
	idx := sw.wb.sharedStrings.Add(text)
	sw.body.setCell(RawCell{Ref: ref, Value: RawCellValue{Kind: RawSharedString, SSTIdx: idx}})
	return sw
}

// WriteNumber stores a numeric value.
func (sw *SheetWriter) WriteNumber(ref CellReference, n float64) *SheetWriter {
	sw.body.setCell(RawCell{Ref: ref, Value: RawCellValue{Kind: RawNumber, Num: n}})
	return sw
}

// WriteBoolean stores a boolean value.
func (sw *SheetWriter) WriteBoolean(ref CellReference, b bool) *SheetWriter {
	sw.body.setCell(RawCell{Ref: ref, Value: RawCellValue{Kind: RawBoolean, Bool: b}})
	return sw
}

// WriteFormula stores a formula and an optional cached result value; pass a
// zero RawCellValue (RawEmpty kind) when no cached value is available.
func (sw *SheetWriter) WriteFormula(ref CellReference, formula string, cached RawCellValue) *SheetWriter {
	sw.body.setCell(RawCell{Ref: ref, Value: cached, Formula: formula, HasForm: true})
	return sw
}

// Style attaches a style index (previously registered via
// WorkbookWriter.Style) to the cell at ref.
func (sw *SheetWriter) Style(ref CellReference, styleID int) *SheetWriter {
	row := sw.body.rowFor(ref.Row)
	for i, c := range row.Cells {
		if c.Ref == ref {
			row.Cells[i].StyleID = &styleID
			return sw
		}
	}
	sw.body.setCell(RawCell{Ref: ref, StyleID: &styleID})
	return sw
}

// MergeCells registers a merged region, e.g. "A1:B2".
func (sw *SheetWriter) MergeCells(ref string) *SheetWriter {
	sw.body.merged = append(sw.body.merged, ref)
	return sw
}

// AddDataValidation attaches a validation rule.
func (sw *SheetWriter) AddDataValidation(v DataValidation) *SheetWriter {
	sw.body.validations = append(sw.body.validations, v)
	return sw
}

// AddConditionalFormat attaches a conditional-formatting block.
func (sw *SheetWriter) AddConditionalFormat(cf ConditionalFormat) *SheetWriter {
	sw.body.conditionalFormats = append(sw.body.conditionalFormats, cf)
	return sw
}

// SetAutoFilter sets the sheet's autofilter range.
func (sw *SheetWriter) SetAutoFilter(ref string) *SheetWriter {
	sw.body.autoFilter = &AutoFilter{Ref: ref}
	return sw
}

// SetAutoFilterColumn attaches a per-column filter value list to the
// sheet's autofilter range, creating the range with SetAutoFilter first if
// it has not been set yet.
func (sw *SheetWriter) SetAutoFilterColumn(colID int, values ...string) *SheetWriter {
	if sw.body.autoFilter == nil {
		sw.body.autoFilter = &AutoFilter{}
	}
	filters := make([]Filter, len(values))
	for i, v := range values {
		filters[i] = Filter{Val: v}
	}
	sw.body.autoFilter.FilterColumns = append(sw.body.autoFilter.FilterColumns, FilterColumn{ColID: colID, Filters: filters})
	return sw
}

// AddHyperlink attaches an internal or external hyperlink. When target is
// non-empty the link is external (targetMode=External, registered in the
// worksheet's own relationships); an internal link instead sets location.
func (sw *SheetWriter) AddHyperlink(ref CellReference, target, location, display, tooltip string) *SheetWriter {
	hl := Hyperlink{Ref: ref, Display: display, Tooltip: tooltip, Location: location}
	if target != "" {
		id := sw.wb.relIDs.nextID()
		hl.RelID = id
		sw.externalLinkRels = append(sw.externalLinkRels, Relationship{ID: id, Type: RelTypeHyperlink, Target: target, IsExternal: true})
	}
	sw.body.hyperlinks = append(sw.body.hyperlinks, hl)
	return sw
}

// AddComment attaches a cell comment; authors are deduplicated per sheet.
func (sw *SheetWriter) AddComment(ref CellReference, author, text string) *SheetWriter {
	if sw.commentsData == nil {
		sw.commentsData = &CommentsData{}
	}
	authorID := -1
	for i, a := range sw.commentsData.Authors {
		if a == author {
			authorID = i
			break
		}
	}
	if authorID == -1 {
		sw.commentsData.Authors = append(sw.commentsData.Authors, author)
		authorID = len(sw.commentsData.Authors) - 1
	}
	sw.commentsData.Comments = append(sw.commentsData.Comments, rawComment{Ref: ref, AuthorID: authorID, Text: text})
	return sw
}

// ProtectSheet attaches sheet protection flags.
func (sw *SheetWriter) ProtectSheet(p SheetProtection) *SheetWriter {
	sw.body.protection = &p
	return sw
}

// SetPageSetup attaches print page setup.
func (sw *SheetWriter) SetPageSetup(ps PageSetup) *SheetWriter {
	sw.body.pageSetup = &ps
	return sw
}

// SetPrintArea restricts printing to ref (e.g. "A1:D20"). It is saved as the
// sheet's reserved _xlnm.Print_Area defined name.
func (sw *SheetWriter) SetPrintArea(ref string) *SheetWriter {
	sw.body.printArea = &PrintArea{Ref: ref}
	return sw
}

// SetPrintTitles marks rows and/or columns to repeat on every printed page
// (e.g. rows="$1:$2", cols="$A:$A"). Either may be left empty. It is saved
// as the sheet's reserved _xlnm.Print_Titles defined name.
func (sw *SheetWriter) SetPrintTitles(rows, cols string) *SheetWriter {
	sw.body.printTitles = &PrintTitles{Rows: rows, Cols: cols}
	return sw
}

// SetView configures the sheet's view: pane split/freeze, selection, zoom,
// and right-to-left display.
func (sw *SheetWriter) SetView(v SheetView) *SheetWriter {
	sw.body.view = &v
	return sw
}

// FreezePanes is a convenience wrapper over SetView for the common case of
// freezing rows/columns above and left of topLeftCell.
func (sw *SheetWriter) FreezePanes(xSplit, ySplit float64, topLeftCell string) *SheetWriter {
	sw.body.view = &SheetView{
		ShowGridLines: true,
		Zoom:          100,
		Pane: &Pane{
			XSplit:      xSplit,
			YSplit:      ySplit,
			TopLeftCell: topLeftCell,
			ActivePane:  "bottomRight",
			State:       PaneFrozen,
		},
	}
	return sw
}

// AddTable registers a table over the sheet; its id is assigned globally
// unique across the whole workbook when Save runs, while its relationship id
// is scoped per-sheet as rIdTable{n}.
func (sw *SheetWriter) AddTable(t TableData) *SheetWriter {
	sw.tables = append(sw.tables, t)
	return sw
}

// WorkbookWriter accumulates sheet writers plus workbook-wide style,
// shared-string, named-range, and protection state, emitting a byte
// sequence only on Save. A builder and its sheet writers are
// single-owner and never shared across goroutines.
type WorkbookWriter struct {
	sheets        []*SheetWriter
	sharedStrings *SharedStrings
	styles        *StylesInfo
	definedNames  []DefinedName
	protection    *WorkbookProtection
	calcProps     *CalcProperties
	coreProps     *CoreProperties
	appProps      *AppProperties
	relIDs        relationshipIDCounter
	tableCounter  int
}

// NewWorkbookWriter returns an empty builder.
func NewWorkbookWriter() *WorkbookWriter {
	return &WorkbookWriter{sharedStrings: &SharedStrings{}, styles: newStylesInfo()}
}

// AddSheet appends a new sheet writer, named name, in visible state by
// default.
func (w *WorkbookWriter) AddSheet(name string) *SheetWriter {
	sw := &SheetWriter{name: name, visibility: SheetVisible, body: newWorksheetBuilder(), wb: w}
	w.sheets = append(w.sheets, sw)
	return sw
}

// Style registers a cell format and returns its stable zero-based index,
// for use with SheetWriter.Style.
func (w *WorkbookWriter) Style(f CellFormat) int {
	w.styles.CellXfs = append(w.styles.CellXfs, f)
	return len(w.styles.CellXfs) - 1
}

// NumberFormat registers a custom number format code under id and returns
// id, for use as CellFormat.NumFmtID. Caller picks an id >= 164 (the
// reserved custom-format range) to avoid colliding with built-ins.
func (w *WorkbookWriter) NumberFormat(id int, code string) int {
	w.styles.NumFmts[id] = code
	return id
}

// AddDefinedName registers a workbook- or sheet-scoped named range.
func (w *WorkbookWriter) AddDefinedName(dn DefinedName) *WorkbookWriter {
	w.definedNames = append(w.definedNames, dn)
	return w
}

// ProtectWorkbook attaches workbook-level protection.
func (w *WorkbookWriter) ProtectWorkbook(p WorkbookProtection) *WorkbookWriter {
	w.protection = &p
	return w
}

// SetCalcProperties attaches workbook calculation properties.
func (w *WorkbookWriter) SetCalcProperties(cp CalcProperties) *WorkbookWriter {
	w.calcProps = &cp
	return w
}

// SetCoreProperties attaches /docProps/core.xml metadata (title, author,
// revision timestamps).
func (w *WorkbookWriter) SetCoreProperties(cp CoreProperties) *WorkbookWriter {
	w.coreProps = &cp
	return w
}

// SetAppProperties attaches /docProps/app.xml metadata (generating
// application identity).
func (w *WorkbookWriter) SetAppProperties(ap AppProperties) *WorkbookWriter {
	w.appProps = &ap
	return w
}

// Save assembles every part and finalizes the ZIP container in a fixed
// sequence: content-type overrides and relationships are registered
// incrementally as each part is emitted, and [Content_Types].xml is written
// last.
func (w *WorkbookWriter) Save() ([]byte, error) {
	zw := newZipCodec()
	ct := newContentTypes()

	rootRels := newRelationships()
	rootRels.add(Relationship{ID: "rId1", Type: RelTypeOfficeDocument, Target: "xl/workbook.xml"})
	rootRelCounter := &relationshipIDCounter{next: 1}
	if w.coreProps != nil {
		ct.setOverride(partPath("/docProps/core.xml"), ContentTypeCore)
		rootRels.add(Relationship{ID: rootRelCounter.nextID(), Type: RelTypeCore, Target: "docProps/core.xml"})
		zw.write("docProps/core.xml", buildCorePropertiesXML(w.coreProps))
	}
	if w.appProps != nil {
		ct.setOverride(partPath("/docProps/app.xml"), ContentTypeApp)
		rootRels.add(Relationship{ID: rootRelCounter.nextID(), Type: RelTypeApp, Target: "docProps/app.xml"})
		zw.write("docProps/app.xml", buildAppPropertiesXML(w.appProps))
	}
	rootRelsBytes, err := rootRels.marshal()
	if err != nil {
		return nil, err
	}
	zw.write(rootRelsPath.entryName(), rootRelsBytes)

	wbInfo := &WorkbookInfo{DefinedNames: w.definedNames, Protection: w.protection, CalcProps: w.calcProps}
	wbRels := newRelationships()
	wbRelCounter := &relationshipIDCounter{}

	for i, sw := range w.sheets {
		sheetID := i + 1
		rID := fmt.Sprintf("rId%d", sheetID)
		wbRelCounter.next = sheetID
		wbInfo.Sheets = append(wbInfo.Sheets, SheetInfo{Name: sw.name, SheetID: sheetID, RelID: rID, Visibility: sw.visibility})
		wbInfo.DefinedNames = append(wbInfo.DefinedNames, buildPrintDefinedNames(sw.name, i, sw.body.printArea, sw.body.printTitles)...)

		sheetPath := fmt.Sprintf("xl/worksheets/sheet%d.xml", sheetID)
		wbRels.add(Relationship{ID: rID, Type: RelTypeWorksheet, Target: "worksheets/sheet" + itoa(sheetID) + ".xml"})
		ct.setOverride(normalizePartPath("/"+sheetPath), ContentTypeWorksheet)

		sheetRels := newRelationships()
		sheetRelCounter := &relationshipIDCounter{}
		for _, rel := range sw.externalLinkRels {
			sheetRels.add(rel)
			advanceCounterPast(sheetRelCounter, rel.ID)
		}

		if sw.commentsData != nil {
			commentsPath := fmt.Sprintf("xl/comments%d.xml", sheetID)
			ct.setOverride(normalizePartPath("/"+commentsPath), ContentTypeComments)
			commentsRelID := sheetRelCounter.nextID()
			sheetRels.add(Relationship{ID: commentsRelID, Type: RelTypeComments, Target: "../comments" + itoa(sheetID) + ".xml"})
			zw.write(commentsPath, buildCommentsXML(sw.commentsData))

			vmlPath := fmt.Sprintf("xl/drawings/vmlDrawing%d.vml", sheetID)
			ct.setDefault("vml", ContentTypeVMLDrawing)
			vmlRelID := sheetRelCounter.nextID()
			sheetRels.add(Relationship{ID: vmlRelID, Type: RelTypeVMLDrawing, Target: "../drawings/vmlDrawing" + itoa(sheetID) + ".vml"})
			zw.write(vmlPath, buildVMLDrawingXML(sw.commentsData.Comments))
			sw.body.legacyDrawingRelID = vmlRelID
		}

		for sheetTableIdx, t := range sw.tables {
			w.tableCounter++
			tableID := w.tableCounter
			tablePath := fmt.Sprintf("xl/tables/table%d.xml", tableID)
			ct.setOverride(normalizePartPath("/"+tablePath), ContentTypeTable)
			// The table id is globally unique across the workbook; the
			// relationship id naming it in this sheet's own .rels file is
			// scoped to the sheet instead.
			tableRelID := fmt.Sprintf("rIdTable%d", sheetTableIdx+1)
			sheetRels.add(Relationship{ID: tableRelID, Type: RelTypeTable, Target: "../tables/table" + itoa(tableID) + ".xml"})
			zw.write(tablePath, buildTableXML(tableID, t))
		}

		body, err := sw.body.build()
		if err != nil {
			return nil, err
		}
		zw.write(sheetPath, body)

		if len(sheetRels.order) > 0 {
			relsBytes, err := sheetRels.marshal()
			if err != nil {
				return nil, err
			}
			zw.write(partPath("/"+sheetPath).relsPath().entryName(), relsBytes)
		}
	}

	stylesRelID := wbRelCounter.nextID()
	wbRels.add(Relationship{ID: stylesRelID, Type: RelTypeStyles, Target: "styles.xml"})
	ct.setOverride(partPath("/xl/styles.xml"), ContentTypeStyles)
	stylesBytes, err := w.styles.marshal()
	if err != nil {
		return nil, err
	}
	zw.write("xl/styles.xml", stylesBytes)

	if w.sharedStrings.Len() > 0 {
		sstRelID := wbRelCounter.nextID()
		wbRels.add(Relationship{ID: sstRelID, Type: RelTypeSharedStrings, Target: "sharedStrings.xml"})
		ct.setOverride(partPath("/xl/sharedStrings.xml"), ContentTypeSharedStrings)
		sstBytes, err := w.sharedStrings.marshal()
		if err != nil {
			return nil, err
		}
		zw.write("xl/sharedStrings.xml", sstBytes)
	}

	ct.setOverride(partPath("/xl/workbook.xml"), ContentTypeWorkbook)
	zw.write("xl/workbook.xml", buildWorkbookXML(wbInfo))

	wbRelsBytes, err := wbRels.marshal()
	if err != nil {
		return nil, err
	}
	zw.write("xl/_rels/workbook.xml.rels", wbRelsBytes)

	ctBytes, err := ct.marshal()
	if err != nil {
		return nil, err
	}
	zw.write(contentTypesPath.entryName(), ctBytes)

	return zw.finalize()
}

// advanceCounterPast keeps a relationshipIDCounter from reusing an id
// already consumed by an externally-assigned relationship (e.g. a
// hyperlink's rId minted by WorkbookWriter.relIDs during AddHyperlink).
func advanceCounterPast(c *relationshipIDCounter, id string) {
	n := 0
	fmt.Sscanf(strings.TrimPrefix(id, "rId"), "%d", &n)
	if n > c.next {
		c.next = n
	}
}
