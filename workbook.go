package xlcore

import (
	"fmt"
	"sync"

	"github.com/mohae/deepcopy"
)

// Workbook exclusively owns its package handle and the decoded workbook
// metadata, shared strings, styles, and lists of tables and pivot tables.
// It is immutable after construction; multiple Sheet loads may
// proceed in parallel from the caller's goroutines.
type Workbook struct {
	pkg  *Package
	info *WorkbookInfo

	mu            sync.Mutex
	sharedStrings *SharedStrings
	styles        *StylesInfo
	sheetCache    map[string]*Sheet

	Tables      []TableData
	PivotTables []PivotTableData
	Diagnostics []Diagnostic
}

// Open parses an xlsx package from bytes.
func Open(data []byte) (*Workbook, error) {
	pkg, err := openPackage(data)
	if err != nil {
		return nil, err
	}
	wbBytes, err := pkg.ReadPart(workbookPath)
	if err != nil {
		return nil, err
	}
	info, err := parseWorkbookXML(wbBytes)
	if err != nil {
		return nil, err
	}
	wb := &Workbook{pkg: pkg, info: info, sheetCache: make(map[string]*Sheet)}
	wb.loadOptionalTables()
	return wb, nil
}

// loadOptionalTables loads every /xl/tables/table{N}.xml and
// /xl/pivotTables/pivotTable{n}.xml part reachable from any worksheet's
// relationships, best-effort: a parse failure is recorded as a
// Diagnostic rather than aborting the open.
func (wb *Workbook) loadOptionalTables() {
	for _, si := range wb.info.Sheets {
		sheetPath := wb.sheetPartPath(si)
		rels, err := wb.pkg.RelationshipsFor(string(sheetPath))
		if err != nil {
			continue
		}
		for _, rel := range rels.ByType(RelTypeTable) {
			target := wb.pkg.Resolve(string(sheetPath), rel)
			data, err := wb.pkg.ReadPart(target)
			if err != nil {
				wb.Diagnostics = append(wb.Diagnostics, Diagnostic{Part: string(target), Detail: err.Error()})
				continue
			}
			td, err := parseTable(data)
			if err != nil {
				wb.Diagnostics = append(wb.Diagnostics, Diagnostic{Part: string(target), Detail: err.Error()})
				continue
			}
			wb.Tables = append(wb.Tables, *td)
		}
		for _, rel := range rels.ByType(RelTypePivotTable) {
			target := wb.pkg.Resolve(string(sheetPath), rel)
			data, err := wb.pkg.ReadPart(target)
			if err != nil {
				wb.Diagnostics = append(wb.Diagnostics, Diagnostic{Part: string(target), Detail: err.Error()})
				continue
			}
			pt, err := parsePivotTable(data)
			if err != nil {
				wb.Diagnostics = append(wb.Diagnostics, Diagnostic{Part: string(target), Detail: err.Error()})
				continue
			}
			wb.PivotTables = append(wb.PivotTables, *pt)
		}
	}
}

// sheetPartPath resolves a SheetInfo's r:id against the workbook's own
// relationships file, the authoritative mapping from sheet metadata to
// physical part path.
func (wb *Workbook) sheetPartPath(si SheetInfo) partPath {
	rels, err := wb.pkg.RelationshipsFor(string(workbookPath))
	if err != nil {
		return ""
	}
	rel, ok := rels.ByID(si.RelID)
	if !ok {
		return ""
	}
	return wb.pkg.Resolve(string(workbookPath), rel)
}

// Sheets returns the ordered sheet metadata.
func (wb *Workbook) Sheets() []SheetInfo { return wb.info.Sheets }

// Protection returns the workbook-level protection metadata, if any.
func (wb *Workbook) Protection() *WorkbookProtection { return wb.info.Protection }

// DefinedNames returns the workbook's defined names.
func (wb *Workbook) DefinedNames() []DefinedName { return wb.info.DefinedNames }

// VBAProject returns the parsed legacy macro container, if present.
func (wb *Workbook) VBAProject() (*VBAProject, error) { return wb.pkg.vbaProject() }

// CoreProperties returns the workbook's /docProps/core.xml metadata, or nil
// if the package carries none.
func (wb *Workbook) CoreProperties() (*CoreProperties, error) { return wb.pkg.coreProperties() }

// AppProperties returns the workbook's /docProps/app.xml metadata, or nil
// if the package carries none.
func (wb *Workbook) AppProperties() (*AppProperties, error) { return wb.pkg.appProperties() }

func (wb *Workbook) sharedStringsTable() (*SharedStrings, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	if wb.sharedStrings != nil {
		return wb.sharedStrings, nil
	}
	const path = partPath("/xl/sharedStrings.xml")
	if !wb.pkg.Exists(path) {
		wb.sharedStrings = &SharedStrings{}
		return wb.sharedStrings, nil
	}
	data, err := wb.pkg.ReadPart(path)
	if err != nil {
		return nil, err
	}
	sst, err := parseSharedStrings(data)
	if err != nil {
		return nil, err
	}
	wb.sharedStrings = sst
	return sst, nil
}

func (wb *Workbook) stylesTable() (*StylesInfo, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	if wb.styles != nil {
		return wb.styles, nil
	}
	const path = partPath("/xl/styles.xml")
	if !wb.pkg.Exists(path) {
		wb.styles = newStylesInfo()
		return wb.styles, nil
	}
	data, err := wb.pkg.ReadPart(path)
	if err != nil {
		return nil, err
	}
	styles, err := parseStyles(data)
	if err != nil {
		return nil, err
	}
	wb.styles = styles
	return styles, nil
}

// Sheet loads (or returns the cached snapshot of) the worksheet named name,
// wiring it to an immutable snapshot of the shared-strings and styles
// tables. Sheets loaded from the same Workbook may be resolved
// concurrently; the snapshot copy means later workbook-level mutation
// is invisible to an already-checked-out Sheet.
func (wb *Workbook) Sheet(name string) (*Sheet, error) {
	wb.mu.Lock()
	if s, ok := wb.sheetCache[name]; ok {
		wb.mu.Unlock()
		return s, nil
	}
	wb.mu.Unlock()

	var target *SheetInfo
	targetIndex := -1
	for i := range wb.info.Sheets {
		if wb.info.Sheets[i].Name == name {
			target = &wb.info.Sheets[i]
			targetIndex = i
			break
		}
	}
	if target == nil {
		return nil, newPackageError(ErrMissingPart, name, "no such sheet")
	}
	return wb.loadSheet(*target, targetIndex)
}

// SheetAt loads the sheet at the given zero-based position in workbook
// order.
func (wb *Workbook) SheetAt(index int) (*Sheet, error) {
	if index < 0 || index >= len(wb.info.Sheets) {
		return nil, newPackageError(ErrMissingPart, fmt.Sprintf("sheet[%d]", index), "index out of range")
	}
	return wb.loadSheet(wb.info.Sheets[index], index)
}

func (wb *Workbook) loadSheet(si SheetInfo, index int) (*Sheet, error) {
	sheetPath := wb.sheetPartPath(si)
	if sheetPath == "" {
		return nil, newPackageError(ErrMissingPart, si.Name, "worksheet relationship did not resolve")
	}
	data, err := wb.pkg.ReadPart(sheetPath)
	if err != nil {
		return nil, err
	}
	raw, err := parseWorksheet(data)
	if err != nil {
		return nil, err
	}
	applyPrintDefinedNames(raw, wb.info.DefinedNames, index)

	sst, err := wb.sharedStringsTable()
	if err != nil {
		return nil, err
	}
	styles, err := wb.stylesTable()
	if err != nil {
		return nil, err
	}

	// Snapshot isolation: copy the shared-strings and styles tables into
	// sheet-private fields so later workbook-level mutation never
	// retroactively changes a Sheet a caller is mid-iteration over.
	// deepcopy.Copy skips unexported fields, so the shared-strings entry
	// list is copied by hand; StylesInfo has only exported fields.
	sstSnapshot := &SharedStrings{entries: append([]SharedStringEntry(nil), sst.entries...)}
	stylesSnapshot, _ := deepcopy.Copy(styles).(*StylesInfo)
	if stylesSnapshot == nil {
		stylesSnapshot = styles
	}

	var comments *CommentsData
	var hyperlinkRels *Relationships
	rels, err := wb.pkg.RelationshipsFor(string(sheetPath))
	if err == nil {
		hyperlinkRels = rels
		for _, rel := range rels.ByType(RelTypeComments) {
			target := wb.pkg.Resolve(string(sheetPath), rel)
			if cdata, err := wb.pkg.ReadPart(target); err == nil {
				if cd, err := parseComments(cdata); err == nil {
					comments = cd
				}
			}
		}
	}

	sheet := &Sheet{
		workbook:      wb,
		info:          si,
		raw:           raw,
		sharedStrings: sstSnapshot,
		styles:        stylesSnapshot,
		comments:      comments,
		rels:          hyperlinkRels,
	}

	wb.mu.Lock()
	wb.sheetCache[si.Name] = sheet
	wb.mu.Unlock()
	return sheet, nil
}
