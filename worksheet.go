package xlcore

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

// RawCellValue is the raw on-disk shape of a cell's value, selected by the
// type attribute before shared-strings/styles resolution.
type RawCellValueKind int

const (
	RawEmpty RawCellValueKind = iota
	RawSharedString
	RawInlineString
	RawNumber
	RawBoolean
	RawError
	RawDate
)

type RawCellValue struct {
	Kind   RawCellValueKind
	Str    string // inline string, error code, or pre-parsed ISO date
	Num    float64
	Bool   bool
	SSTIdx int
}

// RawCell is a single parsed <c> element.
type RawCell struct {
	Ref     CellReference
	Value   RawCellValue
	StyleID *int
	Formula string
	HasForm bool
}

// RawRow is one parsed <row>.
type RawRow struct {
	Index        int
	Cells        []RawCell
	Height       float64
	CustomHeight bool
	Hidden       bool
	OutlineLevel int
}

// RawColumn is a parsed <col> definition over an inclusive [Min,Max] range.
type RawColumn struct {
	Min, Max     int
	Width        float64
	CustomWidth  bool
	Hidden       bool
	StyleID      *int
	OutlineLevel int
}

// DataValidation.
type DataValidationKind string

const (
	ValidationList    DataValidationKind = "list"
	ValidationWhole   DataValidationKind = "whole"
	ValidationDecimal DataValidationKind = "decimal"
	ValidationDate    DataValidationKind = "date"
	ValidationCustom  DataValidationKind = "custom"
)

type DataValidation struct {
	Kind      DataValidationKind
	AllowBlank bool
	Sqref     string
	Operator  string
	Formula1  string
	Formula2  string
}

// Hyperlink.
type Hyperlink struct {
	Ref         CellReference
	RelID       string
	Display     string
	Tooltip     string
	Location    string
}

// ConditionalFormat and its rule variants.
type CFValueObject struct {
	Type    string // num, percent, percentile, formula, min, max
	Value   string
}

type CFRuleKind string

const (
	CFCellIs     CFRuleKind = "cellIs"
	CFExpression CFRuleKind = "expression"
	CFDataBar    CFRuleKind = "dataBar"
	CFColorScale CFRuleKind = "colorScale"
	CFIconSet    CFRuleKind = "iconSet"
)

type CFRule struct {
	Kind        CFRuleKind
	Operator    string
	Formulas    []string
	Priority    *int
	DxfID       *int
	StopIfTrue  bool

	// dataBar
	Min, Max  *CFValueObject
	Color     string
	ShowValue bool

	// colorScale
	Values []CFValueObject
	Colors []string

	// iconSet
	IconSetName string
	Reverse     bool
	Percent     bool
}

type ConditionalFormat struct {
	Sqref string
	Rules []CFRule
}

// SheetProtection flags all default to "allowed" (value "0" denies).
type SheetProtection struct {
	Sheet               bool
	Objects             bool
	Scenarios           bool
	FormatCells         bool
	FormatColumns       bool
	FormatRows          bool
	InsertColumns       bool
	InsertRows          bool
	InsertHyperlinks    bool
	DeleteColumns       bool
	DeleteRows          bool
	SelectLockedCells   bool
	Sort                bool
	AutoFilter          bool
	PivotTables         bool
	SelectUnlockedCells bool
	PasswordHash        string
}

// AutoFilter is the <autoFilter> element: a ref range plus the per-column
// filter criteria applied within it.
type AutoFilter struct {
	Ref           string
	FilterColumns []FilterColumn
}

// FilterColumn is one <filterColumn> child, naming the zero-based column
// offset (relative to the AutoFilter range) and the discrete values it
// filters to.
type FilterColumn struct {
	ColID   int
	Filters []Filter
}

// Filter is a single <filter val="..."/> value within a filterColumn's
// <filters> list.
type Filter struct {
	Val string
}

type PageSetup struct {
	PaperSize   int
	Orientation string
	Scale       int
	FitToWidth  *int
	FitToHeight *int
}

type Margins struct {
	Left, Right, Top, Bottom, Header, Footer float64
}

type PrintArea struct {
	Ref string
}

type PrintTitles struct {
	Rows string
	Cols string
}

// WorksheetData is the fully parsed worksheet part.
type WorksheetData struct {
	Dimension          string
	Rows               []RawRow
	Columns            []RawColumn
	MergedRanges        []string
	DataValidations    []DataValidation
	Hyperlinks         []Hyperlink
	ConditionalFormats []ConditionalFormat
	Protection         *SheetProtection
	AutoFilter         *AutoFilter
	PageSetup          *PageSetup
	Margins            *Margins
	PrintArea          *PrintArea
	PrintTitles        *PrintTitles
	LegacyDrawingRelID string
	View               *SheetView
}

// SheetView captures the sheetView element: pane split/freeze state,
// selection, zoom, and right-to-left display.
type SheetView struct {
	RightToLeft bool
	ShowGridLines bool
	Zoom        int
	TabSelected bool
	Pane        *Pane
	ActiveCell  string
	Sqref       string
}

// PaneState identifies which part of a split pane is frozen vs. scrollable.
type PaneState string

const (
	PaneFrozen      PaneState = "frozen"
	PaneSplit       PaneState = "split"
	PaneFrozenSplit PaneState = "frozenSplit"
)

// Pane describes a freeze/split configuration (<pane> element).
type Pane struct {
	XSplit      float64
	YSplit      float64
	TopLeftCell string
	ActivePane  string
	State       PaneState
}

// parseWorksheet is the push-driven worksheet parser: a single forward
// pass over the XML token stream emitting rows in document order.
func parseWorksheet(data []byte) (*WorksheetData, error) {
	dec := newTokenDecoder(data)
	ws := &WorksheetData{}

	var stack []string
	push := func(n string) { stack = append(stack, n) }
	pop := func() {
		if len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
	}
	var curRow *RawRow
	var curCell *RawCell
	var curCellType string
	var inValue, inFormula bool
	var valueBuf, formulaBuf strings.Builder

	var curValidation *DataValidation
	var inFormula1, inFormula2, inCFFormula bool

	var curCF *ConditionalFormat
	var curRule *CFRule

	var curView *SheetView

	var curAutoFilter *AutoFilter
	var curFilterColumn *FilterColumn

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &PackageError{Code: ErrMalformedXML, Detail: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			switch name {
			case "dimension":
				ws.Dimension = attrVal(t, "ref")
			case "col":
				min, _ := strconv.Atoi(attrVal(t, "min"))
				max, _ := strconv.Atoi(attrVal(t, "max"))
				col := RawColumn{Min: min, Max: max}
				if w := attrVal(t, "width"); w != "" {
					col.Width, _ = strconv.ParseFloat(w, 64)
				}
				col.CustomWidth = attrVal(t, "customWidth") == "1"
				col.Hidden = attrVal(t, "hidden") == "1"
				if s := attrVal(t, "style"); s != "" {
					if n, err := strconv.Atoi(s); err == nil {
						col.StyleID = &n
					}
				}
				col.OutlineLevel, _ = strconv.Atoi(attrVal(t, "outlineLevel"))
				ws.Columns = append(ws.Columns, col)
			case "row":
				idx, _ := strconv.Atoi(attrVal(t, "r"))
				row := &RawRow{Index: idx}
				if h := attrVal(t, "ht"); h != "" {
					row.Height, _ = strconv.ParseFloat(h, 64)
				}
				row.CustomHeight = attrVal(t, "customHeight") == "1"
				row.Hidden = attrVal(t, "hidden") == "1"
				row.OutlineLevel, _ = strconv.Atoi(attrVal(t, "outlineLevel"))
				curRow = row
			case "c":
				ref, err := ParseCellReference(attrVal(t, "r"))
				if err != nil {
					return nil, &PackageError{Code: ErrInvalidCellReference, Detail: attrVal(t, "r")}
				}
				curCell = &RawCell{Ref: ref}
				curCellType = attrVal(t, "t")
				if s := attrVal(t, "s"); s != "" {
					if n, err := strconv.Atoi(s); err == nil {
						curCell.StyleID = &n
					}
				}
			case "v":
				inValue = true
				valueBuf.Reset()
			case "f":
				inFormula = true
				formulaBuf.Reset()
			case "mergeCell":
				ws.MergedRanges = append(ws.MergedRanges, attrVal(t, "ref"))
			case "dataValidation":
				dv := &DataValidation{
					Kind:       DataValidationKind(attrVal(t, "type")),
					AllowBlank: attrVal(t, "allowBlank") == "1",
					Sqref:      attrVal(t, "sqref"),
					Operator:   attrVal(t, "operator"),
				}
				curValidation = dv
			case "formula1":
				if curValidation != nil {
					inFormula1 = true
					valueBuf.Reset()
				}
			case "formula2":
				if curValidation != nil {
					inFormula2 = true
					valueBuf.Reset()
				}
			case "formula":
				if curRule != nil {
					inCFFormula = true
					valueBuf.Reset()
				}
			case "hyperlink":
				hl := Hyperlink{RelID: attrVal(t, "id"), Display: attrVal(t, "display"), Tooltip: attrVal(t, "tooltip"), Location: attrVal(t, "location")}
				if ref := attrVal(t, "ref"); ref != "" {
					if r, err := ParseCellReference(ref); err == nil {
						hl.Ref = r
					}
				}
				ws.Hyperlinks = append(ws.Hyperlinks, hl)
			case "sheetProtection":
				ws.Protection = parseSheetProtection(t)
			case "autoFilter":
				curAutoFilter = &AutoFilter{Ref: attrVal(t, "ref")}
				ws.AutoFilter = curAutoFilter
			case "filterColumn":
				if curAutoFilter != nil {
					colID, _ := strconv.Atoi(attrVal(t, "colId"))
					curFilterColumn = &FilterColumn{ColID: colID}
				}
			case "filter":
				if curFilterColumn != nil {
					curFilterColumn.Filters = append(curFilterColumn.Filters, Filter{Val: attrVal(t, "val")})
				}
			case "conditionalFormatting":
				curCF = &ConditionalFormat{Sqref: attrVal(t, "sqref")}
			case "cfRule":
				if curCF != nil {
					rule := &CFRule{Kind: CFRuleKind(attrVal(t, "type")), Operator: attrVal(t, "operator")}
					if p := attrVal(t, "priority"); p != "" {
						if n, err := strconv.Atoi(p); err == nil {
							rule.Priority = &n
						}
					}
					if d := attrVal(t, "dxfId"); d != "" {
						if n, err := strconv.Atoi(d); err == nil {
							rule.DxfID = &n
						}
					}
					rule.StopIfTrue = attrVal(t, "stopIfTrue") == "1"
					curRule = rule
				}
			case "cfvo":
				if curRule != nil {
					vo := CFValueObject{Type: attrVal(t, "type"), Value: attrVal(t, "val")}
					switch curRule.Kind {
					case CFDataBar:
						if curRule.Min == nil {
							curRule.Min = &vo
						} else {
							curRule.Max = &vo
						}
					case CFColorScale, CFIconSet:
						curRule.Values = append(curRule.Values, vo)
					}
				}
			case "color":
				if curRule != nil {
					rgb := attrVal(t, "rgb")
					switch curRule.Kind {
					case CFDataBar:
						curRule.Color = rgb
					case CFColorScale:
						curRule.Colors = append(curRule.Colors, rgb)
					}
				}
			case "dataBar":
				if curRule != nil {
					curRule.ShowValue = attrVal(t, "showValue") != "0"
				}
			case "iconSet":
				if curRule != nil {
					curRule.IconSetName = attrVal(t, "iconSet")
					curRule.ShowValue = attrVal(t, "showValue") != "0"
					curRule.Reverse = attrVal(t, "reverse") == "1"
					curRule.Percent = attrVal(t, "percent") != "0"
				}
			case "pageSetup":
				ps := &PageSetup{Orientation: attrVal(t, "orientation")}
				ps.PaperSize, _ = strconv.Atoi(attrVal(t, "paperSize"))
				ps.Scale, _ = strconv.Atoi(attrVal(t, "scale"))
				if fw := attrVal(t, "fitToWidth"); fw != "" {
					if n, err := strconv.Atoi(fw); err == nil {
						ps.FitToWidth = &n
					}
				}
				if fh := attrVal(t, "fitToHeight"); fh != "" {
					if n, err := strconv.Atoi(fh); err == nil {
						ps.FitToHeight = &n
					}
				}
				ws.PageSetup = ps
			case "pageMargins":
				m := &Margins{}
				m.Left = parseFloatAttr(t, "left")
				m.Right = parseFloatAttr(t, "right")
				m.Top = parseFloatAttr(t, "top")
				m.Bottom = parseFloatAttr(t, "bottom")
				m.Header = parseFloatAttr(t, "header")
				m.Footer = parseFloatAttr(t, "footer")
				ws.Margins = m
			case "legacyDrawing":
				ws.LegacyDrawingRelID = attrVal(t, "id")
			case "sheetView":
				v := &SheetView{
					RightToLeft:   attrVal(t, "rightToLeft") == "1",
					ShowGridLines: attrVal(t, "showGridLines") != "0",
					TabSelected:   attrVal(t, "tabSelected") == "1",
				}
				if z := attrVal(t, "zoomScale"); z != "" {
					v.Zoom, _ = strconv.Atoi(z)
				} else {
					v.Zoom = 100
				}
				curView = v
				ws.View = v
			case "pane":
				if curView != nil {
					p := &Pane{TopLeftCell: attrVal(t, "topLeftCell"), ActivePane: attrVal(t, "activePane")}
					p.XSplit = parseFloatAttr(t, "xSplit")
					p.YSplit = parseFloatAttr(t, "ySplit")
					switch attrVal(t, "state") {
					case "frozenSplit":
						p.State = PaneFrozenSplit
					case "frozen":
						p.State = PaneFrozen
					default:
						p.State = PaneSplit
					}
					curView.Pane = p
				}
			case "selection":
				if curView != nil {
					curView.ActiveCell = attrVal(t, "activeCell")
					curView.Sqref = attrVal(t, "sqref")
				}
			}
			push(name)
		case xml.CharData:
			if inValue {
				valueBuf.Write(t)
			}
			if inFormula {
				formulaBuf.Write(t)
			}
			if inFormula1 || inFormula2 || inCFFormula {
				valueBuf.Write(t)
			}
		case xml.EndElement:
			name := localName(t.Name)
			switch name {
			case "v":
				inValue = false
				if curCell != nil {
					curCell.Value = classifyRawValue(curCellType, valueBuf.String())
				}
			case "f":
				inFormula = false
				if curCell != nil {
					curCell.HasForm = true
					curCell.Formula = formulaBuf.String()
				}
			case "formula1":
				if curValidation != nil && inFormula1 {
					curValidation.Formula1 = valueBuf.String()
				}
				inFormula1 = false
			case "formula2":
				if curValidation != nil {
					curValidation.Formula2 = valueBuf.String()
				}
				inFormula2 = false
			case "formula":
				if curRule != nil && inCFFormula {
					curRule.Formulas = append(curRule.Formulas, valueBuf.String())
				}
				inCFFormula = false
			case "c":
				if curRow != nil && curCell != nil {
					curRow.Cells = append(curRow.Cells, *curCell)
				}
				curCell = nil
			case "row":
				if curRow != nil {
					ws.Rows = append(ws.Rows, *curRow)
				}
				curRow = nil
			case "dataValidation":
				if curValidation != nil {
					ws.DataValidations = append(ws.DataValidations, *curValidation)
					curValidation = nil
				}
			case "cfRule":
				if curCF != nil && curRule != nil {
					curCF.Rules = append(curCF.Rules, *curRule)
					curRule = nil
				}
			case "conditionalFormatting":
				if curCF != nil {
					ws.ConditionalFormats = append(ws.ConditionalFormats, *curCF)
					curCF = nil
				}
			case "filterColumn":
				if curAutoFilter != nil && curFilterColumn != nil {
					curAutoFilter.FilterColumns = append(curAutoFilter.FilterColumns, *curFilterColumn)
					curFilterColumn = nil
				}
			case "autoFilter":
				curAutoFilter = nil
			}
			pop()
		}
	}
	return ws, nil
}

func parseFloatAttr(t xml.StartElement, name string) float64 {
	v, _ := strconv.ParseFloat(attrVal(t, name), 64)
	return v
}

func parseSheetProtection(t xml.StartElement) *SheetProtection {
	allowed := func(name string) bool {
		v := attrVal(t, name)
		return v != "0" && v != "false"
	}
	return &SheetProtection{
		Sheet:               attrVal(t, "sheet") == "1" || attrVal(t, "sheet") == "true",
		Objects:             allowed("objects"),
		Scenarios:           allowed("scenarios"),
		FormatCells:         allowed("formatCells"),
		FormatColumns:       allowed("formatColumns"),
		FormatRows:          allowed("formatRows"),
		InsertColumns:       allowed("insertColumns"),
		InsertRows:          allowed("insertRows"),
		InsertHyperlinks:    allowed("insertHyperlinks"),
		DeleteColumns:       allowed("deleteColumns"),
		DeleteRows:          allowed("deleteRows"),
		SelectLockedCells:   allowed("selectLockedCells"),
		Sort:                allowed("sort"),
		AutoFilter:          allowed("autoFilter"),
		PivotTables:         allowed("pivotTables"),
		SelectUnlockedCells: allowed("selectUnlockedCells"),
		PasswordHash:        attrVal(t, "password"),
	}
}

// classifyRawValue dispatches on a cell's type attribute.
func classifyRawValue(typeAttr, raw string) RawCellValue {
	switch typeAttr {
	case "s":
		n, _ := strconv.Atoi(raw)
		return RawCellValue{Kind: RawSharedString, SSTIdx: n}
	case "b":
		return RawCellValue{Kind: RawBoolean, Bool: raw == "1"}
	case "str":
		return RawCellValue{Kind: RawInlineString, Str: raw}
	case "e":
		return RawCellValue{Kind: RawError, Str: raw}
	case "d":
		return RawCellValue{Kind: RawDate, Str: raw}
	case "n", "":
		if raw == "" {
			return RawCellValue{Kind: RawEmpty}
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return RawCellValue{Kind: RawEmpty}
		}
		return RawCellValue{Kind: RawNumber, Num: f}
	default:
		return RawCellValue{Kind: RawEmpty}
	}
}
