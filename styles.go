package xlcore

import (
	"encoding/xml"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
)

// NumberFormat is a custom format code registered under id.
type NumberFormat struct {
	ID   int
	Code string
}

// Font, Fill, Border describe the subset of style records this core
// preserves and resolves; full visual fidelity (gradients, diagonal border
// variants beyond style name, theme palettes) is out of the object model's
// scope: the parser drops what it does not recognize, and marshal writes
// only the fields below.
type Font struct {
	Name      string
	Size      float64
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool
	RGB       string
	ThemeIdx  *int
}

type Fill struct {
	PatternType string
	FgRGB       string
	BgRGB       string
}

type Border struct {
	Left, Right, Top, Bottom string
}

// Alignment is the nested alignment record on a cell-format.
type Alignment struct {
	Horizontal   string
	Vertical     string
	WrapText     bool
	TextRotation int
	Indent       int
}

// CellFormat (a.k.a. "xf") ties a style index to a composite of
// number-format, font, fill, border and optional alignment.
type CellFormat struct {
	NumFmtID  int
	FontID    int
	FillID    int
	BorderID  int
	Alignment *Alignment
}

// StylesInfo is the zero-based, stable-indexed style table.
type StylesInfo struct {
	NumFmts   map[int]string
	Fonts     []Font
	Fills     []Fill
	Borders   []Border
	CellXfs   []CellFormat
}

// builtinDateNumFmtMin/Max is the built-in date range 14-22.
const (
	builtinDateNumFmtMin = 14
	builtinDateNumFmtMax = 22
)

// IsDateFormat reports whether a style is a date format: its numFmtId is
// 14-22, or its custom code
// contains y/m/d/h/s outside quoted literals, does not begin with #, 0 or ?,
// and is not exactly "@".
func (s *StylesInfo) IsDateFormat(cellFormatIndex int) bool {
	if cellFormatIndex < 0 || cellFormatIndex >= len(s.CellXfs) {
		return false
	}
	numFmtID := s.CellXfs[cellFormatIndex].NumFmtID
	if numFmtID >= builtinDateNumFmtMin && numFmtID <= builtinDateNumFmtMax {
		return true
	}
	code, ok := s.NumFmts[numFmtID]
	if !ok {
		return false
	}
	return isDateFormatCode(code)
}

func isDateFormatCode(code string) bool {
	if code == "@" {
		return false
	}
	if strings.HasPrefix(code, "#") || strings.HasPrefix(code, "0") || strings.HasPrefix(code, "?") {
		return false
	}
	inQuote := false
	for _, c := range code {
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch c {
		case 'y', 'm', 'd', 'h', 's':
			return true
		}
	}
	return false
}

// At returns the cell format at zero-based index, or the documented
// default (empty format, numFmtId 0) when the table has no record at that
// index.
func (s *StylesInfo) At(index int) CellFormat {
	if index < 0 || index >= len(s.CellXfs) {
		return CellFormat{}
	}
	return s.CellXfs[index]
}

func newStylesInfo() *StylesInfo {
	return &StylesInfo{NumFmts: make(map[int]string)}
}

// --- L2 parser ---

// parseStyles is a push-driven reader over numFmts/fonts/fills/borders and
// cellXfs inside <cellXfs> only (other xf containers, e.g. cellStyleXfs,
// are ignored). Defaults are seeded when a table is empty (an empty font,
// the none and gray125 fills, an empty border, an empty cell format).
func parseStyles(data []byte) (*StylesInfo, error) {
	dec := newTokenDecoder(data)
	info := newStylesInfo()

	var stack []string
	inCellXfs := false

	var curFont *Font
	var curFill *Fill
	var curBorder *Border
	var curXf *CellFormat

	push := func(name string) { stack = append(stack, name) }
	pop := func() {
		if len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
	}
	top := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &PackageError{Code: ErrMalformedXML, Part: "/xl/styles.xml", Detail: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			switch name {
			case "numFmt":
				id, _ := strconv.Atoi(attrVal(t, "numFmtId"))
				info.NumFmts[id] = attrVal(t, "formatCode")
			case "cellXfs":
				inCellXfs = true
			case "font":
				if top() == "fonts" {
					curFont = &Font{}
				}
			case "name":
				if curFont != nil && top() == "font" {
					curFont.Name = attrVal(t, "val")
				}
			case "sz":
				if curFont != nil && top() == "font" {
					if f, err := strconv.ParseFloat(attrVal(t, "val"), 64); err == nil {
						curFont.Size = f
					}
				}
			case "b":
				if curFont != nil && top() == "font" {
					curFont.Bold = true
				}
			case "i":
				if curFont != nil && top() == "font" {
					curFont.Italic = true
				}
			case "u":
				if curFont != nil && top() == "font" {
					curFont.Underline = true
				}
			case "strike":
				if curFont != nil && top() == "font" {
					curFont.Strike = true
				}
			case "color":
				if curFont != nil && top() == "font" {
					if rgb := attrVal(t, "rgb"); rgb != "" {
						curFont.RGB = rgb
					} else if th := attrVal(t, "theme"); th != "" {
						if n, err := strconv.Atoi(th); err == nil {
							curFont.ThemeIdx = &n
						}
					}
				} else if curFill != nil {
					if attrVal(t, "rgb") != "" {
						if top() == "fgColor" {
							curFill.FgRGB = attrVal(t, "rgb")
						} else if top() == "bgColor" {
							curFill.BgRGB = attrVal(t, "rgb")
						}
					}
				}
			case "fill":
				if top() == "fills" {
					curFill = &Fill{}
				}
			case "patternFill":
				if curFill != nil {
					curFill.PatternType = attrVal(t, "patternType")
				}
			case "border":
				if top() == "borders" {
					curBorder = &Border{}
				}
			case "left":
				if curBorder != nil {
					curBorder.Left = attrVal(t, "style")
				}
			case "right":
				if curBorder != nil {
					curBorder.Right = attrVal(t, "style")
				}
			case "top":
				if curBorder != nil {
					curBorder.Top = attrVal(t, "style")
				}
			case "bottom":
				if curBorder != nil {
					curBorder.Bottom = attrVal(t, "style")
				}
			case "xf":
				if inCellXfs && top() == "cellXfs" {
					numFmtID, _ := strconv.Atoi(attrVal(t, "numFmtId"))
					fontID, _ := strconv.Atoi(attrVal(t, "fontId"))
					fillID, _ := strconv.Atoi(attrVal(t, "fillId"))
					borderID, _ := strconv.Atoi(attrVal(t, "borderId"))
					curXf = &CellFormat{NumFmtID: numFmtID, FontID: fontID, FillID: fillID, BorderID: borderID}
				}
			case "alignment":
				if curXf != nil {
					wrap := attrVal(t, "wrapText") == "1" || attrVal(t, "wrapText") == "true"
					rotation, _ := strconv.Atoi(attrVal(t, "textRotation"))
					indent, _ := strconv.Atoi(attrVal(t, "indent"))
					curXf.Alignment = &Alignment{
						Horizontal:   attrVal(t, "horizontal"),
						Vertical:     attrVal(t, "vertical"),
						WrapText:     wrap,
						TextRotation: rotation,
						Indent:       indent,
					}
				}
			}
			push(name)
		case xml.EndElement:
			name := localName(t.Name)
			switch name {
			case "cellXfs":
				inCellXfs = false
			case "font":
				if curFont != nil {
					info.Fonts = append(info.Fonts, *curFont)
					curFont = nil
				}
			case "fill":
				if curFill != nil {
					info.Fills = append(info.Fills, *curFill)
					curFill = nil
				}
			case "border":
				if curBorder != nil {
					info.Borders = append(info.Borders, *curBorder)
					curBorder = nil
				}
			case "xf":
				if curXf != nil && inCellXfs {
					info.CellXfs = append(info.CellXfs, *curXf)
					curXf = nil
				}
			}
			pop()
		}
	}

	if len(info.Fills) == 0 {
		info.Fills = append(info.Fills, Fill{PatternType: "none"}, Fill{PatternType: "gray125"})
	}
	if len(info.Fonts) == 0 {
		info.Fonts = append(info.Fonts, Font{})
	}
	if len(info.Borders) == 0 {
		info.Borders = append(info.Borders, Border{})
	}
	if len(info.CellXfs) == 0 {
		info.CellXfs = append(info.CellXfs, CellFormat{})
	}
	return info, nil
}

// --- L3 builder ---

type xlsxStyleSheet struct {
	XMLName xml.Name          `xml:"http://schemas.openxmlformats.org/spreadsheetml/2006/main styleSheet"`
	NumFmts *xlsxNumFmtsBlock `xml:"numFmts"`
	Fonts   xlsxFontsBlock    `xml:"fonts"`
	Fills   xlsxFillsBlock    `xml:"fills"`
	Borders xlsxBordersBlock  `xml:"borders"`
	CellXfs xlsxCellXfsBlock  `xml:"cellXfs"`
}

type xlsxNumFmtsBlock struct {
	Count int             `xml:"count,attr"`
	List  []xlsxNumFmtDef `xml:"numFmt"`
}
type xlsxNumFmtDef struct {
	ID   int    `xml:"numFmtId,attr"`
	Code string `xml:"formatCode,attr"`
}

type xlsxFontsBlock struct {
	Count int           `xml:"count,attr"`
	List  []xlsxFontDef `xml:"font"`
}
type xlsxFontDef struct {
	Name   *xlsxStrVal   `xml:"name"`
	Sz     *xlsxFloatVal `xml:"sz"`
	B      *xlsxBoolVal  `xml:"b"`
	I      *xlsxBoolVal  `xml:"i"`
	U      *xlsxBoolVal  `xml:"u"`
	Strike *xlsxBoolVal  `xml:"strike"`
	Color  *xlsxColorRef `xml:"color"`
}

type xlsxFillsBlock struct {
	Count int           `xml:"count,attr"`
	List  []xlsxFillDef `xml:"fill"`
}
type xlsxFillDef struct {
	PatternFill xlsxPatternFillDef `xml:"patternFill"`
}
type xlsxPatternFillDef struct {
	PatternType string        `xml:"patternType,attr,omitempty"`
	FgColor     *xlsxColorRef `xml:"fgColor"`
	BgColor     *xlsxColorRef `xml:"bgColor"`
}

type xlsxBordersBlock struct {
	Count int             `xml:"count,attr"`
	List  []xlsxBorderDef `xml:"border"`
}
type xlsxBorderDef struct {
	Left   xlsxBorderSide `xml:"left"`
	Right  xlsxBorderSide `xml:"right"`
	Top    xlsxBorderSide `xml:"top"`
	Bottom xlsxBorderSide `xml:"bottom"`
}
type xlsxBorderSide struct {
	Style string `xml:"style,attr,omitempty"`
}

type xlsxCellXfsBlock struct {
	Count int         `xml:"count,attr"`
	List  []xlsxXfDef `xml:"xf"`
}
type xlsxXfDef struct {
	NumFmtID  int              `xml:"numFmtId,attr"`
	FontID    int              `xml:"fontId,attr"`
	FillID    int              `xml:"fillId,attr"`
	BorderID  int              `xml:"borderId,attr"`
	Alignment *xlsxAlignmentDef `xml:"alignment"`
}
type xlsxAlignmentDef struct {
	Horizontal   string `xml:"horizontal,attr,omitempty"`
	Vertical     string `xml:"vertical,attr,omitempty"`
	WrapText     bool   `xml:"wrapText,attr,omitempty"`
	TextRotation int    `xml:"textRotation,attr,omitempty"`
	Indent       int    `xml:"indent,attr,omitempty"`
}

func (s *StylesInfo) marshal() ([]byte, error) {
	raw := xlsxStyleSheet{}
	if len(s.NumFmts) > 0 {
		blk := &xlsxNumFmtsBlock{Count: len(s.NumFmts)}
		for _, id := range sortedNumFmtIDs(s.NumFmts) {
			blk.List = append(blk.List, xlsxNumFmtDef{ID: id, Code: s.NumFmts[id]})
		}
		raw.NumFmts = blk
	}
	for _, f := range s.Fonts {
		def := xlsxFontDef{Name: &xlsxStrVal{Val: f.Name}, Sz: &xlsxFloatVal{Val: f.Size}}
		if f.Bold {
			def.B = &xlsxBoolVal{}
		}
		if f.Italic {
			def.I = &xlsxBoolVal{}
		}
		if f.Underline {
			def.U = &xlsxBoolVal{}
		}
		if f.Strike {
			def.Strike = &xlsxBoolVal{}
		}
		if f.RGB != "" {
			def.Color = &xlsxColorRef{RGB: f.RGB}
		} else if f.ThemeIdx != nil {
			def.Color = &xlsxColorRef{Theme: f.ThemeIdx}
		}
		raw.Fonts.List = append(raw.Fonts.List, def)
	}
	raw.Fonts.Count = len(raw.Fonts.List)

	for _, fl := range s.Fills {
		def := xlsxFillDef{PatternFill: xlsxPatternFillDef{PatternType: fl.PatternType}}
		if fl.FgRGB != "" {
			def.PatternFill.FgColor = &xlsxColorRef{RGB: fl.FgRGB}
		}
		if fl.BgRGB != "" {
			def.PatternFill.BgColor = &xlsxColorRef{RGB: fl.BgRGB}
		}
		raw.Fills.List = append(raw.Fills.List, def)
	}
	raw.Fills.Count = len(raw.Fills.List)

	for _, b := range s.Borders {
		raw.Borders.List = append(raw.Borders.List, xlsxBorderDef{
			Left:   xlsxBorderSide{Style: b.Left},
			Right:  xlsxBorderSide{Style: b.Right},
			Top:    xlsxBorderSide{Style: b.Top},
			Bottom: xlsxBorderSide{Style: b.Bottom},
		})
	}
	raw.Borders.Count = len(raw.Borders.List)

	for _, xf := range s.CellXfs {
		def := xlsxXfDef{NumFmtID: xf.NumFmtID, FontID: xf.FontID, FillID: xf.FillID, BorderID: xf.BorderID}
		if xf.Alignment != nil {
			def.Alignment = &xlsxAlignmentDef{
				Horizontal:   xf.Alignment.Horizontal,
				Vertical:     xf.Alignment.Vertical,
				WrapText:     xf.Alignment.WrapText,
				TextRotation: xf.Alignment.TextRotation,
				Indent:       xf.Alignment.Indent,
			}
		}
		raw.CellXfs.List = append(raw.CellXfs.List, def)
	}
	raw.CellXfs.Count = len(raw.CellXfs.List)

	return marshalXML(raw)
}

// sortedNumFmtIDs returns the map's keys in ascending order so builder
// output is deterministic rather than leaking Go's randomized map
// iteration order.
func sortedNumFmtIDs(m map[int]string) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
