package xlcore

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SheetVisibility is a closed variant over the three states a sheet's
// state attribute may declare.
type SheetVisibility string

const (
	SheetVisible     SheetVisibility = "visible"
	SheetHidden      SheetVisibility = "hidden"
	SheetVeryHidden  SheetVisibility = "veryHidden"
)

// SheetInfo.
type SheetInfo struct {
	Name       string
	SheetID    int
	RelID      string
	Visibility SheetVisibility
}

// DefinedName.
type DefinedName struct {
	Name          string
	RefersTo      string
	LocalSheetID  *int
}

// WorkbookProtection records the workbookProtection lock flags (true when
// the attribute is "1") and the password hash.
type WorkbookProtection struct {
	LockStructure bool
	LockWindows   bool
	PasswordHash  string
}

// CalcProperties is the workbook's calcPr element (calculation mode and
// fullCalcOnLoad). It is parsed and written back; the formula subsystem
// does not read it.
type CalcProperties struct {
	Manual         bool
	FullCalcOnLoad bool
}

// WorkbookInfo is the parsed /xl/workbook.xml.
type WorkbookInfo struct {
	Sheets       []SheetInfo
	DefinedNames []DefinedName
	Protection   *WorkbookProtection
	CalcProps    *CalcProperties
}

// Reserved defined-name identifiers Excel uses to encode a sheet's print
// area and print titles instead of carrying them as dedicated worksheet
// elements.
const (
	definedNamePrintArea   = "_xlnm.Print_Area"
	definedNamePrintTitles = "_xlnm.Print_Titles"
)

// applyPrintDefinedNames populates raw.PrintArea/PrintTitles by scanning the
// workbook's defined names for the reserved _xlnm.Print_Area/Print_Titles
// entries scoped to sheetIndex (the zero-based position matching
// definedName's localSheetId attribute).
func applyPrintDefinedNames(raw *WorksheetData, names []DefinedName, sheetIndex int) {
	for _, dn := range names {
		if dn.LocalSheetID == nil || *dn.LocalSheetID != sheetIndex {
			continue
		}
		switch dn.Name {
		case definedNamePrintArea:
			_, ref := SplitDefinedNameRef(dn.RefersTo)
			raw.PrintArea = &PrintArea{Ref: ref}
		case definedNamePrintTitles:
			raw.PrintTitles = parsePrintTitlesRef(dn.RefersTo)
		}
	}
}

// parsePrintTitlesRef splits a Print_Titles RefersTo expression, which may
// hold a comma-separated pair of ranges (repeating row range first, then
// repeating column range), each with its own sheet-name prefix, e.g.
// "Sheet1!$1:$3,Sheet1!$A:$B".
func parsePrintTitlesRef(refersTo string) *PrintTitles {
	pt := &PrintTitles{}
	for _, part := range strings.Split(refersTo, ",") {
		_, ref := SplitDefinedNameRef(strings.TrimSpace(part))
		if ref == "" {
			continue
		}
		if strings.ContainsAny(ref, "123456789") {
			pt.Rows = ref
		} else {
			pt.Cols = ref
		}
	}
	if pt.Rows == "" && pt.Cols == "" {
		return nil
	}
	return pt
}

// buildPrintDefinedNames renders the reserved _xlnm.Print_Area/Print_Titles
// DefinedName entries for one sheet, given its name and parsed print
// settings. It returns no entries for settings left unset.
func buildPrintDefinedNames(sheetName string, sheetIndex int, area *PrintArea, titles *PrintTitles) []DefinedName {
	var out []DefinedName
	quoted := sheetName
	if strings.ContainsAny(sheetName, " !'") {
		quoted = "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
	}
	if area != nil && area.Ref != "" {
		areaIdx := sheetIndex
		out = append(out, DefinedName{
			Name:         definedNamePrintArea,
			RefersTo:     quoted + "!" + area.Ref,
			LocalSheetID: &areaIdx,
		})
	}
	if titles != nil && (titles.Rows != "" || titles.Cols != "") {
		var parts []string
		if titles.Rows != "" {
			parts = append(parts, quoted+"!"+titles.Rows)
		}
		if titles.Cols != "" {
			parts = append(parts, quoted+"!"+titles.Cols)
		}
		titlesIdx := sheetIndex
		out = append(out, DefinedName{
			Name:         definedNamePrintTitles,
			RefersTo:     strings.Join(parts, ","),
			LocalSheetID: &titlesIdx,
		})
	}
	return out
}

// SplitDefinedNameRef splits a refers-to expression on the LAST "!" and
// strips matching single quotes around the sheet part.
func SplitDefinedNameRef(refersTo string) (sheet, ref string) {
	i := strings.LastIndex(refersTo, "!")
	if i < 0 {
		return "", refersTo
	}
	sheet, ref = refersTo[:i], refersTo[i+1:]
	if len(sheet) >= 2 && sheet[0] == '\'' && sheet[len(sheet)-1] == '\'' {
		sheet = sheet[1 : len(sheet)-1]
	}
	return sheet, ref
}

func parseWorkbookXML(data []byte) (*WorkbookInfo, error) {
	dec := newTokenDecoder(data)
	wb := &WorkbookInfo{}

	var inDefinedName bool
	var curName string
	var curLocalSheetID *int
	var refBuf strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &PackageError{Code: ErrMalformedXML, Part: "/xl/workbook.xml", Detail: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "sheet":
				id, _ := strconv.Atoi(attrVal(t, "sheetId"))
				vis := SheetVisible
				switch attrVal(t, "state") {
				case "hidden":
					vis = SheetHidden
				case "veryHidden":
					vis = SheetVeryHidden
				}
				wb.Sheets = append(wb.Sheets, SheetInfo{
					Name:       attrVal(t, "name"),
					SheetID:    id,
					RelID:      relIDAttr(t),
					Visibility: vis,
				})
			case "definedName":
				inDefinedName = true
				curName = attrVal(t, "name")
				curLocalSheetID = nil
				if ls := attrVal(t, "localSheetId"); ls != "" {
					if n, err := strconv.Atoi(ls); err == nil {
						curLocalSheetID = &n
					}
				}
				refBuf.Reset()
			case "workbookProtection":
				wb.Protection = &WorkbookProtection{
					LockStructure: attrVal(t, "lockStructure") == "1",
					LockWindows:   attrVal(t, "lockWindows") == "1",
					PasswordHash:  attrVal(t, "workbookPasswordCharacterSet") + attrVal(t, "workbookHashValue"),
				}
			case "calcPr":
				cp := &CalcProperties{FullCalcOnLoad: attrVal(t, "fullCalcOnLoad") == "1"}
				cp.Manual = attrVal(t, "calcMode") == "manual"
				wb.CalcProps = cp
			}
		case xml.CharData:
			if inDefinedName {
				refBuf.Write(t)
			}
		case xml.EndElement:
			if localName(t.Name) == "definedName" && inDefinedName {
				wb.DefinedNames = append(wb.DefinedNames, DefinedName{
					Name: curName, RefersTo: refBuf.String(), LocalSheetID: curLocalSheetID,
				})
				inDefinedName = false
			}
		}
	}
	return wb, nil
}

// relIDAttr reads the namespace-qualified r:id attribute.
func relIDAttr(t xml.StartElement) string {
	for _, a := range t.Attr {
		if a.Name.Local == "id" && strings.Contains(a.Name.Space, "relationships") {
			return a.Value
		}
	}
	return attrVal(t, "id")
}

func buildWorkbookXML(wb *WorkbookInfo) []byte {
	var sb strings.Builder
	sb.WriteString(xmlDeclaration)
	sb.WriteString(`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`)
	if wb.Protection != nil {
		fmt.Fprintf(&sb, `<workbookProtection lockStructure="%s" lockWindows="%s"/>`,
			boolAttr(wb.Protection.LockStructure), boolAttr(wb.Protection.LockWindows))
	}
	sb.WriteString(`<sheets>`)
	for _, s := range wb.Sheets {
		state := ""
		switch s.Visibility {
		case SheetHidden:
			state = ` state="hidden"`
		case SheetVeryHidden:
			state = ` state="veryHidden"`
		}
		fmt.Fprintf(&sb, `<sheet name="%s" sheetId="%d" r:id="%s"%s/>`,
			escapeXMLText(s.Name), s.SheetID, s.RelID, state)
	}
	sb.WriteString(`</sheets>`)
	if len(wb.DefinedNames) > 0 {
		sb.WriteString(`<definedNames>`)
		for _, dn := range wb.DefinedNames {
			if dn.LocalSheetID != nil {
				fmt.Fprintf(&sb, `<definedName name="%s" localSheetId="%d">%s</definedName>`,
					escapeXMLText(dn.Name), *dn.LocalSheetID, escapeXMLText(dn.RefersTo))
			} else {
				fmt.Fprintf(&sb, `<definedName name="%s">%s</definedName>`, escapeXMLText(dn.Name), escapeXMLText(dn.RefersTo))
			}
		}
		sb.WriteString(`</definedNames>`)
	}
	if wb.CalcProps != nil {
		mode := "auto"
		if wb.CalcProps.Manual {
			mode = "manual"
		}
		fmt.Fprintf(&sb, `<calcPr calcMode="%s" fullCalcOnLoad="%s"/>`, mode, boolAttr(wb.CalcProps.FullCalcOnLoad))
	}
	sb.WriteString(`</workbook>`)
	return []byte(sb.String())
}
