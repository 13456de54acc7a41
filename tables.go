package xlcore

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TableColumn and TableData are metadata-only descriptors covering table
// style info and totals row configuration.
type TableColumn struct {
	ID                int
	Name              string
	TotalsRowFunction string
	TotalsRowLabel    string
}

type TableData struct {
	Name            string
	DisplayName     string
	Ref             string
	HeaderRowCount  int
	TotalsRowShown  bool
	TotalsRowCount  int
	StyleName       string
	ShowFirstColumn bool
	ShowLastColumn  bool
	Columns         []TableColumn
}

// parseTable is a namespace-tolerant, best-effort reader: a parse failure
// here never aborts opening the rest of the workbook.
func parseTable(data []byte) (*TableData, error) {
	dec := newTokenDecoder(data)
	td := &TableData{HeaderRowCount: 1}
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &PackageError{Code: ErrMalformedXML, Detail: err.Error()}
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch localName(se.Name) {
		case "table":
			td.Name = attrVal(se, "name")
			td.DisplayName = attrVal(se, "displayName")
			td.Ref = attrVal(se, "ref")
			if h := attrVal(se, "headerRowCount"); h != "" {
				td.HeaderRowCount, _ = strconv.Atoi(h)
			}
			td.TotalsRowShown = attrVal(se, "totalsRowShown") == "1"
			if tc := attrVal(se, "totalsRowCount"); tc != "" {
				td.TotalsRowCount, _ = strconv.Atoi(tc)
			}
		case "tableColumn":
			id, _ := strconv.Atoi(attrVal(se, "id"))
			td.Columns = append(td.Columns, TableColumn{
				ID:                id,
				Name:              attrVal(se, "name"),
				TotalsRowFunction: attrVal(se, "totalsRowFunction"),
				TotalsRowLabel:    attrVal(se, "totalsRowLabel"),
			})
		case "tableStyleInfo":
			td.StyleName = attrVal(se, "name")
			td.ShowFirstColumn = attrVal(se, "showFirstColumn") == "1"
			td.ShowLastColumn = attrVal(se, "showLastColumn") == "1"
		}
	}
	return td, nil
}

func buildTableXML(id int, t TableData) []byte {
	var sb strings.Builder
	sb.WriteString(xmlDeclaration)
	fmt.Fprintf(&sb, `<table xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" id="%d" name="%s" displayName="%s" ref="%s" headerRowCount="%d"`,
		id, escapeXMLText(t.Name), escapeXMLText(t.DisplayName), escapeXMLText(t.Ref), t.HeaderRowCount)
	if t.TotalsRowShown {
		fmt.Fprintf(&sb, ` totalsRowShown="1" totalsRowCount="%d"`, t.TotalsRowCount)
	} else {
		sb.WriteString(` totalsRowShown="0"`)
	}
	sb.WriteString(`>`)
	fmt.Fprintf(&sb, `<autoFilter ref="%s"/>`, escapeXMLText(t.Ref))
	fmt.Fprintf(&sb, `<tableColumns count="%d">`, len(t.Columns))
	for _, c := range t.Columns {
		fmt.Fprintf(&sb, `<tableColumn id="%d" name="%s"`, c.ID, escapeXMLText(c.Name))
		if c.TotalsRowFunction != "" {
			fmt.Fprintf(&sb, ` totalsRowFunction="%s"`, c.TotalsRowFunction)
		}
		if c.TotalsRowLabel != "" {
			fmt.Fprintf(&sb, ` totalsRowLabel="%s"`, escapeXMLText(c.TotalsRowLabel))
		}
		sb.WriteString(`/>`)
	}
	sb.WriteString(`</tableColumns>`)
	if t.StyleName != "" {
		fmt.Fprintf(&sb, `<tableStyleInfo name="%s" showFirstColumn="%s" showLastColumn="%s" showRowStripes="1" showColumnStripes="0"/>`,
			escapeXMLText(t.StyleName), boolAttr(t.ShowFirstColumn), boolAttr(t.ShowLastColumn))
	}
	sb.WriteString(`</table>`)
	return []byte(sb.String())
}
