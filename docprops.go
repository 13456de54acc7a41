package xlcore

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CoreProperties is the Dublin Core subset carried by /docProps/core.xml:
// the document's title, authorship, and revision metadata.
type CoreProperties struct {
	Title          string
	Subject        string
	Creator        string
	Keywords       string
	Description    string
	LastModifiedBy string
	Created        string
	Modified       string
}

// AppProperties is the Microsoft extended-properties subset carried by
// /docProps/app.xml: the generating application's identity.
type AppProperties struct {
	Application string
	Company     string
}

func parseCoreProperties(data []byte) (*CoreProperties, error) {
	dec := newTokenDecoder(data)
	cp := &CoreProperties{}
	var field *string
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &PackageError{Code: ErrMalformedXML, Part: "/docProps/core.xml", Detail: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "title":
				field = &cp.Title
			case "subject":
				field = &cp.Subject
			case "creator":
				field = &cp.Creator
			case "keywords":
				field = &cp.Keywords
			case "description":
				field = &cp.Description
			case "lastModifiedBy":
				field = &cp.LastModifiedBy
			case "created":
				field = &cp.Created
			case "modified":
				field = &cp.Modified
			default:
				field = nil
			}
		case xml.CharData:
			if field != nil {
				*field += string(t)
			}
		case xml.EndElement:
			field = nil
		}
	}
	return cp, nil
}

func parseAppProperties(data []byte) (*AppProperties, error) {
	dec := newTokenDecoder(data)
	ap := &AppProperties{}
	var field *string
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &PackageError{Code: ErrMalformedXML, Part: "/docProps/app.xml", Detail: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "Application":
				field = &ap.Application
			case "Company":
				field = &ap.Company
			default:
				field = nil
			}
		case xml.CharData:
			if field != nil {
				*field += string(t)
			}
		case xml.EndElement:
			field = nil
		}
	}
	return ap, nil
}

func buildCorePropertiesXML(cp *CoreProperties) []byte {
	var sb strings.Builder
	sb.WriteString(xmlDeclaration)
	sb.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	fmt.Fprintf(&sb, `<dc:title>%s</dc:title>`, escapeXMLText(cp.Title))
	fmt.Fprintf(&sb, `<dc:subject>%s</dc:subject>`, escapeXMLText(cp.Subject))
	fmt.Fprintf(&sb, `<dc:creator>%s</dc:creator>`, escapeXMLText(cp.Creator))
	fmt.Fprintf(&sb, `<cp:keywords>%s</cp:keywords>`, escapeXMLText(cp.Keywords))
	fmt.Fprintf(&sb, `<dc:description>%s</dc:description>`, escapeXMLText(cp.Description))
	fmt.Fprintf(&sb, `<cp:lastModifiedBy>%s</cp:lastModifiedBy>`, escapeXMLText(cp.LastModifiedBy))
	if cp.Created != "" {
		fmt.Fprintf(&sb, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, escapeXMLText(cp.Created))
	}
	if cp.Modified != "" {
		fmt.Fprintf(&sb, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, escapeXMLText(cp.Modified))
	}
	sb.WriteString(`</cp:coreProperties>`)
	return []byte(sb.String())
}

func buildAppPropertiesXML(ap *AppProperties) []byte {
	var sb strings.Builder
	sb.WriteString(xmlDeclaration)
	sb.WriteString(`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">`)
	fmt.Fprintf(&sb, `<Application>%s</Application>`, escapeXMLText(ap.Application))
	fmt.Fprintf(&sb, `<Company>%s</Company>`, escapeXMLText(ap.Company))
	sb.WriteString(`</Properties>`)
	return []byte(sb.String())
}
