package xlcore

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"golang.org/x/net/html/charset"
)

// decodeXML unmarshals an XML part using a charset-aware decoder so that
// parts whose prolog declares a non-UTF-8 codepage (seen in spreadsheets
// produced by older regional Excel builds) still decode instead of failing
// outright. The struct-unmarshalling readers ([Content_Types].xml and
// .rels) use it; the token-walking parsers get the same charset setup from
// newTokenDecoder. The returned PackageError carries no part path.
func decodeXML(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false
	if err := dec.Decode(v); err != nil {
		return &PackageError{Code: ErrMalformedXML, Detail: err.Error()}
	}
	return nil
}

// newTokenDecoder is used by the SAX-style push parsers, which walk
// xml.Token streams directly rather than unmarshalling into a struct tree.
func newTokenDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false
	return dec
}

// localName strips any namespace prefix/URI so callers can compare only the
// local part of an element or attribute name, tolerating namespace-qualified
// documents.
func localName(n xml.Name) string {
	return n.Local
}

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// marshalXML serializes v and prepends the single leading XML declaration
// every builder must emit.
func marshalXML(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal xml: %w", err)
	}
	out := make([]byte, 0, len(xmlDeclaration)+len(body))
	out = append(out, []byte(xmlDeclaration)...)
	out = append(out, body...)
	return out, nil
}

// escapeXMLText escapes attribute and text content per XML entity rules;
// used by the hand-rolled streaming builders that write XML by hand instead
// of through encoding/xml, to keep them allocation-light over large sheets.
func escapeXMLText(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
