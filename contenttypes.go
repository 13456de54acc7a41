package xlcore

import "encoding/xml"

// Content type constants for the OPC parts this package reads and writes.
const (
	ContentTypeWorkbook        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	ContentTypeWorksheet       = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	ContentTypeStyles          = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	ContentTypeSharedStrings   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	ContentTypeTable           = "application/vnd.openxmlformats-officedocument.spreadsheetml.table+xml"
	ContentTypeComments        = "application/vnd.openxmlformats-officedocument.spreadsheetml.comments+xml"
	ContentTypeVMLDrawing      = "application/vnd.openxmlformats-officedocument.vmlDrawing"
	ContentTypePivotTable      = "application/vnd.openxmlformats-officedocument.spreadsheetml.pivotTable+xml"
	ContentTypeChart           = "application/vnd.openxmlformats-officedocument.drawingml.chart+xml"
	ContentTypeDrawing         = "application/vnd.openxmlformats-officedocument.drawing+xml"
	ContentTypeVBAProject      = "application/vnd.ms-office.vbaProject"
	ContentTypeCore            = "application/vnd.openxmlformats-package.core-properties+xml"
	ContentTypeApp             = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	ContentTypeRelationships   = "application/vnd.openxmlformats-package.relationships+xml"
)

// Relationship type URIs used to wire the package relationship graph.
const (
	RelTypeOfficeDocument  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelTypeWorksheet       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"
	RelTypeStyles          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelTypeSharedStrings   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings"
	RelTypeTable           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/table"
	RelTypeComments        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	RelTypeVMLDrawing      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/vmlDrawing"
	RelTypePivotTable      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/pivotTable"
	RelTypeChart           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart"
	RelTypeDrawing         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/drawing"
	RelTypeHyperlink       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	RelTypeVBAProject      = "http://schemas.microsoft.com/office/2006/relationships/vbaProject"
	RelTypeCore            = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	RelTypeApp             = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
)

var defaultContentTypesByExt = map[string]string{
	"rels": ContentTypeRelationships,
	"xml":  "application/xml",
}

// xlsxTypes is the raw [Content_Types].xml shape: a list of extension-keyed
// defaults and path-keyed overrides, override winning when both apply.
type xlsxTypes struct {
	XMLName   xml.Name              `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []xlsxContentDefault  `xml:"Default"`
	Overrides []xlsxContentOverride `xml:"Override"`
}

type xlsxContentDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type xlsxContentOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// ContentTypes tracks extension defaults and path overrides, with overrides
// taking priority.
type ContentTypes struct {
	defaults      map[string]string
	defaultOrder  []string
	overrides     map[partPath]string
	// overrideOrder preserves insertion order for deterministic writes.
	overrideOrder []partPath
}

func newContentTypes() *ContentTypes {
	ct := &ContentTypes{defaults: make(map[string]string), overrides: make(map[partPath]string)}
	for _, ext := range []string{"rels", "xml"} {
		ct.setDefault(ext, defaultContentTypesByExt[ext])
	}
	return ct
}

func (ct *ContentTypes) setDefault(ext, contentType string) {
	if _, exists := ct.defaults[ext]; !exists {
		ct.defaultOrder = append(ct.defaultOrder, ext)
	}
	ct.defaults[ext] = contentType
}

func parseContentTypes(data []byte) (*ContentTypes, error) {
	var raw xlsxTypes
	if err := decodeXML(data, &raw); err != nil {
		return nil, err
	}
	ct := newContentTypes()
	for _, d := range raw.Defaults {
		ct.setDefault(d.Extension, d.ContentType)
	}
	for _, o := range raw.Overrides {
		ct.setOverride(normalizePartPath(o.PartName), o.ContentType)
	}
	return ct, nil
}

func (ct *ContentTypes) setOverride(p partPath, contentType string) {
	if _, exists := ct.overrides[p]; !exists {
		ct.overrideOrder = append(ct.overrideOrder, p)
	}
	ct.overrides[p] = contentType
}

// Lookup returns the content type for path p: override wins, falling back
// to the extension default.
func (ct *ContentTypes) Lookup(p partPath) (string, bool) {
	if ov, ok := ct.overrides[p]; ok {
		return ov, true
	}
	ext := p.ext()
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	def, ok := ct.defaults[ext]
	return def, ok
}

func (ct *ContentTypes) marshal() ([]byte, error) {
	raw := xlsxTypes{}
	for _, ext := range ct.defaultOrder {
		raw.Defaults = append(raw.Defaults, xlsxContentDefault{Extension: ext, ContentType: ct.defaults[ext]})
	}
	for _, p := range ct.overrideOrder {
		raw.Overrides = append(raw.Overrides, xlsxContentOverride{PartName: string(p), ContentType: ct.overrides[p]})
	}
	return marshalXML(raw)
}
