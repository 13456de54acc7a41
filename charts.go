package xlcore

import (
	"encoding/xml"
	"errors"
	"io"
)

// ChartType is a closed variant with an explicit Unknown fallback so an
// unrecognized chart type never panics the reader.
type ChartType string

const (
	ChartTypeBar        ChartType = "bar"
	ChartTypeBarDir     ChartType = "barDir"
	ChartTypeLine       ChartType = "line"
	ChartTypePie        ChartType = "pie"
	ChartTypeScatter    ChartType = "scatter"
	ChartTypeArea       ChartType = "area"
	ChartTypeRadar      ChartType = "radar"
	ChartTypeUnknownPfx ChartType = "unknown:"
)

// ChartData is a metadata-only descriptor; rendering is out of scope.
// Only parseChart produces it; Open does not load chart parts and the
// writer does not emit them.
type ChartData struct {
	Type        ChartType
	Unknown     string
	Title       string
	SeriesCount int
}

// parseChart decodes one chart part and returns any decode error to its
// caller. Open does not load chart parts, so no chart Diagnostic is ever
// recorded.
func parseChart(data []byte) (*ChartData, error) {
	dec := newTokenDecoder(data)
	cd := &ChartData{}
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
		case "barChart":
			cd.Type = ChartTypeBar
		case "lineChart":
			cd.Type = ChartTypeLine
		case "pieChart":
			cd.Type = ChartTypePie
		case "scatterChart":
			cd.Type = ChartTypeScatter
		case "areaChart":
			cd.Type = ChartTypeArea
		case "radarChart":
			cd.Type = ChartTypeRadar
		case "ser":
			cd.SeriesCount++
		case "tx":
			// Title text is nested several levels under <title>/<tx>/<rich>;
			// a best-effort reader only needs to know one was present.
			if cd.Title == "" {
				cd.Title = "(title)"
			}
		}
	}
	if cd.Type == "" {
		cd.Type = ChartTypeUnknownPfx
		cd.Unknown = "unrecognized chart element"
	}
	return cd, nil
}

// PivotFieldData is a metadata-only pivot field descriptor.
type PivotFieldData struct {
	Name string
	Axis string
}

// PivotTableData is preserved verbatim on read; field counts are recorded
// but layout/calculation is not reproduced.
type PivotTableData struct {
	Name     string
	CacheID  int
	Location string
	Fields   []PivotFieldData
}

func parsePivotTable(data []byte) (*PivotTableData, error) {
	dec := newTokenDecoder(data)
	pt := &PivotTableData{}
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
		case "pivotTableDefinition":
			pt.Name = attrVal(se, "name")
			if c := attrVal(se, "cacheId"); c != "" {
				pt.CacheID = atoiSafe(c)
			}
		case "location":
			pt.Location = attrVal(se, "ref")
		case "pivotField":
			pt.Fields = append(pt.Fields, PivotFieldData{Name: attrVal(se, "name"), Axis: attrVal(se, "axis")})
		}
	}
	return pt, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
