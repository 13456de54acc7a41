package xlcore

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

// SharedStringEntry is either a plain string or a rich-text run list.
// Plain is always populated (derived from Rich when the entry is
// rich) so callers never need to branch on IsRich before reading text.
type SharedStringEntry struct {
	IsRich bool
	Plain  string
	Rich   RichText
}

// SharedStrings is the ordered, immutable-after-construction shared string
// table.
type SharedStrings struct {
	entries []SharedStringEntry
}

// Len reports the number of entries.
func (s *SharedStrings) Len() int { return len(s.entries) }

// At returns the k-th entry. ok is false when k is out of range; the
// caller surfaces that as a typed error/cell value rather than here.
func (s *SharedStrings) At(k int) (SharedStringEntry, bool) {
	if k < 0 || k >= len(s.entries) {
		return SharedStringEntry{}, false
	}
	return s.entries[k], true
}

// Add returns the index of an existing identical plain-text entry, or
// appends a new one and returns its index, for use by sheet writers
// accumulating new strings.
func (s *SharedStrings) Add(text string) int {
	for i, e := range s.entries {
		if !e.IsRich && e.Plain == text {
			return i
		}
	}
	s.entries = append(s.entries, SharedStringEntry{Plain: text})
	return len(s.entries) - 1
}

// AddRich appends a rich-text entry and returns its index.
func (s *SharedStrings) AddRich(rt RichText) int {
	s.entries = append(s.entries, SharedStringEntry{IsRich: true, Plain: rt.PlainText(), Rich: rt})
	return len(s.entries) - 1
}

// parseSharedStrings is a push-driven element reader over <sst>/<si>/<r>/
// <rPr>/<t>. It never materializes a DOM; it tracks just the
// accumulating SharedStringEntry and (when inside a run) TextRun.
func parseSharedStrings(data []byte) (*SharedStrings, error) {
	dec := newTokenDecoder(data)
	sst := &SharedStrings{}

	var (
		inSI      bool
		siHasRuns bool
		siPlain   strings.Builder
		siRuns    []TextRun

		inRun   bool
		run     TextRun
		inRPr   bool
		inText  bool
		textBuf strings.Builder
	)

	flushSI := func() {
		if siHasRuns {
			sst.entries = append(sst.entries, SharedStringEntry{IsRich: true, Plain: concatRuns(siRuns), Rich: RichText{Runs: siRuns}})
		} else {
			sst.entries = append(sst.entries, SharedStringEntry{Plain: siPlain.String()})
		}
		inSI, siHasRuns = false, false
		siPlain.Reset()
		siRuns = nil
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &PackageError{Code: ErrMalformedXML, Part: "/xl/sharedStrings.xml", Detail: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "si":
				inSI = true
			case "r":
				if inSI {
					inRun = true
					run = TextRun{}
					siHasRuns = true
				}
			case "rPr":
				inRPr = true
			case "t":
				inText = true
				textBuf.Reset()
			case "rFont":
				if inRPr {
					run.FontName = attrVal(t, "val")
				}
			case "sz":
				if inRPr {
					if f, err := strconv.ParseFloat(attrVal(t, "val"), 64); err == nil {
						run.Size = f
					}
				}
			case "color":
				if inRPr {
					if rgb := attrVal(t, "rgb"); rgb != "" {
						run.RGB = rgb
					} else if th := attrVal(t, "theme"); th != "" {
						if n, err := strconv.Atoi(th); err == nil {
							run.ThemeIndex = &n
						}
					}
				}
			case "b":
				if inRPr {
					run.Bold = boolAttrDefaultTrue(t, "val")
				}
			case "i":
				if inRPr {
					run.Italic = boolAttrDefaultTrue(t, "val")
				}
			case "u":
				if inRPr {
					run.Underline = boolAttrDefaultTrue(t, "val")
				}
			case "strike":
				if inRPr {
					run.Strike = boolAttrDefaultTrue(t, "val")
				}
			case "vertAlign":
				if inRPr {
					switch attrVal(t, "val") {
					case "superscript":
						run.VerticalAlign = VerticalAlignSuperscript
					case "subscript":
						run.VerticalAlign = VerticalAlignSubscript
					}
				}
			}
		case xml.CharData:
			if inText {
				textBuf.Write(t)
			}
		case xml.EndElement:
			switch localName(t.Name) {
			case "rPr":
				inRPr = false
			case "t":
				inText = false
				if inRun {
					run.Text = textBuf.String()
				} else if inSI {
					siPlain.WriteString(textBuf.String())
				}
			case "r":
				if inRun {
					siRuns = append(siRuns, run)
					inRun = false
				}
			case "si":
				if inSI {
					flushSI()
				}
			}
		}
	}
	return sst, nil
}

func concatRuns(runs []TextRun) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

func attrVal(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// boolAttrDefaultTrue implements the "value defaults to true if val absent"
// rule for b/i/u/strike flags.
func boolAttrDefaultTrue(t xml.StartElement, local string) bool {
	v := attrVal(t, local)
	if v == "" {
		return true
	}
	return v == "1" || v == "true"
}

// --- L3 builder ---

type xlsxSST struct {
	XMLName xml.Name `xml:"http://schemas.openxmlformats.org/spreadsheetml/2006/main sst"`
	Count   int      `xml:"count,attr"`
	Unique  int      `xml:"uniqueCount,attr"`
	SI      []xlsxSI `xml:"si"`
}

type xlsxSI struct {
	T *xlsxSIText `xml:"t"`
	R []xlsxSIRun `xml:"r"`
}

type xlsxSIText struct {
	Space string `xml:"xml:space,attr,omitempty"`
	Value string `xml:",chardata"`
}

type xlsxSIRun struct {
	RPr *xlsxRunProps `xml:"rPr"`
	T   xlsxSIText    `xml:"t"`
}

type xlsxRunProps struct {
	B         *xlsxBoolVal  `xml:"b"`
	I         *xlsxBoolVal  `xml:"i"`
	Strike    *xlsxBoolVal  `xml:"strike"`
	U         *xlsxStrVal   `xml:"u"`
	VertAlign *xlsxStrVal   `xml:"vertAlign"`
	Sz        *xlsxFloatVal `xml:"sz"`
	Color     *xlsxColorRef `xml:"color"`
	RFont     *xlsxStrVal   `xml:"rFont"`
}

type xlsxBoolVal struct {
	Val bool `xml:"val,attr,omitempty"`
}
type xlsxStrVal struct {
	Val string `xml:"val,attr"`
}
type xlsxFloatVal struct {
	Val float64 `xml:"val,attr"`
}
type xlsxColorRef struct {
	RGB   string `xml:"rgb,attr,omitempty"`
	Theme *int   `xml:"theme,attr,omitempty"`
}

func (s *SharedStrings) marshal() ([]byte, error) {
	raw := xlsxSST{Count: len(s.entries), Unique: len(s.entries)}
	for _, e := range s.entries {
		if !e.IsRich {
			raw.SI = append(raw.SI, xlsxSI{T: &xlsxSIText{Value: e.Plain, Space: preserveSpace(e.Plain)}})
			continue
		}
		si := xlsxSI{}
		for _, run := range e.Rich.Runs {
			si.R = append(si.R, xlsxSIRun{RPr: runPropsOf(run), T: xlsxSIText{Value: run.Text, Space: preserveSpace(run.Text)}})
		}
		raw.SI = append(raw.SI, si)
	}
	return marshalXML(raw)
}

func preserveSpace(s string) string {
	if s == "" {
		return ""
	}
	if s[0] == ' ' || s[len(s)-1] == ' ' {
		return "preserve"
	}
	return ""
}

func runPropsOf(run TextRun) *xlsxRunProps {
	props := &xlsxRunProps{}
	any := false
	if run.FontName != "" {
		props.RFont = &xlsxStrVal{Val: run.FontName}
		any = true
	}
	if run.Size != 0 {
		props.Sz = &xlsxFloatVal{Val: run.Size}
		any = true
	}
	if run.RGB != "" {
		props.Color = &xlsxColorRef{RGB: run.RGB}
		any = true
	} else if run.ThemeIndex != nil {
		props.Color = &xlsxColorRef{Theme: run.ThemeIndex}
		any = true
	}
	if run.Bold {
		props.B = &xlsxBoolVal{}
		any = true
	}
	if run.Italic {
		props.I = &xlsxBoolVal{}
		any = true
	}
	if run.Underline {
		props.U = &xlsxStrVal{Val: "single"}
		any = true
	}
	if run.Strike {
		props.Strike = &xlsxBoolVal{}
		any = true
	}
	if run.VerticalAlign != VerticalAlignNone {
		props.VertAlign = &xlsxStrVal{Val: string(run.VerticalAlign)}
		any = true
	}
	if !any {
		return nil
	}
	return props
}
