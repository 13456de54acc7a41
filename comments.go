package xlcore

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Comment is a single cell annotation.
type Comment struct {
	Ref    CellReference
	Author string
	Text   string
}

// CommentsData is the parsed /xl/comments{n}.xml part: an author table plus
// a list of comments each carrying an author index.
type CommentsData struct {
	Authors  []string
	Comments []rawComment
}

type rawComment struct {
	Ref      CellReference
	AuthorID int
	Text     string
}

// Resolved returns the comments with author names resolved; an
// out-of-range authorId yields a comment with no author.
func (c *CommentsData) Resolved() []Comment {
	out := make([]Comment, 0, len(c.Comments))
	for _, rc := range c.Comments {
		author := ""
		if rc.AuthorID >= 0 && rc.AuthorID < len(c.Authors) {
			author = c.Authors[rc.AuthorID]
		}
		out = append(out, Comment{Ref: rc.Ref, Author: author, Text: rc.Text})
	}
	return out
}

// parseComments is a push-driven reader over <authors>/<author> then each
// <comment>/<text>/<r>/<t>, concatenating run text.
func parseComments(data []byte) (*CommentsData, error) {
	dec := newTokenDecoder(data)
	cd := &CommentsData{}

	var inAuthors, inAuthorEl bool
	var authorBuf strings.Builder

	var curComment *rawComment
	var inText bool
	var textBuf strings.Builder

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
			switch localName(t.Name) {
			case "authors":
				inAuthors = true
			case "author":
				if inAuthors {
					inAuthorEl = true
					authorBuf.Reset()
				}
			case "comment":
				ref, err := ParseCellReference(attrVal(t, "ref"))
				if err != nil {
					return nil, &PackageError{Code: ErrInvalidCellReference, Detail: attrVal(t, "ref")}
				}
				authorID := -1
				if a := attrVal(t, "authorId"); a != "" {
					authorID, _ = strconv.Atoi(a)
				}
				curComment = &rawComment{Ref: ref, AuthorID: authorID}
			case "t":
				inText = true
				textBuf.Reset()
			}
		case xml.CharData:
			if inAuthorEl {
				authorBuf.Write(t)
			}
			if inText {
				textBuf.Write(t)
			}
		case xml.EndElement:
			switch localName(t.Name) {
			case "authors":
				inAuthors = false
			case "author":
				if inAuthorEl {
					cd.Authors = append(cd.Authors, authorBuf.String())
					inAuthorEl = false
				}
			case "t":
				inText = false
				if curComment != nil {
					curComment.Text += textBuf.String()
				}
			case "comment":
				if curComment != nil {
					cd.Comments = append(cd.Comments, *curComment)
					curComment = nil
				}
			}
		}
	}
	return cd, nil
}

// --- L3 builder ---

func buildCommentsXML(cd *CommentsData) []byte {
	var sb strings.Builder
	sb.WriteString(xmlDeclaration)
	sb.WriteString(`<comments xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><authors>`)
	for _, a := range cd.Authors {
		fmt.Fprintf(&sb, `<author>%s</author>`, escapeXMLText(a))
	}
	sb.WriteString(`</authors><commentList>`)
	for _, c := range cd.Comments {
		fmt.Fprintf(&sb, `<comment ref="%s" authorId="%d"><text><r><t>%s</t></r></text></comment>`,
			c.Ref.String(), c.AuthorID, escapeXMLText(c.Text))
	}
	sb.WriteString(`</commentList></comments>`)
	return []byte(sb.String())
}

// buildVMLDrawingXML emits the legacy VML fallback shape Excel requires to
// anchor comments visually. One shape per comment, referencing its row/col
// by zero-based index.
func buildVMLDrawingXML(comments []rawComment) []byte {
	var sb strings.Builder
	sb.WriteString(`<xml xmlns:v="urn:schemas-microsoft-com:vml" xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:x="urn:schemas-microsoft-com:office:excel">`)
	sb.WriteString(`<o:shapelayout v:ext="edit"><o:idmap v:ext="edit" data="1"/></o:shapelayout>`)
	sb.WriteString(`<v:shapetype id="_xlcore_commentShape" coordsize="21600,21600" o:spt="202" path="m,l,21600r21600,l21600,xe">`)
	sb.WriteString(`<v:stroke joinstyle="miter"/><v:path gradientshapeok="t" o:connecttype="rect"/></v:shapetype>`)
	for i, c := range comments {
		row, col := c.Ref.Row-1, c.Ref.Col-1
		fmt.Fprintf(&sb, `<v:shape id="_xlcore_comment_%d" type="#_xlcore_commentShape" style="visibility:hidden" fillcolor="#ffffe1" o:insetmode="auto">`, i+1)
		sb.WriteString(`<v:fill color2="#ffffe1"/><v:shadow on="t" color="black" obscured="t"/>`)
		fmt.Fprintf(&sb, `<x:ClientData ObjectType="Note"><x:Row>%d</x:Row><x:Column>%d</x:Column></x:ClientData>`, row, col)
		sb.WriteString(`</v:shape>`)
	}
	sb.WriteString(`</xml>`)
	return []byte(sb.String())
}
