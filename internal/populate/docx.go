package populate

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/thywilljoshua/notescan/internal/outline"
)

const (
	styleHeading1    = "Heading1"
	styleHeading2    = "Heading2"
	styleListBullet  = "ListBullet"
	styleListBullet2 = "ListBullet2"
)

type stylesXML struct {
	Styles []struct {
		StyleID string `xml:"styleId,attr"`
	} `xml:"style"`
}

func populateDocument(o outline.Outline, tmpl []byte) ([]byte, error) {
	p, err := documentPackage(tmpl)
	if err != nil {
		return nil, err
	}

	stylesData, ok := p.get("word/styles.xml")
	if !ok {
		return nil, incompatible(Document, "missing word/styles.xml")
	}
	var styles stylesXML
	if err := xml.Unmarshal(stylesData, &styles); err != nil {
		return nil, incompatible(Document, "parse word/styles.xml: %v", err)
	}
	defined := map[string]bool{}
	for _, s := range styles.Styles {
		defined[s.StyleID] = true
	}
	for _, id := range []string{styleHeading1, styleHeading2, styleListBullet} {
		if !defined[id] {
			return nil, incompatible(Document, "word/styles.xml has no %s style", id)
		}
	}
	subBullet := styleListBullet
	if defined[styleListBullet2] {
		subBullet = styleListBullet2
	}

	doc, ok := p.get("word/document.xml")
	if !ok {
		return nil, incompatible(Document, "missing word/document.xml")
	}
	body, err := replaceBody(string(doc), renderBody(o, subBullet))
	if err != nil {
		return nil, err
	}
	p.set("word/document.xml", []byte(body))
	return p.bytes()
}

func documentPackage(tmpl []byte) (*opcPackage, error) {
	if len(tmpl) == 0 {
		return defaultPackage(defaultDocumentParts)
	}
	p, err := readPackage(tmpl)
	if err != nil {
		return nil, incompatible(Document, "not a docx package: %v", err)
	}
	return p, nil
}

// replaceBody swaps everything inside w:body for content, keeping the
// trailing section properties so page size and margins survive.
func replaceBody(doc, content string) (string, error) {
	open := strings.Index(doc, "<w:body>")
	end := strings.LastIndex(doc, "</w:body>")
	if open < 0 || end < open {
		return "", incompatible(Document, "word/document.xml has no w:body element")
	}
	start := open + len("<w:body>")
	tail := end
	if i := strings.LastIndex(doc[start:end], "<w:sectPr"); i >= 0 {
		tail = start + i
	}
	return doc[:start] + content + doc[tail:], nil
}

func renderBody(o outline.Outline, subBullet string) string {
	var b strings.Builder
	for i, s := range o.Sections {
		if i > 0 {
			b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		}
		heading := styleHeading2
		if i == 0 {
			heading = styleHeading1
		}
		writeParagraph(&b, heading, s.Title)
		for _, p := range s.Bullets {
			style := styleListBullet
			if p.Level > 0 {
				style = subBullet
			}
			writeParagraph(&b, style, p.Text)
		}
	}
	return b.String()
}

func writeParagraph(b *strings.Builder, style, text string) {
	fmt.Fprintf(b, `<w:p><w:pPr><w:pStyle w:val="%s"/></w:pPr><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
		style, escapeXML(text))
}
