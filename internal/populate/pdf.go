package populate

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wudi/pdfkit/builder"
	"github.com/wudi/pdfkit/fonts"
	"github.com/wudi/pdfkit/ir/semantic"
	"github.com/wudi/pdfkit/writer"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/unicode/norm"

	"github.com/thywilljoshua/notescan/internal/outline"
)

// A4 in points.
const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	marginX      = 50.0
	marginBottom = 60.0
	titleSize    = 20.0
	bulletSize   = 12.0
	lineHeight   = 16.0
	subIndent    = 20.0
)

// bodyFont is the resource name of the embedded Go Regular font.
const bodyFont = "GoRegular"

var (
	titleColor = builder.Color{R: 0.1, G: 0.1, B: 0.1}
	ruleColor  = builder.Color{R: 0.6, G: 0.6, B: 0.6}
)

func populatePDF(o outline.Outline) ([]byte, error) {
	font, err := unicodeFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	b := builder.NewBuilder()
	b.SetInfo(&semantic.DocumentInfo{Title: o.Title(), Creator: "notescan"})
	b.RegisterFont(bodyFont, font)

	pageIndex := 0
	for _, s := range o.Sections {
		b.AddOutline(builder.Outline{Title: s.Title, PageIndex: pageIndex})
		page, y := newSectionPage(b, s.Title)
		pageIndex++

		for _, p := range s.Bullets {
			x := marginX + 10
			if p.Level > 0 {
				x += subIndent
			}
			for i, line := range wrapText(norm.NFKC.String(p.Text), pageWidth-marginX-x-12, bulletSize) {
				if y < marginBottom {
					page.Finish()
					page, y = newSectionPage(b, s.Title+" (cont.)")
					pageIndex++
				}
				if i == 0 {
					page.DrawText("-", x, y, builder.TextOptions{Font: bodyFont, FontSize: bulletSize})
				}
				page.DrawText(line, x+12, y, builder.TextOptions{Font: bodyFont, FontSize: bulletSize})
				y -= lineHeight
			}
		}
		page.Finish()
	}

	doc, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build pdf: %w", err)
	}
	var buf bytes.Buffer
	w := (&writer.WriterBuilder{}).Build()
	if err := w.Write(context.Background(), doc, &buf, writer.Config{Deterministic: true}); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func newSectionPage(b builder.PDFBuilder, title string) (builder.PageBuilder, float64) {
	y := pageHeight - 52
	page := b.NewPage(pageWidth, pageHeight)
	for _, line := range wrapText(norm.NFKC.String(title), pageWidth-2*marginX, titleSize) {
		page.DrawText(line, marginX, y, builder.TextOptions{Font: bodyFont, FontSize: titleSize, Color: titleColor})
		y -= titleSize + 4
	}
	page.DrawLine(marginX, y+8, pageWidth-marginX, y+8, builder.LineOptions{StrokeColor: ruleColor, LineWidth: 1})
	return page, y - 16
}

// glyphRunes maps each Go Regular glyph to the first NFKC-stable code point
// that selects it. Drawn text is NFKC-normalized, so compatibility duplicates
// such as U+00B5 never need their own entry. Glyph ids double as CIDs under
// Identity-H.
var glyphRunes = sync.OnceValues(func() (map[int]rune, error) {
	f, err := sfnt.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	var buf sfnt.Buffer
	m := make(map[int]rune)
	for r := rune(0x20); r <= 0xFFFF; r++ {
		if r >= 0xD800 && r <= 0xDFFF || norm.NFKC.String(string(r)) != string(r) {
			continue
		}
		gid, err := f.GlyphIndex(&buf, r)
		if err != nil || gid == 0 {
			continue
		}
		if _, ok := m[int(gid)]; !ok {
			m[int(gid)] = r
		}
	}
	return m, nil
})

// unicodeFont loads Go Regular as a Type0 font with a ToUnicode map, which
// the builder needs to encode text as glyph ids. pdfkit mutates registered
// fonts, so every document gets its own copy.
func unicodeFont() (*semantic.Font, error) {
	runes, err := glyphRunes()
	if err != nil {
		return nil, err
	}
	font, err := fonts.LoadTrueType(bodyFont, goregular.TTF)
	if err != nil {
		return nil, err
	}
	font.ToUnicode = make(map[int][]rune, len(runes))
	for gid, r := range runes {
		font.ToUnicode[gid] = []rune{r}
	}
	return font, nil
}

// wrapText breaks s into lines that fit width, estimating Helvetica glyphs
// at half the font size.
func wrapText(s string, width, size float64) []string {
	limit := int(width / (size * 0.5))
	if limit < 1 {
		limit = 1
	}
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(s) {
		for len([]rune(word)) > limit {
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			r := []rune(word)
			lines = append(lines, string(r[:limit]))
			word = string(r[limit:])
		}
		if cur.Len() > 0 && len([]rune(cur.String()))+1+len([]rune(word)) > limit {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}
