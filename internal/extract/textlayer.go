package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/gen2brain/go-fitz"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/reader"
	rpdf "rsc.io/pdf"
)

// TextLayer reads the text a PDF already carries, one string per page.
type TextLayer interface {
	Pages(ctx context.Context, data []byte) ([]string, error)
}

// Text layer names accepted by NewTextLayer.
const (
	LayerTabula     = "tabula"
	LayerRSC        = "rsc"
	LayerLedongthuc = "ledongthuc"
	LayerMuPDF      = "mupdf"
)

var TextLayers = []string{LayerTabula, LayerRSC, LayerLedongthuc, LayerMuPDF}

func NewTextLayer(name string) (TextLayer, error) {
	switch strings.ToLower(name) {
	case "", LayerTabula:
		return tabulaLayer{}, nil
	case LayerRSC:
		return rscLayer{}, nil
	case LayerLedongthuc:
		return plainLayer{}, nil
	case LayerMuPDF:
		return mupdfLayer{}, nil
	}
	return nil, fmt.Errorf("unknown text layer %q (want one of %s)", name, strings.Join(TextLayers, ", "))
}

type tabulaLayer struct{}

// tabula opens files by name, so the document is spooled to a temp file.
func (tabulaLayer) Pages(ctx context.Context, data []byte) ([]string, error) {
	dir, err := os.MkdirTemp("", "notescan-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}

	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tabula: %w", err)
	}
	defer r.Close()
	n, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("tabula: %w", err)
	}
	pages := make([]string, n)
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, _, err := tabula.FromReader(r).Pages(i + 1).Text()
		if err != nil {
			return nil, fmt.Errorf("tabula page %d: %w", i+1, err)
		}
		pages[i] = text
	}
	return pages, nil
}

type rscLayer struct{}

func (rscLayer) Pages(ctx context.Context, data []byte) ([]string, error) {
	doc, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("rsc.io/pdf: %w", err)
	}
	pages := make([]string, doc.NumPage())
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := doc.Page(i + 1)
		if p.V.IsNull() {
			continue
		}
		pages[i] = rscPageText(p.Content().Text)
	}
	return pages, nil
}

// rscPageText orders glyph runs top to bottom, left to right, and starts a
// new line whenever the baseline moves.
func rscPageText(runs []rpdf.Text) string {
	sorted := append([]rpdf.Text(nil), runs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})
	var b strings.Builder
	for i, t := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			switch {
			case prev.Y-t.Y > t.FontSize/2:
				b.WriteByte('\n')
			case t.X-(prev.X+prev.W) > t.FontSize/4:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
	return b.String()
}

type plainLayer struct{}

func (plainLayer) Pages(ctx context.Context, data []byte) ([]string, error) {
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("ledongthuc/pdf: %w", err)
	}
	pages := make([]string, r.NumPage())
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i + 1)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("ledongthuc/pdf page %d: %w", i+1, err)
		}
		pages[i] = text
	}
	return pages, nil
}

// mupdfLayer renders each page to HTML with MuPDF and converts it to
// Markdown, which keeps headings and lists visible to the outline heuristics.
type mupdfLayer struct{}

func (mupdfLayer) Pages(ctx context.Context, data []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("mupdf: %w", err)
	}
	defer doc.Close()

	conv := md.NewConverter("", true, nil)
	pages := make([]string, doc.NumPage())
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		html, err := doc.HTML(i, true)
		if err != nil {
			return nil, fmt.Errorf("mupdf page %d: %w", i+1, err)
		}
		text, err := conv.ConvertString(html)
		if err != nil {
			return nil, fmt.Errorf("mupdf page %d: %w", i+1, err)
		}
		pages[i] = stripImages(text)
	}
	return pages, nil
}

// stripImages drops Markdown image lines; MuPDF inlines page images as data
// URIs.
func stripImages(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, ln := range lines {
		if strings.HasPrefix(strings.TrimSpace(ln), "![") {
			continue
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}
