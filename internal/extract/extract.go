// Package extract turns an uploaded PDF into page-ordered text, reading the
// embedded text layer when there is one and recognizing page images when
// there is not.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidPDF    = errors.New("not a readable PDF")
	ErrNoText        = errors.New("no text could be extracted from the document")
	ErrOCRNotEnabled = errors.New("tesseract OCR not compiled in (build with -tags ocr)")
)

// Source records how a page's text was obtained.
type Source string

const (
	SourceEmbedded Source = "embedded"
	SourceOCR      Source = "ocr"
	SourceVision   Source = "vision"
	SourceMixed    Source = "mixed"
)

// Recognition is the output of one OCR pass. Confidence is the mean word
// confidence in [0, 100].
type Recognition struct {
	Text       string
	Confidence float64
}

type Recognizer interface {
	Recognize(ctx context.Context, img []byte) (Recognition, error)
}

// Transcriber reads handwriting from a page image.
type Transcriber interface {
	Transcribe(ctx context.Context, image []byte, mimeType string) (string, error)
}

type Config struct {
	TextLayer        string
	MinEmbeddedChars int
	DPI              int
	MaxImageEdge     int
	Workers          int
	Languages        []string

	// A page is handwritten when OCR finds fewer than MinOCRChars
	// characters, or when its confidence is below MinConfidence and its edge
	// density below MinEdgeDensity.
	MinOCRChars    int
	MinConfidence  float64
	MinEdgeDensity float64
}

func DefaultConfig() Config {
	return Config{
		TextLayer:        LayerTabula,
		MinEmbeddedChars: 100,
		DPI:              200,
		MaxImageEdge:     2500,
		Workers:          4,
		Languages:        []string{"eng"},
		MinOCRChars:      20,
		MinConfidence:    80,
		MinEdgeDensity:   0.005,
	}
}

type Page struct {
	Number int
	Text   string
	Source Source
}

type Result struct {
	Pages  []Page
	Text   string
	Source Source
}

// Extractor is safe for concurrent use when its components are. Transcriber
// may be nil, in which case handwritten pages keep whatever OCR produced.
type Extractor struct {
	Config      Config
	Layer       TextLayer
	Rasterizer  Rasterizer
	Recognizer  Recognizer
	Transcriber Transcriber
}

func New(cfg Config) (*Extractor, error) {
	def := DefaultConfig()
	if cfg.MinEmbeddedChars <= 0 {
		cfg.MinEmbeddedChars = def.MinEmbeddedChars
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if cfg.MaxImageEdge <= 0 {
		cfg.MaxImageEdge = def.MaxImageEdge
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = def.Languages
	}
	if cfg.MinOCRChars <= 0 {
		cfg.MinOCRChars = def.MinOCRChars
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.MinEdgeDensity <= 0 {
		cfg.MinEdgeDensity = def.MinEdgeDensity
	}
	layer, err := NewTextLayer(cfg.TextLayer)
	if err != nil {
		return nil, err
	}
	tess, err := NewTesseract(cfg.Languages, cfg.DPI)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		Config:     cfg,
		Layer:      layer,
		Rasterizer: FitzRasterizer{},
		Recognizer: tess,
	}, nil
}

// Extract returns the document's text with pages in document order,
// regardless of how many workers recognized them.
func (e *Extractor) Extract(ctx context.Context, data []byte) (Result, error) {
	n, err := PageCount(data)
	if err != nil {
		return Result{}, err
	}
	log := slog.With("pages", n)

	texts, err := e.Layer.Pages(ctx, data)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Warn("Embedded text layer unreadable, falling back to OCR.", "error", err)
	case embeddedChars(texts) > e.Config.MinEmbeddedChars:
		pages := make([]Page, len(texts))
		for i, t := range texts {
			pages[i] = Page{Number: i + 1, Text: t, Source: SourceEmbedded}
		}
		log.Info("Using embedded text layer.")
		return assemble(pages)
	}

	images, err := e.Rasterizer.Rasterize(ctx, data, float64(e.Config.DPI))
	if err != nil {
		return Result{}, fmt.Errorf("rasterize: %w", err)
	}

	pages := make([]Page, len(images))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(e.Config.Workers, 1))
	for i, img := range images {
		eg.Go(func() error {
			p, err := e.recognizePage(egCtx, i+1, img)
			if err != nil {
				return err
			}
			pages[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}
	res, err := assemble(pages)
	if err == nil {
		log.Info("Recognized page images.", "source", res.Source)
	}
	return res, err
}

func (e *Extractor) recognizePage(ctx context.Context, number int, img []byte) (Page, error) {
	prep, err := preprocess(img, e.Config.MaxImageEdge)
	if err != nil {
		return Page{}, fmt.Errorf("page %d: %w", number, err)
	}
	rec, err := e.Recognizer.Recognize(ctx, prep.png)
	ocrOff := errors.Is(err, ErrOCRNotEnabled)
	if err != nil && !ocrOff {
		return Page{}, fmt.Errorf("page %d: ocr: %w", number, err)
	}
	if !ocrOff && !e.handwritten(rec, prep.edgeDensity) {
		return Page{Number: number, Text: rec.Text, Source: SourceOCR}, nil
	}
	if e.Transcriber == nil {
		if ocrOff {
			return Page{}, fmt.Errorf("page %d: %w", number, ErrOCRNotEnabled)
		}
		return Page{Number: number, Text: rec.Text, Source: SourceOCR}, nil
	}

	text, err := e.Transcriber.Transcribe(ctx, img, "image/png")
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		if strings.TrimSpace(rec.Text) != "" {
			slog.Warn("Transcription failed, keeping OCR text.", "page", number, "error", err)
			return Page{Number: number, Text: rec.Text, Source: SourceOCR}, nil
		}
		return Page{}, fmt.Errorf("page %d: transcribe: %w", number, err)
	}
	return Page{Number: number, Text: text, Source: SourceVision}, nil
}

func (e *Extractor) handwritten(rec Recognition, edgeDensity float64) bool {
	if utf8.RuneCountInString(strings.TrimSpace(rec.Text)) < e.Config.MinOCRChars {
		return true
	}
	return rec.Confidence < e.Config.MinConfidence && edgeDensity < e.Config.MinEdgeDensity
}

func embeddedChars(pages []string) int {
	n := 0
	for _, p := range pages {
		n += utf8.RuneCountInString(strings.TrimSpace(p))
	}
	return n
}

// assemble normalizes each page, with aligned columns turned into Markdown
// tables, and joins them behind "--- Page N ---" markers.
func assemble(pages []Page) (Result, error) {
	res := Result{Pages: pages}
	parts := make([]string, 0, len(pages))
	found := false
	for i := range pages {
		pages[i].Text = Normalize(markdownTables(pages[i].Text))
		if pages[i].Text != "" {
			found = true
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n\n%s", pages[i].Number, pages[i].Text))

		switch {
		case res.Source == "":
			res.Source = pages[i].Source
		case res.Source != pages[i].Source:
			res.Source = SourceMixed
		}
	}
	if !found {
		return Result{}, ErrNoText
	}
	res.Text = strings.Join(parts, "\n\n")
	return res, nil
}
