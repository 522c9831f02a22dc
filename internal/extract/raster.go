package extract

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer renders every page of a PDF to a PNG image.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, dpi float64) ([][]byte, error)
}

// FitzRasterizer renders with MuPDF. A fitz document is not safe for
// concurrent use, so pages are rendered in sequence.
type FitzRasterizer struct{}

func (FitzRasterizer) Rasterize(ctx context.Context, data []byte, dpi float64) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf for rendering: %w", err)
	}
	defer doc.Close()

	images := make([][]byte, doc.NumPage())
	for i := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		png, err := doc.ImagePNG(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		images[i] = png
	}
	return images, nil
}
