package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// edgeThreshold is the Sobel gradient magnitude above which a pixel counts
// as an edge.
const edgeThreshold = 150

// preparedPage is a page image ready for Tesseract.
type preparedPage struct {
	png         []byte
	edgeDensity float64
}

// preprocess converts a rendered page to grayscale, scales it so the longer
// side is at most maxEdge pixels and binarizes it with Otsu's threshold.
func preprocess(data []byte, maxEdge int) (preparedPage, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return preparedPage{}, fmt.Errorf("decode page image: %w", err)
	}
	gray := toGray(src, maxEdge)
	density := edgeDensity(gray)
	binarize(gray, otsuThreshold(gray))

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return preparedPage{}, fmt.Errorf("encode page image: %w", err)
	}
	return preparedPage{png: buf.Bytes(), edgeDensity: density}, nil
}

func toGray(src image.Image, maxEdge int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge > 0 && (w > maxEdge || h > maxEdge) {
		if w >= h {
			h = h * maxEdge / w
			w = maxEdge
		} else {
			w = w * maxEdge / h
			h = maxEdge
		}
	}
	dst := image.NewGray(image.Rect(0, 0, max(w, 1), max(h, 1)))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func otsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	for _, p := range g.Pix {
		hist[p]++
	}
	total := len(g.Pix)
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}
	var sumB, best float64
	var wB int
	threshold := uint8(127)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

func binarize(g *image.Gray, t uint8) {
	for i, p := range g.Pix {
		if p > t {
			g.Pix[i] = color.White.Y
		} else {
			g.Pix[i] = color.Black.Y
		}
	}
}

// edgeDensity is the share of interior pixels whose Sobel gradient exceeds
// edgeThreshold. Printed text scores higher than handwriting.
func edgeDensity(g *image.Gray) float64 {
	b := g.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return 0
	}
	at := func(x, y int) int { return int(g.GrayAt(x, y).Y) }
	edges, n := 0, 0
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			if gx*gx+gy*gy > edgeThreshold*edgeThreshold {
				edges++
			}
			n++
		}
	}
	return float64(edges) / float64(n)
}
