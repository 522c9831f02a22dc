//go:build ocr

package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes printed text with the Tesseract engine. A gosseract
// client is not safe for concurrent use, so each call opens its own.
type Tesseract struct {
	Languages []string
	DPI       int
}

func NewTesseract(languages []string, dpi int) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{Languages: languages, DPI: dpi}, nil
}

func (t *Tesseract) Recognize(ctx context.Context, img []byte) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Languages...); err != nil {
		return Recognition{}, fmt.Errorf("tesseract language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return Recognition{}, fmt.Errorf("tesseract page mode: %w", err)
	}
	if t.DPI > 0 {
		if err := client.SetVariable("user_defined_dpi", strconv.Itoa(t.DPI)); err != nil {
			return Recognition{}, fmt.Errorf("tesseract dpi: %w", err)
		}
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return Recognition{}, fmt.Errorf("tesseract image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract confidence: %w", err)
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	conf := 0.0
	if len(boxes) > 0 {
		conf = sum / float64(len(boxes))
	}
	return Recognition{Text: strings.TrimSpace(text), Confidence: conf}, nil
}
