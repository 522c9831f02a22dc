//go:build !ocr

package extract

import "context"

// Tesseract is compiled out without the "ocr" build tag. Every call returns
// ErrOCRNotEnabled, which routes pages to the vision transcriber.
//
//	go build -tags ocr ./...
type Tesseract struct{}

func NewTesseract(languages []string, dpi int) (*Tesseract, error) {
	return &Tesseract{}, nil
}

func (*Tesseract) Recognize(ctx context.Context, img []byte) (Recognition, error) {
	return Recognition{}, ErrOCRNotEnabled
}
