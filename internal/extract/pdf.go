package extract

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func pdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount validates data as a PDF and returns its number of pages.
func PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty file", ErrInvalidPDF)
	}
	conf := pdfcpuConfig()
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return n, nil
}
