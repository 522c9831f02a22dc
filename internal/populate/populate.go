// Package populate pours an outline into a presentation, document, report or
// PDF template.
package populate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thywilljoshua/notescan/internal/outline"
)

type Format string

const (
	Slides         Format = "slides"
	Document       Format = "document"
	ReportMarkdown Format = "report-markdown"
	PDF            Format = "pdf"
)

// Formats lists every supported output format in display order.
var Formats = []Format{Slides, Document, ReportMarkdown, PDF}

var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat accepts the format names and their file extensions.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "slides", "pptx":
		return Slides, nil
	case "document", "docx":
		return Document, nil
	case "report-markdown", "markdown", "md":
		return ReportMarkdown, nil
	case "pdf":
		return PDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) Extension() string {
	switch f {
	case Slides:
		return ".pptx"
	case Document:
		return ".docx"
	case ReportMarkdown:
		return ".md"
	case PDF:
		return ".pdf"
	}
	return ""
}

func (f Format) ContentType() string {
	switch f {
	case Slides:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case Document:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ReportMarkdown:
		return "text/markdown; charset=utf-8"
	case PDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// TemplateIncompatibleError reports a template that lacks a slot the format
// needs.
type TemplateIncompatibleError struct {
	Format Format
	Reason string
}

func (e *TemplateIncompatibleError) Error() string {
	return fmt.Sprintf("template incompatible with %s output: %s", e.Format, e.Reason)
}

func incompatible(f Format, format string, args ...any) error {
	return &TemplateIncompatibleError{Format: f, Reason: fmt.Sprintf(format, args...)}
}

// Options carries the optional user template. A nil Template selects the
// built-in one.
type Options struct {
	Template []byte
}

// Populate renders o into format f. The outline is validated before anything
// else; the same outline and template always yield the same bytes.
func Populate(o outline.Outline, f Format, opts Options) ([]byte, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	switch f {
	case Slides:
		return populateSlides(o, opts.Template)
	case Document:
		return populateDocument(o, opts.Template)
	case ReportMarkdown:
		return populateMarkdown(o, opts.Template)
	case PDF:
		if len(opts.Template) > 0 {
			return nil, incompatible(PDF, "pdf output does not accept a template")
		}
		return populatePDF(o)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}
