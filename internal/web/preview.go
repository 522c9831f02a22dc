package web

import (
	"bytes"
	"html/template"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/thywilljoshua/notescan/internal/outline"
	"github.com/thywilljoshua/notescan/internal/populate"
)

// newPreview renders report Markdown with GFM tables and $$ math as MathML.
// Raw HTML in the model output is escaped.
func newPreview() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			treeblood.MathML(),
		),
	)
}

func (s *Server) renderPreview(o outline.Outline) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.preview.Convert(populate.RenderSections(o), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
