package populate

import (
	"embed"
	"fmt"
)

//go:embed templates
var templateFS embed.FS

// templatePart maps a part name inside the package to its embedded source.
type templatePart struct {
	name string
	file string
}

var defaultSlidesParts = []templatePart{
	{"[Content_Types].xml", "templates/pptx/content_types.xml"},
	{"_rels/.rels", "templates/pptx/package.rels"},
	{"docProps/core.xml", "templates/pptx/core.xml"},
	{"docProps/app.xml", "templates/pptx/app.xml"},
	{"ppt/presentation.xml", "templates/pptx/presentation.xml"},
	{"ppt/_rels/presentation.xml.rels", "templates/pptx/presentation.xml.rels"},
	{"ppt/slideMasters/slideMaster1.xml", "templates/pptx/slideMaster1.xml"},
	{"ppt/slideMasters/_rels/slideMaster1.xml.rels", "templates/pptx/slideMaster1.xml.rels"},
	{"ppt/slideLayouts/slideLayout1.xml", "templates/pptx/slideLayout1.xml"},
	{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", "templates/pptx/slideLayout.xml.rels"},
	{"ppt/slideLayouts/slideLayout2.xml", "templates/pptx/slideLayout2.xml"},
	{"ppt/slideLayouts/_rels/slideLayout2.xml.rels", "templates/pptx/slideLayout.xml.rels"},
	{"ppt/theme/theme1.xml", "templates/pptx/theme1.xml"},
	{"ppt/presProps.xml", "templates/pptx/presProps.xml"},
	{"ppt/viewProps.xml", "templates/pptx/viewProps.xml"},
	{"ppt/tableStyles.xml", "templates/pptx/tableStyles.xml"},
}

var defaultDocumentParts = []templatePart{
	{"[Content_Types].xml", "templates/docx/content_types.xml"},
	{"_rels/.rels", "templates/docx/package.rels"},
	{"docProps/core.xml", "templates/docx/core.xml"},
	{"docProps/app.xml", "templates/docx/app.xml"},
	{"word/document.xml", "templates/docx/document.xml"},
	{"word/_rels/document.xml.rels", "templates/docx/document.xml.rels"},
	{"word/styles.xml", "templates/docx/styles.xml"},
	{"word/numbering.xml", "templates/docx/numbering.xml"},
	{"word/settings.xml", "templates/docx/settings.xml"},
}

func defaultPackage(parts []templatePart) (*opcPackage, error) {
	p := newPackage()
	for _, part := range parts {
		b, err := templateFS.ReadFile(part.file)
		if err != nil {
			return nil, fmt.Errorf("default template: %w", err)
		}
		p.set(part.name, b)
	}
	return p, nil
}

// DefaultTemplate returns the built-in template for f, or nil when the
// format has none.
func DefaultTemplate(f Format) ([]byte, error) {
	switch f {
	case Slides:
		p, err := defaultPackage(defaultSlidesParts)
		if err != nil {
			return nil, err
		}
		return p.bytes()
	case Document:
		p, err := defaultPackage(defaultDocumentParts)
		if err != nil {
			return nil, err
		}
		return p.bytes()
	case ReportMarkdown:
		return []byte(defaultMarkdownTemplate), nil
	}
	return nil, nil
}
