package populate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/thywilljoshua/notescan/internal/outline"
)

const (
	placeholderSections = "{{sections}}"
	placeholderTitle    = "{{title}}"
)

const defaultMarkdownTemplate = "# Presentation Content Report\n\n{{sections}}"

func populateMarkdown(o outline.Outline, tmpl []byte) ([]byte, error) {
	t := defaultMarkdownTemplate
	if len(tmpl) > 0 {
		t = string(tmpl)
		if !strings.Contains(t, placeholderSections) {
			return nil, incompatible(ReportMarkdown, "template has no %s placeholder", placeholderSections)
		}
	}
	r := strings.NewReplacer(
		placeholderTitle, oneLine(o.Title()),
		placeholderSections, string(RenderSections(o)),
	)
	return []byte(r.Replace(t)), nil
}

// RenderSections writes one "## Slide N" block per section.
func RenderSections(o outline.Outline) []byte {
	var b bytes.Buffer
	for i, s := range o.Sections {
		fmt.Fprintf(&b, "## Slide %d: %s\n\n", i+1, oneLine(s.Title))
		if len(s.Bullets) == 0 {
			b.WriteString("*(No detailed content provided for this slide.)*\n")
		}
		for _, p := range s.Bullets {
			if p.Level > 0 {
				b.WriteString("  ")
			}
			b.WriteString("* ")
			b.WriteString(p.Text)
			b.WriteByte('\n')
		}
		b.WriteString("\n---\n\n")
	}
	return b.Bytes()
}

// oneLine collapses runs of whitespace, newlines included, so a title
// cannot break out of its heading.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
