package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// "inform-\nation" -> "information"; a hyphen that starts a line is a
	// list marker and stays.
	reSplitWord  = regexp.MustCompile(`(\p{L})-[ \t]*\n[ \t]*(\p{Ll})`)
	reSpaces     = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
	reLeadGlyph  = regexp.MustCompile(`^[•◦·▪▶►✓✔]+\s*`)
	reGlyph      = regexp.MustCompile(`[•◦·▪▶►✓✔]`)
)

// Normalize cleans recognized text: NFKC, rejoined line-break hyphenation,
// single spaces, at most one blank line in a row. Bullet glyphs at the start
// of a line become "- " so list structure survives; elsewhere they are OCR
// noise and are dropped.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reSplitWord.ReplaceAllString(s, "$1$2")

	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		ln = strings.TrimSpace(reSpaces.ReplaceAllString(ln, " "))
		bullet := reLeadGlyph.MatchString(ln)
		ln = reGlyph.ReplaceAllString(reLeadGlyph.ReplaceAllString(ln, ""), "")
		ln = strings.TrimSpace(reSpaces.ReplaceAllString(ln, " "))
		if bullet && ln != "" {
			ln = "- " + ln
		}
		lines[i] = ln
	}
	s = strings.Join(lines, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
