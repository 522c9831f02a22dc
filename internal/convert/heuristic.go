package convert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/thywilljoshua/notescan/internal/outline"
)

const defaultMaxBullets = 6

var (
	pageMarkerRe  = regexp.MustCompile(`(?m)^-{3}\s*Page\s+(\d+)\s*-{3}[ \t]*$`)
	mdHeadingRe   = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
	numHeadingRe  = regexp.MustCompile(`^(\d+(?:\.\d+)*)\s+(\p{Lu}[^.!?:;]{2,60})$`)
	capsHeadingRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9 ,\-/()&']{3,59}$`)
	listItemRe    = regexp.MustCompile(`^(?:[-*+]|\d{1,2}[.)]|[a-z][.)])\s+(.+)$`)
	tableRuleRe   = regexp.MustCompile(`^\|(?:\s*:?-{3,}:?\s*\|)+$`)
	pageNumberRe  = regexp.MustCompile(`^(?:(?i:page)\s+)?\d{1,4}$`)
)

type pageText struct {
	Number int
	Text   string
}

// splitPages cuts text at "--- Page N ---" markers. Text without markers is
// a single page; text ahead of the first marker joins the first page.
func splitPages(text string) []pageText {
	locs := pageMarkerRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []pageText{{Number: 1, Text: strings.TrimSpace(text)}}
	}
	lead := strings.TrimSpace(text[:locs[0][0]])
	out := make([]pageText, 0, len(locs))
	for i, loc := range locs {
		n, _ := strconv.Atoi(text[loc[2]:loc[3]])
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])
		if i == 0 && lead != "" {
			body = strings.TrimSpace(lead + "\n" + body)
		}
		out = append(out, pageText{Number: n, Text: body})
	}
	return out
}

// heuristicOutline builds an outline without a model. A table of contents
// wins; otherwise headings split the text; otherwise every page is a
// section.
func heuristicOutline(text string, cfg Config) outline.Outline {
	pages := splitPages(text)

	var sections []outline.Section
	if toc := findToC(pages, cfg.ToCPages); len(parseToCLines(toc.lines)) >= minToCEntries {
		sections = tocSections(toc, pages)
	}
	if len(sections) == 0 {
		sections = headingSections(pages)
	}
	if len(sections) == 0 {
		sections = pageSections(pages)
	}
	maxBullets := cfg.MaxBullets
	if maxBullets <= 0 {
		maxBullets = defaultMaxBullets
	}
	return outline.Outline{Sections: capSections(sections, maxBullets)}
}

// headingSections starts a section at every heading line. Content ahead of
// the first heading goes to a section named after its page. It returns nil
// when the text has no headings.
func headingSections(pages []pageText) []outline.Section {
	var out []outline.Section
	var body []string
	flush := func() {
		if len(out) > 0 {
			last := &out[len(out)-1]
			last.Bullets = append(last.Bullets, contentBullets(body)...)
		}
		body = nil
	}

	headings := 0
	for _, p := range pages {
		for _, ln := range strings.Split(p.Text, "\n") {
			if title, ok := headingTitle(ln); ok {
				flush()
				out = append(out, outline.Section{Title: title})
				headings++
				continue
			}
			if len(out) == 0 && strings.TrimSpace(ln) != "" {
				out = append(out, outline.Section{Title: fmt.Sprintf("Page %d", p.Number)})
			}
			body = append(body, ln)
		}
		body = append(body, "")
	}
	flush()
	if headings == 0 {
		return nil
	}
	return out
}

func pageSections(pages []pageText) []outline.Section {
	var out []outline.Section
	for _, p := range pages {
		if p.Text == "" {
			continue
		}
		out = append(out, outline.Section{
			Title:   fmt.Sprintf("Page %d", p.Number),
			Bullets: contentBullets(strings.Split(p.Text, "\n")),
		})
	}
	return out
}

func headingTitle(line string) (string, bool) {
	ln := strings.TrimSpace(line)
	if pageNumberRe.MatchString(ln) {
		return "", false
	}
	if m := mdHeadingRe.FindStringSubmatch(ln); m != nil {
		t := strings.TrimSpace(strings.Trim(m[1], "*_"))
		return t, t != ""
	}
	if numHeadingRe.MatchString(ln) {
		return ln, true
	}
	if !capsHeadingRe.MatchString(ln) {
		return "", false
	}
	words := strings.Fields(ln)
	if len(words) > 10 {
		return "", false
	}
	if strings.ToUpper(ln) == ln && strings.IndexFunc(ln, unicode.IsLetter) >= 0 {
		return ln, len(ln) > 3
	}
	if len(words) < 2 {
		return "", false
	}
	for _, w := range words {
		r := []rune(w)
		if len(r) >= 4 && unicode.IsLetter(r[0]) && !unicode.IsUpper(r[0]) {
			return "", false
		}
	}
	return ln, true
}

// contentBullets turns body lines into bullets: list items stay items,
// prose paragraphs are split into sentences, table rows keep their cells. A
// line ending in ":" opens a nested list that runs to the next blank line.
func contentBullets(lines []string) []outline.Bullet {
	var out []outline.Bullet
	var para []string
	nested := false
	level := func() int {
		if nested {
			return 1
		}
		return 0
	}
	flushPara := func() {
		if len(para) == 0 {
			return
		}
		for _, s := range splitSentences(strings.Join(para, " ")) {
			out = append(out, outline.Bullet{Text: s, Level: level()})
		}
		para = nil
	}

	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		switch {
		case ln == "":
			flushPara()
			nested = false
		case pageNumberRe.MatchString(ln), tableRuleRe.MatchString(ln), pageMarkerRe.MatchString(ln):
		case strings.HasPrefix(ln, "|"):
			flushPara()
			cells := strings.Split(strings.Trim(ln, "|"), "|")
			for i := range cells {
				cells[i] = strings.TrimSpace(cells[i])
			}
			out = append(out, outline.Bullet{Text: strings.Join(cells, " | "), Level: level()})
		case listItemRe.MatchString(ln):
			flushPara()
			item := listItemRe.FindStringSubmatch(ln)[1]
			out = append(out, outline.Bullet{Text: strings.TrimSpace(item), Level: level()})
		case strings.HasSuffix(ln, ":") && !nested:
			flushPara()
			out = append(out, outline.Bullet{Text: strings.TrimSuffix(ln, ":")})
			nested = true
		default:
			para = append(para, ln)
		}
	}
	flushPara()
	return out
}

// splitSentences breaks after ". ", "! " or "? " when an ASCII capital or
// digit follows.
func splitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i+2 < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			next := s[i+2]
			if s[i+1] == ' ' && ('A' <= next && next <= 'Z' || '0' <= next && next <= '9') {
				if t := strings.TrimSpace(s[start : i+1]); t != "" {
					out = append(out, t)
				}
				start = i + 2
			}
		}
	}
	if t := strings.TrimSpace(s[start:]); t != "" {
		out = append(out, t)
	}
	return out
}

// capSections splits sections with more than limit bullets into a run of
// "(cont.)" sections.
func capSections(sections []outline.Section, limit int) []outline.Section {
	var out []outline.Section
	for _, s := range sections {
		if len(s.Bullets) <= limit {
			out = append(out, s)
			continue
		}
		for i := 0; i < len(s.Bullets); i += limit {
			title := s.Title
			if i > 0 {
				title += " (cont.)"
			}
			out = append(out, outline.Section{Title: title, Bullets: s.Bullets[i:min(i+limit, len(s.Bullets))]})
		}
	}
	return out
}
