package convert

import (
	"strings"

	"github.com/thywilljoshua/notescan/internal/outline"
)

type tocNode struct {
	entry    tocEntry
	children []tocEntry
}

// nestToC groups entries under the closest preceding top entry whose number
// prefixes theirs (2.1 under 2, A.3 under A). An entry that fits no parent
// starts a new top entry so nothing is lost.
func nestToC(entries []tocEntry) []tocNode {
	var roots []tocNode
	for _, e := range entries {
		if n := len(roots); n > 0 {
			parent := roots[n-1].entry
			if e.Depth > parent.Depth && strings.HasPrefix(e.Number, parent.Number+".") {
				roots[n-1].children = append(roots[n-1].children, e)
				continue
			}
		}
		roots = append(roots, tocNode{entry: e})
	}
	return roots
}

// tocSections makes one section per top entry. Sub-entries become its
// bullets; a top entry without sub-entries takes its bullets from the pages
// it spans, skipping the table of contents itself.
func tocSections(toc tocBlock, pages []pageText) []outline.Section {
	roots := nestToC(parseToCLines(toc.lines))
	lastPage := 0
	for _, p := range pages {
		lastPage = max(lastPage, p.Number)
	}

	out := make([]outline.Section, 0, len(roots))
	for i, r := range roots {
		s := outline.Section{Title: r.entry.Title}
		for _, c := range r.children {
			level := min(c.Depth-r.entry.Depth-1, 1)
			s.Bullets = append(s.Bullets, outline.Bullet{Text: c.Title, Level: level})
		}
		if len(s.Bullets) == 0 {
			end := lastPage
			if i+1 < len(roots) {
				end = max(roots[i+1].entry.Page-1, r.entry.Page)
			}
			var lines []string
			for _, p := range pages {
				if p.Number >= r.entry.Page && p.Number <= end && !toc.pages[p.Number] {
					lines = append(lines, strings.Split(p.Text, "\n")...)
					lines = append(lines, "")
				}
			}
			s.Bullets = contentBullets(lines)
		}
		out = append(out, s)
	}
	return out
}
