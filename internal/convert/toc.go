package convert

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Table of contents entries: numeric, roman, appendix letters and an explicit
// "Appendix" prefix, each ending in a page number.
var (
	tocNumRe      = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\.?\s+(.+?)\s+(\d+)\s*$`)
	tocRomanRe    = regexp.MustCompile(`^\s*([IVXLCDM]+)(?:\.([0-9]+))?\.?\s+(.+?)\s+(\d+)\s*$`)
	tocAlphaRe    = regexp.MustCompile(`^\s*([A-Z](?:\.[0-9]+)*)\s+(.+?)\s+(\d+)\s*$`)
	tocAppendixRe = regexp.MustCompile(`^\s*(?:Appendix|APPENDIX)\s+([A-Z](?:\.[0-9]+)*)\s+(.+?)\s+(\d+)\s*$`)

	tocHeaderRe = regexp.MustCompile(`(?im)^\s*(?:table of contents|contents)\s*$`)
	dotLeaders  = regexp.MustCompile(`(?:\s*\.){3,}\s*|…+`)
)

const minToCEntries = 3

type tocEntry struct {
	Number string // 1.2, IV, A.1
	Title  string
	Page   int
	Depth  int
}

// tocBlock is a detected table of contents and the pages it occupies.
type tocBlock struct {
	lines []string
	pages map[int]bool
}

// findToC looks for a table of contents in the first n pages: a page with a
// "Contents" header, continued on the following pages for as long as they
// add entries, or failing that an early page made mostly of entries.
func findToC(pages []pageText, n int) tocBlock {
	if n <= 0 {
		n = 8
	}
	limit := min(n, len(pages))
	for i := 0; i < limit; i++ {
		if !tocHeaderRe.MatchString(pages[i].Text) {
			continue
		}
		block := tocBlock{lines: tocLines(pages[i].Text), pages: map[int]bool{pages[i].Number: true}}
		for j := i + 1; j < len(pages) && j <= i+max(n/2, 2); j++ {
			more := tocLines(pages[j].Text)
			if len(more) == 0 {
				break
			}
			block.lines = append(block.lines, more...)
			block.pages[pages[j].Number] = true
		}
		return block
	}
	for i := 0; i < limit; i++ {
		lines := tocLines(pages[i].Text)
		if len(lines) >= minToCEntries && 2*len(lines) >= nonEmptyLines(pages[i].Text) {
			return tocBlock{lines: lines, pages: map[int]bool{pages[i].Number: true}}
		}
	}
	return tocBlock{}
}

func tocLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" && isToCLine(ln) {
			out = append(out, ln)
		}
	}
	return out
}

func nonEmptyLines(text string) int {
	n := 0
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) != "" {
			n++
		}
	}
	return n
}

// parseToCLines returns the entries in page order.
func parseToCLines(lines []string) []tocEntry {
	var out []tocEntry
	for _, line := range lines {
		if e, ok := matchToC(normalizeDotLeaders(line)); ok {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

func matchToC(line string) (tocEntry, bool) {
	if m := tocAppendixRe.FindStringSubmatch(line); m != nil {
		p, _ := strconv.Atoi(m[3])
		return tocEntry{Number: m[1], Title: strings.TrimSpace(m[2]), Page: p, Depth: strings.Count(m[1], ".") + 1}, true
	}
	if m := tocNumRe.FindStringSubmatch(line); m != nil {
		p, _ := strconv.Atoi(m[3])
		return tocEntry{Number: m[1], Title: strings.TrimSpace(m[2]), Page: p, Depth: strings.Count(m[1], ".") + 1}, true
	}
	if m := tocRomanRe.FindStringSubmatch(line); m != nil {
		p, _ := strconv.Atoi(m[4])
		e := tocEntry{Number: m[1], Title: strings.TrimSpace(m[3]), Page: p, Depth: 1}
		if m[2] != "" {
			e.Number += "." + m[2]
			e.Depth = 2
		}
		return e, true
	}
	if m := tocAlphaRe.FindStringSubmatch(line); m != nil {
		p, _ := strconv.Atoi(m[3])
		return tocEntry{Number: m[1], Title: strings.TrimSpace(m[2]), Page: p, Depth: strings.Count(m[1], ".") + 1}, true
	}
	return tocEntry{}, false
}

func isToCLine(s string) bool {
	s = normalizeDotLeaders(s)
	return tocAppendixRe.MatchString(s) || tocNumRe.MatchString(s) || tocRomanRe.MatchString(s) || tocAlphaRe.MatchString(s)
}

// normalizeDotLeaders turns "Intro ........ 3" into "Intro 3".
func normalizeDotLeaders(s string) string {
	s = dotLeaders.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
