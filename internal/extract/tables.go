package extract

import (
	"regexp"
	"strings"
)

var columnGap = regexp.MustCompile(`\s{2,}`)

// maxTableRows stops a runaway block from swallowing a page of aligned text.
const maxTableRows = 50

// alignSlack is how far, in bytes, a cell edge may drift from the header's
// and still count as the same column.
const alignSlack = 1

// cell is one column of a layout line with its byte span in that line.
type cell struct {
	text       string
	start, end int
}

// markdownTables rewrites blocks of two or more lines that split into the
// same number (>= 2) of columns on runs of spaces as Markdown tables. Every
// row's cells must line up with the first row's, by left or right edge, so
// prose that happens to hold a double space is left alone. It runs before
// Normalize, which collapses the spacing it relies on.
func markdownTables(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	i := 0
	for i < len(lines) {
		start := i
		var block [][]cell
		for i < len(lines) {
			ln := strings.TrimRight(lines[i], " ")
			if ln == "" {
				break
			}
			row := splitColumns(ln)
			if len(row) < 2 {
				break
			}
			if len(block) > 0 && !aligned(block[0], row) {
				break
			}
			block = append(block, row)
			i++
			if len(block) >= maxTableRows {
				break
			}
		}
		if len(block) >= 2 {
			out = append(out, tableRow(block[0]))
			sep := make([]cell, len(block[0]))
			for j := range sep {
				sep[j].text = "---"
			}
			out = append(out, tableRow(sep))
			for _, row := range block[1:] {
				out = append(out, tableRow(row))
			}
			continue
		}
		// Not a table: emit what was scanned, plus the line that ended the scan.
		for j := start; j <= i && j < len(lines); j++ {
			out = append(out, lines[j])
		}
		i++
	}
	return strings.Join(out, "\n")
}

// splitColumns cuts s at runs of two or more spaces.
func splitColumns(s string) []cell {
	indent := len(s) - len(strings.TrimLeft(s, " \t"))
	s = strings.TrimSpace(s)
	var cells []cell
	from := 0
	for _, gap := range columnGap.FindAllStringIndex(s, -1) {
		cells = append(cells, cell{text: s[from:gap[0]], start: indent + from, end: indent + gap[0]})
		from = gap[1]
	}
	return append(cells, cell{text: s[from:], start: indent + from, end: indent + len(s)})
}

// aligned reports whether row has head's column count and each of its cells
// shares a left or right edge with the matching header cell.
func aligned(head, row []cell) bool {
	if len(head) != len(row) {
		return false
	}
	for j := range head {
		if abs(head[j].start-row[j].start) > alignSlack && abs(head[j].end-row[j].end) > alignSlack {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func tableRow(cells []cell) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c.text)
	}
	return "| " + strings.Join(out, " | ") + " |"
}
