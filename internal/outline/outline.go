// Package outline holds the structured title/bullet representation of a
// document and its JSON wire form.
package outline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Bullet is one point of a section. Level is 0 for top-level points and 1
// for sub-points.
type Bullet struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

type Section struct {
	Title   string   `json:"title"`
	Bullets []Bullet `json:"bullets"`
}

type Outline struct {
	Sections []Section `json:"sections"`
}

// InvalidOutlineError reports an outline that cannot be used to generate an
// artifact.
type InvalidOutlineError struct {
	Reason string
}

func (e *InvalidOutlineError) Error() string {
	return "invalid outline: " + e.Reason
}

// Validate fails with *InvalidOutlineError when the outline has no sections.
func (o Outline) Validate() error {
	if len(o.Sections) == 0 {
		return &InvalidOutlineError{Reason: "outline has no sections"}
	}
	return nil
}

func (o Outline) Empty() bool { return len(o.Sections) == 0 }

// Title returns the first section title, or "Presentation".
func (o Outline) Title() string {
	if len(o.Sections) > 0 && o.Sections[0].Title != "" {
		return o.Sections[0].Title
	}
	return "Presentation"
}

// blueprintEntry is the shape the model is asked to produce.
type blueprintEntry struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// Parse reads the blueprint form: either a JSON array of {title, content}
// objects or an object with a "sections" array of the same. Content strings
// prefixed with "**" become level-1 bullets; a single "*" is stripped.
func Parse(data []byte) (Outline, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Outline{}, &InvalidOutlineError{Reason: "empty input"}
	}

	var entries []blueprintEntry
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return Outline{}, fmt.Errorf("parse outline: %w", err)
		}
	case '{':
		var wrapped struct {
			Sections []blueprintEntry `json:"sections"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return Outline{}, fmt.Errorf("parse outline: %w", err)
		}
		entries = wrapped.Sections
	default:
		return Outline{}, errors.New("parse outline: expected a JSON array or object")
	}

	var o Outline
	for i, e := range entries {
		sec := Section{Title: strings.Join(strings.Fields(e.Title), " ")}
		if sec.Title == "" {
			sec.Title = fmt.Sprintf("Slide %d", i+1)
		}
		for _, c := range e.Content {
			if b, ok := ParseBullet(c); ok {
				sec.Bullets = append(sec.Bullets, b)
			}
		}
		o.Sections = append(o.Sections, sec)
	}
	return o, nil
}

// ParseBullet turns a markdown-ish content line into a Bullet. Blank lines
// report false.
func ParseBullet(s string) (Bullet, bool) {
	s = strings.TrimSpace(s)
	level := 0
	switch {
	case strings.HasPrefix(s, "**") && !isBoldSpan(s):
		level = 1
		s = strings.TrimLeft(s, "*")
	case strings.HasPrefix(s, "* "), strings.HasPrefix(s, "- "), strings.HasPrefix(s, "• "):
		_, s, _ = strings.Cut(s, " ")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Bullet{}, false
	}
	return Bullet{Text: s, Level: level}, true
}

// isBoldSpan reports whether s starts with an inline **bold** span rather
// than a sub-point marker.
func isBoldSpan(s string) bool {
	rest := strings.TrimPrefix(s, "**")
	if strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, "*") {
		return false
	}
	return strings.Contains(rest, "**")
}

// MarshalBlueprint writes the outline in the blueprint form accepted by Parse.
func (o Outline) MarshalBlueprint() ([]byte, error) {
	entries := make([]blueprintEntry, 0, len(o.Sections))
	for _, s := range o.Sections {
		e := blueprintEntry{Title: s.Title, Content: []string{}}
		for _, b := range s.Bullets {
			if b.Level > 0 {
				e.Content = append(e.Content, "** "+b.Text)
				continue
			}
			e.Content = append(e.Content, b.Text)
		}
		entries = append(entries, e)
	}
	return json.MarshalIndent(entries, "", "  ")
}
