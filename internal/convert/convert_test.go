package convert

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/thywilljoshua/notescan/internal/ai"
	"github.com/thywilljoshua/notescan/internal/extract"
	"github.com/thywilljoshua/notescan/internal/outline"
)

type fakeExtractor struct {
	res extract.Result
	err error
}

func (f fakeExtractor) Extract(ctx context.Context, pdf []byte) (extract.Result, error) {
	return f.res, f.err
}

type fakeRestructurer struct {
	cleaned  string
	cleanErr error

	outline    outline.Outline
	outlineErr error
	outlineIn  string

	revised     outline.Outline
	reviseErr   error
	instruction string
}

func (f *fakeRestructurer) Clean(ctx context.Context, raw string) (string, error) {
	return f.cleaned, f.cleanErr
}

func (f *fakeRestructurer) Outline(ctx context.Context, text string) (outline.Outline, error) {
	f.outlineIn = text
	return f.outline, f.outlineErr
}

func (f *fakeRestructurer) Revise(ctx context.Context, o outline.Outline, instruction string) (outline.Outline, error) {
	f.instruction = instruction
	return f.revised, f.reviseErr
}

const notes = `--- Page 1 ---

Lecture notes intro line.

# Graph Basics
A graph has vertices. Edges connect them.
- directed
- undirected

--- Page 2 ---

2.1 Traversal Methods
Kinds:
- BFS
- DFS

12`

func notesExtraction() extract.Result {
	return extract.Result{
		Pages:  []extract.Page{{Number: 1}, {Number: 2}},
		Text:   notes,
		Source: extract.SourceEmbedded,
	}
}

func notesOutline() outline.Outline {
	return outline.Outline{Sections: []outline.Section{
		{Title: "Page 1", Bullets: []outline.Bullet{{Text: "Lecture notes intro line."}}},
		{Title: "Graph Basics", Bullets: []outline.Bullet{
			{Text: "A graph has vertices."},
			{Text: "Edges connect them."},
			{Text: "directed"},
			{Text: "undirected"},
		}},
		{Title: "2.1 Traversal Methods", Bullets: []outline.Bullet{
			{Text: "Kinds"},
			{Text: "BFS", Level: 1},
			{Text: "DFS", Level: 1},
		}},
	}}
}

func sampleOutline() outline.Outline {
	return outline.Outline{Sections: []outline.Section{{Title: "Graphs", Bullets: []outline.Bullet{{Text: "vertices"}}}}}
}

func TestRunUsesModelOutline(t *testing.T) {
	rs := &fakeRestructurer{cleaned: "cleaned text", outline: sampleOutline()}
	res, err := Run(context.Background(), []byte("%PDF"), Config{
		Extractor:    fakeExtractor{res: notesExtraction()},
		Restructurer: rs,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rs.outlineIn != "cleaned text" {
		t.Errorf("Outline got %q, want the cleaned text", rs.outlineIn)
	}
	if res.Heuristic {
		t.Error("Heuristic = true for a model outline")
	}
	if !reflect.DeepEqual(res.Outline, sampleOutline()) {
		t.Errorf("Outline = %+v", res.Outline)
	}
	if res.Pages != 2 || res.Source != extract.SourceEmbedded || res.Text != "cleaned text" {
		t.Errorf("Result = %+v", res)
	}
}

func TestRunHeuristicWithoutModel(t *testing.T) {
	res, err := Run(context.Background(), nil, Config{Extractor: fakeExtractor{res: notesExtraction()}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Heuristic {
		t.Error("Heuristic = false with no model")
	}
	if !reflect.DeepEqual(res.Outline, notesOutline()) {
		t.Errorf("Outline =\n%+v\nwant\n%+v", res.Outline, notesOutline())
	}
}

func TestRunEmptyCleanKeepsExtractedText(t *testing.T) {
	rs := &fakeRestructurer{cleaned: "  \n"}
	res, err := Run(context.Background(), nil, Config{Extractor: fakeExtractor{res: notesExtraction()}, Restructurer: rs})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rs.outlineIn != notes || res.Text != notes {
		t.Errorf("outline input = %q", rs.outlineIn)
	}
	if !res.Heuristic {
		t.Error("empty model outline did not fall back to the heuristic")
	}
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("model unavailable")
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no text", Config{Extractor: fakeExtractor{err: extract.ErrNoText}}, extract.ErrNoText},
		{"invalid pdf", Config{Extractor: fakeExtractor{err: extract.ErrInvalidPDF}}, extract.ErrInvalidPDF},
		{"clean", Config{Extractor: fakeExtractor{res: notesExtraction()}, Restructurer: &fakeRestructurer{cleanErr: boom}}, boom},
		{"outline", Config{Extractor: fakeExtractor{res: notesExtraction()}, Restructurer: &fakeRestructurer{cleaned: "x", outlineErr: boom}}, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(context.Background(), nil, tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := Run(context.Background(), nil, Config{}); err == nil {
		t.Error("Run without an extractor succeeded")
	}
}

func TestRevise(t *testing.T) {
	ctx := context.Background()
	revised := outline.Outline{Sections: []outline.Section{{Title: "Graphs, shorter"}}}

	rs := &fakeRestructurer{revised: revised}
	got, err := Revise(ctx, rs, sampleOutline(), "  make it shorter ")
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if rs.instruction != "make it shorter" || !reflect.DeepEqual(got, revised) {
		t.Errorf("instruction %q, outline %+v", rs.instruction, got)
	}

	if _, err := Revise(ctx, rs, sampleOutline(), " "); !errors.Is(err, ErrNoInstruction) {
		t.Errorf("blank instruction: err = %v", err)
	}
	if _, err := Revise(ctx, ai.Noop{}, sampleOutline(), "shorter"); !errors.Is(err, ai.ErrNotConfigured) {
		t.Errorf("Noop: err = %v, want ErrNotConfigured", err)
	}

	var invalid *outline.InvalidOutlineError
	if _, err := Revise(ctx, rs, outline.Outline{}, "shorter"); !errors.As(err, &invalid) {
		t.Errorf("empty input outline: err = %v", err)
	}
	if _, err := Revise(ctx, &fakeRestructurer{}, sampleOutline(), "drop everything"); !errors.As(err, &invalid) {
		t.Errorf("empty revised outline: err = %v", err)
	}
}

func TestSplitPages(t *testing.T) {
	got := splitPages("cover\n--- Page 1 ---\n\nfirst\n\n--- Page 2 ---\n\n\n--- Page 3 ---\nthird")
	want := []pageText{{1, "cover\nfirst"}, {2, ""}, {3, "third"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitPages = %+v", got)
	}
	if got := splitPages(" plain text "); !reflect.DeepEqual(got, []pageText{{1, "plain text"}}) {
		t.Errorf("splitPages without markers = %+v", got)
	}
}

func TestHeuristicFromToC(t *testing.T) {
	text := `--- Page 1 ---

Contents
1 Introduction ........ 2
1.1 Motivation ........ 2
2 Methods ........ 3
3 Results ........ 4

--- Page 2 ---

Introduction text here. It motivates the work.

--- Page 3 ---

We used methods.

--- Page 4 ---

Results were good.`

	got := heuristicOutline(text, Config{})
	want := outline.Outline{Sections: []outline.Section{
		{Title: "Introduction", Bullets: []outline.Bullet{{Text: "Motivation"}}},
		{Title: "Methods", Bullets: []outline.Bullet{{Text: "We used methods."}}},
		{Title: "Results", Bullets: []outline.Bullet{{Text: "Results were good."}}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("heuristicOutline =\n%+v\nwant\n%+v", got, want)
	}
}

func TestHeuristicPerPage(t *testing.T) {
	got := heuristicOutline("just some words here. more words", Config{})
	want := outline.Outline{Sections: []outline.Section{
		{Title: "Page 1", Bullets: []outline.Bullet{{Text: "just some words here. more words"}}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("heuristicOutline = %+v", got)
	}
}

func TestParseToCLines(t *testing.T) {
	got := parseToCLines([]string{
		"2 Methods ..... 9",
		"1 Introduction … 3",
		"II.3 Late Roman 12",
		"Appendix A Data Tables 40",
		"not an entry",
	})
	want := []tocEntry{
		{Number: "1", Title: "Introduction", Page: 3, Depth: 1},
		{Number: "2", Title: "Methods", Page: 9, Depth: 1},
		{Number: "II.3", Title: "Late Roman", Page: 12, Depth: 2},
		{Number: "A", Title: "Data Tables", Page: 40, Depth: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseToCLines =\n%+v\nwant\n%+v", got, want)
	}
}

func TestNestToC(t *testing.T) {
	roots := nestToC([]tocEntry{
		{Number: "1", Depth: 1},
		{Number: "1.1", Depth: 2},
		{Number: "1.1.1", Depth: 3},
		{Number: "2.1", Depth: 2},
		{Number: "2", Depth: 1},
	})
	if len(roots) != 3 {
		t.Fatalf("roots = %+v", roots)
	}
	if len(roots[0].children) != 2 || roots[1].entry.Number != "2.1" || roots[2].entry.Number != "2" {
		t.Errorf("roots = %+v", roots)
	}
}

func TestHeadingTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"# Title", "Title", true},
		{"## **Bold** ##", "Bold", true},
		{"INTRODUCTION", "INTRODUCTION", true},
		{"Data Structures and Algorithms", "Data Structures and Algorithms", true},
		{"1.2 Methods", "1.2 Methods", true},
		{"The quick brown fox", "", false},
		{"Page 3", "", false},
		{"1. Buy milk", "", false},
		{"This is a sentence.", "", false},
		{"Introduction", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := headingTitle(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("headingTitle(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestContentBullets(t *testing.T) {
	got := contentBullets([]string{
		"First sentence. Second one",
		"continues here.",
		"",
		"| Name | Score |",
		"| --- | --- |",
		"| Ada | 91 |",
		"Steps:",
		"1) boil",
		"2) serve",
		"",
		"* last",
		"7",
	})
	want := []outline.Bullet{
		{Text: "First sentence."},
		{Text: "Second one continues here."},
		{Text: "Name | Score"},
		{Text: "Ada | 91"},
		{Text: "Steps"},
		{Text: "boil", Level: 1},
		{Text: "serve", Level: 1},
		{Text: "last"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("contentBullets =\n%+v\nwant\n%+v", got, want)
	}
}

func TestCapSections(t *testing.T) {
	var bullets []outline.Bullet
	for _, s := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		bullets = append(bullets, outline.Bullet{Text: s})
	}
	got := capSections([]outline.Section{{Title: "T", Bullets: bullets}, {Title: "U"}}, 3)
	titles := make([]string, len(got))
	for i, s := range got {
		titles[i] = s.Title
	}
	if want := []string{"T", "T (cont.)", "T (cont.)", "U"}; !reflect.DeepEqual(titles, want) {
		t.Errorf("titles = %v, want %v", titles, want)
	}
	if len(got[2].Bullets) != 1 || got[2].Bullets[0].Text != "g" {
		t.Errorf("last chunk = %+v", got[2].Bullets)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Week 3: Graphs/Trees": "week-3-graphs-trees",
		"  Intro  ":            "intro",
		"!!!":                  "outline",
	}
	for in, want := range tests {
		if got := Slug(in, "outline"); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
