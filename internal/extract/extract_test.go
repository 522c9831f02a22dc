package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	rpdf "rsc.io/pdf"
)

// minimalPDF builds an n-page PDF with a correct cross-reference table.
func minimalPDF(t *testing.T, n int) []byte {
	t.Helper()
	var objs []string
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	for range n {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// pageImage encodes the page number in the image width so fakes can tell
// pages apart after preprocessing.
func pageImage(t *testing.T, page int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 10+page, 10))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pageOf(img []byte) int {
	cfg, err := png.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return -1
	}
	return cfg.Width - 10
}

type fakeLayer struct {
	pages []string
	err   error
}

func (f fakeLayer) Pages(ctx context.Context, data []byte) ([]string, error) {
	return f.pages, f.err
}

type fakeRasterizer struct {
	images [][]byte
	calls  atomic.Int32
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, data []byte, dpi float64) ([][]byte, error) {
	f.calls.Add(1)
	return f.images, nil
}

type fakeRecognizer func(page int) (Recognition, error)

func (f fakeRecognizer) Recognize(ctx context.Context, img []byte) (Recognition, error) {
	return f(pageOf(img))
}

type fakeTranscriber struct {
	mu    sync.Mutex
	pages []int
	err   error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, img []byte, mimeType string) (string, error) {
	if mimeType != "image/png" {
		return "", fmt.Errorf("unexpected mime type %q", mimeType)
	}
	p := pageOf(img)
	f.mu.Lock()
	f.pages = append(f.pages, p)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("handwritten notes on page %d", p), nil
}

func printed(page int) (Recognition, error) {
	return Recognition{Text: fmt.Sprintf("printed text recognized on page %d", page), Confidence: 95}, nil
}

func newTestExtractor(t *testing.T, pages int, rec Recognizer) (*Extractor, *fakeRasterizer) {
	t.Helper()
	r := &fakeRasterizer{}
	for i := 1; i <= pages; i++ {
		r.images = append(r.images, pageImage(t, i))
	}
	return &Extractor{
		Config:     DefaultConfig(),
		Layer:      fakeLayer{pages: make([]string, pages)},
		Rasterizer: r,
		Recognizer: rec,
	}, r
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(minimalPDF(t, 3))
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 3 {
		t.Errorf("PageCount = %d, want 3", n)
	}
}

func TestPageCountInvalid(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("this is not a pdf at all"),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := PageCount(data); !errors.Is(err, ErrInvalidPDF) {
				t.Errorf("err = %v, want ErrInvalidPDF", err)
			}
		})
	}
}

func TestExtractRejectsInvalidPDF(t *testing.T) {
	e, r := newTestExtractor(t, 1, fakeRecognizer(printed))
	if _, err := e.Extract(context.Background(), []byte("nope")); !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("err = %v, want ErrInvalidPDF", err)
	}
	if r.calls.Load() != 0 {
		t.Error("rasterizer called for an invalid PDF")
	}
}

func TestExtractEmbedded(t *testing.T) {
	e, r := newTestExtractor(t, 2, fakeRecognizer(printed))
	e.Layer = fakeLayer{pages: []string{
		strings.Repeat("Embedded words on the first page. ", 3),
		"Second page • with a stray glyph",
	}}

	res, err := e.Extract(context.Background(), minimalPDF(t, 2))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Source != SourceEmbedded {
		t.Errorf("Source = %q, want embedded", res.Source)
	}
	if r.calls.Load() != 0 {
		t.Error("rasterizer called although the text layer was sufficient")
	}
	if !strings.HasPrefix(res.Text, "--- Page 1 ---\n\nEmbedded words") {
		t.Errorf("Text starts %q", res.Text[:min(40, len(res.Text))])
	}
	if !strings.Contains(res.Text, "--- Page 2 ---\n\nSecond page with a stray glyph") {
		t.Errorf("page 2 missing or not normalized:\n%s", res.Text)
	}
}

func TestExtractShortEmbeddedTextFallsBackToOCR(t *testing.T) {
	e, r := newTestExtractor(t, 1, fakeRecognizer(printed))
	e.Layer = fakeLayer{pages: []string{"Scan 001"}}

	res, err := e.Extract(context.Background(), minimalPDF(t, 1))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if r.calls.Load() != 1 || res.Source != SourceOCR {
		t.Errorf("calls = %d, source = %q; want OCR path", r.calls.Load(), res.Source)
	}
}

func TestExtractLayerErrorFallsBackToOCR(t *testing.T) {
	e, _ := newTestExtractor(t, 1, fakeRecognizer(printed))
	e.Layer = fakeLayer{err: errors.New("broken font")}

	res, err := e.Extract(context.Background(), minimalPDF(t, 1))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Source != SourceOCR {
		t.Errorf("Source = %q, want ocr", res.Source)
	}
}

func TestExtractKeepsPageOrder(t *testing.T) {
	const pages = 8
	slow := fakeRecognizer(func(page int) (Recognition, error) {
		time.Sleep(time.Duration(pages-page) * time.Millisecond)
		return printed(page)
	})

	var want string
	for _, workers := range []int{1, 4, pages} {
		e, _ := newTestExtractor(t, pages, slow)
		e.Config.Workers = workers
		res, err := e.Extract(context.Background(), minimalPDF(t, pages))
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		for i, p := range res.Pages {
			if p.Number != i+1 || !strings.HasSuffix(p.Text, fmt.Sprintf("page %d", i+1)) {
				t.Errorf("workers=%d: page %d = %+v", workers, i+1, p)
			}
		}
		if want == "" {
			want = res.Text
		} else if res.Text != want {
			t.Errorf("workers=%d: text differs from workers=1", workers)
		}
	}
}

func TestExtractHandwrittenPagesGoToTranscriber(t *testing.T) {
	rec := fakeRecognizer(func(page int) (Recognition, error) {
		if page == 2 {
			return Recognition{Text: "~ ;", Confidence: 12}, nil
		}
		return printed(page)
	})
	e, _ := newTestExtractor(t, 3, rec)
	tr := &fakeTranscriber{}
	e.Transcriber = tr

	res, err := e.Extract(context.Background(), minimalPDF(t, 3))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(tr.pages) != 1 || tr.pages[0] != 2 {
		t.Errorf("transcribed pages = %v, want [2]", tr.pages)
	}
	if res.Pages[1].Source != SourceVision || res.Pages[1].Text != "handwritten notes on page 2" {
		t.Errorf("page 2 = %+v", res.Pages[1])
	}
	if res.Source != SourceMixed {
		t.Errorf("Source = %q, want mixed", res.Source)
	}
}

func TestExtractTranscriberFailureKeepsOCRText(t *testing.T) {
	rec := fakeRecognizer(func(page int) (Recognition, error) {
		return Recognition{Text: "faint scribbles", Confidence: 40}, nil
	})
	e, _ := newTestExtractor(t, 1, rec)
	e.Transcriber = &fakeTranscriber{err: errors.New("quota exceeded")}

	res, err := e.Extract(context.Background(), minimalPDF(t, 1))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Pages[0].Text != "faint scribbles" || res.Pages[0].Source != SourceOCR {
		t.Errorf("page = %+v", res.Pages[0])
	}
}

func TestExtractTranscriberFailureWithoutOCRText(t *testing.T) {
	rec := fakeRecognizer(func(page int) (Recognition, error) { return Recognition{}, nil })
	e, _ := newTestExtractor(t, 1, rec)
	boom := errors.New("quota exceeded")
	e.Transcriber = &fakeTranscriber{err: boom}

	if _, err := e.Extract(context.Background(), minimalPDF(t, 1)); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestExtractOCRDisabled(t *testing.T) {
	off := fakeRecognizer(func(page int) (Recognition, error) { return Recognition{}, ErrOCRNotEnabled })

	t.Run("no transcriber", func(t *testing.T) {
		e, _ := newTestExtractor(t, 1, off)
		if _, err := e.Extract(context.Background(), minimalPDF(t, 1)); !errors.Is(err, ErrOCRNotEnabled) {
			t.Fatalf("err = %v, want ErrOCRNotEnabled", err)
		}
	})
	t.Run("transcriber", func(t *testing.T) {
		e, _ := newTestExtractor(t, 2, off)
		tr := &fakeTranscriber{}
		e.Transcriber = tr
		res, err := e.Extract(context.Background(), minimalPDF(t, 2))
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if res.Source != SourceVision || len(tr.pages) != 2 {
			t.Errorf("source = %q, transcribed = %v", res.Source, tr.pages)
		}
	})
}

func TestExtractNoText(t *testing.T) {
	rec := fakeRecognizer(func(page int) (Recognition, error) { return Recognition{Text: "  "}, nil })
	e, _ := newTestExtractor(t, 2, rec)
	if _, err := e.Extract(context.Background(), minimalPDF(t, 2)); !errors.Is(err, ErrNoText) {
		t.Fatalf("err = %v, want ErrNoText", err)
	}
}

func TestExtractRecognizerError(t *testing.T) {
	boom := errors.New("engine crashed")
	rec := fakeRecognizer(func(page int) (Recognition, error) { return Recognition{}, boom })
	e, _ := newTestExtractor(t, 3, rec)
	_, err := e.Extract(context.Background(), minimalPDF(t, 3))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestHandwritten(t *testing.T) {
	e := &Extractor{Config: DefaultConfig()}
	long := "a line of clearly printed text"
	tests := []struct {
		name    string
		rec     Recognition
		density float64
		want    bool
	}{
		{"too short", Recognition{Text: "abc", Confidence: 99}, 0.1, true},
		{"confident", Recognition{Text: long, Confidence: 91}, 0, false},
		{"sharp edges", Recognition{Text: long, Confidence: 50}, 0.02, false},
		{"low confidence soft edges", Recognition{Text: long, Confidence: 50}, 0.001, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.handwritten(tt.rec, tt.density); got != tt.want {
				t.Errorf("handwritten = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"dehyphenate", "inform-\nation", "information"},
		{"keeps list dash", "end of line-\n- next item", "end of line-\n- next item"},
		{"spaces", "a  b\t c  ", "a b c"},
		{"blank lines", "a\n\n\n\n\nb", "a\n\nb"},
		{"crlf", "a\r\nb", "a\nb"},
		{"ligature", "ﬁne", "fine"},
		{"leading glyph", "• item one\n  ◦ sub item", "- item one\n- sub item"},
		{"inline glyph", "a • b ✓", "a b"},
		{"glyph only line", "text\n•\nmore", "text\n\nmore"},
		{"page marker", "--- Page 1 ---\n\nbody", "--- Page 1 ---\n\nbody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPreprocess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 400; x++ {
			c := color.RGBA{230, 230, 230, 255}
			if x%20 < 4 {
				c = color.RGBA{20, 20, 20, 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	prep, err := preprocess(buf.Bytes(), 200)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	out, err := png.Decode(bytes.NewReader(prep.png))
	if err != nil {
		t.Fatal(err)
	}
	if b := out.Bounds(); b.Dx() != 200 || b.Dy() != 50 {
		t.Errorf("size = %v, want 200x50", b.Size())
	}
	g, ok := out.(*image.Gray)
	if !ok {
		t.Fatalf("decoded %T, want *image.Gray", out)
	}
	for _, p := range g.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("pixel %d not binarized", p)
		}
	}
	if prep.edgeDensity <= 0 {
		t.Errorf("edgeDensity = %v, want > 0 for striped image", prep.edgeDensity)
	}

	if _, err := preprocess([]byte("not an image"), 100); err == nil {
		t.Error("preprocess accepted garbage")
	}
}

func TestOtsuThreshold(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range g.Pix {
		if i%2 == 0 {
			g.Pix[i] = 40
		} else {
			g.Pix[i] = 210
		}
	}
	th := otsuThreshold(g)
	if th < 40 || th >= 210 {
		t.Errorf("threshold = %d, want in [40, 210)", th)
	}
	if d := edgeDensity(image.NewGray(image.Rect(0, 0, 10, 10))); d != 0 {
		t.Errorf("edgeDensity(flat) = %v, want 0", d)
	}
}

func TestRSCPageText(t *testing.T) {
	runs := []rpdf.Text{
		{S: "world", X: 140, Y: 700, W: 40, FontSize: 12},
		{S: "Second", X: 100, Y: 680, W: 50, FontSize: 12},
		{S: "Hello", X: 100, Y: 700, W: 30, FontSize: 12},
		{S: "line", X: 150, Y: 680, W: 20, FontSize: 12},
	}
	if got, want := rscPageText(runs), "Hello world\nSecondline"; got != want {
		t.Errorf("rscPageText = %q, want %q", got, want)
	}
}

func TestStripImages(t *testing.T) {
	in := "# Title\n![](data:image/png;base64,AAAA)\ntext"
	if got := stripImages(in); got != "# Title\ntext" {
		t.Errorf("stripImages = %q", got)
	}
}

func TestNewTextLayer(t *testing.T) {
	for _, name := range append([]string{""}, TextLayers...) {
		if _, err := NewTextLayer(name); err != nil {
			t.Errorf("NewTextLayer(%q): %v", name, err)
		}
	}
	if _, err := NewTextLayer("acrobat"); err == nil {
		t.Error("NewTextLayer accepted an unknown layer")
	}
}

func TestMarkdownTables(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{
			"table",
			"Results\nName    Score   Grade\nAda     91      A\nBob     78      C\n\nAfter",
			"Results\n| Name | Score | Grade |\n| --- | --- | --- |\n| Ada | 91 | A |\n| Bob | 78 | C |\n\nAfter",
		},
		{
			"single aligned row is not a table",
			"Total    42\nplain line",
			"Total    42\nplain line",
		},
		{
			"column count change ends the table",
			"a  b\nc  d\ne  f  g",
			"| a | b |\n| --- | --- |\n| c | d |\ne  f  g",
		},
		{"prose", "one line\ntwo line", "one line\ntwo line"},
		{
			"prose with double spaces",
			"The lecture will end.  Next week we cover\nsorting in depth.  Bring notes",
			"The lecture will end.  Next week we cover\nsorting in depth.  Bring notes",
		},
		{
			"right aligned numbers",
			"Item     Cost\nTea         4\nCake       12",
			"| Item | Cost |\n| --- | --- |\n| Tea | 4 |\n| Cake | 12 |",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := markdownTables(tt.in); got != tt.want {
				t.Errorf("markdownTables:\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}
