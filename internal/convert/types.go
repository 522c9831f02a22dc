package convert

import (
	"context"

	"github.com/thywilljoshua/notescan/internal/ai"
	"github.com/thywilljoshua/notescan/internal/extract"
	"github.com/thywilljoshua/notescan/internal/outline"
)

// Extractor is satisfied by *extract.Extractor.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (extract.Result, error)
}

type Config struct {
	Extractor    Extractor
	Restructurer ai.Restructurer

	// MaxBullets caps heuristic sections; the overflow continues in a
	// "(cont.)" section.
	MaxBullets int
	// ToCPages is how many leading pages are searched for a table of
	// contents.
	ToCPages int
}

type Result struct {
	Outline   outline.Outline `json:"outline"`
	Text      string          `json:"text"`
	Source    extract.Source  `json:"source"`
	Pages     int             `json:"pages"`
	Heuristic bool            `json:"heuristic"`
}
