package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/notescan/internal/ai"
	"github.com/thywilljoshua/notescan/internal/config"
	"github.com/thywilljoshua/notescan/internal/convert"
	"github.com/thywilljoshua/notescan/internal/extract"
)

func main() {
	cfg := config.Load()

	var logLevel, logFormat string
	root := &cobra.Command{
		Use:           "notescan",
		Short:         "Turn lecture-note PDFs into slide decks, documents and reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, logFormat)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Gemini API key (default $GEMINI_API_KEY)")
	pf.StringVar(&cfg.Model, "model", cfg.Model, "Gemini model")
	pf.StringVar(&cfg.Project, "vertex-project", cfg.Project, "use Vertex AI in this Google Cloud project instead of an API key")
	pf.StringVar(&cfg.Location, "vertex-location", cfg.Location, "Vertex AI location")
	pf.StringSliceVar(&cfg.OCRLanguages, "ocr-lang", cfg.OCRLanguages, "Tesseract languages")
	pf.IntVar(&cfg.DPI, "dpi", cfg.DPI, "render resolution for scanned pages")
	pf.IntVar(&cfg.Workers, "workers", cfg.Workers, "pages recognised in parallel")
	pf.StringVar(&cfg.TextLayer, "text-layer", cfg.TextLayer, "embedded text reader: "+strings.Join(extract.TextLayers, "|"))
	pf.StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	pf.StringVar(&logFormat, "log-format", "text", "text|json")

	root.AddCommand(serveCmd(&cfg), outlineCmd(&cfg), generateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("--log-format: want text or json, got %q", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// pipeline builds the extractor and restructurer the CLI commands share.
// Without model credentials the outline is built heuristically.
func pipeline(ctx context.Context, cfg *config.Config) (convert.Config, error) {
	ext, err := extract.New(cfg.Extract())
	if err != nil {
		return convert.Config{}, err
	}
	conf := convert.Config{Extractor: ext, Restructurer: ai.Noop{}}

	g, err := ai.NewGemini(ctx, cfg.AI())
	switch {
	case err == nil:
		ext.Transcriber = g
		conf.Restructurer = g
	case errors.Is(err, ai.ErrNotConfigured):
		slog.Warn("No model credentials; building the outline heuristically and skipping handwriting.")
	default:
		return convert.Config{}, err
	}
	return conf, nil
}
