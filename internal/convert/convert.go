// Package convert runs the document pipeline: extract the text of a PDF,
// have the model clean and restructure it, and fall back to a heuristic
// outline when no model is available.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thywilljoshua/notescan/internal/ai"
	"github.com/thywilljoshua/notescan/internal/outline"
)

var ErrNoInstruction = errors.New("revision instruction is empty")

// Run turns a PDF into an outline. It fails with the extraction error when
// no text can be read, and never returns an empty outline without an error.
func Run(ctx context.Context, pdf []byte, cfg Config) (Result, error) {
	if cfg.Extractor == nil {
		return Result{}, errors.New("convert: no extractor configured")
	}
	rs := cfg.Restructurer
	if rs == nil {
		rs = ai.Noop{}
	}

	ext, err := cfg.Extractor.Extract(ctx, pdf)
	if err != nil {
		return Result{}, fmt.Errorf("extract text: %w", err)
	}
	slog.Info("Extracted text.", "pages", len(ext.Pages), "source", ext.Source, "chars", len(ext.Text))

	text, err := rs.Clean(ctx, ext.Text)
	if err != nil {
		return Result{}, fmt.Errorf("clean text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		text = ext.Text
	}

	o, err := rs.Outline(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("build outline: %w", err)
	}
	heuristic := false
	if o.Empty() {
		o = heuristicOutline(text, cfg)
		heuristic = true
		slog.Info("No model outline, using heuristic outline.", "sections", len(o.Sections))
	}
	if err := o.Validate(); err != nil {
		return Result{}, err
	}
	return Result{
		Outline:   o,
		Text:      text,
		Source:    ext.Source,
		Pages:     len(ext.Pages),
		Heuristic: heuristic,
	}, nil
}

// Revise applies a free-form instruction to an outline through the model.
func Revise(ctx context.Context, rs ai.Restructurer, o outline.Outline, instruction string) (outline.Outline, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return outline.Outline{}, ErrNoInstruction
	}
	if err := o.Validate(); err != nil {
		return outline.Outline{}, err
	}
	if rs == nil {
		rs = ai.Noop{}
	}
	revised, err := rs.Revise(ctx, o, instruction)
	if err != nil {
		return outline.Outline{}, fmt.Errorf("revise outline: %w", err)
	}
	if err := revised.Validate(); err != nil {
		return outline.Outline{}, err
	}
	slog.Info("Revised outline.", "sections", len(revised.Sections))
	return revised, nil
}
