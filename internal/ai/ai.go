package ai

import (
	"context"
	"errors"

	"github.com/thywilljoshua/notescan/internal/outline"
)

var (
	ErrNotConfigured = errors.New("language model not configured: provide an API key")
	ErrEmptyResponse = errors.New("language model returned an empty response")
)

// Restructurer turns extracted text into an outline and revises outlines on
// request.
type Restructurer interface {
	Clean(ctx context.Context, raw string) (string, error)
	Outline(ctx context.Context, text string) (outline.Outline, error)
	Revise(ctx context.Context, o outline.Outline, instruction string) (outline.Outline, error)
}

// Transcriber reads text from a page image.
type Transcriber interface {
	Transcribe(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Noop is used when no model is configured. Callers fall back to heuristics
// when it returns an empty outline.
type Noop struct{}

func (Noop) Clean(ctx context.Context, raw string) (string, error) { return raw, nil }

func (Noop) Outline(ctx context.Context, text string) (outline.Outline, error) {
	return outline.Outline{}, nil
}

func (Noop) Revise(ctx context.Context, o outline.Outline, instruction string) (outline.Outline, error) {
	return o, ErrNotConfigured
}
