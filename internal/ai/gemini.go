package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/thywilljoshua/notescan/internal/outline"
)

const (
	DefaultModel = "gemini-2.5-flash"

	maxAttempts     = 3
	maxOutputTokens = 8192
)

// Config selects the Gemini API (APIKey) or Vertex AI (Project, Location).
type Config struct {
	APIKey   string
	Model    string
	Project  string
	Location string
}

func (c Config) Configured() bool { return c.APIKey != "" || c.Project != "" }

// generateFunc is the single model call the client makes. Tests replace it.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)

type Gemini struct {
	generate generateFunc
	model    string
	backoff  time.Duration
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.APIKey == "" {
		cc = &genai.ClientConfig{Backend: genai.BackendVertexAI, Project: cfg.Project, Location: cfg.Location}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	generate := func(ctx context.Context, model string, contents []*genai.Content, gc *genai.GenerateContentConfig) (string, error) {
		res, err := c.Models.GenerateContent(ctx, model, contents, gc)
		if err != nil {
			return "", err
		}
		return res.Text(), nil
	}
	return &Gemini{generate: generate, model: cfg.Model, backoff: time.Second}, nil
}

// prompt sends one request, retrying transient failures with exponential
// backoff. Empty responses count as failures.
func (g *Gemini) prompt(ctx context.Context, contents []*genai.Content, jsonOut bool) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: maxOutputTokens,
	}
	if jsonOut {
		gc.ResponseMIMEType = "application/json"
		gc.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	backoff := g.backoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := g.generate(ctx, g.model, contents, gc)
		if err == nil && strings.TrimSpace(out) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == maxAttempts || ctx.Err() != nil {
			break
		}
		slog.Warn("Model call failed, will retry.", "model", g.model, "attempt", attempt, "backoff", backoff.String(), "error", err)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if errors.Is(lastErr, ErrEmptyResponse) {
		return "", lastErr
	}
	return "", fmt.Errorf("gemini call failed after %d attempts: %w", maxAttempts, lastErr)
}

func (g *Gemini) Clean(ctx context.Context, raw string) (string, error) {
	out, err := g.prompt(ctx, []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(cleanPrompt, raw), genai.RoleUser),
	}, false)
	if err != nil {
		return "", fmt.Errorf("clean text: %w", err)
	}
	return stripCodeFences(out), nil
}

func (g *Gemini) Outline(ctx context.Context, text string) (outline.Outline, error) {
	out, err := g.prompt(ctx, []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(outlinePrompt, text), genai.RoleUser),
	}, true)
	if err != nil {
		return outline.Outline{}, fmt.Errorf("generate outline: %w", err)
	}
	return parseOutline(out)
}

func (g *Gemini) Revise(ctx context.Context, o outline.Outline, instruction string) (outline.Outline, error) {
	current, err := o.MarshalBlueprint()
	if err != nil {
		return outline.Outline{}, err
	}
	out, err := g.prompt(ctx, []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(revisePrompt, current, instruction), genai.RoleUser),
	}, true)
	if err != nil {
		return outline.Outline{}, fmt.Errorf("revise outline: %w", err)
	}
	return parseOutline(out)
}

// Transcribe reads handwriting or other text Tesseract could not from a page
// image.
func (g *Gemini) Transcribe(ctx context.Context, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	content := &genai.Content{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			{Text: transcribePrompt},
		},
	}
	out, err := g.prompt(ctx, []*genai.Content{content}, false)
	if err != nil {
		return "", fmt.Errorf("transcribe page: %w", err)
	}
	return strings.TrimSpace(stripCodeFences(out)), nil
}

func parseOutline(resp string) (outline.Outline, error) {
	js := stripCodeFences(resp)
	o, err := outline.Parse([]byte(js))
	if err == nil {
		return o, nil
	}
	if s := findFirstJSON(js); s != "" && s != js {
		if o, err2 := outline.Parse([]byte(s)); err2 == nil {
			return o, nil
		}
	}
	return outline.Outline{}, fmt.Errorf("parse model response: %w", err)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// findFirstJSON returns the first balanced JSON array or object in s. It
// skips brackets inside string literals.
func findFirstJSON(s string) string {
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return ""
	}
	opening, closing := s[start], byte('}')
	if opening == '[' {
		closing = ']'
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == opening:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
