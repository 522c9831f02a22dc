// Package config reads process-wide defaults from the environment. Command
// line flags override them, and the web UI may supply a per-session API key.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/thywilljoshua/notescan/internal/ai"
	"github.com/thywilljoshua/notescan/internal/extract"
)

type Config struct {
	Addr        string
	MaxUploadMB int
	SessionTTL  time.Duration

	APIKey   string
	Model    string
	Project  string
	Location string

	OCRLanguages []string
	DPI          int
	Workers      int
	TextLayer    string
}

func Load() Config {
	def := extract.DefaultConfig()
	return Config{
		Addr:        GetEnv("NOTESCAN_ADDR", ":8080"),
		MaxUploadMB: getInt("NOTESCAN_MAX_UPLOAD_MB", 25),
		SessionTTL:  getDuration("NOTESCAN_SESSION_TTL", time.Hour),

		APIKey:   GetEnv("GEMINI_API_KEY", ""),
		Model:    GetEnv("GEMINI_MODEL", ai.DefaultModel),
		Project:  GetEnv("GOOGLE_CLOUD_PROJECT", ""),
		Location: GetEnv("GOOGLE_CLOUD_LOCATION", "us-central1"),

		OCRLanguages: strings.Split(GetEnv("NOTESCAN_OCR_LANG", strings.Join(def.Languages, "+")), "+"),
		DPI:          getInt("NOTESCAN_DPI", def.DPI),
		Workers:      getInt("NOTESCAN_OCR_WORKERS", def.Workers),
		TextLayer:    GetEnv("NOTESCAN_TEXT_LAYER", def.TextLayer),
	}
}

// AI returns the model settings. The web UI replaces APIKey per session.
func (c Config) AI() ai.Config {
	return ai.Config{APIKey: c.APIKey, Model: c.Model, Project: c.Project, Location: c.Location}
}

func (c Config) Extract() extract.Config {
	ec := extract.DefaultConfig()
	ec.TextLayer = c.TextLayer
	ec.Languages = c.OCRLanguages
	ec.DPI = c.DPI
	ec.Workers = c.Workers
	return ec
}

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("Ignoring invalid environment value.", "key", key, "value", v)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("Ignoring invalid environment value.", "key", key, "value", v)
		return fallback
	}
	return d
}
