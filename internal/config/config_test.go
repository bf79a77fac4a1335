package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Model != "gpt-4o-mini" || cfg.DPI != 220 || cfg.Language != "en" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.OCRMinConfidence != 0.3 {
		t.Fatalf("OCRMinConfidence = %g, want 0.3", cfg.OCRMinConfidence)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mockpaper.yaml")
	body := "model: gemini-1.5-flash\ndpi: 300\nrender_backends: [text]\nrender_timeout: 15s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOCKPAPER_DPI", "150")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Model != "gemini-1.5-flash" {
		t.Errorf("Model = %q, want value from file", cfg.Model)
	}
	if cfg.DPI != 150 {
		t.Errorf("DPI = %d, want env override 150", cfg.DPI)
	}
	if len(cfg.RenderBackends) != 1 || cfg.RenderBackends[0] != "text" {
		t.Errorf("RenderBackends = %v", cfg.RenderBackends)
	}
	if cfg.RenderTimeout != 15*time.Second {
		t.Errorf("RenderTimeout = %v", cfg.RenderTimeout)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"dpi too low", map[string]string{"MOCKPAPER_DPI": "10"}},
		{"variants", map[string]string{"MOCKPAPER_VARIANTS": "4"}},
		{"confidence", map[string]string{"OCR_MIN_CONFIDENCE": "1.5"}},
		{"backend", map[string]string{"OCR_BACKEND": "easyocr"}},
		{"shared model and cache dir", map[string]string{"OCR_MODEL_DIR": "/opt/tessdata", "OCR_CACHE_DIR": "/opt/tessdata/"}},
		{"documentai without processor", map[string]string{"OCR_BACKEND": "documentai"}},
		{"render backend", map[string]string{"RENDER_BACKENDS": "html,latex"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadFile(""); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestDefaultAPIKey(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "o", GeminiAPIKey: "g", AnthropicAPIKey: "a"}
	cases := map[string]string{
		"gpt-4o-mini":       "o",
		"Gemini-1.5-pro":    "g",
		"claude-3-5-sonnet": "a",
	}
	for model, want := range cases {
		if got := cfg.DefaultAPIKey(model); got != want {
			t.Errorf("DefaultAPIKey(%q) = %q, want %q", model, got, want)
		}
	}
}
