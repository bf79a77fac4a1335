// Package ocr recognizes text on rasterized page images.
//
// The Adapter wraps a pluggable recognition Engine and adds the steps every
// backend shares: image preprocessing, confidence filtering, math-aware text
// normalization and reading-order reconstruction.
//
// Supported backends:
//   - tesseract: local Tesseract through gosseract (default). Needs an explicit
//     model directory containing <lang>.traineddata. Weights are never downloaded.
//   - vision: Google Cloud Vision document text detection.
//   - documentai: Google Document AI OCR processor.
//
// Engines are expensive to construct, so they live in an EngineCache keyed by
// (backend, languages, device, storage path). The cache is safe for concurrent
// requests and builds each engine at most once.
//
// Required Environment Variables (cloud backends only):
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID: for documentai
package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"mockpaper/internal/logger"
	"mockpaper/pkg/models"
)

// Backend names.
const (
	BackendTesseract  = "tesseract"
	BackendVision     = "vision"
	BackendDocumentAI = "documentai"
)

// DefaultMinConfidence is the confidence below which tokens are discarded.
const DefaultMinConfidence = 0.3

// Engine is a recognition backend bound to one language set.
type Engine interface {
	// Name identifies the backend in logs.
	Name() string

	// Recognize returns raw tokens for img in engine order.
	// Confidence is scaled to 0.0-1.0.
	Recognize(ctx context.Context, img image.Image) ([]models.RecognizedToken, error)

	// Close releases the engine's session.
	Close() error
}

// Recognizer is the contract the text extractor depends on.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, language string) ([]models.RecognizedToken, error)
}

// GoogleConfig holds credentials and processor settings for the cloud backends.
type GoogleConfig struct {
	CredentialsJSON string // Inline service account JSON
	CredentialsFile string // Path to service account JSON
	ProjectID       string
	Location        string // Document AI location, e.g. "us" or "eu"
	ProcessorID     string // Document AI OCR processor
}

// Config configures the Adapter.
type Config struct {
	Backend       string  // tesseract, vision or documentai
	Device        string  // cpu or gpu; local engines downgrade gpu to cpu
	ModelDir      string  // Read-only model weights directory
	ScratchDir    string  // Writable scratch directory, distinct from ModelDir
	MinConfidence float64 // Tokens below this are discarded
	MagRatio      float64 // Image magnification before recognition; 1 disables
	DebugImages   bool    // Dump preprocessed images into ScratchDir
	Google        GoogleConfig
}

// DefaultConfig returns the local Tesseract configuration.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendTesseract,
		Device:        "cpu",
		ModelDir:      "./models/tessdata",
		ScratchDir:    filepath.Join(os.TempDir(), "mockpaper-ocr-cache"),
		MinConfidence: DefaultMinConfidence,
		MagRatio:      1.0,
	}
}

// Adapter runs preprocessing, recognition and post-processing for one page image.
type Adapter struct {
	cache *EngineCache
	cfg   Config
	log   zerolog.Logger
	dumps atomic.Int64
}

// NewAdapter creates an adapter with its own engine cache.
func NewAdapter(cfg Config) *Adapter {
	return NewAdapterWithCache(cfg, NewEngineCache(DefaultFactory(cfg)))
}

// NewAdapterWithCache creates an adapter sharing an existing engine cache (for
// long-running servers and tests).
func NewAdapterWithCache(cfg Config, cache *EngineCache) *Adapter {
	if cfg.MagRatio <= 0 {
		cfg.MagRatio = 1.0
	}
	a := &Adapter{
		cache: cache,
		cfg:   cfg,
		log:   logger.WithComponent("ocr"),
	}
	if cfg.Backend == BackendTesseract && strings.EqualFold(cfg.Device, "gpu") {
		a.log.Warn().Msg("GPU requested but the tesseract backend runs on CPU only, using cpu")
	}
	return a
}

// Key returns the cache key for language under the adapter's configuration.
func (a *Adapter) Key(language string) EngineKey {
	langs := ParseLanguages(language)
	key := EngineKey{
		Backend:   a.cfg.Backend,
		Languages: strings.Join(langs, "+"),
	}
	switch a.cfg.Backend {
	case BackendTesseract:
		key.Device = "cpu"
		key.StoragePath = absPath(a.cfg.ModelDir)
	default:
		key.Device = "remote"
	}
	return key
}

// Recognize returns confidence-filtered, normalized tokens in reading order.
func (a *Adapter) Recognize(ctx context.Context, img image.Image, language string) ([]models.RecognizedToken, error) {
	const op = "Recognize"

	if img == nil || img.Bounds().Empty() {
		return nil, NewOCRError(op, ErrEmptyImage, "")
	}

	key := a.Key(language)
	engine, err := a.cache.Get(ctx, key)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("engine %s unavailable", key))
	}

	prepared := Preprocess(img, PreprocessOptions{MagRatio: a.cfg.MagRatio})
	if a.cfg.DebugImages {
		a.dumpImage(prepared)
	}

	raw, err := engine.Recognize(ctx, prepared)
	if err != nil {
		return nil, WrapOCRError(op, err, engine.Name())
	}

	if a.cfg.MagRatio != 1.0 {
		raw = scaleTokens(raw, 1/a.cfg.MagRatio)
	}

	tokens := make([]models.RecognizedToken, 0, len(raw))
	for _, t := range raw {
		t.Text = NormalizeMathText(t.Text)
		if t.Text == "" {
			continue
		}
		tokens = append(tokens, t)
	}
	tokens = FilterByConfidence(tokens, a.cfg.MinConfidence)
	SortReadingOrder(tokens)

	a.log.Debug().
		Str("engine", engine.Name()).
		Int("raw_tokens", len(raw)).
		Int("kept_tokens", len(tokens)).
		Msg("Page recognized")

	return tokens, nil
}

// Close closes every cached engine.
func (a *Adapter) Close() error {
	return a.cache.Close()
}

// JoinTokens renders tokens as page text, one token per line.
func JoinTokens(tokens []models.RecognizedToken) string {
	lines := make([]string, 0, len(tokens))
	for _, t := range tokens {
		lines = append(lines, t.Text)
	}
	return strings.Join(lines, "\n")
}

// ParseLanguages splits "en+fr" or "en,fr" into language codes. Empty input means English.
func ParseLanguages(language string) []string {
	fields := strings.FieldsFunc(strings.ToLower(language), func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return []string{"en"}
	}
	return fields
}

func (a *Adapter) dumpImage(img image.Image) {
	if err := os.MkdirAll(a.cfg.ScratchDir, 0o755); err != nil {
		a.log.Warn().Err(err).Str("dir", a.cfg.ScratchDir).Msg("Failed to create OCR scratch directory")
		return
	}
	n := a.dumps.Add(1)
	path := filepath.Join(a.cfg.ScratchDir, fmt.Sprintf("preprocessed_%05d.png", n))
	f, err := os.Create(path)
	if err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("Failed to write debug image")
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("Failed to encode debug image")
	}
}

func scaleTokens(tokens []models.RecognizedToken, factor float64) []models.RecognizedToken {
	for i := range tokens {
		b := &tokens[i].Box
		b.Left *= factor
		b.Top *= factor
		b.Right *= factor
		b.Bottom *= factor
	}
	return tokens
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
