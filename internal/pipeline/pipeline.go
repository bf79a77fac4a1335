// Package pipeline runs one mock-paper request end to end: intake of the
// uploaded references, text extraction, generation of the variants and
// rendering of a question paper and an answer key per variant.
//
// A request moves through received, extracting, generating and rendering
// and ends in complete or failed. Every failure is an *Error naming the
// state it happened in and the kind of failure.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mockpaper/internal/config"
	"mockpaper/internal/extract"
	"mockpaper/internal/logger"
	"mockpaper/internal/mockgen"
	"mockpaper/internal/ocr"
	"mockpaper/internal/render"
	"mockpaper/pkg/models"
)

// State is a step of a request's lifecycle.
type State string

const (
	StateReceived   State = "received"
	StateExtracting State = "extracting"
	StateGenerating State = "generating"
	StateRendering  State = "rendering"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// DefaultRenderWorkers bounds concurrent variant rendering.
const DefaultRenderWorkers = 2

// Observer is notified of every state transition of a request.
type Observer func(requestID string, from, to State)

// Extractor is the text extraction stage.
type Extractor interface {
	Extract(ctx context.Context, docs []models.SourceDocument, opts extract.Options) (*models.ReferenceText, error)
}

// Generator is the generation stage.
type Generator interface {
	Generate(ctx context.Context, reference, difficulty string, count int) ([]models.Variant, error)
	Close() error
}

// GeneratorFactory builds a generator for one request's model and credential.
type GeneratorFactory func(ctx context.Context, model, apiKey string) (Generator, error)

// Renderer is the rendering stage.
type Renderer interface {
	RenderDocument(ctx context.Context, src render.Source, outputPath string, opts render.Options) (*models.RenderedDocument, error)
}

// Settings are the process-level defaults a Request can override.
type Settings struct {
	BaseDir       string // Parent of per-request work dirs
	MaxPages      int    // Per-PDF page limit; 0 disables
	Model         string
	Language      string
	DPI           int
	Variants      int
	Difficulty    string
	OCRWorkers    int
	RenderWorkers int

	// DefaultAPIKey returns the environment credential for a model.
	DefaultAPIKey func(model string) string
}

// Request is one generation request.
type Request struct {
	Uploads    []Upload
	Language   string
	DPI        int
	Model      string
	APIKey     string // Per-request credential; placeholders fall back to the environment
	Variants   int
	Difficulty string
	WorkDir    string // Optional; a fresh <BaseDir>/<uuid> is used when empty
}

// Result describes a completed request.
type Result struct {
	RequestID string
	WorkDir   string
	TextPath  string
	HTMLPath  string
	Variants  []models.Variant
	Artifacts []models.RenderedDocument // Ordered by variant, paper before answers
}

// Pipeline wires the stages together.
type Pipeline struct {
	extractor  Extractor
	generators GeneratorFactory
	renderer   Renderer
	settings   Settings
	observer   Observer
	log        zerolog.Logger
}

// New creates a pipeline from explicit stages (for testing and embedding).
func New(extractor Extractor, generators GeneratorFactory, renderer Renderer, settings Settings) *Pipeline {
	if settings.BaseDir == "" {
		settings.BaseDir = filepath.Join(os.TempDir(), "mockpaper")
	}
	if settings.RenderWorkers <= 0 {
		settings.RenderWorkers = DefaultRenderWorkers
	}
	if settings.DefaultAPIKey == nil {
		settings.DefaultAPIKey = func(string) string { return "" }
	}
	return &Pipeline{
		extractor:  extractor,
		generators: generators,
		renderer:   renderer,
		settings:   settings,
		log:        logger.WithComponent("pipeline"),
	}
}

// NewFromConfig builds the production pipeline. Passing a shared engine
// cache lets a long-running server reuse OCR engines across requests; nil
// creates a private cache.
func NewFromConfig(cfg *config.Config, cache *ocr.EngineCache) (*Pipeline, error) {
	ocrCfg := OCRConfig(cfg)
	if cache == nil {
		cache = ocr.NewEngineCache(ocr.DefaultFactory(ocrCfg))
	}
	extractor := extract.NewExtractor(ocr.NewAdapterWithCache(ocrCfg, cache))

	renderer, err := render.NewRendererFromNames(cfg.RenderBackends, cfg.ChromePath, cfg.RenderTimeout)
	if err != nil {
		return nil, err
	}

	genConfig := mockgen.Config{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	generators := func(ctx context.Context, model, apiKey string) (Generator, error) {
		service, err := mockgen.NewTextService(ctx, model, apiKey)
		if err != nil {
			return nil, err
		}
		return mockgen.NewGenerator(service, genConfig), nil
	}

	return New(extractor, generators, renderer, Settings{
		BaseDir:       cfg.WorkDir,
		MaxPages:      cfg.MaxPages,
		Model:         cfg.Model,
		Language:      cfg.Language,
		DPI:           cfg.DPI,
		Variants:      cfg.Variants,
		Difficulty:    cfg.Difficulty,
		OCRWorkers:    cfg.OCRWorkers,
		DefaultAPIKey: cfg.DefaultAPIKey,
	}), nil
}

// OCRConfig maps application configuration onto the OCR adapter's.
func OCRConfig(cfg *config.Config) ocr.Config {
	return ocr.Config{
		Backend:       cfg.OCRBackend,
		Device:        cfg.OCRDevice,
		ModelDir:      cfg.OCRModelDir,
		ScratchDir:    cfg.OCRCacheDir,
		MinConfidence: cfg.OCRMinConfidence,
		MagRatio:      cfg.OCRMagRatio,
		DebugImages:   cfg.OCRDebugImages,
		Google: ocr.GoogleConfig{
			CredentialsJSON: cfg.GoogleCredentials,
			CredentialsFile: cfg.GoogleApplicationCredentials,
			ProjectID:       cfg.GoogleCloudProject,
			Location:        cfg.GoogleCloudLocation,
			ProcessorID:     cfg.DocumentAIProcessorID,
		},
	}
}

// SetObserver registers o for state transitions.
func (p *Pipeline) SetObserver(o Observer) {
	p.observer = o
}

// run tracks one request's state and logger.
type run struct {
	p     *Pipeline
	id    string
	state State
	log   zerolog.Logger
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.log.Info().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("Request state changed")
	if r.p.observer != nil {
		r.p.observer(r.id, from, to)
	}
}

func (r *run) fail(kind Kind, err error) error {
	failed := &Error{State: r.state, Kind: kind, Err: err}
	r.log.Error().
		Err(err).
		Str("kind", string(kind)).
		Str("state", string(r.state)).
		Msg("Request failed")
	r.transition(StateFailed)
	return failed
}

// Run processes req and returns the rendered artifacts.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	r := &run{p: p, id: uuid.NewString()}
	r.log = logger.ForRequest(p.log, r.id)
	r.transition(StateReceived)
	start := time.Now()

	if err := checkUploads(req.Uploads); err != nil {
		return nil, r.fail(KindInput, err)
	}
	if req.DPI != 0 && (req.DPI < config.MinDPI || req.DPI > config.MaxDPI) {
		return nil, r.fail(KindInput, fmt.Errorf("%w: %d (allowed %d-%d)",
			ErrDPIOutOfRange, req.DPI, config.MinDPI, config.MaxDPI))
	}

	model := firstNonEmpty(req.Model, p.settings.Model)
	apiKey, err := mockgen.ResolveCredential(req.APIKey, p.settings.DefaultAPIKey(model))
	if err != nil {
		return nil, r.fail(KindConfiguration, err)
	}
	generator, err := p.generators(ctx, model, apiKey)
	if err != nil {
		return nil, r.fail(KindConfiguration, err)
	}
	defer func() {
		if err := generator.Close(); err != nil {
			r.log.Warn().Err(err).Msg("Failed to close text service")
		}
	}()

	workDir := req.WorkDir
	if workDir == "" {
		workDir = filepath.Join(p.settings.BaseDir, r.id)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, r.fail(KindConfiguration, fmt.Errorf("create work dir: %w", err))
	}
	docs, err := persistUploads(workDir, req.Uploads)
	if err != nil {
		return nil, r.fail(KindInput, err)
	}
	if err := inspectPDFs(docs, p.settings.MaxPages, r.log); err != nil {
		return nil, r.fail(KindInput, err)
	}

	r.transition(StateExtracting)
	ref, err := p.extractor.Extract(ctx, docs, extract.Options{
		Language: firstNonEmpty(req.Language, p.settings.Language),
		DPI:      firstPositive(req.DPI, p.settings.DPI),
		Workers:  p.settings.OCRWorkers,
	})
	if err != nil {
		return nil, r.fail(KindExtraction, err)
	}
	if err := extract.WriteArtifacts(workDir, ref); err != nil {
		return nil, r.fail(KindExtraction, err)
	}
	if strings.TrimSpace(ref.Text) == "" {
		return nil, r.fail(KindExtraction, ErrEmptyReference)
	}

	r.transition(StateGenerating)
	count := mockgen.ClampVariants(firstPositive(req.Variants, p.settings.Variants))
	variants, err := generator.Generate(ctx, ref.Text, firstNonEmpty(req.Difficulty, p.settings.Difficulty), count)
	if err != nil {
		return nil, r.fail(KindGeneration, err)
	}
	if len(variants) == 0 {
		return nil, r.fail(KindGeneration, ErrNoVariants)
	}

	r.transition(StateRendering)
	artifacts, err := p.renderVariants(ctx, workDir, sourceName(docs), variants, r.log)
	if err != nil {
		return nil, r.fail(KindRendering, err)
	}

	r.transition(StateComplete)
	r.log.Info().
		Int("variants", len(variants)).
		Int("artifacts", len(artifacts)).
		Dur("duration", time.Since(start)).
		Msg("Request complete")

	return &Result{
		RequestID: r.id,
		WorkDir:   workDir,
		TextPath:  ref.TextPath,
		HTMLPath:  ref.HTMLPath,
		Variants:  variants,
		Artifacts: artifacts,
	}, nil
}

// renderVariants renders mock_{n}.pdf and mock_{n}_answers.pdf for every
// variant. The first failure cancels the rest.
func (p *Pipeline) renderVariants(ctx context.Context, workDir, source string, variants []models.Variant, log zerolog.Logger) ([]models.RenderedDocument, error) {
	artifacts := make([]models.RenderedDocument, 2*len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.RenderWorkers)
	for i, v := range variants {
		n := i + 1
		title := fmt.Sprintf("Mock Exam Paper %d", n)
		jobs := []struct {
			slot int
			src  render.Source
			file string
			key  bool
		}{
			{2 * i, render.Source{Spec: v.Spec, Text: v.PaperText}, fmt.Sprintf("mock_%d.pdf", n), false},
			{2*i + 1, render.Source{Spec: v.Spec, Text: v.AnswerText}, fmt.Sprintf("mock_%d_answers.pdf", n), true},
		}
		for _, job := range jobs {
			g.Go(func() error {
				doc, err := p.renderer.RenderDocument(gctx, job.src, filepath.Join(workDir, job.file), render.Options{
					Title:      title,
					SourceName: source,
					AnswerKey:  job.key,
					Variant:    n,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", job.file, err)
				}
				vlog := logger.ForVariant(log, n, string(doc.Role))
				vlog.Info().
					Str("backend", doc.Backend).
					Str("path", doc.Path).
					Msg("Document rendered")
				artifacts[job.slot] = *doc
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// sourceName lists the uploads for the cover page.
func sourceName(docs []models.SourceDocument) string {
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return "Based on: " + strings.Join(names, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
