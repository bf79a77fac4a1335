// Package render lays mock papers and answer keys out as PDF documents.
//
// A Source is first turned into a backend-neutral Document: a structured
// spec is laid out from its sections, while plain text is classified line by
// line with the Rules table after wrapped math has been stitched together.
// The Renderer then tries its backends in order (headless Chrome with KaTeX,
// then a text-only fpdf writer) until one of them produces the file.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mockpaper/internal/logger"
	"mockpaper/pkg/models"
)

// Backend writes a Document to a PDF file.
type Backend interface {
	Name() string
	Write(ctx context.Context, doc *Document, path string) error
}

// Renderer renders documents with an ordered list of backends.
type Renderer struct {
	backends []Backend
	log      zerolog.Logger
}

// NewRenderer creates a renderer that tries backends in the given order.
func NewRenderer(backends ...Backend) (*Renderer, error) {
	if len(backends) == 0 {
		return nil, NewRenderError("NewRenderer", ErrNoBackends, "")
	}
	return &Renderer{
		backends: backends,
		log:      logger.WithComponent("render"),
	}, nil
}

// NewRendererFromNames builds backends from configuration names ("html",
// "text").
func NewRendererFromNames(names []string, chromePath string, timeout time.Duration) (*Renderer, error) {
	const op = "NewRendererFromNames"

	var backends []Backend
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case BackendHTML:
			backends = append(backends, NewHTMLBackend(chromePath, timeout))
		case BackendText:
			backends = append(backends, NewTextBackend())
		default:
			return nil, NewRenderError(op, ErrUnknownBackend, name)
		}
	}
	return NewRenderer(backends...)
}

// Backends returns the backend names in fallback order.
func (r *Renderer) Backends() []string {
	names := make([]string, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.Name()
	}
	return names
}

// Render writes src to outputPath and returns the path.
func (r *Renderer) Render(ctx context.Context, src Source, outputPath string, opts Options) (string, error) {
	doc, err := r.RenderDocument(ctx, src, outputPath, opts)
	if err != nil {
		return "", err
	}
	return doc.Path, nil
}

// RenderDocument writes src to outputPath and describes the result. Each
// backend failure is logged and the next backend is tried; a partial file
// left by a failed backend is removed.
func (r *Renderer) RenderDocument(ctx context.Context, src Source, outputPath string, opts Options) (*models.RenderedDocument, error) {
	const op = "Render"

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, NewRenderError(op, err, "create output directory")
	}

	doc := BuildDocument(src, opts)
	role := models.RoleQuestionPaper
	if opts.AnswerKey {
		role = models.RoleAnswerKey
	}

	var errs []error
	for _, backend := range r.backends {
		if err := ctx.Err(); err != nil {
			return nil, NewRenderError(op, err, outputPath)
		}

		err := backend.Write(ctx, doc, outputPath)
		if err == nil {
			r.log.Info().
				Str("backend", backend.Name()).
				Str("path", outputPath).
				Str("role", string(role)).
				Msg("Rendered document")
			return &models.RenderedDocument{
				Path:      outputPath,
				Role:      role,
				Variant:   opts.Variant,
				Backend:   backend.Name(),
				CreatedAt: time.Now(),
			}, nil
		}

		_ = os.Remove(outputPath)
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		r.log.Warn().
			Err(err).
			Str("backend", backend.Name()).
			Str("path", outputPath).
			Msg("Render backend failed, trying next")
	}

	return nil, NewRenderError(op, errors.Join(append([]error{ErrRenderFailed}, errs...)...), outputPath)
}
