// Package mockgen generates mock exam variants from reference text with a
// generative text service.
//
// The structured path asks for a strict JSON payload, parses it defensively
// into a ParseOutcome and repairs what it can. A schema mismatch is retried
// once with a corrective note. When the structured path still fails, the
// legacy path asks for "### MOCK PAPER n" / "### ANSWER KEY n" delimited text.
// Both paths return exactly the requested number of variants, each with a
// question-paper text and an answer-key text.
package mockgen

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"mockpaper/internal/logger"
	"mockpaper/pkg/models"
)

// Variant count bounds.
const (
	MinVariants = 1
	MaxVariants = 3
)

// Config configures a Generator.
type Config struct {
	Temperature float32 // Sampling temperature for both paths
	MaxTokens   int     // Reply budget; 0 lets the provider decide
}

// DefaultConfig returns the generation settings used when none are given.
func DefaultConfig() Config {
	return Config{Temperature: 0.7, MaxTokens: 4096}
}

// Generator produces mock variants through a TextService.
type Generator struct {
	service TextService
	config  Config
	log     zerolog.Logger
}

// NewGenerator creates a generator. A nil service makes every Generate call
// fail with ErrMissingCredential.
func NewGenerator(service TextService, config Config) *Generator {
	return &Generator{
		service: service,
		config:  config,
		log:     logger.WithComponent("mockgen"),
	}
}

// Close releases the underlying service when it holds a connection.
func (g *Generator) Close() error {
	if c, ok := g.service.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ClampVariants limits n to [MinVariants, MaxVariants].
func ClampVariants(n int) int {
	switch {
	case n < MinVariants:
		return MinVariants
	case n > MaxVariants:
		return MaxVariants
	default:
		return n
	}
}

// PlaceholderSpec returns the well-formed empty spec used to pad short replies.
func PlaceholderSpec() *models.MockSpec {
	return &models.MockSpec{
		Title:    DefaultTitle,
		Sections: []models.Section{{Title: "Section 1"}},
	}
}

// PadVariants returns exactly count specs: specs truncated, or padded with placeholders.
func PadVariants(specs []*models.MockSpec, count int) []*models.MockSpec {
	out := make([]*models.MockSpec, 0, count)
	for _, s := range specs {
		if len(out) == count {
			break
		}
		if s != nil {
			out = append(out, s)
		}
	}
	for len(out) < count {
		out = append(out, PlaceholderSpec())
	}
	return out
}

// Generate returns exactly ClampVariants(count) variants derived from reference.
func (g *Generator) Generate(ctx context.Context, reference, difficulty string, count int) ([]models.Variant, error) {
	const op = "Generate"

	count = ClampVariants(count)
	if g.service == nil {
		return nil, NewGenerationError(op, ErrMissingCredential, "no text service configured")
	}

	g.log.Info().
		Str("service", g.service.Name()).
		Str("difficulty", difficulty).
		Int("variants", count).
		Int("reference_chars", len(reference)).
		Msg("Generating mock papers")

	variants, structuredErr := g.generateStructured(ctx, reference, difficulty, count)
	if structuredErr == nil {
		return variants, nil
	}
	if ctx.Err() != nil {
		return nil, NewGenerationError(op, ctx.Err(), "cancelled during structured generation")
	}

	g.log.Warn().
		Err(structuredErr).
		Msg("Structured generation failed, falling back to legacy format")

	variants, legacyErr := g.generateLegacy(ctx, reference, difficulty, count)
	if legacyErr == nil {
		return variants, nil
	}

	return nil, NewGenerationError(op, errors.Join(ErrGenerationFailed, structuredErr, legacyErr), g.service.Name())
}

func (g *Generator) generateStructured(ctx context.Context, reference, difficulty string, count int) ([]models.Variant, error) {
	const op = "structured"

	note := ""
	for attempt := 1; attempt <= 2; attempt++ {
		raw, err := g.service.Complete(ctx, CompletionRequest{
			System:      StructuredSystemPrompt,
			Prompt:      BuildStructuredPrompt(reference, difficulty, count, note),
			JSON:        true,
			Temperature: g.config.Temperature,
			MaxTokens:   g.config.MaxTokens,
		})
		if err != nil {
			return nil, WrapGenerationError(op, err, "request failed")
		}

		parsed := ParseResponse(raw)
		g.log.Debug().
			Int("attempt", attempt).
			Str("outcome", describeOutcome(parsed)).
			Msg("Parsed structured response")

		switch outcome := parsed.(type) {
		case ValidatedSpecs:
			if len(outcome.Specs) < count {
				g.log.Warn().
					Int("returned", len(outcome.Specs)).
					Int("requested", count).
					Msg("Fewer mocks than requested, padding with placeholders")
			}
			return g.specVariants(PadVariants(outcome.Specs, count)), nil
		case RecoverableParseFailure:
			if attempt == 2 {
				return nil, NewGenerationError(op, outcome.Err, "schema mismatch after corrective retry")
			}
			g.log.Warn().
				Err(outcome.Err).
				Int("attempt", attempt).
				Msg("Response did not match schema, retrying with correction")
			note = outcome.Note
		case FatalParseFailure:
			return nil, NewGenerationError(op, outcome.Err, "unparseable response")
		}
	}
	return nil, NewGenerationError(op, ErrSchemaMismatch, "")
}

func (g *Generator) specVariants(specs []*models.MockSpec) []models.Variant {
	variants := make([]models.Variant, 0, len(specs))
	for i, spec := range specs {
		if added := CompleteAnswerKey(spec); added > 0 {
			g.log.Debug().
				Int("variant", i+1).
				Int("answers_added", added).
				Msg("Completed answer key")
		}
		NormalizeSpec(spec)
		paper, answers := SpecToText(spec)
		variants = append(variants, models.Variant{Spec: spec, PaperText: paper, AnswerText: answers})
	}
	return variants
}

func (g *Generator) generateLegacy(ctx context.Context, reference, difficulty string, count int) ([]models.Variant, error) {
	const op = "legacy"

	raw, err := g.service.Complete(ctx, CompletionRequest{
		System:      LegacySystemPrompt,
		Prompt:      BuildLegacyPrompt(reference, difficulty, count),
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		return nil, WrapGenerationError(op, err, "request failed")
	}

	found := countLegacyPapers(raw)
	if found == 0 {
		return nil, NewGenerationError(op, ErrNoLegacyPapers, "")
	}
	if found != count {
		g.log.Warn().
			Int("returned", found).
			Int("requested", count).
			Msg("Legacy reply has a different number of papers than requested")
	}
	return ParseLegacy(raw, count), nil
}

// describeOutcome summarizes o for logs.
func describeOutcome(o ParseOutcome) string {
	switch v := o.(type) {
	case ValidatedSpecs:
		return fmt.Sprintf("validated %d specs", len(v.Specs))
	case RecoverableParseFailure:
		return "recoverable: " + v.Err.Error()
	case FatalParseFailure:
		return "fatal: " + v.Err.Error()
	default:
		return "unknown"
	}
}
