package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"mockpaper/pkg/models"
)

// DocumentAIEngine implements Engine with a Google Document AI OCR processor.
type DocumentAIEngine struct {
	client *documentai.DocumentProcessorClient
	cfg    GoogleConfig
}

// NewDocumentAIEngine creates a Document AI engine. ProjectID and ProcessorID are required.
func NewDocumentAIEngine(ctx context.Context, cfg GoogleConfig) (*DocumentAIEngine, error) {
	const op = "NewDocumentAIEngine"

	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, NewOCRError(op, ErrMissingCredentials, "GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID are required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}

	var clientOptions []option.ClientOption
	if cfg.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if cfg.CredentialsJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else if cfg.CredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}

	return &DocumentAIEngine{client: client, cfg: cfg}, nil
}

// Name implements Engine.
func (d *DocumentAIEngine) Name() string { return BackendDocumentAI }

func (d *DocumentAIEngine) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", d.cfg.ProjectID, d.cfg.Location, d.cfg.ProcessorID)
}

// Recognize returns one token per detected paragraph.
func (d *DocumentAIEngine) Recognize(ctx context.Context, img image.Image) ([]models.RecognizedToken, error) {
	const op = "DocumentAIEngine.Recognize"

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, WrapOCRError(op, err, "failed to encode page image")
	}

	req := &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  buf.Bytes(),
				MimeType: "image/png",
			},
		},
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, d.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapOCRError(op, ErrOCRFailed, "no document in response")
	}

	b := img.Bounds()
	return documentTokens(resp.Document, float64(b.Dx()), float64(b.Dy())), nil
}

// handleProcessingError maps Document AI failures onto OCR errors.
func (d *DocumentAIEngine) handleProcessingError(op string, err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"), strings.Contains(errStr, "UNAUTHENTICATED"):
		return WrapOCRError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("processor not found: %s", d.cfg.ProcessorID))
	default:
		return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI call failed: %v", err))
	}
}

func documentTokens(doc *documentaipb.Document, width, height float64) []models.RecognizedToken {
	var tokens []models.RecognizedToken
	for _, page := range doc.Pages {
		w, h := width, height
		if page.Dimension != nil && page.Dimension.Width > 0 {
			w, h = float64(page.Dimension.Width), float64(page.Dimension.Height)
		}
		for _, paragraph := range page.Paragraphs {
			layout := paragraph.Layout
			if layout == nil {
				continue
			}
			tokens = append(tokens, models.RecognizedToken{
				Box:        layoutBox(layout.BoundingPoly, w, h),
				Text:       layoutText(doc.Text, layout.TextAnchor),
				Confidence: float64(layout.Confidence),
			})
		}
	}
	return tokens
}

func layoutText(text string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil {
		return ""
	}
	var sb strings.Builder
	for _, seg := range anchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		sb.WriteString(text[start:end])
	}
	return sb.String()
}

func layoutBox(poly *documentaipb.BoundingPoly, width, height float64) models.BoundingBox {
	if poly == nil {
		return models.BoundingBox{}
	}
	type pt struct{ x, y float64 }
	var pts []pt
	if len(poly.Vertices) > 0 {
		for _, v := range poly.Vertices {
			pts = append(pts, pt{float64(v.X), float64(v.Y)})
		}
	} else {
		for _, v := range poly.NormalizedVertices {
			pts = append(pts, pt{float64(v.X) * width, float64(v.Y) * height})
		}
	}
	if len(pts) == 0 {
		return models.BoundingBox{}
	}
	box := models.BoundingBox{
		Left: math.Inf(1), Top: math.Inf(1),
		Right: math.Inf(-1), Bottom: math.Inf(-1),
	}
	for _, p := range pts {
		box.Left = math.Min(box.Left, p.x)
		box.Top = math.Min(box.Top, p.y)
		box.Right = math.Max(box.Right, p.x)
		box.Bottom = math.Max(box.Bottom, p.y)
	}
	return box
}

// Close closes the underlying Document AI client.
func (d *DocumentAIEngine) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
