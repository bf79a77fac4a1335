package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"mockpaper/pkg/models"
)

// VisionEngine implements Engine using Google Cloud Vision document text detection.
type VisionEngine struct {
	client *vision.ImageAnnotatorClient
	langs  []string
}

// NewVisionEngine creates a Vision engine from explicit Google credentials,
// falling back to application default credentials.
func NewVisionEngine(ctx context.Context, cfg GoogleConfig, languages []string) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	var client *vision.ImageAnnotatorClient
	var err error

	if cfg.CredentialsJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if cfg.CredentialsFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return NewVisionEngineWithClient(client, languages), nil
}

// NewVisionEngineWithClient creates an engine with an explicit client (for testing).
func NewVisionEngineWithClient(client *vision.ImageAnnotatorClient, languages []string) *VisionEngine {
	return &VisionEngine{
		client: client,
		langs:  languages,
	}
}

// Name implements Engine.
func (v *VisionEngine) Name() string { return BackendVision }

// Recognize returns one token per detected paragraph.
func (v *VisionEngine) Recognize(ctx context.Context, img image.Image) ([]models.RecognizedToken, error) {
	const op = "VisionEngine.Recognize"

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, WrapOCRError(op, err, "failed to encode page image")
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: buf.Bytes()},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: v.langs},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imgResp.Error.Message))
	}

	return visionTokens(imgResp.FullTextAnnotation), nil
}

func visionTokens(annotation *visionpb.TextAnnotation) []models.RecognizedToken {
	if annotation == nil {
		return nil
	}
	var tokens []models.RecognizedToken
	for _, page := range annotation.Pages {
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				words := make([]string, 0, len(paragraph.Words))
				for _, word := range paragraph.Words {
					var sb strings.Builder
					for _, symbol := range word.Symbols {
						sb.WriteString(symbol.Text)
					}
					words = append(words, sb.String())
				}
				tokens = append(tokens, models.RecognizedToken{
					Box:        polyBox(paragraph.BoundingBox),
					Text:       strings.Join(words, " "),
					Confidence: float64(paragraph.Confidence),
				})
			}
		}
	}
	return tokens
}

func polyBox(poly *visionpb.BoundingPoly) models.BoundingBox {
	if poly == nil || len(poly.Vertices) == 0 {
		return models.BoundingBox{}
	}
	box := models.BoundingBox{
		Left: math.Inf(1), Top: math.Inf(1),
		Right: math.Inf(-1), Bottom: math.Inf(-1),
	}
	for _, v := range poly.Vertices {
		x, y := float64(v.X), float64(v.Y)
		box.Left = math.Min(box.Left, x)
		box.Top = math.Min(box.Top, y)
		box.Right = math.Max(box.Right, x)
		box.Bottom = math.Max(box.Bottom, y)
	}
	return box
}

// Close closes the underlying Vision client.
func (v *VisionEngine) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
