package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"mockpaper/internal/logger"
	"mockpaper/pkg/models"
)

// tesseractCodes maps ISO 639-1 codes to Tesseract traineddata names.
var tesseractCodes = map[string]string{
	"en":     "eng",
	"fr":     "fra",
	"de":     "deu",
	"es":     "spa",
	"it":     "ita",
	"pt":     "por",
	"nl":     "nld",
	"ru":     "rus",
	"ar":     "ara",
	"hi":     "hin",
	"ta":     "tam",
	"ms":     "msa",
	"id":     "ind",
	"ja":     "jpn",
	"ko":     "kor",
	"zh":     "chi_sim",
	"ch_sim": "chi_sim",
	"ch_tra": "chi_tra",
}

// TesseractLanguage returns the traineddata name for an ISO code. Unknown
// codes are passed through so "eng" or "equ" work directly.
func TesseractLanguage(code string) string {
	if t, ok := tesseractCodes[code]; ok {
		return t
	}
	return code
}

// TesseractConfig configures a local Tesseract engine.
type TesseractConfig struct {
	ModelDir   string   // Directory holding <lang>.traineddata, read-only
	ScratchDir string   // Writable scratch directory
	Languages  []string // ISO 639-1 or Tesseract codes
}

// TesseractEngine recognizes text lines with a local Tesseract session.
// The underlying client is not goroutine-safe; calls are serialized.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
	langs  []string
	log    zerolog.Logger
}

// NewTesseractEngine validates the model directory and opens a session.
// It fails rather than fetching weights that are missing.
func NewTesseractEngine(cfg TesseractConfig) (*TesseractEngine, error) {
	const op = "NewTesseractEngine"

	if cfg.ModelDir == "" {
		return nil, NewOCRError(op, ErrStorageUnset, "")
	}
	if info, err := os.Stat(cfg.ModelDir); err != nil || !info.IsDir() {
		return nil, NewOCRError(op, ErrModelUnavailable, fmt.Sprintf("model directory %s not found", cfg.ModelDir))
	}
	if cfg.ScratchDir != "" {
		if absPath(cfg.ScratchDir) == absPath(cfg.ModelDir) {
			return nil, NewOCRError(op, ErrStorageConflict, cfg.ScratchDir)
		}
		if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
			return nil, WrapOCRError(op, err, "failed to create scratch directory")
		}
	}

	langs := make([]string, 0, len(cfg.Languages))
	for _, l := range cfg.Languages {
		code := TesseractLanguage(l)
		weights := filepath.Join(cfg.ModelDir, code+".traineddata")
		if _, err := os.Stat(weights); err != nil {
			return nil, NewOCRError(op, ErrModelUnavailable, fmt.Sprintf("%s (downloads are disabled)", weights))
		}
		langs = append(langs, code)
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}

	client := gosseract.NewClient()
	if err := client.SetTessdataPrefix(cfg.ModelDir); err != nil {
		client.Close()
		return nil, WrapOCRError(op, err, "failed to set tessdata prefix")
	}
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, WrapOCRError(op, err, "failed to set languages")
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, WrapOCRError(op, err, "failed to set page segmentation mode")
	}
	if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
		client.Close()
		return nil, WrapOCRError(op, err, "failed to set tesseract variable")
	}

	return &TesseractEngine{
		client: client,
		langs:  langs,
		log:    logger.WithComponent("ocr-tesseract"),
	}, nil
}

// Name implements Engine.
func (e *TesseractEngine) Name() string { return BackendTesseract }

// Recognize returns one token per detected text line.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) ([]models.RecognizedToken, error) {
	const op = "TesseractEngine.Recognize"

	if err := ctx.Err(); err != nil {
		return nil, WrapOCRError(op, err, "")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, WrapOCRError(op, err, "failed to encode page image")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("set image: %v", err))
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("recognize: %v", err))
	}

	tokens := make([]models.RecognizedToken, 0, len(boxes))
	for _, b := range boxes {
		tokens = append(tokens, models.RecognizedToken{
			Box: models.BoundingBox{
				Left:   float64(b.Box.Min.X),
				Top:    float64(b.Box.Min.Y),
				Right:  float64(b.Box.Max.X),
				Bottom: float64(b.Box.Max.Y),
			},
			Text:       b.Word,
			Confidence: b.Confidence / 100,
		})
	}
	return tokens, nil
}

// Close ends the Tesseract session.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
