package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"os"
	"time"

	"mockpaper/internal/ocr"
	"mockpaper/pkg/models"
)

// Example demonstrates recognizing one scanned page with the local Tesseract backend.
func Example() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := ocr.DefaultConfig()
	cfg.ModelDir = "/opt/tessdata" // must contain eng.traineddata

	adapter := ocr.NewAdapter(cfg)
	defer adapter.Close()

	f, err := os.Open("scanned_page.png")
	if err != nil {
		log.Fatalf("Failed to open image: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		log.Fatalf("Failed to decode image: %v", err)
	}

	tokens, err := adapter.Recognize(ctx, img, "en")
	if err != nil {
		if errors.Is(err, ocr.ErrModelUnavailable) {
			log.Fatalf("Install eng.traineddata into %s", cfg.ModelDir)
		}
		log.Fatalf("OCR failed: %v", err)
	}

	fmt.Println(ocr.JoinTokens(tokens))
}

// ExampleNormalizeMathText shows the lossy cleanup applied to every recognized token.
func ExampleNormalizeMathText() {
	fmt.Println(ocr.NormalizeMathText("If  x >= 1O   then  y × 2 − 1"))
	// Output: If x ≥ 10 then y x 2 - 1
}

// ExampleFilterByConfidence drops low-confidence noise before the page text is assembled.
func ExampleFilterByConfidence() {
	tokens := []models.RecognizedToken{
		{Text: "Q1. Define entropy.", Confidence: 0.92},
		{Text: "~~", Confidence: 0.12},
	}
	for _, t := range ocr.FilterByConfidence(tokens, ocr.DefaultMinConfidence) {
		fmt.Println(t.Text)
	}
	// Output: Q1. Define entropy.
}
