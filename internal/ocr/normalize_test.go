package ocr

import (
	"testing"

	"mockpaper/pkg/models"
)

func TestNormalizeMathText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Q1.   What  is\t2+2? ", "Q1. What is 2+2?"},
		{"x <= 1O", "x ≤ 10"},
		{"y >= l2", "y ≥ 12"},
		{"3 × 4 − 1", "3 x 4 - 1"},
		{"√ 2 and ∑ x", "√2 and ∑x"},
		{"Oxygen and lead", "Oxygen and lead"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeMathText(tt.in); got != tt.want {
			t.Errorf("NormalizeMathText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func tokensWithConfidence(confs ...float64) []models.RecognizedToken {
	out := make([]models.RecognizedToken, len(confs))
	for i, c := range confs {
		out[i] = models.RecognizedToken{Text: string(rune('a' + i)), Confidence: c}
	}
	return out
}

func TestFilterByConfidenceDefault(t *testing.T) {
	kept := FilterByConfidence(tokensWithConfidence(0.1, 0.3, 0.29, 0.95), DefaultMinConfidence)
	if len(kept) != 2 || kept[0].Text != "b" || kept[1].Text != "d" {
		t.Fatalf("unexpected tokens kept: %+v", kept)
	}
}

func TestFilterByConfidenceMonotonic(t *testing.T) {
	tokens := tokensWithConfidence(0, 0.05, 0.2, 0.3, 0.31, 0.5, 0.75, 0.99, 1)
	thresholds := []float64{0, 0.1, 0.25, 0.3, 0.5, 0.8, 1}

	keptAt := func(th float64) map[string]bool {
		set := map[string]bool{}
		for _, tok := range FilterByConfidence(tokens, th) {
			set[tok.Text] = true
		}
		return set
	}

	for i := 1; i < len(thresholds); i++ {
		lower, higher := keptAt(thresholds[i-1]), keptAt(thresholds[i])
		for text := range higher {
			if !lower[text] {
				t.Fatalf("token %q kept at %g but dropped at lower %g", text, thresholds[i], thresholds[i-1])
			}
		}
	}
}

func TestSortReadingOrder(t *testing.T) {
	tokens := []models.RecognizedToken{
		{Text: "c", Box: models.BoundingBox{Left: 10, Top: 50}},
		{Text: "b", Box: models.BoundingBox{Left: 200, Top: 10}},
		{Text: "a", Box: models.BoundingBox{Left: 10, Top: 10}},
		{Text: "d", Box: models.BoundingBox{Left: 5, Top: 90}},
	}
	SortReadingOrder(tokens)
	got := JoinTokens(tokens)
	if got != "a\nb\nc\nd" {
		t.Fatalf("reading order = %q", got)
	}
}

func TestParseLanguages(t *testing.T) {
	if got := ParseLanguages(""); len(got) != 1 || got[0] != "en" {
		t.Fatalf("ParseLanguages(\"\") = %v", got)
	}
	got := ParseLanguages("EN+fr, de")
	if len(got) != 3 || got[0] != "en" || got[1] != "fr" || got[2] != "de" {
		t.Fatalf("ParseLanguages = %v", got)
	}
	if TesseractLanguage("en") != "eng" || TesseractLanguage("equ") != "equ" {
		t.Fatalf("TesseractLanguage mapping broken")
	}
}
