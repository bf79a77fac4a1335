package ocr

import (
	"sort"
	"strings"
	"unicode"

	"mockpaper/pkg/models"
)

var mathReplacer = strings.NewReplacer(
	"×", "x",
	"−", "-",
	"<=", "≤",
	">=", "≥",
	"√ ", "√",
	"∑ ", "∑",
)

// NormalizeMathText cleans up common recognition confusions in math and
// science text and collapses whitespace runs.
//
// The substitutions are heuristics and lossy: an "O" or "l" touching a digit
// becomes "0" or "1" even where the letter was intended, and "<=" / ">=" are
// always folded into the single comparison glyphs.
func NormalizeMathText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = fixDigitConfusions(s)
	s = mathReplacer.Replace(s)
	return strings.TrimSpace(s)
}

func fixDigitConfusions(s string) string {
	runes := []rune(s)
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = r
		if r != 'O' && r != 'l' {
			continue
		}
		prevDigit := i > 0 && unicode.IsDigit(runes[i-1])
		nextDigit := i+1 < len(runes) && unicode.IsDigit(runes[i+1])
		if !prevDigit && !nextDigit {
			continue
		}
		if r == 'O' {
			out[i] = '0'
		} else {
			out[i] = '1'
		}
	}
	return string(out)
}

// FilterByConfidence keeps tokens whose confidence is at least min.
func FilterByConfidence(tokens []models.RecognizedToken, min float64) []models.RecognizedToken {
	kept := make([]models.RecognizedToken, 0, len(tokens))
	for _, t := range tokens {
		if t.Confidence >= min {
			kept = append(kept, t)
		}
	}
	return kept
}

// SortReadingOrder orders tokens top-to-bottom, then left-to-right, by the
// origin of their bounding box. Ties keep engine order.
func SortReadingOrder(tokens []models.RecognizedToken) {
	sort.SliceStable(tokens, func(i, j int) bool {
		a, b := tokens[i].Box, tokens[j].Box
		if a.Top != b.Top {
			return a.Top < b.Top
		}
		return a.Left < b.Left
	})
}
