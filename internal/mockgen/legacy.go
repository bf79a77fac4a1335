package mockgen

import (
	"strings"

	"mockpaper/pkg/models"
)

// Delimiters of the legacy plain-text format, matched case-insensitively at line start.
const (
	legacyPaperMarker  = "### mock paper"
	legacyAnswerMarker = "### answer key"
)

// ParseLegacy splits a delimited plain-text reply into exactly count
// (paper, answers) variants. Missing variants are empty pairs; extra ones are dropped.
func ParseLegacy(raw string, count int) []models.Variant {
	count = ClampVariants(count)

	var (
		out            []models.Variant
		paper, answers []string
		mode           string
	)
	flush := func() {
		if len(paper) == 0 && len(answers) == 0 {
			return
		}
		out = append(out, models.Variant{
			PaperText:  strings.TrimSpace(strings.Join(paper, "\n")),
			AnswerText: strings.TrimSpace(strings.Join(answers, "\n")),
		})
		paper, answers = nil, nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		tag := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(tag, legacyPaperMarker):
			flush()
			mode = "paper"
		case strings.HasPrefix(tag, legacyAnswerMarker):
			mode = "answers"
		case mode == "paper":
			paper = append(paper, NormalizeText(line))
		case mode == "answers":
			answers = append(answers, NormalizeText(line))
		}
	}
	flush()

	for len(out) < count {
		out = append(out, models.Variant{})
	}
	return out[:count]
}

// countLegacyPapers reports how many paper delimiters raw contains.
func countLegacyPapers(raw string) int {
	n := 0
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), legacyPaperMarker) {
			n++
		}
	}
	return n
}
