package mockgen

import (
	"fmt"
	"regexp"
	"strings"

	"mockpaper/pkg/models"
)

// answerLeak matches an answer the model appended to a question body.
var answerLeak = regexp.MustCompile(`(?i)\s*(answer\s*:.*|correct\s*:.*)$`)

// StripAnswerLeak removes a trailing "Answer: ..." or "Correct: ..." clause.
func StripAnswerLeak(text string) string {
	return strings.TrimSpace(answerLeak.ReplaceAllString(text, ""))
}

// SectionHeading returns the display heading for the n-th (1-based) section.
func SectionHeading(n int, title string) string {
	title = strings.TrimSpace(title)
	lower := strings.ToLower(title)
	if strings.HasPrefix(lower, "section ") || strings.HasPrefix(lower, "part ") {
		return title
	}
	if title == "" {
		return fmt.Sprintf("Section %d", n)
	}
	return fmt.Sprintf("Section %d: %s", n, title)
}

// QuestionLine returns the heading line for q, with its marks when known.
func QuestionLine(q models.Question) string {
	line := fmt.Sprintf("%s. %s", q.ID, StripAnswerLeak(q.Text))
	if q.Marks > 0 {
		line += fmt.Sprintf(" (%d marks)", q.Marks)
	}
	return line
}

// SpecToText renders spec as line-oriented question-paper and answer-key
// text, the same shape the legacy path produces.
func SpecToText(spec *models.MockSpec) (paper, answers string) {
	var p []string
	if spec.Title != "" {
		p = append(p, spec.Title, "")
	}
	if spec.Instructions != "" {
		p = append(p, spec.Instructions, "")
	}
	for i, section := range spec.Sections {
		p = append(p, SectionHeading(i+1, section.Title))
		for _, q := range section.Questions {
			p = append(p, QuestionLine(q))
			if q.IsMCQ() {
				opts := q.Options
				if len(opts) > 4 {
					opts = opts[:4]
				}
				p = append(p, opts...)
			}
			p = append(p, "")
		}
		p = append(p, "")
	}

	a := []string{"Answer Key"}
	for _, item := range spec.AnswerKey {
		a = append(a, fmt.Sprintf("%s: %s", item.ID, item.Answer))
		if item.Workings != "" {
			a = append(a, item.Workings)
		}
		a = append(a, "")
	}

	return strings.TrimSpace(strings.Join(p, "\n")), strings.TrimSpace(strings.Join(a, "\n"))
}
