package mockgen

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"mockpaper/pkg/models"
)

// MissingAnswer marks an answer-key entry the model did not supply and that
// could not be derived from the question.
const MissingAnswer = "[missing]"

const optionLetters = "abcd"

var (
	letterLabel      = regexp.MustCompile(`^\(?([abcd])\)?[.:)]?$`)
	digitLabel       = regexp.MustCompile(`^([0-4])$`)
	markedDigitLabel = regexp.MustCompile(`^\(?([1-4])\)?[.:)]?$`)
)

// NormalizeCorrectLabel maps a model-supplied correct-option indicator to one
// of "a" to "d". It accepts letters in any case with optional parentheses or
// trailing punctuation. A bare number is an index, 0-3 (0-based) or 4
// (1-based d); a digit with parentheses or punctuation, such as "(1)" or "2.",
// is an option number counted from 1. It never panics; unrecognized input
// reports false.
func NormalizeCorrectLabel(correct any) (string, bool) {
	switch v := correct.(type) {
	case nil:
		return "", false
	case int:
		return indexLabel(v)
	case int64:
		return indexLabel(int(v))
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return "", false
		}
		return indexLabel(int(v))
	case string:
		return stringLabel(v)
	default:
		return "", false
	}
}

// indexLabel treats 0-3 as 0-based and 4 as the 1-based last option.
func indexLabel(n int) (string, bool) {
	switch {
	case n >= 0 && n <= 3:
		return optionLetters[n : n+1], true
	case n == 4:
		return "d", true
	default:
		return "", false
	}
}

func stringLabel(s string) (string, bool) {
	c := strings.ToLower(strings.TrimSpace(s))
	if m := letterLabel.FindStringSubmatch(c); m != nil {
		return m[1], true
	}
	if m := digitLabel.FindStringSubmatch(c); m != nil {
		n, _ := strconv.Atoi(m[1])
		return indexLabel(n)
	}
	if m := markedDigitLabel.FindStringSubmatch(c); m != nil {
		n, _ := strconv.Atoi(m[1])
		return optionLetters[n-1 : n], true
	}
	// "b. Second option" style answers name the option by its prefix.
	if len(c) > 2 && strings.ContainsRune(optionLetters, rune(c[0])) && (c[1] == '.' || c[1] == ')') {
		return c[:1], true
	}
	return "", false
}

// CompleteAnswerKey appends an answer-key entry for every question that has
// none, so question ids and answer ids match one to one. MCQ entries use the
// normalized correct label; everything else gets MissingAnswer. Entries for
// unknown ids and duplicate entries are removed. It returns the number of
// entries added.
func CompleteAnswerKey(spec *models.MockSpec) int {
	questions := make(map[string]bool)
	for _, id := range spec.QuestionIDs() {
		questions[id] = true
	}

	answered := make(map[string]bool, len(spec.AnswerKey))
	key := make([]models.AnswerItem, 0, len(questions))
	for _, a := range spec.AnswerKey {
		if !questions[a.ID] || answered[a.ID] {
			continue
		}
		answered[a.ID] = true
		key = append(key, a)
	}

	added := 0
	for _, section := range spec.Sections {
		for _, q := range section.Questions {
			if answered[q.ID] {
				continue
			}
			answer := MissingAnswer
			if len(q.Options) > 0 {
				if label, ok := NormalizeCorrectLabel(q.Correct); ok {
					answer = label
				}
			}
			key = append(key, models.AnswerItem{ID: q.ID, Answer: answer})
			answered[q.ID] = true
			added++
		}
	}

	spec.AnswerKey = key
	return added
}
