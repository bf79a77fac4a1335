package mockgen

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"mockpaper/pkg/models"
)

func sampleSpec(answers ...models.AnswerItem) *models.MockSpec {
	return &models.MockSpec{
		Title: "Mock",
		Sections: []models.Section{
			{Title: "A", Questions: []models.Question{
				{ID: "q1", Type: models.QuestionFree, Text: "Define force."},
				{ID: "q2", Type: models.QuestionMCQ, Text: "Pick", Options: []string{"a. 1", "b. 2", "c. 3", "d. 4"}, Correct: "(B)"},
			}},
			{Title: "B", Questions: []models.Question{
				{ID: "q3", Type: models.QuestionMCQ, Text: "Pick again", Options: []string{"a. x", "b. y", "c. z", "d. w"}, Correct: float64(3)},
				{ID: "q4", Type: models.QuestionMCQ, Text: "No key", Options: []string{"a. x", "b. y", "c. z", "d. w"}, Correct: "maybe"},
			}},
		},
		AnswerKey: answers,
	}
}

func answerIDs(spec *models.MockSpec) []string {
	ids := make([]string, 0, len(spec.AnswerKey))
	for _, a := range spec.AnswerKey {
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	return ids
}

func questionIDs(spec *models.MockSpec) []string {
	ids := spec.QuestionIDs()
	sort.Strings(ids)
	return ids
}

func TestCompleteAnswerKeyCoverage(t *testing.T) {
	tests := []struct {
		name      string
		answers   []models.AnswerItem
		wantAdded int
	}{
		{"no answers", nil, 4},
		{"partial", []models.AnswerItem{{ID: "q2", Answer: "b"}, {ID: "q4", Answer: "d"}}, 2},
		{"full", []models.AnswerItem{{ID: "q1", Answer: "F=ma"}, {ID: "q2", Answer: "b"}, {ID: "q3", Answer: "d"}, {ID: "q4", Answer: "a"}}, 0},
		{"orphans and duplicates", []models.AnswerItem{{ID: "q1", Answer: "one"}, {ID: "q1", Answer: "again"}, {ID: "q99", Answer: "orphan"}}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := sampleSpec(tt.answers...)
			added := CompleteAnswerKey(spec)
			if added != tt.wantAdded {
				t.Errorf("added = %d, want %d", added, tt.wantAdded)
			}
			if got, want := fmt.Sprint(answerIDs(spec)), fmt.Sprint(questionIDs(spec)); got != want {
				t.Fatalf("answer ids %s != question ids %s", got, want)
			}
			for _, a := range spec.AnswerKey {
				if strings.TrimSpace(a.Answer) == "" {
					t.Errorf("answer for %s is empty", a.ID)
				}
			}
		})
	}
}

func TestCompleteAnswerKeySynthesizedAnswers(t *testing.T) {
	spec := sampleSpec()
	CompleteAnswerKey(spec)

	want := map[string]string{
		"q1": MissingAnswer, // free response: nothing to derive
		"q2": "b",
		"q3": "d",
		"q4": MissingAnswer,
	}
	for _, a := range spec.AnswerKey {
		if a.Answer != want[a.ID] {
			t.Errorf("answer %s = %q, want %q", a.ID, a.Answer, want[a.ID])
		}
	}
	if spec.AnswerKey[0].ID != "q1" || spec.AnswerKey[3].ID != "q4" {
		t.Errorf("synthesized entries should follow question order: %+v", spec.AnswerKey)
	}
}

func TestCompleteAnswerKeyKeepsExistingFirst(t *testing.T) {
	spec := sampleSpec(models.AnswerItem{ID: "q3", Answer: "c", Workings: "by inspection"})
	CompleteAnswerKey(spec)
	if spec.AnswerKey[0].ID != "q3" || spec.AnswerKey[0].Workings != "by inspection" {
		t.Fatalf("existing entry was not kept first: %+v", spec.AnswerKey[0])
	}
}

func TestNormalizeCorrectLabelTotal(t *testing.T) {
	valid := map[string]bool{"a": true, "b": true, "c": true, "d": true}

	var inputs []any
	for _, l := range "abcd" {
		for _, form := range []string{"%c", "%c.", "%c)", "(%c)", " %c ", "%c:"} {
			s := fmt.Sprintf(form, l)
			inputs = append(inputs, s, strings.ToUpper(s))
		}
	}
	for n := 0; n <= 4; n++ {
		inputs = append(inputs, n, float64(n), fmt.Sprint(n))
	}
	for n := 1; n <= 4; n++ {
		inputs = append(inputs, fmt.Sprintf("(%d)", n), fmt.Sprintf("%d.", n), fmt.Sprintf("%d)", n))
	}

	for _, in := range inputs {
		got, ok := NormalizeCorrectLabel(in)
		if !ok || !valid[got] {
			t.Errorf("NormalizeCorrectLabel(%#v) = %q, %v; want a label a-d", in, got, ok)
		}
	}

	for _, in := range []any{nil, "", "e", "ab", "banana", 5, -1, 2.5, float64(7), true, []string{"a"}, "10", "(0)", "0.", "(5)"} {
		got, ok := NormalizeCorrectLabel(in)
		if ok || got != "" {
			t.Errorf("NormalizeCorrectLabel(%#v) = %q, %v; want no label", in, got, ok)
		}
	}
}

func TestNormalizeCorrectLabelMapping(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"B", "b"},
		{"(c)", "c"},
		{"d.", "d"},
		{0, "a"},
		{3, "d"},
		{4, "d"},
		{float64(1), "b"},
		{"2", "c"},
		{"(1)", "a"},
		{"1)", "a"},
		{"2.", "b"},
		{"(3)", "c"},
		{"(4)", "d"},
		{"b. Second option", "b"},
	}
	for _, tt := range tests {
		if got, _ := NormalizeCorrectLabel(tt.in); got != tt.want {
			t.Errorf("NormalizeCorrectLabel(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPadVariantsRoundTrip(t *testing.T) {
	for k := MinVariants; k <= MaxVariants; k++ {
		for returned := 0; returned <= MaxVariants+1; returned++ {
			specs := make([]*models.MockSpec, returned)
			for i := range specs {
				specs[i] = sampleSpec()
			}
			padded := PadVariants(specs, k)
			if len(padded) != k {
				t.Fatalf("PadVariants(%d specs, %d) returned %d", returned, k, len(padded))
			}
			for i, s := range padded {
				if i >= returned {
					if len(s.Sections) != 1 || s.Sections[0].Title != "Section 1" || len(s.Sections[0].Questions) != 0 {
						t.Errorf("padding spec %d is not the placeholder: %+v", i, s)
					}
				}
				paper, answers := SpecToText(s)
				if paper == "" || answers == "" {
					t.Errorf("spec %d renders empty text", i)
				}
			}
		}
	}
}
