package mockgen

import (
	"errors"
	"testing"

	"mockpaper/pkg/models"
)

const validReply = "```json\n" + `{
  "mocks": [
    {
      "title": "Physics Mock",
      "sections": [
        {
          "title": "Mechanics",
          "questions": [
            {"id": "q1", "type": "free", "marks": 2, "text": "What is 3+3?"},
            {"id": "q2", "type": "mcq", "marks": "1", "text": "Which is prime?",
             "options": ["a. 4", "b. 6", "c. 7", "d. 9"], "correct": "C"}
          ]
        }
      ],
      "answer_key": [{"id": "q1", "answer": "6"}]
    }
  ]
}` + "\n```"

func TestParseResponseOutcomes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string // "valid", "recoverable" or "fatal"
	}{
		{"fenced", validReply, "valid"},
		{"prose around object", "Here it is: " + `{"mocks":[{"sections":[{"title":"A","questions":[{"id":"q1","text":"Define work."}]}]}]}` + " Hope this helps.", "valid"},
		{"trailing commas", `{"mocks":[{"sections":[{"title":"A","questions":[{"id":"q1","text":"Define work.",},],},],},],}`, "valid"},
		{"bare spec without wrapper", `{"title":"T","sections":[{"title":"A","questions":[{"id":"q1","text":"Define work."}]}]}`, "valid"},
		{"no json", "I cannot help with that.", "fatal"},
		{"unbalanced", `{"mocks": [`, "fatal"},
		{"broken json", `{"mocks": [} ]}`, "fatal"},
		{"wrong shape", `{"foo": 1}`, "recoverable"},
		{"sections wrong type", `{"mocks":[{"sections":"none"}]}`, "recoverable"},
		{"no questions", `{"mocks":[{"sections":[{"title":"A","questions":[]}]}]}`, "recoverable"},
		{"object as question text", `{"mocks":[{"sections":[{"title":"A","questions":[{"id":"q1","text":{"x":1}}]}]}]}`, "recoverable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			switch o := ParseResponse(tt.raw).(type) {
			case ValidatedSpecs:
				got = "valid"
				if len(o.Specs) == 0 {
					t.Fatalf("validated outcome without specs")
				}
			case RecoverableParseFailure:
				got = "recoverable"
				if o.Note == "" {
					t.Errorf("recoverable failure without corrective note")
				}
				if !errors.Is(o.Err, ErrSchemaMismatch) {
					t.Errorf("err = %v, want ErrSchemaMismatch", o.Err)
				}
			case FatalParseFailure:
				got = "fatal"
			}
			if got != tt.want {
				t.Fatalf("outcome = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseResponseRepairs(t *testing.T) {
	raw := `{"mocks":[{"sections":[{"title":"","questions":[
		{"id":1,"type":"Multiple-Choice","marks":"5 marks","text":"Pick one","options":[" a. x ",""," b. y ","c. z","d. w"],"correct":2},
		{"id":"1","type":"mcq","text":"No options here"},
		{"id":"q9","type":"free","text":"  "},
		{"type":"free","text":"Has options","options":["a. 1","b. 2"]}
	]}],"answer_key":[{"id":"1","answer":"c"},{"id":"1","answer":"dup"},{"id":"zzz","answer":"orphan"}]}]}`

	outcome, ok := ParseResponse(raw).(ValidatedSpecs)
	if !ok {
		t.Fatalf("expected ValidatedSpecs, got %#v", ParseResponse(raw))
	}
	spec := outcome.Specs[0]

	if spec.Title != DefaultTitle {
		t.Errorf("title = %q, want %q", spec.Title, DefaultTitle)
	}
	if spec.Sections[0].Title != "Section 1" {
		t.Errorf("section title = %q", spec.Sections[0].Title)
	}

	qs := spec.Sections[0].Questions
	if len(qs) != 3 {
		t.Fatalf("got %d questions, want 3 (blank text dropped)", len(qs))
	}

	first := qs[0]
	if first.ID != "1" || first.Type != models.QuestionMCQ || first.Marks != 5 {
		t.Errorf("first question = %+v", first)
	}
	wantOpts := []string{"a. x", "b. y", "c. z", "d. w"}
	if len(first.Options) != len(wantOpts) {
		t.Fatalf("options = %q", first.Options)
	}
	for i := range wantOpts {
		if first.Options[i] != wantOpts[i] {
			t.Errorf("option %d = %q, want %q", i, first.Options[i], wantOpts[i])
		}
	}

	if qs[1].ID != "q2" || qs[1].Type != models.QuestionFree {
		t.Errorf("duplicate id / optionless MCQ not repaired: %+v", qs[1])
	}
	if qs[2].ID != "q3" || qs[2].Type != models.QuestionMCQ {
		t.Errorf("missing id / free with options not repaired: %+v", qs[2])
	}

	if len(spec.AnswerKey) != 1 || spec.AnswerKey[0].ID != "1" || spec.AnswerKey[0].Answer != "c" {
		t.Errorf("answer key = %+v, want only the first entry for id 1", spec.AnswerKey)
	}
}

func TestFirstBalancedObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`prefix {"a": 1} suffix {"b": 2}`, `{"a": 1}`, true},
		{`{"a": "brace } in string", "b": {"c": "\"}"}}`, `{"a": "brace } in string", "b": {"c": "\"}"}}`, true},
		{`{ not closed {"x": 1}`, `{"x": 1}`, true},
		{`no object`, "", false},
	}
	for _, tt := range tests {
		got, ok := firstBalancedObject(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("firstBalancedObject(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRemoveTrailingCommas(t *testing.T) {
	in := `{"a": "x,]", "b": [1, 2, ],
}`
	want := `{"a": "x,]", "b": [1, 2 ]
}`
	if got := removeTrailingCommas(in); got != want {
		t.Fatalf("removeTrailingCommas = %q, want %q", got, want)
	}
}

func TestStripFences(t *testing.T) {
	if got := stripFences("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Errorf("stripFences = %q", got)
	}
	if got := stripFences(`  {"a":1} `); got != `{"a":1}` {
		t.Errorf("stripFences without fence = %q", got)
	}
}
