package mockgen

import "testing"

const legacyReply = `Sure, here are your papers.
### MOCK PAPER 1
Section A
Q1. What is 5+5? (2 marks)
### ANSWER KEY 1
Q1: 10
### Mock Paper 2
Section A
Q1. What is 6 × 6? (2 marks)
### answer key 2
Q1: 36
`

func TestParseLegacy(t *testing.T) {
	variants := ParseLegacy(legacyReply, 2)
	if len(variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(variants))
	}
	if variants[0].PaperText != "Section A\nQ1. What is 5+5? (2 marks)" {
		t.Errorf("paper 1 = %q", variants[0].PaperText)
	}
	if variants[0].AnswerText != "Q1: 10" {
		t.Errorf("answers 1 = %q", variants[0].AnswerText)
	}
	if variants[1].PaperText != "Section A\nQ1. What is 6 * 6? (2 marks)" {
		t.Errorf("paper 2 = %q", variants[1].PaperText)
	}
	if variants[1].AnswerText != "Q1: 36" {
		t.Errorf("answers 2 = %q", variants[1].AnswerText)
	}
	for _, v := range variants {
		if v.Spec != nil {
			t.Errorf("legacy variants carry no structured spec")
		}
	}
}

func TestParseLegacyPadsAndTruncates(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{1, 1},
		{2, 2},
		{3, 3},
		{0, 1},
		{9, 3},
	}
	for _, tt := range tests {
		variants := ParseLegacy(legacyReply, tt.count)
		if len(variants) != tt.want {
			t.Errorf("ParseLegacy(count=%d) returned %d, want %d", tt.count, len(variants), tt.want)
		}
	}

	padded := ParseLegacy(legacyReply, 3)
	if padded[2].PaperText != "" || padded[2].AnswerText != "" {
		t.Errorf("padding variant should be empty: %+v", padded[2])
	}
}

func TestParseLegacyWithoutDelimiters(t *testing.T) {
	variants := ParseLegacy("Q1. What is 1+1?", 2)
	if len(variants) != 2 || variants[0].PaperText != "" {
		t.Fatalf("text outside delimiters must be ignored: %+v", variants)
	}
	if countLegacyPapers(legacyReply) != 2 {
		t.Errorf("countLegacyPapers = %d, want 2", countLegacyPapers(legacyReply))
	}
}
