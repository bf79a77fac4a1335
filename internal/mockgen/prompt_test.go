package mockgen

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDifficultyGuidance(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "Keep difficulty the SAME as the reference."},
		{"Same", "Keep difficulty the SAME as the reference."},
		{"similar", "Keep difficulty the SAME as the reference."},
		{"easy", "Make the paper EASIER."},
		{" EASIER ", "Make the paper EASIER."},
		{"hard", "Make the paper HARDER."},
		{"more calculus, fewer proofs", "Adjust difficulty: more calculus, fewer proofs."},
	}
	for _, tt := range tests {
		if got := DifficultyGuidance(tt.in); got != tt.want {
			t.Errorf("DifficultyGuidance(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExcerptCountsRunes(t *testing.T) {
	long := strings.Repeat("π", MaxExcerptRunes+50)
	got := Excerpt(long)
	if n := utf8.RuneCountInString(got); n != MaxExcerptRunes {
		t.Fatalf("excerpt has %d runes, want %d", n, MaxExcerptRunes)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("excerpt split a rune")
	}
	if Excerpt("short") != "short" {
		t.Errorf("short text must pass through")
	}
}

func TestBuildPrompts(t *testing.T) {
	ref := "Q1. What is 2+2? (2 marks)"

	structured := BuildStructuredPrompt(ref, "harder", 2, "")
	for _, want := range []string{`"mocks"`, "Produce exactly 2 mocks.", "Make the paper HARDER.", "pipe-delimited", ref} {
		if !strings.Contains(structured, want) {
			t.Errorf("structured prompt missing %q", want)
		}
	}
	if strings.Contains(structured, "Correction:") {
		t.Errorf("first attempt must not carry a correction")
	}
	if retry := BuildStructuredPrompt(ref, "same", 1, "fix the schema"); !strings.Contains(retry, "Correction:\nfix the schema") {
		t.Errorf("retry prompt missing the corrective note")
	}

	legacy := BuildLegacyPrompt(ref, "same", 3)
	for _, want := range []string{"### MOCK PAPER X", "### ANSWER KEY X", "For each of 3 mock exams:", ref} {
		if !strings.Contains(legacy, want) {
			t.Errorf("legacy prompt missing %q", want)
		}
	}
}

func TestResolveCredential(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		fallback string
		want     string
		wantErr  bool
	}{
		{"explicit wins", "sk-live-123", "env-key", "sk-live-123", false},
		{"swagger placeholder", "string", "env-key", "env-key", false},
		{"placeholder any case", "  String ", "env-key", "env-key", false},
		{"example key", "sk-...", "env-key", "env-key", false},
		{"trimmed fallback", "", "  env-key  ", "env-key", false},
		{"nothing usable", "changeme", "your-api-key", "", true},
		{"both empty", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCredential(tt.explicit, tt.fallback)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingCredential) {
					t.Fatalf("err = %v, want ErrMissingCredential", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ResolveCredential = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestProviderForModel(t *testing.T) {
	tests := map[string]string{
		"gpt-4o-mini":       ProviderOpenAI,
		"o3-mini":           ProviderOpenAI,
		"gemini-2.0-flash":  ProviderGemini,
		"claude-3-5-sonnet": ProviderAnthropic,
		"":                  ProviderOpenAI,
	}
	for model, want := range tests {
		if got := ProviderForModel(model); got != want {
			t.Errorf("ProviderForModel(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestNewTextServiceRejectsPlaceholder(t *testing.T) {
	_, err := NewTextService(t.Context(), "gpt-4o-mini", "string")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
}
