package mockgen_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"mockpaper/internal/mockgen"
)

// Example generates two harder variants from an extracted reference text.
func Example() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	key, err := mockgen.ResolveCredential("", os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		log.Fatal(err)
	}

	service, err := mockgen.NewTextService(ctx, "gpt-4o-mini", key)
	if err != nil {
		log.Fatal(err)
	}

	reference, err := os.ReadFile("reference_concat.txt")
	if err != nil {
		log.Fatalf("Failed to read reference text: %v", err)
	}

	gen := mockgen.NewGenerator(service, mockgen.DefaultConfig())
	variants, err := gen.Generate(ctx, string(reference), "harder", 2)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	for i, v := range variants {
		fmt.Printf("=== Mock %d ===\n%s\n\n%s\n", i+1, v.PaperText, v.AnswerText)
	}
}

// ExampleNormalizeCorrectLabel shows the accepted forms of an MCQ answer indicator.
func ExampleNormalizeCorrectLabel() {
	for _, in := range []any{"(B)", "c.", 0, 4, "e"} {
		label, ok := mockgen.NormalizeCorrectLabel(in)
		fmt.Printf("%q %v\n", label, ok)
	}
	// Output:
	// "b" true
	// "c" true
	// "a" true
	// "d" true
	// "" false
}

// ExampleParseLegacy splits a delimited reply into variants.
func ExampleParseLegacy() {
	raw := "### MOCK PAPER 1\nQ1. Define work.\n### ANSWER KEY 1\nQ1: W = F d"
	for _, v := range mockgen.ParseLegacy(raw, 2) {
		fmt.Printf("%q | %q\n", v.PaperText, v.AnswerText)
	}
	// Output:
	// "Q1. Define work." | "Q1: W = F d"
	// "" | ""
}
