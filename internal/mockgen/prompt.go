package mockgen

import (
	"fmt"
	"strings"
)

// MaxExcerptRunes bounds the reference text sent to the provider.
const MaxExcerptRunes = 12000

// System instructions for the two generation paths.
const (
	StructuredSystemPrompt = "You are an expert university exam paper generator and formatter. " +
		"You output STRICT JSON for each mock exam. " +
		"Never include commentary, code fences, or explanations, only JSON. " +
		"All non-ASCII symbols must be output as U+xxxx escapes."

	LegacySystemPrompt = "You are an expert exam paper generator. " +
		"Produce two parts: exam paper and answer key. " +
		"Math must be ASCII-safe (x^2, H2O, pi, theta). " +
		"Never use Unicode superscripts/subscripts or LaTeX. " +
		"If the reference had only free-response questions, do not invent MCQs."
)

const structuredSchema = `You must return a single JSON object of the form:

{
  "mocks": [
    {
      "title": "string",
      "instructions": "string (optional)",
      "sections": [
        {
          "title": "string",
          "questions": [
            {
              "id": "q1",
              "type": "free",
              "marks": 5,
              "text": "ASCII-safe math only (x^2, H2O, pi, theta). No LaTeX or Unicode."
            },
            {
              "id": "q2",
              "type": "mcq",
              "marks": 5,
              "text": "ASCII-safe math only. No answers here.",
              "options": [
                "a. First option",
                "b. Second option",
                "c. Third option",
                "d. Fourth option"
              ],
              "correct": "b"
            }
          ]
        }
      ],
      "answer_key": [
        {
          "id": "q1",
          "answer": "Final ASCII-safe answer.",
          "workings": "ASCII-safe derivation."
        },
        {
          "id": "q2",
          "answer": "b",
          "workings": "Explanation if needed."
        }
      ]
    }
  ]
}`

// DifficultyGuidance turns a difficulty keyword into a prompt instruction.
// Unknown values are passed through as free text.
func DifficultyGuidance(difficulty string) string {
	d := strings.ToLower(strings.TrimSpace(difficulty))
	switch d {
	case "", "same", "similar", "default":
		return "Keep difficulty the SAME as the reference."
	case "easier", "easy":
		return "Make the paper EASIER."
	case "harder", "hard":
		return "Make the paper HARDER."
	default:
		return fmt.Sprintf("Adjust difficulty: %s.", strings.TrimSpace(difficulty))
	}
}

// Excerpt returns at most MaxExcerptRunes runes of text.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxExcerptRunes {
		return text
	}
	return string(runes[:MaxExcerptRunes])
}

// BuildStructuredPrompt builds the user prompt for the JSON generation path.
// A non-empty note is appended as a correction for a retry.
func BuildStructuredPrompt(reference, difficulty string, count int, note string) string {
	var b strings.Builder
	b.WriteString(structuredSchema)
	b.WriteString("\n\nHard requirements:\n")
	fmt.Fprintf(&b, "- Produce exactly %d mocks.\n", count)
	b.WriteString(`- Preserve the section structure and question types of the reference:
  * If the reference had MCQs, include them with exactly 4 options (a. to d.).
  * If the reference had only open-ended questions, do NOT invent MCQs.
- Math must be ASCII-safe only (x^2, H2O, pi, theta).
- NO Unicode superscripts/subscripts, NO LaTeX.
- Every question MUST appear in answer_key with an answer.
- Do NOT include answers, solutions, or hints inside "questions".
- Do NOT use Markdown tables. If a table is needed, output plain text rows in pipe-delimited format, e.g. "|col1|col2|col3|".
- JSON ONLY, no prose.
`)
	if note != "" {
		b.WriteString("\nCorrection:\n")
		b.WriteString(note)
		b.WriteString("\n")
	}
	b.WriteString("\nDifficulty:\n")
	b.WriteString(DifficultyGuidance(difficulty))
	b.WriteString("\n\nReference excerpt (<=12k chars):\n")
	b.WriteString(Excerpt(reference))
	return strings.TrimSpace(b.String())
}

// BuildLegacyPrompt builds the user prompt for the delimited plain-text path.
func BuildLegacyPrompt(reference, difficulty string, count int) string {
	var b strings.Builder
	b.WriteString(LegacySystemPrompt)
	b.WriteString(`

Constraints:
- Preserve sections, headers, question counts, numbering, and marks.
- Preserve question types: MCQs only if present in reference, otherwise free-response.
- ASCII-safe math only. No Unicode, no LaTeX.
- MCQs: 4 options, each on its own line a. to d.
- Provide answers for ALL questions.
- Do NOT include answers inside questions.
- Do NOT use Markdown tables. Use plain text rows in pipe-delimited format (e.g. "|col1|col2|").

Difficulty:
`)
	b.WriteString(DifficultyGuidance(difficulty))
	b.WriteString("\n\nOutput format (STRICT):\n")
	fmt.Fprintf(&b, "For each of %d mock exams:\n", count)
	b.WriteString("### MOCK PAPER X\n<questions>\n### ANSWER KEY X\n<answers covering EVERY question>\n")
	b.WriteString("\nReference exam (<=12k chars):\n")
	b.WriteString(Excerpt(reference))
	return strings.TrimSpace(b.String())
}
