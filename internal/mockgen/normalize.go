package mockgen

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"mockpaper/pkg/models"
)

// PlaceholderGlyph replaces characters the PDF fonts cannot display.
const PlaceholderGlyph = "*"

var codepointEscape = regexp.MustCompile(`U\+([0-9A-Fa-f]{4,6})`)

var glyphReplacements = map[rune]string{
	'·': "*", '×': "*", '÷': "/", '⁄': "/",
	'–': "-", '−': "-", '—': "-",
	'‘': "'", '’': "'", '“': "\"", '”': "\"",
	'■': "*", '▮': "*", '█': "*", '▪': "*", '▫': "*",
	'◼': "*", '◾': "*", '◽': "*",
}

// DecodeCodepointEscapes turns "U+03C0" style escapes into the characters they name.
// Invalid code points are left as written.
func DecodeCodepointEscapes(s string) string {
	if !strings.Contains(s, "U+") {
		return s
	}
	return codepointEscape.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return m
		}
		return string(rune(n))
	})
}

// NormalizeText makes generated text safe for the renderer fonts. It decodes
// codepoint escapes, maps junk and ambiguous glyphs to ASCII, and keeps Greek
// letters and mathematical operators as written. Any other rune is decomposed
// with its combining marks stripped, and whatever still cannot be displayed
// becomes PlaceholderGlyph.
func NormalizeText(s string) string {
	if s == "" {
		return s
	}
	s = DecodeCodepointEscapes(s)

	// Only runes the fonts cannot show are decomposed, so negated operators
	// such as ≠ and ∉ never lose their slash.
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if writeDisplayable(&b, r) {
			continue
		}
		decomposed, _, err := transform.String(stripMarks, string(r))
		if err != nil {
			b.WriteString(PlaceholderGlyph)
			continue
		}
		for _, d := range decomposed {
			if !writeDisplayable(&b, d) {
				b.WriteString(PlaceholderGlyph)
			}
		}
	}
	return b.String()
}

// writeDisplayable writes r, or its ASCII stand-in, when the fonts can show
// it. Carriage returns are dropped. It reports whether r was handled.
func writeDisplayable(b *strings.Builder, r rune) bool {
	if rep, ok := glyphReplacements[r]; ok {
		b.WriteString(rep)
		return true
	}
	switch {
	case r == '\r':
		return true
	case r == '\n' || r == '\t', r >= 0x20 && r < 0x7f, keepMathRune(r):
		b.WriteRune(r)
		return true
	}
	return false
}

func keepMathRune(r rune) bool {
	switch {
	case r >= 0x03B1 && r <= 0x03C9: // Greek lowercase
		return true
	case r >= 0x0391 && r <= 0x03A9: // Greek uppercase
		return true
	case r >= 0x2200 && r <= 0x22FF: // Mathematical Operators
		return true
	}
	return false
}

// NormalizeSpec applies NormalizeText to every text field of spec in place.
func NormalizeSpec(spec *models.MockSpec) {
	spec.Title = NormalizeText(spec.Title)
	spec.Instructions = NormalizeText(spec.Instructions)
	for si := range spec.Sections {
		section := &spec.Sections[si]
		section.Title = NormalizeText(section.Title)
		for qi := range section.Questions {
			q := &section.Questions[qi]
			q.Text = NormalizeText(q.Text)
			for oi := range q.Options {
				q.Options[oi] = NormalizeText(q.Options[oi])
			}
		}
	}
	for ai := range spec.AnswerKey {
		spec.AnswerKey[ai].Answer = NormalizeText(spec.AnswerKey[ai].Answer)
		spec.AnswerKey[ai].Workings = NormalizeText(spec.AnswerKey[ai].Workings)
	}
	for i := range spec.Assets {
		spec.Assets[i].Prompt = NormalizeText(spec.Assets[i].Prompt)
	}
}
