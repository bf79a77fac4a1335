package render

import "strings"

// Segment is a run of plain text or a math expression within one line.
type Segment struct {
	Text    string // Expression without delimiters for math segments
	Math    bool
	Display bool // Block math: \[..\] or $$..$$
}

// stitchOpeners are the delimiters that may span lines, checked in order.
var stitchOpeners = []struct{ open, close string }{
	{`$$`, `$$`},
	{`\[`, `\]`},
	{`\(`, `\)`},
}

// unclosedDelimiter scans line left to right and returns the closer still
// expected at its end, if any.
func unclosedDelimiter(line string) (string, bool) {
	want := ""
	for i := 0; i < len(line); {
		if want != "" {
			if strings.HasPrefix(line[i:], want) {
				i += len(want)
				want = ""
				continue
			}
			i++
			continue
		}
		matched := false
		for _, d := range stitchOpeners {
			if strings.HasPrefix(line[i:], d.open) {
				want = d.close
				i += len(d.open)
				matched = true
				break
			}
		}
		if !matched {
			i++
		}
	}
	return want, want != ""
}

// StitchMath joins a math expression that was wrapped across lines into one
// line. When a line leaves \[, $$ or \( open, it and the following lines up to
// and including the first one containing the closer are joined with single
// spaces. Lines outside that span are untouched, an opener that is never
// closed is left as is, and applying StitchMath twice equals applying it once.
func StitchMath(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		cur := lines[i]
		i++
		for {
			closer, open := unclosedDelimiter(cur)
			if !open {
				break
			}
			j := i
			for j < len(lines) && !strings.Contains(lines[j], closer) {
				j++
			}
			if j == len(lines) {
				break
			}
			parts := []string{strings.TrimSpace(cur)}
			for _, l := range lines[i : j+1] {
				if t := strings.TrimSpace(l); t != "" {
					parts = append(parts, t)
				}
			}
			cur = strings.Join(parts, " ")
			i = j + 1
		}
		out = append(out, cur)
	}
	return out
}

// SplitMath splits line into text and math segments. It recognizes \(..\)
// and $..$ inline math and \[..\] and $$..$$ display math. An opener without
// a closer is plain text. A single $ only opens math when the expression does
// not start or end with a space, so prices like "$5 and $10" stay text.
func SplitMath(line string) []Segment {
	var segs []Segment
	text := strings.Builder{}
	flush := func() {
		if text.Len() > 0 {
			segs = append(segs, Segment{Text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(line); {
		rest := line[i:]
		open, close, display := "", "", false
		switch {
		case strings.HasPrefix(rest, "$$"):
			open, close, display = "$$", "$$", true
		case strings.HasPrefix(rest, `\[`):
			open, close, display = `\[`, `\]`, true
		case strings.HasPrefix(rest, `\(`):
			open, close = `\(`, `\)`
		case rest[0] == '$':
			open, close = "$", "$"
		}
		if open == "" {
			text.WriteByte(line[i])
			i++
			continue
		}

		end := strings.Index(rest[len(open):], close)
		if end < 0 {
			text.WriteString(open)
			i += len(open)
			continue
		}
		expr := rest[len(open) : len(open)+end]
		if open == "$" && !inlineDollarMath(expr) {
			text.WriteByte('$')
			i++
			continue
		}

		flush()
		segs = append(segs, Segment{Text: strings.TrimSpace(expr), Math: true, Display: display})
		i += len(open) + end + len(close)
	}
	flush()
	return segs
}

func inlineDollarMath(expr string) bool {
	if expr == "" {
		return false
	}
	return expr == strings.TrimSpace(expr)
}

// IsDisplayMathLine reports whether line is a single display-math expression.
func IsDisplayMathLine(line string) bool {
	segs := SplitMath(strings.TrimSpace(line))
	return len(segs) == 1 && segs[0].Math && segs[0].Display
}
