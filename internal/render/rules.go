package render

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	sectionPattern   = regexp.MustCompile(`(?i)^(section|part)\s+([a-z]|[ivx]+|\d+)\b`)
	numberedSection  = regexp.MustCompile(`^\d+\.\s+(.+)$`)
	questionPattern  = regexp.MustCompile(`(?i)^(q\s*\d+[a-z]?\b|\(\d+\)|\d+[.)](\s|$))`)
	optionPattern    = regexp.MustCompile(`(?i)^\(?[a-d][.)](\s+|$)`)
	marksPattern     = regexp.MustCompile(`(?i)\bmarks?\b`)
	answerPattern    = regexp.MustCompile(`(?i)^(answer|ans\s*[:.]|solution)`)
	tableRowPattern  = regexp.MustCompile(`^\|.+\|$`)
	tableRulePattern = regexp.MustCompile(`^\|[\s:|-]+\|$`)
)

// titleConnectors may stay lowercase in a title-cased section heading.
var titleConnectors = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "for": true, "in": true,
	"of": true, "on": true, "or": true, "the": true, "to": true, "with": true, "&": true,
}

// Rule classifies a line and builds the block starting at it. Build returns
// the block and how many lines it consumed (at least one).
type Rule struct {
	Name  string
	Match func(line string, answerKey bool) bool
	Build func(lines []string, i int) (Block, int)
}

// Rules is the line classifier in first-match-wins order.
var Rules = []Rule{
	{Name: "blank", Match: isBlank, Build: buildBreak},
	{Name: "section", Match: isSection, Build: single(BlockSection)},
	{Name: "question", Match: isQuestion, Build: single(BlockQuestion)},
	{Name: "option", Match: isOption, Build: buildOptions},
	{Name: "marks", Match: isMarks, Build: single(BlockMarks)},
	{Name: "answer", Match: isAnswer, Build: single(BlockAnswer)},
	{Name: "table", Match: isTableRow, Build: buildTable},
	{Name: "math", Match: isMath, Build: single(BlockMath)},
	{Name: "body", Match: func(string, bool) bool { return true }, Build: single(BlockBody)},
}

// ClassifyLines stitches wrapped math and turns lines into blocks.
func ClassifyLines(lines []string, answerKey bool) []Block {
	lines = StitchMath(lines)
	var blocks []Block
	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])
		for _, r := range Rules {
			if !r.Match(line, answerKey) {
				continue
			}
			b, n := r.Build(lines, i)
			if n < 1 {
				n = 1
			}
			blocks = append(blocks, b)
			i += n
			break
		}
	}
	return trimBreaks(blocks)
}

func trimBreaks(blocks []Block) []Block {
	for len(blocks) > 0 && blocks[0].Kind == BlockBreak {
		blocks = blocks[1:]
	}
	for len(blocks) > 0 && blocks[len(blocks)-1].Kind == BlockBreak {
		blocks = blocks[:len(blocks)-1]
	}
	return blocks
}

func isBlank(line string, _ bool) bool { return line == "" }

func isSection(line string, _ bool) bool {
	if sectionPattern.MatchString(line) || strings.EqualFold(line, "Answer Key") {
		return true
	}
	m := numberedSection.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	return isHeadingTitle(m[1])
}

// isHeadingTitle reports whether s reads like a short title-cased heading
// rather than a numbered question.
func isHeadingTitle(s string) bool {
	s = strings.TrimSpace(s)
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	if strings.ContainsAny(s, "?=+^()<>/*") || strings.HasSuffix(s, ".") {
		return false
	}
	if strings.Contains(strings.ToLower(s), "mark") {
		return false
	}
	for i, w := range words {
		r := []rune(w)[0]
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			continue
		}
		if i > 0 && titleConnectors[strings.ToLower(w)] {
			continue
		}
		return false
	}
	return true
}

func isQuestion(line string, _ bool) bool { return questionPattern.MatchString(line) }

func isOption(line string, _ bool) bool { return optionPattern.MatchString(line) }

func isMarks(line string, _ bool) bool { return marksPattern.MatchString(line) }

func isAnswer(line string, answerKey bool) bool {
	return answerKey && answerPattern.MatchString(line)
}

func isTableRow(line string, _ bool) bool { return tableRowPattern.MatchString(line) }

func isMath(line string, _ bool) bool { return IsDisplayMathLine(line) }

func single(kind BlockKind) func([]string, int) (Block, int) {
	return func(lines []string, i int) (Block, int) {
		return Block{Kind: kind, Text: strings.TrimSpace(lines[i])}, 1
	}
}

func buildBreak(lines []string, i int) (Block, int) {
	n := 0
	for i+n < len(lines) && strings.TrimSpace(lines[i+n]) == "" {
		n++
	}
	return Block{Kind: BlockBreak}, n
}

// buildOptions groups a run of consecutive option lines into one block.
func buildOptions(lines []string, i int) (Block, int) {
	var opts []string
	for i+len(opts) < len(lines) {
		line := strings.TrimSpace(lines[i+len(opts)])
		if !isOption(line, false) {
			break
		}
		opts = append(opts, line)
	}
	return Block{Kind: BlockOptions, Lines: opts}, len(opts)
}

// buildTable collects consecutive pipe-delimited rows, dropping Markdown
// separator rows.
func buildTable(lines []string, i int) (Block, int) {
	var rows [][]string
	n := 0
	for i+n < len(lines) {
		line := strings.TrimSpace(lines[i+n])
		if !isTableRow(line, false) {
			break
		}
		n++
		if tableRulePattern.MatchString(line) {
			continue
		}
		cells := strings.Split(strings.Trim(line, "|"), "|")
		for j := range cells {
			cells[j] = strings.TrimSpace(cells[j])
		}
		rows = append(rows, cells)
	}
	return Block{Kind: BlockTable, Rows: rows}, n
}
