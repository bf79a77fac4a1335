package render

import (
	"fmt"
	"strings"

	"mockpaper/internal/mockgen"
	"mockpaper/pkg/models"
)

// DefaultInstructions is printed when the paper carries none of its own.
const DefaultInstructions = "Answer all questions. Show full working. Round off appropriately."

// FooterBrand is the left-hand footer text on every page.
const FooterBrand = "Mock Paper Generator"

// optionLabels are the fixed MCQ labels; structured option blocks always have
// exactly this many lines.
var optionLabels = []string{"a", "b", "c", "d"}

// BlockKind is the layout role of a Block.
type BlockKind int

const (
	BlockBreak BlockKind = iota
	BlockSection
	BlockQuestion
	BlockOptions
	BlockMarks
	BlockAnswer
	BlockTable
	BlockBody
	BlockMath
	BlockFigure
)

var blockKindNames = [...]string{
	BlockBreak:    "break",
	BlockSection:  "section",
	BlockQuestion: "question",
	BlockOptions:  "options",
	BlockMarks:    "marks",
	BlockAnswer:   "answer",
	BlockTable:    "table",
	BlockBody:     "body",
	BlockMath:     "math",
	BlockFigure:   "figure",
}

func (k BlockKind) String() string {
	if k < 0 || int(k) >= len(blockKindNames) {
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
	return blockKindNames[k]
}

// Block is one layout unit of a document.
type Block struct {
	Kind  BlockKind
	Text  string     // Single-line content
	Lines []string   // Option lines for BlockOptions
	Rows  [][]string // Cells for BlockTable
}

// Document is the backend-neutral layout of one PDF.
type Document struct {
	Title        string // Running header
	Heading      string // Cover heading
	Subtitle     string // Source name under the heading
	Instructions string
	AnswerKey    bool
	Blocks       []Block
}

// Source selects structured mode (Spec set) or text mode.
type Source struct {
	Spec *models.MockSpec
	Text string
}

// Options control the cover and whether the answer side is rendered.
type Options struct {
	Title      string
	SourceName string
	AnswerKey  bool
	Variant    int // 1-based, recorded on the rendered document
}

// BuildDocument lays out src as a Document. A structured spec is laid out
// from its sections and answer key; otherwise the text is classified line by
// line with Rules.
func BuildDocument(src Source, opts Options) *Document {
	title := strings.TrimSpace(opts.Title)
	if title == "" && src.Spec != nil {
		title = src.Spec.Title
	}
	if title == "" {
		title = mockgen.DefaultTitle
	}

	doc := &Document{
		Title:        title,
		Heading:      title + " — Question Paper",
		Subtitle:     strings.TrimSpace(opts.SourceName),
		Instructions: DefaultInstructions,
		AnswerKey:    opts.AnswerKey,
	}
	if opts.AnswerKey {
		doc.Heading = title + " — Answer Key"
	}

	switch {
	case src.Spec != nil && opts.AnswerKey:
		doc.Blocks = answerKeyBlocks(src.Spec)
	case src.Spec != nil:
		if s := strings.TrimSpace(src.Spec.Instructions); s != "" {
			doc.Instructions = s
		}
		doc.Blocks = paperBlocks(src.Spec)
	default:
		doc.Blocks = ClassifyLines(strings.Split(src.Text, "\n"), opts.AnswerKey)
	}
	return doc
}

func paperBlocks(spec *models.MockSpec) []Block {
	figures := make(map[string][]models.Asset)
	for _, a := range spec.Assets {
		figures[a.QuestionID] = append(figures[a.QuestionID], a)
	}

	var blocks []Block
	for i, section := range spec.Sections {
		blocks = append(blocks, Block{Kind: BlockSection, Text: mockgen.SectionHeading(i+1, section.Title)})
		for _, q := range section.Questions {
			blocks = append(blocks, Block{Kind: BlockQuestion, Text: mockgen.QuestionLine(q)})
			for _, a := range figures[q.ID] {
				blocks = append(blocks, Block{Kind: BlockFigure, Text: figureCaption(a)})
			}
			if q.IsMCQ() {
				blocks = append(blocks, Block{Kind: BlockOptions, Lines: OptionLines(q.Options)})
			}
			blocks = append(blocks, Block{Kind: BlockBreak})
		}
	}
	return blocks
}

func answerKeyBlocks(spec *models.MockSpec) []Block {
	blocks := []Block{{Kind: BlockSection, Text: "Answer Key"}}
	for _, item := range spec.AnswerKey {
		blocks = append(blocks, Block{Kind: BlockAnswer, Text: fmt.Sprintf("%s: %s", item.ID, item.Answer)})
		for _, line := range strings.Split(item.Workings, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				blocks = append(blocks, lineBlock(line))
			}
		}
		blocks = append(blocks, Block{Kind: BlockBreak})
	}
	return blocks
}

// lineBlock lays out one line of workings as math or prose.
func lineBlock(line string) Block {
	if IsDisplayMathLine(line) {
		return Block{Kind: BlockMath, Text: line}
	}
	return Block{Kind: BlockBody, Text: line}
}

func figureCaption(a models.Asset) string {
	kind := a.Kind
	if kind == "" {
		kind = "image"
	}
	return fmt.Sprintf("[Figure (%s): %s]", kind, strings.TrimSpace(a.Prompt))
}

// OptionLines labels opts a. through d., truncating extras and padding
// missing ones with a bare label.
func OptionLines(opts []string) []string {
	lines := make([]string, len(optionLabels))
	for i, label := range optionLabels {
		text := ""
		if i < len(opts) {
			text = stripOptionLabel(opts[i])
		}
		lines[i] = strings.TrimSpace(label + ". " + text)
	}
	return lines
}

func stripOptionLabel(s string) string {
	s = strings.TrimSpace(s)
	if m := optionPattern.FindStringIndex(s); m != nil {
		return strings.TrimSpace(s[m[1]:])
	}
	return s
}
