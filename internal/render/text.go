package render

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"mockpaper/internal/logger"
)

// BackendText is the name of the fpdf fallback backend.
const BackendText = "text"

var (
	fracPattern    = regexp.MustCompile(`\\[dt]?frac\{([^{}]*)\}\{([^{}]*)\}`)
	sqrtPattern    = regexp.MustCompile(`\\sqrt\{([^{}]*)\}`)
	scriptPattern  = regexp.MustCompile(`([_^])\{([^{}]*)\}`)
	commandPattern = regexp.MustCompile(`\\([A-Za-z]+)`)
	spacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// latexWords maps LaTeX commands to ASCII. Longer commands sharing a prefix
// come first.
var latexWords = strings.NewReplacer(
	`\left`, "", `\right`, "",
	`\leq`, "<=", `\le`, "<=",
	`\geq`, ">=", `\ge`, ">=",
	`\neq`, "!=", `\ne`, "!=",
	`\approx`, "~", `\cdot`, "*", `\times`, "x", `\div`, "/", `\pm`, "+/-",
	`\infty`, "inf", `\int`, "int", `\sum`, "sum",
	`\rightarrow`, "->", `\to`, "->",
	`\degree`, " deg", `\circ`, " deg", `\%`, "%",
	`\,`, " ", `\;`, " ", `\!`, "", `\ `, " ",
)

// unicodeMath maps symbols outside cp1252 to ASCII.
var unicodeMath = strings.NewReplacer(
	"π", "pi", "θ", "theta", "α", "alpha", "β", "beta", "γ", "gamma",
	"δ", "delta", "Δ", "Delta", "λ", "lambda", "μ", "mu", "σ", "sigma",
	"Σ", "Sigma", "ω", "omega", "Ω", "Omega", "φ", "phi",
	"√", "sqrt", "∑", "sum", "∫", "int", "∞", "inf",
	"≤", "<=", "≥", ">=", "≠", "!=", "≈", "~", "→", "->", "−", "-",
)

// ASCIIMath rewrites a LaTeX expression as readable plain text, for example
// `\frac{1}{2} m v^{2}` becomes `1/2 m v^2`.
func ASCIIMath(expr string) string {
	for i := 0; i < 4; i++ {
		next := fracPattern.ReplaceAllStringFunc(expr, func(m string) string {
			sub := fracPattern.FindStringSubmatch(m)
			return group(sub[1]) + "/" + group(sub[2])
		})
		next = sqrtPattern.ReplaceAllString(next, "sqrt($1)")
		if next == expr {
			break
		}
		expr = next
	}
	expr = scriptPattern.ReplaceAllStringFunc(expr, func(m string) string {
		sub := scriptPattern.FindStringSubmatch(m)
		return sub[1] + group(sub[2])
	})
	expr = latexWords.Replace(expr)
	expr = commandPattern.ReplaceAllString(expr, "$1")
	expr = strings.NewReplacer("{", "", "}", "").Replace(expr)
	expr = unicodeMath.Replace(expr)
	return strings.TrimSpace(spacePattern.ReplaceAllString(expr, " "))
}

// group parenthesizes s unless it is a single token.
func group(s string) string {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.') {
			return "(" + s + ")"
		}
	}
	return s
}

// PlainText flattens a line with inline math into plain text.
func PlainText(line string) string {
	var b strings.Builder
	for _, seg := range SplitMath(line) {
		if seg.Math {
			b.WriteString(ASCIIMath(seg.Text))
			continue
		}
		b.WriteString(unicodeMath.Replace(seg.Text))
	}
	return b.String()
}

// TextBackend writes a text-only PDF with fpdf core fonts. It needs no
// external programs and is the last resort in the default backend chain.
type TextBackend struct {
	log zerolog.Logger
}

// NewTextBackend creates a new fpdf backend.
func NewTextBackend() *TextBackend {
	return &TextBackend{log: logger.WithComponent("render-text")}
}

// Name implements Backend.
func (b *TextBackend) Name() string { return BackendText }

// Write lays doc out on A4 pages and saves it to path.
func (b *TextBackend) Write(ctx context.Context, doc *Document, path string) error {
	const op = "TextBackend.Write"

	if err := ctx.Err(); err != nil {
		return NewRenderError(op, err, path)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(PlainText(s)) }

	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator(FooterBrand, true)
	pdf.SetMargins(18, 20, 18)
	pdf.SetAutoPageBreak(true, 20)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(26, 61, 124)
		pdf.CellFormat(width, 6, text(doc.Title), "B", 1, "L", false, 0, "")
		pdf.Ln(4)
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(width/2, 6, FooterBrand, "T", 0, "L", false, 0, "")
		pdf.CellFormat(width/2, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "T", 0, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()
	writeCover(pdf, doc, text, width)
	for _, blk := range doc.Blocks {
		writeBlock(pdf, blk, text, width)
	}

	if pdf.Err() {
		return NewRenderError(op, pdf.Error(), path)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return NewRenderError(op, err, path)
	}

	b.log.Debug().
		Str("path", path).
		Int("pages", pdf.PageNo()).
		Int("blocks", len(doc.Blocks)).
		Msg("Wrote text PDF")
	return nil
}

func writeCover(pdf *fpdf.Fpdf, doc *Document, text func(string) string, width float64) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(26, 61, 124)
	pdf.MultiCell(width, 9, text(doc.Heading), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	if doc.Subtitle != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(width, 6, text(doc.Subtitle), "", "L", false)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.MultiCell(width, 7, "Instructions", "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetFillColor(240, 244, 250)
	pdf.MultiCell(width, 6, text(doc.Instructions), "1", "L", true)
	pdf.Ln(6)
}

func writeBlock(pdf *fpdf.Fpdf, blk Block, text func(string) string, width float64) {
	switch blk.Kind {
	case BlockBreak:
		pdf.Ln(3)
	case BlockSection:
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(74, 20, 140)
		pdf.MultiCell(width, 8, text(blk.Text), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(1)
	case BlockQuestion:
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(width, 6, text(blk.Text), "", "L", false)
	case BlockOptions:
		pdf.SetFont("Helvetica", "", 11)
		lines := make([]string, len(blk.Lines))
		for i, l := range blk.Lines {
			lines[i] = text(l)
		}
		pdf.SetX(pdf.GetX() + 6)
		pdf.MultiCell(width-6, 6, strings.Join(lines, "\n"), "", "L", false)
	case BlockMarks:
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(width, 5, text(blk.Text), "", "R", false)
		pdf.SetTextColor(0, 0, 0)
	case BlockAnswer:
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetFillColor(232, 245, 233)
		pdf.MultiCell(width, 6, text(blk.Text), "", "L", true)
	case BlockTable:
		writeTable(pdf, blk.Rows, text, width)
	case BlockMath:
		pdf.SetFont("Courier", "", 11)
		pdf.MultiCell(width, 6, text(blk.Text), "", "C", false)
	case BlockFigure:
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(width, 6, text(blk.Text), "1", "C", false)
	default:
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(width, 6, text(blk.Text), "", "L", false)
	}
}

func writeTable(pdf *fpdf.Fpdf, rows [][]string, text func(string) string, width float64) {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return
	}
	colW := width / float64(cols)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		for c := 0; c < cols; c++ {
			cell := ""
			if c < len(row) {
				cell = text(row[c])
			}
			pdf.CellFormat(colW, 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}
