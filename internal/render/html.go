package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	goldhtml "github.com/yuin/goldmark/renderer/html"

	"mockpaper/internal/logger"
)

// BackendHTML is the name of the headless-Chrome backend.
const BackendHTML = "html"

// mathToken marks where a math segment is restored after Markdown conversion.
const mathToken = "MOCKPAPERMATHTOKEN"

// A4 in inches, as PrintToPDF expects.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/katex.min.css">
<script defer src="https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/katex.min.js"></script>
<script defer src="https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/contrib/auto-render.min.js"
  onload="renderMathInElement(document.body,{delimiters:[{left:'$$',right:'$$',display:true},{left:'\\[',right:'\\]',display:true},{left:'\\(',right:'\\)',display:false}],throwOnError:false});"></script>
<style>
body { font-family: 'Times New Roman', serif; font-size: 12pt; line-height: 1.45; color: #111; }
h1 { font-size: 20pt; color: #1a3d7c; margin: 0 0 4px 0; }
h2 { font-size: 14pt; color: #4a148c; margin: 18px 0 6px 0; border-bottom: 1px solid #ddd; }
.source { font-style: italic; color: #555; margin-bottom: 14px; }
.instructions { background: #f0f4fa; border: 1px solid #c5d3ea; padding: 8px 12px; margin-bottom: 18px; }
.question { font-weight: bold; margin: 10px 0 4px 0; }
.mcq { margin: 4px 0 8px 18px; padding: 6px 10px; border-left: 3px solid #c5d3ea; }
.points { text-align: right; font-style: italic; color: #555; }
.answer { background: #e8f5e9; padding: 4px 8px; font-weight: bold; margin-top: 8px; }
.math { text-align: center; margin: 8px 0; }
.figure { border: 1px dashed #999; padding: 10px; text-align: center; font-style: italic; color: #555; }
.gap { height: 8px; }
table { border-collapse: collapse; margin: 8px 0; }
td, th { border: 1px solid #999; padding: 3px 8px; }
</style>
</head>
<body>
<h1>{{.Heading}}</h1>
{{if .Subtitle}}<div class="source">{{.Subtitle}}</div>{{end}}
<div class="instructions"><strong>Instructions</strong><br>{{.Instructions}}</div>
{{.Body}}
</body>
</html>
`))

const headerTemplate = `<div style="font-size:9px;width:100%%;margin:0 18mm;color:#1a3d7c;border-bottom:1px solid #ccc;">%s</div>`

const footerTemplate = `<div style="font-size:8px;width:100%;margin:0 18mm;color:#666;display:flex;justify-content:space-between;">` +
	`<span>` + FooterBrand + `</span><span>Page <span class='pageNumber'></span></span></div>`

// HTMLBackend renders a Document as HTML and prints it to PDF with headless
// Chrome. Math is typeset in the page by KaTeX auto-render.
type HTMLBackend struct {
	chromePath string
	timeout    time.Duration
	settle     time.Duration
	md         goldmark.Markdown
	log        zerolog.Logger
}

// NewHTMLBackend creates a Chrome backend. An empty chromePath lets chromedp
// look for a browser on PATH; a zero timeout means no limit beyond ctx.
func NewHTMLBackend(chromePath string, timeout time.Duration) *HTMLBackend {
	return &HTMLBackend{
		chromePath: chromePath,
		timeout:    timeout,
		settle:     500 * time.Millisecond,
		md:         goldmark.New(goldmark.WithRendererOptions(goldhtml.WithHardWraps())),
		log:        logger.WithComponent("render-html"),
	}
}

// Name implements Backend.
func (b *HTMLBackend) Name() string { return BackendHTML }

// Write prints doc to a PDF at path.
func (b *HTMLBackend) Write(ctx context.Context, doc *Document, path string) error {
	const op = "HTMLBackend.Write"

	markup, err := b.HTML(doc)
	if err != nil {
		return NewRenderError(op, err, "build HTML")
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if b.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.chromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	var pdf []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, markup).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(fmt.Sprintf(headerTemplate, html.EscapeString(doc.Title))).
				WithFooterTemplate(footerTemplate).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(0.8).
				WithMarginBottom(0.8).
				WithMarginLeft(0.7).
				WithMarginRight(0.7).
				Do(ctx)
			pdf = buf
			return err
		}),
	)
	if err != nil {
		return NewRenderError(op, err, "print to PDF")
	}
	if len(pdf) == 0 {
		return NewRenderError(op, ErrEmptyPDF, path)
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return NewRenderError(op, err, path)
	}

	b.log.Debug().
		Str("path", path).
		Int("bytes", len(pdf)).
		Msg("Printed HTML PDF")
	return nil
}

// HTML returns the complete page markup for doc.
func (b *HTMLBackend) HTML(doc *Document) (string, error) {
	var body strings.Builder
	for _, blk := range doc.Blocks {
		if err := b.writeBlock(&body, blk); err != nil {
			return "", err
		}
	}

	var out bytes.Buffer
	err := pageTemplate.Execute(&out, struct {
		Title, Heading, Subtitle, Instructions string
		Body                                   template.HTML
	}{
		Title:        doc.Title,
		Heading:      doc.Heading,
		Subtitle:     doc.Subtitle,
		Instructions: doc.Instructions,
		Body:         template.HTML(body.String()),
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

func (b *HTMLBackend) writeBlock(w *strings.Builder, blk Block) error {
	switch blk.Kind {
	case BlockBreak:
		w.WriteString(`<div class="gap"></div>` + "\n")
	case BlockSection:
		fmt.Fprintf(w, "<h2>%s</h2>\n", inlineHTML(blk.Text))
	case BlockQuestion:
		fmt.Fprintf(w, "<p class=\"question\">%s</p>\n", inlineHTML(blk.Text))
	case BlockOptions:
		lines := make([]string, len(blk.Lines))
		for i, l := range blk.Lines {
			lines[i] = inlineHTML(l)
		}
		fmt.Fprintf(w, "<p class=\"mcq\">%s</p>\n", strings.Join(lines, "<br>"))
	case BlockMarks:
		fmt.Fprintf(w, "<div class=\"points\">%s</div>\n", inlineHTML(blk.Text))
	case BlockAnswer:
		fmt.Fprintf(w, "<div class=\"answer\">%s</div>\n", inlineHTML(blk.Text))
	case BlockTable:
		w.WriteString("<table>\n")
		for i, row := range blk.Rows {
			cell := "td"
			if i == 0 {
				cell = "th"
			}
			w.WriteString("<tr>")
			for _, c := range row {
				fmt.Fprintf(w, "<%s>%s</%s>", cell, inlineHTML(c), cell)
			}
			w.WriteString("</tr>\n")
		}
		w.WriteString("</table>\n")
	case BlockMath:
		fmt.Fprintf(w, "<div class=\"math\">%s</div>\n", inlineHTML(blk.Text))
	case BlockFigure:
		fmt.Fprintf(w, "<div class=\"figure\">%s</div>\n", html.EscapeString(blk.Text))
	default:
		prose, err := b.markdown(blk.Text)
		if err != nil {
			return err
		}
		w.WriteString(prose)
	}
	return nil
}

// inlineHTML escapes text and keeps math delimiters for KaTeX.
func inlineHTML(s string) string {
	var b strings.Builder
	for _, seg := range SplitMath(s) {
		b.WriteString(html.EscapeString(mathSource(seg)))
	}
	return b.String()
}

// mathSource restores a segment's delimiters in the form auto-render expects.
func mathSource(seg Segment) string {
	switch {
	case !seg.Math:
		return seg.Text
	case seg.Display:
		return `\[` + seg.Text + `\]`
	default:
		return `\(` + seg.Text + `\)`
	}
}

// markdown converts prose with goldmark. Math segments are swapped for
// tokens first so Markdown emphasis and escapes cannot touch them.
func (b *HTMLBackend) markdown(s string) (string, error) {
	var src strings.Builder
	var maths []string
	lineStart := true
	for _, seg := range SplitMath(s) {
		if seg.Math {
			fmt.Fprintf(&src, "%s%dX", mathToken, len(maths))
			maths = append(maths, html.EscapeString(mathSource(seg)))
			lineStart = false
			continue
		}
		lineStart = escapeProse(&src, seg.Text, lineStart)
	}

	var out bytes.Buffer
	if err := b.md.Convert([]byte(src.String()), &out); err != nil {
		return "", err
	}
	converted := out.String()
	for i := len(maths) - 1; i >= 0; i-- {
		converted = strings.ReplaceAll(converted, fmt.Sprintf("%s%dX", mathToken, i), maths[i])
	}
	return converted, nil
}

// escapeProse writes prose with the characters goldmark would read as markup
// escaped. Paired ** stays bold; a lone * is arithmetic. Block markers are
// only escaped at the start of a line. It reports whether the text ended at
// the start of a new line.
func escapeProse(w *strings.Builder, s string, lineStart bool) bool {
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if lineStart {
			for i < len(rs) && (rs[i] == ' ' || rs[i] == '\t') {
				i++
			}
			if i == len(rs) {
				break
			}
			r = rs[i]
			lineStart = false
			switch {
			case r == '#' || r == '-' || r == '+' || r == '>' || r == '=':
				w.WriteRune('\\')
			case r >= '0' && r <= '9':
				j := i
				for j < len(rs) && rs[j] >= '0' && rs[j] <= '9' {
					j++
				}
				if j < len(rs) && (rs[j] == '.' || rs[j] == ')') {
					w.WriteString(string(rs[i:j]))
					w.WriteRune('\\')
					w.WriteRune(rs[j])
					i = j
					continue
				}
			}
		}
		switch r {
		case '\n':
			lineStart = true
		case '\\', '_', '`', '<', '[':
			w.WriteRune('\\')
		case '*':
			if i+1 < len(rs) && rs[i+1] == '*' {
				w.WriteString("**")
				i++
				continue
			}
			w.WriteRune('\\')
		}
		w.WriteRune(r)
	}
	return lineStart
}
