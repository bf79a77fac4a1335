package extract

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"mockpaper/pkg/models"
)

// Artifact file names written into the request working directory.
const (
	TextArtifact  = "reference_concat.txt"
	HTMLArtifact  = "reference_concat.html"
	EmptyDocument = "[EMPTY DOCUMENT: No text extracted]"
)

var (
	inlineMathHTML  = regexp.MustCompile(`\\\((.+?)\\\)`)
	displayMathHTML = regexp.MustCompile(`\\\[(.+?)\\\]`)
	dollarMathHTML  = regexp.MustCompile(`\$\$(.+?)\$\$`)
)

var referencePage = template.Must(template.New("reference").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Reference extraction</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/katex.min.css">
<script defer src="https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/katex.min.js"></script>
<script defer src="https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/contrib/auto-render.min.js"
  onload="renderMathInElement(document.body,{delimiters:[{left:'$$',right:'$$',display:true},{left:'\\[',right:'\\]',display:true},{left:'\\(',right:'\\)',display:false}]});"></script>
<style>
body { font-family: Georgia, serif; max-width: 50em; margin: 2em auto; line-height: 1.5; }
.math { font-family: "Latin Modern Math", serif; }
div.math { text-align: center; margin: 0.6em 0; }
hr { margin: 2em 0; }
</style>
</head>
<body>
{{.}}
</body>
</html>
`))

// WriteArtifacts writes the plain-text and HTML renderings of ref into dir
// and records their paths on ref.
func WriteArtifacts(dir string, ref *models.ReferenceText) error {
	const op = "WriteArtifacts"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newExtractError(op, dir, err)
	}

	text := ref.Text
	if strings.TrimSpace(text) == "" {
		text = EmptyDocument
	}
	textPath := filepath.Join(dir, TextArtifact)
	if err := os.WriteFile(textPath, []byte(text+"\n"), 0o644); err != nil {
		return newExtractError(op, textPath, err)
	}

	var buf bytes.Buffer
	if err := referencePage.Execute(&buf, template.HTML(RenderHTMLBody(ref))); err != nil {
		return newExtractError(op, HTMLArtifact, fmt.Errorf("render html: %w", err))
	}
	htmlPath := filepath.Join(dir, HTMLArtifact)
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return newExtractError(op, htmlPath, err)
	}

	ref.TextPath = textPath
	ref.HTMLPath = htmlPath
	return nil
}

// RenderHTMLBody renders each document's lines as paragraphs with math spans
// preserved, documents separated by horizontal rules.
func RenderHTMLBody(ref *models.ReferenceText) string {
	var blocks []string
	for _, doc := range ref.Documents {
		text := strings.TrimSpace(doc.Text())
		if text == "" {
			continue
		}
		var sb strings.Builder
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			sb.WriteString(lineHTML(line))
			sb.WriteByte('\n')
		}
		blocks = append(blocks, sb.String())
	}
	if len(blocks) == 0 {
		return "<p>" + html.EscapeString(EmptyDocument) + "</p>"
	}
	return strings.Join(blocks, "<hr/>\n")
}

func lineHTML(line string) string {
	escaped := html.EscapeString(line)
	if m := displayMathHTML.FindStringSubmatch(escaped); m != nil && strings.TrimSpace(m[0]) == escaped {
		return `<div class="math">\[` + m[1] + `\]</div>`
	}
	if m := dollarMathHTML.FindStringSubmatch(escaped); m != nil && strings.TrimSpace(m[0]) == escaped {
		return `<div class="math">$$` + m[1] + `$$</div>`
	}
	escaped = displayMathHTML.ReplaceAllString(escaped, `<span class="math">\[$1\]</span>`)
	escaped = inlineMathHTML.ReplaceAllString(escaped, `<span class="math">\($1\)</span>`)
	return "<p>" + escaped + "</p>"
}
