package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// ReadDOCXParagraphs returns the non-empty paragraphs of a .docx file in document order.
func ReadDOCXParagraphs(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", docxBody, path, err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return nil, fmt.Errorf("%s: missing %s", path, docxBody)
}

// parseDocumentXML walks WordprocessingML and collects paragraph text. Runs
// are concatenated, tabs and explicit breaks are kept. A paragraph nested in
// another, as in text boxes, is emitted on its own before the paragraph that
// holds it.
func parseDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		open       []*strings.Builder
		inText     bool
	)
	top := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", docxBody, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if p := top(); p != nil {
					p.WriteByte('\t')
				}
			case "br", "cr":
				if p := top(); p != nil {
					p.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				p := top()
				if p == nil {
					continue
				}
				open = open[:len(open)-1]
				if text := strings.TrimSpace(p.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			}
		case xml.CharData:
			if p := top(); p != nil && inText {
				p.Write(t)
			}
		}
	}
	return paragraphs, nil
}
