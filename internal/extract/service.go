// Package extract turns uploaded reference documents into reading-order plain text.
//
// PDF pages use their native text layer when it carries real content; pages
// without one (scans) are rasterized and routed through the OCR adapter. DOCX
// files are read paragraph by paragraph. A page or document that fails to
// extract degrades to empty text with a logged warning; deciding whether an
// empty overall result is fatal is left to the caller.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mockpaper/internal/logger"
	"mockpaper/internal/ocr"
	"mockpaper/pkg/models"
)

// Defaults for Options.
const (
	DefaultDPI            = 220
	DefaultMinNativeRunes = 8
)

// Options controls one extraction run.
type Options struct {
	Language       string // OCR language, e.g. "en" or "en+fr"
	DPI            int    // Rasterization resolution for OCR pages
	Workers        int    // Concurrent OCR pages per document
	MinNativeRunes int    // Letters/digits a text layer needs to skip OCR
}

func (o Options) withDefaults() Options {
	if o.Language == "" {
		o.Language = "en"
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.MinNativeRunes <= 0 {
		o.MinNativeRunes = DefaultMinNativeRunes
	}
	return o
}

// Extractor produces ReferenceText from source documents.
type Extractor struct {
	opener     PDFOpener
	recognizer ocr.Recognizer
	log        zerolog.Logger
}

// NewExtractor creates an extractor backed by MuPDF and the given OCR recognizer.
func NewExtractor(recognizer ocr.Recognizer) *Extractor {
	return NewExtractorWithDeps(FitzOpener{}, recognizer)
}

// NewExtractorWithDeps creates an extractor with explicit dependencies (for testing).
func NewExtractorWithDeps(opener PDFOpener, recognizer ocr.Recognizer) *Extractor {
	return &Extractor{
		opener:     opener,
		recognizer: recognizer,
		log:        logger.WithComponent("extract"),
	}
}

// DetectType returns the document type implied by path's extension.
func DetectType(path string) (models.DocumentType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return models.DocumentPDF, nil
	case ".docx":
		return models.DocumentDOCX, nil
	default:
		return "", newExtractError("DetectType", filepath.Base(path), ErrUnsupportedType)
	}
}

// Extract returns the concatenated text of docs in upload order. It fails
// up front if any document has an unsupported type.
func (e *Extractor) Extract(ctx context.Context, docs []models.SourceDocument, opts Options) (*models.ReferenceText, error) {
	opts = opts.withDefaults()
	docs = append([]models.SourceDocument(nil), docs...)

	for i := range docs {
		if docs[i].Type == "" {
			t, err := DetectType(docs[i].Path)
			if err != nil {
				return nil, err
			}
			docs[i].Type = t
		}
		if docs[i].Type != models.DocumentPDF && docs[i].Type != models.DocumentDOCX {
			return nil, newExtractError("Extract", docs[i].Path, ErrUnsupportedType)
		}
	}

	ref := &models.ReferenceText{}
	var texts []string
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		extracted, err := e.extractDocument(ctx, doc, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.log.Warn().
				Err(err).
				Str("document", doc.Name).
				Msg("Document could not be extracted, continuing without it")
			extracted = models.ExtractedDocument{Document: doc}
		}
		ref.Documents = append(ref.Documents, extracted)

		text := strings.TrimSpace(extracted.Text())
		if text == "" {
			e.log.Warn().Str("document", doc.Name).Msg("Document yielded no text")
			continue
		}
		texts = append(texts, text)
	}

	ref.Text = strings.Join(texts, "\n\n")

	e.log.Info().
		Int("documents", len(docs)).
		Int("characters", len(ref.Text)).
		Msg("Extraction finished")

	return ref, nil
}

func (e *Extractor) extractDocument(ctx context.Context, doc models.SourceDocument, opts Options) (models.ExtractedDocument, error) {
	switch doc.Type {
	case models.DocumentDOCX:
		paragraphs, err := ReadDOCXParagraphs(doc.Path)
		if err != nil {
			return models.ExtractedDocument{}, newExtractError("ReadDOCX", doc.Path, fmt.Errorf("%w: %v", ErrUnreadableDocument, err))
		}
		return models.ExtractedDocument{
			Document: doc,
			Pages: []models.ExtractedPage{{
				Number: 1,
				Source: models.SourceDOCX,
				Text:   strings.Join(paragraphs, "\n"),
			}},
		}, nil
	default:
		return e.extractPDF(ctx, doc, opts)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, doc models.SourceDocument, opts Options) (models.ExtractedDocument, error) {
	pdfDoc, err := e.opener.Open(doc.Path)
	if err != nil {
		return models.ExtractedDocument{}, newExtractError("OpenPDF", doc.Path, fmt.Errorf("%w: %v", ErrUnreadableDocument, err))
	}
	defer pdfDoc.Close()

	log := logger.ForDocument(e.log, doc.Name)
	n := pdfDoc.NumPage()
	pages := make([]models.ExtractedPage, n)
	var scanned []int

	for i := 0; i < n; i++ {
		pages[i] = models.ExtractedPage{Number: i + 1, Source: models.SourceNative}
		text, err := pdfDoc.PageText(i)
		if err != nil {
			log.Debug().Err(err).Int("page", i+1).Msg("Text layer unreadable, using OCR")
		}
		text = cleanNativeText(text)
		if hasContent(text, opts.MinNativeRunes) {
			pages[i].Text = text
			continue
		}
		scanned = append(scanned, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, i := range scanned {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pages[i] = e.ocrPage(gctx, pdfDoc, i, opts, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.ExtractedDocument{}, err
	}

	log.Info().
		Int("pages", n).
		Int("ocr_pages", len(scanned)).
		Msg("PDF extracted")

	return models.ExtractedDocument{Document: doc, Pages: pages}, nil
}

func (e *Extractor) ocrPage(ctx context.Context, doc PDFDocument, i int, opts Options, log zerolog.Logger) models.ExtractedPage {
	page := models.ExtractedPage{Number: i + 1, Source: models.SourceOCR}

	img, err := doc.PageImage(i, float64(opts.DPI))
	if err != nil {
		page.Warning = fmt.Sprintf("rasterize page %d: %v", i+1, err)
		log.Warn().Err(err).Int("page", i+1).Msg("Page rasterization failed, page contributes no text")
		return page
	}

	tokens, err := e.recognizer.Recognize(ctx, img, opts.Language)
	if err != nil {
		page.Warning = fmt.Sprintf("recognize page %d: %v", i+1, err)
		log.Warn().Err(err).Int("page", i+1).Msg("OCR failed, page contributes no text")
		return page
	}

	page.Tokens = tokens
	page.Text = ocr.JoinTokens(tokens)
	return page
}

func cleanNativeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		out = append(out, strings.TrimRightFunc(l, unicode.IsSpace))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// hasContent reports whether s has at least min letter or digit runes.
func hasContent(s string, min int) bool {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
			if n >= min {
				return true
			}
		}
	}
	return false
}
