package extract

import (
	"fmt"
	"image"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// PDFDocument is an opened PDF. Page indexes are 0-based.
type PDFDocument interface {
	NumPage() int
	// PageText returns the native text layer of page i, empty when there is none.
	PageText(i int) (string, error)
	// PageImage rasterizes page i at dpi.
	PageImage(i int, dpi float64) (image.Image, error)
	Close() error
}

// PDFOpener opens PDF files for extraction.
type PDFOpener interface {
	Open(path string) (PDFDocument, error)
}

// FitzOpener opens PDFs with MuPDF for page count and rasterization, and
// reads the text layer with a pure-Go parser, falling back to MuPDF's text
// when the parser cannot read the file.
type FitzOpener struct{}

// Open implements PDFOpener.
func (FitzOpener) Open(path string) (PDFDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	d := &fitzDocument{doc: doc}
	if f, r, err := pdf.Open(path); err == nil {
		d.file, d.reader = f, r
	}
	return d, nil
}

type fitzDocument struct {
	doc    *fitz.Document
	file   *os.File
	reader *pdf.Reader
}

func (d *fitzDocument) NumPage() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) PageText(i int) (string, error) {
	if d.reader != nil && i < d.reader.NumPage() {
		if text, err := layerText(d.reader, i); err == nil {
			return text, nil
		}
	}
	return d.doc.Text(i)
}

func layerText(r *pdf.Reader, i int) (text string, err error) {
	// The parser panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("text layer page %d: %v", i+1, rec)
		}
	}()

	page := r.Page(i + 1)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func (d *fitzDocument) PageImage(i int, dpi float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(i, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	if d.file != nil {
		d.file.Close()
	}
	return d.doc.Close()
}
