package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"mockpaper/internal/extract"
	"mockpaper/pkg/models"
)

func init() {
	// Keep pdfcpu from writing a config directory under the user's home.
	api.DisableConfigDir()
}

// Upload is one reference document as received from the caller.
type Upload struct {
	Name    string    // Client-side file name; only its base name is kept
	Content io.Reader // File bytes
}

// SanitizeName reduces a client-supplied file name to a safe base name,
// keeping its lowercased extension.
func SanitizeName(name string) string {
	base := displayName(name)
	ext := filepath.Ext(base)
	var b strings.Builder
	for _, r := range strings.TrimSuffix(base, ext) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	stem := strings.Trim(b.String(), "._")
	if stem == "" {
		stem = "upload"
	}
	return stem + strings.ToLower(ext)
}

// displayName is the base name of a client path, which may use either
// separator.
func displayName(name string) string {
	return filepath.Base(strings.ReplaceAll(name, `\`, "/"))
}

// uniqueName returns name, or name with a numeric suffix before the
// extension when it is already taken.
func uniqueName(name string, taken map[string]bool) string {
	if !taken[strings.ToLower(name)] {
		taken[strings.ToLower(name)] = true
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if !taken[strings.ToLower(candidate)] {
			taken[strings.ToLower(candidate)] = true
			return candidate
		}
	}
}

// checkUploads rejects an empty upload set and unsupported file types
// before anything is written.
func checkUploads(uploads []Upload) error {
	if len(uploads) == 0 {
		return ErrNoUploads
	}
	for _, u := range uploads {
		if _, err := extract.DetectType(u.Name); err != nil {
			return err
		}
	}
	return nil
}

// persistUploads writes uploads into dir under sanitized, de-duplicated names.
func persistUploads(dir string, uploads []Upload) ([]models.SourceDocument, error) {
	taken := make(map[string]bool)
	docs := make([]models.SourceDocument, 0, len(uploads))
	for _, u := range uploads {
		name := uniqueName(SanitizeName(u.Name), taken)
		path := filepath.Join(dir, name)

		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", u.Name, err)
		}
		_, copyErr := io.Copy(f, u.Content)
		closeErr := f.Close()
		if copyErr != nil {
			return nil, fmt.Errorf("save %s: %w", u.Name, copyErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("save %s: %w", u.Name, closeErr)
		}

		docType, err := extract.DetectType(name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, models.SourceDocument{Path: path, Name: displayName(u.Name), Type: docType})
	}
	return docs, nil
}

// inspectPDFs validates saved PDFs in relaxed mode and enforces maxPages.
// A validation failure only warns, since the rasterizer copes with many
// files pdfcpu rejects.
func inspectPDFs(docs []models.SourceDocument, maxPages int, log zerolog.Logger) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	for _, doc := range docs {
		if doc.Type != models.DocumentPDF {
			continue
		}
		if err := api.ValidateFile(doc.Path, conf); err != nil {
			log.Warn().
				Err(err).
				Str("document", doc.Name).
				Msg("PDF failed relaxed validation, continuing")
			continue
		}
		pages, err := api.PageCountFile(doc.Path)
		if err != nil {
			log.Warn().
				Err(err).
				Str("document", doc.Name).
				Msg("Could not count PDF pages")
			continue
		}
		if maxPages > 0 && pages > maxPages {
			return fmt.Errorf("%w: %s has %d pages, limit is %d", ErrTooManyPages, doc.Name, pages, maxPages)
		}
		log.Debug().
			Str("document", doc.Name).
			Int("pages", pages).
			Msg("PDF accepted")
	}
	return nil
}
