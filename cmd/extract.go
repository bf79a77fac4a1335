package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mockpaper/internal/config"
	"mockpaper/internal/extract"
	"mockpaper/internal/logger"
	"mockpaper/internal/ocr"
	"mockpaper/internal/pipeline"
	"mockpaper/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file...]",
	Short: "Extract reference text from PDF or DOCX files",
	Long: `Extract the text of one or more exam papers without generating anything.

PDF pages with a usable text layer are read directly; scanned pages are
rasterized and sent through the configured OCR backend (tesseract, vision or
documentai). DOCX files are read paragraph by paragraph. The combined text is
the same reference text the generate command sends to the model.`,
	Example: `  # Print the reference text of a scanned paper
  mockpaper extract scan.pdf

  # French OCR at 300 DPI, saved to a file
  mockpaper extract scan.pdf --language fr --dpi 300 -o reference.txt

  # Write reference_concat.txt and reference_concat.html into ./out
  mockpaper extract paper1.pdf paper2.docx --artifacts out

  # Per-page provenance as JSON
  mockpaper extract scan.pdf --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

// ExtractOutput is the JSON printed with --json.
type ExtractOutput struct {
	Text               string            `json:"text"`
	Documents          []ExtractedOutput `json:"documents"`
	ProcessedAt        time.Time         `json:"processed_at"`
	ProcessingDuration string            `json:"processing_duration"`
}

// ExtractedOutput summarizes one source document.
type ExtractedOutput struct {
	FileName string       `json:"file_name"`
	Type     string       `json:"type"`
	Pages    []PageOutput `json:"pages"`
}

// PageOutput summarizes one extracted page.
type PageOutput struct {
	Number     int    `json:"number"`
	Source     string `json:"source"`
	Characters int    `json:"characters"`
	Tokens     int    `json:"tokens,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("language", "", "OCR language, e.g. en or en+fr (default from MOCKPAPER_LANGUAGE)")
	extractCmd.Flags().Int("dpi", 0, "Rasterization DPI for scanned pages (default from MOCKPAPER_DPI)")
	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().String("artifacts", "", "Directory to write reference_concat.txt and reference_concat.html into")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().Int("timeout", 600, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")
	cfg := appConfig

	language, _ := cmd.Flags().GetString("language")
	dpi, _ := cmd.Flags().GetInt("dpi")
	outputPath, _ := cmd.Flags().GetString("output")
	artifactDir, _ := cmd.Flags().GetString("artifacts")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if language == "" {
		language = cfg.Language
	}
	if dpi == 0 {
		dpi = cfg.DPI
	}
	if dpi < config.MinDPI || dpi > config.MaxDPI {
		return fmt.Errorf("--dpi must be between %d and %d, got %d", config.MinDPI, config.MaxDPI, dpi)
	}

	var docs []models.SourceDocument
	for _, path := range args {
		if _, err := validateInputFile(path, log); err != nil {
			return err
		}
		docType, _ := extract.DetectType(path)
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		docs = append(docs, models.SourceDocument{Path: abs, Name: filepath.Base(path), Type: docType})
	}

	log.Info().
		Strs("files", args).
		Str("language", language).
		Int("dpi", dpi).
		Str("ocr_backend", cfg.OCRBackend).
		Msg("Starting text extraction")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	adapter := ocr.NewAdapter(pipeline.OCRConfig(cfg))
	defer func() {
		if err := adapter.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR engines")
		}
	}()

	startTime := time.Now()
	ref, err := extract.NewExtractor(adapter).Extract(ctx, docs, extract.Options{
		Language: language,
		DPI:      dpi,
		Workers:  cfg.OCRWorkers,
	})
	if err != nil {
		return handlePipelineError(err, log)
	}
	duration := time.Since(startTime)

	if artifactDir != "" {
		if err := os.MkdirAll(artifactDir, 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
		if err := extract.WriteArtifacts(artifactDir, ref); err != nil {
			return fmt.Errorf("failed to write reference artifacts: %w", err)
		}
		log.Info().
			Str("text", ref.TextPath).
			Str("html", ref.HTMLPath).
			Msg("Reference artifacts written")
	}

	log.Info().
		Dur("duration", duration).
		Int("characters", len(ref.Text)).
		Int("documents", len(ref.Documents)).
		Msg("Extraction completed")

	var output []byte
	if jsonOutput {
		output, err = json.MarshalIndent(extractOutput(ref, duration), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON output: %w", err)
		}
	} else {
		output = []byte(ref.Text)
	}

	if outputPath == "" {
		fmt.Print(string(output))
		if len(output) > 0 && output[len(output)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	if err := os.WriteFile(outputPath, output, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Printf("Output saved to: %s\n", outputPath)
	return nil
}

func extractOutput(ref *models.ReferenceText, duration time.Duration) ExtractOutput {
	out := ExtractOutput{
		Text:               ref.Text,
		ProcessedAt:        time.Now(),
		ProcessingDuration: duration.String(),
	}
	for _, doc := range ref.Documents {
		d := ExtractedOutput{FileName: doc.Document.Name, Type: string(doc.Document.Type)}
		for _, p := range doc.Pages {
			d.Pages = append(d.Pages, PageOutput{
				Number:     p.Number,
				Source:     string(p.Source),
				Characters: len([]rune(p.Text)),
				Tokens:     len(p.Tokens),
				Warning:    p.Warning,
			})
		}
		out.Documents = append(out.Documents, d)
	}
	return out
}
