package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mockpaper/internal/logger"
	"mockpaper/internal/ocr"
	"mockpaper/internal/pipeline"
	"mockpaper/pkg/models"
)

var generateCmd = &cobra.Command{
	Use:   "generate [file...]",
	Short: "Generate mock exam papers from reference PDF or DOCX files",
	Long: `Extract the text of one or more reference exam papers and generate new mock
papers of the same style with a generative model. Each mock is written as a
question paper (mock_N.pdf) and an answer key (mock_N_answers.pdf), next to the
extracted reference text (reference_concat.txt / .html).

The model name selects the provider: gpt-* and o* use OpenAI, gemini-* uses
Gemini and claude-* uses Anthropic. The API key comes from --api-key or the
provider's environment variable.`,
	Example: `  # One mock at the same difficulty
  mockpaper generate past_paper.pdf

  # Three harder mocks from two references, written to ./out
  mockpaper generate paper1.pdf paper2.docx -n 3 --difficulty harder -o out

  # Use Gemini and French OCR, print the result as JSON
  mockpaper generate scan.pdf --model gemini-1.5-flash --language fr --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

// GenerateOutput is the JSON printed with --json.
type GenerateOutput struct {
	RequestID string                    `json:"request_id"`
	WorkDir   string                    `json:"work_dir"`
	TextPath  string                    `json:"reference_text"`
	HTMLPath  string                    `json:"reference_html"`
	Artifacts []models.RenderedDocument `json:"artifacts"`
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("language", "", "OCR language, e.g. en or en+fr (default from MOCKPAPER_LANGUAGE)")
	generateCmd.Flags().Int("dpi", 0, "Rasterization DPI for scanned pages (default from MOCKPAPER_DPI)")
	generateCmd.Flags().String("model", "", "Generative model (default from MOCKPAPER_MODEL)")
	generateCmd.Flags().IntP("variants", "n", 0, "Number of mocks to generate, 1-3 (default from MOCKPAPER_VARIANTS)")
	generateCmd.Flags().String("difficulty", "", "same, easier, harder or a free-form instruction")
	generateCmd.Flags().String("api-key", "", "API key for the model's provider")
	generateCmd.Flags().StringP("out", "o", "", "Output directory (default: a new directory under MOCKPAPER_WORK_DIR)")
	generateCmd.Flags().Int("timeout", 900, "Processing timeout in seconds")
	generateCmd.Flags().Bool("json", false, "Output as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("generate")
	cfg := appConfig

	language, _ := cmd.Flags().GetString("language")
	dpi, _ := cmd.Flags().GetInt("dpi")
	model, _ := cmd.Flags().GetString("model")
	variants, _ := cmd.Flags().GetInt("variants")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	apiKey, _ := cmd.Flags().GetString("api-key")
	outDir, _ := cmd.Flags().GetString("out")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	log.Info().
		Strs("files", args).
		Str("model", model).
		Int("variants", variants).
		Str("difficulty", difficulty).
		Str("out", outDir).
		Msg("Starting mock generation")

	var uploads []pipeline.Upload
	for _, path := range args {
		if _, err := validateInputFile(path, log); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		uploads = append(uploads, pipeline.Upload{Name: filepath.Base(path), Content: f})
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	cache := ocr.NewEngineCache(ocr.DefaultFactory(pipeline.OCRConfig(cfg)))
	defer func() {
		if err := cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR engines")
		}
	}()

	p, err := pipeline.NewFromConfig(cfg, cache)
	if err != nil {
		return fmt.Errorf("failed to set up pipeline: %w", err)
	}

	res, err := p.Run(ctx, pipeline.Request{
		Uploads:    uploads,
		Language:   language,
		DPI:        dpi,
		Model:      model,
		APIKey:     apiKey,
		Variants:   variants,
		Difficulty: difficulty,
		WorkDir:    outDir,
	})
	if err != nil {
		return handlePipelineError(err, log)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(GenerateOutput{
			RequestID: res.RequestID,
			WorkDir:   res.WorkDir,
			TextPath:  res.TextPath,
			HTMLPath:  res.HTMLPath,
			Artifacts: res.Artifacts,
		})
	}

	fmt.Printf("Reference text: %s\n", res.TextPath)
	for _, a := range res.Artifacts {
		fmt.Printf("Mock %d %-14s %s (%s)\n", a.Variant, a.Role, a.Path, a.Backend)
	}
	return nil
}
