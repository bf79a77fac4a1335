package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mockpaper/internal/config"
	"mockpaper/internal/extract"
	"mockpaper/internal/logger"
	"mockpaper/internal/mockgen"
	"mockpaper/internal/pipeline"
	"mockpaper/internal/render"
)

var version = "1.0.0"

// appConfig is loaded before any subcommand runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "mockpaper",
	Short: "Mock Paper Generator - turn past exam papers into fresh mock exams",
	Long: `mockpaper reads reference exam papers (PDF or DOCX, scanned or born-digital),
extracts their text with OCR where needed, asks a generative model for new mock
papers in the same style, and renders each mock as a question paper PDF and an
answer key PDF.

Configuration comes from the environment (a .env file is loaded if present) and
an optional YAML file given with --config or MOCKPAPER_CONFIG.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = os.Getenv(config.ConfigFileEnv)
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		appConfig = cfg
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("mockpaper executed")

		fmt.Println("Welcome to the Mock Paper Generator!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (overrides MOCKPAPER_CONFIG)")
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// validateInputFile checks that path is a readable, non-empty PDF or DOCX file
func validateInputFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", path).Msg("Input file not found")
			return nil, fmt.Errorf("input file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().Str("file", path).Msg("Permission denied accessing input file")
			return nil, fmt.Errorf("permission denied accessing input file: %s", path)
		}
		return nil, fmt.Errorf("error accessing input file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if _, err := extract.DetectType(path); err != nil {
		return nil, fmt.Errorf("unsupported input %s: only .pdf and .docx files are accepted", path)
	}
	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("input file is empty: %s", path)
	}

	return fileInfo, nil
}

// handlePipelineError provides user-friendly error messages for failed requests
func handlePipelineError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Mock generation failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout or uploading fewer pages")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, mockgen.ErrMissingCredential):
		return fmt.Errorf("no API key available. Pass --api-key or set OPENAI_API_KEY, GEMINI_API_KEY or ANTHROPIC_API_KEY for the chosen --model")
	case errors.Is(err, pipeline.ErrTooManyPages):
		return fmt.Errorf("%w. Raise MOCKPAPER_MAX_PAGES or split the document", err)
	case errors.Is(err, pipeline.ErrEmptyReference):
		return fmt.Errorf("no text could be extracted. Check the OCR language (--language) and that the scans are legible")
	case errors.Is(err, render.ErrRenderFailed):
		return fmt.Errorf("PDF rendering failed with every backend (%v): %w", appConfig.RenderBackends, err)
	case pipeline.KindOf(err) == pipeline.KindGeneration:
		return fmt.Errorf("the text service could not produce mock papers. This may be due to network issues, quota limits or an unsupported model: %w", err)
	default:
		return fmt.Errorf("mock generation failed: %w", err)
	}
}
