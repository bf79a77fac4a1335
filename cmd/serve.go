package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mockpaper/internal/config"
	"mockpaper/internal/logger"
	"mockpaper/internal/ocr"
	"mockpaper/internal/pipeline"
)

// maxUploadMemory bounds the multipart form held in memory; larger parts spill to disk.
const maxUploadMemory = 64 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve mock generation over HTTP",
	Long: `Run an HTTP server exposing the generation pipeline.

  POST /v1/mocks   multipart form: files (repeatable), language, dpi, model,
                   num_mocks, difficulty, api_key. Responds with a zip holding
                   the mock PDFs and reference_concat.txt.
  GET  /healthz    liveness probe

OCR engines are shared across requests. Each request works in its own
directory under MOCKPAPER_WORK_DIR, removed once the response is sent.`,
	Example: `  mockpaper serve --addr :9000

  curl -F files=@past_paper.pdf -F num_mocks=2 -o mocks.zip localhost:9000/v1/mocks`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default from SERVER_ADDR)")
	serveCmd.Flags().Duration("request-timeout", 15*time.Minute, "Maximum time spent on one request")
}

// mockRunner is the part of the pipeline the HTTP handlers use.
type mockRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type server struct {
	runner         mockRunner
	workDir        string
	requestTimeout time.Duration
	log            zerolog.Logger
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")
	cfg := appConfig

	addr, _ := cmd.Flags().GetString("addr")
	requestTimeout, _ := cmd.Flags().GetDuration("request-timeout")
	if addr == "" {
		addr = cfg.ServerAddr
	}

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

	s := &server{
		runner:         p,
		workDir:        cfg.WorkDir,
		requestTimeout: requestTimeout,
		log:            log,
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exited properly")
	return nil
}

func (s *server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/v1")
	{
		v1.POST("/mocks", s.handleGenerateMocks)
	}
	return router
}

// requestLogger tags each request with an ID and logs its outcome.
func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)

		start := time.Now()
		c.Next()

		log := logger.ForRequest(s.log, id)
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
}

func (s *server) handleGenerateMocks(c *gin.Context) {
	log := logger.ForRequest(s.log, c.GetString("request_id"))

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		log.Warn().Err(err).Msg("Failed to parse multipart form")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form: " + err.Error(), "kind": pipeline.KindInput})
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	req, err := requestFromForm(c.Request.MultipartForm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": pipeline.KindInput})
		return
	}
	for _, u := range req.Uploads {
		if closer, ok := u.Content.(io.Closer); ok {
			defer closer.Close()
		}
	}

	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		log.Error().Err(err).Msg("Failed to create work root")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare working directory", "kind": pipeline.KindConfiguration})
		return
	}
	workDir, err := os.MkdirTemp(s.workDir, "req-")
	if err != nil {
		log.Error().Err(err).Msg("Failed to create request work dir")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare working directory", "kind": pipeline.KindConfiguration})
		return
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("work_dir", workDir).Msg("Failed to remove work dir")
		}
	}()
	req.WorkDir = workDir

	ctx := c.Request.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	res, err := s.runner.Run(ctx, req)
	if err != nil {
		kind := pipeline.KindOf(err)
		log.Error().Err(err).Str("kind", string(kind)).Msg("Mock generation failed")
		c.JSON(statusForKind(kind), gin.H{"error": err.Error(), "kind": kind})
		return
	}

	archive, err := zipResult(res)
	if err != nil {
		log.Error().Err(err).Msg("Failed to package results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to package results", "kind": pipeline.KindRendering})
		return
	}

	log.Info().
		Str("pipeline_request_id", res.RequestID).
		Int("artifacts", len(res.Artifacts)).
		Int("bytes", len(archive)).
		Msg("Mocks generated")

	c.Header("Content-Disposition", `attachment; filename="mocks.zip"`)
	c.Data(http.StatusOK, "application/zip", archive)
}

// requestFromForm maps the multipart fields onto a pipeline request. Empty
// fields leave the configured defaults in place.
func requestFromForm(form *multipart.Form) (pipeline.Request, error) {
	var req pipeline.Request

	files := form.File["files"]
	if len(files) == 0 {
		return req, errors.New("no files uploaded: send one or more PDF or DOCX files in the 'files' field")
	}

	req.Language = formValue(form, "language")
	req.Model = formValue(form, "model")
	req.Difficulty = formValue(form, "difficulty")
	req.APIKey = formValue(form, "api_key")

	if v := formValue(form, "dpi"); v != "" {
		dpi, err := strconv.Atoi(v)
		if err != nil || dpi < config.MinDPI || dpi > config.MaxDPI {
			return req, fmt.Errorf("invalid dpi %q: must be an integer between %d and %d", v, config.MinDPI, config.MaxDPI)
		}
		req.DPI = dpi
	}
	if v := formValue(form, "num_mocks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid num_mocks %q: must be an integer", v)
		}
		req.Variants = n
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			for _, u := range req.Uploads {
				u.Content.(io.Closer).Close()
			}
			return req, fmt.Errorf("failed to read uploaded file %s: %w", fh.Filename, err)
		}
		req.Uploads = append(req.Uploads, pipeline.Upload{Name: fh.Filename, Content: f})
	}
	return req, nil
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func statusForKind(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInput, pipeline.KindConfiguration:
		return http.StatusBadRequest
	case pipeline.KindExtraction:
		return http.StatusUnprocessableEntity
	case pipeline.KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// zipResult packages the rendered PDFs, in artifact order, followed by the
// reference text.
func zipResult(res *pipeline.Result) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	paths := make([]string, 0, len(res.Artifacts)+1)
	for _, a := range res.Artifacts {
		paths = append(paths, a.Path)
	}
	if res.TextPath != "" {
		paths = append(paths, res.TextPath)
	}

	for _, path := range paths {
		if err := addZipFile(zw, path); err != nil {
			zw.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addZipFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
