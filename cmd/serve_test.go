package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"mockpaper/internal/logger"
	"mockpaper/internal/pipeline"
	"mockpaper/pkg/models"
)

type fakeRunner struct {
	err     error
	got     pipeline.Request
	uploads map[string]string
	workDir string
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.got = req
	f.workDir = req.WorkDir
	f.uploads = make(map[string]string)
	for _, u := range req.Uploads {
		data, err := io.ReadAll(u.Content)
		if err != nil {
			return nil, err
		}
		f.uploads[u.Name] = string(data)
	}
	if f.err != nil {
		return nil, f.err
	}

	write := func(name, content string) string {
		path := filepath.Join(req.WorkDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			panic(err)
		}
		return path
	}
	return &pipeline.Result{
		RequestID: "req-1",
		WorkDir:   req.WorkDir,
		TextPath:  write("reference_concat.txt", "reference"),
		Artifacts: []models.RenderedDocument{
			{Path: write("mock_1.pdf", "%PDF-paper"), Role: models.RoleQuestionPaper, Variant: 1},
			{Path: write("mock_1_answers.pdf", "%PDF-answers"), Role: models.RoleAnswerKey, Variant: 1},
		},
	}, nil
}

func newTestServer(t *testing.T, runner mockRunner) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &server{
		runner:  runner,
		workDir: t.TempDir(),
		log:     logger.WithComponent("serve-test"),
	}
	return s.routes()
}

func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		w, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	router := newTestServer(t, &fakeRunner{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestGenerateMocksReturnsZip(t *testing.T) {
	runner := &fakeRunner{}
	router := newTestServer(t, runner)

	body, contentType := multipartBody(t,
		map[string]string{"past paper.pdf": "%PDF-1.4 reference"},
		map[string]string{"num_mocks": "2", "dpi": "300", "language": "fr", "difficulty": "harder", "api_key": "k"},
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/mocks", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}

	got := runner.got
	if got.Variants != 2 || got.DPI != 300 || got.Language != "fr" || got.Difficulty != "harder" || got.APIKey != "k" {
		t.Errorf("request fields not mapped: %+v", got)
	}
	if runner.uploads["past paper.pdf"] != "%PDF-1.4 reference" {
		t.Errorf("uploads = %v", runner.uploads)
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("response is not a zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"mock_1.pdf", "mock_1_answers.pdf", "reference_concat.txt"}
	if len(names) != len(want) {
		t.Fatalf("zip entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("zip entry %d = %q, want %q", i, names[i], want[i])
		}
	}

	if _, err := os.Stat(runner.workDir); !os.IsNotExist(err) {
		t.Errorf("work dir %s not removed (stat err = %v)", runner.workDir, err)
	}
}

func TestGenerateMocksBadInput(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		fields map[string]string
	}{
		{"no files", nil, map[string]string{"num_mocks": "1"}},
		{"bad dpi", map[string]string{"a.pdf": "x"}, map[string]string{"dpi": "high"}},
		{"dpi too large", map[string]string{"a.pdf": "x"}, map[string]string{"dpi": "5000"}},
		{"dpi too small", map[string]string{"a.pdf": "x"}, map[string]string{"dpi": "10"}},
		{"negative dpi", map[string]string{"a.pdf": "x"}, map[string]string{"dpi": "-300"}},
		{"bad num_mocks", map[string]string{"a.pdf": "x"}, map[string]string{"num_mocks": "two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			router := newTestServer(t, runner)

			body, contentType := multipartBody(t, tt.files, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/v1/mocks", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if runner.uploads != nil {
				t.Error("pipeline ran for an invalid request")
			}
		})
	}
}

func TestGenerateMocksErrorStatus(t *testing.T) {
	tests := []struct {
		kind pipeline.Kind
		want int
	}{
		{pipeline.KindInput, http.StatusBadRequest},
		{pipeline.KindConfiguration, http.StatusBadRequest},
		{pipeline.KindExtraction, http.StatusUnprocessableEntity},
		{pipeline.KindGeneration, http.StatusBadGateway},
		{pipeline.KindRendering, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			runner := &fakeRunner{err: &pipeline.Error{
				State: pipeline.StateGenerating,
				Kind:  tt.kind,
				Err:   errors.New("boom"),
			}}
			router := newTestServer(t, runner)

			body, contentType := multipartBody(t, map[string]string{"a.pdf": "x"}, nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/mocks", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var resp struct {
				Error string `json:"error"`
				Kind  string `json:"kind"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Kind != string(tt.kind) || resp.Error == "" {
				t.Errorf("body = %+v", resp)
			}
		})
	}
}

func TestStatusForUnknownKind(t *testing.T) {
	if got := statusForKind(""); got != http.StatusInternalServerError {
		t.Errorf("statusForKind(\"\") = %d", got)
	}
}
