package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mockpaper/internal/logger"
)

// ConfigFileEnv names the environment variable holding an optional YAML config path.
const ConfigFileEnv = "MOCKPAPER_CONFIG"

// Rasterization DPI bounds, for the configured default and per-request overrides.
const (
	MinDPI = 72
	MaxDPI = 600
)

type Config struct {
	// Generative service credentials
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Generation defaults
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Language    string  `yaml:"language"`
	DPI         int     `yaml:"dpi"`
	Variants    int     `yaml:"variants"`
	Difficulty  string  `yaml:"difficulty"`

	// Request handling
	WorkDir  string `yaml:"work_dir"`
	MaxPages int    `yaml:"max_pages"`

	// OCR
	OCRBackend       string  `yaml:"ocr_backend"`
	OCRDevice        string  `yaml:"ocr_device"`
	OCRModelDir      string  `yaml:"ocr_model_dir"`
	OCRCacheDir      string  `yaml:"ocr_cache_dir"`
	OCRMinConfidence float64 `yaml:"ocr_min_confidence"`
	OCRWorkers       int     `yaml:"ocr_workers"`
	OCRMagRatio      float64 `yaml:"ocr_mag_ratio"`
	OCRDebugImages   bool    `yaml:"ocr_debug_images"`

	// Google Cloud (Vision / Document AI OCR backends)
	GoogleCredentials            string `yaml:"google_credentials"`
	GoogleApplicationCredentials string `yaml:"google_application_credentials"`
	GoogleCloudProject           string `yaml:"google_cloud_project"`
	GoogleCloudLocation          string `yaml:"google_cloud_location"`
	DocumentAIProcessorID        string `yaml:"document_ai_processor_id"`

	// Rendering
	RenderBackends []string      `yaml:"render_backends"`
	RenderTimeout  time.Duration `yaml:"render_timeout"`
	ChromePath     string        `yaml:"chrome_path"`

	// HTTP server
	ServerAddr string `yaml:"server_addr"`

	// Logging Configuration
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogTimeFormat string `yaml:"log_time_format"`
	LogOutput     string `yaml:"log_output"`
}

// Default returns the configuration used when neither a file nor the environment sets a value.
func Default() *Config {
	return &Config{
		Model:               "gpt-4o-mini",
		Temperature:         0.7,
		MaxTokens:           4096,
		Language:            "en",
		DPI:                 220,
		Variants:            1,
		Difficulty:          "same",
		WorkDir:             filepath.Join(os.TempDir(), "mockpaper"),
		MaxPages:            50,
		OCRBackend:          "tesseract",
		OCRDevice:           "cpu",
		OCRModelDir:         "./models/tessdata",
		OCRCacheDir:         filepath.Join(os.TempDir(), "mockpaper-ocr-cache"),
		OCRMinConfidence:    0.3,
		OCRWorkers:          2,
		OCRMagRatio:         1.0,
		GoogleCloudLocation: "us",
		RenderBackends:      []string{"html", "text"},
		RenderTimeout:       60 * time.Second,
		ServerAddr:          ":8080",
		LogLevel:            "info",
		LogFormat:           "console",
		LogTimeFormat:       "2006-01-02T15:04:05Z07:00",
		LogOutput:           "stderr",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// MOCKPAPER_CONFIG, and the environment, in that order of increasing precedence.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnv() {
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)

	c.Model = getEnv("MOCKPAPER_MODEL", c.Model)
	c.Temperature = float32(getFloatEnv("MOCKPAPER_TEMPERATURE", float64(c.Temperature)))
	c.MaxTokens = getIntEnv("MOCKPAPER_MAX_TOKENS", c.MaxTokens)
	c.Language = getEnv("MOCKPAPER_LANGUAGE", c.Language)
	c.DPI = getIntEnv("MOCKPAPER_DPI", c.DPI)
	c.Variants = getIntEnv("MOCKPAPER_VARIANTS", c.Variants)
	c.Difficulty = getEnv("MOCKPAPER_DIFFICULTY", c.Difficulty)
	c.WorkDir = getEnv("MOCKPAPER_WORK_DIR", c.WorkDir)
	c.MaxPages = getIntEnv("MOCKPAPER_MAX_PAGES", c.MaxPages)

	c.OCRBackend = getEnv("OCR_BACKEND", c.OCRBackend)
	c.OCRDevice = getEnv("OCR_DEVICE", c.OCRDevice)
	c.OCRModelDir = getEnv("OCR_MODEL_DIR", c.OCRModelDir)
	c.OCRCacheDir = getEnv("OCR_CACHE_DIR", c.OCRCacheDir)
	c.OCRMinConfidence = getFloatEnv("OCR_MIN_CONFIDENCE", c.OCRMinConfidence)
	c.OCRWorkers = getIntEnv("OCR_WORKERS", c.OCRWorkers)
	c.OCRMagRatio = getFloatEnv("OCR_MAG_RATIO", c.OCRMagRatio)
	c.OCRDebugImages = getBoolEnv("OCR_DEBUG_IMAGES", c.OCRDebugImages)

	c.GoogleCredentials = getEnv("GOOGLE_CREDENTIALS", c.GoogleCredentials)
	c.GoogleApplicationCredentials = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleApplicationCredentials)
	c.GoogleCloudProject = getEnv("GOOGLE_CLOUD_PROJECT", c.GoogleCloudProject)
	c.GoogleCloudLocation = getEnv("GOOGLE_CLOUD_LOCATION", c.GoogleCloudLocation)
	c.DocumentAIProcessorID = getEnv("DOCUMENT_AI_PROCESSOR_ID", c.DocumentAIProcessorID)

	if v := os.Getenv("RENDER_BACKENDS"); v != "" {
		c.RenderBackends = splitList(v)
	}
	if v := os.Getenv("RENDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RenderTimeout = d
		}
	}
	c.ChromePath = getEnv("CHROME_PATH", c.ChromePath)
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogTimeFormat = getEnv("LOG_TIME_FORMAT", c.LogTimeFormat)
	c.LogOutput = getEnv("LOG_OUTPUT", c.LogOutput)
}

func (c *Config) validate() error {
	if c.DPI < MinDPI || c.DPI > MaxDPI {
		return fmt.Errorf("MOCKPAPER_DPI must be between %d and %d, got %d", MinDPI, MaxDPI, c.DPI)
	}
	if c.Variants < 1 || c.Variants > 3 {
		return fmt.Errorf("MOCKPAPER_VARIANTS must be between 1 and 3, got %d", c.Variants)
	}
	if c.OCRMinConfidence < 0 || c.OCRMinConfidence > 1 {
		return fmt.Errorf("OCR_MIN_CONFIDENCE must be between 0 and 1, got %g", c.OCRMinConfidence)
	}
	if c.OCRMagRatio <= 0 {
		return fmt.Errorf("OCR_MAG_RATIO must be positive, got %g", c.OCRMagRatio)
	}
	switch c.OCRBackend {
	case "tesseract", "vision", "documentai":
	default:
		return fmt.Errorf("OCR_BACKEND must be tesseract, vision or documentai, got %q", c.OCRBackend)
	}
	if c.OCRBackend == "tesseract" {
		if c.OCRModelDir == "" {
			return fmt.Errorf("OCR_MODEL_DIR is required for the tesseract backend")
		}
		if samePath(c.OCRModelDir, c.OCRCacheDir) {
			return fmt.Errorf("OCR_CACHE_DIR must differ from OCR_MODEL_DIR")
		}
	}
	if c.OCRBackend == "documentai" && c.DocumentAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai backend")
	}
	if len(c.RenderBackends) == 0 {
		return fmt.Errorf("RENDER_BACKENDS must name at least one backend")
	}
	for _, b := range c.RenderBackends {
		if b != "html" && b != "text" {
			return fmt.Errorf("unknown render backend %q", b)
		}
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// DefaultAPIKey returns the process-level credential for the provider serving model.
func (c *Config) DefaultAPIKey(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "gemini"):
		return c.GeminiAPIKey
	case strings.HasPrefix(m, "claude"):
		return c.AnthropicAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
