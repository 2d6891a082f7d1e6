package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Extraction modes.
const (
	ModeAuto = "auto"
	ModeText = "text"
	ModeOCR  = "ocr"
)

// Backends for page text and page images.
const (
	BackendFitz    = "fitz"
	BackendPoppler = "poppler"
)

// DefaultOCRPages is the page budget of an OCR run when PAGES is not set.
const DefaultOCRPages = 5

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
	BatchSize     int
}

// ExtractConfig describes one extraction run.
type ExtractConfig struct {
	PDFPath       string
	OutPath       string
	DataDir       string
	Mode          string
	Pages         int
	PagesSet      bool
	TesseractCmd  string
	PopplerPath   string
	TextBackend   string
	RenderBackend string
	OCREngine     string
	OCRLanguage   string
	OCRDPI        int
	TextThreshold int
	Timeout       time.Duration
}

// StorageConfig holds S3 connectivity for remote inputs and outputs.
type StorageConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Password  string
}

// QueueConfig defines queue connectivity and names.
type QueueConfig struct {
	RedisURL    string
	Stream      string
	Group       string
	Consumer    string
	Concurrency int
	BlockFor    time.Duration
}

// MetricsConfig controls Prometheus output.
type MetricsConfig struct {
	Textfile string
	Addr     string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Extract ExtractConfig
	Storage StorageConfig
	Queue   QueueConfig
	Metrics MetricsConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_taskspares",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
		BatchSize:     parseInt(getEnv("AXIOM_BATCH_SIZE", "200"), 200),
	}

	// Extraction defaults
	pages, pagesSet := os.LookupEnv("PAGES")
	pagesSet = pagesSet && isInt(pages)
	cfg.Extract = ExtractConfig{
		PDFPath:       strings.TrimSpace(os.Getenv("PDF_PATH")),
		OutPath:       getEnv("OUT_PATH", ""),
		DataDir:       getEnv("DATA_DIR", ""),
		Mode:          strings.ToLower(getEnv("EXTRACT_MODE", ModeAuto)),
		Pages:         parseInt(pages, 0),
		PagesSet:      pagesSet,
		TesseractCmd:  getEnv("TESSERACT_CMD", "tesseract"),
		PopplerPath:   getEnv("POPPLER_PATH", ""),
		TextBackend:   strings.ToLower(getEnv("TEXT_BACKEND", BackendFitz)),
		RenderBackend: strings.ToLower(getEnv("RENDER_BACKEND", BackendFitz)),
		OCREngine:     strings.ToLower(getEnv("OCR_ENGINE", "cli")),
		OCRLanguage:   getEnv("OCR_LANG", "eng"),
		OCRDPI:        parseInt(getEnv("OCR_DPI", "300"), 300),
		TextThreshold: parseInt(getEnv("TEXT_THRESHOLD", "300"), 300),
		Timeout:       parseDuration(getEnv("EXTRACT_TIMEOUT", "10m"), 10*time.Minute),
	}

	cfg.Storage = StorageConfig{
		Region:    getEnv("S3_REGION", ""),
		Endpoint:  getEnv("S3_ENDPOINT", ""),
		AccessKey: getEnv("S3_ACCESS_KEY", ""),
		SecretKey: getEnv("S3_SECRET_KEY", ""),
		Password:  getEnv("S3_PASSWORD", ""),
	}

	// Queue defaults
	host, _ := os.Hostname()
	cfg.Queue = QueueConfig{
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		Stream:      getEnv("QUEUE_STREAM", "jobs:taskspares"),
		Group:       getEnv("QUEUE_GROUP", "workers:taskspares"),
		Consumer:    getEnv("QUEUE_CONSUMER", host),
		Concurrency: parseInt(getEnv("WORKER_CONCURRENCY", "2"), 2),
		BlockFor:    parseDuration(getEnv("QUEUE_BLOCK", "2s"), 2*time.Second),
	}

	cfg.Metrics = MetricsConfig{
		Textfile: getEnv("METRICS_TEXTFILE", ""),
		Addr:     getEnv("METRICS_ADDR", ":9090"),
	}

	return cfg
}

// EffectivePages resolves the page budget: an explicit value wins, OCR runs
// default to DefaultOCRPages, everything else reads the whole document.
func (e ExtractConfig) EffectivePages(mode string) int {
	if e.PagesSet {
		return e.Pages
	}
	if mode == ModeOCR {
		return DefaultOCRPages
	}
	return 0
}

// Validate rejects values no run can use. It does not check PDFPath; that
// is a per-run precondition.
func (e ExtractConfig) Validate() error {
	switch e.Mode {
	case ModeAuto, ModeText, ModeOCR:
	default:
		return fmt.Errorf("unknown extraction mode %q (want auto, text or ocr)", e.Mode)
	}
	for name, b := range map[string]string{"text": e.TextBackend, "render": e.RenderBackend} {
		if b != BackendFitz && b != BackendPoppler {
			return fmt.Errorf("unknown %s backend %q (want fitz or poppler)", name, b)
		}
	}
	if e.Pages < 0 {
		return fmt.Errorf("pages must be >= 0, got %d", e.Pages)
	}
	if e.OCRDPI <= 0 {
		return fmt.Errorf("ocr dpi must be > 0, got %d", e.OCRDPI)
	}
	return nil
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func isInt(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
