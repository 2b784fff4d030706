package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Catalog    CatalogConfig
	Extraction ExtractionConfig
	Matching   MatchingConfig
	Batch      BatchConfig
	Report     ReportConfig
}

// CatalogConfig holds feature-catalog configuration
type CatalogConfig struct {
	Path string // empty -> built-in default mapping
}

// ExtractionConfig holds text-extraction configuration
type ExtractionConfig struct {
	Pdftotext        string
	Pdftoppm         string
	Tesseract        string
	TesseractLang    string
	TessdataDir      string
	DPI              int
	MaxPages         int
	MinTextChars     int
	MinWordCharRatio float64
	Timeout          time.Duration
}

// MatchingConfig holds matcher and resolver policy configuration
type MatchingConfig struct {
	ConfidenceThreshold float64
	TieMargin           float64
	ScoreFloor          float64
	SectionGating       bool
}

// BatchConfig holds batch-worker configuration
type BatchConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// ReportConfig holds report persistence/export configuration
type ReportConfig struct {
	StorePath  string
	ExportPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		Extraction: ExtractionConfig{
			Pdftotext:        getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:         getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:    getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			DPI:              getEnvAsInt("EXTRACT_DPI", 300),
			MaxPages:         getEnvAsInt("EXTRACT_MAX_PAGES", 0),
			MinTextChars:     getEnvAsInt("EXTRACT_MIN_TEXT_CHARS", 100),
			MinWordCharRatio: getEnvAsFloat64("EXTRACT_MIN_WORD_CHAR_RATIO", 0.5),
			Timeout:          getEnvAsDuration("EXTRACT_TIMEOUT", 90*time.Second),
		},
		Matching: MatchingConfig{
			ConfidenceThreshold: getEnvAsFloat64("MATCH_CONFIDENCE_THRESHOLD", 0.8),
			TieMargin:           getEnvAsFloat64("MATCH_TIE_MARGIN", 0.03),
			ScoreFloor:          getEnvAsFloat64("MATCH_SCORE_FLOOR", 0.5),
			SectionGating:       getEnvAsBool("TOKENIZE_SECTION_GATING", false),
		},
		Batch: BatchConfig{
			Workers:   getEnvAsInt("BATCH_WORKERS", 4),
			QueueSize: getEnvAsInt("BATCH_QUEUE_SIZE", 256),
			Timeout:   getEnvAsDuration("BATCH_DOC_TIMEOUT", 3*time.Minute),
		},
		Report: ReportConfig{
			StorePath:  getEnv("REPORT_STORE_PATH", "./reports.db"),
			ExportPath: getEnv("REPORT_EXPORT_PATH", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Matching.ConfidenceThreshold < 0 || c.Matching.ConfidenceThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "MATCH_CONFIDENCE_THRESHOLD must be in [0,1]", ErrInvalidInput)
	}
	if c.Matching.TieMargin < 0 || c.Matching.TieMargin > 1 {
		return NewAppError("CONFIG_ERROR", "MATCH_TIE_MARGIN must be in [0,1]", ErrInvalidInput)
	}
	if c.Matching.ScoreFloor < 0 || c.Matching.ScoreFloor > 1 {
		return NewAppError("CONFIG_ERROR", "MATCH_SCORE_FLOOR must be in [0,1]", ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
