package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// NamingUnique names artifacts with a generated identifier.
	NamingUnique = "unique"
	// NamingTimestamp names artifacts "{YYYYMMDDHHMMSS}_{original filename}".
	NamingTimestamp = "timestamp"
)

type Config struct {
	Port             int
	StaticDirectory  string
	ResultsDirectory string
	LogDirectory     string
	DatabasePath     string // empty disables the artifact ledger

	ModelPath           string
	ModelConfigPath     string
	ModelName           string
	ModelKind           string // "ssd" or "yolov8"
	LabelsPath          string
	ConfidenceThreshold float64
	NMSThreshold        float64
	InferenceWorkers    int

	MaxUploadSize int64 // bytes
	OutputFormat  string
	JPEGQuality   int
	ArtifactNames string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	// A missing .env file is fine.
	_ = godotenv.Load()

	staticDir := getEnv("STATIC_DIR", "static")

	return &Config{
		Port:             getEnvAsInt("PORT", 8000),
		StaticDirectory:  staticDir,
		ResultsDirectory: getEnv("RESULTS_DIR", filepath.Join(staticDir, "results")),
		LogDirectory:     getEnv("LOG_DIR", "logs"),
		DatabasePath:     getEnvAllowEmpty("DATABASE_PATH", filepath.Join("data", "artifacts.db")),

		ModelPath:           getEnv("MODEL_PATH", filepath.Join("models", "yolov8n.onnx")),
		ModelConfigPath:     getEnv("MODEL_CONFIG_PATH", ""),
		ModelName:           getEnv("MODEL_NAME", "yolov8n"),
		ModelKind:           getEnv("MODEL_KIND", "yolov8"),
		LabelsPath:          getEnv("LABELS_PATH", ""),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.5),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.45),
		InferenceWorkers:    getEnvAsInt("INFERENCE_WORKERS", 2),

		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_MB", 32) << 20,
		OutputFormat:  getEnv("OUTPUT_FORMAT", "png"),
		JPEGQuality:   getEnvAsInt("JPEG_QUALITY", 90),
		ArtifactNames: getEnv("ARTIFACT_NAMING", NamingUnique),

		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 120)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty returns the default only when the key is unset,
// so KEY= can switch a feature off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
