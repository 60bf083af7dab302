package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int
	ModelPath           string
	LabelsPath          string
	InputSize           int     // Square side of the network input blob
	ConfidenceThreshold float64 // Minimum class score kept before NMS
	NMSThreshold        float64
	UploadDirectory     string
	OutputDirectory     string
	StaticDirectory     string
	DatabasePath        string
	LogDirectory        string
	MaxImages           int   // Upper bound of files per batch request
	MaxUploadSize       int64 // Multipart body limit in MB
	VideoCodec          string
	ProgressEvery       int // Broadcast video progress every N frames
}

// Load reads configuration from the environment, after merging an optional .env file.
func Load() *Config {
	// Missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	return &Config{
		Port:                getEnvAsInt("PORT", 8000),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "best.onnx")),
		LabelsPath:          getEnv("LABELS_PATH", ""),
		InputSize:           getEnvAsInt("INPUT_SIZE", 640),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.45),
		UploadDirectory:     getEnv("UPLOAD_DIR", filepath.Join(".", "app", "uploads")),
		OutputDirectory:     getEnv("OUTPUT_DIR", filepath.Join(".", "app", "output")),
		StaticDirectory:     getEnv("STATIC_DIR", filepath.Join(".", "static")),
		DatabasePath:        getEnv("DB_PATH", filepath.Join(".", "data", "aerodetect.db")),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		MaxImages:           getEnvAsInt("MAX_IMAGES", 8),
		MaxUploadSize:       getEnvAsInt64("MAX_UPLOAD_MB", 512),
		VideoCodec:          getEnv("VIDEO_CODEC", "avc1"), // H.264
		ProgressEvery:       getEnvAsInt("PROGRESS_EVERY", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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
