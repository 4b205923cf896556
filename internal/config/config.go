package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Fallback policies for a failed style-region request.
const (
	FallbackOriginal = "original"
	FallbackError    = "error"
)

// Model runtimes.
const (
	BackendONNX   = "onnx"
	BackendOpenCV = "opencv"
)

// Config holds process configuration read from the environment
type Config struct {
	Port           string `validate:"required,numeric"`
	ModelPath      string `validate:"required"`
	ModelBackend   string `validate:"oneof=onnx opencv"`
	ORTLibraryPath string

	InputSize     int     `validate:"gt=0"`
	ConfThreshold float32 `validate:"gt=0,lte=1"`
	NMSThreshold  float32 `validate:"gt=0,lte=1"`

	GeminiAPIKey       string
	GeminiModel        string        `validate:"required"`
	StylizeTimeout     time.Duration `validate:"gt=0"`
	StylizeMinInterval time.Duration `validate:"gte=0"`
	StylizeFallback    string        `validate:"oneof=original error"`

	FontPath    string
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFile     string
	BodyLimitMB int `validate:"gt=0"`
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8905"),
		ModelPath:      getEnv("MODEL_PATH", "models/yolov8m-face.onnx"),
		ModelBackend:   getEnv("MODEL_BACKEND", BackendONNX),
		ORTLibraryPath: getEnv("ORT_LIBRARY_PATH", ""),

		InputSize:     getEnvInt("INPUT_SIZE", 640),
		ConfThreshold: getEnvFloat("CONF_THRESHOLD", 0.25),
		NMSThreshold:  getEnvFloat("NMS_THRESHOLD", 0.5),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL_NAME", "gemini-2.0-flash-preview-image-generation"),
		StylizeTimeout:     getEnvDuration("STYLIZE_TIMEOUT", 60*time.Second),
		StylizeMinInterval: getEnvDuration("STYLIZE_MIN_INTERVAL", 2*time.Second),
		StylizeFallback:    getEnv("STYLIZE_FALLBACK", FallbackOriginal),

		FontPath:    getEnv("FONT_PATH", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
		BodyLimitMB: getEnvInt("BODY_LIMIT_MB", 50),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float32) float32 {
	if val, err := strconv.ParseFloat(os.Getenv(key), 32); err == nil {
		return float32(val)
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return val
	}
	return defaultVal
}
