package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything a sync run needs. It is built once at process
// start and passed down; nothing reads the environment after Load returns.
type Config struct {
	Addr string
	Env  string

	GoogleCredentialsJSON string
	GoogleSheetName       string
	SheetHeaderRow        int

	SupabaseURL string
	SupabaseKey string

	SyncBatchSize       int
	AlertThresholdBruto float64

	CORSAllowedOrigins []string
	ReadHeaderTimeout  time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
}

// Load reads the environment (plus a local .env, if present). Each missing
// required value fails immediately with a message naming it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:                  getEnv("API_ADDR", ":8080"),
		Env:                   getEnv("APP_ENV", "dev"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_JSON"),
		GoogleSheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		SheetHeaderRow:        getEnvInt("SHEET_HEADER_ROW", 4),
		SupabaseURL:           os.Getenv("SUPABASE_URL"),
		SupabaseKey:           os.Getenv("SUPABASE_KEY"),
		SyncBatchSize:         getEnvInt("SYNC_BATCH_SIZE", 5000),
		AlertThresholdBruto:   getEnvFloat("ALERT_THRESHOLD_BRUTO", 10000000),
		CORSAllowedOrigins: getEnvCSV("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}),
		ReadHeaderTimeout: time.Duration(getEnvInt("API_READ_HEADER_TIMEOUT_SEC", 5)) * time.Second,
		ReadTimeout:       time.Duration(getEnvInt("API_READ_TIMEOUT_SEC", 15)) * time.Second,
		WriteTimeout:      time.Duration(getEnvInt("API_WRITE_TIMEOUT_SEC", 120)) * time.Second,
		IdleTimeout:       time.Duration(getEnvInt("API_IDLE_TIMEOUT_SEC", 60)) * time.Second,
	}

	required := []struct {
		name, value string
	}{
		{"GOOGLE_SHEETS_CREDENTIALS_JSON", cfg.GoogleCredentialsJSON},
		{"GOOGLE_SHEET_NAME", cfg.GoogleSheetName},
		{"SUPABASE_URL", cfg.SupabaseURL},
		{"SUPABASE_KEY", cfg.SupabaseKey},
	}
	for _, req := range required {
		if req.value == "" {
			return Config{}, fmt.Errorf("%s is required", req.name)
		}
	}

	if cfg.SheetHeaderRow < 1 {
		return Config{}, fmt.Errorf("SHEET_HEADER_ROW must be >= 1")
	}
	if cfg.SyncBatchSize < 1 {
		return Config{}, fmt.Errorf("SYNC_BATCH_SIZE must be >= 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvCSV(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
