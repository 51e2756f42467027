package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the app server, the admin panel and supporting services.
type Config struct {
	AppListenAddr      string
	AdminListenAddr    string
	AdminUsername      string
	AdminPasswordHash  string
	MySQLDSN           string
	GeminiAPIKey       string
	GeminiModel        string
	GenerationTimeout  time.Duration
	RequestTimeout     time.Duration
	SessionKey         string
	SessionIdleTimeout time.Duration
	CookieSecure       bool
	CORSAllowedOrigins []string
	UPIPayeeID         string
	UPIPayeeName       string
	PaymentCurrency    string
	ProPriceMinor      int
	BusinessPriceMinor int
	ScreenshotMaxWidth int
	MaxUploadBytes     int64
	S3Endpoint         string
	S3Region           string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3PublicBaseURL    string
	S3UsePathStyle     bool
	S3Prefix           string
	NotifyBotToken     string
	NotifyChatID       int64
	LogLevel           string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppListenAddr:      getEnv("APP_LISTEN_ADDR", ":8080"),
		AdminListenAddr:    getEnv("ADMIN_LISTEN_ADDR", ":8081"),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GenerationTimeout:  time.Second * time.Duration(getInt("GENERATION_TIMEOUT_SECONDS", 60)),
		RequestTimeout:     time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 30)),
		SessionIdleTimeout: time.Minute * time.Duration(getInt("SESSION_IDLE_MINUTES", 120)),
		CookieSecure:       getBool("COOKIE_SECURE", false),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		UPIPayeeName:       getEnv("UPI_PAYEE_NAME", "ECOWRITER AI"),
		PaymentCurrency:    getEnv("PAYMENT_CURRENCY", "INR"),
		ProPriceMinor:      getInt("PLAN_PRO_PRICE_MINOR_UNITS", 49900),
		BusinessPriceMinor: getInt("PLAN_BUSINESS_PRICE_MINOR_UNITS", 99900),
		ScreenshotMaxWidth: getInt("SCREENSHOT_MAX_WIDTH", 1600),
		MaxUploadBytes:     getInt64("MAX_UPLOAD_BYTES", 10<<20),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Region:           os.Getenv("S3_REGION"),
		S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:     getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:           getEnv("S3_PREFIX", "payments"),
		NotifyBotToken:     os.Getenv("NOTIFY_TELEGRAM_BOT_TOKEN"),
		NotifyChatID:       getInt64("NOTIFY_TELEGRAM_CHAT_ID", 0),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	cfg.AdminPasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.SessionKey = os.Getenv("SESSION_KEY")
	cfg.UPIPayeeID = strings.TrimSpace(os.Getenv("UPI_PAYEE_ID"))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed required setting at once.
func (c Config) Validate() error {
	var missing []string
	if c.AdminPasswordHash == "" {
		missing = append(missing, "ADMIN_PASSWORD_HASH")
	}
	if c.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.SessionKey == "" {
		missing = append(missing, "SESSION_KEY")
	}
	if c.UPIPayeeID == "" {
		missing = append(missing, "UPI_PAYEE_ID")
	}
	if c.S3Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if c.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if c.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}
	if c.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if c.S3PublicBaseURL == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	if len(c.SessionKey) < 32 {
		return fmt.Errorf("SESSION_KEY must be at least 32 bytes")
	}
	if c.NotifyBotToken != "" && c.NotifyChatID == 0 {
		return fmt.Errorf("NOTIFY_TELEGRAM_CHAT_ID is required when NOTIFY_TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads the first env file found. Running without one is fine:
// containers usually inject the environment directly.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
