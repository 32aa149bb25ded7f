package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderKIE    = "kie"
)

// Config aggregates runtime configuration for the API and supporting services.
type Config struct {
	ListenAddr      string
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	MySQLDSN  string
	RedisURL  string
	JWTSecret string

	AdminUsername string
	AdminPassword string

	ImageProvider     string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	KIEAPIKey         string
	KIEBaseURL        string
	GenerationTimeout time.Duration

	AssetTimeout        time.Duration
	CompensationTimeout time.Duration
	MaxImageBytes       int64

	ImageCostCredits   int
	VideoCostCredits   int
	DefaultUserCredits int

	RateLimitPerMinute int

	TelegramBotToken    string
	TelegramAlertChatID int64

	SentryDSN         string
	SentryEnvironment string

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const (
		defaultKIEBaseURL    = "https://api.kie.ai"
		defaultOpenAIBaseURL = "https://api.openai.com"
	)

	cfg := Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		ReadTimeout:         getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        getDuration("WRITE_TIMEOUT", 5*time.Minute),
		ShutdownTimeout:     getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		RedisURL:            getEnv("REDIS_URL", ""),
		AdminUsername:       getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", "change-me"),
		ImageProvider:       strings.ToLower(getEnv("IMAGE_PROVIDER", ProviderOpenAI)),
		OpenAIBaseURL:       strings.TrimRight(getEnv("OPENAI_BASE_URL", defaultOpenAIBaseURL), "/"),
		KIEBaseURL:          normalizeKIEBaseURL(getEnv("KIE_BASE_URL", defaultKIEBaseURL), defaultKIEBaseURL),
		GenerationTimeout:   getDuration("GENERATION_TIMEOUT", 2*time.Minute),
		AssetTimeout:        getDuration("ASSET_TIMEOUT", 30*time.Second),
		CompensationTimeout: getDuration("COMPENSATION_TIMEOUT", 10*time.Second),
		MaxImageBytes:       getInt64("MAX_IMAGE_BYTES", 10<<20),
		ImageCostCredits:    getInt("IMAGE_COST_CREDITS", 5),
		VideoCostCredits:    getInt("VIDEO_COST_CREDITS", 10),
		DefaultUserCredits:  getInt("DEFAULT_USER_CREDITS", 20),
		RateLimitPerMinute:  getInt("RATE_LIMIT_PER_MINUTE", 10),
		TelegramAlertChatID: getInt64("TELEGRAM_ALERT_CHAT_ID", 0),
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		SentryEnvironment:   getEnv("SENTRY_ENVIRONMENT", "production"),
		S3Endpoint:          getEnv("S3_ENDPOINT", ""),
		S3Region:            os.Getenv("S3_REGION"),
		S3AccessKey:         os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:         os.Getenv("S3_SECRET_KEY"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:     os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:      getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:            getEnv("S3_PREFIX", "promoshot"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.KIEAPIKey = os.Getenv("KIE_API_KEY")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch cfg.ImageProvider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case ProviderKIE:
		if cfg.KIEAPIKey == "" {
			missing = append(missing, "KIE_API_KEY")
		}
	default:
		return Config{}, fmt.Errorf("unsupported IMAGE_PROVIDER: %s", cfg.ImageProvider)
	}
	if cfg.S3Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if cfg.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if cfg.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}
	if cfg.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if cfg.S3PublicBaseURL == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.ImageCostCredits <= 0 || cfg.VideoCostCredits <= 0 {
		return Config{}, fmt.Errorf("credit costs must be positive")
	}

	return cfg, nil
}

// TelegramAlertsEnabled reports whether operator alerts should be sent to Telegram.
func (c Config) TelegramAlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAlertChatID != 0
}

// normalizeKIEBaseURL ensures we always hit the documented API host. The root kie.ai domain
// serves the marketing site and answers API paths with HTML.
func normalizeKIEBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	if parsed.Host == "kie.ai" {
		parsed.Host = "api.kie.ai"
	}

	return parsed.String()
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

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// loadEnvFile overlays the first env file found. Missing files are fine: in containers
// everything comes from the real environment.
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
