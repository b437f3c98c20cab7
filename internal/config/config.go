package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile は読み込む.envファイルの既定パス。
const DefaultEnvFile = ".env"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Upstream
	UpstreamBaseURL   string
	AccessToken       string
	UpstreamTimeout   time.Duration
	UpstreamRateLimit float64 // req/sec、0は無制限
	UpstreamRateBurst int

	// Fetch
	PostsMaxConcurrent    int
	CommentsMaxConcurrent int
	RefreshInterval       time.Duration // 0は起動時のみ
	RefreshInitialBackoff time.Duration
	RefreshMaxBackoff     time.Duration
	RefreshMinInterval    time.Duration // 手動更新の最小間隔、0は無制限

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort        string
	TrustProxyHeaders bool

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogFormat string
}

// LoadEnvFile は.envファイルの内容を環境変数に読み込む。
// 既に設定されている環境変数は上書きしない。ファイルが存在しない場合は何もしない。
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.UpstreamBaseURL = os.Getenv("TEST_SERVER_BASE_URL")
	if cfg.UpstreamBaseURL == "" {
		missing = append(missing, "TEST_SERVER_BASE_URL")
	}

	cfg.AccessToken = os.Getenv("ACCESS_TOKEN")
	if cfg.AccessToken == "" {
		missing = append(missing, "ACCESS_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.UpstreamRateLimit = getEnvFloat("UPSTREAM_RATE_LIMIT", 0)
	cfg.UpstreamRateBurst = getEnvInt("UPSTREAM_RATE_BURST", 10)
	cfg.PostsMaxConcurrent = getEnvInt("POSTS_MAX_CONCURRENT", 10)
	cfg.CommentsMaxConcurrent = getEnvInt("COMMENTS_MAX_CONCURRENT", 10)
	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 0)
	cfg.RefreshInitialBackoff = getEnvDuration("REFRESH_INITIAL_BACKOFF", 5*time.Second)
	cfg.RefreshMaxBackoff = getEnvDuration("REFRESH_MAX_BACKOFF", 5*time.Minute)
	cfg.RefreshMinInterval = getEnvDuration("REFRESH_MIN_INTERVAL", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("PORT", "3000")
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
