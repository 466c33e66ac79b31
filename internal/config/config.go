package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ozfantasy/trade-window/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	DBURL          string

	CacheEnabled bool
	CacheTTL     time.Duration

	CORSAllowedOrigins []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration

	TradeWriteRetries  int
	RolloverMaxWorkers int
	InternalJobToken   string

	IntrospectBaseURL string
	IntrospectPath    string
	IntrospectTimeout time.Duration

	WebhookURL                   string
	WebhookToken                 string
	WebhookTimeout               time.Duration
	WebhookCircuitEnabled        bool
	WebhookCircuitFailureCount   int
	WebhookCircuitOpenTimeout    time.Duration
	WebhookCircuitHalfOpenMaxReq int

	PprofEnabled bool
	PprofAddr    string

	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration

	UptraceEnabled bool
	UptraceDSN     string

	LogLevel logging.Level
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:            appEnv,
		ServiceName:       getEnv("SERVICE_NAME", "trade-window"),
		ServiceVersion:    getEnv("SERVICE_VERSION", "dev"),
		HTTPAddr:          getEnv("APP_HTTP_ADDR", ":8080"),
		DBURL:             strings.TrimSpace(getEnv("DATABASE_URL", "")),
		InternalJobToken:  strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		IntrospectBaseURL: strings.TrimSpace(getEnv("INTROSPECT_BASE_URL", "")),
		IntrospectPath:    getEnv("INTROSPECT_PATH", "/v1/oauth/introspect"),
		WebhookURL:        strings.TrimSpace(getEnv("TRADE_WEBHOOK_URL", "")),
		WebhookToken:      strings.TrimSpace(getEnv("TRADE_WEBHOOK_TOKEN", "")),
		UptraceDSN:        strings.TrimSpace(getEnv("UPTRACE_DSN", "")),
		LogLevel:          parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}
	cfg.CacheEnabled = cacheEnabled
	cfg.CacheTTL = cacheTTL

	cfg.CORSAllowedOrigins = splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}
	cfg.ReadTimeout = readTimeout
	cfg.WriteTimeout = writeTimeout

	tradeWriteRetries, err := getEnvAsInt("TRADE_WRITE_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse TRADE_WRITE_RETRIES: %w", err)
	}
	if tradeWriteRetries < 0 {
		return Config{}, fmt.Errorf("TRADE_WRITE_RETRIES must be >= 0")
	}
	cfg.TradeWriteRetries = tradeWriteRetries

	rolloverMaxWorkers, err := getEnvAsInt("ROLLOVER_MAX_WORKERS", 8)
	if err != nil {
		return Config{}, fmt.Errorf("parse ROLLOVER_MAX_WORKERS: %w", err)
	}
	if rolloverMaxWorkers < 1 {
		return Config{}, fmt.Errorf("ROLLOVER_MAX_WORKERS must be >= 1")
	}
	cfg.RolloverMaxWorkers = rolloverMaxWorkers

	introspectTimeout, err := time.ParseDuration(getEnv("INTROSPECT_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse INTROSPECT_TIMEOUT: %w", err)
	}
	cfg.IntrospectTimeout = introspectTimeout

	webhookTimeout, err := time.ParseDuration(getEnv("TRADE_WEBHOOK_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TRADE_WEBHOOK_TIMEOUT: %w", err)
	}
	cfg.WebhookTimeout = webhookTimeout

	webhookCircuitEnabled, err := strconv.ParseBool(getEnv("TRADE_WEBHOOK_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TRADE_WEBHOOK_CIRCUIT_ENABLED: %w", err)
	}
	cfg.WebhookCircuitEnabled = webhookCircuitEnabled

	webhookCircuitFailureCount, err := getEnvAsInt("TRADE_WEBHOOK_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse TRADE_WEBHOOK_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if webhookCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("TRADE_WEBHOOK_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	cfg.WebhookCircuitFailureCount = webhookCircuitFailureCount

	webhookCircuitOpenTimeout, err := time.ParseDuration(getEnv("TRADE_WEBHOOK_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TRADE_WEBHOOK_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if webhookCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("TRADE_WEBHOOK_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	cfg.WebhookCircuitOpenTimeout = webhookCircuitOpenTimeout

	webhookCircuitHalfOpenMaxReq, err := getEnvAsInt("TRADE_WEBHOOK_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse TRADE_WEBHOOK_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if webhookCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("TRADE_WEBHOOK_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	cfg.WebhookCircuitHalfOpenMaxReq = webhookCircuitHalfOpenMaxReq

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}
	cfg.PprofEnabled = pprofEnabled
	cfg.PprofAddr = pprofAddr

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeEnabled = pyroscopeEnabled
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName)
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	cfg.PyroscopeUploadRate = pyroscopeUploadRate

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	if uptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	cfg.UptraceEnabled = uptraceEnabled

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}
