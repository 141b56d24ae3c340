package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/locate-service/internal/businessday"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Compliance   ComplianceConfig
	Region       RegionConfig
	Validation   ValidationConfig
	Worker       WorkerConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StorageConfig locates the ticket documents on disk.
type StorageConfig struct {
	DataDir string
}

// RedisConfig holds Redis connection values. An empty Addr disables the
// ticket cache.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	CacheTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters. The secret hashes are
// bcrypt hashes of the shared secrets agents and operators exchange for
// a token.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AgentSecretHash       string
	OperatorSecretHash    string
	BcryptCost            int
}

// ComplianceConfig holds the statutory intervals and holiday sources.
type ComplianceConfig struct {
	HolidaysFile       string
	Holidays           string
	TimeZone           string
	WaitBusinessDays   int
	ValidityDays       int
	ExpiringWindowHour int
}

// RegionConfig is the service area bounding box used for GPS sanity
// checks. Defaults cover Texas.
type RegionConfig struct {
	Name   string
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// ValidationConfig tunes the rule engine.
type ValidationConfig struct {
	ConfidenceFloor float64
}

// WorkerConfig controls background jobs.
type WorkerConfig struct {
	ExpiryScanIntervalSeconds int
}

// RateLimitConfig bounds per-client request rates. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "locate-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			CacheTTLSeconds: getEnvAsInt("REDIS_CACHE_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AgentSecretHash:       os.Getenv("AUTH_AGENT_SECRET_HASH"),
			OperatorSecretHash:    os.Getenv("AUTH_OPERATOR_SECRET_HASH"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Compliance: ComplianceConfig{
			HolidaysFile:       getEnv("HOLIDAYS_FILE", "config/holidays.yaml"),
			Holidays:           os.Getenv("HOLIDAYS"),
			TimeZone:           getEnv("COMPLIANCE_TIMEZONE", "America/Chicago"),
			WaitBusinessDays:   getEnvAsInt("COMPLIANCE_WAIT_BUSINESS_DAYS", 2),
			ValidityDays:       getEnvAsInt("COMPLIANCE_VALIDITY_DAYS", 14),
			ExpiringWindowHour: getEnvAsInt("COMPLIANCE_EXPIRING_WINDOW_HOURS", 72),
		},
		Region: RegionConfig{
			Name:   getEnv("REGION_NAME", "Texas"),
			MinLat: getEnvAsFloat("REGION_MIN_LAT", 25.84),
			MaxLat: getEnvAsFloat("REGION_MAX_LAT", 36.5),
			MinLng: getEnvAsFloat("REGION_MIN_LNG", -106.65),
			MaxLng: getEnvAsFloat("REGION_MAX_LNG", -93.51),
		},
		Validation: ValidationConfig{
			ConfidenceFloor: getEnvAsFloat("VALIDATION_CONFIDENCE_FLOOR", 0.5),
		},
		Worker: WorkerConfig{
			ExpiryScanIntervalSeconds: getEnvAsInt("WORKER_EXPIRY_SCAN_INTERVAL_SECONDS", 300),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if cfg.Region.MinLat >= cfg.Region.MaxLat || cfg.Region.MinLng >= cfg.Region.MaxLng {
		return nil, fmt.Errorf("invalid region bounding box")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns how long a cached ticket stays valid.
func (r RedisConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// ExpiringWindow returns how long before expiry a ticket reads as expiring.
func (c ComplianceConfig) ExpiringWindow() time.Duration {
	return time.Duration(c.ExpiringWindowHour) * time.Hour
}

// Location resolves the compliance time zone.
func (c ComplianceConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLIANCE_TIMEZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// LoadCalendar reads the holiday file, when one is configured, and
// merges the HOLIDAYS list on top.
func (c ComplianceConfig) LoadCalendar() (businessday.Calendar, error) {
	cal := businessday.NewCalendar()
	if c.HolidaysFile != "" {
		loaded, err := businessday.LoadCalendar(c.HolidaysFile)
		if err != nil {
			return businessday.Calendar{}, err
		}
		cal = loaded
	}
	extra, err := businessday.ParseDateList(c.Holidays)
	if err != nil {
		return businessday.Calendar{}, fmt.Errorf("invalid HOLIDAYS: %w", err)
	}
	return cal.With(extra...), nil
}

// ScanInterval returns the expiry watcher period.
func (w WorkerConfig) ScanInterval() time.Duration {
	if w.ExpiryScanIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(w.ExpiryScanIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
