package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Telegram TelegramConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Swipe    SwipeConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type TelegramConfig struct {
	BotToken       string
	InitData       string
	InitDataMaxAge time.Duration
	DemoMode       bool
	DemoUserID     int64
}

type CacheConfig struct {
	Driver        string
	ProfilesTTL   time.Duration
	MatchesTTL    time.Duration
	OwnProfileTTL time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout time.Duration
	PoolMaxConns   int32
}

type SwipeConfig struct {
	LoadTimeout           time.Duration
	Threshold             float64
	FadeDistance          float64
	ExitAnimation         time.Duration
	PageSize              int
	DecisionRetryAttempts int
}

const (
	CacheDriverMemory   = "memory"
	CacheDriverRedis    = "redis"
	CacheDriverPostgres = "postgres"

	DefaultAPIBaseURL = "https://unique-reptile-dk-it1-69845c61.koyeb.app"
	DefaultDemoUserID = 123456789
)

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment variables")
)

// Load reads configuration from the process environment. A .env file in the
// working directory is merged first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}

	var missing []string
	var invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}
	optDefault := func(key, fallback string) string {
		if v := opt(key); v != "" {
			return v
		}
		return fallback
	}
	dur := func(key string, fallback time.Duration) time.Duration {
		raw := opt(key)
		if raw == "" {
			return fallback
		}
		d, err := parseDuration(raw)
		if err != nil || d < 0 {
			invalid = append(invalid, key)
			return fallback
		}
		return d
	}
	num := func(key string, fallback int) int {
		raw := opt(key)
		if raw == "" {
			return fallback
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			invalid = append(invalid, key)
			return fallback
		}
		return v
	}
	float := func(key string, fallback float64) float64 {
		raw := opt(key)
		if raw == "" {
			return fallback
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			invalid = append(invalid, key)
			return fallback
		}
		return v
	}
	flag := func(key string, fallback bool) bool {
		raw := opt(key)
		if raw == "" {
			return fallback
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			invalid = append(invalid, key)
			return fallback
		}
		return v
	}

	cfg.App = AppConfig{
		AppName:     optDefault("APP_NAME", "studnet"),
		Environment: req("APP_ENV"),
		HTTPPort:    optDefault("HTTP_PORT", "8080"),
	}

	cfg.API = APIConfig{
		BaseURL:        strings.TrimRight(optDefault("STUDNET_API_BASE_URL", DefaultAPIBaseURL), "/"),
		RequestTimeout: dur("REQUEST_TIMEOUT", 8*time.Second),
	}

	demoUserID := int64(DefaultDemoUserID)
	if raw := opt("DEMO_USER_ID"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			invalid = append(invalid, "DEMO_USER_ID")
		} else {
			demoUserID = v
		}
	}

	cfg.Telegram = TelegramConfig{
		BotToken:       opt("TELEGRAM_BOT_TOKEN"),
		InitData:       opt("TELEGRAM_INIT_DATA"),
		InitDataMaxAge: dur("INIT_DATA_MAX_AGE", 24*time.Hour),
		DemoMode:       flag("DEMO_MODE", cfg.App.Environment != "production"),
		DemoUserID:     demoUserID,
	}

	cfg.Cache = CacheConfig{
		Driver:        strings.ToLower(optDefault("CACHE_DRIVER", CacheDriverMemory)),
		ProfilesTTL:   dur("CACHE_TTL_PROFILES", 5*time.Minute),
		MatchesTTL:    dur("CACHE_TTL_MATCHES", 5*time.Minute),
		OwnProfileTTL: dur("CACHE_TTL_OWN_PROFILE", 10*time.Minute),
	}
	switch cfg.Cache.Driver {
	case CacheDriverMemory, CacheDriverRedis, CacheDriverPostgres:
	default:
		invalid = append(invalid, "CACHE_DRIVER")
	}

	cfg.Redis = RedisConfig{
		Host:     optDefault("REDIS_HOST", "localhost"),
		Port:     optDefault("REDIS_PORT", "6379"),
		Password: opt("REDIS_PASSWORD"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:         opt("DB_HOST"),
		DBPort:         opt("DB_PORT"),
		DBName:         opt("DB_NAME"),
		DBUser:         opt("DB_USER"),
		DBPassword:     opt("DB_PASSWORD"),
		DBSSLMode:      optDefault("DB_SSL_MODE", "disable"),
		ConnectTimeout: dur("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:   int32(num("DB_POOL_MAX_CONNS", 4)),
	}
	if cfg.Cache.Driver == CacheDriverPostgres {
		req("DB_HOST")
		req("DB_NAME")
		req("DB_USER")
	}

	cfg.Swipe = SwipeConfig{
		LoadTimeout:           dur("LOAD_TIMEOUT", 5*time.Second),
		Threshold:             float("SWIPE_THRESHOLD", 100),
		FadeDistance:          float("SWIPE_FADE_DISTANCE", 300),
		ExitAnimation:         dur("EXIT_ANIMATION", 300*time.Millisecond),
		PageSize:              num("PROFILES_PAGE_SIZE", 50),
		DecisionRetryAttempts: num("DECISION_RETRY_ATTEMPTS", 0),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// parseDuration accepts Go duration strings and bare integers as seconds.
func parseDuration(raw string) (time.Duration, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		return time.Duration(v) * time.Second, nil
	}
	return time.ParseDuration(raw)
}
