// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, admin auth, site search, websocket keepalive, mail,
// rate limiting and observability settings.
package config

import (
	"errors"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings. The same list
// gates websocket origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the storage backend.
type DBConfig struct {
	Driver string // sqlite|postgres|memory
	Path   string // SQLite file
	URL    string // Postgres DSN
}

// AuthConfig holds the admin JWT settings.
type AuthConfig struct {
	JWTSecret string
	JWTCookie string
}

// SearchConfig tunes the site-backed answer stage.
type SearchConfig struct {
	SeedURLs []string
	Timeout  time.Duration
	CacheTTL time.Duration
	MaxPages int
	RedisURL string // empty keeps the page cache in memory
}

// WSConfig tunes websocket keepalive.
type WSConfig struct {
	PingInterval    time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
}

// EmailConfig configures the SMTP transcript mailer.
type EmailConfig struct {
	Host         string
	Port         int
	User         string
	Pass         string
	From         string
	TranscriptTZ string
}

// Enabled reports whether enough is set to send mail.
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.User != "" && e.Pass != ""
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	DB     DBConfig
	Auth   AuthConfig
	Search SearchConfig
	WS     WSConfig
	Email  EmailConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

var defaultSeedURLs = "https://khisima.com/,https://khisima.com/about-us,https://khisima.com/services,https://khisima.com/contact,https://khisima.com/workplace"

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/agent")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "agent.db"),
			URL:    getenv("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getenv("JWT_SECRET", ""),
			JWTCookie: getenv("JWT_COOKIE", "jwt"),
		},
		Search: SearchConfig{
			SeedURLs: splitCSV(getenv("SEARCH_SEED_URLS", defaultSeedURLs)),
			Timeout:  getdur("SEARCH_TIMEOUT", 8*time.Second),
			CacheTTL: getdur("SEARCH_CACHE_TTL", 15*time.Minute),
			MaxPages: getint("SEARCH_MAX_PAGES", 8),
			RedisURL: getenv("REDIS_URL", ""),
		},
		WS: WSConfig{
			PingInterval:    getdur("WS_PING_INTERVAL", 25*time.Second),
			PongWait:        getdur("WS_PONG_WAIT", 45*time.Second),
			MaxMessageBytes: int64(getint("WS_MAX_MESSAGE_BYTES", 8192)),
		},
		Email: EmailConfig{
			Host:         getenv("EMAIL_HOST", "smtp.hostinger.com"),
			Port:         getint("EMAIL_PORT", 465),
			User:         getenv("EMAIL_USER", ""),
			Pass:         getenv("EMAIL_PASS", ""),
			From:         getenv("EMAIL_FROM", ""),
			TranscriptTZ: getenv("TRANSCRIPT_TZ", "Africa/Kigali"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "agent-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if origin := strings.TrimSpace(getenv("CLIENT_ORIGIN", "")); origin != "" && !slices.Contains(cfg.CORS.AllowedOrigins, origin) {
		cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, origin)
	}
	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.User
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case "memory":
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres, memory")
	}
	if cfg.Search.Timeout <= 0 || cfg.Search.CacheTTL <= 0 {
		return cfg, errors.New("SEARCH_TIMEOUT and SEARCH_CACHE_TTL must be positive durations")
	}
	if cfg.Search.MaxPages < 1 {
		return cfg, errors.New("SEARCH_MAX_PAGES must be >= 1")
	}
	if cfg.WS.PingInterval <= 0 || cfg.WS.PongWait <= 0 {
		return cfg, errors.New("WS_PING_INTERVAL and WS_PONG_WAIT must be positive durations")
	}
	if cfg.WS.PingInterval >= cfg.WS.PongWait {
		return cfg, errors.New("WS_PING_INTERVAL must be shorter than WS_PONG_WAIT")
	}
	if cfg.WS.MaxMessageBytes <= 0 {
		return cfg, errors.New("WS_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.Email.Port <= 0 || cfg.Email.Port > 65535 {
		return cfg, errors.New("EMAIL_PORT must be a valid TCP port")
	}
	if _, err := time.LoadLocation(cfg.Email.TranscriptTZ); err != nil {
		return cfg, errors.New("TRANSCRIPT_TZ must be a valid IANA time zone")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// TranscriptLocation resolves TRANSCRIPT_TZ, falling back to UTC.
func (c Config) TranscriptLocation() *time.Location {
	loc, err := time.LoadLocation(c.Email.TranscriptTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
