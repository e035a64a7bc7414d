package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// APIMaxPageSize is the largest page the upstream API serves.
const APIMaxPageSize = 250

type Config struct {
	App    AppConfig
	N8N    N8NConfig
	Poll   PollConfig
	Redis  RedisConfig
	JWT    JWTConfig
	Sentry SentryConfig
}

type AppConfig struct {
	Environment string
	HTTPPort    string
	LogLevel    string
	LogFormat   string
}

type N8NConfig struct {
	URL            string
	APIKey         string
	VerifySSL      bool
	RequestTimeout time.Duration
	PageSize       int
	MaxPages       int
	IncludeData    bool
}

// EffectivePageSize caps the configured page size at the API maximum.
func (c N8NConfig) EffectivePageSize() int {
	if c.PageSize > APIMaxPageSize {
		return APIMaxPageSize
	}
	return c.PageSize
}

type PollConfig struct {
	WindowHours  int
	AttrLimit    int
	ScanInterval time.Duration
	PollTimeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

func (c JWTConfig) Enabled() bool {
	return c.Secret != ""
}

type SentryConfig struct {
	DSN string
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidConfig      = errors.New("invalid configuration")
)

func Load() (Config, error) {
	return LoadFrom(afero.NewOsFs(), os.Getenv)
}

// LoadFrom reads CONFIG_FILE (a flat YAML mapping keyed like the environment
// variables) from fsys when set, then lets getenv override it.
func LoadFrom(fsys afero.Fs, getenv func(string) string) (Config, error) {
	file, err := readFile(fsys, strings.TrimSpace(getenv("CONFIG_FILE")))
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(file[key])
	}

	var missing, invalid []string
	req := func(key string) string {
		v := lookup(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, def string) string {
		if v := lookup(key); v != "" {
			return v
		}
		return def
	}
	intIn := func(key string, def, lo, hi int) int {
		raw := lookup(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < lo || n > hi {
			invalid = append(invalid, fmt.Sprintf("%s=%q (want integer in [%d,%d])", key, raw, lo, hi))
			return def
		}
		return n
	}
	boolOpt := func(key string, def bool) bool {
		raw := lookup(key)
		if raw == "" {
			return def
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("%s=%q (want boolean)", key, raw))
			return def
		}
		return b
	}
	seconds := func(key string, def, lo, hi int) time.Duration {
		return time.Duration(intIn(key, def, lo, hi)) * time.Second
	}
	oneOf := func(key, def string, allowed ...string) string {
		v := strings.ToLower(opt(key, def))
		for _, a := range allowed {
			if v == a {
				return v
			}
		}
		invalid = append(invalid, fmt.Sprintf("%s=%q (want one of %s)", key, v, strings.Join(allowed, ", ")))
		return def
	}

	cfg := Config{}
	cfg.N8N = N8NConfig{
		URL:            strings.TrimRight(req("N8N_URL"), "/"),
		APIKey:         req("N8N_API_KEY"),
		VerifySSL:      boolOpt("VERIFY_SSL", true),
		RequestTimeout: seconds("REQUEST_TIMEOUT_SECONDS", 60, 10, 300),
		PageSize:       intIn("PAGE_SIZE", 100, 10, 500),
		MaxPages:       intIn("MAX_PAGES", 20, 1, 100),
		IncludeData:    boolOpt("INCLUDE_EXECUTION_DATA", true),
	}

	cfg.Poll = PollConfig{
		WindowHours:  intIn("WINDOW_HOURS", 6, 1, 168),
		AttrLimit:    intIn("ATTR_LIMIT", 50, 10, 200),
		ScanInterval: seconds("SCAN_INTERVAL_SECONDS", 300, 60, 3600),
		PollTimeout:  seconds("POLL_TIMEOUT_SECONDS", 120, 10, 3600),
	}

	cfg.App = AppConfig{
		Environment: opt("APP_ENV", "development"),
		HTTPPort:    opt("HTTP_PORT", "8080"),
		LogLevel:    oneOf("LOG_LEVEL", "info", "debug", "info", "warn", "error"),
		LogFormat:   oneOf("LOG_FORMAT", "text", "text", "json"),
	}

	cfg.Redis = RedisConfig{
		Addr:     opt("REDIS_ADDR", ""),
		Password: opt("REDIS_PASSWORD", ""),
		DB:       intIn("REDIS_DB", 0, 0, 15),
		TTL:      seconds("REDIS_TTL_SECONDS", 86400, 60, 30*86400),
	}

	cfg.JWT = JWTConfig{
		Secret:    opt("JWT_SECRET", ""),
		ExpiresIn: time.Duration(intIn("JWT_EXPIRES_IN_HOURS", 720, 1, 24*365)) * time.Hour,
	}

	cfg.Sentry = SentryConfig{DSN: opt("SENTRY_DSN", "")}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidConfig, strings.Join(invalid, "; "))
	}

	return cfg, nil
}

func readFile(fsys afero.Fs, path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = fmt.Sprint(v)
	}
	return out, nil
}
