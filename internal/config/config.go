package config // package config loads client configuration from defaults, an optional YAML file and the environment

import (
	"errors"        // errors reports a missing optional .env file
	"fmt"           // fmt wraps configuration errors with the offending key
	"io/fs"         // fs.ErrNotExist identifies a missing .env file
	"net/url"       // url validates the service base URL
	"os"            // os reads the YAML file and resolves user directories
	"path/filepath" // filepath builds the default session and log paths
	"strings"       // strings normalizes the session store kind
	"time"          // time types the poll, hold and request durations

	"github.com/joho/godotenv" // godotenv loads KEY=VALUE pairs from .env files
	"gopkg.in/yaml.v3"         // yaml decodes the optional configuration file
)

// Config holds every runtime setting of the client.  Values come from
// three layers applied in order: built-in defaults, the YAML file named
// by TICKET_CONFIG (or --config), and finally environment variables,
// which always win.
type Config struct {
	APIURL         string        `yaml:"api_url"`         // base URL of the ticketing service, including the /api prefix
	PollInterval   time.Duration `yaml:"poll_interval"`   // period of the seat synchronizer
	HoldDuration   time.Duration `yaml:"hold_duration"`   // lock lifetime the service is expected to honour
	RequestTimeout time.Duration `yaml:"request_timeout"` // upper bound for a single HTTP request
	SeatPrice      float64       `yaml:"seat_price"`      // price shown on the payment panel

	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
}

// SessionConfig selects where the session credential is persisted.
type SessionConfig struct {
	Store string `yaml:"store"` // "file" or "redis"
	File  string `yaml:"file"`  // path used by the file store
	Key   string `yaml:"key"`   // key used by the redis store
}

// Session store kinds.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// RedisConfig describes the redis server backing the redis session store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty or "-" logs to stderr
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		APIURL:         "http://localhost:8090/api",
		PollInterval:   2 * time.Second,
		HoldDuration:   120 * time.Second,
		RequestTimeout: 5 * time.Second,
		SeatPrice:      50,
		Session: SessionConfig{
			Store: StoreFile,
			File:  defaultPath(os.UserConfigDir, "session"),
			Key:   "ticketctl:session",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Log: LogConfig{
			Level: "info",
			File:  defaultPath(os.UserCacheDir, "ticketctl.log"),
		},
	}
}

// LoadDotEnv loads the given .env files (".env" when none are named)
// into the process environment.  Variables already set are left
// untouched and missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration.  path names a YAML file; when empty
// the TICKET_CONFIG variable is consulted, and when that is empty too
// only defaults and environment are used.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = envStr("TICKET_CONFIG", "")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on cfg.  Redis variables
// follow the same rules as NewRedisClient.
func applyEnv(cfg *Config) {
	cfg.APIURL = envStr("TICKET_API_URL", cfg.APIURL)
	cfg.PollInterval = envDur("TICKET_POLL_INTERVAL", cfg.PollInterval)
	cfg.HoldDuration = envDur("TICKET_HOLD_DURATION", cfg.HoldDuration)
	cfg.RequestTimeout = envDur("TICKET_REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.Session.Store = strings.ToLower(envStr("TICKET_SESSION_STORE", cfg.Session.Store))
	cfg.Session.File = envStr("TICKET_SESSION_FILE", cfg.Session.File)
	cfg.Session.Key = envStr("TICKET_SESSION_KEY", cfg.Session.Key)

	cfg.Redis.Addr = redisAddr(cfg.Redis.Addr)
	cfg.Redis.Password = envStr("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TLS = envBool("REDIS_TLS", cfg.Redis.TLS)

	cfg.Log.Level = envStr("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = envStr("LOG_FILE", cfg.Log.File)
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid TICKET_API_URL %q: want an absolute http(s) URL", c.APIURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid TICKET_POLL_INTERVAL %s: must be positive", c.PollInterval)
	}
	if c.HoldDuration <= 0 {
		return fmt.Errorf("invalid TICKET_HOLD_DURATION %s: must be positive", c.HoldDuration)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid TICKET_REQUEST_TIMEOUT %s: must be positive", c.RequestTimeout)
	}
	switch c.Session.Store {
	case StoreFile:
		if c.Session.File == "" {
			return errors.New("TICKET_SESSION_FILE is required for the file session store")
		}
	case StoreRedis:
		if c.Session.Key == "" {
			return errors.New("TICKET_SESSION_KEY is required for the redis session store")
		}
	default:
		return fmt.Errorf("invalid TICKET_SESSION_STORE %q: want %q or %q", c.Session.Store, StoreFile, StoreRedis)
	}
	return nil
}

// defaultPath joins name under the ticketctl directory of the user
// directory returned by dir, or under the working directory when the
// user directory cannot be determined.
func defaultPath(dir func() (string, error), name string) string {
	base, err := dir()
	if err != nil || base == "" {
		return filepath.Join(".ticketctl", name)
	}
	return filepath.Join(base, "ticketctl", name)
}
