package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withEnv replaces the environment seen by Load for the duration of the test.
func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	prev := lookupEnv
	lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = prev })
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, nil)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8090/api", cfg.APIURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 120*time.Second, cfg.HoldDuration)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 50.0, cfg.SeatPrice)
	assert.Equal(t, StoreFile, cfg.Session.Store)
	assert.NotEmpty(t, cfg.Session.File)
	assert.Equal(t, "ticketctl:session", cfg.Session.Key)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "ticketctl.yaml", `
api_url: http://yaml.example:9000/api
poll_interval: 5s
hold_duration: 60s
seat_price: 12.5
session:
  store: redis
  key: yaml:session
redis:
  addr: yaml-redis:6379
  db: 3
log:
  level: debug
`)
	withEnv(t, map[string]string{
		"TICKET_POLL_INTERVAL": "1s",
		"TICKET_HOLD_DURATION": "90", // bare seconds
		"REDIS_HOST":           "env-redis",
		"REDIS_PORT":           "6380",
		"REDIS_TLS":            "true",
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://yaml.example:9000/api", cfg.APIURL, "yaml overrides defaults")
	assert.Equal(t, time.Second, cfg.PollInterval, "env overrides yaml")
	assert.Equal(t, 90*time.Second, cfg.HoldDuration)
	assert.Equal(t, 12.5, cfg.SeatPrice)
	assert.Equal(t, StoreRedis, cfg.Session.Store)
	assert.Equal(t, "yaml:session", cfg.Session.Key)
	assert.Equal(t, "env-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Redis.TLS)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout, "unset keys keep defaults")
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	path := writeFile(t, "c.yaml", "api_url: https://tickets.example/api\n")
	withEnv(t, map[string]string{"TICKET_CONFIG": path})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://tickets.example/api", cfg.APIURL)
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	withEnv(t, map[string]string{"TICKET_POLL_INTERVAL": "soon"})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"zero poll":        {"TICKET_POLL_INTERVAL": "0s"},
		"negative hold":    {"TICKET_HOLD_DURATION": "-1s"},
		"relative url":     {"TICKET_API_URL": "localhost/api"},
		"unknown store":    {"TICKET_SESSION_STORE": "etcd"},
		"zero req timeout": {"TICKET_REQUEST_TIMEOUT": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			withEnv(t, env)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	withEnv(t, nil)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	withEnv(t, nil)
	path := writeFile(t, "bad.yaml", "poll_interval: [1, 2\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "TICKETCTL_DOTENV_PROBE"
	t.Cleanup(func() { os.Unsetenv(key) })
	path := writeFile(t, ".env", key+"=from-dotenv\n")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv(key))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")), "missing files are ignored")
}

func TestLoadStub(t *testing.T) {
	withEnv(t, nil)
	c, err := LoadStub()
	require.NoError(t, err)
	assert.Equal(t, "8090", c.Port)
	assert.Equal(t, time.Hour, c.AccessTTL)
	assert.Equal(t, 120*time.Second, c.HoldDuration)
	assert.Equal(t, 20, c.Rows*c.Cols)
	assert.Equal(t, "-", c.Log.File)

	withEnv(t, map[string]string{
		"APP_PORT":             "9999",
		"JWT_SECRET":           "s3cret",
		"ACCESS_TOKEN_TTL_MIN": "15",
		"TICKET_HOLD_DURATION": "30",
		"STUB_ROWS":            "2",
		"STUB_COLS":            "3",
		"STUB_DEMO_USER":       "demo@example.com:demo",
	})
	c, err = LoadStub()
	require.NoError(t, err)
	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, 15*time.Minute, c.AccessTTL)
	assert.Equal(t, 30*time.Second, c.HoldDuration)
	assert.Equal(t, 2, c.Rows)
	assert.Equal(t, 3, c.Cols)
	assert.Equal(t, "demo@example.com:demo", c.DemoUser)

	withEnv(t, map[string]string{"STUB_ROWS": "0"})
	_, err = LoadStub()
	assert.Error(t, err)
}
