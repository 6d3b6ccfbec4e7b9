package config

import (
	"fmt"
	"time"
)

// StubConfig configures the standalone stub ticketing service run by
// cmd/server.  Variable names follow the real service so the same .env
// file can drive either.
type StubConfig struct {
	Env          string        // APP_ENV
	Port         string        // APP_PORT
	JWTSecret    string        // JWT_SECRET
	AccessTTL    time.Duration // ACCESS_TOKEN_TTL_MIN, in minutes
	BcryptCost   int           // BCRYPT_COST
	HoldDuration time.Duration // TICKET_HOLD_DURATION
	SeatPrice    float64       // amount recorded per booking
	Rows         int           // STUB_ROWS
	Cols         int           // STUB_COLS
	DemoUser     string        // STUB_DEMO_USER, "email:password"; empty for none
	Log          LogConfig     // LOG_LEVEL, LOG_FILE (stderr by default)
}

// LoadStub reads the stub service configuration from the environment.
func LoadStub() (StubConfig, error) {
	c := StubConfig{
		Env:          envStr("APP_ENV", "dev"),
		Port:         envStr("APP_PORT", "8090"),
		JWTSecret:    envStr("JWT_SECRET", "stub-secret"),
		AccessTTL:    time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute,
		BcryptCost:   envInt("BCRYPT_COST", 10),
		HoldDuration: envDur("TICKET_HOLD_DURATION", 120*time.Second),
		SeatPrice:    50,
		Rows:         envInt("STUB_ROWS", 4),
		Cols:         envInt("STUB_COLS", 5),
		DemoUser:     envStr("STUB_DEMO_USER", ""),
		Log:          LogConfig{Level: envStr("LOG_LEVEL", "info"), File: envStr("LOG_FILE", "-")},
	}
	if c.Rows <= 0 || c.Cols <= 0 || c.Rows > 26 {
		return StubConfig{}, fmt.Errorf("invalid seat grid %dx%d", c.Rows, c.Cols)
	}
	if c.AccessTTL <= 0 || c.HoldDuration <= 0 {
		return StubConfig{}, fmt.Errorf("invalid durations: token %s, hold %s", c.AccessTTL, c.HoldDuration)
	}
	return c, nil
}
