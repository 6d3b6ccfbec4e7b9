package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Helpers below read a single environment variable and fall back to the
// supplied default when the variable is unset or unparsable.  The
// lookup function is swappable so tests can feed a map instead of the
// process environment.

var lookupEnv = os.LookupEnv

func envStr(k, d string) string {
	if v, ok := lookupEnv(k); ok && v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v, _ := lookupEnv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v, _ := lookupEnv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v, _ := lookupEnv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	// bare integers are seconds, matching how the hold is advertised ("120s to pay")
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return d
}
