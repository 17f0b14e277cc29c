package app

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Env helpers never fail: an unset, blank or unparsable variable yields the default, and so
// does a value outside the accepted range.

func envValue(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func envParse[T any](key string, def T, parse func(string) (T, error), accept func(T) bool) T {
	raw, ok := envValue(key)
	if !ok {
		return def
	}
	v, err := parse(raw)
	if err != nil || (accept != nil && !accept(v)) {
		return def
	}
	return v
}

// EnvString reads a string env var with a default.
func EnvString(key, def string) string {
	if v, ok := envValue(key); ok {
		return v
	}
	return def
}

// EnvBool reads a bool env var (strconv.ParseBool syntax) with a default.
func EnvBool(key string, def bool) bool {
	return envParse(key, def, strconv.ParseBool, nil)
}

// EnvInt reads a positive int env var with a default.
func EnvInt(key string, def int) int {
	return envParse(key, def, strconv.Atoi, func(n int) bool { return n > 0 })
}

// EnvCount reads a non-negative int env var with a default; 0 is a valid value (e.g. no retries).
func EnvCount(key string, def int) int {
	return envParse(key, def, strconv.Atoi, func(n int) bool { return n >= 0 })
}

// EnvInt32 reads a non-negative int32 env var with a default.
func EnvInt32(key string, def int32) int32 {
	parse := func(s string) (int32, error) {
		n, err := strconv.ParseInt(s, 10, 32)
		return int32(n), err
	}
	return envParse(key, def, parse, func(n int32) bool { return n >= 0 })
}

// EnvDuration reads a positive duration env var ("90s", "15m") with a default.
func EnvDuration(key string, def time.Duration) time.Duration {
	return envParse(key, def, time.ParseDuration, func(d time.Duration) bool { return d > 0 })
}

var listSep = regexp.MustCompile(`[,;\s]+`)

// EnvList reads a comma/semicolon/whitespace separated list. Blank entries are dropped.
func EnvList(key string) []string {
	raw, ok := envValue(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range listSep.Split(raw, -1) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
