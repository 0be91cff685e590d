// Package config reads flag defaults from TILE2048_* environment variables.
//
// Values that fail to parse fall back to the default, so a bad variable never
// prevents a binary from starting; the flag can still override it.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const Prefix = "TILE2048_"

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(Prefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func EnvOr(key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

func EnvInt(key string, def int) int {
	if v, ok := lookup(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func EnvInt64(key string, def int64) int64 {
	if v, ok := lookup(key); ok {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func EnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func EnvBool(key string, def bool) bool {
	if v, ok := lookup(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}
