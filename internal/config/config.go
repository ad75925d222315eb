// Package config provides environment configuration helpers for photocheck commands.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Default service configuration.
const (
	DefaultListenAddr   = ":3000"
	DefaultLiveInterval = 500 * time.Millisecond
	DefaultLogLevel     = "info"
)

// Environment variables read by photocheck.
const (
	EnvEndpoint     = "PHOTOCHECK_ENDPOINT"
	EnvListenAddr   = "PHOTOCHECK_ADDR"
	EnvInsecureTLS  = "PHOTOCHECK_INSECURE"
	EnvTimeout      = "PHOTOCHECK_TIMEOUT"
	EnvLiveInterval = "LIVE_INTERVAL"
	EnvDevice       = "CAMERA_DEVICE"
	EnvBackend      = "CAMERA_BACKEND"
	EnvLogLevel     = "LOG_LEVEL"
	EnvConfigFile   = "PHOTOCHECK_CONFIG"
)

// String returns the value of key, or fallback if it is unset or empty.
func String(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Int returns key parsed as an int, or fallback if unset or malformed.
func Int(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Bool returns key parsed as a bool, or fallback if unset or malformed.
func Bool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Duration returns key parsed with time.ParseDuration, or fallback.
// A bare integer is read as milliseconds.
func Duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// LogLevel returns LOG_LEVEL or DefaultLogLevel.
func LogLevel() string {
	return String(EnvLogLevel, DefaultLogLevel)
}
