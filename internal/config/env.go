// Package config provides environment helpers for go-plates commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names.
const (
	EnvDevice    = "NPD_DEVICE"
	EnvWebPort   = "NPD_WEB_PORT"
	EnvLogLevel  = "NPD_LOG_LEVEL"
	EnvDecoder   = "NPD_DECODER"
	EnvWarmup    = "NPD_WARMUP"
	EnvMaxFrames = "NPD_MAX_FRAMES"
)

// String returns the value of key, or def when unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns key parsed as an int. Unparseable values fall back to def.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Duration returns key parsed with time.ParseDuration, or def.
func Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Device returns the camera device from NPD_DEVICE, or def.
func Device(def string) string {
	return String(EnvDevice, def)
}

// WebPort returns the dashboard port from NPD_WEB_PORT, or def.
// An empty result disables the dashboard.
func WebPort(def string) string {
	return String(EnvWebPort, def)
}

// LogLevel returns the log level from NPD_LOG_LEVEL, or def.
func LogLevel(def string) string {
	return String(EnvLogLevel, def)
}
