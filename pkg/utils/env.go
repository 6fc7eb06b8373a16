package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	if v := GetEnvTrimmed(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns defaultValue when the variable is unset or unparsable.
func GetEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(GetEnvTrimmed(key))
	if err != nil {
		return defaultValue
	}
	return b
}

// GetEnvPositiveInt ignores zero, negative and malformed values.
func GetEnvPositiveInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(GetEnvTrimmed(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func GetEnvPositiveInt64(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(GetEnvTrimmed(key), 10, 64)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

// GetEnvDuration parses Go duration syntax ("30s", "1h"); non-positive
// durations fall back to defaultValue.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnvTrimmed(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// GetEnvList splits a comma-separated variable, dropping empty items.
// An unset variable yields nil.
func GetEnvList(key string) []string {
	raw := GetEnvTrimmed(key)
	if raw == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
