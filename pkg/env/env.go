// Package env reads process environment variables with the ZAINA_ namespace
// applied, for the few knobs that live outside the envconfig-backed config.
package env

import "os"

const prefix = "ZAINA_"

// Get looks up ZAINA_<key> first, then the bare key, and falls back to the
// provided default when neither is set.
func Get(key, fallback string) string {
	if val := os.Getenv(prefix + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
