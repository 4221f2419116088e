package env

import (
	"os"
	"strings"
)

// Prefix namespaces the variables this service owns; it matches the prefix
// the config loader uses.
const Prefix = "SCENTDRIVE_"

// Get returns the first non-blank value among SCENTDRIVE_<key> and <key>, or
// fallback. Platform variables such as DYNO are only ever set unprefixed.
func Get(key, fallback string) string {
	for _, name := range [...]string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}

// First returns the value of the first key that is set, or fallback.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := Get(key, ""); val != "" {
			return val
		}
	}
	return fallback
}
