package utils

import "os"

// EnvOrDefault reads an environment variable, falling back when it is unset
// or empty.
func EnvOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
