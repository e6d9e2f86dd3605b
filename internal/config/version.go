package config

import (
	"os"
	"strings"
)

// Version is overridden at build time via -ldflags.
var Version = ""

// GetVersion returns the service version from build metadata, environment,
// or the VERSION file, in that order
func GetVersion() string {
	if Version != "" {
		return Version
	}

	if envVersion := os.Getenv("APP_VERSION"); envVersion != "" {
		return envVersion
	}

	if content, err := os.ReadFile("VERSION"); err == nil {
		if v := strings.TrimSpace(string(content)); v != "" {
			return v
		}
	}

	return "0.1.0"
}
