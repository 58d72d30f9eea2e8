package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default capture data directory for the host
// OS, preferring standard locations and falling back to a dotdir in the
// user's home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mqtap")
	}

	if isDir("/var/lib") {
		return "/var/lib/mqtap"
	}

	// macOS
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "mqtap")
	}

	// Windows
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "mqtap")
	}

	return filepath.Join(homeDir, ".mqtap")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
