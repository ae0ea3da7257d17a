// Package paths resolves the on-disk locations clankers uses: the data
// directory, database file, config file, log directory, and the RPC
// endpoint. Every function resolves lazily from the current environment on
// each call; nothing is cached, so tests can flip env vars freely.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Environment overrides. Each takes precedence over the per-OS default.
const (
	EnvDataPath   = "CLANKERS_DATA_PATH"
	EnvDBPath     = "CLANKERS_DB_PATH"
	EnvSocketPath = "CLANKERS_SOCKET_PATH"
	EnvLogPath    = "CLANKERS_LOG_PATH"
)

const dirName = "clankers"

// DataRoot returns the platform data root (the directory that contains the
// clankers data dir, not the data dir itself).
func DataRoot() string {
	if p := os.Getenv(EnvDataPath); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support")
	case "windows":
		if p := os.Getenv("APPDATA"); p != "" {
			return p
		}
		return filepath.Join(home, "AppData", "Roaming")
	default:
		if p := os.Getenv("XDG_DATA_HOME"); p != "" {
			return p
		}
		return filepath.Join(home, ".local", "share")
	}
}

// DataDir returns the clankers data directory under the data root.
func DataDir() string {
	return filepath.Join(DataRoot(), dirName)
}

// DBPath returns the database file path.
func DBPath() string {
	if p := os.Getenv(EnvDBPath); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "clankers.db")
}

// ConfigPath returns the profile config file path.
func ConfigPath() string {
	return filepath.Join(DataDir(), "clankers.json")
}

// SocketPath returns the RPC endpoint: a unix socket path on POSIX, a named
// pipe name on Windows.
func SocketPath() string {
	if p := os.Getenv(EnvSocketPath); p != "" {
		return p
	}
	if runtime.GOOS == "windows" {
		return `\\.\pipe\dxta-clankers`
	}
	return filepath.Join(DataDir(), "dxta-clankers.sock")
}

// LogDir returns the directory log files are written to.
func LogDir() string {
	if p := os.Getenv(EnvLogPath); p != "" {
		return p
	}
	return DataDir()
}
