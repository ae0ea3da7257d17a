// Package config reads and writes clankers.json, the profile document the
// CLI manages and future sync phases will consume. Environment variables
// overlay the active profile at load time.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Env overlay variables applied to the active profile on Load.
const (
	EnvEndpoint    = "CLANKERS_ENDPOINT"
	EnvSyncEnabled = "CLANKERS_SYNC_ENABLED"
)

// DefaultProfileName is the profile present in every config.
const DefaultProfileName = "default"

// Profile holds per-profile settings.
type Profile struct {
	Endpoint     string `json:"endpoint,omitempty"`
	SyncEnabled  bool   `json:"sync_enabled"`
	SyncInterval int    `json:"sync_interval"`
	Auth         string `json:"auth"`
}

// Config is the clankers.json document.
type Config struct {
	Profiles      map[string]Profile `json:"profiles"`
	ActiveProfile string             `json:"active_profile"`
}

// DefaultProfile returns a profile with the documented defaults.
func DefaultProfile() Profile {
	return Profile{SyncEnabled: false, SyncInterval: 30, Auth: "none"}
}

// Default returns a config with only the default profile.
func Default() *Config {
	return &Config{
		Profiles:      map[string]Profile{DefaultProfileName: DefaultProfile()},
		ActiveProfile: DefaultProfileName,
	}
}

// Load reads the config at path, returning defaults when the file does not
// exist, then applies the env overlay to the active profile.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - controlled path from the resolver
	if os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	if cfg.ActiveProfile == "" {
		cfg.ActiveProfile = DefaultProfileName
	}
	if _, ok := cfg.Profiles[cfg.ActiveProfile]; !ok {
		cfg.Profiles[cfg.ActiveProfile] = DefaultProfile()
	}
	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv overlays environment variables onto the active profile.
func (c *Config) applyEnv() {
	p := c.Profiles[c.ActiveProfile]
	if v := os.Getenv(EnvEndpoint); v != "" {
		p.Endpoint = v
	}
	if v := os.Getenv(EnvSyncEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.SyncEnabled = b
		}
	}
	c.Profiles[c.ActiveProfile] = p
}

// Save writes the config to path, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Active returns the active profile.
func (c *Config) Active() Profile {
	return c.Profiles[c.ActiveProfile]
}

// Use switches the active profile, creating it with defaults if new.
func (c *Config) Use(name string) {
	if _, ok := c.Profiles[name]; !ok {
		c.Profiles[name] = DefaultProfile()
	}
	c.ActiveProfile = name
}

// ProfileNames returns the profile names sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns one settable field of the active profile by key.
func (c *Config) Get(key string) (string, error) {
	p := c.Active()
	switch key {
	case "endpoint":
		return p.Endpoint, nil
	case "sync_enabled":
		return strconv.FormatBool(p.SyncEnabled), nil
	case "sync_interval":
		return strconv.Itoa(p.SyncInterval), nil
	case "auth":
		return p.Auth, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set assigns one settable field of the active profile by key.
func (c *Config) Set(key, value string) error {
	p := c.Active()
	switch key {
	case "endpoint":
		p.Endpoint = value
	case "sync_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("sync_enabled must be true or false: %w", err)
		}
		p.SyncEnabled = b
	case "sync_interval":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("sync_interval must be a non-negative integer")
		}
		p.SyncInterval = n
	case "auth":
		p.Auth = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	c.Profiles[c.ActiveProfile] = p
	return nil
}

// Settings returns the active profile as ordered key/value pairs for
// `config list`.
func (c *Config) Settings() [][2]string {
	p := c.Active()
	return [][2]string{
		{"endpoint", p.Endpoint},
		{"sync_enabled", strconv.FormatBool(p.SyncEnabled)},
		{"sync_interval", strconv.Itoa(p.SyncInterval)},
		{"auth", p.Auth},
	}
}
