// pkg/core/config.go
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ElevationPolicy describes when a backend needs elevated privileges.
type ElevationPolicy string

const (
	// ElevateNever means the backend never needs elevation (e.g. brew).
	ElevateNever ElevationPolicy = "never"
	// ElevateMutations means installs/removes elevate, reads do not.
	ElevateMutations ElevationPolicy = "mutations"
)

// Config holds omni configuration. Loaded once at startup; no hot reload.
type Config struct {
	// BackendPriority orders backends for tie-breaking when a package is
	// available from more than one. Earlier wins.
	BackendPriority []string `yaml:"backend_priority"`

	// FreshnessWindow is the maximum age at which cached metadata may be
	// trusted for planning without a live refresh.
	FreshnessWindow time.Duration `yaml:"freshness_window"`

	// ExecTimeout bounds every child process spawned by the executor.
	ExecTimeout time.Duration `yaml:"exec_timeout"`

	// StorePath is the SQLite database holding the package cache and
	// the audit log.
	StorePath string `yaml:"store_path"`

	// RegistryPath is the directory of per-package TOML name mappings.
	RegistryPath string `yaml:"registry_path"`

	// Elevation maps backend name to its elevation policy.
	Elevation map[string]ElevationPolicy `yaml:"elevation"`

	// MaxConcurrentTransactions bounds the transaction worker pool.
	MaxConcurrentTransactions int `yaml:"max_concurrent_transactions"`

	// Debug enables debug logging.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BackendPriority:           []string{"apt", "brew", "pacman", "winget", "nix"},
		FreshnessWindow:           time.Hour,
		ExecTimeout:               2 * time.Minute,
		StorePath:                 defaultStorePath(),
		RegistryPath:              defaultRegistryPath(),
		MaxConcurrentTransactions: 2,
		Elevation: map[string]ElevationPolicy{
			"apt":    ElevateMutations,
			"pacman": ElevateMutations,
			"brew":   ElevateNever,
			"winget": ElevateNever,
			"nix":    ElevateNever,
		},
	}
}

// LoadConfig loads configuration from file, falling back to defaults when
// the file does not exist. Zero-valued fields are filled from defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = filepath.Join(home, ".config", "omni", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.fillDefaults()

	return cfg, nil
}

// SaveConfig saves configuration to file.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".config", "omni", "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// PolicyFor returns the elevation policy for a backend, defaulting to
// mutations-elevate when unconfigured. The conservative default means an
// unknown backend asks for elevation rather than failing mid-install.
func (c *Config) PolicyFor(backend string) ElevationPolicy {
	if p, ok := c.Elevation[backend]; ok {
		return p
	}
	return ElevateMutations
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if len(c.BackendPriority) == 0 {
		c.BackendPriority = def.BackendPriority
	}
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = def.FreshnessWindow
	}
	if c.ExecTimeout <= 0 {
		c.ExecTimeout = def.ExecTimeout
	}
	if c.StorePath == "" {
		c.StorePath = def.StorePath
	}
	if c.RegistryPath == "" {
		c.RegistryPath = def.RegistryPath
	}
	if c.MaxConcurrentTransactions <= 0 {
		c.MaxConcurrentTransactions = def.MaxConcurrentTransactions
	}
	if c.Elevation == nil {
		c.Elevation = def.Elevation
	}
}

func defaultStorePath() string {
	if path := os.Getenv("OMNI_STORE_PATH"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "omni", "omni.db")
	}
	return filepath.Join(home, ".local", "share", "omni", "omni.db")
}

func defaultRegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "omni", "registry")
	}
	return filepath.Join(home, ".local", "share", "omni", "registry")
}
