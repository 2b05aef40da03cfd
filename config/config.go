// Package config handles pgd's per-user settings.
//
// Settings are stored at $XDG_CONFIG_HOME/pgd/config.yaml (defaults to
// ~/.config/pgd/config.yaml). Every field is optional; a missing file means
// all defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvDataDir overrides data_dir.
const EnvDataDir = "PGD_DATA_DIR"

const (
	DefaultPostgresVersion = "16"
	DefaultPortRangeStart  = 5432
	DefaultPortRangeSize   = 100
	DefaultBindHost        = "127.0.0.1"
	DefaultReadyTimeout    = 30 * time.Second
	DefaultStopTimeout     = 10 * time.Second
	DefaultImageRepository = "postgres"
)

// Settings tunes pgd for the current user.
type Settings struct {
	DataDir                string        `yaml:"data_dir,omitempty"`
	DefaultPostgresVersion string        `yaml:"default_postgres_version,omitempty"`
	PortRangeStart         uint16        `yaml:"port_range_start,omitempty"`
	PortRangeSize          uint16        `yaml:"port_range_size,omitempty"`
	BindHost               string        `yaml:"bind_host,omitempty"`
	ReadyTimeout           time.Duration `yaml:"ready_timeout,omitempty"`
	StopTimeout            time.Duration `yaml:"stop_timeout,omitempty"`
	ImageRepository        string        `yaml:"image_repository,omitempty"`
}

// Path returns the settings file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/pgd/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "pgd", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "pgd", "config.yaml")
}

// Load reads the settings file and fills defaults. If the file does not
// exist, defaults are returned (not an error).
func Load() (*Settings, error) {
	return LoadFile(Path())
}

func LoadFile(path string) (*Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	if env := strings.TrimSpace(os.Getenv(EnvDataDir)); env != "" {
		s.DataDir = env
	}
	if err := s.applyDefaults(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return &s, nil
}

func (s *Settings) applyDefaults() error {
	if s.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		s.DataDir = filepath.Join(home, ".pgd")
	} else if rest, ok := strings.CutPrefix(s.DataDir, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		s.DataDir = filepath.Join(home, rest)
	}
	if s.DefaultPostgresVersion == "" {
		s.DefaultPostgresVersion = DefaultPostgresVersion
	}
	if s.PortRangeStart == 0 {
		s.PortRangeStart = DefaultPortRangeStart
	}
	if s.PortRangeSize == 0 {
		s.PortRangeSize = DefaultPortRangeSize
	}
	if s.BindHost == "" {
		s.BindHost = DefaultBindHost
	}
	if s.ReadyTimeout == 0 {
		s.ReadyTimeout = DefaultReadyTimeout
	}
	if s.StopTimeout == 0 {
		s.StopTimeout = DefaultStopTimeout
	}
	if s.ImageRepository == "" {
		s.ImageRepository = DefaultImageRepository
	}
	return nil
}

// Validate checks a defaulted Settings.
func (s *Settings) Validate() error {
	if uint32(s.PortRangeStart)+uint32(s.PortRangeSize) > 65536 {
		return fmt.Errorf("port range %d+%d exceeds 65535", s.PortRangeStart, s.PortRangeSize)
	}
	if s.ReadyTimeout < 0 || s.StopTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// Save writes the settings to disk, creating directories as needed.
func (s *Settings) Save() error {
	p := Path()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
