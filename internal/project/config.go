// Package project models a pgd project: its root directory, its derived name
// and the desired database configuration stored in pgd.toml.
package project

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"pgd/internal/instance"
)

const (
	DefaultDatabase = "postgres"
	DefaultUser     = "postgres"
	DefaultVersion  = "16"
	PasswordLength  = 16
)

// Config is the desired state declared in pgd.toml.
type Config struct {
	PostgresVersion string `toml:"postgres_version"`
	DatabaseName    string `toml:"database_name,omitempty"`
	UserName        string `toml:"user_name,omitempty"`
	Password        string `toml:"password,omitempty"`
	Port            uint16 `toml:"port,omitempty"`
}

// ApplyDefaults fills every absent field except Port, which is owned by the
// port allocator. It reports whether anything changed.
func (c *Config) ApplyDefaults(version string) (bool, error) {
	changed := false
	if strings.TrimSpace(c.PostgresVersion) == "" {
		if strings.TrimSpace(version) == "" {
			version = DefaultVersion
		}
		c.PostgresVersion = version
		changed = true
	}
	if strings.TrimSpace(c.DatabaseName) == "" {
		c.DatabaseName = DefaultDatabase
		changed = true
	}
	if strings.TrimSpace(c.UserName) == "" {
		c.UserName = DefaultUser
		changed = true
	}
	if c.Password == "" {
		pw, err := GeneratePassword(PasswordLength)
		if err != nil {
			return changed, err
		}
		c.Password = pw
		changed = true
	}
	return changed, nil
}

// Validate checks a fully populated config.
func (c Config) Validate() error {
	if _, err := ParseVersion(c.PostgresVersion); err != nil {
		return fmt.Errorf("%w: %v", instance.ErrConfigParse, err)
	}
	if strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("%w: database_name is required", instance.ErrConfigParse)
	}
	if strings.TrimSpace(c.UserName) == "" {
		return fmt.Errorf("%w: user_name is required", instance.ErrConfigParse)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", instance.ErrConfigParse)
	}
	if c.Port == 0 {
		return fmt.Errorf("%w: port is required", instance.ErrConfigParse)
	}
	return nil
}

// Version is a PostgreSQL major version with an optional minor component.
type Version struct {
	Major int
	Minor int // -1 when unspecified
}

// ParseVersion accepts "16" or "16.4".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("postgres version is empty")
	}
	majorRaw, minorRaw, hasMinor := strings.Cut(s, ".")
	major, err := strconv.Atoi(majorRaw)
	if err != nil || major <= 0 {
		return Version{}, fmt.Errorf("invalid postgres version %q", s)
	}
	v := Version{Major: major, Minor: -1}
	if hasMinor {
		minor, err := strconv.Atoi(minorRaw)
		if err != nil || minor < 0 {
			return Version{}, fmt.Errorf("invalid postgres version %q", s)
		}
		v.Minor = minor
	}
	return v, nil
}

func (v Version) String() string {
	if v.Minor < 0 {
		return strconv.Itoa(v.Major)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether two versions name the same release line. A
// version without a minor component matches any minor of the same major.
func (v Version) Compatible(o Version) bool {
	if v.Major != o.Major {
		return false
	}
	if v.Minor < 0 || o.Minor < 0 {
		return true
	}
	return v.Minor == o.Minor
}

// VersionFromImageTag extracts the version component of an image reference
// such as "postgres:16" or "docker.io/library/postgres:16.4-alpine".
func VersionFromImageTag(tag string) (Version, error) {
	tag = strings.TrimSpace(tag)
	if at := strings.Index(tag, "@"); at >= 0 {
		tag = tag[:at]
	}
	idx := strings.LastIndex(tag, ":")
	if idx < 0 || strings.Contains(tag[idx:], "/") {
		return Version{}, fmt.Errorf("image %q has no tag", tag)
	}
	raw := tag[idx+1:]
	if dash := strings.Index(raw, "-"); dash >= 0 {
		raw = raw[:dash]
	}
	return ParseVersion(raw)
}

// ImageTag returns the image reference for a version in the given repository.
func ImageTag(repository, version string) string {
	if strings.TrimSpace(repository) == "" {
		repository = "postgres"
	}
	return repository + ":" + strings.TrimSpace(version)
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratePassword returns n random alphanumeric characters.
func GeneratePassword(n int) (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		buf[i] = passwordAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
