package project

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

const (
	containerPrefix = "pgd-"
	maxSlugLen      = 40
	// 6 bytes = 48 bits of disambiguation between same-named projects.
	rootHashBytes = 6
)

// Project binds a project root to its desired configuration.
type Project struct {
	Root   string
	Name   string
	Config Config
}

// New resolves root to an absolute path and derives the project name.
func New(root string, cfg Config) (Project, error) {
	abs, err := ResolveRoot(root)
	if err != nil {
		return Project{}, err
	}
	name, err := NameFromRoot(abs)
	if err != nil {
		return Project{}, err
	}
	return Project{Root: abs, Name: name, Config: cfg}, nil
}

// ResolveRoot returns the cleaned absolute form of dir.
func ResolveRoot(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project root %q: %w", dir, err)
	}
	return filepath.Clean(abs), nil
}

// NameFromRoot derives the project name from the root directory name.
func NameFromRoot(root string) (string, error) {
	base := filepath.Base(filepath.Clean(root))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("cannot derive project name from %q", root)
	}
	return base, nil
}

// ContainerName is a pure function of the project name and its root: a
// readable slug followed by a hash of the absolute root path.
func ContainerName(name, root string) string {
	sum := blake3.Sum256([]byte(filepath.Clean(root)))
	return containerPrefix + slug(name) + "-" + hex.EncodeToString(sum[:rootHashBytes])
}

func slug(name string) string {
	var sb strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '.'
		if !ok {
			if lastDash {
				continue
			}
			r = '-'
		}
		lastDash = r == '-'
		sb.WriteRune(r)
	}
	out := strings.Trim(sb.String(), "-.")
	if len(out) > maxSlugLen {
		out = strings.TrimRight(out[:maxSlugLen], "-.")
	}
	if out == "" {
		out = "project"
	}
	return out
}

func (p Project) ContainerName() string { return ContainerName(p.Name, p.Root) }

// VolumeName is the data volume backing the project's container.
func (p Project) VolumeName() string { return p.ContainerName() + "-data" }

// Key identifies the project in the state store.
func (p Project) Key() string { return p.ContainerName() }

// ConfigPath is the location of pgd.toml.
func (p Project) ConfigPath() string { return filepath.Join(p.Root, FileName) }

// DSN renders a postgres:// connection URL for host.
func (p Project) DSN(host string) string {
	if strings.TrimSpace(host) == "" {
		host = "127.0.0.1"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.Config.UserName, p.Config.Password),
		Host:   net.JoinHostPort(host, strconv.Itoa(int(p.Config.Port))),
		Path:   "/" + p.Config.DatabaseName,
	}
	return u.String()
}
