package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pgd/internal/instance"
	"pgd/internal/portalloc"

	"github.com/BurntSushi/toml"
)

// FileName is the per-project configuration file.
const FileName = "pgd.toml"

// LeaseRecorder persists the port claimed by a project so other projects'
// allocations can see it.
// Production: sqlite.LeaseStore
// Testing: fake.LeaseRegistry
type LeaseRecorder interface {
	RecordLease(ctx context.Context, lease portalloc.Lease) error
}

// Store loads and saves pgd.toml. Every save also claims the project's port
// in the lease registry.
type Store struct {
	leases LeaseRecorder
	now    func() time.Time
}

func NewStore(leases LeaseRecorder) *Store {
	return &Store{leases: leases, now: time.Now}
}

// Load reads pgd.toml under root. The bool is false when the file does not
// exist.
func (s *Store) Load(_ context.Context, root string) (Project, bool, error) {
	p, err := New(root, Config{})
	if err != nil {
		return Project{}, false, err
	}

	data, err := os.ReadFile(p.ConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, false, nil
		}
		return Project{}, false, fmt.Errorf("read %s: %w", p.ConfigPath(), err)
	}

	cfg, err := Decode(data)
	if err != nil {
		return Project{}, false, &instance.OpError{
			Op:      "load config",
			Project: p.Name,
			Remedy:  "fix " + p.ConfigPath() + " or remove it and run `pgd init`",
			Err:     err,
		}
	}
	p.Config = cfg
	return p, true, nil
}

// Save writes pgd.toml atomically, then claims the port.
func (s *Store) Save(ctx context.Context, p Project) error {
	data, err := Encode(p.Config)
	if err != nil {
		return err
	}

	path := p.ConfigPath()
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return s.Claim(ctx, p)
}

// Claim records the project's declared port in the lease registry without
// touching pgd.toml. A zero port claims nothing.
func (s *Store) Claim(ctx context.Context, p Project) error {
	if s.leases == nil || p.Config.Port == 0 {
		return nil
	}
	lease := portalloc.Lease{Owner: p.Root, Project: p.Name, Port: p.Config.Port, BoundAt: s.now().UTC()}
	if err := s.leases.RecordLease(ctx, lease); err != nil {
		return fmt.Errorf("record port lease %d for %q: %w", p.Config.Port, p.Name, err)
	}
	return nil
}

// Decode parses pgd.toml content. Unknown keys are logged and ignored.
func Decode(data []byte) (Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", instance.ErrConfigParse, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		slog.Warn("ignoring unknown keys in pgd.toml", "keys", strings.Join(keys, ","))
	}
	if strings.TrimSpace(cfg.PostgresVersion) != "" {
		if _, err := ParseVersion(cfg.PostgresVersion); err != nil {
			return Config{}, fmt.Errorf("%w: %v", instance.ErrConfigParse, err)
		}
	}
	return cfg, nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# pgd project configuration\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode %s: %w", FileName, err)
	}
	return buf.Bytes(), nil
}
