package fake

import (
	"context"
	"sync"

	"pgd/internal/lifecycle"
	"pgd/internal/project"
)

var _ lifecycle.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps project configs in memory, keyed by absolute root. Saves
// and claims are mirrored into Leases when it is set, like project.Store does.
type ConfigStore struct {
	CallRecorder
	mu       sync.Mutex
	projects map[string]project.Project

	Leases *LeaseRegistry

	LoadErr  func(ctx context.Context, root string) error
	SaveErr  func(ctx context.Context, p project.Project) error
	ClaimErr func(ctx context.Context, p project.Project) error
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{projects: make(map[string]project.Project)}
}

// Put stores p without recording a call.
func (s *ConfigStore) Put(p project.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.Root] = p
}

// Get returns the stored project without recording a call.
func (s *ConfigStore) Get(root string) (project.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[root]
	return p, ok
}

func (s *ConfigStore) Load(ctx context.Context, root string) (project.Project, bool, error) {
	s.record("Load", root)
	if s.LoadErr != nil {
		if err := s.LoadErr(ctx, root); err != nil {
			return project.Project{}, false, err
		}
	}
	p, err := project.New(root, project.Config{})
	if err != nil {
		return project.Project{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.projects[p.Root]
	if !ok {
		return p, false, nil
	}
	return stored, true, nil
}

func (s *ConfigStore) Save(ctx context.Context, p project.Project) error {
	s.record("Save", p)
	if s.SaveErr != nil {
		if err := s.SaveErr(ctx, p); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.projects[p.Root] = p
	s.mu.Unlock()
	return s.claim(ctx, p)
}

func (s *ConfigStore) Claim(ctx context.Context, p project.Project) error {
	s.record("Claim", p)
	if s.ClaimErr != nil {
		if err := s.ClaimErr(ctx, p); err != nil {
			return err
		}
	}
	return s.claim(ctx, p)
}

func (s *ConfigStore) claim(ctx context.Context, p project.Project) error {
	if s.Leases == nil || p.Config.Port == 0 {
		return nil
	}
	return s.Leases.RecordLease(ctx, leaseFor(p))
}
