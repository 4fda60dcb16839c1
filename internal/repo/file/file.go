// Package file stores debounce state in a JSON document on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)
var _ repo.Deleter = (*Store)(nil)

// record is the on-disk shape. Notified is the legacy single flag written by
// older deployments; it is read as AlertedDown and never written.
type record struct {
	Failures     int   `json:"failures"`
	NotifiedDown bool  `json:"notified_down"`
	NotifiedUp   bool  `json:"notified_up"`
	Notified     *bool `json:"notified,omitempty"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) (domain.States, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (domain.States, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.States{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var raw map[string]record
	if err := json.Unmarshal(b, &raw); err != nil {
		return domain.States{}, fmt.Errorf("%w: parse %s: %v", repo.ErrCorrupt, s.path, err)
	}

	out := make(domain.States, len(raw))
	for id, r := range raw {
		st := domain.DebounceState{
			ConsecutiveFailures: r.Failures,
			AlertedDown:         r.NotifiedDown,
			AlertedUp:           r.NotifiedUp,
		}
		if r.Notified != nil && *r.Notified {
			st.AlertedDown = true
		}
		out[domain.TargetID(id)] = st.Normalize(0)
	}
	return out, nil
}

// Save writes to a temporary file in the same directory and renames it over
// the target, so readers see either the old or the new document.
func (s *Store) Save(ctx context.Context, states domain.States) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(states)
}

func (s *Store) save(states domain.States) error {
	raw := make(map[string]record, len(states))
	for id, st := range states {
		raw[string(id)] = record{
			Failures:     st.ConsecutiveFailures,
			NotifiedDown: st.AlertedDown,
			NotifiedUp:   st.AlertedUp,
		}
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Delete removes one entry. A corrupt file is treated as empty.
func (s *Store) Delete(ctx context.Context, id domain.TargetID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states, err := s.load()
	if err != nil && !repo.IsCorrupt(err) {
		return false, err
	}
	if _, ok := states[id]; !ok {
		return false, nil
	}
	delete(states, id)
	return true, s.save(states)
}
