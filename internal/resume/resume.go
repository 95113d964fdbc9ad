// Package resume persists the set of completed hosts so an interrupted
// scan can be restarted without re-probing them. Skipped hosts keep no
// record in the new run; resume is skip-only.
package resume

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// State tracks which hosts of a scan have already been completed.
type State struct {
	CompletedHosts []string `json:"completed_hosts"`
	TotalHosts     int      `json:"total_hosts"`

	mu   sync.Mutex
	path string
	done map[string]struct{}
}

// New creates an empty resume state that will be saved to path.
func New(path string, totalHosts int) *State {
	return &State{
		TotalHosts: totalHosts,
		path:       path,
		done:       make(map[string]struct{}),
	}
}

// Load reads an existing resume state from disk. Returns nil if the file
// does not exist.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading resume file: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing resume file: %w", err)
	}

	s.path = path
	s.done = make(map[string]struct{}, len(s.CompletedHosts))
	for _, h := range s.CompletedHosts {
		s.done[h] = struct{}{}
	}
	return &s, nil
}

// IsCompleted returns true if the host was already scanned.
func (s *State) IsCompleted(host string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.done[host]
	return ok
}

// MarkCompleted records a host as done.
func (s *State) MarkCompleted(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.done[host]; !ok {
		s.done[host] = struct{}{}
		s.CompletedHosts = append(s.CompletedHosts, host)
	}
}

// Save writes the state to disk.
func (s *State) Save() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Remove deletes the state file after a fully completed scan.
func (s *State) Remove() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
