// Package analytics keeps a per-user JSON history of rip runs, keyed by
// repository name. Each run overwrites the entries for the repositories it
// touched and leaves the rest alone.
package analytics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/NicabarNimble/go-gitrip/internal/git"
)

// Record is the stored outcome for one repository.
type Record struct {
	Name           string     `json:"name"`
	FullName       string     `json:"full_name,omitempty"`
	LastRipped     *time.Time `json:"last_ripped,omitempty"` // last successful clone
	Stars          int        `json:"stars"`
	Forks          int        `json:"forks"`
	CloneTime      float64    `json:"clone_time"` // seconds
	Success        bool       `json:"success"`
	Error          string     `json:"error,omitempty"`
	IsFork         bool       `json:"is_fork"`
	OriginalCloned bool       `json:"original_cloned"`
	LFSSupported   bool       `json:"lfs_supported"`
	RunID          string     `json:"run_id,omitempty"`
}

// Store is an analytics file loaded into memory.
type Store struct {
	path    string
	Records map[string]Record
}

// DefaultPath is the file name used when none is configured.
func DefaultPath(username string) string {
	return username + "_repo_analytics.json"
}

// NewRunID returns an identifier tying records to the run that wrote them.
func NewRunID() string {
	return uuid.NewString()
}

// Load reads path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path, Records: map[string]Record{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read analytics file: %w", err)
	}

	if err := json.Unmarshal(data, &s.Records); err != nil {
		return nil, fmt.Errorf("failed to parse analytics file %s: %w", path, err)
	}
	if s.Records == nil {
		s.Records = map[string]Record{}
	}
	return s, nil
}

// Path returns the file the store saves to.
func (s *Store) Path() string {
	return s.path
}

// Add merges the results of one run. A failed clone keeps the previous
// LastRipped so the history still shows when the repository last worked.
func (s *Store) Add(runID string, results []git.CloneResult, now time.Time) {
	for _, r := range results {
		d := r.Task.Descriptor
		rec := Record{
			Name:           d.Name,
			FullName:       d.FullName,
			Stars:          d.Stars,
			Forks:          d.Forks,
			CloneTime:      r.DurationSeconds(),
			Success:        r.Succeeded,
			IsFork:         d.IsFork,
			OriginalCloned: r.Task.Upstream,
			LFSSupported:   r.Task.LFS,
			RunID:          runID,
		}
		if r.Succeeded {
			ripped := now
			rec.LastRipped = &ripped
		} else {
			rec.Error = r.ErrorMessage
			if prev, ok := s.Records[d.Name]; ok {
				rec.LastRipped = prev.LastRipped
			}
		}
		s.Records[d.Name] = rec
	}
}

// Totals counts successful entries across all runs on file.
func (s *Store) Totals() (succeeded, upstreams int) {
	for _, rec := range s.Records {
		if !rec.Success {
			continue
		}
		succeeded++
		if rec.OriginalCloned {
			upstreams++
		}
	}
	return succeeded, upstreams
}

// Save writes the store through a temporary file so a crash never leaves a
// truncated history behind.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.Records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analytics: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".analytics-*.json")
	if err != nil {
		return fmt.Errorf("failed to write analytics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write analytics file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write analytics file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write analytics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write analytics file: %w", err)
	}
	return nil
}
