// Package storage provides in-memory run storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and one-shot CLI runs

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/richinex/cair/cost"
)

// InMemoryStore implements RunStore using in-memory maps.
// Data is lost when process terminates.
type InMemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]Run
	calls map[string][]cost.Call
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs:  make(map[string]Run),
		calls: make(map[string][]cost.Call),
	}
}

// SaveRun stores a copy of run.
func (s *InMemoryStore) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = copyRun(run)
	return nil
}

// LoadRun returns a copy of the stored run.
func (s *InMemoryStore) LoadRun(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return copyRun(run), nil
}

// ListRuns returns runs newest first.
func (s *InMemoryStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		summaries = append(summaries, run.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// DeleteRun removes a run and its calls.
func (s *InMemoryStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, id)
	delete(s.calls, id)
	return nil
}

// SaveCalls appends calls to a run.
func (s *InMemoryStore) SaveCalls(ctx context.Context, runID string, calls []cost.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[runID] = append(s.calls[runID], calls...)
	return nil
}

// LoadCalls returns a copy of a run's calls.
func (s *InMemoryStore) LoadCalls(ctx context.Context, runID string) ([]cost.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to avoid external mutations
	copied := make([]cost.Call, len(s.calls[runID]))
	copy(copied, s.calls[runID])
	return copied, nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}

func copyRun(run Run) Run {
	out := run
	out.History = append([]string(nil), run.History...)
	out.Scores = append([]float64(nil), run.Scores...)
	out.Metadata = make(map[string]any, len(run.Metadata))
	for k, v := range run.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// Verify InMemoryStore implements RunStore
var _ RunStore = (*InMemoryStore)(nil)
