package testkit

import (
	"context"
	"sync"

	"formsheet/internal/errors"
	"formsheet/ports"

	"golang.org/x/sync/semaphore"
)

// MemStore is an in-memory TabularStore for tests. It mirrors the real
// backends' locking discipline (weighted semaphore with bounded wait) and
// records formatting/reset activity so tests can assert on it.
type MemStore struct {
	mu        sync.Mutex
	sem       *semaphore.Weighted
	grid      [][]string
	publisher ports.ChangePublisher

	// Failure injection
	FailReset  error
	FailHeader error
	FailAppend error

	// EmptyReads makes ReadSchema report an empty header for the next N
	// calls regardless of grid contents, simulating a read-back race.
	EmptyReads int

	// Recorded activity
	ResetCount  int
	HeaderCount int
	FormatCalls []int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{sem: semaphore.NewWeighted(1)}
}

// SetPublisher wires the change-event publisher used after appends.
func (s *MemStore) SetPublisher(p ports.ChangePublisher) {
	s.publisher = p
}

// Seed replaces the whole grid, header included. Test setup only.
func (s *MemStore) Seed(rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid = make([][]string, len(rows))
	for i, row := range rows {
		s.grid[i] = append([]string(nil), row...)
	}
}

func (s *MemStore) AcquireExclusive(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return errors.LockTimeout("store lock not acquired within bound")
	}
	return nil
}

func (s *MemStore) Release() {
	s.sem.Release(1)
}

func (s *MemStore) LastRowIndex() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRowLocked(), nil
}

func (s *MemStore) lastRowLocked() int {
	for i := len(s.grid) - 1; i >= 0; i-- {
		for _, cell := range s.grid[i] {
			if cell != "" {
				return i + 1
			}
		}
	}
	return 0
}

func (s *MemStore) ReadSchema() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EmptyReads > 0 {
		s.EmptyReads--
		return nil, nil
	}
	if len(s.grid) == 0 {
		return nil, nil
	}
	header := s.grid[0]
	empty := true
	for _, cell := range header {
		if cell != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil, nil
	}
	return append([]string(nil), header...), nil
}

func (s *MemStore) ResetSchema(labels []string) error {
	if s.FailReset != nil {
		return s.FailReset
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCount++
	s.grid = [][]string{append([]string(nil), labels...)}
	return nil
}

func (s *MemStore) WriteHeader(labels []string) error {
	if s.FailHeader != nil {
		return s.FailHeader
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HeaderCount++
	if len(s.grid) == 0 {
		s.grid = [][]string{nil}
	}
	s.grid[0] = append([]string(nil), labels...)
	return nil
}

func (s *MemStore) AppendRow(cells []string) (int, error) {
	if s.FailAppend != nil {
		return 0, s.FailAppend
	}
	s.mu.Lock()
	next := s.lastRowLocked() + 1
	for len(s.grid) < next {
		s.grid = append(s.grid, nil)
	}
	s.grid[next-1] = append([]string(nil), cells...)
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.RowAppended(next)
	}
	return next, nil
}

func (s *MemStore) FormatRow(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FormatCalls = append(s.FormatCalls, index)
	return nil
}

func (s *MemStore) Snapshot() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.grid))
	for i, row := range s.grid {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}
