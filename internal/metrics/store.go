package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of metrics kept before the oldest are dropped.
const DefaultCapacity = 10000

// Store keeps the most recent metrics in memory.
type Store struct {
	mu    sync.RWMutex
	items []Metric
	next  int
	full  bool
}

// NewStore creates a store holding at most capacity metrics.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{items: make([]Metric, capacity)}
}

// Add stores m, assigning an ID and timestamp when missing, and returns the ID.
func (s *Store) Add(m Metric) string {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[s.next] = m
	s.next++
	if s.next == len(s.items) {
		s.next = 0
		s.full = true
	}
	return m.ID
}

// Len returns the number of stored metrics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.items)
	}
	return s.next
}

// each visits stored metrics newest first until fn returns false.
func (s *Store) each(fn func(Metric) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.items)
	}
	for i := 0; i < n; i++ {
		idx := s.next - 1 - i
		if idx < 0 {
			idx += len(s.items)
		}
		if !fn(s.items[idx]) {
			return
		}
	}
}
