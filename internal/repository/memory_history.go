package repository

import (
	"context"
	"sync"

	"Jyotish/internal/domain/models"
	domrepo "Jyotish/internal/domain/repository"
)

// MemoryHistory keeps the most recent events in a fixed-size ring. It backs
// /api/history when no database backend is configured.
type MemoryHistory struct {
	mu   sync.RWMutex
	ring []*models.CalculationEvent
	next int
	full bool
}

func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryHistory{ring: make([]*models.CalculationEvent, capacity)}
}

func (s *MemoryHistory) Init(context.Context) error { return nil }

func (s *MemoryHistory) Store(_ context.Context, e *models.CalculationEvent) error {
	if e == nil {
		return nil
	}
	cp := *e
	s.mu.Lock()
	s.ring[s.next] = &cp
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryHistory) StoreBatch(ctx context.Context, events []*models.CalculationEvent) error {
	for _, e := range events {
		_ = s.Store(ctx, e)
	}
	return nil
}

// Query walks the ring backwards from the newest insert.
func (s *MemoryHistory) Query(_ context.Context, kind models.CalculationKind, limit int) ([]*models.CalculationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.next
	if s.full {
		size = len(s.ring)
	}
	out := make([]*models.CalculationEvent, 0, min(limit, size))
	for i := 1; i <= size && len(out) < limit; i++ {
		e := s.ring[(s.next-i+len(s.ring))%len(s.ring)]
		if kind == "" || e.Kind == kind {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryHistory) Health(context.Context) error { return nil }

func (s *MemoryHistory) Close() error { return nil }

var _ domrepo.HistoryStorage = (*MemoryHistory)(nil)
