package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Jyotish/internal/domain/models"
)

type countMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *countMetrics) RecordCalculation(string, float64)   {}
func (m *countMetrics) RecordEventPublished(string, string) {}
func (m *countMetrics) RecordCache(string, bool)            {}
func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

func (m *countMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

// flakyProc fails the first n deliveries.
type flakyProc struct {
	failures  int32
	delivered int32
}

func (p *flakyProc) Process(context.Context, *models.CalculationEvent) error {
	if atomic.AddInt32(&p.failures, -1) >= 0 {
		return errors.New("backend down")
	}
	atomic.AddInt32(&p.delivered, 1)
	return nil
}

func validEvent() *models.CalculationEvent {
	return &models.CalculationEvent{
		ID:         "id-1",
		Kind:       models.KindPanchang,
		Input:      json.RawMessage(`{}`),
		Result:     json.RawMessage(`{"tithi":"Saptami"}`),
		ComputedAt: time.Now().UTC(),
	}
}

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *models.CalculationEvent)
		ok     bool
	}{
		{"valid", func(*models.CalculationEvent) {}, true},
		{"empty id", func(e *models.CalculationEvent) { e.ID = "" }, false},
		{"bad kind", func(e *models.CalculationEvent) { e.Kind = "horoscope" }, false},
		{"zero time", func(e *models.CalculationEvent) { e.ComputedAt = time.Time{} }, false},
		{"no result", func(e *models.CalculationEvent) { e.Result = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(e)
			if err := ValidateEvent(e); (err == nil) != tt.ok {
				t.Fatalf("ValidateEvent() = %v, ok want %v", err, tt.ok)
			}
		})
	}
	if ValidateEvent(nil) == nil {
		t.Fatal("nil event must be rejected")
	}
}

func TestPipelineRejectsInvalid(t *testing.T) {
	m := &countMetrics{}
	proc := &flakyProc{}
	p := NewEventPipeline(proc, m)
	e := validEvent()
	e.ID = ""
	if err := p.Process(context.Background(), e); err == nil {
		t.Fatal("expected validation error")
	}
	if m.count("pipeline_validate") != 1 || atomic.LoadInt32(&proc.delivered) != 0 {
		t.Fatal("invalid event reached the backend")
	}
}

// gateProc blocks every delivery until release is closed.
type gateProc struct {
	release   chan struct{}
	delivered int32
}

func (p *gateProc) Process(ctx context.Context, _ *models.CalculationEvent) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	atomic.AddInt32(&p.delivered, 1)
	return nil
}

func waitDelivered(t *testing.T, n *int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(n) < want {
		if time.Now().After(deadline) {
			t.Fatalf("delivered = %d, want %d", atomic.LoadInt32(n), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPipelineProcessDoesNotWaitOnBackend(t *testing.T) {
	m := &countMetrics{}
	proc := &gateProc{release: make(chan struct{})}
	p := NewEventPipeline(proc, m, WithBufferSize(4), WithDeliveryTimeout(5*time.Second))
	p.Start()
	defer p.Stop()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Process(context.Background(), validEvent()); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Process took %v with a blocked backend", elapsed)
	}
	if atomic.LoadInt32(&proc.delivered) != 0 {
		t.Fatal("delivered before the backend was released")
	}

	close(proc.release)
	waitDelivered(t, &proc.delivered, 3)
}

func TestPipelineRedeliversAfterFailure(t *testing.T) {
	m := &countMetrics{}
	proc := &flakyProc{failures: 1}
	p := NewEventPipeline(proc, m, WithBufferSize(4))
	p.Start()
	defer p.Stop()

	if err := p.Process(context.Background(), validEvent()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	waitDelivered(t, &proc.delivered, 1)
	if m.count("pipeline_process") != 1 {
		t.Fatalf("pipeline_process = %d, want 1", m.count("pipeline_process"))
	}
	if p.Buffered() != 0 {
		t.Fatalf("buffered = %d, want 0", p.Buffered())
	}
}

func TestPipelineDropsWhenBufferFull(t *testing.T) {
	m := &countMetrics{}
	p := NewEventPipeline(&flakyProc{}, m, WithBufferSize(1))

	var dropped int
	for i := 0; i < 3; i++ {
		if err := p.Process(context.Background(), validEvent()); errors.Is(err, ErrBufferFull) {
			dropped++
		}
	}
	if dropped != 2 || p.Buffered() != 1 {
		t.Fatalf("dropped = %d buffered = %d, want 2 and 1", dropped, p.Buffered())
	}
	if m.count("pipeline_buffer_full") != 2 {
		t.Fatalf("buffer_full = %d, want 2", m.count("pipeline_buffer_full"))
	}
}

func TestPipelineStopFlushesBuffered(t *testing.T) {
	m := &countMetrics{}
	proc := &flakyProc{}
	p := NewEventPipeline(proc, m, WithBufferSize(8))
	for i := 0; i < 5; i++ {
		if err := p.Process(context.Background(), validEvent()); err != nil {
			t.Fatal(err)
		}
	}
	p.Start()
	p.Stop()

	if got := atomic.LoadInt32(&proc.delivered); got != 5 {
		t.Fatalf("delivered = %d, want 5", got)
	}
	if p.Buffered() != 0 {
		t.Fatalf("buffered = %d after stop", p.Buffered())
	}
}
