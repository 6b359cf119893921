package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Jyotish/internal/domain/models"
	domrepo "Jyotish/internal/domain/repository"
)

// Proc is the downstream the pipeline delivers to.
type Proc interface {
	Process(ctx context.Context, e *models.CalculationEvent) error
}

// ErrBufferFull is returned by Process when the event was dropped.
var ErrBufferFull = errors.New("pipeline buffer full")

// EventPipeline sits between the calculators and the history backend. Process only
// validates and enqueues; a background loop delivers, retrying failures with capped
// exponential backoff before giving up on an event.
type EventPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	bufCh    chan *models.CalculationEvent
	stopCh   chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	started  bool
	timeout  time.Duration
	attempts int
}

type PipelineOption func(*EventPipeline)

// WithBufferSize bounds how many events wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.CalculationEvent, n)
		}
	}
}

// WithDeliveryTimeout bounds each downstream call.
func WithDeliveryTimeout(d time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewEventPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		proc:     proc,
		metrics:  metrics,
		bufCh:    make(chan *models.CalculationEvent, 1000),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		timeout:  3 * time.Second,
		attempts: 5,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the delivery loop.
func (p *EventPipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	go p.run()
}

// Stop ends the delivery loop after one last attempt at every buffered event.
func (p *EventPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.done
}

// Buffered reports how many events wait for delivery.
func (p *EventPipeline) Buffered() int { return len(p.bufCh) }

// Process validates e and queues it for delivery without waiting on the backend.
func (p *EventPipeline) Process(_ context.Context, e *models.CalculationEvent) error {
	if err := ValidateEvent(e); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	select {
	case p.bufCh <- e:
		return nil
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		return fmt.Errorf("event %s: %w", e.ID, ErrBufferFull)
	}
}

func (p *EventPipeline) deliver(e *models.CalculationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.proc.Process(ctx, e)
}

func (p *EventPipeline) run() {
	defer close(p.done)
	for {
		select {
		case <-p.stopCh:
			p.flush()
			return
		case e := <-p.bufCh:
			if !p.deliverWithRetry(e) {
				p.flush()
				return
			}
		}
	}
}

// deliverWithRetry reports false when the pipeline was stopped while backing off.
func (p *EventPipeline) deliverWithRetry(e *models.CalculationEvent) bool {
	backoff := 50 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := p.deliver(e)
		if err == nil {
			return true
		}
		p.metrics.RecordError("pipeline_process")
		if attempt >= p.attempts {
			p.metrics.RecordError("pipeline_undelivered")
			return true
		}
		select {
		case <-p.stopCh:
			p.metrics.RecordError("pipeline_dropped_on_stop")
			return false
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}

func (p *EventPipeline) flush() {
	for {
		select {
		case e := <-p.bufCh:
			if err := p.deliver(e); err != nil {
				p.metrics.RecordError("pipeline_dropped_on_stop")
			}
		default:
			return
		}
	}
}

// ValidateEvent checks the fields every backend relies on.
func ValidateEvent(e *models.CalculationEvent) error {
	switch {
	case e == nil:
		return errors.New("event nil")
	case e.ID == "":
		return errors.New("event id empty")
	case !e.Kind.IsValid():
		return fmt.Errorf("event kind %q invalid", e.Kind)
	case e.ComputedAt.IsZero():
		return errors.New("event computed_at missing")
	case len(e.Result) == 0:
		return errors.New("event result empty")
	}
	return nil
}
