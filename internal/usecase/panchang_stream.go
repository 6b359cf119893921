package usecase

import (
	"context"
	"sync"
	"time"

	"Jyotish/internal/domain/models"
	applogger "Jyotish/pkg/logger"
)

// PanchangStream computes the Panchang of "now" on a fixed interval and fans it out
// to subscribers. New subscribers get the latest snapshot right away.
type PanchangStream struct {
	calc     *Calculator
	interval time.Duration
	log      *applogger.Logger

	mu     sync.Mutex
	subs   map[int]chan models.PanchangResult
	nextID int
	latest *models.PanchangResult

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPanchangStream(calc *Calculator, interval time.Duration, log *applogger.Logger) *PanchangStream {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &PanchangStream{
		calc:     calc,
		interval: interval,
		log:      log,
		subs:     make(map[int]chan models.PanchangResult),
	}
}

// Interval is the tick period.
func (s *PanchangStream) Interval() time.Duration { return s.interval }

func (s *PanchangStream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

func (s *PanchangStream) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *PanchangStream) tick(ctx context.Context) {
	// stream ticks are not history
	res, err := s.calc.panchangAt(ctx, s.calc.Now())
	if err != nil {
		s.log.Warn("panchang stream tick", applogger.Error(err))
		return
	}
	s.publish(res)
}

func (s *PanchangStream) publish(res models.PanchangResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &res
	for _, ch := range s.subs {
		select {
		case ch <- res:
		default:
			// slow subscriber keeps its previous snapshot
		}
	}
}

// Subscribe returns a channel of snapshots and the func that releases it.
func (s *PanchangStream) Subscribe() (<-chan models.PanchangResult, func()) {
	ch := make(chan models.PanchangResult, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	if s.latest != nil {
		ch <- *s.latest
	}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
}

// Subscribers reports the number of live subscriptions.
func (s *PanchangStream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Shutdown stops the ticker and closes every subscriber channel.
func (s *PanchangStream) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
	return nil
}
