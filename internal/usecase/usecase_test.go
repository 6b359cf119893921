package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"Jyotish/internal/domain/models"
	"Jyotish/internal/domain/service"
	"Jyotish/internal/repository"
	icache "Jyotish/internal/service/cache"
	"Jyotish/internal/services/vedic"
	"Jyotish/pkg/config"
)

type nopMetrics struct {
	mu        sync.Mutex
	errors    []string
	published []string
	cacheHits int
}

func (m *nopMetrics) RecordCalculation(string, float64) {}
func (m *nopMetrics) RecordEventPublished(sink, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, sink+":"+kind)
}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}
func (m *nopMetrics) RecordCache(_ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
	}
}

type fixedEphemeris struct {
	mu    sync.Mutex
	lons  map[models.Body]float64
	calls int
	err   error
}

func (f *fixedEphemeris) LongitudeOf(_ context.Context, body models.Body, _ time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.lons[body], nil
}

type captureSink struct {
	mu     sync.Mutex
	events []*models.CalculationEvent
	err    error
}

func (s *captureSink) Process(_ context.Context, e *models.CalculationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func newTestCalculator(t *testing.T, opts ...CalculatorOption) *Calculator {
	t.Helper()
	ref, err := vedic.DefaultReferenceTable()
	if err != nil {
		t.Fatalf("reference table: %v", err)
	}
	return NewCalculator(ref, &nopMetrics{}, opts...)
}

func TestPanchangFromLongitudesRecords(t *testing.T) {
	sink := &captureSink{}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calc := newTestCalculator(t, WithEventSink(sink), WithClock(func() time.Time { return at }))

	res := calc.PanchangFromLongitudes(context.Background(), 0, 72)
	if res.Tithi != "Saptami" || res.Nakshatra != "Ardra" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(sink.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(sink.events))
	}
	e := sink.events[0]
	if e.Kind != models.KindPanchang || e.ID == "" || !e.ComputedAt.Equal(at) {
		t.Fatalf("unexpected event: %+v", e)
	}
	var in map[string]float64
	if err := json.Unmarshal(e.Input, &in); err != nil || in["moon_lon"] != 72 {
		t.Fatalf("input = %s (%v)", e.Input, err)
	}
}

func TestSinkFailureDoesNotFailCalculation(t *testing.T) {
	sink := &captureSink{err: errors.New("down")}
	calc := newTestCalculator(t, WithEventSink(sink))

	sched := calc.Dasha(context.Background(), 0, time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	if len(sched.Dashas) != 9 {
		t.Fatalf("dashas = %d, want 9", len(sched.Dashas))
	}
	if len(sink.events) != 1 {
		t.Fatalf("sink saw %d events", len(sink.events))
	}
}

func TestPanchangAtUsesEphemerisAndCache(t *testing.T) {
	eph := &fixedEphemeris{lons: map[models.Body]float64{models.BodySun: 0, models.BodyMoon: 72}}
	sink := &captureSink{}
	calc := newTestCalculator(t,
		WithEphemeris(eph),
		WithEventSink(sink),
		WithResponseCache(icache.NewTTLCache(8), time.Minute),
	)

	at := time.Date(2000, 1, 1, 12, 0, 0, 400, time.UTC)
	for i := 0; i < 2; i++ {
		res, err := calc.PanchangAt(context.Background(), at)
		if err != nil {
			t.Fatalf("PanchangAt: %v", err)
		}
		if res.TithiNumber != 7 {
			t.Fatalf("tithi = %d", res.TithiNumber)
		}
		if res.SourceTime == nil || !res.SourceTime.Equal(at.Truncate(time.Second)) {
			t.Fatalf("source time = %v", res.SourceTime)
		}
		if res.JulianDay != 2451545.0 {
			t.Fatalf("jd = %v, want 2451545.0", res.JulianDay)
		}
	}
	if eph.calls != 2 {
		t.Errorf("ephemeris calls = %d, want 2 (sun+moon once)", eph.calls)
	}
	if len(sink.events) != 2 {
		t.Errorf("recorded %d events, want 2", len(sink.events))
	}
}

func TestPanchangAtWithoutEphemeris(t *testing.T) {
	calc := newTestCalculator(t)
	_, err := calc.PanchangAt(context.Background(), time.Now())
	if !errors.Is(err, service.ErrEphemerisUnavailable) {
		t.Fatalf("err = %v, want ErrEphemerisUnavailable", err)
	}
	if _, err := calc.PositionAt(context.Background(), models.BodySun, time.Now()); !errors.Is(err, service.ErrEphemerisUnavailable) {
		t.Fatalf("PositionAt err = %v", err)
	}
}

func TestPositionAt(t *testing.T) {
	eph := &fixedEphemeris{lons: map[models.Body]float64{models.BodyMars: 45}}
	calc := newTestCalculator(t, WithEphemeris(eph))

	pos, err := calc.PositionAt(context.Background(), models.BodyMars, time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if pos.Body != models.BodyMars || pos.Nakshatra != "Rohini" || pos.Sign != "Vrishabha (Taurus)" {
		t.Fatalf("unexpected position: %+v", pos)
	}
}

func TestMatchRecords(t *testing.T) {
	sink := &captureSink{}
	calc := newTestCalculator(t, WithEventSink(sink))
	res, err := calc.Match(context.Background(), 45, 45)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalScore != 28 {
		t.Fatalf("total = %v", res.TotalScore)
	}
	if len(sink.events) != 1 || sink.events[0].Kind != models.KindMatch {
		t.Fatalf("events = %+v", sink.events)
	}
}

func TestEventRecorderRouting(t *testing.T) {
	ctx := context.Background()
	e := &models.CalculationEvent{
		ID:         "x",
		Kind:       models.KindDasha,
		Input:      json.RawMessage(`{}`),
		Result:     json.RawMessage(`{}`),
		ComputedAt: time.Now().UTC(),
	}

	store := repository.NewMemoryHistory(10)
	m := &nopMetrics{}
	rec := NewEventRecorder(nil, store, nil, m, config.BackendNone)
	if err := rec.Process(ctx, e); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got, err := rec.History(ctx, "", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("history = %v, %v", got, err)
	}

	q := &captureQueue{}
	rec = NewEventRecorder(nil, store, q, m, config.BackendNone)
	if err := rec.Process(ctx, e); err != nil {
		t.Fatal(err)
	}
	if len(q.types) != 1 || q.types[0] != RecordEventType {
		t.Fatalf("queued = %v", q.types)
	}

	rec = NewEventRecorder(nil, store, nil, m, config.BackendKafka)
	if err := rec.Process(ctx, e); err == nil {
		t.Fatal("expected error for kafka backend without publisher")
	}
}

type captureQueue struct {
	types []string
}

func (q *captureQueue) PublishMessage(_ context.Context, msgType string, _ interface{}) error {
	q.types = append(q.types, msgType)
	return nil
}

func TestRecordEventJob(t *testing.T) {
	store := repository.NewMemoryHistory(10)
	job := NewRecordEventJob(store, &nopMetrics{})
	if job.Type() != RecordEventType {
		t.Fatalf("type = %s", job.Type())
	}

	good := `{"id":"a","kind":"match","input":{},"result":{"total_score":20},"computed_at":"2024-01-01T00:00:00Z"}`
	if err := job.Handle(context.Background(), json.RawMessage(good)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	bad := `{"id":"","kind":"match","result":{},"computed_at":"2024-01-01T00:00:00Z"}`
	if err := job.Handle(context.Background(), json.RawMessage(bad)); err == nil {
		t.Fatal("expected validation error")
	}
	got, _ := store.Query(context.Background(), models.KindMatch, 10)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("stored = %+v", got)
	}
}

func TestKafkaCalculationHandler(t *testing.T) {
	store := repository.NewMemoryHistory(10)
	h := NewKafkaCalculationHandler("calculations", store, &nopMetrics{})
	if h.Topic() != "calculations" {
		t.Fatal(h.Topic())
	}
	if err := h.Handle(context.Background(), []byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
	msg := []byte(`{"id":"k","kind":"panchang","input":{},"result":{"tithi":"Saptami"},"computed_at":"2024-01-01T00:00:00Z"}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Query(context.Background(), "", 10)
	if len(got) != 1 {
		t.Fatalf("stored %d", len(got))
	}
}

func TestPanchangStreamReplaysLatest(t *testing.T) {
	eph := &fixedEphemeris{lons: map[models.Body]float64{models.BodySun: 0, models.BodyMoon: 72}}
	sink := &captureSink{}
	calc := newTestCalculator(t, WithEphemeris(eph), WithEventSink(sink))
	s := NewPanchangStream(calc, time.Hour, nil)

	first, stopFirst := s.Subscribe()
	defer stopFirst()
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-first:
		if res.TithiNumber != 7 {
			t.Fatalf("tithi = %d", res.TithiNumber)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
	}

	late, stopLate := s.Subscribe()
	select {
	case <-late:
	default:
		t.Fatal("late subscriber got no replay")
	}
	stopLate()
	if s.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", s.Subscribers())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-first; ok {
		t.Fatal("channel should be closed after shutdown")
	}
	if len(sink.events) != 0 {
		t.Fatalf("stream ticks recorded %d events", len(sink.events))
	}
}
