package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	models "Jyotish/internal/domain/models"
	"Jyotish/internal/domain/service"
	"Jyotish/internal/repository"
	"Jyotish/internal/services/vedic"
	"Jyotish/internal/usecase"
	"Jyotish/pkg/config"
)

type nopMetrics struct{}

func (nopMetrics) RecordCalculation(string, float64)   {}
func (nopMetrics) RecordEventPublished(string, string) {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordCache(string, bool)            {}

type failingEphemeris struct{ err error }

func (f failingEphemeris) LongitudeOf(context.Context, models.Body, time.Time) (float64, error) {
	return 0, f.err
}

type lonEphemeris map[models.Body]float64

func (l lonEphemeris) LongitudeOf(_ context.Context, b models.Body, _ time.Time) (float64, error) {
	return l[b], nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newEcho(t *testing.T, ref *vedic.ReferenceTable, opts ...usecase.CalculatorOption) (*echo.Echo, *usecase.EventRecorder) {
	t.Helper()
	store := repository.NewMemoryHistory(16)
	rec := usecase.NewEventRecorder(nil, store, nil, nopMetrics{}, config.BackendNone)
	opts = append(opts, usecase.WithEventSink(rec))
	calc := usecase.NewCalculator(ref, nopMetrics{}, opts...)

	e := echo.New()
	NewCalculationHandler(nil, calc, rec).RegisterRoutes(e)
	NewSystemHandler("test", config.BackendNone, map[string]HealthChecker{"history": rec}).RegisterRoutes(e)
	return e, rec
}

func defaultTable(t *testing.T) *vedic.ReferenceTable {
	t.Helper()
	ref, err := vedic.DefaultReferenceTable()
	if err != nil {
		t.Fatal(err)
	}
	return ref
}

func get(e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestPanchangEndpoint(t *testing.T) {
	fixed := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	e, _ := newEcho(t, defaultTable(t),
		usecase.WithEphemeris(lonEphemeris{models.BodySun: 0, models.BodyMoon: 72}),
		usecase.WithClock(func() time.Time { return fixed }),
	)

	tests := []struct {
		name   string
		target string
		status int
		code   string
		check  func(t *testing.T, res models.PanchangResult)
	}{
		{
			name:   "direct longitudes",
			target: "/api/panchang?sun_lon=0&moon_lon=72",
			status: http.StatusOK,
			check: func(t *testing.T, res models.PanchangResult) {
				if res.Tithi != "Saptami" || res.SourceTime != nil {
					t.Fatalf("unexpected: %+v", res)
				}
			},
		},
		{
			name:   "instant with default hour",
			target: "/api/panchang?year=2000&month=1&day=1",
			status: http.StatusOK,
			check: func(t *testing.T, res models.PanchangResult) {
				if res.SourceTime == nil || !res.SourceTime.Equal(fixed) || res.JulianDay != 2451545.0 {
					t.Fatalf("unexpected instant: %+v", res)
				}
			},
		},
		{
			name:   "now when no year",
			target: "/api/panchang",
			status: http.StatusOK,
			check: func(t *testing.T, res models.PanchangResult) {
				if res.SourceTime == nil || !res.SourceTime.Equal(fixed) {
					t.Fatalf("expected the clock's now, got %v", res.SourceTime)
				}
			},
		},
		{
			name:   "at timestamp",
			target: "/api/panchang?at=946728000",
			status: http.StatusOK,
			check: func(t *testing.T, res models.PanchangResult) {
				if res.SourceTime == nil || !res.SourceTime.Equal(fixed) {
					t.Fatalf("unexpected instant: %v", res.SourceTime)
				}
			},
		},
		{
			name:   "bad at",
			target: "/api/panchang?at=yesterday",
			status: http.StatusBadRequest,
			code:   "ERR_INVALID_FIELD",
		},
		{
			name:   "impossible date",
			target: "/api/panchang?year=2023&month=2&day=30",
			status: http.StatusBadRequest,
			code:   "ERR_INVALID_FIELD",
		},
		{
			name:   "non numeric longitude",
			target: "/api/panchang?sun_lon=abc",
			status: http.StatusBadRequest,
			code:   "ERR_NUMERIC",
		},
		{
			name:   "hour out of range",
			target: "/api/panchang?year=2000&hour=24",
			status: http.StatusBadRequest,
			code:   "ERR_LT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := get(e, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.code != "" {
				if !strings.Contains(string(env.Data), tt.code) {
					t.Fatalf("body %s does not carry %s", env.Data, tt.code)
				}
				return
			}
			var res models.PanchangResult
			if err := json.Unmarshal(env.Data, &res); err != nil {
				t.Fatal(err)
			}
			tt.check(t, res)
		})
	}
}

func TestPanchangEphemerisUnavailable(t *testing.T) {
	down := failingEphemeris{err: errors.Join(service.ErrEphemerisUnavailable, errors.New("timeout"))}
	e, _ := newEcho(t, defaultTable(t), usecase.WithEphemeris(down))

	rec, env := get(e, "/api/panchang?year=2000&month=1&day=1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(env.Data), "ERR_EPHEMERIS_UNAVAILABLE") {
		t.Fatalf("body = %s", env.Data)
	}
}

func TestDashaEndpoint(t *testing.T) {
	e, _ := newEcho(t, defaultTable(t))

	rec, env := get(e, "/api/dasha?moon_lon=0&year=2000&month=1&day=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var sched struct {
		System string `json:"system"`
		Dashas []struct {
			Planet string `json:"planet"`
			Start  string `json:"start"`
		} `json:"dashas"`
	}
	if err := json.Unmarshal(env.Data, &sched); err != nil {
		t.Fatal(err)
	}
	if len(sched.Dashas) != 9 || sched.Dashas[0].Planet != "Ketu" || sched.Dashas[0].Start != "2000-01-01" {
		t.Fatalf("unexpected schedule: %+v", sched)
	}

	rec, env = get(e, "/api/dasha?moon_lon=0")
	if rec.Code != http.StatusBadRequest || !strings.Contains(string(env.Data), "year") {
		t.Fatalf("missing year: status %d body %s", rec.Code, env.Data)
	}
}

func TestExplicitZeroDateRejected(t *testing.T) {
	e, _ := newEcho(t, defaultTable(t), usecase.WithEphemeris(lonEphemeris{models.BodySun: 10, models.BodyMoon: 100}))

	tests := []struct {
		target string
		field  string
	}{
		{"/api/dasha?moon_lon=10&year=2000&month=0&day=15", "month"},
		{"/api/dasha?moon_lon=10&year=2000&month=3&day=0", "day"},
		{"/api/panchang?year=2000&month=0&day=15", "month"},
		{"/api/panchang?year=2000&month=3&day=0", "day"},
		{"/api/position?body=Mars&year=2000&month=3&day=0", "day"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec, env := get(e, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			if !strings.Contains(strings.ToLower(string(env.Data)), tt.field) {
				t.Fatalf("body %s does not name %s", env.Data, tt.field)
			}
		})
	}

	rec, env := get(e, "/api/dasha?moon_lon=0&year=2000")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), "2000-01-01") {
		t.Fatalf("absent month/day should default to January 1: %d %s", rec.Code, env.Data)
	}
}

func TestMatchEndpoint(t *testing.T) {
	e, rec := newEcho(t, defaultTable(t))

	resp, env := get(e, "/api/match?boy_moon_lon=45&girl_moon_lon=45")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var res models.CompatibilityResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.TotalScore != 28 || res.MaxScore != 36 {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, err := rec.History(context.Background(), models.KindMatch, 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("history = %v, %v", got, err)
	}
}

func TestMatchInvalidReference(t *testing.T) {
	e, _ := newEcho(t, nil)

	resp, env := get(e, "/api/match?boy_moon_lon=45&girl_moon_lon=100")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(string(env.Data), "ERR_CONFIG_INVALID") {
		t.Fatalf("body = %s", env.Data)
	}
}

func TestLocateAndPosition(t *testing.T) {
	e, _ := newEcho(t, defaultTable(t), usecase.WithEphemeris(lonEphemeris{models.BodySun: 45.5}))

	resp, env := get(e, "/api/locate?lon=45.5")
	if resp.Code != http.StatusOK || !strings.Contains(string(env.Data), "Rohini") {
		t.Fatalf("locate: %d %s", resp.Code, env.Data)
	}

	resp, env = get(e, "/api/position?year=2000&month=1&day=1")
	if resp.Code != http.StatusOK {
		t.Fatalf("position: %d %s", resp.Code, env.Data)
	}
	var pos models.BodyPosition
	if err := json.Unmarshal(env.Data, &pos); err != nil {
		t.Fatal(err)
	}
	if pos.Body != models.BodySun || pos.Nakshatra != "Rohini" {
		t.Fatalf("unexpected position: %+v", pos)
	}

	resp, _ = get(e, "/api/position?body=Pluto")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown body status = %d", resp.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	e, _ := newEcho(t, defaultTable(t))
	get(e, "/api/match?boy_moon_lon=10&girl_moon_lon=200")
	get(e, "/api/panchang?sun_lon=10&moon_lon=20")

	resp, env := get(e, "/api/history?kind=match")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var list struct {
		Rows  []models.CalculationEvent `json:"rows"`
		Total int64                     `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Rows[0].Kind != models.KindMatch {
		t.Fatalf("unexpected history: %+v", list)
	}

	resp, _ = get(e, "/api/history?kind=horoscope")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad kind status = %d", resp.Code)
	}
}

func TestSystemEndpoints(t *testing.T) {
	e, _ := newEcho(t, defaultTable(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var info map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil || info["status"] != "online" {
		t.Fatalf("info = %v (%v)", info, err)
	}

	resp, env := get(e, "/health")
	if resp.Code != http.StatusOK || !strings.Contains(string(env.Data), `"history":"ok"`) {
		t.Fatalf("health: %d %s", resp.Code, env.Data)
	}
}

func TestStreamPushesSnapshot(t *testing.T) {
	calc := usecase.NewCalculator(defaultTable(t), nopMetrics{},
		usecase.WithEphemeris(lonEphemeris{models.BodySun: 0, models.BodyMoon: 72}))
	stream := usecase.NewPanchangStream(calc, time.Hour, nil)
	if err := stream.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer stream.Shutdown(context.Background())

	e := echo.New()
	NewStreamHandler(nil, stream).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/panchang/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var frame streamFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != "panchang" || frame.Data == nil || frame.Data.TithiNumber != 7 {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}
