package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Jyotish/internal/domain/models"
	"Jyotish/internal/domain/service"
	"Jyotish/pkg/cache"
	xhttp "Jyotish/pkg/http"
)

type fakeMetrics struct {
	mu     sync.Mutex
	hits   int
	misses int
	errors []string
}

func (m *fakeMetrics) RecordCalculation(string, float64)   {}
func (m *fakeMetrics) RecordEventPublished(string, string) {}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}
func (m *fakeMetrics) RecordCache(_ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func TestLongitudeOfCachesPerInstant(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/longitude" {
			http.NotFound(w, r)
			return
		}
		lon := 10.5
		if r.URL.Query().Get("body") == "Moon" {
			lon = 82.5
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"body":%q,"longitude":%v}`, r.URL.Query().Get("body"), lon)
	}))
	defer srv.Close()

	mem := cache.NewMemoryCache()
	defer mem.Close()
	m := &fakeMetrics{}
	p, err := NewHTTPProvider(srv.URL+"/", xhttp.NewClient(), WithCache(mem, time.Minute), WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 3, 1, 6, 0, 0, 250, time.UTC)
	for i := 0; i < 3; i++ {
		lon, err := p.LongitudeOf(context.Background(), models.BodyMoon, at)
		if err != nil {
			t.Fatalf("LongitudeOf: %v", err)
		}
		if lon != 82.5 {
			t.Fatalf("lon = %v, want 82.5", lon)
		}
	}
	if lon, _ := p.LongitudeOf(context.Background(), models.BodySun, at); lon != 10.5 {
		t.Fatalf("sun lon = %v", lon)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("remote calls = %d, want 2", got)
	}
	if m.hits != 2 || m.misses != 2 {
		t.Errorf("cache hits/misses = %d/%d, want 2/2", m.hits, m.misses)
	}
}

func TestLongitudeOfUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down", http.StatusServiceUnavailable)
			},
			reason: "ephemeris_request",
		},
		{
			name: "missing longitude",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"body":"Sun"}`)
			},
			reason: "ephemeris_payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			m := &fakeMetrics{}
			client := xhttp.NewClient(xhttp.WithRetries(1, time.Millisecond))
			p, err := NewHTTPProvider(srv.URL, client, WithMetrics(m))
			if err != nil {
				t.Fatal(err)
			}

			_, err = p.LongitudeOf(context.Background(), models.BodySun, time.Now())
			if !errors.Is(err, service.ErrEphemerisUnavailable) {
				t.Fatalf("err = %v, want ErrEphemerisUnavailable", err)
			}
			if len(m.errors) != 1 || m.errors[0] != tt.reason {
				t.Errorf("recorded errors = %v, want [%s]", m.errors, tt.reason)
			}
		})
	}
}

func TestNewHTTPProviderRequiresURL(t *testing.T) {
	if _, err := NewHTTPProvider("", nil); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
