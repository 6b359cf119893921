package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"Jyotish/internal/domain/models"
	domrepo "Jyotish/internal/domain/repository"
	"Jyotish/internal/domain/service"
	imetrics "Jyotish/internal/service/metrics"
	"Jyotish/pkg/cache"
	xhttp "Jyotish/pkg/http"
	applogger "Jyotish/pkg/logger"
)

const cacheName = "ephemeris"

// longitudeResponse is the provider's reply to GET {base}/longitude.
type longitudeResponse struct {
	Body      string   `json:"body"`
	Longitude *float64 `json:"longitude"`
	Ayanamsha string   `json:"ayanamsha,omitempty"`
}

// HTTPProvider asks a remote ephemeris service for sidereal longitudes and caches
// answers per (body, second).
type HTTPProvider struct {
	baseURL string
	client  *xhttp.Client
	cache   cache.Service
	ttl     time.Duration
	metrics domrepo.Metrics
	log     *applogger.Logger
}

// Option configures HTTPProvider.
type Option func(*HTTPProvider)

// WithCache enables lookups through c; ttl <= 0 keeps entries until evicted.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(p *HTTPProvider) {
		p.cache = c
		p.ttl = ttl
	}
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(p *HTTPProvider) { p.metrics = m }
}

func WithLogger(l *applogger.Logger) Option {
	return func(p *HTTPProvider) {
		if l != nil {
			p.log = l
		}
	}
}

func NewHTTPProvider(baseURL string, client *xhttp.Client, opts ...Option) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("ephemeris base url is required")
	}
	if client == nil {
		client = xhttp.NewClient()
	}
	p := &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		log:     applogger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	imetrics.Register()
	return p, nil
}

// LongitudeOf returns the sidereal longitude of body at instant. Every failure wraps
// service.ErrEphemerisUnavailable.
func (p *HTTPProvider) LongitudeOf(ctx context.Context, body models.Body, instant time.Time) (float64, error) {
	instant = instant.UTC().Truncate(time.Second)
	key := cache.GenerateKeyWithParams(cacheName, body, instant.Unix())

	if p.cache != nil {
		var lon float64
		err := p.cache.Get(ctx, key, &lon)
		p.recordCache(err == nil)
		if err == nil {
			return lon, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.log.Warn("ephemeris cache read", applogger.String("key", key), applogger.Error(err))
		}
	}

	lon, err := p.fetch(ctx, body, instant)
	if err != nil {
		return 0, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, lon, p.ttl); err != nil {
			p.log.Warn("ephemeris cache write", applogger.String("key", key), applogger.Error(err))
		}
	}
	return lon, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, body models.Body, instant time.Time) (float64, error) {
	start := time.Now()
	var resp longitudeResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: "GET",
		URL:    p.baseURL + "/longitude",
		QueryParams: map[string][]string{
			"body": {string(body)},
			"time": {instant.Format(time.RFC3339)},
		},
	}, &resp)
	imetrics.EphemerisLatency.WithLabelValues(string(body)).Observe(time.Since(start).Seconds())

	if err != nil {
		p.fail("request")
		p.log.Error("ephemeris request failed",
			applogger.String("body", string(body)),
			applogger.Time("instant", instant),
			applogger.Error(err))
		return 0, fmt.Errorf("%w: %s at %s: %v", service.ErrEphemerisUnavailable, body, instant.Format(time.RFC3339), err)
	}
	if resp.Longitude == nil || math.IsNaN(*resp.Longitude) || math.IsInf(*resp.Longitude, 0) {
		p.fail("payload")
		return 0, fmt.Errorf("%w: %s at %s: missing or non-finite longitude", service.ErrEphemerisUnavailable, body, instant.Format(time.RFC3339))
	}
	return *resp.Longitude, nil
}

func (p *HTTPProvider) fail(reason string) {
	imetrics.EphemerisErrors.WithLabelValues(reason).Inc()
	if p.metrics != nil {
		p.metrics.RecordError("ephemeris_" + reason)
	}
}

func (p *HTTPProvider) recordCache(hit bool) {
	if p.metrics != nil {
		p.metrics.RecordCache(cacheName, hit)
	}
}

var _ service.EphemerisProvider = (*HTTPProvider)(nil)
