package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"Jyotish/internal/domain/models"
	drepo "Jyotish/internal/domain/repository"
	"Jyotish/internal/domain/service"
	icache "Jyotish/internal/service/cache"
	"Jyotish/internal/services/vedic"
	applogger "Jyotish/pkg/logger"
	"Jyotish/pkg/util"
)

// EventSink receives every recorded calculation.
type EventSink interface {
	Process(ctx context.Context, e *models.CalculationEvent) error
}

// Calculator runs the engines for the API, the stream and the CLI. It resolves
// instants through the ephemeris, caches instant-based Panchang results and
// records each computation.
type Calculator struct {
	ref      *vedic.ReferenceTable
	eph      service.EphemerisProvider
	sink     EventSink
	cache    icache.BytesCache
	cacheTTL time.Duration
	metrics  drepo.Metrics
	log      *applogger.Logger
	now      func() time.Time
}

type CalculatorOption func(*Calculator)

// WithEphemeris enables instant-based calculations.
func WithEphemeris(p service.EphemerisProvider) CalculatorOption {
	return func(c *Calculator) { c.eph = p }
}

func WithEventSink(s EventSink) CalculatorOption {
	return func(c *Calculator) { c.sink = s }
}

// WithResponseCache caches PanchangAt results per second of the instant.
func WithResponseCache(bc icache.BytesCache, ttl time.Duration) CalculatorOption {
	return func(c *Calculator) {
		c.cache = bc
		c.cacheTTL = ttl
	}
}

func WithCalculatorLogger(l *applogger.Logger) CalculatorOption {
	return func(c *Calculator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) { c.now = now }
}

func NewCalculator(ref *vedic.ReferenceTable, metrics drepo.Metrics, opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		ref:     ref,
		metrics: metrics,
		log:     applogger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now is the calculator's clock.
func (c *Calculator) Now() time.Time { return c.now() }

// PanchangFromLongitudes computes the Panchang of two sidereal longitudes.
func (c *Calculator) PanchangFromLongitudes(ctx context.Context, sunLon, moonLon float64) models.PanchangResult {
	start := time.Now()
	res := vedic.ComputePanchang(sunLon, moonLon)
	c.metrics.RecordCalculation(string(models.KindPanchang), time.Since(start).Seconds())

	c.record(ctx, models.KindPanchang, map[string]float64{"sun_lon": sunLon, "moon_lon": moonLon}, res)
	return res
}

// PanchangAt resolves Sun and Moon at instant and computes the Panchang.
func (c *Calculator) PanchangAt(ctx context.Context, instant time.Time) (models.PanchangResult, error) {
	res, err := c.panchangAt(ctx, instant)
	if err != nil {
		return res, err
	}
	c.record(ctx, models.KindPanchang, map[string]string{"instant": res.SourceTime.Format(time.RFC3339)}, res)
	return res, nil
}

func (c *Calculator) panchangAt(ctx context.Context, instant time.Time) (models.PanchangResult, error) {
	instant = instant.UTC().Truncate(time.Second)
	key := fmt.Sprintf("panchang:%d", instant.Unix())

	if c.cache != nil {
		b, ok, err := c.cache.GetBytes(ctx, key)
		if err != nil {
			c.log.Warn("panchang cache read", applogger.String("key", key), applogger.Error(err))
		}
		c.metrics.RecordCache("panchang", ok)
		if ok {
			var cached models.PanchangResult
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
		}
	}

	start := time.Now()
	sun, moon, err := c.sunAndMoon(ctx, instant)
	if err != nil {
		c.metrics.RecordError("ephemeris")
		return models.PanchangResult{}, err
	}
	res := vedic.ComputePanchang(sun, moon)
	res.SourceTime = &instant
	res.JulianDay = util.JulianDay(instant)
	c.metrics.RecordCalculation(string(models.KindPanchang), time.Since(start).Seconds())

	if c.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := c.cache.SetBytes(ctx, key, b, c.cacheTTL); err != nil {
				c.log.Warn("panchang cache write", applogger.String("key", key), applogger.Error(err))
			}
		}
	}
	return res, nil
}

func (c *Calculator) sunAndMoon(ctx context.Context, instant time.Time) (float64, float64, error) {
	if c.eph == nil {
		return 0, 0, fmt.Errorf("%w: no provider configured", service.ErrEphemerisUnavailable)
	}
	sun, err := c.eph.LongitudeOf(ctx, models.BodySun, instant)
	if err != nil {
		return 0, 0, err
	}
	moon, err := c.eph.LongitudeOf(ctx, models.BodyMoon, instant)
	if err != nil {
		return 0, 0, err
	}
	return sun, moon, nil
}

// Dasha computes the Vimshottari schedule for a birth Moon longitude.
func (c *Calculator) Dasha(ctx context.Context, moonLon float64, birth time.Time) models.DashaSchedule {
	start := time.Now()
	res := vedic.VimshottariDasha(moonLon, birth)
	c.metrics.RecordCalculation(string(models.KindDasha), time.Since(start).Seconds())

	c.record(ctx, models.KindDasha, map[string]interface{}{
		"moon_lon": moonLon,
		"birth":    birth.Format("2006-01-02T15:04:05"),
	}, res)
	return res
}

// Match scores the Ashta Koota compatibility of two birth Moon longitudes.
func (c *Calculator) Match(ctx context.Context, boyMoonLon, girlMoonLon float64) (models.CompatibilityResult, error) {
	start := time.Now()
	res, err := vedic.GunaMilan(c.ref, boyMoonLon, girlMoonLon)
	if err != nil {
		if errors.Is(err, vedic.ErrInvalidReference) {
			c.metrics.RecordError("reference")
			c.log.Error("nakshatra reference unusable", applogger.Error(err))
		}
		return res, err
	}
	c.metrics.RecordCalculation(string(models.KindMatch), time.Since(start).Seconds())

	c.record(ctx, models.KindMatch, map[string]float64{
		"boy_moon_lon":  boyMoonLon,
		"girl_moon_lon": girlMoonLon,
	}, res)
	return res, nil
}

// Locate places a longitude on the zodiac.
func (c *Calculator) Locate(lon float64) models.Position {
	return vedic.Locate(lon)
}

// PositionAt asks the ephemeris for body at instant and locates it.
func (c *Calculator) PositionAt(ctx context.Context, body models.Body, instant time.Time) (models.BodyPosition, error) {
	if c.eph == nil {
		return models.BodyPosition{}, fmt.Errorf("%w: no provider configured", service.ErrEphemerisUnavailable)
	}
	instant = instant.UTC().Truncate(time.Second)
	lon, err := c.eph.LongitudeOf(ctx, body, instant)
	if err != nil {
		c.metrics.RecordError("ephemeris")
		return models.BodyPosition{}, err
	}
	return models.BodyPosition{
		Body:      body,
		Position:  vedic.Locate(lon),
		Instant:   instant,
		JulianDay: util.JulianDay(instant),
	}, nil
}

// record hands the calculation to the sink. Failures are logged, never returned:
// a result is still valid when history is down.
func (c *Calculator) record(ctx context.Context, kind models.CalculationKind, input, result interface{}) {
	if c.sink == nil {
		return
	}
	in, err := json.Marshal(input)
	if err != nil {
		c.log.Error("encode calculation input", applogger.String("kind", string(kind)), applogger.Error(err))
		return
	}
	out, err := json.Marshal(result)
	if err != nil {
		c.log.Error("encode calculation result", applogger.String("kind", string(kind)), applogger.Error(err))
		return
	}

	e := &models.CalculationEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Input:      in,
		Result:     out,
		ComputedAt: c.now().UTC(),
	}
	if err := c.sink.Process(ctx, e); err != nil {
		c.log.Warn("calculation not recorded",
			applogger.String("kind", string(kind)),
			applogger.String("event_id", e.ID),
			applogger.Error(err))
	}
}
