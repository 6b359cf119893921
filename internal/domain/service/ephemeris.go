package service

import (
	"context"
	"errors"
	"time"

	"Jyotish/internal/domain/models"
)

// ErrEphemerisUnavailable is returned when no longitude could be obtained for an instant.
var ErrEphemerisUnavailable = errors.New("ephemeris unavailable")

// EphemerisProvider supplies sidereal (Lahiri) ecliptic longitudes in degrees.
type EphemerisProvider interface {
	LongitudeOf(ctx context.Context, body models.Body, instant time.Time) (float64, error)
}
