package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"attendance-backend/internal/domain"
	"attendance-backend/internal/geocode"
)

// Geolocation failure taxonomy. Each sentinel maps to a distinct user-facing
// message via Guidance.
var (
	ErrNotSupported        = errors.New("geolocation is not supported on this device")
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrLocationTimeout     = errors.New("location request timed out")
)

// Position a raw fix from the platform positioning source.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// PositionProvider abstracts the platform positioning source. Implementations
// must honor ctx cancellation and return one of the sentinel errors above
// when the failure class is known.
type PositionProvider interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// ReverseGeocoder turns coordinates into a display address.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

const defaultPositionTimeout = 10 * time.Second

// Resolver acquires a fresh position and enriches it with a human-readable
// address. Address resolution is best-effort; a coordinate fix always
// produces a usable location.
type Resolver struct {
	provider PositionProvider
	geocoder ReverseGeocoder
	timeout  time.Duration
	logger   *zap.Logger
}

func NewResolver(provider PositionProvider, geocoder ReverseGeocoder, logger *zap.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		geocoder: geocoder,
		timeout:  defaultPositionTimeout,
		logger:   logger,
	}
}

// SetTimeout overrides the per-fix timeout.
func (r *Resolver) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// CurrentPosition acquires a fresh fix. Cached fixes are never served; every
// call goes to the provider.
func (r *Resolver) CurrentPosition(ctx context.Context) (Position, error) {
	if r.provider == nil {
		return Position{}, ErrNotSupported
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pos, err := r.provider.CurrentPosition(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Position{}, ErrLocationTimeout
		}
		return Position{}, err
	}
	return pos, nil
}

// CompleteLocation acquires a fix and reverse-geocodes it. When the geocoder
// is missing or fails, the address falls back to the coordinates fixed to
// six decimals; only a failed fix is an error.
func (r *Resolver) CompleteLocation(ctx context.Context) (domain.GeoLocation, error) {
	pos, err := r.CurrentPosition(ctx)
	if err != nil {
		return domain.GeoLocation{}, fmt.Errorf("failed to acquire position: %w", err)
	}

	loc := domain.GeoLocation{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Accuracy:  pos.Accuracy,
		Address:   geocode.FormatCoordinates(pos.Latitude, pos.Longitude),
	}

	if r.geocoder != nil {
		address, err := r.geocoder.Reverse(ctx, pos.Latitude, pos.Longitude)
		if err != nil {
			r.logger.Warn("Reverse geocoding failed, keeping coordinate address",
				zap.Float64("lat", pos.Latitude),
				zap.Float64("lon", pos.Longitude),
				zap.Error(err),
			)
		} else if address != "" {
			loc.Address = address
		}
	}

	return loc, nil
}

// Guidance maps a geolocation failure onto the message shown to the
// employee.
func Guidance(err error) string {
	switch {
	case errors.Is(err, ErrNotSupported):
		return "Location is not supported on this device. Please use a device with GPS."
	case errors.Is(err, ErrPermissionDenied):
		return "Location permission was denied. Please allow location access and try again."
	case errors.Is(err, ErrPositionUnavailable):
		return "Your position could not be determined. Please move to an open area and try again."
	case errors.Is(err, ErrLocationTimeout):
		return "Locating you took too long. Please check your signal and try again."
	default:
		return "Could not determine your location. Please try again."
	}
}
