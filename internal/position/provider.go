// Package position defines the location-services collaborator the engine
// depends on for position fixes and reverse geocoding.
package position

import (
	"context"
	"errors"

	"github.com/munchmap/truck-radar/internal/models"
)

// ErrUnavailable is returned when a position fix cannot be acquired.
var ErrUnavailable = errors.New("position unavailable")

// Provider supplies the current position and address of the device a
// vendor broadcasts from. Position acquisition may block for non-trivial
// wall-clock time; callers pass a context if they want a deadline.
type Provider interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (models.Coordinate, error)
	ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error)
}

// FixedProvider is a Provider with a preset position, used in tests and
// by the simulator.
type FixedProvider struct {
	Granted  bool
	Coord    models.Coordinate
	Address  string
	FixError error
}

func (p *FixedProvider) RequestPermission(ctx context.Context) (bool, error) {
	return p.Granted, nil
}

func (p *FixedProvider) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	if p.FixError != nil {
		return models.Coordinate{}, p.FixError
	}
	return p.Coord, nil
}

func (p *FixedProvider) ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error) {
	return p.Address, nil
}
