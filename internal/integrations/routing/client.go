package routing

import (
	"context"
	"time"

	"github.com/EcoChain/delivery-core/internal/models"
)

type RouteResult struct {
	DistanceKm float64
	Duration   time.Duration
	Path       []models.Coordinate
}

type Client interface {
	Route(ctx context.Context, origin, destination models.Coordinate) (RouteResult, error)
}

// Geocoder resolves a free-text address to coordinates. An unresolvable
// address is not an error: ok=false, err=nil.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Coordinate, bool, error)
}
