package fake

import (
	"context"
	"time"

	"github.com/EcoChain/delivery-core/internal/integrations/routing"
	"github.com/EcoChain/delivery-core/internal/models"
)

// FakeClient — детерминированная заглушка routing-сервиса для dev/тестов.
// Дистанция = haversine * дорожный коэффициент, скорость фиксированная.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

const (
	roadFactor  = 1.25
	avgSpeedKmh = 50.0
	pathPoints  = 20
)

func (f *FakeClient) Route(ctx context.Context, origin, destination models.Coordinate) (routing.RouteResult, error) {
	km := models.HaversineKm(origin, destination) * roadFactor
	hours := km / avgSpeedKmh

	return routing.RouteResult{
		DistanceKm: km,
		Duration:   time.Duration(hours * float64(time.Hour)),
		Path:       models.InterpolatePath(origin, destination, pathPoints),
	}, nil
}
