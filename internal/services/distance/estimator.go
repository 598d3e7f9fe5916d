package distance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/EcoChain/delivery-core/internal/integrations/routing"
	"github.com/EcoChain/delivery-core/internal/models"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

const (
	SourceRoute    = "route"
	SourceFallback = "fallback"
)

type Estimate struct {
	DistanceKm float64
	Duration   time.Duration
	Path       []models.Coordinate
	Source     string
}

// Estimator computes distance/duration/path between two coordinates.
// It prefers the external routing service and degrades to a haversine
// estimate on any failure: корректность оценки вторична, главное —
// всегда вернуть пригодный результат.
type Estimator struct {
	client routing.Client
	rl     RateLimiter

	rateLimitPerMinute int64
	pathPoints         int
}

func New(client routing.Client) *Estimator {
	return &Estimator{
		client:     client,
		pathPoints: 30,
	}
}

func (e *Estimator) WithRateLimiter(rl RateLimiter, perMinute int64) *Estimator {
	if rl != nil && perMinute > 0 {
		e.rl = rl
		e.rateLimitPerMinute = perMinute
	}
	return e
}

func (e *Estimator) WithPathPoints(n int) *Estimator {
	if n >= 2 {
		e.pathPoints = n
	}
	return e
}

// Estimate never fails: any routing problem degrades to the fallback.
func (e *Estimator) Estimate(ctx context.Context, origin, destination models.Coordinate) Estimate {
	if e.client != nil && e.allowRoutingCall(ctx) {
		res, err := e.client.Route(ctx, origin, destination)
		if err == nil && res.DistanceKm >= 0 && len(res.Path) >= 2 {
			return Estimate{
				DistanceKm: res.DistanceKm,
				Duration:   res.Duration,
				Path:       res.Path,
				Source:     SourceRoute,
			}
		}
		if err != nil {
			slog.Warn("routing service unavailable, using fallback", "error", err.Error())
		}
	}
	return e.fallback(origin, destination)
}

func (e *Estimator) allowRoutingCall(ctx context.Context) bool {
	if e.rl == nil || e.rateLimitPerMinute <= 0 {
		return true
	}
	key := fmt.Sprintf("rl:routing:%s", time.Now().UTC().Format("200601021504"))
	allowed, n, err := e.rl.Allow(ctx, key, e.rateLimitPerMinute, 70*time.Second)
	if err != nil {
		// Лимитер недоступен — не блокируем вызов.
		return true
	}
	if !allowed {
		slog.Warn("routing rate limit exceeded, using fallback", "count", n)
	}
	return allowed
}

func (e *Estimator) fallback(origin, destination models.Coordinate) Estimate {
	km := models.HaversineKm(origin, destination)
	hours := km / fallbackSpeedKmh(km)

	return Estimate{
		DistanceKm: km,
		Duration:   time.Duration(hours * float64(time.Hour)),
		Path:       models.InterpolatePath(origin, destination, e.pathPoints),
		Source:     SourceFallback,
	}
}

// Средняя скорость по дистанционным диапазонам: город / трасса / шоссе.
func fallbackSpeedKmh(km float64) float64 {
	switch {
	case km < 10:
		return 30
	case km < 100:
		return 50
	default:
		return 60
	}
}
