package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/EcoChain/delivery-core/internal/cache"
	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/EcoChain/delivery-core/internal/services/distance"
	"github.com/pkg/errors"
)

type DistanceEstimator interface {
	Estimate(ctx context.Context, origin, destination models.Coordinate) distance.Estimate
}

// Тарифы: базовая ставка + линейная цена за км. Без кепов и минималок.
const (
	expressBaseCost  = 15.0
	expressCostPerKm = 0.8
	carrierBaseCost  = 25.0
	carrierCostPerKm = 0.5

	expressMinHours  = 2.0
	expressSpeedKmh  = 25.0
	carrierMinHours  = 24.0
	carrierSpeedKmh  = 15.0
)

type Service struct {
	estimator DistanceEstimator
	cache     cache.BytesCache
	planTTL   time.Duration
}

func New(estimator DistanceEstimator, c cache.BytesCache, planTTL time.Duration) *Service {
	return &Service{estimator: estimator, cache: c, planTTL: planTTL}
}

// Plan derives cost, ETA and the milestone list for a shipment. The plan is
// recomputed on demand; caching is best effort.
func (s *Service) Plan(ctx context.Context, origin, destination models.Coordinate, method models.DeliveryMethod) (models.DeliveryPlan, error) {
	if !method.Valid() {
		return models.DeliveryPlan{}, errors.Errorf("invalid delivery method %q", method)
	}

	key := planKey(origin, destination, method)
	if s.cache != nil && s.planTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var plan models.DeliveryPlan
			if json.Unmarshal(b, &plan) == nil {
				return plan, nil
			}
		}
	}

	est := s.estimator.Estimate(ctx, origin, destination)
	plan := buildPlan(est.DistanceKm, method)

	if s.cache != nil && s.planTTL > 0 {
		if b, err := json.Marshal(plan); err == nil {
			_ = s.cache.Set(ctx, key, b, s.planTTL)
		}
	}
	return plan, nil
}

func buildPlan(distanceKm float64, method models.DeliveryMethod) models.DeliveryPlan {
	return models.DeliveryPlan{
		DistanceKm:    round2(distanceKm),
		EstimatedTime: renderETA(method, estimatedHours(method, distanceKm)),
		Cost:          round2(costFor(method, distanceKm)),
		Steps:         stepsForMethod(method),
	}
}

func costFor(method models.DeliveryMethod, km float64) float64 {
	switch method {
	case models.DeliveryMethodExpressDelivery:
		return expressBaseCost + km*expressCostPerKm
	case models.DeliveryMethodCarrierShipping:
		return carrierBaseCost + km*carrierCostPerKm
	default:
		return 0
	}
}

// estimatedHours applies the per-method speed assumption with a floor, so a
// zero-distance shipment never renders as "0 horas".
func estimatedHours(method models.DeliveryMethod, km float64) float64 {
	switch method {
	case models.DeliveryMethodExpressDelivery:
		return math.Max(expressMinHours, km/expressSpeedKmh)
	case models.DeliveryMethodCarrierShipping:
		return math.Max(carrierMinHours, km/carrierSpeedKmh)
	default:
		return 0
	}
}

func renderETA(method models.DeliveryMethod, hours float64) string {
	if method == models.DeliveryMethodLocalPickup {
		return "Disponível imediatamente"
	}
	if hours < 24 {
		return fmt.Sprintf("%d horas", int(math.Ceil(hours)))
	}
	return fmt.Sprintf("%d dias", int(math.Ceil(hours/24)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func planKey(origin, destination models.Coordinate, method models.DeliveryMethod) string {
	return fmt.Sprintf("plan:%.5f,%.5f:%.5f,%.5f:%s",
		origin.Lat, origin.Lng, destination.Lat, destination.Lng, method)
}
