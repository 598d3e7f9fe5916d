package advancer

import (
	"time"

	"github.com/EcoChain/delivery-core/internal/models"
)

// Thresholds define how much wall-clock time must pass since a transaction's
// creation before it is promoted to the next status. Значения по умолчанию —
// демо-константы маркетплейса, в проде задаются через конфиг.
type Thresholds struct {
	ExpressInTransitAfter time.Duration // default: 90 minutes
	ExpressDeliveredAfter time.Duration // default: 180 minutes

	CarrierInTransitAfter time.Duration // default: 8 hours
	CarrierDeliveredAfter time.Duration // default: 48 hours
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ExpressInTransitAfter: 90 * time.Minute,
		ExpressDeliveredAfter: 180 * time.Minute,
		CarrierInTransitAfter: 8 * time.Hour,
		CarrierDeliveredAfter: 48 * time.Hour,
	}
}

func (t Thresholds) normalized() Thresholds {
	def := DefaultThresholds()
	if t.ExpressInTransitAfter <= 0 {
		t.ExpressInTransitAfter = def.ExpressInTransitAfter
	}
	if t.ExpressDeliveredAfter <= 0 {
		t.ExpressDeliveredAfter = def.ExpressDeliveredAfter
	}
	if t.CarrierInTransitAfter <= 0 {
		t.CarrierInTransitAfter = def.CarrierInTransitAfter
	}
	if t.CarrierDeliveredAfter <= 0 {
		t.CarrierDeliveredAfter = def.CarrierDeliveredAfter
	}
	return t
}

// Next returns the status a transaction should move to given the status read
// at claim time and the elapsed time since creation. At most one transition
// per evaluation: confirmed never jumps straight to delivered, независимо от
// прошедшего времени. local_pickup никогда не продвигается автоматически —
// завершение самовывоза подтверждают сами пользователи.
func (t Thresholds) Next(method models.DeliveryMethod, from models.TransactionStatus, elapsed time.Duration) (models.TransactionStatus, bool) {
	switch method {
	case models.DeliveryMethodExpressDelivery:
		switch from {
		case models.TransactionStatusConfirmed:
			if elapsed >= t.ExpressInTransitAfter {
				return models.TransactionStatusInTransit, true
			}
		case models.TransactionStatusInTransit:
			if elapsed >= t.ExpressDeliveredAfter {
				return models.TransactionStatusDelivered, true
			}
		}
	case models.DeliveryMethodCarrierShipping:
		switch from {
		case models.TransactionStatusConfirmed:
			if elapsed >= t.CarrierInTransitAfter {
				return models.TransactionStatusInTransit, true
			}
		case models.TransactionStatusInTransit:
			if elapsed >= t.CarrierDeliveredAfter {
				return models.TransactionStatusDelivered, true
			}
		}
	}
	return "", false
}
