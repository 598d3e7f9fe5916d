package models

import (
	"time"

	"github.com/google/uuid"
)

// Способы доставки (closed set, фиксируется при создании сделки).
type DeliveryMethod string

const (
	DeliveryMethodLocalPickup     DeliveryMethod = "local_pickup"
	DeliveryMethodExpressDelivery DeliveryMethod = "express_delivery"
	DeliveryMethodCarrierShipping DeliveryMethod = "carrier_shipping"
)

func (m DeliveryMethod) Valid() bool {
	switch m {
	case DeliveryMethodLocalPickup, DeliveryMethodExpressDelivery, DeliveryMethodCarrierShipping:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusInTransit TransactionStatus = "in_transit"
	TransactionStatusDelivered TransactionStatus = "delivered"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Terminal statuses are never touched again, not even by the advancer.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusDelivered || s == TransactionStatusCancelled
}

var allowedTransitions = map[TransactionStatus]map[TransactionStatus]bool{
	TransactionStatusPending:   {TransactionStatusConfirmed: true, TransactionStatusCancelled: true},
	TransactionStatusConfirmed: {TransactionStatusInTransit: true, TransactionStatusCancelled: true},
	TransactionStatusInTransit: {TransactionStatusDelivered: true, TransactionStatusCancelled: true},
	TransactionStatusDelivered: {},
	TransactionStatusCancelled: {},
}

// CanTransition reports whether from->to is an allowed lifecycle move.
func CanTransition(from, to TransactionStatus) bool {
	nexts := allowedTransitions[from]
	return nexts != nil && nexts[to]
}

type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	BuyerID        uuid.UUID         `json:"buyerId"`
	SellerID       uuid.UUID         `json:"sellerId"`
	ItemID         uuid.UUID         `json:"itemId"`
	Status         TransactionStatus `json:"status"`
	DeliveryMethod DeliveryMethod    `json:"deliveryMethod"`
	CreatedAt      time.Time         `json:"createdAt"`
	ConfirmedAt    *time.Time        `json:"confirmedAt,omitempty"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type TransactionCreateInput struct {
	BuyerID        uuid.UUID
	SellerID       uuid.UUID
	ItemID         uuid.UUID
	DeliveryMethod DeliveryMethod
}
