package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationTypeDelivery = "delivery"
)

type Notification struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"userId"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	TransactionID uuid.UUID `json:"transactionId"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
}
