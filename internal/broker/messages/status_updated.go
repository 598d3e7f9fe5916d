package messages

import (
	"time"

	"github.com/google/uuid"
	"github.com/EcoChain/delivery-core/internal/models"
)

// StatusUpdated publishes an advancer transition. The api consumes it to
// persist notification rows and invalidate cached transaction state.
type StatusUpdated struct {
	TransactionID uuid.UUID `json:"transaction_id"`

	Method     models.DeliveryMethod    `json:"method"`
	FromStatus models.TransactionStatus `json:"from_status"`
	NewStatus  models.TransactionStatus `json:"new_status"`

	AdvancedAt time.Time `json:"advanced_at"`

	Notifications []NotificationPayload `json:"notifications,omitempty"`
}

// Одно уведомление на получателя (покупатель и продавец — два payload'а).
type NotificationPayload struct {
	UserID  uuid.UUID `json:"user_id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}
