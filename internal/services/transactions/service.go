package transactions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/EcoChain/delivery-core/internal/broker/messages"
	"github.com/EcoChain/delivery-core/internal/cache"
	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/EcoChain/delivery-core/internal/services/planner"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Repository interface {
	CreateTransaction(ctx context.Context, in models.TransactionCreateInput) (*models.Transaction, error)
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ConfirmTransaction(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	CancelTransaction(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	InsertNotifications(ctx context.Context, items []*models.Notification) error
	ListNotificationsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error)
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	currentTTL time.Duration
}

func New(repo Repository, c cache.BytesCache, currentTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, currentTTL: currentTTL}
}

func (s *Service) CreateTransaction(ctx context.Context, in models.TransactionCreateInput) (*models.Transaction, error) {
	if in.BuyerID == uuid.Nil {
		return nil, errors.New("buyerId is required")
	}
	if in.SellerID == uuid.Nil {
		return nil, errors.New("sellerId is required")
	}
	if in.BuyerID == in.SellerID {
		return nil, errors.New("buyer and seller must differ")
	}
	if in.ItemID == uuid.Nil {
		return nil, errors.New("itemId is required")
	}
	if !in.DeliveryMethod.Valid() {
		return nil, errors.Errorf("invalid delivery method %q", in.DeliveryMethod)
	}
	return s.repo.CreateTransaction(ctx, in)
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, errors.New("transactionId is required")
	}

	// Кэшируем "текущее состояние" целиком как JSON. Best effort:
	// кэш не обязан быть всегда.
	if s.cache != nil && s.currentTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(id)); err == nil && ok {
			var t models.Transaction
			if json.Unmarshal(b, &t) == nil {
				return &t, nil
			}
		}
	}

	t, err := s.repo.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.currentTTL > 0 {
		if b, err := json.Marshal(t); err == nil {
			_ = s.cache.Set(ctx, currentKey(id), b, s.currentTTL)
		}
	}
	return t, nil
}

func (s *Service) ConfirmTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, errors.New("transactionId is required")
	}
	ok, err := s.repo.ConfirmTransaction(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("transaction is not pending")
	}
	s.invalidate(ctx, id)
	return s.repo.GetTransactionByID(ctx, id)
}

func (s *Service) CancelTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, errors.New("transactionId is required")
	}
	ok, err := s.repo.CancelTransaction(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("transaction is already delivered or cancelled")
	}
	s.invalidate(ctx, id)
	return s.repo.GetTransactionByID(ctx, id)
}

// TrackingSteps projects the transaction's current status onto its method's
// fixed milestone list (то, что рендерит экран трекинга).
func (s *Service) TrackingSteps(ctx context.Context, id uuid.UUID) ([]models.DeliveryStep, error) {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	return planner.StepsForStatus(t.DeliveryMethod, t.Status), nil
}

func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error) {
	if userID == uuid.Nil {
		return nil, errors.New("userId is required")
	}
	return s.repo.ListNotificationsByUser(ctx, userID, limit, offset)
}

// ApplyStatusUpdate обрабатывает сообщение воркера из kafka: записывает
// уведомления получателям и сбрасывает кэш сделки.
func (s *Service) ApplyStatusUpdate(ctx context.Context, msg messages.StatusUpdated) error {
	if msg.TransactionID == uuid.Nil {
		return errors.New("transaction_id is required")
	}

	items := make([]*models.Notification, 0, len(msg.Notifications))
	for _, n := range msg.Notifications {
		items = append(items, &models.Notification{
			UserID:        n.UserID,
			Type:          models.NotificationTypeDelivery,
			Title:         n.Title,
			Message:       n.Message,
			TransactionID: msg.TransactionID,
		})
	}
	if err := s.repo.InsertNotifications(ctx, items); err != nil {
		return err
	}

	s.invalidate(ctx, msg.TransactionID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache != nil && s.currentTTL > 0 {
		_ = s.cache.Del(ctx, currentKey(id))
	}
}

func currentKey(id uuid.UUID) string {
	return fmt.Sprintf("transaction:%s:current", id)
}
