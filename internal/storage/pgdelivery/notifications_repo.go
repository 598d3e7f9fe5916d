package pgdelivery

import (
	"context"
	"time"

	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// InsertNotifications записывает пачку уведомлений одной транзакцией:
// либо все (покупателю и продавцу), либо ни одного.
func (s *Storage) InsertNotifications(ctx context.Context, items []*models.Notification) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	for _, n := range items {
		id := n.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		createdAt := n.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO notifications (id, user_id, type, title, message, transaction_id, is_read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, id, n.UserID, n.Type, n.Title, n.Message, n.TransactionID, n.Read, createdAt); err != nil {
			return errors.Wrap(err, "insert notification")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func (s *Storage) ListNotificationsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, user_id, type, title, message, transaction_id, is_read, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select notifications")
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.TransactionID, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		out = append(out, &n)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	return errors.Wrap(err, "mark notification read")
}
