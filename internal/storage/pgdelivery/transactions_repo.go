package pgdelivery

import (
	"context"
	"time"

	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const transactionColumns = `
  id, buyer_id, seller_id, item_id,
  status, delivery_method,
  created_at, confirmed_at, completed_at, updated_at`

func (s *Storage) CreateTransaction(ctx context.Context, in models.TransactionCreateInput) (*models.Transaction, error) {
	now := time.Now().UTC()
	id := uuid.New()

	_, err := s.db.Exec(ctx, `
INSERT INTO transactions (
  id, buyer_id, seller_id, item_id, status, delivery_method, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
`, id, in.BuyerID, in.SellerID, in.ItemID, models.TransactionStatusPending, in.DeliveryMethod, now)
	if err != nil {
		return nil, errors.Wrap(err, "insert transaction")
	}

	return s.GetTransactionByID(ctx, id)
}

func (s *Storage) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE id = $1
`, id)

	tx, err := scanTransaction(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select transaction")
	}
	return tx, nil
}

// ConfirmTransaction moves pending -> confirmed. Returns false when the row
// was not in pending (already confirmed, cancelled, or missing).
func (s *Storage) ConfirmTransaction(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE transactions
SET status = $2, confirmed_at = $3, updated_at = $3
WHERE id = $1 AND status = $4
`, id, models.TransactionStatusConfirmed, now.UTC(), models.TransactionStatusPending)
	if err != nil {
		return false, errors.Wrap(err, "confirm transaction")
	}
	return tag.RowsAffected() == 1, nil
}

// CancelTransaction sidesteps any non-terminal row to cancelled.
func (s *Storage) CancelTransaction(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE transactions
SET status = $2, updated_at = $3
WHERE id = $1 AND status NOT IN ($4, $5)
`, id, models.TransactionStatusCancelled, now.UTC(),
		models.TransactionStatusDelivered, models.TransactionStatusCancelled)
	if err != nil {
		return false, errors.Wrap(err, "cancel transaction")
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimAdvanceableTransactions выбирает пачку сделок, готовых к проверке
// порогов, и "бронирует" их, чтобы параллельный воркер не взял те же строки.
// SELECT ... FOR UPDATE SKIP LOCKED, порядок — по времени создания.
func (s *Storage) ClaimAdvanceableTransactions(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE status IN ($1, $2)
  AND delivery_method IN ($3, $4)
  AND (lease_until IS NULL OR lease_until <= $5)
ORDER BY created_at ASC
LIMIT $6
FOR UPDATE SKIP LOCKED
`, models.TransactionStatusConfirmed, models.TransactionStatusInTransit,
		models.DeliveryMethodExpressDelivery, models.DeliveryMethodCarrierShipping,
		now.UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select advanceable")
	}

	picked, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}

	leaseUntil := now.UTC().Add(lease)
	for _, t := range picked {
		if _, err := tx.Exec(ctx, `UPDATE transactions SET lease_until = $2 WHERE id = $1`, t.ID, leaseUntil); err != nil {
			return nil, errors.Wrap(err, "lease transaction")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

// AdvanceTransactionStatus двигает строку только из ожидаемого статуса —
// защита от двойного продвижения при конкурентных прогонах.
func (s *Storage) AdvanceTransactionStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE transactions
SET status = $3,
    completed_at = CASE WHEN $3 = $5 THEN $4 ELSE completed_at END,
    lease_until = NULL,
    updated_at = $4
WHERE id = $1 AND status = $2
`, id, from, to, now.UTC(), models.TransactionStatusDelivered)
	if err != nil {
		return false, errors.Wrap(err, "advance transaction status")
	}
	return tag.RowsAffected() == 1, nil
}

func scanTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan transaction")
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	var confirmedAt *time.Time
	var completedAt *time.Time
	if err := row.Scan(
		&t.ID, &t.BuyerID, &t.SellerID, &t.ItemID,
		&t.Status, &t.DeliveryMethod,
		&t.CreatedAt, &confirmedAt, &completedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.ConfirmedAt = confirmedAt
	t.CompletedAt = completedAt
	return &t, nil
}
