package advancer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EcoChain/delivery-core/internal/broker/messages"
	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Repository interface {
	// ClaimAdvanceableTransactions picks confirmed/in_transit rows of the
	// auto-advancing methods, oldest first, and leases them so a parallel
	// worker won't pick them up again.
	ClaimAdvanceableTransactions(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Transaction, error)

	// AdvanceTransactionStatus moves id from->to and reports whether a row
	// actually changed. from guards against double-advancement.
	AdvanceTransactionStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, now time.Time) (bool, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Advancer периодически продвигает статусы сделок по порогам прошедшего
// времени, имитируя реальный ход доставки.
type Advancer struct {
	repo     Repository
	producer Producer
	topic    string

	thresholds Thresholds

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	lease        time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalAdvanced       atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, producer Producer, topic string) *Advancer {
	return &Advancer{
		repo: repo, producer: producer, topic: topic,
		thresholds:   DefaultThresholds(),
		pollInterval: 2 * time.Minute,
		batchSize:    100,
		concurrency:  10,
		lease:        120 * time.Second,
		triggerCh:    make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (a *Advancer) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration) *Advancer {
	if pollInterval > 0 {
		a.pollInterval = pollInterval
	}
	if batchSize > 0 {
		a.batchSize = batchSize
	}
	if concurrency > 0 {
		a.concurrency = concurrency
	}
	if lease > 0 {
		a.lease = lease
	}
	return a
}

func (a *Advancer) WithThresholds(t Thresholds) *Advancer {
	a.thresholds = t.normalized()
	return a
}

// Trigger forces an immediate advancement cycle (best-effort, non-blocking).
func (a *Advancer) Trigger() {
	a.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case a.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed  int64      `json:"totalClaimed"`
	TotalAdvanced int64      `json:"totalAdvanced"`
	TotalErrors   int64      `json:"totalErrors"`
	InFlight      int64      `json:"inFlight"`
	LastError     string     `json:"lastError,omitempty"`
}

func (a *Advancer) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, a.startedAtUnixNano).UTC(),
		TotalClaimed:  a.totalClaimed.Load(),
		TotalAdvanced: a.totalAdvanced.Load(),
		TotalErrors:   a.totalErrors.Load(),
		InFlight:      a.inFlight.Load(),
	}
	if n := a.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := a.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	a.lastErrorMu.Lock()
	st.LastError = a.lastError
	a.lastErrorMu.Unlock()
	return st
}

func (a *Advancer) Run(ctx context.Context) error {
	t := time.NewTicker(a.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			a.RunOnce(ctx)
		case <-a.triggerCh:
			a.RunOnce(ctx)
		}
	}
}

// RunOnce scans one batch and returns the ids whose status was persisted.
// Сбой на одной сделке не прерывает обработку остальных.
func (a *Advancer) RunOnce(ctx context.Context) []uuid.UUID {
	now := time.Now().UTC()
	a.lastCycleUnixNano.Store(now.UnixNano())

	items, err := a.repo.ClaimAdvanceableTransactions(ctx, now, a.batchSize, a.lease)
	if err != nil {
		slog.Error("claim advanceable transactions", "error", err.Error())
		a.setLastError(err)
		return nil
	}
	a.totalClaimed.Add(int64(len(items)))

	var mu sync.Mutex
	var advanced []uuid.UUID

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	for _, tx := range items {
		sem <- struct{}{}
		wg.Add(1)
		txCopy := tx
		a.inFlight.Add(1)
		go func() {
			defer func() {
				a.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			moved, err := a.processOne(ctx, txCopy, now)
			if err != nil {
				a.totalErrors.Add(1)
				a.setLastError(err)
				slog.Error("advance transaction", "transaction_id", txCopy.ID, "error", err.Error())
				return
			}
			if moved {
				a.totalAdvanced.Add(1)
				mu.Lock()
				advanced = append(advanced, txCopy.ID)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return advanced
}

// processOne evaluates thresholds against the status read at claim time, so
// a transaction moves at most one step per run.
func (a *Advancer) processOne(ctx context.Context, tx *models.Transaction, now time.Time) (bool, error) {
	if tx.Status.Terminal() {
		return false, nil
	}

	elapsed := now.Sub(tx.CreatedAt)
	next, ok := a.thresholds.Next(tx.DeliveryMethod, tx.Status, elapsed)
	if !ok {
		// Порог не достигнут — вернёмся к сделке в следующем цикле.
		return false, nil
	}
	if !models.CanTransition(tx.Status, next) {
		return false, errors.Errorf("illegal transition %s -> %s", tx.Status, next)
	}

	moved, err := a.repo.AdvanceTransactionStatus(ctx, tx.ID, tx.Status, next, now)
	if err != nil {
		return false, errors.Wrap(err, "persist status")
	}
	if !moved {
		// Кто-то успел раньше (другой воркер или отмена) — не наша сделка.
		return false, nil
	}

	msg := messages.StatusUpdated{
		TransactionID: tx.ID,
		Method:        tx.DeliveryMethod,
		FromStatus:    tx.Status,
		NewStatus:     next,
		AdvancedAt:    now,
		Notifications: notificationsFor(tx, next),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return true, errors.Wrap(err, "marshal kafka msg")
	}

	// Статус уже в базе; публикация best-effort с коротким retry.
	var pubErr error
	for i := 0; i < 5; i++ {
		if pubErr = a.producer.Publish(ctx, a.topic, []byte(tx.ID.String()), b); pubErr == nil {
			break
		}
		time.Sleep(time.Duration(150*(i+1)) * time.Millisecond)
	}
	if pubErr != nil {
		slog.Error("publish status update", "transaction_id", tx.ID, "error", pubErr.Error())
	}
	return true, nil
}

func (a *Advancer) setLastError(err error) {
	a.lastErrorMu.Lock()
	a.lastError = err.Error()
	a.lastErrorMu.Unlock()
}
