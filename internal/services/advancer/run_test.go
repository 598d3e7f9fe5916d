package advancer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	calls atomic.Int64
}

func (r *countingRepo) ClaimAdvanceableTransactions(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Transaction, error) {
	r.calls.Add(1)
	return nil, nil
}

func (r *countingRepo) AdvanceTransactionStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, now time.Time) (bool, error) {
	return false, nil
}

func TestAdvancer_Run_StopsOnContextCancel(t *testing.T) {
	repo := &countingRepo{}
	a := New(repo, &capturingProducer{}, "t").WithSettings(5*time.Millisecond, 1, 1, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()

	err := a.Run(ctx)
	require.Error(t, err)
	require.GreaterOrEqual(t, repo.calls.Load(), int64(1))
}

func TestAdvancer_Trigger_ForcesCycle(t *testing.T) {
	repo := &countingRepo{}
	a := New(repo, &capturingProducer{}, "t").WithSettings(time.Hour, 1, 1, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()

	a.Trigger()
	require.Eventually(t, func() bool {
		return repo.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	st := a.Stats()
	require.NotNil(t, st.LastTriggerAt)
	require.NotNil(t, st.LastCycleAt)
}
