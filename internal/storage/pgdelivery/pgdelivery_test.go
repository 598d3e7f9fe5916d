package pgdelivery

import (
	"context"
	"testing"
	"time"

	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "ecochain_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/ecochain_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGDelivery_TransactionFlow(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	created, err := st.CreateTransaction(ctx, models.TransactionCreateInput{
		BuyerID:        uuid.New(),
		SellerID:       uuid.New(),
		ItemID:         uuid.New(),
		DeliveryMethod: models.DeliveryMethodExpressDelivery,
	})
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusPending, created.Status)
	require.Nil(t, created.ConfirmedAt)

	// pending не попадает в выборку адвансера
	due, err := st.ClaimAdvanceableTransactions(ctx, time.Now().UTC(), 10, 10*time.Second)
	require.NoError(t, err)
	require.Empty(t, due)

	now := time.Now().UTC()
	ok, err := st.ConfirmTransaction(ctx, created.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	// повторный confirm — no-op
	ok, err = st.ConfirmTransaction(ctx, created.ID, now)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := st.GetTransactionByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedAt)

	// claim + lease: вторая выборка в окне lease пуста
	due, err = st.ClaimAdvanceableTransactions(ctx, time.Now().UTC(), 10, 10*time.Second)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, created.ID, due[0].ID)

	due2, err := st.ClaimAdvanceableTransactions(ctx, time.Now().UTC(), 10, 10*time.Second)
	require.NoError(t, err)
	require.Empty(t, due2)

	// advance с неверным from не срабатывает
	moved, err := st.AdvanceTransactionStatus(ctx, created.ID, models.TransactionStatusInTransit, models.TransactionStatusDelivered, now)
	require.NoError(t, err)
	require.False(t, moved)

	moved, err = st.AdvanceTransactionStatus(ctx, created.ID, models.TransactionStatusConfirmed, models.TransactionStatusInTransit, now)
	require.NoError(t, err)
	require.True(t, moved)

	moved, err = st.AdvanceTransactionStatus(ctx, created.ID, models.TransactionStatusInTransit, models.TransactionStatusDelivered, now)
	require.NoError(t, err)
	require.True(t, moved)

	got, err = st.GetTransactionByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusDelivered, got.Status)
	require.NotNil(t, got.CompletedAt)

	// terminal больше не выбирается
	due, err = st.ClaimAdvanceableTransactions(ctx, time.Now().UTC().Add(time.Minute), 10, 10*time.Second)
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestPGDelivery_CancelAndNotFound(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	created, err := st.CreateTransaction(ctx, models.TransactionCreateInput{
		BuyerID:        uuid.New(),
		SellerID:       uuid.New(),
		ItemID:         uuid.New(),
		DeliveryMethod: models.DeliveryMethodLocalPickup,
	})
	require.NoError(t, err)

	ok, err := st.CancelTransaction(ctx, created.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	// отмена терминальной сделки — no-op
	ok, err = st.CancelTransaction(ctx, created.ID, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, ok)

	_, err = st.GetTransactionByID(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPGDelivery_Notifications(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	created, err := st.CreateTransaction(ctx, models.TransactionCreateInput{
		BuyerID:        uuid.New(),
		SellerID:       uuid.New(),
		ItemID:         uuid.New(),
		DeliveryMethod: models.DeliveryMethodCarrierShipping,
	})
	require.NoError(t, err)

	userID := uuid.New()
	require.NoError(t, st.InsertNotifications(ctx, []*models.Notification{
		{UserID: userID, Type: models.NotificationTypeDelivery, Title: "Produto coletado", Message: "m1", TransactionID: created.ID},
		{UserID: userID, Type: models.NotificationTypeDelivery, Title: "Produto entregue", Message: "m2", TransactionID: created.ID, CreatedAt: time.Now().UTC().Add(time.Second)},
	}))

	got, err := st.ListNotificationsByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// newest first
	require.Equal(t, "Produto entregue", got[0].Title)
	require.False(t, got[0].Read)

	require.NoError(t, st.MarkNotificationRead(ctx, got[0].ID))
	got, err = st.ListNotificationsByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.True(t, got[0].Read)

	// чужой пользователь ничего не видит
	other, err := st.ListNotificationsByUser(ctx, uuid.New(), 10, 0)
	require.NoError(t, err)
	require.Empty(t, other)
}
