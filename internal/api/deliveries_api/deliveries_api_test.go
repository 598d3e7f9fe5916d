package deliveries_api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/EcoChain/delivery-core/internal/integrations/routing/fake"
	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/EcoChain/delivery-core/internal/services/distance"
	"github.com/EcoChain/delivery-core/internal/services/planner"
	"github.com/EcoChain/delivery-core/internal/services/transactions"
	"github.com/EcoChain/delivery-core/internal/storage/pgdelivery"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu            sync.Mutex
	transactions  map[uuid.UUID]*models.Transaction
	notifications []*models.Notification
}

func newMemRepo() *memRepo {
	return &memRepo{transactions: make(map[uuid.UUID]*models.Transaction)}
}

func (r *memRepo) CreateTransaction(_ context.Context, in models.TransactionCreateInput) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	t := &models.Transaction{
		ID:             uuid.New(),
		BuyerID:        in.BuyerID,
		SellerID:       in.SellerID,
		ItemID:         in.ItemID,
		Status:         models.TransactionStatusPending,
		DeliveryMethod: in.DeliveryMethod,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.transactions[t.ID] = t
	return t, nil
}

func (r *memRepo) GetTransactionByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[id]
	if !ok {
		return nil, pgdelivery.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memRepo) ConfirmTransaction(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[id]
	if !ok || t.Status != models.TransactionStatusPending {
		return false, nil
	}
	t.Status = models.TransactionStatusConfirmed
	t.ConfirmedAt = &now
	return true, nil
}

func (r *memRepo) CancelTransaction(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[id]
	if !ok || t.Status.Terminal() {
		return false, nil
	}
	t.Status = models.TransactionStatusCancelled
	return true, nil
}

func (r *memRepo) InsertNotifications(_ context.Context, items []*models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, items...)
	return nil
}

func (r *memRepo) ListNotificationsByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type stubGeocoder struct {
	known map[string]models.Coordinate
}

func (g stubGeocoder) Geocode(_ context.Context, address string) (models.Coordinate, bool, error) {
	c, ok := g.known[address]
	return c, ok, nil
}

func newTestRouter(t *testing.T) (*chi.Mux, *memRepo) {
	t.Helper()

	repo := newMemRepo()
	est := distance.New(fake.New())
	txSvc := transactions.New(repo, nil, 0)
	planSvc := planner.New(est, nil, 0)
	geo := stubGeocoder{known: map[string]models.Coordinate{
		"São Paulo, SP": {Lat: -23.5505, Lng: -46.6333},
	}}

	r := chi.NewRouter()
	New(txSvc, planSvc, est, geo).Routes(r)
	return r, repo
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestEstimate(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/delivery/estimate", estimateRequest{
		Origin:      pointPayload{Lat: -23.5505, Lng: -46.6333},
		Destination: pointPayload{Lat: -22.9068, Lng: -43.1729},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp estimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Greater(t, resp.DistanceKm, 300.0)
	require.GreaterOrEqual(t, len(resp.Path), 2)
	require.Equal(t, distance.SourceRoute, resp.Source)
}

func TestEstimate_GeocodedAddress(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/delivery/estimate", estimateRequest{
		Origin:      pointPayload{Address: "São Paulo, SP"},
		Destination: pointPayload{Lat: -22.9068, Lng: -43.1729},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/delivery/estimate", estimateRequest{
		Origin:      pointPayload{Address: "nowhere at all"},
		Destination: pointPayload{Lat: -22.9068, Lng: -43.1729},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlan(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/delivery/plan", planRequest{
		Origin:      pointPayload{Lat: -23.5505, Lng: -46.6333},
		Destination: pointPayload{Lat: -22.9068, Lng: -43.1729},
		Method:      models.DeliveryMethodExpressDelivery,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var plan models.DeliveryPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.Greater(t, plan.Cost, 15.0)
	require.Len(t, plan.Steps, 4)

	rec = doJSON(t, r, http.MethodPost, "/v1/delivery/plan", planRequest{
		Origin:      pointPayload{Lat: 0, Lng: 0},
		Destination: pointPayload{Lat: 0, Lng: 0},
		Method:      "drone",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/transactions", createTransactionRequest{
		BuyerID:        uuid.New(),
		SellerID:       uuid.New(),
		ItemID:         uuid.New(),
		DeliveryMethod: models.DeliveryMethodCarrierShipping,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, models.TransactionStatusPending, created.Status)

	rec = doJSON(t, r, http.MethodGet, "/v1/transactions/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/transactions/"+created.ID.String()+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var confirmed models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirmed))
	require.Equal(t, models.TransactionStatusConfirmed, confirmed.Status)

	// повторный confirm — конфликт
	rec = doJSON(t, r, http.MethodPost, "/v1/transactions/"+created.ID.String()+"/confirm", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/transactions/"+created.ID.String()+"/tracking", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tr trackingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	require.Len(t, tr.Steps, 6)
	require.Equal(t, models.StepStatusActive, tr.Steps[0].Status)

	rec = doJSON(t, r, http.MethodPost, "/v1/transactions/"+created.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/transactions/"+uuid.New().String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/transactions/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListNotifications(t *testing.T) {
	r, repo := newTestRouter(t)

	userID := uuid.New()
	require.NoError(t, repo.InsertNotifications(context.Background(), []*models.Notification{
		{ID: uuid.New(), UserID: userID, Type: models.NotificationTypeDelivery, Title: "Produto coletado", Message: "m", TransactionID: uuid.New()},
	}))

	rec := doJSON(t, r, http.MethodGet, "/v1/notifications?userId="+userID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Notifications []*models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)

	// пустой список — всё равно массив, не null
	rec = doJSON(t, r, http.MethodGet, "/v1/notifications?userId="+uuid.New().String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"notifications":[]`)

	rec = doJSON(t, r, http.MethodGet, "/v1/notifications", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
