package deliveries_api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"

	"github.com/EcoChain/delivery-core/internal/integrations/routing"
	"github.com/EcoChain/delivery-core/internal/models"
	"github.com/EcoChain/delivery-core/internal/services/distance"
	"github.com/EcoChain/delivery-core/internal/services/planner"
	"github.com/EcoChain/delivery-core/internal/services/transactions"
	"github.com/EcoChain/delivery-core/internal/storage/pgdelivery"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type DeliveriesAPI struct {
	txSvc     *transactions.Service
	planSvc   *planner.Service
	estimator *distance.Estimator
	geocoder  routing.Geocoder
}

func New(txSvc *transactions.Service, planSvc *planner.Service, estimator *distance.Estimator, geocoder routing.Geocoder) *DeliveriesAPI {
	return &DeliveriesAPI{txSvc: txSvc, planSvc: planSvc, estimator: estimator, geocoder: geocoder}
}

func (a *DeliveriesAPI) Routes(r chi.Router) {
	r.Post("/v1/delivery/estimate", a.estimate)
	r.Post("/v1/delivery/plan", a.plan)

	r.Post("/v1/transactions", a.createTransaction)
	r.Get("/v1/transactions/{id}", a.getTransaction)
	r.Post("/v1/transactions/{id}/confirm", a.confirmTransaction)
	r.Post("/v1/transactions/{id}/cancel", a.cancelTransaction)
	r.Get("/v1/transactions/{id}/tracking", a.tracking)

	r.Get("/v1/notifications", a.listNotifications)
}

// pointPayload is either explicit coordinates or a free-text address that we
// resolve through the geocoder.
type pointPayload struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

func (a *DeliveriesAPI) resolvePoint(ctx context.Context, p pointPayload) (models.Coordinate, error) {
	if p.Address == "" {
		return models.Coordinate{Lat: p.Lat, Lng: p.Lng}, nil
	}
	if a.geocoder == nil {
		return models.Coordinate{}, errors.New("geocoding is not configured")
	}
	c, ok, err := a.geocoder.Geocode(ctx, p.Address)
	if err != nil {
		return models.Coordinate{}, errors.Wrap(err, "geocode")
	}
	if !ok {
		return models.Coordinate{}, errors.Errorf("address not found: %q", p.Address)
	}
	return c, nil
}

type estimateRequest struct {
	Origin      pointPayload `json:"origin"`
	Destination pointPayload `json:"destination"`
}

type estimateResponse struct {
	DistanceKm      float64             `json:"distanceKm"`
	DurationMinutes int                 `json:"durationMinutes"`
	Path            []models.Coordinate `json:"path"`
	Source          string              `json:"source"`
}

func (a *DeliveriesAPI) estimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	origin, err := a.resolvePoint(r.Context(), req.Origin)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	destination, err := a.resolvePoint(r.Context(), req.Destination)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	est := a.estimator.Estimate(r.Context(), origin, destination)
	writeJSON(w, http.StatusOK, estimateResponse{
		DistanceKm:      math.Round(est.DistanceKm*100) / 100,
		DurationMinutes: int(est.Duration.Minutes()),
		Path:            est.Path,
		Source:          est.Source,
	})
}

type planRequest struct {
	Origin      pointPayload          `json:"origin"`
	Destination pointPayload          `json:"destination"`
	Method      models.DeliveryMethod `json:"method"`
}

func (a *DeliveriesAPI) plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	origin, err := a.resolvePoint(r.Context(), req.Origin)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	destination, err := a.resolvePoint(r.Context(), req.Destination)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := a.planSvc.Plan(r.Context(), origin, destination, req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type createTransactionRequest struct {
	BuyerID        uuid.UUID             `json:"buyerId"`
	SellerID       uuid.UUID             `json:"sellerId"`
	ItemID         uuid.UUID             `json:"itemId"`
	DeliveryMethod models.DeliveryMethod `json:"deliveryMethod"`
}

func (a *DeliveriesAPI) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	t, err := a.txSvc.CreateTransaction(r.Context(), models.TransactionCreateInput{
		BuyerID:        req.BuyerID,
		SellerID:       req.SellerID,
		ItemID:         req.ItemID,
		DeliveryMethod: req.DeliveryMethod,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *DeliveriesAPI) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	t, err := a.txSvc.GetTransaction(r.Context(), id)
	if err != nil {
		writeTransactionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *DeliveriesAPI) confirmTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	t, err := a.txSvc.ConfirmTransaction(r.Context(), id)
	if err != nil {
		writeTransactionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *DeliveriesAPI) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	t, err := a.txSvc.CancelTransaction(r.Context(), id)
	if err != nil {
		writeTransactionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type trackingResponse struct {
	TransactionID  uuid.UUID                `json:"transactionId"`
	Status         models.TransactionStatus `json:"status"`
	DeliveryMethod models.DeliveryMethod    `json:"deliveryMethod"`
	Steps          []models.DeliveryStep    `json:"steps"`
}

func (a *DeliveriesAPI) tracking(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	t, err := a.txSvc.GetTransaction(r.Context(), id)
	if err != nil {
		writeTransactionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trackingResponse{
		TransactionID:  t.ID,
		Status:         t.Status,
		DeliveryMethod: t.DeliveryMethod,
		Steps:          planner.StepsForStatus(t.DeliveryMethod, t.Status),
	})
}

func (a *DeliveriesAPI) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "userId query param is required")
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	list, err := a.txSvc.ListNotifications(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func writeTransactionError(w http.ResponseWriter, err error) {
	if errors.Is(err, pgdelivery.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	writeError(w, http.StatusConflict, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
