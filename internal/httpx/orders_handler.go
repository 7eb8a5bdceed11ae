package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shoefactory/backend/internal/inventory"
	"github.com/shoefactory/backend/internal/orders"
	"github.com/shoefactory/backend/internal/redisx"
)

type OrdersHandler struct {
	Service *orders.Service
	Redis   *redis.Client
	Log     *zap.Logger
}

type UpdateStatusRequest struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Patch("/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	o, err := h.Service.CreateOrder(r.Context(), req)
	switch {
	case errors.Is(err, orders.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, orders.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, inventory.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.serverError(w, "create order", err)
		return
	}

	h.cache(r, o)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePage(r, 20)
	status := orders.Status(r.URL.Query().Get("status"))

	list, total, err := h.Service.ListOrders(r.Context(), status, page, limit)
	if errors.Is(err, orders.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.serverError(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, paginated(list, total, page, limit))
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrder, id)
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Service.GetOrder(r.Context(), id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		h.serverError(w, "get order", err)
		return
	}
	h.cache(r, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	o, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	switch {
	case errors.Is(err, orders.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, orders.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, orders.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.serverError(w, "update order status", err)
		return
	}

	h.cache(r, o)
	writeJSON(w, http.StatusOK, o)
}

// cache stores the full order payload; every mutation overwrites it so reads
// never serve a stale status for longer than the TTL.
func (h *OrdersHandler) cache(r *http.Request, o orders.Order) {
	if h.Redis == nil {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrder, o.ID)
	_ = h.Redis.Set(r.Context(), key, b, redisx.TTLOrderCache).Err()
}

func (h *OrdersHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.Log.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
