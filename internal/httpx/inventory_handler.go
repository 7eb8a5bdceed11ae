package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shoefactory/backend/internal/inventory"
	"github.com/shoefactory/backend/internal/redisx"
)

type InventoryHandler struct {
	Ledger *inventory.Ledger
	Redis  *redis.Client
	Log    *zap.Logger
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type BulkSetRequest struct {
	Items []inventory.SetItem `json:"items"`
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/", h.listAll)
		r.Post("/bulk", h.bulkSet)
		r.Get("/{productID}", h.listByProduct)
		r.Put("/{productID}/{size}", h.setQuantity)
		r.Get("/{productID}/{size}/available", h.available)
	})
}

func (h *InventoryHandler) listAll(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Ledger.ListAll(r.Context())
	if err != nil {
		h.serverError(w, "list inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, paginated(recs, len(recs), 1, len(recs)))
}

func (h *InventoryHandler) listByProduct(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Ledger.ListByProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.serverError(w, "list product inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, paginated(recs, len(recs), 1, len(recs)))
}

func (h *InventoryHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	size, ok := parseSize(w, r)
	if !ok {
		return
	}
	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	rec, err := h.Ledger.SetQuantity(r.Context(), inventory.SetItem{
		ProductID: productID, Size: size, Quantity: req.Quantity,
	})
	if errors.Is(err, inventory.ErrConflict) {
		writeError(w, http.StatusConflict, "quantity below reserved stock")
		return
	}
	if err != nil {
		h.serverError(w, "set quantity", err)
		return
	}
	h.invalidate(r, productID, size)
	writeJSON(w, http.StatusOK, rec)
}

func (h *InventoryHandler) bulkSet(w http.ResponseWriter, r *http.Request) {
	var req BulkSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items must not be empty")
		return
	}
	for i, it := range req.Items {
		if it.ProductID == "" || it.Size <= 0 || it.Quantity < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid items[%d]", i))
			return
		}
	}

	recs, err := h.Ledger.BulkSetQuantity(r.Context(), req.Items)
	if errors.Is(err, inventory.ErrConflict) {
		writeError(w, http.StatusConflict, "quantity below reserved stock")
		return
	}
	if err != nil {
		h.serverError(w, "bulk set quantity", err)
		return
	}
	for _, it := range req.Items {
		h.invalidate(r, it.ProductID, it.Size)
	}
	writeJSON(w, http.StatusOK, paginated(recs, len(recs), 1, len(recs)))
}

func (h *InventoryHandler) available(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	size, ok := parseSize(w, r)
	if !ok {
		return
	}

	key := fmt.Sprintf(redisx.KeyAvailability, productID, inventory.FormatSize(size))
	if h.Redis != nil {
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	avail, err := h.Ledger.GetAvailability(r.Context(), productID, size)
	if errors.Is(err, inventory.ErrNotFound) {
		// no record means zero stock, not an error for shoppers
		avail = inventory.Availability{}
	} else if err != nil {
		h.serverError(w, "get availability", err)
		return
	}

	if h.Redis != nil {
		if b, err := json.Marshal(avail); err == nil {
			_ = h.Redis.Set(r.Context(), key, b, redisx.TTLAvailability).Err()
		}
	}
	writeJSON(w, http.StatusOK, avail)
}

func (h *InventoryHandler) invalidate(r *http.Request, productID string, size float64) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyAvailability, productID, inventory.FormatSize(size))
	_ = h.Redis.Del(r.Context(), key).Err()
}

func (h *InventoryHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.Log.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func parseSize(w http.ResponseWriter, r *http.Request) (float64, bool) {
	size, err := strconv.ParseFloat(chi.URLParam(r, "size"), 64)
	if err != nil || size <= 0 {
		writeError(w, http.StatusBadRequest, "invalid size")
		return 0, false
	}
	return size, true
}
