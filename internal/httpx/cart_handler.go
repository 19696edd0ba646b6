package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	Service *cart.Service
	Log     *logger.Logger
}

// addItemReq accepts catalogId as an alias of productId for older clients.
type addItemReq struct {
	ProductID string `json:"productId"`
	CatalogID string `json:"catalogId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type updateItemReq struct {
	Quantity *int    `json:"quantity"`
	Size     *string `json:"size"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.getCart)
	r.Post("/cart", h.addItem)
	r.Put("/cart/{lineId}", h.updateItem)
	r.Delete("/cart/{lineId}", h.removeItem)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	sum, err := h.Service.Get(ctx, mustSession(r).AccountID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.ProductID == "" {
		req.ProductID = req.CatalogID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Service.Add(ctx, mustSession(r).AccountID, cart.AddInput{
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Service.Update(ctx, mustSession(r).AccountID, chi.URLParam(r, "lineId"), cart.UpdateInput{
		Quantity: req.Quantity,
		Size:     req.Size,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Service.Remove(ctx, mustSession(r).AccountID, chi.URLParam(r, "lineId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
