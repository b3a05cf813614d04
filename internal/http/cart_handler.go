package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/calMall/calMarket-sub000/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartAccessor is the cart side of the service layer.
type CartAccessor interface {
	GetCart(ctx context.Context, userID string) ([]domain.CartItem, error)
	AddItem(ctx context.Context, userID, itemCode string, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemCode string) error
}

type CartHandler struct {
	cart    CartAccessor
	timeout time.Duration
}

func NewCartHandler(cart CartAccessor, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ItemCode string `json:"item_code"`
	Quantity int    `json:"quantity"`
}

type CartItemDTO struct {
	ItemCode string `json:"item_code"`
	Quantity int    `json:"quantity"`
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	items, err := h.cart.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]CartItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, CartItemDTO{ItemCode: item.ItemCode, Quantity: item.Quantity})
	}

	respondJSON(w, http.StatusOK, dtos)
}

// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ItemCode == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_code", "item_code is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	item, err := h.cart.AddItem(ctx, userID, req.ItemCode, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CartItemDTO{ItemCode: item.ItemCode, Quantity: item.Quantity})
}

// DELETE /api/cart/items/{item_code}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	itemCode := chi.URLParam(r, "item_code")
	if itemCode == "" {
		respondError(w, http.StatusBadRequest, "missing_item_code", "item_code is required")
		return
	}

	if err := h.cart.RemoveItem(ctx, userID, itemCode); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
