package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/calMall/calMarket-sub000/internal/domain"
	"github.com/calMall/calMarket-sub000/internal/service"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	orders  service.OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders service.OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrderLineDTO struct {
	ItemCode string `json:"item_code"`
	Quantity int    `json:"quantity"`
}

type CreateOrderRequestDTO struct {
	Items           []OrderLineDTO `json:"items"`
	DeliveryAddress string         `json:"delivery_address"`
}

type OrderItemDTO struct {
	ItemCode string `json:"item_code"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
}

type OrderResponseDTO struct {
	ID              int64          `json:"id"`
	Status          string         `json:"status"`
	DeliveryAddress string         `json:"delivery_address"`
	TotalAmount     int64          `json:"total_amount"`
	Items           []OrderItemDTO `json:"items"`
	CreatedAt       string         `json:"created_at"`
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ItemCode: item.ItemCode,
			ItemName: item.ItemName,
			Quantity: item.Quantity,
			Price:    item.PriceAtOrder,
			ImageURL: item.ImageURL,
		})
	}

	return OrderResponseDTO{
		ID:              o.ID,
		Status:          o.Status.String(),
		DeliveryAddress: o.DeliveryAddress,
		TotalAmount:     o.Total(),
		Items:           items,
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	lines := make([]service.LineRequest, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, service.LineRequest{
			ItemCode: item.ItemCode,
			Quantity: item.Quantity,
		})
	}

	order, err := h.orders.CreateOrder(ctx, userID, lines, req.DeliveryAddress)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertOrder(order))
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	orders, err := h.orders.ListOrders(ctx, userID, page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}

	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

// POST /api/orders/{order_id}/cancel
func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.CancelOrder(ctx, orderID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

// POST /api/orders/{order_id}/refund
func (h *OrdersHandler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.RefundOrder(ctx, orderID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	orderIDStr := chi.URLParam(r, "order_id")
	orderID, err := strconv.ParseInt(orderIDStr, 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return 0, false
	}
	return orderID, true
}
