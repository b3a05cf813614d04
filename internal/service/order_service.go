package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/calMall/calMarket-sub000/internal/cache"
	"github.com/calMall/calMarket-sub000/internal/domain"
	r "github.com/calMall/calMarket-sub000/internal/repository"
)

// LineRequest is one requested (itemCode, quantity) pair of a new order.
type LineRequest struct {
	ItemCode string
	Quantity int
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID string, lines []LineRequest, deliveryAddress string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error)
	RefundOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string, page, pageSize int) ([]*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error)
	AdvanceOrders(ctx context.Context) error
}

type OrderServiceImpl struct {
	repo         r.Store
	cache        cache.ProductCache
	shipAfter    time.Duration
	deliverAfter time.Duration
	now          func() time.Time
}

// NewOrderService wires the order façade. shipAfter and deliverAfter are the
// dwell times measured from order creation after which the sweep moves an
// order to SHIPPED and DELIVERED respectively.
func NewOrderService(repo r.Store, productCache cache.ProductCache, shipAfter, deliverAfter time.Duration) *OrderServiceImpl {
	return &OrderServiceImpl{
		repo:         repo,
		cache:        productCache,
		shipAfter:    shipAfter,
		deliverAfter: deliverAfter,
		now:          time.Now,
	}
}

// eventType names the outbox event for a status the order just entered.
func eventType(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusPending:
		return "OrderCreated"
	case domain.OrderStatusShipped:
		return "OrderShipped"
	case domain.OrderStatusDelivered:
		return "OrderDelivered"
	case domain.OrderStatusCancelled:
		return "OrderCancelled"
	case domain.OrderStatusRefunded:
		return "OrderRefunded"
	}
	return "OrderStatusChanged"
}

// writeStatusEvent records the status change in the outbox, inside the same
// transaction as the change itself.
func (s *OrderServiceImpl) writeStatusEvent(ctx context.Context, orderID int64, userID string, status domain.OrderStatus) error {
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":    orderID,
		"user_id":     userID,
		"status":      status,
		"occurred_at": s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event payload: %w", err)
	}

	return s.repo.CreateOutboxEvent(ctx, &r.OutboxEvent{
		OrderID:   orderID,
		EventType: eventType(status),
		Payload:   payload,
	})
}

// invalidateProducts drops cached product entries whose inventory changed.
// Best effort: the database already holds the truth.
func (s *OrderServiceImpl) invalidateProducts(itemCodes []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, code := range itemCodes {
		if err := s.cache.Delete(ctx, code); err != nil {
			log.Printf("cache invalidate error for %s: %v", code, err)
		}
	}
}
