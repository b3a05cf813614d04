package service

import (
	"context"

	"github.com/calMall/calMarket-sub000/internal/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListOrders returns one page of the user's orders, newest first.
func (s *OrderServiceImpl) ListOrders(ctx context.Context, userID string, page, pageSize int) ([]*domain.Order, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return s.repo.ListOrdersByUser(ctx, userID, pageSize, (page-1)*pageSize)
}

// GetOrder returns the order only when it belongs to the requesting user;
// a foreign order id behaves exactly like a missing one.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error) {
	if orderID <= 0 || userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetOrderForUser(ctx, orderID, userID)
}
