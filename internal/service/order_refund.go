package service

import (
	"context"

	"github.com/calMall/calMarket-sub000/internal/domain"
)

// RefundOrder moves a DELIVERED order to REFUNDED and credits the order's
// total to the user's point balance. The conditional status update makes the
// point credit exactly-once even under repeated refund requests.
func (s *OrderServiceImpl) RefundOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error) {
	if orderID <= 0 || userID == "" {
		return nil, ErrInvalidInput
	}

	var refunded *domain.Order
	err := s.repo.Transact(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUser(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if !domain.CanTransitionTo(order.Status, domain.OrderStatusRefunded) {
			return &InvalidTransitionError{From: order.Status, To: domain.OrderStatusRefunded}
		}

		ok, err := s.repo.UpdateOrderStatus(ctx, order.ID, order.Status, domain.OrderStatusRefunded)
		if err != nil {
			return err
		}
		if !ok {
			// status moved between the read and the update; report what it is now
			current, err := s.repo.GetOrderForUser(ctx, orderID, userID)
			if err != nil {
				return err
			}
			return &InvalidTransitionError{From: current.Status, To: domain.OrderStatusRefunded}
		}

		if err := s.repo.AddPoints(ctx, userID, order.Total()); err != nil {
			return err
		}

		if err := s.writeStatusEvent(ctx, order.ID, userID, domain.OrderStatusRefunded); err != nil {
			return err
		}

		order.Status = domain.OrderStatusRefunded
		refunded = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}
