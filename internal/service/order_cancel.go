package service

import (
	"context"

	"github.com/calMall/calMarket-sub000/internal/domain"
)

// CancelOrder moves a PENDING order to CANCELLED and credits every line's
// quantity back to its product. The status check runs as a conditional
// update inside the transaction, so a sweep shipping the order at the same
// moment cannot race the cancellation into a double inventory credit.
func (s *OrderServiceImpl) CancelOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error) {
	if orderID <= 0 || userID == "" {
		return nil, ErrInvalidInput
	}

	var cancelled *domain.Order
	err := s.repo.Transact(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUser(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if !domain.CanTransitionTo(order.Status, domain.OrderStatusCancelled) {
			return &InvalidTransitionError{From: order.Status, To: domain.OrderStatusCancelled}
		}

		ok, err := s.repo.UpdateOrderStatus(ctx, order.ID, order.Status, domain.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			// status moved between the read and the update; report what it is now
			current, err := s.repo.GetOrderForUser(ctx, orderID, userID)
			if err != nil {
				return err
			}
			return &InvalidTransitionError{From: current.Status, To: domain.OrderStatusCancelled}
		}

		for _, item := range order.Items {
			if err := s.repo.AdjustInventory(ctx, item.ItemCode, item.Quantity); err != nil {
				return err
			}
		}

		if err := s.writeStatusEvent(ctx, order.ID, userID, domain.OrderStatusCancelled); err != nil {
			return err
		}

		order.Status = domain.OrderStatusCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(cancelled.Items))
	for _, item := range cancelled.Items {
		codes = append(codes, item.ItemCode)
	}
	s.invalidateProducts(codes)

	return cancelled, nil
}
