package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/calMall/calMarket-sub000/internal/domain"
)

// AdvanceOrders is one scheduler sweep: it loads all non-terminal orders and
// applies the dwell-time transitions each is due for. A failure on one order
// is logged and does not block the rest of the batch.
func (s *OrderServiceImpl) AdvanceOrders(ctx context.Context) error {
	orders, err := s.repo.ListActiveOrders(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	for _, order := range orders {
		if err := s.advanceOrder(ctx, order, now); err != nil {
			log.Printf("failed to advance order %d: %v", order.ID, err)
		}
	}
	return nil
}

// advanceOrder applies every transition the order is due for, one step at a
// time, so an old PENDING order still passes through SHIPPED on its way to
// DELIVERED. Each step re-checks the stored status inside its transaction;
// losing that check to a concurrent cancel ends the walk quietly.
func (s *OrderServiceImpl) advanceOrder(ctx context.Context, order *domain.Order, now time.Time) error {
	status := order.Status
	for !status.IsTerminal() {
		next, due := s.dueTransition(status, order.CreatedAt, now)
		if !due {
			return nil
		}

		err := s.repo.Transact(ctx, func(ctx context.Context) error {
			ok, err := s.repo.UpdateOrderStatus(ctx, order.ID, status, next)
			if err != nil {
				return err
			}
			if !ok {
				return errTransitionLost
			}
			return s.writeStatusEvent(ctx, order.ID, order.UserID, next)
		})
		if errors.Is(err, errTransitionLost) {
			return nil
		}
		if err != nil {
			return err
		}
		status = next
	}
	return nil
}

func (s *OrderServiceImpl) dueTransition(status domain.OrderStatus, createdAt, now time.Time) (domain.OrderStatus, bool) {
	elapsed := now.Sub(createdAt)
	switch status {
	case domain.OrderStatusPending:
		if elapsed >= s.shipAfter {
			return domain.OrderStatusShipped, true
		}
	case domain.OrderStatusShipped:
		if elapsed >= s.deliverAfter {
			return domain.OrderStatusDelivered, true
		}
	}
	return "", false
}
