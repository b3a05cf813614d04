package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/calMall/calMarket-sub000/internal/domain"
)

// CreateOrder resolves every requested product, checks and reserves stock,
// snapshots prices into order lines and persists the order at PENDING.
// All of it happens in one transaction: a failure on any line aborts the
// whole order and no inventory decrement survives.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, userID string, lines []LineRequest, deliveryAddress string) (*domain.Order, error) {
	if userID == "" || deliveryAddress == "" || len(lines) == 0 {
		return nil, ErrInvalidInput
	}
	for _, line := range lines {
		if line.ItemCode == "" || line.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
	}

	// row locks are taken in item-code order so two orders listing the same
	// products in different order cannot deadlock
	lines = append([]LineRequest(nil), lines...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ItemCode < lines[j].ItemCode })

	var created *domain.Order
	err := s.repo.Transact(ctx, func(ctx context.Context) error {
		user, err := s.repo.GetUserByUserID(ctx, userID)
		if err != nil {
			return err
		}

		order := &domain.Order{
			UserID:          user.UserID,
			DeliveryAddress: deliveryAddress,
			Status:          domain.OrderStatusPending,
		}

		itemCodes := make([]string, 0, len(lines))
		for _, line := range lines {
			product, err := s.repo.GetProductForUpdate(ctx, line.ItemCode)
			if err != nil {
				return err
			}
			if product.Inventory < line.Quantity {
				return fmt.Errorf("%w: %s has %d in stock, requested %d",
					ErrInsufficientInventory, product.ItemCode, product.Inventory, line.Quantity)
			}
			if err := s.repo.AdjustInventory(ctx, line.ItemCode, -line.Quantity); err != nil {
				return err
			}

			order.Items = append(order.Items, domain.OrderItem{
				ItemCode:     product.ItemCode,
				ItemName:     product.ItemName,
				Quantity:     line.Quantity,
				PriceAtOrder: product.Price,
				ImageURL:     product.MainImage(),
			})
			itemCodes = append(itemCodes, line.ItemCode)
		}

		if err := s.repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		// ordered items leave the cart together with order creation
		if err := s.repo.DeleteCartItems(ctx, userID, itemCodes); err != nil {
			return err
		}

		if err := s.writeStatusEvent(ctx, order.ID, userID, domain.OrderStatusPending); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(created.Items))
	for _, item := range created.Items {
		codes = append(codes, item.ItemCode)
	}
	s.invalidateProducts(codes)

	return created, nil
}
