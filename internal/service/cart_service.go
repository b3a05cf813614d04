package service

import (
	"context"

	"github.com/calMall/calMarket-sub000/internal/domain"
	r "github.com/calMall/calMarket-sub000/internal/repository"
)

type CartService struct {
	repo r.Store
}

func NewCartService(repo r.Store) *CartService {
	return &CartService{repo: repo}
}

func (s *CartService) GetCart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListCartItems(ctx, userID)
}

// AddItem puts the product in the user's cart, accumulating quantity if it
// is already there. The product must exist in the catalog.
func (s *CartService) AddItem(ctx context.Context, userID, itemCode string, quantity int) (*domain.CartItem, error) {
	if userID == "" || itemCode == "" || quantity <= 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.repo.GetProduct(ctx, itemCode); err != nil {
		return nil, err
	}

	item := &domain.CartItem{
		UserID:   userID,
		ItemCode: itemCode,
		Quantity: quantity,
	}
	if err := s.repo.UpsertCartItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemCode string) error {
	if userID == "" || itemCode == "" {
		return ErrInvalidInput
	}
	return s.repo.RemoveCartItem(ctx, userID, itemCode)
}
