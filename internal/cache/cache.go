package cache

import (
	"context"
	"errors"

	"github.com/calMall/calMarket-sub000/internal/domain"
)

type ProductCache interface {
	Get(ctx context.Context, itemCode string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, itemCode string) error
}

var ErrCacheMiss = errors.New("cache miss")
