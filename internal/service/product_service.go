package service

import (
	"context"
	"errors"
	"log"

	"github.com/calMall/calMarket-sub000/internal/cache"
	"github.com/calMall/calMarket-sub000/internal/domain"
	r "github.com/calMall/calMarket-sub000/internal/repository"
	"golang.org/x/sync/singleflight"
)

type ProductService struct {
	repo  r.Store
	cache cache.ProductCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewProductService(repo r.Store, productCache cache.ProductCache) *ProductService {
	return &ProductService{
		repo:  repo,
		cache: productCache,
	}
}

// GetProduct reads through the cache; concurrent misses for the same item
// code collapse into one database query.
func (s *ProductService) GetProduct(ctx context.Context, itemCode string) (*domain.Product, error) {
	if itemCode == "" {
		return nil, ErrInvalidInput
	}

	v, err, _ := s.sfg.Do(itemCode, func() (interface{}, error) {
		product, err := s.cache.Get(ctx, itemCode)
		if err == nil {
			return product, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		product, errGet := s.repo.GetProduct(ctx, itemCode)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), product); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return product, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Product), nil
}
