package http

import (
	"context"
	"net/http"
	"time"

	"github.com/calMall/calMarket-sub000/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ProductGetter is the catalog read side of the product service.
type ProductGetter interface {
	GetProduct(ctx context.Context, itemCode string) (*domain.Product, error)
}

type ProductsHandler struct {
	products ProductGetter
	timeout  time.Duration
}

func NewProductsHandler(products ProductGetter, timeout time.Duration) *ProductsHandler {
	return &ProductsHandler{
		products: products,
		timeout:  timeout,
	}
}

type ProductResponseDTO struct {
	ItemCode    string   `json:"item_code"`
	ItemName    string   `json:"item_name"`
	ItemCaption string   `json:"item_caption,omitempty"`
	Price       int64    `json:"price"`
	Inventory   int      `json:"inventory"`
	ImageURLs   []string `json:"image_urls"`
	OnSale      bool     `json:"on_sale"`
}

// GET /api/products/{item_code}
func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemCode := chi.URLParam(r, "item_code")
	if itemCode == "" {
		respondError(w, http.StatusBadRequest, "missing_item_code", "item_code is required")
		return
	}

	product, err := h.products.GetProduct(ctx, itemCode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	imageURLs := product.ImageURLs
	if imageURLs == nil {
		imageURLs = make([]string, 0)
	}

	respondJSON(w, http.StatusOK, ProductResponseDTO{
		ItemCode:    product.ItemCode,
		ItemName:    product.ItemName,
		ItemCaption: product.ItemCaption,
		Price:       product.Price,
		Inventory:   product.Inventory,
		ImageURLs:   imageURLs,
		OnSale:      product.OnSale,
	})
}
