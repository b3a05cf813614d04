package domain

import "time"

// Product mirrors the marketplace listing; ItemCode is the stable external
// identifier (e.g. "uriurishop:10005846") and the primary key.
type Product struct {
	ItemCode    string    `json:"item_code"`
	ItemName    string    `json:"item_name"`
	ItemCaption string    `json:"item_caption"`
	Price       int64     `json:"price"`
	Inventory   int       `json:"inventory"`
	ImageURLs   []string  `json:"image_urls"`
	OnSale      bool      `json:"on_sale"`
	CreatedAt   time.Time `json:"created_at"`
}

// MainImage returns the first listing image, or "" for products without one.
func (p *Product) MainImage() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}
