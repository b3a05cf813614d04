package domain

import "time"

type OrderItem struct {
	ID           int64  `json:"id"`
	ItemCode     string `json:"item_code"`
	ItemName     string `json:"item_name"`
	Quantity     int    `json:"quantity"`
	PriceAtOrder int64  `json:"price_at_order"`
	ImageURL     string `json:"image_url"`
}

type Order struct {
	ID              int64
	UserID          string
	DeliveryAddress string
	Status          OrderStatus
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Total is the order's monetary value based on the price snapshots taken
// at order time, independent of later product price changes.
func (o *Order) Total() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.PriceAtOrder * int64(item.Quantity)
	}
	return total
}
