package domain

type User struct {
	ID       int64  `json:"-"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Point    int64  `json:"point"`
}

type CartItem struct {
	ID       int64  `json:"id"`
	UserID   string `json:"user_id"`
	ItemCode string `json:"item_code"`
	Quantity int    `json:"quantity"`
}
