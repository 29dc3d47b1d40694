package domain

type OrderCreated struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	TotalCents  int64  `json:"total_cents"`
}

type OrderStatusChanged struct {
	OrderID string      `json:"order_id"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}
