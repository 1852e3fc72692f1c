package models

import "time"

type CheckoutItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// CheckoutOrder is staged in the visitor's cookie session between session
// creation and payment.
type CheckoutOrder struct {
	OrderID   string         `json:"order_id"`
	Email     string         `json:"email,omitempty"`
	Items     []CheckoutItem `json:"items"`
	Total     float64        `json:"total"`
	CreatedAt time.Time      `json:"created_at"`
}

// CheckoutOrderRequest opens a new checkout order.
type CheckoutOrderRequest struct {
	Email string         `json:"email"`
	Items []CheckoutItem `json:"items"`
}

// CheckoutPayRequest pays the order staged in the session. Expiry is
// "MM/YY" or "MM/YYYY", the format embedded checkout forms post.
type CheckoutPayRequest struct {
	CardNumber string   `json:"card_number"`
	Expiry     string   `json:"expiry"`
	CVV        string   `json:"cvv"`
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Address    *Address `json:"billing_address,omitempty"`
}
