package models

import "time"

// Transaction types recorded in payment_transactions.
const (
	TransactionTypeAuthorize = "authorize"
	TransactionTypeCapture   = "capture"
	TransactionTypeCredit    = "credit"
)

// Transaction statuses. A charge starts authorized (or settling when async
// capture was requested) and moves forward from there.
const (
	TransactionStatusAuthorized = "authorized"
	TransactionStatusSettling   = "settling"
	TransactionStatusCaptured   = "captured"
	TransactionStatusVoided     = "voided"
	TransactionStatusRefunded   = "refunded"
	TransactionStatusFailed     = "failed"
	TransactionStatusHeld       = "held"
)

// Transaction is the stored record of a gateway transaction. The card
// number is persisted masked, never raw.
type Transaction struct {
	ID                string    `json:"id"`
	GatewayID         string    `json:"transaction_id"`
	Type              string    `json:"type"`
	Amount            float64   `json:"amount"`
	Status            string    `json:"status"`
	CardNumber        string    `json:"card"`
	CardType          string    `json:"card_type,omitempty"`
	AuthCode          string    `json:"authorization_code,omitempty"`
	AVSResult         string    `json:"avs_result,omitempty"`
	CVVResult         string    `json:"cvv_result,omitempty"`
	OrderID           string    `json:"order_id,omitempty"`
	CustomerProfileID string    `json:"customer_profile_id,omitempty"`
	PaymentProfileID  string    `json:"payment_profile_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ChargeRequest is the payload for POST /api/v1/charges. Capture true
// requests settlement of the authorization via the async worker.
type ChargeRequest struct {
	Amount  float64    `json:"amount"`
	Capture bool       `json:"capture"`
	Card    CreditCard `json:"card"`
	Address *Address   `json:"billing_address,omitempty"`
	OrderID string     `json:"order_id,omitempty"`
}

// CaptureRequest settles a previous authorization. A nil amount captures
// the full authorized amount.
type CaptureRequest struct {
	Amount *float64 `json:"amount,omitempty"`
}

// RefundRequest credits a settled transaction. The last four digits must
// match the card the transaction was made with.
type RefundRequest struct {
	Amount    float64 `json:"amount"`
	CardLast4 string  `json:"card_last4"`
}

// ProfileChargeRequest charges a stored payment profile.
type ProfileChargeRequest struct {
	PaymentProfileID string  `json:"payment_profile_id"`
	Amount           float64 `json:"amount"`
	Capture          bool    `json:"capture"`
}
