package models

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ProfileResponse reports the gateway identifiers created for a customer
// profile and its payment profiles.
type ProfileResponse struct {
	CustomerProfileID string   `json:"customer_profile_id"`
	PaymentProfileIDs []string `json:"payment_profile_ids,omitempty"`
}
