package models

import "time"

// PaymentProfileRequest is a card, with an optional billing address, to
// store under a customer profile.
type PaymentProfileRequest struct {
	Card    CreditCard `json:"card"`
	Address *Address   `json:"billing_address,omitempty"`
}

// ProfileRequest is the payload for POST /api/v1/profiles.
type ProfileRequest struct {
	MerchantCustomerID string                  `json:"merchant_customer_id"`
	Email              string                  `json:"email,omitempty"`
	Description        string                  `json:"description,omitempty"`
	PaymentProfiles    []PaymentProfileRequest `json:"payment_profiles,omitempty"`
}

// CustomerProfileData is the stored record of a gateway customer profile.
type CustomerProfileData struct {
	ID                 string    `json:"id"`
	CustomerProfileID  string    `json:"customer_profile_id"`
	MerchantCustomerID string    `json:"merchant_customer_id"`
	Email              string    `json:"email,omitempty"`
	Description        string    `json:"description,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PaymentProfileData is the stored record of one payment profile under a
// customer profile. The card number is masked.
type PaymentProfileData struct {
	ID                string    `json:"id"`
	CustomerProfileID string    `json:"customer_profile_id"`
	PaymentProfileID  string    `json:"payment_profile_id"`
	CardNumber        string    `json:"card"`
	CardType          string    `json:"card_type,omitempty"`
	ExpMonth          int       `json:"exp_month"`
	ExpYear           int       `json:"exp_year"`
	CreatedAt         time.Time `json:"created_at"`
}
