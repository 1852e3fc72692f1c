package payment

import (
	"arbor-payment-api/models"
	"arbor-payment-api/services/payment/authorizenet"
)

// TransactionProcessor is the direct card transaction surface of the
// gateway. *authorizenet.TransactionClient satisfies it.
type TransactionProcessor interface {
	Authorize(amount float64, card models.CreditCard, address *models.Address) (*authorizenet.TransactionResult, error)
	Capture(amount float64, card models.CreditCard, address *models.Address) (*authorizenet.TransactionResult, error)
	Settle(transactionID string, amount *float64) (*authorizenet.TransactionResult, error)
	Credit(cardLast4, transactionID string, amount float64) (*authorizenet.TransactionResult, error)
	Void(transactionID string) (*authorizenet.TransactionResult, error)
}

// ProfileManager is the stored profile surface of the gateway.
// *authorizenet.ProfileClient satisfies it.
type ProfileManager interface {
	CreateProfile(profile authorizenet.CustomerProfile) (*authorizenet.ProfileResult, error)
	CreatePaymentProfile(customerProfileID string, payment authorizenet.PaymentProfile) (string, error)
	UpdatePaymentProfile(customerProfileID, paymentProfileID string, payment authorizenet.PaymentProfile) error
	DeleteProfile(customerProfileID string) error
	DeletePaymentProfile(customerProfileID, paymentProfileID string) error
	Authorize(customerProfileID, paymentProfileID string, amount float64) (*authorizenet.TransactionResult, error)
	Capture(customerProfileID, paymentProfileID string, amount float64) (*authorizenet.TransactionResult, error)
	Refund(customerProfileID, paymentProfileID, transactionID string, amount float64) (*authorizenet.TransactionResult, error)
	Void(customerProfileID, paymentProfileID, transactionID string) (*authorizenet.TransactionResult, error)
}
