package payment

import (
	"errors"
	"log"

	"arbor-payment-api/models"
	"arbor-payment-api/services/payment/authorizenet"
	"arbor-payment-api/utils"
)

var (
	ErrInvalidAmount = errors.New("invalid charge amount")
	ErrInvalidLast4  = errors.New("card last four must be exactly four digits")
)

// Service orchestrates the gateway clients behind the consumer interfaces
// so handlers and the worker stay independent of the wire protocol.
type Service struct {
	transactions TransactionProcessor
	profiles     ProfileManager
}

func NewService(cfg authorizenet.Config) *Service {
	return &Service{
		transactions: authorizenet.NewTransactionClient(cfg),
		profiles:     authorizenet.NewProfileClient(cfg),
	}
}

// NewServiceWith wires explicit gateway implementations, used in tests.
func NewServiceWith(transactions TransactionProcessor, profiles ProfileManager) *Service {
	return &Service{
		transactions: transactions,
		profiles:     profiles,
	}
}

// Charge validates the card and runs it for the requested amount. Capture
// true charges immediately, otherwise the amount is only authorized.
func (s *Service) Charge(req *models.ChargeRequest) (*authorizenet.TransactionResult, error) {
	if !utils.ValidAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}
	if err := req.Card.Validate(); err != nil {
		log.Printf("Card validation failed for %s: %v", req.Card.MaskedNumber(), err)
		return nil, err
	}

	log.Printf("Charging %s for %.2f (capture=%v)", req.Card.MaskedNumber(), req.Amount, req.Capture)

	if req.Capture {
		return s.transactions.Capture(req.Amount, req.Card, req.Address)
	}
	return s.transactions.Authorize(req.Amount, req.Card, req.Address)
}

// Settle captures a previously authorized transaction. A nil amount
// settles the full authorized amount.
func (s *Service) Settle(transactionID string, amount *float64) (*authorizenet.TransactionResult, error) {
	if amount != nil && !utils.ValidAmount(*amount) {
		return nil, ErrInvalidAmount
	}

	log.Printf("Settling transaction %s", transactionID)
	return s.transactions.Settle(transactionID, amount)
}

// Refund credits a settled transaction back to the card it was made with,
// identified by its last four digits.
func (s *Service) Refund(transactionID, cardLast4 string, amount float64) (*authorizenet.TransactionResult, error) {
	if !utils.ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if !validLast4(cardLast4) {
		return nil, ErrInvalidLast4
	}

	log.Printf("Refunding %.2f on transaction %s", amount, transactionID)
	return s.transactions.Credit(cardLast4, transactionID, amount)
}

// Void cancels a transaction that has not settled yet.
func (s *Service) Void(transactionID string) (*authorizenet.TransactionResult, error) {
	log.Printf("Voiding transaction %s", transactionID)
	return s.transactions.Void(transactionID)
}

// SaveProfile stores a customer and any initial cards at the gateway.
func (s *Service) SaveProfile(req *models.ProfileRequest) (*authorizenet.ProfileResult, error) {
	if req.MerchantCustomerID == "" {
		return nil, errors.New("merchant customer id is required")
	}

	payments := make([]authorizenet.PaymentProfile, 0, len(req.PaymentProfiles))
	for _, pp := range req.PaymentProfiles {
		if err := pp.Card.Validate(); err != nil {
			log.Printf("Card validation failed for %s: %v", pp.Card.MaskedNumber(), err)
			return nil, err
		}
		payments = append(payments, authorizenet.NewPaymentProfile(pp.Card, pp.Address))
	}

	profile := authorizenet.NewCustomerProfile(req.MerchantCustomerID, req.Email, payments)
	profile.Description = req.Description

	log.Printf("Creating customer profile for merchant customer %s with %d cards",
		req.MerchantCustomerID, len(payments))
	return s.profiles.CreateProfile(profile)
}

// AddPaymentProfile stores one more card under an existing profile and
// returns the new payment profile id.
func (s *Service) AddPaymentProfile(customerProfileID string, req *models.PaymentProfileRequest) (string, error) {
	if err := req.Card.Validate(); err != nil {
		log.Printf("Card validation failed for %s: %v", req.Card.MaskedNumber(), err)
		return "", err
	}

	log.Printf("Adding payment profile to customer profile %s", customerProfileID)
	return s.profiles.CreatePaymentProfile(customerProfileID, authorizenet.NewPaymentProfile(req.Card, req.Address))
}

// UpdatePaymentProfile replaces the card stored under a payment profile.
func (s *Service) UpdatePaymentProfile(customerProfileID, paymentProfileID string, req *models.PaymentProfileRequest) error {
	if err := req.Card.Validate(); err != nil {
		log.Printf("Card validation failed for %s: %v", req.Card.MaskedNumber(), err)
		return err
	}

	log.Printf("Updating payment profile %s under customer profile %s", paymentProfileID, customerProfileID)
	return s.profiles.UpdatePaymentProfile(customerProfileID, paymentProfileID, authorizenet.NewPaymentProfile(req.Card, req.Address))
}

func (s *Service) RemovePaymentProfile(customerProfileID, paymentProfileID string) error {
	log.Printf("Removing payment profile %s under customer profile %s", paymentProfileID, customerProfileID)
	return s.profiles.DeletePaymentProfile(customerProfileID, paymentProfileID)
}

func (s *Service) RemoveProfile(customerProfileID string) error {
	log.Printf("Removing customer profile %s", customerProfileID)
	return s.profiles.DeleteProfile(customerProfileID)
}

// ChargeProfile charges a stored payment profile. Capture true settles
// immediately, otherwise the amount is only authorized.
func (s *Service) ChargeProfile(customerProfileID string, req *models.ProfileChargeRequest) (*authorizenet.TransactionResult, error) {
	if !utils.ValidAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}
	if req.PaymentProfileID == "" {
		return nil, errors.New("payment profile id is required")
	}

	log.Printf("Charging profile %s/%s for %.2f (capture=%v)",
		customerProfileID, req.PaymentProfileID, req.Amount, req.Capture)

	if req.Capture {
		return s.profiles.Capture(customerProfileID, req.PaymentProfileID, req.Amount)
	}
	return s.profiles.Authorize(customerProfileID, req.PaymentProfileID, req.Amount)
}

// RefundProfile credits a settled profile transaction.
func (s *Service) RefundProfile(customerProfileID, paymentProfileID, transactionID string, amount float64) (*authorizenet.TransactionResult, error) {
	if !utils.ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}

	log.Printf("Refunding %.2f on profile transaction %s", amount, transactionID)
	return s.profiles.Refund(customerProfileID, paymentProfileID, transactionID, amount)
}

// VoidProfile cancels an unsettled profile transaction.
func (s *Service) VoidProfile(customerProfileID, paymentProfileID, transactionID string) (*authorizenet.TransactionResult, error) {
	log.Printf("Voiding profile transaction %s", transactionID)
	return s.profiles.Void(customerProfileID, paymentProfileID, transactionID)
}

func validLast4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
