package authorizenet

import (
	"fmt"

	"arbor-payment-api/models"
)

// formatAmount renders an amount with exactly two decimal digits, the only
// amount form the gateway accepts.
func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// expirationAIM renders a card expiration for the transaction protocol,
// e.g. "01-2034".
func expirationAIM(card models.CreditCard) string {
	return fmt.Sprintf("%02d-%04d", card.ExpMonth, card.ExpYear)
}

// expirationCIM renders a card expiration for the profile protocol,
// e.g. "2034-01".
func expirationCIM(card models.CreditCard) string {
	return fmt.Sprintf("%04d-%02d", card.ExpYear, card.ExpMonth)
}

// boolFlag renders the TRUE/FALSE form used by x_test_request.
func boolFlag(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// shortBoolFlag renders the single-letter boolean used inside the profile
// transaction options string.
func shortBoolFlag(v bool) string {
	if v {
		return "T"
	}
	return "F"
}
