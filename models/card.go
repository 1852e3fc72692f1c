package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Card brands recognized by number pattern. Patterns match the full number,
// not just the prefix.
var cardTypes = map[string]*regexp.Regexp{
	"visa":     regexp.MustCompile(`^4\d{12}(\d{3})?$`),
	"amex":     regexp.MustCompile(`^37\d{13}$`),
	"mc":       regexp.MustCompile(`^5[1-5]\d{14}$`),
	"discover": regexp.MustCompile(`^6011\d{12}$`),
}

var (
	ErrInvalidCardNumber = errors.New("invalid card number")
	ErrInvalidCVV        = errors.New("invalid card security code")
	ErrCardExpired       = errors.New("card is expired")
)

// CreditCard carries raw card input for a charge or a stored profile. It owns
// no gateway identifiers; wire formatting happens in the gateway layer.
type CreditCard struct {
	Number    string `json:"card_number"`
	ExpMonth  int    `json:"exp_month"`
	ExpYear   int    `json:"exp_year"`
	CVV       string `json:"cvv"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Validate checks number length, Luhn digit, CVV length and expiration.
func (c CreditCard) Validate() error {
	number := strings.TrimSpace(c.Number)
	if len(number) < 13 || len(number) > 19 || !luhnValid(number) {
		return ErrInvalidCardNumber
	}
	if len(c.CVV) < 3 || len(c.CVV) > 4 {
		return ErrInvalidCVV
	}
	if c.Expired() {
		return ErrCardExpired
	}
	return nil
}

// Expired reports whether the card expiration has passed. A card stays valid
// through the last day of its expiration month.
func (c CreditCard) Expired() bool {
	if c.ExpMonth < 1 || c.ExpMonth > 12 || c.ExpYear <= 0 {
		return true
	}
	endOfMonth := time.Date(c.ExpYear, time.Month(c.ExpMonth)+1, 0, 23, 59, 59, 0, time.UTC)
	return endOfMonth.Before(time.Now())
}

// CardType returns the brand of the card number (visa, amex, mc, discover),
// or an empty string when no pattern matches.
func (c CreditCard) CardType() string {
	for brand, pattern := range cardTypes {
		if pattern.MatchString(c.Number) {
			return brand
		}
	}
	return ""
}

// Last4 returns the last four digits of the card number.
func (c CreditCard) Last4() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// MaskedNumber keeps only the last four digits, e.g. "XXXX1111". Raw card
// numbers never reach logs or storage.
func (c CreditCard) MaskedNumber() string {
	return "XXXX" + c.Last4()
}

func luhnValid(number string) bool {
	sum := 0
	isEven := len(number)%2 == 0

	for i, r := range number {
		digit := int(r - '0')
		if digit < 0 || digit > 9 {
			return false
		}
		if isEven == (i%2 == 0) {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}

	return sum%10 == 0
}
