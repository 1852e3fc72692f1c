package authorizenet

import (
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arbor-payment-api/models"
)

// Transaction types of the form-encoded protocol.
const (
	typeAuthOnly         = "AUTH_ONLY"
	typeAuthCapture      = "AUTH_CAPTURE"
	typePriorAuthCapture = "PRIOR_AUTH_CAPTURE"
	typeCredit           = "CREDIT"
	typeVoid             = "VOID"
)

// TransactionClient speaks the gateway's form-encoded transaction protocol:
// one POST per operation, one ;-delimited response line back. Safe for
// concurrent use; each call builds its own parameter set.
type TransactionClient struct {
	endpoint   string
	baseParams url.Values
	client     Doer
}

func NewTransactionClient(cfg Config) *TransactionClient {
	base := url.Values{}
	base.Set("x_login", cfg.LoginID)
	base.Set("x_tran_key", cfg.TransactionKey)
	base.Set("x_version", "3.1")
	base.Set("x_test_request", boolFlag(cfg.TestRequests))
	base.Set("x_delim_data", "TRUE")
	base.Set("x_delim_char", ";")

	return &TransactionClient{
		endpoint:   cfg.transactionEndpoint(),
		baseParams: base,
		client:     cfg.httpClient(),
	}
}

// Authorize places a hold for amount on the card without capturing funds.
func (c *TransactionClient) Authorize(amount float64, card models.CreditCard, address *models.Address) (*TransactionResult, error) {
	params := c.newParams(typeAuthOnly)
	params.Set("x_amount", formatAmount(amount))
	addCardParams(params, card)
	addAddressParams(params, address)
	return c.send(params)
}

// Capture authorizes and captures amount in a single call.
func (c *TransactionClient) Capture(amount float64, card models.CreditCard, address *models.Address) (*TransactionResult, error) {
	params := c.newParams(typeAuthCapture)
	params.Set("x_amount", formatAmount(amount))
	addCardParams(params, card)
	addAddressParams(params, address)
	return c.send(params)
}

// Settle captures a previously authorized transaction. A nil amount settles
// the full authorized amount; the field then stays off the request entirely
// rather than going out as zero.
func (c *TransactionClient) Settle(transactionID string, amount *float64) (*TransactionResult, error) {
	params := c.newParams(typePriorAuthCapture)
	params.Set("x_trans_id", transactionID)
	if amount != nil {
		params.Set("x_amount", formatAmount(*amount))
	}
	return c.send(params)
}

// Credit refunds amount against a settled transaction. The gateway verifies
// the credit against the truncated card number, so only the last four digits
// travel. Credits must reference a settled charge and stay within its amount.
func (c *TransactionClient) Credit(cardLast4, transactionID string, amount float64) (*TransactionResult, error) {
	params := c.newParams(typeCredit)
	params.Set("x_duplicate_window", strconv.Itoa(DuplicateWindow))
	params.Set("x_trans_id", transactionID)
	params.Set("x_card_num", cardLast4)
	params.Set("x_amount", formatAmount(amount))
	return c.send(params)
}

// Void cancels a transaction that has not settled yet.
func (c *TransactionClient) Void(transactionID string) (*TransactionResult, error) {
	params := c.newParams(typeVoid)
	params.Set("x_trans_id", transactionID)
	return c.send(params)
}

func (c *TransactionClient) newParams(transactionType string) url.Values {
	params := make(url.Values, len(c.baseParams)+10)
	for k, v := range c.baseParams {
		params[k] = v
	}
	params.Set("x_type", transactionType)
	return params
}

// addCardParams contributes the card fields. Name fields go on the wire only
// when present.
func addCardParams(params url.Values, card models.CreditCard) {
	params.Set("x_card_num", card.Number)
	params.Set("x_exp_date", expirationAIM(card))
	params.Set("x_card_code", card.CVV)
	if card.FirstName != "" {
		params.Set("x_first_name", card.FirstName)
	}
	if card.LastName != "" {
		params.Set("x_last_name", card.LastName)
	}
}

func addAddressParams(params url.Values, address *models.Address) {
	if address == nil {
		return
	}
	params.Set("x_address", address.Street)
	params.Set("x_city", address.City)
	params.Set("x_state", address.State)
	params.Set("x_zip", address.Zip)
	params.Set("x_country", address.CountryOrDefault())
}

func (c *TransactionClient) send(params url.Values) (*TransactionResult, error) {
	ctx, cancel := requestContext()
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, newConnectionError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newConnectionError(err)
	}
	defer resp.Body.Close()
	log.Printf("Gateway %s call completed in %v", params.Get("x_type"), time.Since(startTime))

	if err := checkStatus(resp, c.endpoint); err != nil {
		return nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	result := ParseTransactionResponse(strings.TrimRight(string(body), "\r\n"))
	switch result.ResponseCode {
	case ResponseCodeDeclined, ResponseCodeError:
		return nil, &GatewayError{
			Kind:    ErrorKindResponse,
			Message: result.ResponseReasonText,
			Result:  result,
		}
	}
	return result, nil
}
