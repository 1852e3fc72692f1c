package authorizenet

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"time"
)

// ProfileClient speaks the gateway's SOAP profile service: stored customer
// profiles, stored payment profiles, and transactions against them. Safe for
// concurrent use.
type ProfileClient struct {
	endpoint     string
	auth         merchantAuthenticationType
	extraOptions string
	client       Doer
}

func NewProfileClient(cfg Config) *ProfileClient {
	// The options string forces the embedded directResponse into the same
	// ;-delimited shape the transaction protocol returns.
	options := fmt.Sprintf("x_version=3.1&x_test_request=%s&x_delim_data=TRUE&x_delim_char=%%3B",
		shortBoolFlag(cfg.TestRequests))

	return &ProfileClient{
		endpoint: cfg.profileEndpoint(),
		auth: merchantAuthenticationType{
			Name:           cfg.LoginID,
			TransactionKey: cfg.TransactionKey,
		},
		extraOptions: options,
		client:       cfg.httpClient(),
	}
}

// CreateProfile registers a customer profile, optionally with payment
// profiles already attached, and returns the remote-assigned ids. The
// returned payment profile ids keep the order of the supplied records.
func (c *ProfileClient) CreateProfile(profile CustomerProfile) (*ProfileResult, error) {
	request := createCustomerProfileSOAP{Auth: c.auth, Profile: profile}
	body, err := c.call("CreateCustomerProfile", request)
	if err != nil {
		return nil, err
	}

	var envelope createCustomerProfileEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, newConnectionError(err)
	}
	if err := checkResult(&envelope.Result); err != nil {
		return nil, err
	}

	result := &ProfileResult{
		CustomerProfileID: envelope.Result.CustomerProfileID,
	}
	if profile.PaymentProfiles != nil {
		result.PaymentProfileIDs = envelope.Result.PaymentProfileIDList.Values
	}
	if envelope.Result.DirectResponse != "" {
		result.Transaction = ParseTransactionResponse(envelope.Result.DirectResponse)
	}
	return result, nil
}

// CreatePaymentProfile attaches one payment profile to an existing customer
// profile and returns the remote-assigned payment profile id.
func (c *ProfileClient) CreatePaymentProfile(customerProfileID string, payment PaymentProfile) (string, error) {
	request := createCustomerPaymentProfileSOAP{
		Auth:              c.auth,
		CustomerProfileID: customerProfileID,
		PaymentProfile:    payment,
	}
	body, err := c.call("CreateCustomerPaymentProfile", request)
	if err != nil {
		return "", err
	}

	var envelope createCustomerPaymentProfileEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return "", newConnectionError(err)
	}
	if err := checkResult(&envelope.Result); err != nil {
		return "", err
	}
	return envelope.Result.CustomerPaymentProfileID, nil
}

// UpdatePaymentProfile replaces the card and billing data of a stored payment
// profile.
func (c *ProfileClient) UpdatePaymentProfile(customerProfileID, paymentProfileID string, payment PaymentProfile) error {
	request := updateCustomerPaymentProfileSOAP{
		Auth:              c.auth,
		CustomerProfileID: customerProfileID,
		PaymentProfile: paymentProfileEx{
			BillTo:                   payment.BillTo,
			Payment:                  payment.Payment,
			CustomerPaymentProfileID: paymentProfileID,
		},
	}
	body, err := c.call("UpdateCustomerPaymentProfile", request)
	if err != nil {
		return err
	}

	var envelope updateCustomerPaymentProfileEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return newConnectionError(err)
	}
	return checkResult(&envelope.Result)
}

// DeleteProfile removes a customer profile and every payment profile under it.
func (c *ProfileClient) DeleteProfile(customerProfileID string) error {
	request := deleteCustomerProfileSOAP{Auth: c.auth, CustomerProfileID: customerProfileID}
	body, err := c.call("DeleteCustomerProfile", request)
	if err != nil {
		return err
	}

	var envelope deleteCustomerProfileEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return newConnectionError(err)
	}
	return checkResult(&envelope.Result)
}

// DeletePaymentProfile removes one payment profile from a customer profile.
func (c *ProfileClient) DeletePaymentProfile(customerProfileID, paymentProfileID string) error {
	request := deleteCustomerPaymentProfileSOAP{
		Auth:                     c.auth,
		CustomerProfileID:        customerProfileID,
		CustomerPaymentProfileID: paymentProfileID,
	}
	body, err := c.call("DeleteCustomerPaymentProfile", request)
	if err != nil {
		return err
	}

	var envelope deleteCustomerPaymentProfileEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return newConnectionError(err)
	}
	return checkResult(&envelope.Result)
}

// Authorize places a hold against a stored payment profile.
func (c *ProfileClient) Authorize(customerProfileID, paymentProfileID string, amount float64) (*TransactionResult, error) {
	return c.sendTransaction(ProfileTransaction{
		AuthOnly: &ProfileTransactionDetail{
			Amount:                   formatAmount(amount),
			CustomerProfileID:        customerProfileID,
			CustomerPaymentProfileID: paymentProfileID,
		},
	})
}

// Capture authorizes and captures against a stored payment profile in a
// single call.
func (c *ProfileClient) Capture(customerProfileID, paymentProfileID string, amount float64) (*TransactionResult, error) {
	return c.sendTransaction(ProfileTransaction{
		AuthCapture: &ProfileTransactionDetail{
			Amount:                   formatAmount(amount),
			CustomerProfileID:        customerProfileID,
			CustomerPaymentProfileID: paymentProfileID,
		},
	})
}

// Refund credits amount from a settled transaction back to a stored payment
// profile.
func (c *ProfileClient) Refund(customerProfileID, paymentProfileID, transactionID string, amount float64) (*TransactionResult, error) {
	return c.sendTransaction(ProfileTransaction{
		Refund: &ProfileTransactionDetail{
			Amount:                   formatAmount(amount),
			CustomerProfileID:        customerProfileID,
			CustomerPaymentProfileID: paymentProfileID,
			TransactionID:            transactionID,
		},
	})
}

// Void cancels an unsettled transaction made against a stored payment profile.
func (c *ProfileClient) Void(customerProfileID, paymentProfileID, transactionID string) (*TransactionResult, error) {
	return c.sendTransaction(ProfileTransaction{
		Void: &ProfileTransactionDetail{
			CustomerProfileID:        customerProfileID,
			CustomerPaymentProfileID: paymentProfileID,
			TransactionID:            transactionID,
		},
	})
}

func (c *ProfileClient) sendTransaction(transaction ProfileTransaction) (*TransactionResult, error) {
	request := createProfileTransactionSOAP{
		Auth:         c.auth,
		Transaction:  transaction,
		ExtraOptions: c.extraOptions,
	}
	body, err := c.call("CreateCustomerProfileTransaction", request)
	if err != nil {
		return nil, err
	}

	var envelope createProfileTransactionEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, newConnectionError(err)
	}
	if err := checkResult(&envelope.Result); err != nil {
		return nil, err
	}
	return ParseTransactionResponse(envelope.Result.DirectResponse), nil
}

func (c *ProfileClient) call(method string, payload interface{}) ([]byte, error) {
	envelope := soapEnvelope{
		SoapNS: soapEnvelopeNS,
		Body:   soapBody{Payload: payload},
	}
	data, err := xml.Marshal(envelope)
	if err != nil {
		return nil, newConnectionError(err)
	}
	data = append([]byte(xml.Header), data...)

	ctx, cancel := requestContext()
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, newConnectionError(err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", cimNamespace+method)

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newConnectionError(err)
	}
	defer resp.Body.Close()
	log.Printf("Gateway %s call completed in %v", method, time.Since(startTime))

	if err := checkStatus(resp, c.endpoint); err != nil {
		return nil, err
	}
	return readBody(resp)
}

// checkResult classifies the profile service's reply. Errors surface the
// first message only.
func checkResult(result *profileCallResult) error {
	if result.ResultCode == "Ok" {
		return nil
	}
	gerr := &GatewayError{
		Kind:    ErrorKindResponse,
		Message: "Unknown error occurred",
	}
	if len(result.Messages.Messages) > 0 {
		first := result.Messages.Messages[0]
		gerr.Code = first.Code
		gerr.Message = first.Text
	}
	return gerr
}
