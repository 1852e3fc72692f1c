package authorizenet

import (
	"encoding/xml"

	"arbor-payment-api/models"
)

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

	// cimNamespace qualifies every profile service operation; SOAPAction
	// values are cimNamespace + method name.
	cimNamespace = "https://api.authorize.net/soap/v1/"
)

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    soapBody `xml:"soap:Body"`
}

// soapBody wraps one operation payload; the payload's own XMLName names the
// operation element.
type soapBody struct {
	Payload interface{}
}

type merchantAuthenticationType struct {
	Name           string `xml:"name"`
	TransactionKey string `xml:"transactionKey"`
}

// CreditCardType is the card record nested inside a payment profile. The
// expiration travels in the profile protocol's YYYY-MM order.
type CreditCardType struct {
	CardNumber     string `xml:"cardNumber"`
	ExpirationDate string `xml:"expirationDate"`
	CardCode       string `xml:"cardCode,omitempty"`
}

type PaymentType struct {
	CreditCard CreditCardType `xml:"creditCard"`
}

type CustomerAddressType struct {
	FirstName string `xml:"firstName,omitempty"`
	LastName  string `xml:"lastName,omitempty"`
	Address   string `xml:"address,omitempty"`
	City      string `xml:"city,omitempty"`
	State     string `xml:"state,omitempty"`
	Zip       string `xml:"zip,omitempty"`
	Country   string `xml:"country,omitempty"`
}

// PaymentProfile is one stored-payment record. Field order follows the
// service schema: billTo before payment.
type PaymentProfile struct {
	BillTo  *CustomerAddressType `xml:"billTo,omitempty"`
	Payment *PaymentType         `xml:"payment,omitempty"`
}

// NewPaymentProfile builds a stored-payment record from a card and an
// optional billing address. Sub-records appear only when their inputs do:
// the card's name fields fill the billTo names, a nil address leaves the
// street fields off the wire.
func NewPaymentProfile(card models.CreditCard, address *models.Address) PaymentProfile {
	profile := PaymentProfile{
		Payment: &PaymentType{
			CreditCard: CreditCardType{
				CardNumber:     card.Number,
				ExpirationDate: expirationCIM(card),
				CardCode:       card.CVV,
			},
		},
	}

	billTo := CustomerAddressType{
		FirstName: card.FirstName,
		LastName:  card.LastName,
	}
	if address != nil {
		billTo.Address = address.Street
		billTo.City = address.City
		billTo.State = address.State
		billTo.Zip = address.Zip
		billTo.Country = address.CountryOrDefault()
	}
	if billTo != (CustomerAddressType{}) {
		profile.BillTo = &billTo
	}
	return profile
}

// paymentProfileList exists so that an empty profile set can be omitted
// entirely; the service rejects an explicit empty collection.
type paymentProfileList struct {
	Items []PaymentProfile `xml:"CustomerPaymentProfileType"`
}

// CustomerProfile is the root record for profile creation.
type CustomerProfile struct {
	MerchantCustomerID string              `xml:"merchantCustomerId"`
	Description        string              `xml:"description,omitempty"`
	Email              string              `xml:"email,omitempty"`
	PaymentProfiles    *paymentProfileList `xml:"paymentProfiles,omitempty"`
}

// NewCustomerProfile builds the root profile record. Email may be empty;
// empty optional fields never reach the wire.
func NewCustomerProfile(merchantCustomerID, email string, payments []PaymentProfile) CustomerProfile {
	profile := CustomerProfile{
		MerchantCustomerID: merchantCustomerID,
		Email:              email,
	}
	if len(payments) > 0 {
		profile.PaymentProfiles = &paymentProfileList{Items: payments}
	}
	return profile
}

// paymentProfileEx carries the payment profile id alongside the replacement
// card and billing data for update calls.
type paymentProfileEx struct {
	BillTo                   *CustomerAddressType `xml:"billTo,omitempty"`
	Payment                  *PaymentType         `xml:"payment,omitempty"`
	CustomerPaymentProfileID string               `xml:"customerPaymentProfileId"`
}

// ProfileTransaction wraps exactly one transaction detail; the set member
// selects the operation.
type ProfileTransaction struct {
	AuthOnly    *ProfileTransactionDetail `xml:"profileTransAuthOnly,omitempty"`
	AuthCapture *ProfileTransactionDetail `xml:"profileTransAuthCapture,omitempty"`
	Refund      *ProfileTransactionDetail `xml:"profileTransRefund,omitempty"`
	Void        *ProfileTransactionDetail `xml:"profileTransVoid,omitempty"`
}

// ProfileTransactionDetail targets a stored payment profile. Amount is the
// two-decimal string form; TransactionID is set for refunds and voids only.
type ProfileTransactionDetail struct {
	Amount                   string `xml:"amount,omitempty"`
	CustomerProfileID        string `xml:"customerProfileId"`
	CustomerPaymentProfileID string `xml:"customerPaymentProfileId"`
	TransactionID            string `xml:"transId,omitempty"`
}

// SOAP request payloads, one per profile service method.

type createCustomerProfileSOAP struct {
	XMLName xml.Name                   `xml:"https://api.authorize.net/soap/v1/ CreateCustomerProfile"`
	Auth    merchantAuthenticationType `xml:"merchantAuthentication"`
	Profile CustomerProfile            `xml:"profile"`
}

type createCustomerPaymentProfileSOAP struct {
	XMLName           xml.Name                   `xml:"https://api.authorize.net/soap/v1/ CreateCustomerPaymentProfile"`
	Auth              merchantAuthenticationType `xml:"merchantAuthentication"`
	CustomerProfileID string                     `xml:"customerProfileId"`
	PaymentProfile    PaymentProfile             `xml:"paymentProfile"`
}

type updateCustomerPaymentProfileSOAP struct {
	XMLName           xml.Name                   `xml:"https://api.authorize.net/soap/v1/ UpdateCustomerPaymentProfile"`
	Auth              merchantAuthenticationType `xml:"merchantAuthentication"`
	CustomerProfileID string                     `xml:"customerProfileId"`
	PaymentProfile    paymentProfileEx           `xml:"paymentProfile"`
}

type deleteCustomerProfileSOAP struct {
	XMLName           xml.Name                   `xml:"https://api.authorize.net/soap/v1/ DeleteCustomerProfile"`
	Auth              merchantAuthenticationType `xml:"merchantAuthentication"`
	CustomerProfileID string                     `xml:"customerProfileId"`
}

type deleteCustomerPaymentProfileSOAP struct {
	XMLName                  xml.Name                   `xml:"https://api.authorize.net/soap/v1/ DeleteCustomerPaymentProfile"`
	Auth                     merchantAuthenticationType `xml:"merchantAuthentication"`
	CustomerProfileID        string                     `xml:"customerProfileId"`
	CustomerPaymentProfileID string                     `xml:"customerPaymentProfileId"`
}

type createProfileTransactionSOAP struct {
	XMLName      xml.Name                   `xml:"https://api.authorize.net/soap/v1/ CreateCustomerProfileTransaction"`
	Auth         merchantAuthenticationType `xml:"merchantAuthentication"`
	Transaction  ProfileTransaction         `xml:"transaction"`
	ExtraOptions string                     `xml:"extraOptions"`
}

// SOAP response envelopes. Every method returns the same result record under
// its own element pair; the messages and id containers each wrap one inner
// list, unwrapped exactly one level during flattening.

type messageType struct {
	Code string `xml:"code"`
	Text string `xml:"text"`
}

type messagesType struct {
	Messages []messageType `xml:"MessagesTypeMessage"`
}

type numericStringList struct {
	Values []string `xml:"numericString"`
}

type profileCallResult struct {
	ResultCode               string            `xml:"resultCode"`
	Messages                 messagesType      `xml:"messages"`
	CustomerProfileID        string            `xml:"customerProfileId"`
	CustomerPaymentProfileID string            `xml:"customerPaymentProfileId"`
	PaymentProfileIDList     numericStringList `xml:"customerPaymentProfileIdList"`
	DirectResponse           string            `xml:"directResponse"`
}

type createCustomerProfileEnvelope struct {
	Result profileCallResult `xml:"Body>CreateCustomerProfileResponse>CreateCustomerProfileResult"`
}

type createCustomerPaymentProfileEnvelope struct {
	Result profileCallResult `xml:"Body>CreateCustomerPaymentProfileResponse>CreateCustomerPaymentProfileResult"`
}

type updateCustomerPaymentProfileEnvelope struct {
	Result profileCallResult `xml:"Body>UpdateCustomerPaymentProfileResponse>UpdateCustomerPaymentProfileResult"`
}

type deleteCustomerProfileEnvelope struct {
	Result profileCallResult `xml:"Body>DeleteCustomerProfileResponse>DeleteCustomerProfileResult"`
}

type deleteCustomerPaymentProfileEnvelope struct {
	Result profileCallResult `xml:"Body>DeleteCustomerPaymentProfileResponse>DeleteCustomerPaymentProfileResult"`
}

type createProfileTransactionEnvelope struct {
	Result profileCallResult `xml:"Body>CreateCustomerProfileTransactionResponse>CreateCustomerProfileTransactionResult"`
}
