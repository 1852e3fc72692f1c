package authorizenet

import "strings"

// Positions of the canonical fields in the delimited transaction response.
// The protocol defines roughly sixty positions; only these nine are surfaced.
const (
	posResponseCode       = 0
	posResponseReasonCode = 2
	posResponseReasonText = 3
	posAuthorizationCode  = 4
	posAVSResponse        = 5
	posTransactionID      = 6
	posAmount             = 9
	posTransactionType    = 11
	posCVVResponse        = 38
)

// Response codes with dedicated handling.
const (
	ResponseCodeApproved = "1"
	ResponseCodeDeclined = "2"
	ResponseCodeError    = "3"
	ResponseCodeHeld     = "4"
)

// TransactionResult is the canonical outcome of a transaction call, shared by
// both protocols. Amount keeps the gateway's two-decimal string form.
type TransactionResult struct {
	ResponseCode       string `json:"response_code"`
	ResponseReasonCode string `json:"response_reason_code"`
	ResponseReasonText string `json:"response_reason_text"`
	AuthorizationCode  string `json:"authorization_code"`
	AVSResponse        string `json:"avs_response"`
	CVVResponse        string `json:"cvv_response"`
	TransactionID      string `json:"transaction_id"`
	Amount             string `json:"amount"`
	TransactionType    string `json:"transaction_type"`
}

// Approved reports whether the gateway accepted the transaction. Code 4
// (approved but held for review) counts as accepted.
func (r *TransactionResult) Approved() bool {
	return r.ResponseCode == ResponseCodeApproved || r.ResponseCode == ResponseCodeHeld
}

// Held reports whether the transaction was approved but held for review.
func (r *TransactionResult) Held() bool {
	return r.ResponseCode == ResponseCodeHeld
}

// ProfileResult is the canonical outcome of a profile call. PaymentProfileIDs
// is nil when the gateway returned none. Transaction carries the parsed
// embedded transaction outcome when the call triggered one.
type ProfileResult struct {
	CustomerProfileID string             `json:"customer_profile_id,omitempty"`
	PaymentProfileIDs []string           `json:"payment_profile_ids,omitempty"`
	Transaction       *TransactionResult `json:"transaction,omitempty"`
}

// ParseTransactionResponse decodes one ;-delimited response line by field
// position. Lines shorter than the full schema are legal; missing positions
// read as empty strings.
func ParseTransactionResponse(line string) *TransactionResult {
	fields := strings.Split(line, ";")
	at := func(i int) string {
		if i >= len(fields) {
			return ""
		}
		return fields[i]
	}
	return &TransactionResult{
		ResponseCode:       at(posResponseCode),
		ResponseReasonCode: at(posResponseReasonCode),
		ResponseReasonText: at(posResponseReasonText),
		AuthorizationCode:  at(posAuthorizationCode),
		AVSResponse:        at(posAVSResponse),
		CVVResponse:        at(posCVVResponse),
		TransactionID:      at(posTransactionID),
		Amount:             at(posAmount),
		TransactionType:    at(posTransactionType),
	}
}
