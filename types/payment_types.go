package types

// Field keys for queue job payloads. Payloads round-trip through JSON, so
// readers must tolerate the types encoding/json produces (float64 numbers).
const (
	JobFieldTransactionID = "transaction_id"
	JobFieldGatewayID     = "gateway_transaction_id"
	JobFieldAmount        = "amount"
)

// SettleJob builds the payload for a settle_transaction job. A nil amount
// settles the full authorized amount.
func SettleJob(transactionID, gatewayID string, amount *float64) map[string]interface{} {
	data := map[string]interface{}{
		JobFieldTransactionID: transactionID,
		JobFieldGatewayID:     gatewayID,
	}
	if amount != nil {
		data[JobFieldAmount] = *amount
	}
	return data
}

// VoidJob builds the payload for a void_transaction job.
func VoidJob(transactionID, gatewayID string) map[string]interface{} {
	return map[string]interface{}{
		JobFieldTransactionID: transactionID,
		JobFieldGatewayID:     gatewayID,
	}
}

// JobString reads a string field from a job payload.
func JobString(data map[string]interface{}, key string) (string, bool) {
	v, ok := data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// JobAmount reads the optional amount field from a job payload.
func JobAmount(data map[string]interface{}) *float64 {
	v, ok := data[JobFieldAmount]
	if !ok {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}
