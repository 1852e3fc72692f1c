package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleJobPayload(t *testing.T) {
	amount := 12.5
	data := SettleJob("t1", "g1", &amount)

	assert.Equal(t, "t1", data[JobFieldTransactionID])
	assert.Equal(t, "g1", data[JobFieldGatewayID])
	assert.Equal(t, 12.5, data[JobFieldAmount])

	data = SettleJob("t1", "g1", nil)
	_, hasAmount := data[JobFieldAmount]
	assert.False(t, hasAmount)
}

func TestVoidJobPayload(t *testing.T) {
	data := VoidJob("t1", "g1")

	assert.Equal(t, "t1", data[JobFieldTransactionID])
	assert.Equal(t, "g1", data[JobFieldGatewayID])
}

func TestJobString(t *testing.T) {
	data := map[string]interface{}{"transaction_id": "t1", "retry": 3}

	s, ok := JobString(data, "transaction_id")
	assert.True(t, ok)
	assert.Equal(t, "t1", s)

	_, ok = JobString(data, "missing")
	assert.False(t, ok)

	_, ok = JobString(data, "retry")
	assert.False(t, ok)
}

func TestJobAmountSurvivesJSONRoundTrip(t *testing.T) {
	// Queue payloads are stored as JSON, so numbers come back as float64.
	raw, err := json.Marshal(SettleJob("t1", "g1", ptr(12.5)))
	require.NoError(t, err)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &data))

	amount := JobAmount(data)
	require.NotNil(t, amount)
	assert.Equal(t, 12.5, *amount)
}

func TestJobAmountMissingOrMistyped(t *testing.T) {
	assert.Nil(t, JobAmount(map[string]interface{}{}))
	assert.Nil(t, JobAmount(map[string]interface{}{JobFieldAmount: "12.5"}))
}

func ptr(f float64) *float64 { return &f }
