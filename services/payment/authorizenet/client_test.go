package authorizenet

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbor-payment-api/models"
)

// fakeTransport satisfies Doer, recording the outgoing request and replaying
// a canned reply.
type fakeTransport struct {
	status int
	body   string
	err    error

	gotURL    string
	gotHeader http.Header
	gotBody   string
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	f.gotURL = req.URL.String()
	f.gotHeader = req.Header.Clone()
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		f.gotBody = string(data)
	}

	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func testConfig(ft *fakeTransport) Config {
	return Config{
		LoginID:        "123",
		TransactionKey: "456",
		TestRequests:   true,
		HTTPClient:     ft,
	}
}

func testCard() models.CreditCard {
	return models.CreditCard{
		Number:    "4111111111111111",
		ExpMonth:  1,
		ExpYear:   2034,
		CVV:       "911",
		FirstName: "Jeff",
		LastName:  "Schenck",
	}
}

func testAddress() *models.Address {
	return &models.Address{
		Street:  "45 Rose Ave",
		City:    "Venice",
		State:   "CA",
		Zip:     "90291",
		Country: "US",
	}
}

func parseForm(t *testing.T, body string) url.Values {
	t.Helper()
	form, err := url.ParseQuery(body)
	require.NoError(t, err)
	return form
}

func TestConfigEndpoints(t *testing.T) {
	t.Run("defaults to test hosts", func(t *testing.T) {
		cfg := Config{}
		assert.Equal(t, AIMTestEndpoint, cfg.transactionEndpoint())
		assert.Equal(t, CIMTestEndpoint, cfg.profileEndpoint())
	})

	t.Run("production environment", func(t *testing.T) {
		cfg := Config{Environment: "production"}
		assert.Equal(t, AIMProductionEndpoint, cfg.transactionEndpoint())
		assert.Equal(t, CIMProductionEndpoint, cfg.profileEndpoint())
	})

	t.Run("explicit overrides win", func(t *testing.T) {
		cfg := Config{
			Environment:         "production",
			TransactionEndpoint: "https://localhost:8443/transact",
			ProfileEndpoint:     "https://localhost:8443/profile",
		}
		assert.Equal(t, "https://localhost:8443/transact", cfg.transactionEndpoint())
		assert.Equal(t, "https://localhost:8443/profile", cfg.profileEndpoint())
	})
}

func TestConfigHTTPClientDefault(t *testing.T) {
	client, ok := Config{}.httpClient().(*http.Client)
	require.True(t, ok)
	assert.Equal(t, RequestTimeout, client.Timeout)
}
