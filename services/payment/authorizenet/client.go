package authorizenet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway endpoints. The transaction pair serves the form-encoded transaction
// protocol (AIM), the profile pair the SOAP profile service (CIM). Which pair
// member is used comes from Config.
const (
	AIMProductionEndpoint = "https://secure.authorize.net/gateway/transact.dll"
	AIMTestEndpoint       = "https://test.authorize.net/gateway/transact.dll"

	CIMProductionEndpoint = "https://api.authorize.net/soap/v1/Service.asmx"
	CIMTestEndpoint       = "https://apitest.authorize.net/soap/v1/Service.asmx"

	// DuplicateWindow is the x_duplicate_window value sent with CREDIT
	// calls, in seconds.
	DuplicateWindow = 120

	RequestTimeout = 30 * time.Second
)

// Doer executes a single HTTP request. *http.Client satisfies it; tests
// substitute fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config carries everything a gateway client needs at construction time.
type Config struct {
	LoginID        string
	TransactionKey string

	// Environment selects the default endpoints: "production", or anything
	// else for the gateway's test hosts.
	Environment string

	// TransactionEndpoint and ProfileEndpoint override the environment
	// defaults when set.
	TransactionEndpoint string
	ProfileEndpoint     string

	// TestRequests sets x_test_request on every call so the gateway
	// simulates processing without moving money.
	TestRequests bool

	// HTTPClient overrides the default tuned client.
	HTTPClient Doer
}

func (c Config) transactionEndpoint() string {
	if c.TransactionEndpoint != "" {
		return c.TransactionEndpoint
	}
	if c.Environment == "production" {
		return AIMProductionEndpoint
	}
	return AIMTestEndpoint
}

func (c Config) profileEndpoint() string {
	if c.ProfileEndpoint != "" {
		return c.ProfileEndpoint
	}
	if c.Environment == "production" {
		return CIMProductionEndpoint
	}
	return CIMTestEndpoint
}

func (c Config) httpClient() Doer {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   RequestTimeout,
		Transport: transport,
	}
}

// requestContext bounds a single gateway call.
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), RequestTimeout)
}

// checkStatus classifies a non-2xx reply as a Response error carrying the
// gateway's status.
func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{
			Kind:    ErrorKindResponse,
			Message: fmt.Sprintf("Received HTTP status code %d when calling %s", resp.StatusCode, url),
		}
	}
	return nil
}

// readBody drains the reply and strips the UTF-8 BOM the gateway prepends to
// some responses.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newConnectionError(err)
	}
	return bytes.TrimPrefix(body, []byte("\uFEFF")), nil
}
