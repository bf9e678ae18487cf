package httpclient

import (
	"net/http"
	"time"

	"WhereIsThisPlace/pkg/circuitbreaker"
)

// Client is a thin wrapper around http.Client that adds an explicit per-call
// timeout and optional circuit breaking, for calls to external inference and
// lookup services.
type Client struct {
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

// New creates a Client with the given timeout. breaker may be nil, in which
// case requests go straight through.
func New(timeout time.Duration, breaker *circuitbreaker.CircuitBreaker) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

// Do executes an HTTP request with circuit breaker protection. Transport
// errors count as failures; HTTP status handling is left to the caller, since
// a well-formed error response from the upstream is not a sign of an outage.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	err := c.breaker.Execute(func() error {
		var callErr error
		resp, callErr = c.httpClient.Do(req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
