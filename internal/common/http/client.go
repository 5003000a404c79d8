package http

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewBearerClient returns a client that sends token as an Authorization
// bearer header on every request. An empty token yields a plain client.
func NewBearerClient(token string, timeout time.Duration) *Client {
	if token == "" {
		return NewClient(timeout)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.Background(), src)
	hc.Timeout = timeout
	return &Client{httpClient: hc}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// HTTPClient exposes the underlying client for SDKs that take an *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
