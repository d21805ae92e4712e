// internal/common/http/client.go
package http

import (
	"context"
	"net"
	"net/http"
	"time"
)

const DefaultUserAgent = "clinical-decision-pipeline/1.0"

// Client is a pooled HTTP doer shared by outbound API clients. It satisfies
// the HTTPDoer interface of the OpenAI client.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient builds a client with a tuned transport. A zero timeout leaves
// deadlines to the request context.
func NewClient(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: DefaultUserAgent,
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}
