// Package gateway holds the HTTP clients for the order and reservation
// services.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/set-night/invoicing/internal/domain"
)

const (
	HeaderRequestID = "X-Request-Id"

	// maxErrorBody caps how much of an upstream error body ends up in logs.
	maxErrorBody = 512
)

type client struct {
	service    string
	baseURL    string
	httpClient *http.Client
}

func newClient(service, baseURL string, timeout time.Duration) *client {
	return &client{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// do sends one request and decodes a JSON body into out when out is not nil.
// A 404 wraps domain.ErrUpstreamNotFound; transport failures and every other
// non-2xx status wrap domain.ErrUpstreamUnavailable.
func (c *client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w: %w", c.service, method, path, domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s %s: %w", c.service, method, path, domain.ErrUpstreamNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s %s %s: status %d: %s: %w",
			c.service, method, path, resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrUpstreamUnavailable)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s %s: decode response: %w: %w", c.service, method, path, domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// requestID propagates the inbound request id, or mints one for calls made
// outside a request.
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
