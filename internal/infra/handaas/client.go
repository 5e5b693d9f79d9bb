// Package handaas is the HTTP adapter for the integrator big-data gateway.
// One call is one signed, form-encoded POST to
//
//	<base>/api/v1/integrator/call_api/<integratorID>
//
// and every outcome, including transport failures, is returned as a Result value.
package handaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/handaas/patent-bigdata-mcp/internal/infra/config"
	"github.com/handaas/patent-bigdata-mcp/pkg/sign"
)

// Form field names expected by the gateway.
const (
	FieldProductID = "product_id"
	FieldSecretID  = "secret_id"
	FieldParams    = "params"
	FieldSignature = "signature"
)

const (
	callAPIPath       = "/api/v1/integrator/call_api/"
	mimeForm          = "application/x-www-form-urlencoded"
	headerContentType = "Content-Type"
)

// Client calls the gateway with a fixed set of credentials.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	creds      config.Credentials
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the gateway origin, e.g. for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger used for diagnostic output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client with a 30s default timeout.
func NewClient(creds config.Credentials, opts ...Option) *Client {
	c := &Client{
		creds:      creds,
		baseURL:    config.DefaultBaseURL,
		httpClient: &http.Client{Timeout: config.DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string {
	return c.baseURL + callAPIPath + url.PathEscape(c.creds.IntegratorID)
}

// Call signs params for productID, posts them, and normalizes the response.
// Missing credentials are reported before any network activity.
func (c *Client) Call(ctx context.Context, productID string, params map[string]any) Result {
	if res, ok := c.checkPreconditions(productID); !ok {
		return res
	}

	form, err := c.BuildForm(productID, params)
	if err != nil {
		c.logger.WarnContext(ctx, "handaas: build request failed", "product_id", productID, "error", err)
		return failed(err)
	}

	body, err := c.doPost(ctx, form)
	if err != nil {
		c.logger.WarnContext(ctx, "handaas: call failed", "product_id", productID, "error", err)
		return failed(err)
	}

	res, err := normalize(body)
	if err != nil {
		c.logger.WarnContext(ctx, "handaas: decode response failed", "product_id", productID, "error", err)
		return failed(err)
	}
	c.logger.DebugContext(ctx, "handaas: call completed", "product_id", productID, "kind", res.Kind)
	return res
}

// checkPreconditions validates credentials and product id in a fixed order.
func (c *Client) checkPreconditions(productID string) (Result, bool) {
	switch {
	case c.creds.IntegratorID == "":
		return configError(msgMissingIntegratorID, ErrMissingIntegratorID), false
	case c.creds.SecretID == "":
		return configError(msgMissingSecretID, ErrMissingSecretID), false
	case c.creds.SecretKey == "":
		return configError(msgMissingSecretKey, ErrMissingSecretKey), false
	case productID == "":
		return configError(msgMissingProductID, ErrMissingProductID), false
	}
	return Result{}, true
}

// BuildForm assembles the signed field set for one call.
// The signature covers product_id, secret_id and params plus the secret key.
func (c *Client) BuildForm(productID string, params map[string]any) (url.Values, error) {
	if params == nil {
		params = map[string]any{}
	}
	encoded, err := sign.CompactJSON(params)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		FieldProductID: productID,
		FieldSecretID:  c.creds.SecretID,
		FieldParams:    encoded,
	}
	signature := sign.Sign(fields, c.creds.SecretKey)

	form := make(url.Values, len(fields)+1)
	for k, v := range fields {
		form.Set(k, v)
	}
	form.Set(FieldSignature, signature)
	return form, nil
}

// doPost sends the form and returns the full response body.
// The status code is not inspected: the gateway reports errors in the body.
func (c *Client) doPost(ctx context.Context, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(headerContentType, mimeForm)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body (status %d): %w", resp.StatusCode, err)
	}
	return body, nil
}

// normalize prefers a non-null data field, then msgCN, then null.
// A body that is not a JSON object is a decode failure.
func normalize(body []byte) (Result, error) {
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if resp == nil {
		return Result{}, fmt.Errorf("decode response: body is not a JSON object")
	}
	if data := resp["data"]; present(data) {
		return Result{Kind: KindData, Value: data}, nil
	}
	if msg := resp["msgCN"]; present(msg) {
		return Result{Kind: KindMessage, Value: msg}, nil
	}
	return Result{Kind: KindEmpty, Value: nullValue}, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
