// Package woocommerce is the HTTP client for the upstream WooCommerce
// store. It talks to three API surfaces: the public Store API for
// products and carts, the authenticated v3 API for customers and
// orders, and the Simple JWT Login plugin for account operations.
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	storeProductsPath   = "/wp-json/wc/store/v1/products"
	storeCartPath       = "/wp-json/wc/store/v1/cart"
	storeCartAddPath    = "/wp-json/wc/store/v1/cart/add-item"
	storeCartUpdatePath = "/wp-json/wc/store/v1/cart/update-item"
	storeCartRemovePath = "/wp-json/wc/store/v1/cart/remove-item"
	categoriesPath      = "/wp-json/wc/v3/products/categories"
	customersPath       = "/wp-json/wc/v3/customers/%d"
	membershipsPath     = "/wp-json/wc/v3/memberships/members"
	ordersPath          = "/wp-json/wc/v3/orders"
	orderPath           = "/wp-json/wc/v3/orders/%d"
	membershipQRPath    = "/wp-json/mqrv/v1/qr-code"

	jwtRegisterRoute      = "/simple-jwt-login/v1/users"
	jwtAuthRoute          = "/simple-jwt-login/v1/auth"
	jwtRefreshRoute       = "/simple-jwt-login/v1/token/refresh"
	jwtResetPasswordRoute = "/simple-jwt-login/v1/user/reset_password"

	productsPerPage = 100
)

// Client is the WooCommerce API client
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a WooCommerce client
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}, nil
}

// StatusError reports a non-2xx answer from the store
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("woocommerce: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// request options

type requestOptions struct {
	basicAuth bool
	headers   map[string]string
	query     url.Values
	body      any
	form      url.Values
}

// doRequest performs an HTTP call and returns the body and status code.
// A non-2xx status is returned as a *StatusError alongside the code so
// callers that tolerate specific statuses can inspect it.
func (c *Client) doRequest(ctx context.Context, method, path string, opts requestOptions) ([]byte, int, error) {
	endpoint := c.config.BaseURL + path
	if len(opts.query) > 0 {
		endpoint += "?" + opts.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case opts.form != nil:
		body = bytes.NewBufferString(opts.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case opts.body != nil:
		payload, err := json.Marshal(opts.body)
		if err != nil {
			return nil, 0, fmt.Errorf("woocommerce: marshal request: %w", err)
		}
		body = bytes.NewBuffer(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("woocommerce: create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if opts.basicAuth {
		req.SetBasicAuth(c.config.ConsumerKey, c.config.ConsumerSecret)
	}
	for key, value := range opts.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("woocommerce: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("woocommerce: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return respBody, resp.StatusCode, &StatusError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   truncate(string(respBody), 512),
		}
	}
	return respBody, resp.StatusCode, nil
}

// getJSON performs a GET and decodes the answer into out
func (c *Client) getJSON(ctx context.Context, path string, opts requestOptions, out any) error {
	body, _, err := c.doRequest(ctx, http.MethodGet, path, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("woocommerce: parse response: %w", err)
	}
	return nil
}

// bearerAuth formats a JWT as an Authorization header value. The store
// identifies the user off the Bearer scheme, so a bare token must be
// re-wrapped before it is replayed upstream.
func bearerAuth(jwtToken string) string {
	if strings.HasPrefix(jwtToken, "Bearer ") {
		return jwtToken
	}
	return "Bearer " + jwtToken
}

// restRoute builds a plugin URL of the form /?rest_route=<route>.
// The Simple JWT Login plugin is only reachable this way on stores
// without pretty permalinks.
func restRoute(route string, params url.Values) requestOptions {
	query := url.Values{}
	query.Set("rest_route", route)
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	return requestOptions{query: query}
}

func readBody(resp *http.Response) ([]byte, error) {
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: read response: %w", err)
	}
	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
