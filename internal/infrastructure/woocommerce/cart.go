package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// cartTokenHeader carries the anonymous cart session between calls
const cartTokenHeader = "Cart-Token"

// GetUserCart fetches the cart of the authenticated user and the cart
// token the store issued for follow-up mutations.
func (c *Client) GetUserCart(ctx context.Context, jwtToken string) (*Cart, string, error) {
	body, _, err := c.doRequestWithHeaders(ctx, http.MethodGet, storeCartPath, requestOptions{
		headers: map[string]string{"Authorization": bearerAuth(jwtToken)},
	})
	if err != nil {
		return nil, "", err
	}

	var raw rawCart
	if err := json.Unmarshal(body.payload, &raw); err != nil {
		return nil, "", fmt.Errorf("woocommerce: parse cart: %w", err)
	}
	return raw.project(), body.header.Get(cartTokenHeader), nil
}

// AddItemToCart puts a product into the cart identified by cartToken
func (c *Client) AddItemToCart(ctx context.Context, cartToken string, productID int64, quantity int) (*CartMutationResult, error) {
	return c.mutateCart(ctx, storeCartAddPath, cartToken, nil, map[string]any{
		"id":       productID,
		"quantity": quantity,
	})
}

// UpdateItemInCart changes the quantity of a cart line
func (c *Client) UpdateItemInCart(ctx context.Context, cartToken, itemKey string, quantity int) (*CartMutationResult, error) {
	query := url.Values{}
	query.Set("key", itemKey)
	query.Set("quantity", strconv.Itoa(quantity))
	return c.mutateCart(ctx, storeCartUpdatePath, cartToken, query, nil)
}

// RemoveItemFromCart deletes a cart line
func (c *Client) RemoveItemFromCart(ctx context.Context, cartToken, itemKey string) (*CartMutationResult, error) {
	query := url.Values{}
	query.Set("key", itemKey)
	return c.mutateCart(ctx, storeCartRemovePath, cartToken, query, nil)
}

// mutateCart posts a cart change and reports the upstream status.
// Upstream errors with a status code are folded into the result so
// callers can retry or treat 409 as already-applied.
func (c *Client) mutateCart(ctx context.Context, path, cartToken string, query url.Values, body any) (*CartMutationResult, error) {
	payload, status, err := c.doRequest(ctx, http.MethodPost, path, requestOptions{
		headers: map[string]string{cartTokenHeader: cartToken},
		query:   query,
		body:    body,
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return &CartMutationResult{Status: status}, nil
		}
		return nil, err
	}

	result := &CartMutationResult{Status: status}
	var raw rawCart
	if jsonErr := json.Unmarshal(payload, &raw); jsonErr == nil {
		result.Cart = raw.project()
	}
	return result, nil
}

// responseWithHeaders pairs a response body with its headers
type responseWithHeaders struct {
	payload []byte
	header  http.Header
}

func (c *Client) doRequestWithHeaders(ctx context.Context, method, path string, opts requestOptions) (*responseWithHeaders, int, error) {
	endpoint := c.config.BaseURL + path
	if len(opts.query) > 0 {
		endpoint += "?" + opts.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("woocommerce: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range opts.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("woocommerce: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := readBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &StatusError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   truncate(string(payload), 512),
		}
	}
	return &responseWithHeaders{payload: payload, header: resp.Header}, resp.StatusCode, nil
}
