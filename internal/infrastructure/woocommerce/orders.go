package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Shipping methods the store offers at checkout
const (
	ShippingFreeDelivery = "free_delivery"
	ShippingLocalPickup  = "local_pickup"
)

var shippingTitles = map[string]string{
	ShippingFreeDelivery: "Бесплатная доставка",
	ShippingLocalPickup:  "Самовывоз",
}

// CreateOrder opens a pending order for the customer from their cart
// lines. The gateway settles it through a status update later.
func (c *Client) CreateOrder(ctx context.Context, userID int64, items []CartItem, shippingMethod string) (*Order, error) {
	lines := make([]map[string]any, 0, len(items))
	for _, item := range items {
		lines = append(lines, map[string]any{
			"product_id": item.ID,
			"quantity":   item.Quantity,
		})
	}

	payload := map[string]any{
		"customer_id": userID,
		"status":      "pending",
		"line_items":  lines,
	}
	if title, ok := shippingTitles[shippingMethod]; ok {
		payload["shipping_lines"] = []map[string]any{{
			"method_id":    shippingMethod,
			"method_title": title,
		}}
	}

	body, _, err := c.doRequest(ctx, http.MethodPost, ordersPath, requestOptions{
		basicAuth: true,
		body:      payload,
	})
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("woocommerce: parse created order: %w", err)
	}
	return &order, nil
}

// GetUserOrders fetches one page of a customer's orders, optionally
// filtered by status.
func (c *Client) GetUserOrders(ctx context.Context, userID int64, status string, page, perPage int) ([]Order, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = productsPerPage
	}
	query := url.Values{}
	query.Set("customer", strconv.FormatInt(userID, 10))
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	if status != "" {
		query.Set("status", status)
	}

	var orders []Order
	if err := c.getJSON(ctx, ordersPath, requestOptions{basicAuth: true, query: query}, &orders); err != nil {
		return nil, err
	}
	for i := range orders {
		for j := range orders[i].LineItems {
			orders[i].LineItems[j].Name = decodeURL(orders[i].LineItems[j].Name)
		}
	}
	return orders, nil
}

// GetOrder fetches a single order by id
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var order Order
	path := fmt.Sprintf(orderPath, orderID)
	if err := c.getJSON(ctx, path, requestOptions{basicAuth: true}, &order); err != nil {
		return nil, err
	}
	for i := range order.LineItems {
		order.LineItems[i].Name = decodeURL(order.LineItems[i].Name)
	}
	return &order, nil
}

// UpdateOrderStatus transitions an order to the given status
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	path := fmt.Sprintf(orderPath, orderID)
	_, _, err := c.doRequest(ctx, http.MethodPut, path, requestOptions{
		basicAuth: true,
		body:      map[string]string{"status": status},
	})
	return err
}
