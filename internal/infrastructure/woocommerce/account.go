package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// passwordChangedMessage is the exact confirmation the plugin returns
const passwordChangedMessage = "User Password has been changed."

// RegisterUser creates a store account and returns the issued JWT
func (c *Client) RegisterUser(ctx context.Context, email, password string) (string, error) {
	params := url.Values{}
	params.Set("email", email)
	params.Set("password", password)
	params.Set("AUTH_KEY", c.config.AuthKey)

	body, _, err := c.doRequest(ctx, http.MethodPost, "/", restRoute(jwtRegisterRoute, params))
	if err != nil {
		return "", err
	}

	var result struct {
		JWT string `json:"jwt"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("woocommerce: parse registration response: %w", err)
	}
	if result.JWT == "" {
		return "", fmt.Errorf("woocommerce: registration returned no token")
	}
	return result.JWT, nil
}

// LoginUser authenticates a store account and returns a JWT
func (c *Client) LoginUser(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	opts := restRoute(jwtAuthRoute, nil)
	opts.form = form

	body, _, err := c.doRequest(ctx, http.MethodPost, "/", opts)
	if err != nil {
		return "", err
	}

	var result struct {
		Data struct {
			JWT string `json:"jwt"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("woocommerce: parse login response: %w", err)
	}
	if result.Data.JWT == "" {
		return "", fmt.Errorf("woocommerce: login returned no token")
	}
	return result.Data.JWT, nil
}

// RefreshToken exchanges a valid JWT for a fresh one
func (c *Client) RefreshToken(ctx context.Context, jwtToken string) (string, error) {
	opts := restRoute(jwtRefreshRoute, nil)
	opts.headers = map[string]string{"Authorization": bearerAuth(jwtToken)}

	body, _, err := c.doRequest(ctx, http.MethodPost, "/", opts)
	if err != nil {
		return "", err
	}

	var result struct {
		Data struct {
			JWT string `json:"jwt"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("woocommerce: parse refresh response: %w", err)
	}
	if result.Data.JWT == "" {
		return "", fmt.Errorf("woocommerce: refresh returned no token")
	}
	return result.Data.JWT, nil
}

// ResetPassword changes the account password, confirming against the
// plugin's exact success message.
func (c *Client) ResetPassword(ctx context.Context, jwtToken, email, newPassword string) (bool, error) {
	params := url.Values{}
	params.Set("email", email)
	params.Set("new_password", newPassword)
	params.Set("AUTH_KEY", c.config.AuthKey)

	opts := restRoute(jwtResetPasswordRoute, params)
	opts.headers = map[string]string{"Authorization": bearerAuth(jwtToken)}

	body, _, err := c.doRequest(ctx, http.MethodGet, "/", opts)
	if err != nil {
		return false, err
	}

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("woocommerce: parse reset response: %w", err)
	}
	return result.Success && result.Message == passwordChangedMessage, nil
}

// GetUserData fetches the customer profile projection
func (c *Client) GetUserData(ctx context.Context, userID int64) (*UserProfile, error) {
	var raw struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Billing   struct {
			Address1 string `json:"address_1"`
		} `json:"billing"`
	}
	path := fmt.Sprintf(customersPath, userID)
	if err := c.getJSON(ctx, path, requestOptions{basicAuth: true}, &raw); err != nil {
		return nil, err
	}

	return &UserProfile{
		Email:     raw.Email,
		FirstName: decodeURL(raw.FirstName),
		LastName:  decodeURL(raw.LastName),
		Address:   decodeURL(raw.Billing.Address1),
	}, nil
}

// GetUserMembership fetches the customer's membership, empty when the
// customer has none.
func (c *Client) GetUserMembership(ctx context.Context, userID int64) (*Membership, error) {
	query := url.Values{}
	query.Set("customer", strconv.FormatInt(userID, 10))

	var raw []struct {
		PlanName   string `json:"plan_name"`
		Status     string `json:"status"`
		EndDateGMT string `json:"end_date_gmt"`
	}
	if err := c.getJSON(ctx, membershipsPath, requestOptions{basicAuth: true, query: query}, &raw); err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return &Membership{}, nil
	}
	return &Membership{
		PlanName: decodeURL(raw[0].PlanName),
		Status:   raw[0].Status,
		EndDate:  raw[0].EndDateGMT,
	}, nil
}

// GetUserMembershipQR fetches a short-lived membership QR pass
func (c *Client) GetUserMembershipQR(ctx context.Context, jwtToken string) (*MembershipQR, error) {
	var raw struct {
		QRCode    string `json:"qr_code"`
		Timestamp int64  `json:"timestamp"`
		Lifetime  int64  `json:"lifetime"`
	}
	opts := requestOptions{headers: map[string]string{"Authorization": bearerAuth(jwtToken)}}
	if err := c.getJSON(ctx, membershipQRPath, opts, &raw); err != nil {
		return nil, err
	}

	return &MembershipQR{
		QRCode:    raw.QRCode,
		Timestamp: raw.Timestamp,
		Lifetime:  raw.Lifetime,
	}, nil
}
