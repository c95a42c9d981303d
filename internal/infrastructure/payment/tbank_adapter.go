package payment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	tbankAPIBaseURL = "https://securepay.tinkoff.ru"

	tbankAddCardPath     = "/v2/AddCard"
	tbankRemoveCardPath  = "/v2/RemoveCard"
	tbankGetCardListPath = "/v2/GetCardList"
	tbankAddCustomerPath = "/v2/AddCustomer"
	tbankInitPath        = "/v2/Init"
	tbankCheckOrderPath  = "/v2/CheckOrder"
)

// TBankAdapter talks to the T-Bank acquiring API. Every request is
// signed with a token: the SHA-256 hex digest of all scalar parameter
// values concatenated in key order, with the terminal password mixed
// in as the Password parameter.
type TBankAdapter struct {
	config     *TBankConfig
	httpClient *http.Client
}

// NewTBankAdapter creates a new T-Bank adapter
func NewTBankAdapter(config *TBankConfig) (*TBankAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &TBankAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GenerateToken computes the request signature over scalar params.
// Nested objects and arrays are excluded from signing.
func GenerateToken(params map[string]any, password string) string {
	keys := make([]string, 0, len(params)+1)
	values := map[string]string{"Password": password}
	keys = append(keys, "Password")

	for key, value := range params {
		if key == "Token" || key == "Password" {
			continue
		}
		rendered, ok := renderScalar(value)
		if !ok {
			continue
		}
		values[key] = rendered
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var concatenated bytes.Buffer
	for _, key := range keys {
		concatenated.WriteString(values[key])
	}
	digest := sha256.Sum256(concatenated.Bytes())
	return hex.EncodeToString(digest[:])
}

func renderScalar(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case nil:
		return "", false
	default:
		return "", false
	}
}

// VerifyNotification checks the Token of a payment callback payload
func (a *TBankAdapter) VerifyNotification(params map[string]any) bool {
	received, ok := params["Token"].(string)
	if !ok || received == "" {
		return false
	}
	return GenerateToken(params, a.config.Password) == received
}

// AddCard starts binding a new card and returns the binding page URL
func (a *TBankAdapter) AddCard(ctx context.Context, customerKey string) (string, error) {
	params := map[string]any{
		"TerminalKey": a.config.TerminalKey,
		"CustomerKey": customerKey,
		"CheckType":   "NO",
	}

	var result tbankAddCardResponse
	if err := a.doRequest(ctx, tbankAddCardPath, params, &result); err != nil {
		return "", err
	}
	if result.PaymentURL == "" {
		return "", fmt.Errorf("tbank: add card failed: %s %s", result.ErrorCode, result.Message)
	}
	return result.PaymentURL, nil
}

// RemoveCard unbinds a card from the customer
func (a *TBankAdapter) RemoveCard(ctx context.Context, customerKey, cardID string) (*CardRemoval, error) {
	params := map[string]any{
		"TerminalKey": a.config.TerminalKey,
		"CustomerKey": customerKey,
		"CardID":      cardID,
		"CheckType":   "NO",
	}

	var result tbankRemoveCardResponse
	if err := a.doRequest(ctx, tbankRemoveCardPath, params, &result); err != nil {
		return nil, err
	}
	return &CardRemoval{Success: result.Success, Details: result.Details}, nil
}

// GetCardList returns the customer's active cards
func (a *TBankAdapter) GetCardList(ctx context.Context, customerKey string) ([]Card, error) {
	params := map[string]any{
		"TerminalKey": a.config.TerminalKey,
		"CustomerKey": customerKey,
	}

	var result []tbankCard
	if err := a.doRequest(ctx, tbankGetCardListPath, params, &result); err != nil {
		return nil, err
	}

	cards := make([]Card, 0, len(result))
	for _, card := range result {
		if card.Status != tbankCardStatusActive {
			continue
		}
		cards = append(cards, Card{
			CardID:  card.CardID,
			Pan:     card.Pan,
			ExpDate: card.ExpDate,
		})
	}
	return cards, nil
}

// AddCustomer registers the customer with the gateway
func (a *TBankAdapter) AddCustomer(ctx context.Context, customerKey string) (string, error) {
	params := map[string]any{
		"TerminalKey": a.config.TerminalKey,
		"CustomerKey": customerKey,
	}

	var result tbankAddCustomerResponse
	if err := a.doRequest(ctx, tbankAddCustomerPath, params, &result); err != nil {
		return "", err
	}
	if result.CustomerKey == "" {
		return "", fmt.Errorf("tbank: add customer failed: %s %s", result.ErrorCode, result.Message)
	}
	return result.CustomerKey, nil
}

// InitPayment starts a checkout and returns the payment page URL.
// Recurrent payments register a rebill so the gateway can charge the
// bound card later without the customer present.
func (a *TBankAdapter) InitPayment(ctx context.Context, req InitPaymentRequest) (string, error) {
	amount := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()
	params := map[string]any{
		"TerminalKey":     a.config.TerminalKey,
		"CustomerKey":     req.CustomerKey,
		"OrderId":         req.OrderID,
		"Amount":          amount,
		"NotificationURL": a.config.NotificationURL,
	}
	if req.Recurrent {
		params["Recurrent"] = "Y"
	}

	var result tbankInitResponse
	if err := a.doRequest(ctx, tbankInitPath, params, &result); err != nil {
		return "", err
	}
	if result.PaymentURL == "" {
		return "", fmt.Errorf("tbank: init payment failed: %s %s", result.ErrorCode, result.Message)
	}
	return result.PaymentURL, nil
}

// CheckOrder returns all payment attempts recorded for an order
func (a *TBankAdapter) CheckOrder(ctx context.Context, orderID string) (*OrderStatus, error) {
	params := map[string]any{
		"TerminalKey": a.config.TerminalKey,
		"OrderId":     orderID,
	}

	var result OrderStatus
	if err := a.doRequest(ctx, tbankCheckOrderPath, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doRequest signs the params, posts them as JSON and decodes the answer
func (a *TBankAdapter) doRequest(ctx context.Context, path string, params map[string]any, out any) error {
	params["Token"] = GenerateToken(params, a.config.Password)

	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("tbank: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("tbank: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tbank: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("tbank: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tbank: %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tbank: parse response: %w", err)
	}
	return nil
}
