package payment

import "github.com/shopspring/decimal"

// tbankCardStatusActive marks a card usable for payments
const tbankCardStatusActive = "A"

// tbankErrorResponse is the common failure shape of the API
type tbankErrorResponse struct {
	Success   bool   `json:"Success"`
	ErrorCode string `json:"ErrorCode"`
	Message   string `json:"Message"`
	Details   string `json:"Details"`
}

// tbankAddCardResponse is the answer to AddCard
type tbankAddCardResponse struct {
	tbankErrorResponse
	PaymentURL string `json:"PaymentURL"`
	RequestKey string `json:"RequestKey"`
}

// tbankRemoveCardResponse is the answer to RemoveCard
type tbankRemoveCardResponse struct {
	Success bool   `json:"Success"`
	Details string `json:"Details"`
	Message string `json:"Message"`
}

// tbankCard is one entry of the GetCardList answer
type tbankCard struct {
	CardID   string `json:"CardId"`
	Pan      string `json:"Pan"`
	ExpDate  string `json:"ExpDate"`
	Status   string `json:"Status"`
	RebillID string `json:"RebillId"`
}

// tbankAddCustomerResponse is the answer to AddCustomer
type tbankAddCustomerResponse struct {
	tbankErrorResponse
	CustomerKey string `json:"CustomerKey"`
}

// tbankInitResponse is the answer to Init
type tbankInitResponse struct {
	tbankErrorResponse
	PaymentURL string `json:"PaymentURL"`
	PaymentID  string `json:"PaymentId"`
	Status     string `json:"Status"`
}

// Card is a bound card shown to the customer
type Card struct {
	CardID  string `json:"CardId"`
	Pan     string `json:"Pan"`
	ExpDate string `json:"ExpDate"`
}

// CardRemoval reports the result of unbinding a card
type CardRemoval struct {
	Success bool   `json:"success"`
	Details string `json:"details"`
}

// InitPaymentRequest starts a checkout session.
// Amount is in rubles; the gateway is paid in kopecks.
type InitPaymentRequest struct {
	CustomerKey string
	OrderID     string
	Amount      decimal.Decimal
	Recurrent   bool
}

// PaymentState is one payment attempt attached to an order
type PaymentState struct {
	PaymentID string `json:"PaymentId"`
	Status    string `json:"Status"`
	RebillID  string `json:"RebillId"`
	Amount    int64  `json:"Amount"`
}

// OrderStatus is the answer to CheckOrder
type OrderStatus struct {
	Success  bool           `json:"Success"`
	OrderID  string         `json:"OrderId"`
	Payments []PaymentState `json:"Payments"`
}
