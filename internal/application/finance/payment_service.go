package finance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/domain/shared"
	"github.com/eatcost/storefront/internal/infrastructure/payment"
	"github.com/eatcost/storefront/internal/infrastructure/woocommerce"
)

// Gateway payment statuses reported through callbacks
const (
	CallbackStatusConfirmed = "CONFIRMED"
	CallbackStatusRefunded  = "REFUNDED"
)

// membershipOrderPrefix marks gateway orders that have no store order.
// The user id is embedded so rebill callbacks can be routed.
const membershipOrderPrefix = "membership-"

// Delivery choices a checkout accepts
const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "pickup"
)

// shippingByDeliveryType maps the checkout delivery choice to the
// store's shipping method slug.
var shippingByDeliveryType = map[string]string{
	DeliveryTypeDelivery: woocommerce.ShippingFreeDelivery,
	DeliveryTypePickup:   woocommerce.ShippingLocalPickup,
}

// orderStatusByCallback maps gateway callback statuses to store order
// statuses. Callbacks outside this map are acknowledged and ignored.
var orderStatusByCallback = map[string]string{
	CallbackStatusConfirmed: "completed",
	CallbackStatusRefunded:  "refunded",
}

// PaymentGateway is the checkout surface of the acquiring gateway
type PaymentGateway interface {
	InitPayment(ctx context.Context, req payment.InitPaymentRequest) (string, error)
	CheckOrder(ctx context.Context, orderID string) (*payment.OrderStatus, error)
}

// CartReader supplies the cart a checkout is priced from
type CartReader interface {
	GetCart(ctx context.Context, userID int64, jwtToken string) (*woocommerce.Cart, error)
}

// StoreOrderWriter opens store orders at checkout and settles them
// when the payment callback arrives.
type StoreOrderWriter interface {
	CreateOrder(ctx context.Context, userID int64, items []woocommerce.CartItem, shippingMethod string) (*woocommerce.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*woocommerce.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
}

// RebillNotifier forwards recurring-payment tokens downstream
type RebillNotifier interface {
	NotifyRebill(ctx context.Context, userID int64, rebillID string) error
}

// Checkout is a started payment session
type Checkout struct {
	OrderID    string          `json:"order_id"`
	PaymentURL string          `json:"payment_url"`
	Amount     decimal.Decimal `json:"amount"`
}

// PaymentService starts checkouts and settles payment callbacks
type PaymentService struct {
	gateway          PaymentGateway
	carts            CartReader
	orders           StoreOrderWriter
	notifier         RebillNotifier
	membershipAmount decimal.Decimal
	logger           *zap.Logger
}

// NewPaymentService creates a payment service. membershipAmount is the
// plan price in rubles as a decimal string.
func NewPaymentService(gateway PaymentGateway, carts CartReader, orders StoreOrderWriter, notifier RebillNotifier, membershipAmount string, logger *zap.Logger) (*PaymentService, error) {
	amount, err := decimal.NewFromString(membershipAmount)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_MEMBERSHIP_AMOUNT", "membership amount is not a decimal: "+membershipAmount)
	}
	return &PaymentService{
		gateway:          gateway,
		carts:            carts,
		orders:           orders,
		notifier:         notifier,
		membershipAmount: amount,
		logger:           logger,
	}, nil
}

// CreateCheckout prices the user's cart and opens a payment session
func (s *PaymentService) CreateCheckout(ctx context.Context, userID int64, jwtToken, deliveryType string) (*Checkout, error) {
	shippingMethod, ok := shippingByDeliveryType[deliveryType]
	if !ok {
		return nil, shared.NewDomainError("INVALID_DELIVERY_TYPE", "unknown delivery type: "+deliveryType)
	}

	userCart, err := s.carts.GetCart(ctx, userID, jwtToken)
	if err != nil {
		return nil, err
	}
	if len(userCart.Items) == 0 {
		return nil, shared.NewDomainError("EMPTY_CART", "cannot check out an empty cart")
	}

	// The store reports totals in minor currency units
	minor, err := decimal.NewFromString(userCart.Totals.TotalPrice)
	if err != nil || !minor.IsPositive() {
		return nil, shared.NewDomainError("INVALID_CART_TOTAL", "cart total is not payable: "+userCart.Totals.TotalPrice)
	}
	amount := minor.Shift(-2)

	storeOrder, err := s.orders.CreateOrder(ctx, userID, userCart.Items, shippingMethod)
	if err != nil {
		return nil, err
	}

	orderID := strconv.FormatInt(storeOrder.ID, 10)
	paymentURL, err := s.gateway.InitPayment(ctx, payment.InitPaymentRequest{
		CustomerKey: customerKey(userID),
		OrderID:     orderID,
		Amount:      amount,
	})
	if err != nil {
		return nil, err
	}
	return &Checkout{OrderID: orderID, PaymentURL: paymentURL, Amount: amount}, nil
}

// BuyMembership opens a recurring payment session for the membership plan
func (s *PaymentService) BuyMembership(ctx context.Context, userID int64) (*Checkout, error) {
	orderID := fmt.Sprintf("%s%d-%s", membershipOrderPrefix, userID, uuid.NewString()[:8])
	paymentURL, err := s.gateway.InitPayment(ctx, payment.InitPaymentRequest{
		CustomerKey: customerKey(userID),
		OrderID:     orderID,
		Amount:      s.membershipAmount,
		Recurrent:   true,
	})
	if err != nil {
		return nil, err
	}
	return &Checkout{OrderID: orderID, PaymentURL: paymentURL, Amount: s.membershipAmount}, nil
}

// ConfirmOrderPayment settles a gateway callback: the payment state is
// re-read from the gateway and must agree with the callback before the
// store order is touched. A rebill token is forwarded to the
// subscription service.
func (s *PaymentService) ConfirmOrderPayment(ctx context.Context, orderID, callbackStatus, rebillID string) error {
	state, err := s.gateway.CheckOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !state.Success || len(state.Payments) == 0 || state.Payments[0].Status != callbackStatus {
		return shared.ErrPaymentRejected
	}

	storeStatus, ok := orderStatusByCallback[callbackStatus]
	if !ok {
		s.logger.Info("ignoring payment callback status",
			zap.String("order_id", orderID), zap.String("status", callbackStatus))
		return nil
	}

	// Membership orders carry generated ids and have no store order
	if userID, ok := parseMembershipOrder(orderID); ok {
		if rebillID != "" {
			return s.notifier.NotifyRebill(ctx, userID, rebillID)
		}
		return nil
	}

	storeOrderID, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		s.logger.Warn("payment callback for an unknown order id", zap.String("order_id", orderID))
		return nil
	}

	storeOrder, err := s.orders.GetOrder(ctx, storeOrderID)
	if err != nil {
		return err
	}
	if err := s.orders.UpdateOrderStatus(ctx, storeOrderID, storeStatus); err != nil {
		return err
	}
	s.logger.Info("order status updated from payment callback",
		zap.Int64("order_id", storeOrderID), zap.String("status", storeStatus))

	if rebillID != "" {
		return s.notifier.NotifyRebill(ctx, storeOrder.CustomerID, rebillID)
	}
	return nil
}

// parseMembershipOrder extracts the user id from a membership order id
func parseMembershipOrder(orderID string) (int64, bool) {
	rest, found := strings.CutPrefix(orderID, membershipOrderPrefix)
	if !found {
		return 0, false
	}
	idPart, _, found := strings.Cut(rest, "-")
	if !found {
		return 0, false
	}
	userID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}
