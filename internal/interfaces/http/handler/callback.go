package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/application/finance"
	"github.com/eatcost/storefront/internal/domain/shared"
	"github.com/eatcost/storefront/internal/infrastructure/payment"
)

// callbackAck is the exact body the gateway expects; anything else
// makes it redeliver the notification.
const callbackAck = "OK"

// NotificationVerifier checks a callback's signature
type NotificationVerifier interface {
	VerifyNotification(params map[string]any) bool
}

// PaymentConfirmer settles a verified payment callback
type PaymentConfirmer interface {
	ConfirmOrderPayment(ctx context.Context, orderID, callbackStatus, rebillID string) error
}

// CallbackHandler receives payment gateway notifications
type CallbackHandler struct {
	BaseHandler
	verifier  NotificationVerifier
	confirmer PaymentConfirmer
	logger    *zap.Logger
}

// NewCallbackHandler creates a new CallbackHandler
func NewCallbackHandler(verifier NotificationVerifier, confirmer PaymentConfirmer, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{verifier: verifier, confirmer: confirmer, logger: logger}
}

// HandleNotification verifies and settles a gateway callback. The
// gateway redelivers on any non-OK answer, so only transient failures
// refuse the notification.
func (h *CallbackHandler) HandleNotification(c *gin.Context) {
	params := map[string]any{}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&params); err != nil {
		h.logger.Warn("unparseable payment callback", zap.Error(err))
		c.String(http.StatusBadRequest, "invalid payload")
		return
	}

	if !h.verifier.VerifyNotification(params) {
		h.logger.Warn("payment callback failed signature check",
			zap.Any("order_id", params["OrderId"]))
		c.String(http.StatusForbidden, "invalid token")
		return
	}

	orderID := stringParam(params, "OrderId")
	status := stringParam(params, "Status")
	rebillID := stringParam(params, "RebillId")

	h.logger.Info("payment callback received",
		zap.String("order_id", orderID),
		zap.String("status", status),
		zap.Bool("rebill", rebillID != ""),
	)

	if err := h.confirmer.ConfirmOrderPayment(c.Request.Context(), orderID, status, rebillID); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == shared.ErrPaymentRejected.Code {
			// The gateway disagrees with its own callback; redelivery
			// would not change that.
			h.logger.Warn("payment callback rejected", zap.String("order_id", orderID))
			c.String(http.StatusOK, callbackAck)
			return
		}
		h.logger.Error("payment callback settlement failed",
			zap.String("order_id", orderID), zap.Error(err))
		c.String(http.StatusInternalServerError, "settlement failed")
		return
	}

	c.String(http.StatusOK, callbackAck)
}

// stringParam renders a callback field as a string; the gateway mixes
// numeric and string encodings between retries.
func stringParam(params map[string]any, key string) string {
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// RegisterRoutes registers the callback routes
func (h *CallbackHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/callbacks", h.HandleNotification)
}

var _ NotificationVerifier = (*payment.TBankAdapter)(nil)
var _ PaymentConfirmer = (*finance.PaymentService)(nil)
