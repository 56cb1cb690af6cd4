package handlers

import (
	"errors"
	"io"
	"net/http"

	"fastaid/apperrors"
	"fastaid/models"
	"fastaid/services/booking"
	"fastaid/services/payment"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

// PaymentHandler opens payment orders and records their outcomes.
type PaymentHandler struct {
	Payments      payment.PaymentService
	Bookings      booking.BookingService
	WebhookSecret string
}

func NewPaymentHandler(payments payment.PaymentService, bookings booking.BookingService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Bookings: bookings, WebhookSecret: webhookSecret}
}

type createOrderInput struct {
	// Amount in minor units; zero charges the booking's estimate.
	Amount int64 `json:"amount"`
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	b, ok := h.ownBooking(c)
	if !ok {
		return
	}
	var input createOrderInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
			return
		}
	}
	amount := input.Amount
	if amount == 0 {
		amount = b.EstimatedCost
	}

	order, err := h.Payments.CreateOrder(c.Request.Context(), b.ID, amount)
	if err != nil {
		utils.RespondError(c, "Failed to create payment order", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"transaction":  order.Transaction,
		"clientSecret": order.ClientSecret,
	})
}

type outcomeInput struct {
	OrderRef string `json:"orderRef" binding:"required"`
}

// ConfirmOutcome asks the gateway how an order ended and records that. The
// client never supplies the outcome itself; a still-open order comes back
// pending.
func (h *PaymentHandler) ConfirmOutcome(c *gin.Context) {
	b, ok := h.ownBooking(c)
	if !ok {
		return
	}
	var input outcomeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	tx, err := h.Payments.SyncOutcome(c.Request.Context(), b.ID, input.OrderRef)
	if err != nil {
		utils.RespondError(c, "Failed to confirm payment outcome", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// StripeWebhook records outcomes pushed by Stripe. A conflicting outcome for
// an already settled transaction is acknowledged so Stripe stops retrying.
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	logger := getLogger(c)
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	event, err := payment.ParseStripeWebhook(body, c.GetHeader("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		utils.RespondError(c, "Invalid webhook", err)
		return
	}
	if event == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	_, err = h.Payments.ReportOutcome(c.Request.Context(), event.BookingID, event.OrderRef, event.Outcome)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrAlreadyHandled), errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Webhook outcome not applied",
			zap.String("bookingID", event.BookingID),
			zap.String("orderRef", event.OrderRef),
			zap.Error(err))
	default:
		utils.RespondError(c, "Failed to record payment outcome", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// ownBooking loads the path booking and requires the caller to own it.
func (h *PaymentHandler) ownBooking(c *gin.Context) (*models.Booking, bool) {
	b, err := h.Bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, "Failed to fetch booking", err)
		return nil, false
	}
	if !requireSelf(c, utils.RoleRequester, b.RequesterID) {
		return nil, false
	}
	return b, true
}
