package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentsvc "bestwishes/internal/service/payment"
)

type createIntentRequest struct {
	// Amount in the currency's minor unit (cents for USD).
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

type createIntentResponse struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
}

func (h *handlers) createIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	intent, err := h.deps.Payments.CreateIntent(c.Request.Context(), req.Amount, req.Currency, req.Metadata)
	if err != nil {
		if errors.Is(err, paymentsvc.ErrInvalidAmount) || errors.Is(err, paymentsvc.ErrCurrencyRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		h.deps.Logger.Error("create payment intent", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "payment provider error"})
		return
	}
	c.JSON(http.StatusOK, createIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	})
}
