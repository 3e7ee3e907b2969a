package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bestwishes/internal/domain"
	"bestwishes/internal/metrics"
	purchasesvc "bestwishes/internal/service/purchase"
)

type paymentSessionResponse struct {
	CollaborativePurchase purchaseJSON    `json:"collaborativePurchase"`
	Participant           participantJSON `json:"participant"`
	// Milliseconds until the deadline, floored at zero.
	TimeRemaining int64 `json:"timeRemaining"`
}

type reportPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
	Email           string `json:"email"`
}

func (h *handlers) createPurchase(c *gin.Context) {
	var in purchasesvc.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	p, err := h.deps.Purchases.Create(c.Request.Context(), c.GetString(ctxUserID), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPurchaseJSON(p))
}

func (h *handlers) listPurchases(c *gin.Context) {
	list, err := h.deps.Purchases.ListForUser(c.Request.Context(), c.GetString(ctxUserID), c.GetString(ctxEmail))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]purchaseJSON, 0, len(list))
	for i := range list {
		out = append(out, toPurchaseJSON(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) getPurchase(c *gin.Context) {
	p, err := h.deps.Purchases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseJSON(p))
}

func (h *handlers) cancelPurchase(c *gin.Context) {
	p, err := h.deps.Purchases.Cancel(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseJSON(p))
}

func (h *handlers) paymentSession(c *gin.Context) {
	p, part, remaining, err := h.deps.Purchases.GetByPaymentLink(c.Request.Context(), c.Param("paymentLink"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentSessionResponse{
		CollaborativePurchase: toPurchaseJSON(p),
		Participant:           toParticipantJSON(*part),
		TimeRemaining:         remaining.Milliseconds(),
	})
}

func (h *handlers) reportPayment(c *gin.Context) {
	var req reportPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "paymentIntentId is required"})
		return
	}
	p, err := h.deps.Purchases.RecordPayment(c.Request.Context(), c.Param("paymentLink"), req.PaymentIntentID)
	if err != nil {
		if isStateError(err) {
			metrics.ObservePayment("rejected")
		} else if !errors.Is(err, domain.ErrNotFound) {
			metrics.ObservePayment("error")
		}
		respondError(c, err)
		return
	}
	metrics.ObservePayment("recorded")
	c.JSON(http.StatusOK, toPurchaseJSON(p))
}

func (h *handlers) declinePurchase(c *gin.Context) {
	p, err := h.deps.Purchases.Decline(c.Request.Context(), c.Param("paymentLink"))
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.ObservePayment("declined")
	c.JSON(http.StatusOK, toPurchaseJSON(p))
}

func isStateError(err error) bool {
	return errors.Is(err, domain.ErrAlreadyPaid) ||
		errors.Is(err, domain.ErrPurchaseNotActive) ||
		errors.Is(err, domain.ErrDeadlinePassed)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	case isStateError(err):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrNotCreator):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	case errors.Is(err, purchasesvc.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
