package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gymvida/gym-manager/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentHandler exposes the payment lifecycle and the balance reports.
type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type CreatePaymentRequest struct {
	ClientID   string     `json:"clienteId"`
	ContractID string     `json:"contratoId"`
	Amount     float64    `json:"monto" binding:"required,gt=0"`
	Method     string     `json:"metodoPago" binding:"required"`
	Movement   string     `json:"movimiento" binding:"required,oneof=ingreso egreso"`
	Reference  string     `json:"referencia"`
	Notes      string     `json:"notas"`
	PaidAt     time.Time  `json:"fechaPago" binding:"required"`
	DueDate    *time.Time `json:"fechaVencimiento"`
}

type UpdatePaymentRequest struct {
	Amount    float64   `json:"monto" binding:"required,gt=0"`
	Method    string    `json:"metodoPago" binding:"required"`
	Reference string    `json:"referencia"`
	Notes     string    `json:"notas"`
	PaidAt    time.Time `json:"fechaPago" binding:"required"`
}

type MarkPaidRequest struct {
	Reference string `json:"referencia"`
	Notes     string `json:"notas"`
}

type MarkLateRequest struct {
	Notes string `json:"notas"`
}

type MarkCancelledRequest struct {
	Reason string `json:"motivo" binding:"required"`
}

// optionalObjectID parses a hex ID when present, returning nil for "".
func optionalObjectID(raw, field string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format", field)
	}
	return &id, nil
}

// CreatePayment records an income or expense movement. Client and
// contract references are optional.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	clientID, err := optionalObjectID(req.ClientID, "clienteId")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	contractID, err := optionalObjectID(req.ContractID, "contratoId")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	payment, err := h.paymentService.Create(c.Request.Context(), clientID, contractID,
		req.Amount, req.Method, req.Movement, req.Reference, req.Notes, req.PaidAt, req.DueDate)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GetPayment returns a payment by ID.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := parseObjectID(c, "paymentId")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// UpdatePayment edits a pending payment. Settled payments are immutable
// and the request is rejected with 409.
func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	id, ok := parseObjectID(c, "paymentId")
	if !ok {
		return
	}

	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	payment, err := h.paymentService.Update(c.Request.Context(), id, service.PaymentUpdate{
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
		PaidAt:    req.PaidAt,
	})
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// DeletePayment removes a pending payment.
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	id, ok := parseObjectID(c, "paymentId")
	if !ok {
		return
	}

	if err := h.paymentService.Delete(c.Request.Context(), id); err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkPaymentPaid settles a pending or late payment.
func (h *PaymentHandler) MarkPaymentPaid(c *gin.Context) {
	id, ok := parseObjectID(c, "paymentId")
	if !ok {
		return
	}

	var req MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	payment, err := h.paymentService.MarkPaid(c.Request.Context(), id, req.Reference, req.Notes)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// MarkPaymentLate flags a pending payment as overdue.
func (h *PaymentHandler) MarkPaymentLate(c *gin.Context) {
	id, ok := parseObjectID(c, "paymentId")
	if !ok {
		return
	}

	var req MarkLateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	payment, err := h.paymentService.MarkLate(c.Request.Context(), id, req.Notes)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// MarkPaymentCancelled voids a payment. A reason is mandatory and is
// stored in the payment's notes.
func (h *PaymentHandler) MarkPaymentCancelled(c *gin.Context) {
	id, ok := parseObjectID(c, "paymentId")
	if !ok {
		return
	}

	var req MarkCancelledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	payment, err := h.paymentService.MarkCancelled(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// GetBalanceByRange reports income, expense and net balance over a date
// range, optionally filtered to one client.
func (h *PaymentHandler) GetBalanceByRange(c *gin.Context) {
	start, end, ok := parseDateRangeQuery(c)
	if !ok {
		return
	}
	clientID, err := optionalObjectID(c.Query("clienteId"), "clienteId")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.paymentService.BalanceByRange(c.Request.Context(), start, end, clientID)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetMonthlyBalance reports the balance for one calendar month.
func (h *PaymentHandler) GetMonthlyBalance(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid 'year' query parameter")
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		abortWithError(c, http.StatusBadRequest, "Invalid 'month' query parameter")
		return
	}

	report, err := h.paymentService.MonthlyBalance(c.Request.Context(), year, time.Month(month))
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetTotalBalance reports the all-time balance.
func (h *PaymentHandler) GetTotalBalance(c *gin.Context) {
	report, err := h.paymentService.TotalBalance(c.Request.Context())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListLargestPayments returns the top payments by amount, optionally
// restricted to one movement direction.
func (h *PaymentHandler) ListLargestPayments(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
	if err != nil || limit < 1 {
		abortWithError(c, http.StatusBadRequest, "Invalid 'limit' query parameter")
		return
	}

	payments, err := h.paymentService.LargestPayments(c.Request.Context(), limit, c.Query("movimiento"))
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GetPaymentStats returns per-state payment counts, restricted to a date
// range when 'start' and 'end' are given. Zero bounds mean all time.
func (h *PaymentHandler) GetPaymentStats(c *gin.Context) {
	var start, end time.Time
	var err error
	if raw := c.Query("start"); raw != "" {
		if start, err = time.Parse(time.RFC3339, raw); err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid 'start' query parameter, expected RFC 3339 timestamp")
			return
		}
	}
	if raw := c.Query("end"); raw != "" {
		if end, err = time.Parse(time.RFC3339, raw); err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid 'end' query parameter, expected RFC 3339 timestamp")
			return
		}
	}

	stats, err := h.paymentService.Stats(c.Request.Context(), start, end)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
