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

// ContractHandler exposes the contract lifecycle.
type ContractHandler struct {
	contractService service.ContractService
}

func NewContractHandler(contractService service.ContractService) *ContractHandler {
	return &ContractHandler{contractService: contractService}
}

type CreateContractRequest struct {
	ClientID       string    `json:"clienteId" binding:"required"`
	PlanID         string    `json:"planId" binding:"required"`
	Price          float64   `json:"precio" binding:"required,gt=0"`
	StartDate      time.Time `json:"fechaInicio" binding:"required"`
	DurationMonths int       `json:"duracionMeses" binding:"required,min=1"`
}

type ExtendContractRequest struct {
	Months int `json:"meses" binding:"required,min=1"`
}

// parseDateRangeQuery reads RFC 3339 "start" and "end" query parameters.
func parseDateRangeQuery(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid 'start' query parameter, expected RFC 3339 timestamp")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid 'end' query parameter, expected RFC 3339 timestamp")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// CreateContract signs a client up for a plan. At most one active
// contract may exist per client and plan pair, so a duplicate returns 409.
func (h *ContractHandler) CreateContract(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid clienteId format")
		return
	}
	planID, err := primitive.ObjectIDFromHex(req.PlanID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid planId format")
		return
	}

	contract, err := h.contractService.Create(c.Request.Context(), clientID, planID, req.Price, req.StartDate, req.DurationMonths)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

// GetContract returns a single contract by ID.
func (h *ContractHandler) GetContract(c *gin.Context) {
	id, ok := parseObjectID(c, "contractId")
	if !ok {
		return
	}

	contract, err := h.contractService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// CancelContract moves an active contract to cancelled.
func (h *ContractHandler) CancelContract(c *gin.Context) {
	id, ok := parseObjectID(c, "contractId")
	if !ok {
		return
	}

	contract, err := h.contractService.Cancel(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// FinalizeContract moves an active contract to finished.
func (h *ContractHandler) FinalizeContract(c *gin.Context) {
	id, ok := parseObjectID(c, "contractId")
	if !ok {
		return
	}

	contract, err := h.contractService.Finalize(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// ExtendContract adds months to an active contract, pushing its end date
// forward with calendar month arithmetic.
func (h *ContractHandler) ExtendContract(c *gin.Context) {
	id, ok := parseObjectID(c, "contractId")
	if !ok {
		return
	}

	var req ExtendContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	contract, err := h.contractService.Extend(c.Request.Context(), id, req.Months)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// DeleteContract removes a non-active contract.
func (h *ContractHandler) DeleteContract(c *gin.Context) {
	id, ok := parseObjectID(c, "contractId")
	if !ok {
		return
	}

	if err := h.contractService.Delete(c.Request.Context(), id); err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListContractsByClient returns every contract a client has ever held.
func (h *ContractHandler) ListContractsByClient(c *gin.Context) {
	clientID, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	contracts, err := h.contractService.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts)
}

// ListActiveContractsByClient returns the client's active contracts only.
func (h *ContractHandler) ListActiveContractsByClient(c *gin.Context) {
	clientID, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	contracts, err := h.contractService.ListActiveByClient(c.Request.Context(), clientID)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts)
}

// ListContractsByDateRange returns contracts whose start date falls in
// the given range.
func (h *ContractHandler) ListContractsByDateRange(c *gin.Context) {
	start, end, ok := parseDateRangeQuery(c)
	if !ok {
		return
	}

	contracts, err := h.contractService.ListByDateRange(c.Request.Context(), start, end)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts)
}

// ListContractsNearExpiration returns active contracts ending within the
// next N days (default 30).
func (h *ContractHandler) ListContractsNearExpiration(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 {
		abortWithError(c, http.StatusBadRequest, "Invalid 'days' query parameter")
		return
	}

	contracts, err := h.contractService.ListNearExpiration(c.Request.Context(), days)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts)
}

// ListExpiredContracts returns active contracts whose end date has passed.
func (h *ContractHandler) ListExpiredContracts(c *gin.Context) {
	contracts, err := h.contractService.ListExpired(c.Request.Context())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts)
}

// GetContractStats returns counts of contracts per lifecycle state.
func (h *ContractHandler) GetContractStats(c *gin.Context) {
	stats, err := h.contractService.Stats(c.Request.Context())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
