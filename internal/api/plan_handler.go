package api

import (
	"fmt"
	"net/http"
	"strconv"

	"gymvida/gym-manager/internal/service"

	"github.com/gin-gonic/gin"
)

// PlanHandler exposes plan management, client association and the plan
// lifecycle with its contract cascade.
type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

type PlanRequest struct {
	Name           string `json:"nombre" binding:"required"`
	DurationMonths int    `json:"duracionMeses" binding:"required,min=1"`
	Level          string `json:"nivel" binding:"required,oneof=principiante intermedio avanzado"`
}

type ChangePlanStateRequest struct {
	State string `json:"estado" binding:"required"`
}

// ClientCascadeResponse is the wire form of one per-client cascade
// outcome, with errors flattened to strings.
type ClientCascadeResponse struct {
	ClientID            string  `json:"clienteId"`
	ContractID          *string `json:"contratoId,omitempty"`
	ContractCancelled   bool    `json:"contratoCancelado"`
	ContractError       string  `json:"errorContrato,omitempty"`
	LogsRemoved         int64   `json:"registrosEliminados"`
	CompensationSkipped bool    `json:"compensacionOmitida"`
	CompensationError   string  `json:"errorCompensacion,omitempty"`
}

type CascadeResultResponse struct {
	PlanID  string                  `json:"planId"`
	State   string                  `json:"estado"`
	Clients []ClientCascadeResponse `json:"clientes"`
}

func mapCascadeResult(result *service.CascadeResult) CascadeResultResponse {
	resp := CascadeResultResponse{
		PlanID:  result.PlanID.Hex(),
		State:   string(result.State),
		Clients: make([]ClientCascadeResponse, 0, len(result.Clients)),
	}
	for _, cc := range result.Clients {
		entry := ClientCascadeResponse{
			ClientID:            cc.ClientID.Hex(),
			ContractCancelled:   cc.ContractCancelled,
			LogsRemoved:         cc.LogsRemoved,
			CompensationSkipped: cc.CompensationSkipped,
		}
		if cc.ContractID != nil {
			hex := cc.ContractID.Hex()
			entry.ContractID = &hex
		}
		if cc.ContractErr != nil {
			entry.ContractError = cc.ContractErr.Error()
		}
		if cc.CompensationErr != nil {
			entry.CompensationError = cc.CompensationErr.Error()
		}
		resp.Clients = append(resp.Clients, entry)
	}
	return resp
}

// CreatePlan creates a training plan. Starts in the active state.
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	plan, err := h.planService.Create(c.Request.Context(), req.Name, req.DurationMonths, req.Level)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// GetPlan returns a plan by ID.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	id, ok := parseObjectID(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdatePlan modifies a plan's descriptive fields.
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	id, ok := parseObjectID(c, "planId")
	if !ok {
		return
	}

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	plan, err := h.planService.Update(c.Request.Context(), id, req.Name, req.DurationMonths, req.Level)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeletePlan removes a plan with no associated clients or active contracts.
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	id, ok := parseObjectID(c, "planId")
	if !ok {
		return
	}

	if err := h.planService.Delete(c.Request.Context(), id); err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePlanState transitions a plan and, when leaving the active state,
// cascades over the plan's clients cancelling their matching contracts.
// The full per-client cascade outcome is returned in the response body.
func (h *PlanHandler) ChangePlanState(c *gin.Context) {
	id, ok := parseObjectID(c, "planId")
	if !ok {
		return
	}

	var req ChangePlanStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	result, err := h.planService.ChangeState(c.Request.Context(), id, req.State)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapCascadeResult(result))
}

// AssociateClient links a client to a plan on both sides of the relation.
func (h *PlanHandler) AssociateClient(c *gin.Context) {
	planID, ok := parseObjectID(c, "planId")
	if !ok {
		return
	}
	clientID, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	if err := h.planService.AssociateClient(c.Request.Context(), planID, clientID); err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DisassociateClient unlinks a client from a plan. Rejected while an
// active contract exists for the pair.
func (h *PlanHandler) DisassociateClient(c *gin.Context) {
	planID, ok := parseObjectID(c, "planId")
	if !ok {
		return
	}
	clientID, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	if err := h.planService.DisassociateClient(c.Request.Context(), planID, clientID); err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListActivePlans returns all plans currently in the active state.
func (h *PlanHandler) ListActivePlans(c *gin.Context) {
	plans, err := h.planService.ListActive(c.Request.Context())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// ListPlansByLevel returns plans filtered by difficulty level.
func (h *PlanHandler) ListPlansByLevel(c *gin.Context) {
	plans, err := h.planService.ListByLevel(c.Request.Context(), c.Param("level"))
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// ListPlansByDuration returns plans whose duration falls within the
// min/max month bounds given as query parameters.
func (h *PlanHandler) ListPlansByDuration(c *gin.Context) {
	minMonths, err := strconv.Atoi(c.DefaultQuery("min", "1"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid 'min' query parameter")
		return
	}
	maxMonths, err := strconv.Atoi(c.DefaultQuery("max", "60"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid 'max' query parameter")
		return
	}

	plans, err := h.planService.ListByDurationRange(c.Request.Context(), minMonths, maxMonths)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// ListMostPopularPlans returns plans ordered by number of associated
// clients, descending.
func (h *PlanHandler) ListMostPopularPlans(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "5"), 10, 64)
	if err != nil || limit < 1 {
		abortWithError(c, http.StatusBadRequest, "Invalid 'limit' query parameter")
		return
	}

	plans, err := h.planService.MostPopular(c.Request.Context(), limit)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// GetPlanStats returns counts of plans per lifecycle state.
func (h *PlanHandler) GetPlanStats(c *gin.Context) {
	stats, err := h.planService.Stats(c.Request.Context())
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
