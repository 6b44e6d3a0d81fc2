package api

import (
	"fmt"
	"net/http"
	"time"

	"gymvida/gym-manager/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientHandler exposes gym member management and progress tracking.
type ClientHandler struct {
	clientService   service.ClientService
	progressService service.ProgressService
}

func NewClientHandler(clientService service.ClientService, progressService service.ProgressService) *ClientHandler {
	return &ClientHandler{
		clientService:   clientService,
		progressService: progressService,
	}
}

type RegisterClientRequest struct {
	Name  string `json:"nombre" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"telefono"`
	Level string `json:"nivel" binding:"required,oneof=principiante intermedio avanzado"`
}

type UpdateClientRequest struct {
	Name   string `json:"nombre" binding:"required"`
	Phone  string `json:"telefono"`
	Level  string `json:"nivel" binding:"required,oneof=principiante intermedio avanzado"`
	Active *bool  `json:"activo" binding:"required"`
}

type LogProgressRequest struct {
	PlanID   string    `json:"planId" binding:"required"`
	Date     time.Time `json:"fecha" binding:"required"`
	WeightKg float64   `json:"pesoKg"`
	Notes    string    `json:"notas"`
	PhotoKey string    `json:"fotoKey"`
}

type PhotoUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

// parseObjectID reads a hex ObjectID from a path parameter, aborting with
// a 400 when it is malformed.
func parseObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s format", param))
		return primitive.NilObjectID, false
	}
	return id, true
}

// RegisterClient creates a new gym member.
func (h *ClientHandler) RegisterClient(c *gin.Context) {
	var req RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := h.clientService.Register(c.Request.Context(), req.Name, req.Email, req.Phone, req.Level)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

// GetClient returns a single member by ID.
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	client, err := h.clientService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// UpdateClient modifies a member's mutable fields. Email is immutable.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), id, req.Name, req.Phone, req.Level, *req.Active)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient removes a member. Members with active contracts are
// protected and the request is rejected with 409.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	if err := h.clientService.Delete(c.Request.Context(), id); err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LogProgress records a progress entry for a member on one of their plans.
func (h *ClientHandler) LogProgress(c *gin.Context) {
	clientID, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	var req LogProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	planID, err := primitive.ObjectIDFromHex(req.PlanID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid planId format")
		return
	}

	entry, err := h.progressService.LogProgress(c.Request.Context(), clientID, planID, req.Date, req.WeightKg, req.Notes, req.PhotoKey)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListProgress returns the member's progress history, newest first.
func (h *ClientHandler) ListProgress(c *gin.Context) {
	clientID, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	entries, err := h.progressService.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RequestPhotoUpload returns a pre-signed PUT URL for a progress photo.
func (h *ClientHandler) RequestPhotoUpload(c *gin.Context) {
	clientID, ok := parseObjectID(c, "clientId")
	if !ok {
		return
	}

	var req PhotoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	ticket, err := h.progressService.RequestPhotoUpload(c.Request.Context(), clientID, req.ContentType)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// GetPhotoDownloadURL returns a pre-signed GET URL for a stored photo.
func (h *ClientHandler) GetPhotoDownloadURL(c *gin.Context) {
	objectKey := c.Query("key")
	if objectKey == "" {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'key' is required")
		return
	}

	url, err := h.progressService.PhotoDownloadURL(c.Request.Context(), objectKey)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}
