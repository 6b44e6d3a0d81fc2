package api

import (
	"errors"
	"net/http"

	"gymvida/gym-manager/internal/domain"

	"github.com/gin-gonic/gin"
)

// respondWithDomainError maps the service error taxonomy onto HTTP status
// codes: validation 400, not found 404, conflict 409, everything else 500.
func respondWithDomainError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		conflictErr   *domain.ConflictError
		dependencyErr *domain.DependencyError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
	case errors.As(err, &dependencyErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": dependencyErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
