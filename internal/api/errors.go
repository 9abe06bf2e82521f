package api

import (
	"errors"
	"net/http"

	"github.com/mohamedkhairy/flip-finder/internal/columns"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

var validationErrors = []error{
	models.ErrInvalidColumnID,
	models.ErrInvalidColumnName,
	models.ErrInvalidColumnType,
	models.ErrInvalidColumnFormat,
	models.ErrEmptyExpression,
	models.ErrInvalidFilterID,
	models.ErrInvalidFilterName,
	models.ErrNilRule,
	models.ErrInvalidRule,
}

func isValidationError(err error) bool {
	var exprErr *expr.Error
	if errors.As(err, &exprErr) {
		return true
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondWithDefinitionError maps repository errors onto status codes
func respondWithDefinitionError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *columns.DependencyConflictError
	switch {
	case errors.As(err, &conflict):
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"error":        err.Error(),
			"code":         http.StatusConflict,
			"referencedBy": conflict.ReferencedBy,
		})
	case errors.Is(err, models.ErrColumnNotFound), errors.Is(err, models.ErrFilterNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrDuplicateID):
		respondWithError(w, http.StatusConflict, err.Error())
	case isValidationError(err):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.WithContext(r.Context()).Error("Definition store failure",
			logger.String("path", r.URL.Path),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to update definitions")
	}
}
