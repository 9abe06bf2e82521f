package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mohamedkhairy/flip-finder/internal/columns"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/internal/rules"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
)

// ValidationHandler checks expressions and rules without storing them
type ValidationHandler struct{}

// NewValidationHandler creates a new validation handler
func NewValidationHandler() *ValidationHandler {
	return &ValidationHandler{}
}

// ValidateExpression handles POST /api/v1/validate/expression. The answer
// is always 200; the body says whether the text compiles.
func (h *ValidationHandler) ValidateExpression(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expression string `json:"expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := expr.Validate(req.Expression); err != nil {
		resp := map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		}
		var exprErr *expr.Error
		if errors.As(err, &exprErr) && exprErr.Pos >= 0 {
			resp["position"] = exprErr.Pos
		}
		respondWithJSON(w, http.StatusOK, resp)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"valid":      true,
		"references": columns.References(req.Expression),
	})
}

// ValidateRule handles POST /api/v1/validate/rule
func (h *ValidationHandler) ValidateRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rule models.RuleNode `json:"rule"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !rules.ValidateRule(req.Rule) {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": models.ErrInvalidRule.Error(),
		})
		return
	}
	if err := rules.Lint(req.Rule); err != nil {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"columns": rules.ExtractColumnReferences(req.Rule),
	})
}
