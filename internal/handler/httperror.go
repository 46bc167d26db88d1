package handler

import (
	"errors"
	"net/http"

	"erpcore/internal/workflow"
	"erpcore/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps engine errors onto HTTP status codes. Anything the
// engine did not classify is a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden):
		status = http.StatusForbidden
	case workflow.IsConflict(err):
		status = http.StatusConflict
	case workflow.IsBusinessRule(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrValidation):
		status = http.StatusBadRequest
	}
	c.JSON(status, response.Error(status, err.Error()))
}
