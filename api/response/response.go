// Package response renders service errors as JSON API errors.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pulgax-store/internal/apperrors"
)

// Status maps an error kind to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrUnauthenticated),
		errors.Is(err, apperrors.ErrTokenExpired),
		errors.Is(err, apperrors.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts the request with the JSON error body for err. Validation errors
// carry the offending field; total mismatches carry both amounts. Server errors
// hide their details outside debug mode.
func Error(c *gin.Context, err error) {
	status := Status(err)
	body := gin.H{
		"error": err.Error(),
		"code":  apperrors.Code(err),
	}

	if ve, ok := apperrors.AsValidation(err); ok && ve.Field != "" {
		body["field"] = ve.Field
	}
	if tm, ok := apperrors.AsTotalMismatch(err); ok {
		body["expected"] = tm.Expected.StringFixed(2)
		body["received"] = tm.Received.StringFixed(2)
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		if gin.Mode() != gin.DebugMode {
			body["error"] = "Internal server error"
		}
	}

	c.AbortWithStatusJSON(status, body)
}

// BadRequest reports a request that could not be decoded or failed binding.
func BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"code":  apperrors.Code(apperrors.ErrValidation),
	})
}
