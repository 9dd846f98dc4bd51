package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"uksledger/internal/core"
	"uksledger/pkg/domain"
)

func errorBody(message string) gin.H {
	return gin.H{"error": message}
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusUnprocessableEntity
	case domain.IsFormat(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNoBlobStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody(err.Error())
	var verr *domain.ValidationError
	if errors.As(err, &verr) && verr.Field != "" {
		body["field"] = verr.Field
	}
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		body = errorBody("internal error")
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorBody(err.Error()))
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(err.Error()))
}
