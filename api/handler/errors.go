package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/cadastre/models"
	"github.com/use-agent/cadastre/store"
)

// toAPIError classifies an error from the extract, cadastral or store
// layers into an API error code.
func toAPIError(err error) *models.APIError {
	var apiErr *models.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case models.IsParseError(err):
		return models.NewAPIError(models.ErrCodeParse, err.Error(), err)
	case errors.Is(err, store.ErrNotFound):
		return models.NewAPIError(models.ErrCodeNotFound, err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewAPIError(models.ErrCodeUpstreamTimeout, "cadastral API timed out", err)
	default:
		return models.NewAPIError(models.ErrCodeUpstream, err.Error(), err)
	}
}

// statusFor translates error codes to HTTP status codes.
func statusFor(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeNotReady:
		return http.StatusConflict // 409
	case models.ErrCodeParse:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUpstream:
		return http.StatusBadGateway // 502
	case models.ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}

// respondError writes a structured error body for err.
func respondError(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	c.JSON(statusFor(apiErr.Code), gin.H{"success": false, "error": apiErr.ToDetail()})
}

// respondPropertyError writes err as a failed PropertyResponse.
func respondPropertyError(c *gin.Context, err error, timing models.TimingInfo) {
	apiErr := toAPIError(err)
	c.JSON(statusFor(apiErr.Code), models.PropertyResponse{
		Success: false,
		Error:   apiErr.ToDetail(),
		Timing:  timing,
	})
}

func invalidInput(c *gin.Context, err error) {
	respondError(c, models.NewAPIError(models.ErrCodeInvalidInput, err.Error(), err))
}
