package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	bankdomain "github.com/remitra/remitra/internal/bank/domain"
	"github.com/remitra/remitra/internal/codec"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, payoutdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "payout not found"}
	case errors.Is(err, payoutdomain.ErrInvalidID):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: "invalid payout id"}
	case errors.Is(err, payoutdomain.ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	case errors.Is(err, payoutdomain.ErrMerchantInactive):
		return http.StatusUnprocessableEntity, errorPayload{Type: "merchant_inactive", Message: "merchant is not active"}
	case errors.Is(err, payoutdomain.ErrAlreadyExists):
		return http.StatusConflict, errorPayload{Type: "already_exists", Message: "payout already exists"}
	case errors.Is(err, payoutdomain.ErrRetriesExhausted):
		return http.StatusConflict, errorPayload{Type: "retries_exhausted", Message: "max retries exceeded"}
	case errors.Is(err, payoutdomain.ErrInvalidStatus):
		return http.StatusConflict, errorPayload{Type: "invalid_status", Message: "payout status does not allow this operation"}
	case errors.Is(err, bankdomain.ErrUnknownBank):
		return http.StatusNotFound, errorPayload{Type: "unknown_bank", Message: "unknown bank code"}
	case errors.Is(err, codec.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{Type: "invalid_signature", Message: "signature verification failed"}
	case errors.Is(err, codec.ErrInvalidEnvelope), errors.Is(err, codec.ErrDecryptFailed):
		return http.StatusBadRequest, errorPayload{Type: "invalid_payload", Message: "could not decode webhook payload"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}
