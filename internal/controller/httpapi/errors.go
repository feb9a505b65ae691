package httpapi

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/studyroom_booking/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// statusFor maps service errors onto HTTP codes. Policy violations keep
// their human readable reason, everything unknown is a 500.
func statusFor(err error) int {
	var pe *service.PolicyError
	switch {
	case errors.As(err, &pe):
		if errors.Is(err, service.ErrConflict) {
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)

	var pe *service.PolicyError
	switch {
	case errors.As(err, &pe):
		c.AbortWithStatusJSON(code, ErrorResponse{Error: "policy_violation", Reason: pe.Reason})
	case code == http.StatusInternalServerError:
		s.logger.Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", requestIDFrom(c)),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(code, ErrorResponse{Error: "internal error"})
	default:
		c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error()})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
