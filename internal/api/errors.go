package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

// ErrorResponse is the body of every non-2xx response without a result
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var he *echo.HTTPError
	var ve *ValidationError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case domain.IsInvariant(err):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLockNotAcquired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrProcessingFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := statusFor(err)
		msg := http.StatusText(code)
		var he *echo.HTTPError
		var ve *ValidationError
		switch {
		case errors.As(err, &he):
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		case errors.As(err, &ve):
			msg = ve.Message
		case code == http.StatusNotFound:
			msg = err.Error()
		}

		if code >= http.StatusInternalServerError {
			log.Error("request error",
				zap.String("route", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		resp := ErrorResponse{Error: msg, RequestID: c.Response().Header().Get(echo.HeaderXRequestID)}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, resp)
		}
		if err != nil {
			log.Warn("failed to write error response", zap.Error(err))
		}
	}
}
