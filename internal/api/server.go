package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/metrics"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

// Config holds HTTP surface settings
type Config struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Security       config.SecurityConfig
}

// NewServer builds the Echo instance with middleware and all routes
func NewServer(h *Handler, m *metrics.Metrics, cfg Config, log *logger.Logger) *echo.Echo {
	log = log.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, HeaderCustomerID},
	}))
	e.Use(requestLogger(log))
	e.Use(observe(m))
	if cfg.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.MaxUploadBytes, 10)))
	}
	if cfg.RequestTimeout > 0 {
		e.Use(requestTimeout(cfg.RequestTimeout))
	}

	e.GET("/health", h.Health)

	g := e.Group("/api/v1/kyc", JWTAuth(&cfg.Security))
	g.POST("/submit", h.Submit)
	g.GET("/status/:customerId", h.Status)
	g.GET("/documents/:customerId", h.Documents)
	g.POST("/risk-assessment/:customerId", h.RiskAssessment)
	g.GET("/audit/:customerId", h.AuditTrail)

	return e
}

// requestLogger logs the route template, never the raw path, so customer ids
// in path params stay out of the logs
func requestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

func observe(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			m.ObserveHTTP(c.Request().Method, c.Path(), strconv.Itoa(status), time.Since(start))
			return err
		}
	}
}

func requestTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
