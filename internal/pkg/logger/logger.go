package logger

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with KYC-specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey   ContextKey = "request_id"
	CustomerRefKey ContextKey = "customer_ref"
	SubjectKey     ContextKey = "subject"
	TraceIDKey     ContextKey = "trace_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// NewNop returns a logger that discards everything, for tests
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), serviceName: "nop"}
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if ref, ok := ctx.Value(CustomerRefKey).(string); ok && ref != "" {
		fields = append(fields, zap.String("customer_ref", ref))
	}
	if subject, ok := ctx.Value(SubjectKey).(string); ok && subject != "" {
		fields = append(fields, zap.String("subject", subject))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	} else if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithCustomer returns a logger scoped to a pseudonymised customer
func (l *Logger) WithCustomer(customerRef string) *Logger {
	return &Logger{
		Logger:      l.With(zap.String("customer_ref", customerRef)),
		serviceName: l.serviceName,
	}
}

// WithDocument returns a logger with document context
func (l *Logger) WithDocument(documentID, docType string) *Logger {
	return &Logger{
		Logger: l.With(
			zap.String("document_id", documentID),
			zap.String("document_type", docType),
		),
		serviceName: l.serviceName,
	}
}

// SubmissionReceived logs the start of a KYC submission
func (l *Logger) SubmissionReceived(customerRef, docType, legalBasis string) {
	l.Info("kyc submission received",
		zap.String("customer_ref", customerRef),
		zap.String("document_type", docType),
		zap.String("legal_basis", legalBasis),
	)
}

// SubmissionRejected logs a policy rejection
func (l *Logger) SubmissionRejected(customerRef, reason string) {
	l.Warn("kyc submission rejected",
		zap.String("customer_ref", customerRef),
		zap.String("reason", reason),
	)
}

// DocumentProcessed logs the verification outcome of a document
func (l *Logger) DocumentProcessed(documentID, status string, confidence float64, durationMs int64) {
	l.Info("document processed",
		zap.String("document_id", documentID),
		zap.String("verification_status", status),
		zap.Float64("confidence", confidence),
		zap.Int64("duration_ms", durationMs),
	)
}

// RiskAssessed logs the outcome of a risk assessment
func (l *Logger) RiskAssessed(customerRef string, baseline, adjusted int, level string, fallback bool, durationMs int64) {
	l.Info("risk assessed",
		zap.String("customer_ref", customerRef),
		zap.Int("baseline_score", baseline),
		zap.Int("adjusted_score", adjusted),
		zap.String("risk_level", level),
		zap.Bool("fallback", fallback),
		zap.Int64("duration_ms", durationMs),
	)
}

// OracleFallback logs that the oracle was skipped and why
func (l *Logger) OracleFallback(customerRef string, err error) {
	l.Warn("risk oracle unavailable, using baseline only",
		zap.String("customer_ref", customerRef),
		zap.Error(err),
	)
}

// AuditWriteFailed logs an audit sink failure
func (l *Logger) AuditWriteFailed(sink, action string, err error) {
	l.Error("audit write failed",
		zap.String("sink", sink),
		zap.String("action", action),
		zap.Error(err),
	)
}

// AlertRaised logs a compliance alert
func (l *Logger) AlertRaised(alertID, alertType, customerRef string, riskScore int) {
	l.Warn("compliance alert raised",
		zap.String("alert_id", alertID),
		zap.String("alert_type", alertType),
		zap.String("customer_ref", customerRef),
		zap.Int("risk_score", riskScore),
	)
}

// LatencyWarning logs when a step exceeds expected latency
func (l *Logger) LatencyWarning(step string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("step", step),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Float64Field creates a float64 field
func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

// BoolField creates a bool field
func BoolField(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}
