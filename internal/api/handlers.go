package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/kyc"
	"github.com/banking/kyc-service/internal/pkg/logger"
	"github.com/banking/kyc-service/internal/privacy"
)

// HeaderCustomerID carries the customer on submissions
const HeaderCustomerID = "X-Customer-Id"

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// KycService is the orchestrator surface used by the handlers
type KycService interface {
	ProcessSubmission(ctx context.Context, sub *kyc.Submission) (*domain.SubmissionResult, error)
	GetStatus(ctx context.Context, customerID string) (*domain.KycStatus, error)
	ListDocuments(ctx context.Context, customerID string) ([]domain.KycDocument, error)
	AssessCustomer(ctx context.Context, customerID string) (*domain.RiskAssessment, error)
}

// AuditReader reads a pseudonymised customer's audit trail
type AuditReader interface {
	ListByCustomer(ctx context.Context, customerRef string, limit int) ([]domain.AccessRecord, error)
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Handler serves the KYC HTTP API
type Handler struct {
	svc          KycService
	audit        AuditReader
	checks       map[string]HealthCheck
	defaultBasis domain.LegalBasis
	log          *logger.Logger
}

// NewHandler creates a new handler. checks may be nil.
func NewHandler(svc KycService, audit AuditReader, checks map[string]HealthCheck, log *logger.Logger) *Handler {
	return &Handler{
		svc:          svc,
		audit:        audit,
		checks:       checks,
		defaultBasis: domain.LegalBasisLegalObligation,
		log:          log.Named("handler"),
	}
}

// WithDefaultLegalBasis sets the basis used when a submission names none
func (h *Handler) WithDefaultLegalBasis(b domain.LegalBasis) *Handler {
	h.defaultBasis = b
	return h
}

type submitRequest struct {
	CustomerID string `validate:"required,max=128"`
	DocType    string `validate:"required,doctype"`
	LegalBasis string `validate:"omitempty,legalbasis"`
	Country    string `validate:"omitempty,iso3166_1_alpha2"`
}

type customerParam struct {
	CustomerID string `validate:"required,max=128"`
}

// DocumentView is a document as returned to callers; extracted text is never exposed
type DocumentView struct {
	ID                   uuid.UUID  `json:"id"`
	DocumentType         string     `json:"documentType"`
	VerificationStatus   string     `json:"verificationStatus"`
	ConfidenceScore      float64    `json:"confidenceScore"`
	RiskLevel            string     `json:"riskLevel"`
	Findings             []string   `json:"findings"`
	ProcessingLegalBasis string     `json:"processingLegalBasis"`
	ProcessedAt          *time.Time `json:"processedAt,omitempty"`
	DataRetentionUntil   *time.Time `json:"dataRetentionUntil,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// AssessmentResponse is the result of a manual risk assessment
type AssessmentResponse struct {
	RiskLevel       string    `json:"riskLevel"`
	BaselineScore   int       `json:"baselineScore"`
	AdjustedScore   int       `json:"adjustedScore"`
	DueDiligence    string    `json:"dueDiligence"`
	Fallback        bool      `json:"fallback"`
	Findings        []string  `json:"findings"`
	Recommendations []string  `json:"recommendations"`
	AssessedAt      time.Time `json:"assessedAt"`
}

// Submit handles POST /api/v1/kyc/submit
func (h *Handler) Submit(c echo.Context) error {
	req := submitRequest{
		CustomerID: strings.TrimSpace(c.Request().Header.Get(HeaderCustomerID)),
		DocType:    strings.ToUpper(strings.TrimSpace(c.FormValue("docType"))),
		LegalBasis: strings.ToUpper(strings.TrimSpace(c.FormValue("legalBasis"))),
		Country:    strings.ToUpper(strings.TrimSpace(c.FormValue("country"))),
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file").SetInternal(err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file").SetInternal(err)
	}
	if len(data) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "file is empty")
	}

	docType, _ := domain.ParseDocumentType(req.DocType)
	basis := h.defaultBasis
	if req.LegalBasis != "" {
		basis, _ = domain.ParseLegalBasis(req.LegalBasis)
	}

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	result, err := h.svc.ProcessSubmission(c.Request().Context(), &kyc.Submission{
		CustomerID:   req.CustomerID,
		DocumentType: docType,
		LegalBasis:   basis,
		Country:      req.Country,
		Filename:     fh.Filename,
		ContentType:  contentType,
		Data:         data,
	})
	if result != nil && result.Status == domain.SubmissionInternalError {
		if err != nil {
			h.log.Error("submission failed", zap.String("customer_ref", privacy.HashIdentifier(req.CustomerID)), zap.Error(err))
		}
		return c.JSON(http.StatusInternalServerError, result)
	}
	if err != nil {
		return err
	}
	if result.IsRejected() {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}

// Status handles GET /api/v1/kyc/status/:customerId
func (h *Handler) Status(c echo.Context) error {
	id, err := customerID(c)
	if err != nil {
		return err
	}
	status, err := h.svc.GetStatus(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// Documents handles GET /api/v1/kyc/documents/:customerId
func (h *Handler) Documents(c echo.Context) error {
	id, err := customerID(c)
	if err != nil {
		return err
	}
	docs, err := h.svc.ListDocuments(c.Request().Context(), id)
	if err != nil {
		return err
	}

	views := make([]DocumentView, 0, len(docs))
	for i := range docs {
		views = append(views, toDocumentView(&docs[i]))
	}
	return c.JSON(http.StatusOK, views)
}

// RiskAssessment handles POST /api/v1/kyc/risk-assessment/:customerId
func (h *Handler) RiskAssessment(c echo.Context) error {
	id, err := customerID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.AssessCustomer(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AssessmentResponse{
		RiskLevel:       string(a.Combined.RiskLevel),
		BaselineScore:   a.Baseline.Total,
		AdjustedScore:   a.Combined.AdjustedScore,
		DueDiligence:    string(a.Combined.DueDiligence),
		Fallback:        a.Fallback,
		Findings:        a.Findings,
		Recommendations: a.Recommendations,
		AssessedAt:      a.AssessedAt,
	})
}

// AuditTrail handles GET /api/v1/kyc/audit/:customerId
func (h *Handler) AuditTrail(c echo.Context) error {
	id, err := customerID(c)
	if err != nil {
		return err
	}

	limit := defaultAuditLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxAuditLimit)
	}

	records, err := h.audit.ListByCustomer(c.Request().Context(), privacy.HashIdentifier(id), limit)
	if err != nil {
		return fmt.Errorf("%w: read audit log: %w", domain.ErrProcessingFailed, err)
	}
	return c.JSON(http.StatusOK, records)
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return c.JSON(status, map[string]any{"status": overall, "checks": checks})
}

func customerID(c echo.Context) (string, error) {
	p := customerParam{CustomerID: strings.TrimSpace(c.Param("customerId"))}
	if err := c.Validate(&p); err != nil {
		return "", err
	}
	return p.CustomerID, nil
}

func toDocumentView(d *domain.KycDocument) DocumentView {
	level := domain.RiskLevelPending
	if d.RiskLevel != nil {
		level = string(*d.RiskLevel)
	}
	findings := d.Findings
	if findings == nil {
		findings = []string{}
	}
	return DocumentView{
		ID:                   d.ID,
		DocumentType:         string(d.DocumentType),
		VerificationStatus:   string(d.VerificationStatus),
		ConfidenceScore:      d.ConfidenceScore,
		RiskLevel:            level,
		Findings:             findings,
		ProcessingLegalBasis: string(d.ProcessingLegalBasis),
		ProcessedAt:          d.ProcessedAt,
		DataRetentionUntil:   d.DataRetentionUntil,
		CreatedAt:            d.CreatedAt,
	}
}
