package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/banking/kyc-service/internal/document"
	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
	"github.com/banking/kyc-service/internal/privacy"
)

var tracer = otel.Tracer("github.com/banking/kyc-service/internal/kyc")

// Config holds orchestrator settings
type Config struct {
	ConsentPurpose      string
	ConfidenceThreshold float64
	LockWaitTimeout     time.Duration
	RoutingTimeout      time.Duration
}

// Submission is one document submitted for KYC
type Submission struct {
	CustomerID   string
	DocumentType domain.DocumentType
	LegalBasis   domain.LegalBasis
	Country      string
	Filename     string
	ContentType  string
	Data         []byte
}

// Orchestrator sequences consent, routing, document processing, risk
// assessment and status aggregation for a submission
type Orchestrator struct {
	consent   ConsentChecker
	router    Router
	processor DocumentProcessor
	documents DocumentStore
	profiles  ProfileBuilder
	assessor  RiskAssessor
	audit     AuditSink
	alerts    AlertPublisher
	locker    Locker
	observer  Observer

	cfg Config
	log *logger.Logger
	now func() time.Time
}

// Deps bundles the orchestrator collaborators. Alerts, Locker and Observer are optional.
type Deps struct {
	Consent   ConsentChecker
	Router    Router
	Processor DocumentProcessor
	Documents DocumentStore
	Profiles  ProfileBuilder
	Assessor  RiskAssessor
	Audit     AuditSink
	Alerts    AlertPublisher
	Locker    Locker
	Observer  Observer
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Deps, cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.ConsentPurpose == "" {
		cfg.ConsentPurpose = "KYC_VERIFICATION"
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = document.DefaultConfidenceThreshold
	}
	o := &Orchestrator{
		consent:   deps.Consent,
		router:    deps.Router,
		processor: deps.Processor,
		documents: deps.Documents,
		profiles:  deps.Profiles,
		assessor:  deps.Assessor,
		audit:     deps.Audit,
		alerts:    deps.Alerts,
		locker:    deps.Locker,
		observer:  deps.Observer,
		cfg:       cfg,
		log:       log.Named("kyc_orchestrator"),
		now:       time.Now,
	}
	if o.alerts == nil {
		o.alerts = nopAlerts{}
	}
	if o.locker == nil {
		o.locker = NewKeyedMutex()
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return o
}

// ProcessSubmission runs a document submission end to end. Policy rejections
// come back as a REJECTED result with a nil error. Collaborator failures
// return an ErrProcessingFailed error; malformed stored data returns an
// INTERNAL_ERROR result together with the error.
func (o *Orchestrator) ProcessSubmission(ctx context.Context, sub *Submission) (*domain.SubmissionResult, error) {
	ref := privacy.HashIdentifier(sub.CustomerID)
	ctx = context.WithValue(ctx, logger.CustomerRefKey, ref)

	ctx, span := tracer.Start(ctx, "kyc.ProcessSubmission")
	defer span.End()
	span.SetAttributes(
		attribute.String("kyc.customer_ref", ref),
		attribute.String("kyc.document_type", string(sub.DocumentType)),
	)

	log := o.log.WithContext(ctx)
	log.SubmissionReceived(ref, string(sub.DocumentType), string(sub.LegalBasis))

	result, err := o.processSubmission(ctx, sub, ref, log)
	switch {
	case err != nil && domain.IsInvariant(err):
		span.RecordError(err)
		span.SetStatus(codes.Error, "invariant violation")
		o.observer.ObserveSubmission(domain.SubmissionInternalError)
		return &domain.SubmissionResult{Status: domain.SubmissionInternalError, Message: domain.MsgInternalError}, err
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing failed")
		o.observer.ObserveSubmission(domain.SubmissionFailed)
		return nil, err
	}

	span.SetAttributes(attribute.String("kyc.result", result.Status))
	o.observer.ObserveSubmission(result.Status)
	return result, nil
}

func (o *Orchestrator) processSubmission(ctx context.Context, sub *Submission, ref string, log *logger.Logger) (*domain.SubmissionResult, error) {
	// (a) consent, fail closed
	ok, err := o.consent.HasValidConsent(ctx, sub.CustomerID, o.cfg.ConsentPurpose)
	if err != nil {
		o.record(ctx, ref, domain.AuditAccessDenied, sub.LegalBasis, []string{domain.DataConsent}, false,
			map[string]any{"step": "consent_check", "error": err.Error()})
		return nil, fmt.Errorf("%w: consent check: %w", domain.ErrProcessingFailed, err)
	}
	if !ok {
		o.record(ctx, ref, domain.AuditAccessDenied, sub.LegalBasis, []string{domain.DataConsent}, false,
			map[string]any{"step": "consent_check", "reason": "consent_missing", "purpose": o.cfg.ConsentPurpose})
		log.SubmissionRejected(ref, domain.MsgConsentRequired)
		return domain.Rejected(domain.MsgConsentRequired), nil
	}

	// (b) routing and privacy check
	prior, err := o.documents.ListByCustomer(ctx, sub.CustomerID)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditView, sub.LegalBasis, "list_documents", err)
		return nil, wrapStoreErr("list documents", err)
	}

	decision, err := o.route(ctx, sub, ref, prior)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditAccessDenied, sub.LegalBasis, "routing", err)
		return nil, fmt.Errorf("%w: routing: %w", domain.ErrProcessingFailed, err)
	}
	if !decision.PrivacyChecksPassed {
		o.record(ctx, ref, domain.AuditAccessDenied, sub.LegalBasis, []string{domain.DataDocument}, false,
			map[string]any{"step": "routing", "reason": "privacy_check_failed", "escalation": decision.EscalationReason})
		log.SubmissionRejected(ref, domain.MsgPrivacyCheckFailed)
		return domain.Rejected(domain.MsgPrivacyCheckFailed), nil
	}

	// (c)-(e) hold the customer lock: the processor's final update rewrites the
	// risk columns, so no write-back may land while this document is in flight
	unlock, err := o.lockCustomer(ctx, ref)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditProcess, sub.LegalBasis, "customer_lock", err)
		return nil, err
	}
	defer unlock()

	// (c) storage, extraction and analysis
	doc, err := o.processor.Process(ctx, &document.Upload{
		CustomerID:   sub.CustomerID,
		CustomerRef:  ref,
		DocumentType: sub.DocumentType,
		LegalBasis:   sub.LegalBasis,
		Country:      sub.Country,
		Filename:     sub.Filename,
		ContentType:  sub.ContentType,
		Data:         sub.Data,
	})
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditProcess, sub.LegalBasis, "document_processing", err)
		return nil, err
	}
	o.record(ctx, ref, domain.AuditProcess, sub.LegalBasis, documentCategories(sub.DocumentType), true, map[string]any{
		"document_id":         doc.ID.String(),
		"document_type":       doc.DocumentType,
		"verification_status": doc.VerificationStatus,
		"confidence":          doc.ConfidenceScore,
		"routed_to":           decision.SelectedAgent,
	})

	if doc.VerificationStatus == domain.VerificationNeedsReview {
		o.raise(ctx, domain.AlertManualReview, ref, &doc.ID, "", 0,
			"Document requires manual review",
			fmt.Sprintf("%s document flagged for review", doc.DocumentType))
	}

	// (d) risk assessment, only for verified documents
	if doc.VerificationStatus == domain.VerificationVerified {
		if _, err := o.assessAndWriteBack(ctx, sub.CustomerID, ref, sub.LegalBasis, doc); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrProcessingFailed, ctxErr)
			}
			if domain.IsInvariant(err) {
				return nil, err
			}
			// The document stands; the assessment can be re-run on demand
			log.Error("risk assessment failed", logger.ErrorField(err))
		}
	}

	// (e) aggregate status
	docs, err := o.documents.ListByCustomer(ctx, sub.CustomerID)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditView, sub.LegalBasis, "aggregate_status", err)
		return nil, wrapStoreErr("list documents", err)
	}

	current := findDocument(docs, doc.ID)
	if current == nil {
		current = doc
	}

	docID := current.ID
	return &domain.SubmissionResult{
		Status:     domain.SubmissionSuccess,
		Message:    domain.MsgProcessed,
		DocumentID: &docID,
		KycStatus: &domain.KycStatus{
			DocumentStatus:  string(current.VerificationStatus),
			RiskLevel:       riskLevelOrPending(current.RiskLevel),
			ConfidenceScore: current.ConfidenceScore,
			OverallStatus:   AggregateStatus(docs),
			Findings:        current.Findings,
		},
	}, nil
}

func (o *Orchestrator) route(ctx context.Context, sub *Submission, ref string, prior []domain.KycDocument) (*domain.RoutingDecision, error) {
	rctx := ctx
	if o.cfg.RoutingTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, o.cfg.RoutingTimeout)
		defer cancel()
	}

	decision, err := o.router.Route(rctx, &domain.RoutingRequest{
		RequestType:          domain.RequestDocumentAnalysis,
		CustomerRef:          ref,
		TaskDescription:      fmt.Sprintf("Verify %s document", sub.DocumentType),
		LegalBasis:           sub.LegalBasis,
		ConfidenceThreshold:  o.cfg.ConfidenceThreshold,
		PriorSubmissionCount: len(prior),
		CurrentStatus:        string(AggregateStatus(prior)),
		RiskIndicators:       riskIndicators(prior),
	})
	if err != nil {
		return nil, err
	}
	if decision == nil {
		return nil, errors.New("empty routing decision")
	}
	return decision, nil
}

// AssessCustomer re-runs the risk assessment against the customer's latest
// verified document and writes the result back
func (o *Orchestrator) AssessCustomer(ctx context.Context, customerID string) (*domain.RiskAssessment, error) {
	ref := privacy.HashIdentifier(customerID)
	ctx = context.WithValue(ctx, logger.CustomerRefKey, ref)

	ctx, span := tracer.Start(ctx, "kyc.AssessCustomer")
	defer span.End()

	basis := domain.LegalBasisLegalObligation
	unlock, err := o.lockCustomer(ctx, ref)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditUpdate, basis, "customer_lock", err)
		return nil, err
	}
	defer unlock()

	docs, err := o.documents.ListByCustomer(ctx, customerID)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditView, basis, "list_documents", err)
		return nil, wrapStoreErr("list documents", err)
	}

	latest := latestVerified(docs)
	if latest == nil {
		err := fmt.Errorf("no verified document: %w", domain.ErrNotFound)
		o.recordFailure(ctx, ref, domain.AuditView, basis, "latest_verified", err)
		return nil, err
	}

	assessment, err := o.assessAndWriteBack(ctx, customerID, ref, latest.ProcessingLegalBasis, latest)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return assessment, nil
}

// lockCustomer takes the per-customer lock, waiting at most LockWaitTimeout
func (o *Orchestrator) lockCustomer(ctx context.Context, ref string) (func(), error) {
	lockCtx := ctx
	if o.cfg.LockWaitTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, o.cfg.LockWaitTimeout)
		defer cancel()
	}
	return o.locker.Lock(lockCtx, privacy.LockKey(ref))
}

// assessAndWriteBack runs the risk assessment and writes the level and
// findings onto every document of the customer. Callers hold the customer lock.
func (o *Orchestrator) assessAndWriteBack(ctx context.Context, customerID, ref string, basis domain.LegalBasis, doc *domain.KycDocument) (*domain.RiskAssessment, error) {
	profile, err := o.profiles.Build(ctx, customerID, ref, doc)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditProcess, basis, "risk_profile", err)
		return nil, fmt.Errorf("build risk profile: %w", err)
	}
	o.record(ctx, ref, domain.AuditView, basis, []string{domain.DataIdentity, domain.DataFinancial}, true,
		map[string]any{"step": "risk_profile", "products": len(profile.Products), "transactions": profile.Transactions.TransactionCount})

	assessment, err := o.assessor.Assess(ctx, profile)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditProcess, basis, "risk_assessment", err)
		return nil, fmt.Errorf("assess risk: %w", err)
	}

	docs, err := o.documents.ListByCustomer(ctx, customerID)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditUpdate, basis, "risk_write_back", err)
		return nil, wrapStoreErr("list documents", err)
	}

	// Nothing is persisted once the caller has gone away
	if err := ctx.Err(); err != nil {
		o.recordFailure(ctx, ref, domain.AuditUpdate, basis, "risk_write_back", err)
		return nil, err
	}

	now := o.now()
	level := assessment.Combined.RiskLevel
	for i := range docs {
		l := level
		docs[i].RiskLevel = &l
		docs[i].AppendFindings(assessment.Findings...)
		docs[i].UpdatedAt = now
	}

	if err := o.documents.SaveRiskResults(ctx, docs); err != nil {
		o.recordFailure(ctx, ref, domain.AuditUpdate, basis, "risk_write_back", err)
		return nil, wrapStoreErr("save risk results", err)
	}

	o.record(ctx, ref, domain.AuditUpdate, basis, []string{domain.DataRisk, domain.DataDocument}, true, map[string]any{
		"risk_level":     level,
		"baseline_score": assessment.Baseline.Total,
		"adjusted_score": assessment.Combined.AdjustedScore,
		"fallback":       assessment.Fallback,
		"documents":      len(docs),
	})

	o.raiseAssessmentAlerts(ctx, ref, &doc.ID, assessment)

	return assessment, nil
}

func (o *Orchestrator) raiseAssessmentAlerts(ctx context.Context, ref string, docID *uuid.UUID, a *domain.RiskAssessment) {
	sar := a.Opinion != nil && a.Opinion.Flags.SARConsideration
	if !sar && !a.IsHighRisk() {
		return
	}
	score := a.Combined.AdjustedScore
	level := a.Combined.RiskLevel

	if sar {
		o.raise(ctx, domain.AlertSARConsideration, ref, docID, level, score,
			"SAR consideration flagged",
			"Risk assessment recommends considering a Suspicious Activity Report")
	}
	if level == domain.RiskLevelCritical {
		o.raise(ctx, domain.AlertCriticalRisk, ref, docID, level, score,
			"Critical customer risk",
			fmt.Sprintf("Customer assessed at %d (%s); senior approval required", score, level))
	}
}

// raise publishes an alert; failures are logged only
func (o *Orchestrator) raise(ctx context.Context, t domain.AlertType, ref string, docID *uuid.UUID, level domain.RiskLevel, score int, title, description string) {
	alert := domain.NewComplianceAlert(t, ref, title, description, o.now())
	alert.DocumentID = docID
	alert.RiskLevel = level
	alert.RiskScore = score

	if err := o.alerts.PublishAlert(ctx, alert); err != nil {
		o.log.Warn("failed to publish compliance alert",
			logger.StringField("alert_type", string(t)),
			logger.ErrorField(err),
		)
		return
	}
	o.log.AlertRaised(alert.ID.String(), string(t), ref, score)
}

// GetAggregateStatus recomputes the customer's aggregate status
func (o *Orchestrator) GetAggregateStatus(ctx context.Context, customerID string) (domain.KycAggregateStatus, error) {
	docs, err := o.documents.ListByCustomer(ctx, customerID)
	if err != nil {
		return "", wrapStoreErr("list documents", err)
	}
	return AggregateStatus(docs), nil
}

// GetStatus returns the status summary for a customer
func (o *Orchestrator) GetStatus(ctx context.Context, customerID string) (*domain.KycStatus, error) {
	ref := privacy.HashIdentifier(customerID)
	docs, err := o.documents.ListByCustomer(ctx, customerID)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditView, domain.LegalBasisLegalObligation, "status", err)
		return nil, wrapStoreErr("list documents", err)
	}
	o.record(ctx, ref, domain.AuditView, domain.LegalBasisLegalObligation, []string{domain.DataDocument, domain.DataRisk}, true,
		map[string]any{"step": "status", "documents": len(docs)})
	return Summarize(docs), nil
}

// ListDocuments returns the customer's documents, newest first
func (o *Orchestrator) ListDocuments(ctx context.Context, customerID string) ([]domain.KycDocument, error) {
	ref := privacy.HashIdentifier(customerID)
	docs, err := o.documents.ListByCustomer(ctx, customerID)
	if err != nil {
		o.recordFailure(ctx, ref, domain.AuditView, domain.LegalBasisLegalObligation, "documents", err)
		return nil, wrapStoreErr("list documents", err)
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	o.record(ctx, ref, domain.AuditView, domain.LegalBasisLegalObligation, []string{domain.DataDocument}, true,
		map[string]any{"step": "documents", "documents": len(docs)})
	return docs, nil
}

// record writes an audit entry. Failures are logged and counted, never returned.
func (o *Orchestrator) record(ctx context.Context, ref string, action domain.AuditAction, basis domain.LegalBasis, categories []string, success bool, details map[string]any) {
	if o.audit == nil {
		return
	}

	raw, err := json.Marshal(details)
	if err != nil {
		raw = nil
	}

	rec := &domain.AccessRecord{
		ID:             uuid.New(),
		CustomerRef:    ref,
		Action:         action,
		LegalBasis:     basis,
		PerformedBy:    domain.PerformedByRisk,
		DataCategories: categories,
		Success:        success,
		Details:        raw,
		CreatedAt:      o.now(),
	}

	if err := o.audit.LogAccess(ctx, rec); err != nil {
		o.observer.ObserveAuditFailure()
		o.log.AuditWriteFailed("audit", string(action), err)
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, ref string, action domain.AuditAction, basis domain.LegalBasis, step string, cause error) {
	o.record(ctx, ref, action, basis, []string{domain.DataDocument}, false,
		map[string]any{"step": step, "error": cause.Error()})
}

func wrapStoreErr(op string, err error) error {
	if domain.IsInvariant(err) || errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrProcessingFailed, op, err)
}

func documentCategories(t domain.DocumentType) []string {
	if t.IsIdentity() || t == domain.DocumentDriversLicense {
		return []string{domain.DataDocument, domain.DataIdentity, domain.DataBiometric}
	}
	return []string{domain.DataDocument, domain.DataIdentity}
}

func riskIndicators(docs []domain.KycDocument) []string {
	seen := map[string]struct{}{}
	var out []string
	for i := range docs {
		var indicator string
		switch docs[i].VerificationStatus {
		case domain.VerificationRejected:
			indicator = "PRIOR_REJECTED_DOCUMENT"
		case domain.VerificationNeedsReview:
			indicator = "PRIOR_DOCUMENT_UNDER_REVIEW"
		default:
			if l := docs[i].RiskLevel; l != nil && l.Rank() >= domain.RiskLevelHigh.Rank() {
				indicator = "PRIOR_" + string(*l) + "_RISK"
			}
		}
		if indicator == "" {
			continue
		}
		if _, ok := seen[indicator]; !ok {
			seen[indicator] = struct{}{}
			out = append(out, indicator)
		}
	}
	return out
}

func latestVerified(docs []domain.KycDocument) *domain.KycDocument {
	var latest *domain.KycDocument
	for i := range docs {
		d := &docs[i]
		if d.VerificationStatus != domain.VerificationVerified {
			continue
		}
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) {
			latest = d
		}
	}
	return latest
}

func findDocument(docs []domain.KycDocument, id uuid.UUID) *domain.KycDocument {
	for i := range docs {
		if docs[i].ID == id {
			return &docs[i]
		}
	}
	return nil
}

func riskLevelOrPending(l *domain.RiskLevel) string {
	if l == nil {
		return domain.RiskLevelPending
	}
	return string(*l)
}
