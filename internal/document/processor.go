package document

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
	"github.com/banking/kyc-service/internal/privacy"
)

// ObjectStore holds raw document bytes
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, location string) error
}

// ExtractionRequest is the input to text extraction
type ExtractionRequest struct {
	DocumentType domain.DocumentType
	Filename     string
	ContentType  string
	Data         []byte
}

// TextExtractor turns a document image or PDF into text
type TextExtractor interface {
	ExtractText(ctx context.Context, req *ExtractionRequest) (string, error)
}

// AnalysisRequest is the input to document analysis
type AnalysisRequest struct {
	DocumentType  domain.DocumentType `json:"document_type"`
	Country       string              `json:"country,omitempty"`
	ExtractedText string              `json:"extracted_text"`
	CustomerRef   string              `json:"customer_ref"`
	LegalBasis    domain.LegalBasis   `json:"legal_basis"`
}

// Analyzer validates extracted text and reads structured fields from it
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, req *AnalysisRequest) (*domain.DocumentAnalysis, error)
}

// Repository persists document records
type Repository interface {
	Create(ctx context.Context, doc *domain.KycDocument) error
	Update(ctx context.Context, doc *domain.KycDocument) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StatusObserver records document outcomes, e.g. as metrics
type StatusObserver interface {
	ObserveDocument(status domain.VerificationStatus)
}

type nopStatusObserver struct{}

func (nopStatusObserver) ObserveDocument(domain.VerificationStatus) {}

// Upload is one raw document submission
type Upload struct {
	CustomerID   string
	CustomerRef  string
	DocumentType domain.DocumentType
	LegalBasis   domain.LegalBasis
	Country      string
	Filename     string
	ContentType  string
	Data         []byte
}

// ProcessorConfig holds thresholds and per-call budgets
type ProcessorConfig struct {
	ConfidenceThreshold float64
	RetentionDays       int
	StorageTimeout      time.Duration
	ExtractionTimeout   time.Duration
	AnalysisTimeout     time.Duration
}

// Processor stores, extracts and analyses a document and drives its status
type Processor struct {
	store     ObjectStore
	extractor TextExtractor
	analyzer  Analyzer
	repo      Repository
	observer  StatusObserver

	cfg ProcessorConfig
	log *logger.Logger
	now func() time.Time
}

// NewProcessor creates a new document processor. observer may be nil.
func NewProcessor(
	store ObjectStore,
	extractor TextExtractor,
	analyzer Analyzer,
	repo Repository,
	observer StatusObserver,
	cfg ProcessorConfig,
	log *logger.Logger,
) *Processor {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if observer == nil {
		observer = nopStatusObserver{}
	}
	return &Processor{
		store:     store,
		extractor: extractor,
		analyzer:  analyzer,
		repo:      repo,
		observer:  observer,
		cfg:       cfg,
		log:       log.Named("document_processor"),
		now:       time.Now,
	}
}

// Process runs the document through storage, extraction and analysis and
// persists the decided status. On any failure after the record was created,
// the record and the stored object are removed and an ErrProcessingFailed
// error is returned.
func (p *Processor) Process(ctx context.Context, up *Upload) (*domain.KycDocument, error) {
	start := p.now()

	doc := domain.NewKycDocument(up.CustomerID, up.DocumentType, up.LegalBasis, start)
	retention := privacy.RetentionUntil(start, p.cfg.RetentionDays)
	doc.DataRetentionUntil = &retention

	log := p.log.WithCustomer(up.CustomerRef).WithDocument(doc.ID.String(), string(up.DocumentType))

	if err := p.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("%w: create document: %w", domain.ErrProcessingFailed, err)
	}

	if err := p.run(ctx, doc, up); err != nil {
		log.Error("document processing failed", logger.ErrorField(err))
		p.cleanup(ctx, doc, log)
		return nil, fmt.Errorf("%w: %w", domain.ErrProcessingFailed, err)
	}

	p.observer.ObserveDocument(doc.VerificationStatus)
	log.DocumentProcessed(doc.ID.String(), string(doc.VerificationStatus), doc.ConfidenceScore, time.Since(start).Milliseconds())

	return doc, nil
}

func (p *Processor) run(ctx context.Context, doc *domain.KycDocument, up *Upload) error {
	location, err := p.put(ctx, doc, up)
	if err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	doc.StoragePath = location
	doc.VerificationStatus = domain.VerificationInProgress
	doc.UpdatedAt = p.now()
	if err := p.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("mark in progress: %w", err)
	}

	text, err := p.extract(ctx, up)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	analysis, err := p.analyze(ctx, up, text)
	if err != nil {
		return fmt.Errorf("analyze document: %w", err)
	}

	now := p.now()
	doc.VerificationStatus = Evaluate(analysis, p.cfg.ConfidenceThreshold)
	doc.ConfidenceScore = analysis.OverallConfidence
	fields := analysis.ExtractedFields
	doc.ExtractedData = &fields
	doc.AppendFindings(AnalysisFindings(analysis, p.cfg.ConfidenceThreshold)...)
	doc.ProcessedAt = &now
	doc.ProcessedBy = domain.PerformedByAgent
	doc.UpdatedAt = now

	if err := p.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("save verification result: %w", err)
	}
	return nil
}

func (p *Processor) put(ctx context.Context, doc *domain.KycDocument, up *Upload) (string, error) {
	sctx, cancel := withTimeout(ctx, p.cfg.StorageTimeout)
	defer cancel()
	return p.store.Put(sctx, ObjectKey(up.CustomerRef, doc.ID, up.Filename, doc.CreatedAt), up.Data, up.ContentType)
}

func (p *Processor) extract(ctx context.Context, up *Upload) (string, error) {
	ectx, cancel := withTimeout(ctx, p.cfg.ExtractionTimeout)
	defer cancel()
	return p.extractor.ExtractText(ectx, &ExtractionRequest{
		DocumentType: up.DocumentType,
		Filename:     up.Filename,
		ContentType:  up.ContentType,
		Data:         up.Data,
	})
}

func (p *Processor) analyze(ctx context.Context, up *Upload, text string) (*domain.DocumentAnalysis, error) {
	actx, cancel := withTimeout(ctx, p.cfg.AnalysisTimeout)
	defer cancel()
	analysis, err := p.analyzer.AnalyzeDocument(actx, &AnalysisRequest{
		DocumentType:  up.DocumentType,
		Country:       up.Country,
		ExtractedText: text,
		CustomerRef:   up.CustomerRef,
		LegalBasis:    up.LegalBasis,
	})
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, errors.New("empty analysis")
	}
	return analysis, nil
}

// cleanup removes a half-processed document. It runs even if ctx was cancelled.
func (p *Processor) cleanup(ctx context.Context, doc *domain.KycDocument, log *logger.Logger) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if doc.StoragePath != "" {
		if err := p.store.Delete(cctx, doc.StoragePath); err != nil {
			log.Warn("failed to delete stored object", logger.ErrorField(err))
		}
	}
	if err := p.repo.Delete(cctx, doc.ID); err != nil {
		log.Warn("failed to delete document record", logger.ErrorField(err))
	}
}

const cleanupTimeout = 10 * time.Second

// ObjectKey builds the storage key "<customerRef>/<yyyy/mm/dd>/<id>_<filename>"
func ObjectKey(customerRef string, id uuid.UUID, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	return fmt.Sprintf("%s/%s/%s_%s", customerRef, at.UTC().Format("2006/01/02"), id, name)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
