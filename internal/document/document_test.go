package document

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

func TestEvaluate_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		analysis domain.DocumentAnalysis
		want     domain.VerificationStatus
	}{
		{
			name:     "low confidence dominates a valid document",
			analysis: domain.DocumentAnalysis{OverallConfidence: 0.65, ValidDocument: true, NotExpired: true},
			want:     domain.VerificationNeedsReview,
		},
		{
			name:     "low confidence dominates an invalid document",
			analysis: domain.DocumentAnalysis{OverallConfidence: 0.4, ValidDocument: false, NotExpired: false},
			want:     domain.VerificationNeedsReview,
		},
		{
			name:     "invalid",
			analysis: domain.DocumentAnalysis{OverallConfidence: 0.9, ValidDocument: false, NotExpired: true},
			want:     domain.VerificationRejected,
		},
		{
			name:     "expired beats suspicious",
			analysis: domain.DocumentAnalysis{OverallConfidence: 0.9, ValidDocument: true, NotExpired: false, SuspiciousPatterns: []string{"font mismatch"}},
			want:     domain.VerificationRejected,
		},
		{
			name:     "suspicious",
			analysis: domain.DocumentAnalysis{OverallConfidence: 0.9, ValidDocument: true, NotExpired: true, SuspiciousPatterns: []string{"font mismatch"}},
			want:     domain.VerificationNeedsReview,
		},
		{
			name:     "threshold is inclusive",
			analysis: domain.DocumentAnalysis{OverallConfidence: 0.7, ValidDocument: true, NotExpired: true},
			want:     domain.VerificationVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.analysis
			assert.Equal(t, tt.want, Evaluate(&a, DefaultConfidenceThreshold))
		})
	}
}

func TestAnalysisFindings(t *testing.T) {
	a := &domain.DocumentAnalysis{
		OverallConfidence:  0.5,
		ValidDocument:      true,
		NotExpired:         false,
		Warnings:           []string{"MRZ checksum mismatch"},
		SuspiciousPatterns: []string{"photo tampering"},
	}
	assert.Equal(t, []string{
		"Low extraction confidence: 0.50",
		"Document is expired",
		"MRZ checksum mismatch",
		"Suspicious pattern: photo tampering",
	}, AnalysisFindings(a, 0.7))
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("6f1c1f44-9a3e-4c55-8a53-0b5b1f0c2d11")
	at := time.Date(2026, 4, 2, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, "ref/2026/04/02/6f1c1f44-9a3e-4c55-8a53-0b5b1f0c2d11_passport.png",
		ObjectKey("ref", id, "passport.png", at))
	assert.Equal(t, "ref/2026/04/02/6f1c1f44-9a3e-4c55-8a53-0b5b1f0c2d11_scan.pdf",
		ObjectKey("ref", id, `C:\Users\me\..\scan.pdf`, at))
	assert.Equal(t, "ref/2026/04/02/6f1c1f44-9a3e-4c55-8a53-0b5b1f0c2d11_document",
		ObjectKey("ref", id, "", at))
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return key, nil
}

func (s *memStore) Delete(_ context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, location)
	return nil
}

type memRepo struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]domain.KycDocument
	updates []domain.VerificationStatus
}

func newMemRepo() *memRepo { return &memRepo{docs: map[uuid.UUID]domain.KycDocument{}} }

func (r *memRepo) Create(_ context.Context, doc *domain.KycDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memRepo) Update(_ context.Context, doc *domain.KycDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	r.updates = append(r.updates, doc.VerificationStatus)
	return nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

type extractorFunc func(ctx context.Context, req *ExtractionRequest) (string, error)

func (f extractorFunc) ExtractText(ctx context.Context, req *ExtractionRequest) (string, error) {
	return f(ctx, req)
}

type analyzerFunc func(ctx context.Context, req *AnalysisRequest) (*domain.DocumentAnalysis, error)

func (f analyzerFunc) AnalyzeDocument(ctx context.Context, req *AnalysisRequest) (*domain.DocumentAnalysis, error) {
	return f(ctx, req)
}

func staticExtractor(text string) extractorFunc {
	return func(context.Context, *ExtractionRequest) (string, error) { return text, nil }
}

func testUpload() *Upload {
	return &Upload{
		CustomerID:   "cust-1",
		CustomerRef:  "ref-1",
		DocumentType: domain.DocumentPassport,
		LegalBasis:   domain.LegalBasisLegalObligation,
		Country:      "FR",
		Filename:     "passport.png",
		ContentType:  "image/png",
		Data:         []byte("png-bytes"),
	}
}

func TestProcessor_VerifiedDocument(t *testing.T) {
	store, repo := newMemStore(), newMemRepo()
	var seen *AnalysisRequest
	analyzer := analyzerFunc(func(_ context.Context, req *AnalysisRequest) (*domain.DocumentAnalysis, error) {
		seen = req
		return &domain.DocumentAnalysis{
			ExtractedFields:   domain.ExtractedFields{FullName: "Jane Roe", Nationality: "FR"},
			OverallConfidence: 0.93,
			ValidDocument:     true,
			NotExpired:        true,
		}, nil
	})

	p := NewProcessor(store, staticExtractor("P<FRAROE<<JANE"), analyzer, repo, nil,
		ProcessorConfig{RetentionDays: 2555}, logger.NewNop())
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	doc, err := p.Process(context.Background(), testUpload())
	require.NoError(t, err)

	assert.Equal(t, domain.VerificationVerified, doc.VerificationStatus)
	assert.Equal(t, 0.93, doc.ConfidenceScore)
	assert.Equal(t, "Jane Roe", doc.ExtractedData.FullName)
	assert.Equal(t, domain.PerformedByAgent, doc.ProcessedBy)
	assert.Nil(t, doc.RiskLevel)
	assert.Equal(t, time.Date(2033, 4, 29, 12, 0, 0, 0, time.UTC), *doc.DataRetentionUntil)
	assert.Equal(t, []domain.VerificationStatus{domain.VerificationInProgress, domain.VerificationVerified}, repo.updates)

	require.NotNil(t, seen)
	assert.Equal(t, "P<FRAROE<<JANE", seen.ExtractedText)
	assert.Equal(t, "ref-1", seen.CustomerRef)
	assert.Equal(t, "FR", seen.Country)

	assert.Contains(t, store.objects, doc.StoragePath)
	assert.Contains(t, repo.docs, doc.ID)
}

func TestProcessor_LowConfidenceNeedsReview(t *testing.T) {
	analyzer := analyzerFunc(func(context.Context, *AnalysisRequest) (*domain.DocumentAnalysis, error) {
		return &domain.DocumentAnalysis{OverallConfidence: 0.65, ValidDocument: true, NotExpired: true}, nil
	})
	observed := &statusRecorder{}
	p := NewProcessor(newMemStore(), staticExtractor("text"), analyzer, newMemRepo(), observed,
		ProcessorConfig{ConfidenceThreshold: 0.7}, logger.NewNop())

	doc, err := p.Process(context.Background(), testUpload())
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationNeedsReview, doc.VerificationStatus)
	assert.Contains(t, doc.Findings, "Low extraction confidence: 0.65")
	assert.Equal(t, []domain.VerificationStatus{domain.VerificationNeedsReview}, observed.statuses)
}

type statusRecorder struct {
	statuses []domain.VerificationStatus
}

func (r *statusRecorder) ObserveDocument(s domain.VerificationStatus) {
	r.statuses = append(r.statuses, s)
}

func TestProcessor_ExtractionFailureCleansUp(t *testing.T) {
	store, repo := newMemStore(), newMemRepo()
	extractor := extractorFunc(func(context.Context, *ExtractionRequest) (string, error) {
		return "", errors.New("ocr unavailable")
	})
	analyzer := analyzerFunc(func(context.Context, *AnalysisRequest) (*domain.DocumentAnalysis, error) {
		t.Fatal("analyzer must not be called")
		return nil, nil
	})

	p := NewProcessor(store, extractor, analyzer, repo, nil, ProcessorConfig{}, logger.NewNop())
	doc, err := p.Process(context.Background(), testUpload())

	assert.Nil(t, doc)
	assert.ErrorIs(t, err, domain.ErrProcessingFailed)
	assert.ErrorContains(t, err, "ocr unavailable")
	assert.Empty(t, store.objects)
	assert.Empty(t, repo.docs)
}

func TestProcessor_StorageFailure(t *testing.T) {
	store, repo := newMemStore(), newMemRepo()
	store.putErr = errors.New("bucket missing")

	p := NewProcessor(store, staticExtractor("text"), nil, repo, nil, ProcessorConfig{}, logger.NewNop())
	_, err := p.Process(context.Background(), testUpload())

	assert.ErrorIs(t, err, domain.ErrProcessingFailed)
	assert.Empty(t, repo.docs)
}

func TestProcessor_CancelledAnalysisCleansUp(t *testing.T) {
	store, repo := newMemStore(), newMemRepo()
	ctx, cancel := context.WithCancel(context.Background())
	analyzer := analyzerFunc(func(ctx context.Context, _ *AnalysisRequest) (*domain.DocumentAnalysis, error) {
		cancel()
		return nil, ctx.Err()
	})

	p := NewProcessor(store, staticExtractor("text"), analyzer, repo, nil, ProcessorConfig{}, logger.NewNop())
	_, err := p.Process(ctx, testUpload())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.objects)
	assert.Empty(t, repo.docs)
}
