package kyc

import (
	"context"

	"github.com/banking/kyc-service/internal/document"
	"github.com/banking/kyc-service/internal/domain"
)

// ConsentChecker reports whether a customer consented to a processing purpose
type ConsentChecker interface {
	HasValidConsent(ctx context.Context, customerID, purpose string) (bool, error)
}

// Router asks the supervising agent where a task should go
type Router interface {
	Route(ctx context.Context, req *domain.RoutingRequest) (*domain.RoutingDecision, error)
}

// DocumentProcessor stores, extracts and verifies one upload
type DocumentProcessor interface {
	Process(ctx context.Context, up *document.Upload) (*domain.KycDocument, error)
}

// DocumentStore reads a customer's documents and persists risk write-backs
type DocumentStore interface {
	ListByCustomer(ctx context.Context, customerID string) ([]domain.KycDocument, error)
	// SaveRiskResults writes risk level and findings for all docs atomically
	SaveRiskResults(ctx context.Context, docs []domain.KycDocument) error
}

// ProfileBuilder assembles the risk profile for a customer
type ProfileBuilder interface {
	Build(ctx context.Context, customerID, customerRef string, doc *domain.KycDocument) (*domain.CustomerRiskProfile, error)
}

// RiskAssessor scores a profile
type RiskAssessor interface {
	Assess(ctx context.Context, profile *domain.CustomerRiskProfile) (*domain.RiskAssessment, error)
}

// AuditSink records access to customer data
type AuditSink interface {
	LogAccess(ctx context.Context, rec *domain.AccessRecord) error
}

// AlertPublisher hands compliance alerts to the compliance team
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.ComplianceAlert) error
}

// Observer records orchestrator outcomes, e.g. as metrics
type Observer interface {
	ObserveSubmission(status string)
	ObserveAuditFailure()
}

type nopObserver struct{}

func (nopObserver) ObserveSubmission(string) {}
func (nopObserver) ObserveAuditFailure()     {}

type nopAlerts struct{}

func (nopAlerts) PublishAlert(context.Context, *domain.ComplianceAlert) error { return nil }
