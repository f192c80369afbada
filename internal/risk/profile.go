package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

// CustomerReader loads the stored customer record
type CustomerReader interface {
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
}

// ProductReader lists the products a customer is enrolled in
type ProductReader interface {
	ListProducts(ctx context.Context, customerID string) ([]domain.Product, error)
}

// TransactionReader lists a customer's transactions since a point in time
type TransactionReader interface {
	ListTransactions(ctx context.Context, customerID string, since time.Time) ([]domain.FinancialTransaction, error)
}

// NameScreener screens a person against sanctions and PEP watchlists
type NameScreener interface {
	Screen(ctx context.Context, fullName, country string) (*domain.ScreeningOutcome, error)
}

// ProfileBuilder assembles a CustomerRiskProfile from several collaborator reads
type ProfileBuilder struct {
	customers    CustomerReader
	products     ProductReader
	transactions TransactionReader
	screener     NameScreener
	analyzer     *TransactionAnalyzer
	cfg          *config.PatternsConfig
	log          *logger.Logger
	now          func() time.Time
}

// NewProfileBuilder creates a new profile builder. screener may be nil.
func NewProfileBuilder(
	customers CustomerReader,
	products ProductReader,
	transactions TransactionReader,
	screener NameScreener,
	cfg *config.PatternsConfig,
	log *logger.Logger,
) *ProfileBuilder {
	return &ProfileBuilder{
		customers:    customers,
		products:     products,
		transactions: transactions,
		screener:     screener,
		analyzer:     NewTransactionAnalyzer(cfg),
		cfg:          cfg,
		log:          log.Named("profile_builder"),
		now:          time.Now,
	}
}

// Build assembles the profile for customerID. The verified document's
// extracted fields fill gaps in the stored record; a customer without a
// stored record is profiled from the document alone.
func (b *ProfileBuilder) Build(ctx context.Context, customerID, customerRef string, doc *domain.KycDocument) (*domain.CustomerRiskProfile, error) {
	var (
		customer *domain.Customer
		products []domain.Product
		txs      []domain.FinancialTransaction
	)

	since := b.now().AddDate(0, 0, -b.cfg.TrailingWindowDays)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := b.customers.GetCustomer(gctx, customerID)
		if errors.Is(err, domain.ErrNotFound) {
			b.log.Debug("no customer record, profiling from document", logger.StringField("customer_ref", customerRef))
			return nil
		}
		if err != nil {
			return fmt.Errorf("load customer: %w", err)
		}
		customer = c
		return nil
	})

	g.Go(func() error {
		p, err := b.products.ListProducts(gctx, customerID)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		products = p
		return nil
	})

	g.Go(func() error {
		t, err := b.transactions.ListTransactions(gctx, customerID, since)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		txs = t
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile := &domain.CustomerRiskProfile{
		CustomerRef:  customerRef,
		EntityType:   domain.EntityIndividual,
		Products:     products,
		Transactions: b.analyzer.Summarize(txs),
	}

	fullName := ""
	if customer != nil {
		fullName = customer.FullName
		applyCustomer(profile, customer, b.now())
	}

	if doc != nil {
		profile.DocumentFindings = append(profile.DocumentFindings, doc.Findings...)
		if fields := doc.ExtractedData; fields != nil {
			if profile.Nationality == "" {
				profile.Nationality = fields.Nationality
			}
			if profile.ResidenceCountry == "" {
				profile.ResidenceCountry = fields.ResidenceCountry()
			}
			if fullName == "" {
				fullName = fields.FullName
			}
		}
	}

	b.applyScreening(ctx, profile, fullName)

	return profile, nil
}

func applyCustomer(p *domain.CustomerRiskProfile, c *domain.Customer, now time.Time) {
	p.Nationality = c.Nationality
	p.ResidenceCountry = c.ResidenceCountry
	p.Occupation = c.Occupation
	p.Industry = c.Industry
	p.IncomeRange = c.IncomeRange
	p.SourceOfWealth = c.SourceOfWealth
	if c.EntityType != "" {
		p.EntityType = c.EntityType
	}
	p.NetWorth = c.NetWorth
	p.AccountAgeMonths = c.AccountAgeMonths(now)
	p.ExpectedMonthlyVolume = c.ExpectedMonthlyVolume
	p.IsPEP = c.IsPEP
	p.PEPLevel = c.PEPLevel
	p.SanctionsMatch = c.SanctionsMatch
	p.AdverseMediaHits = c.AdverseMediaHits
}

// applyScreening merges live watchlist matches into the stored screening results
func (b *ProfileBuilder) applyScreening(ctx context.Context, p *domain.CustomerRiskProfile, fullName string) {
	if b.screener == nil || fullName == "" {
		return
	}

	outcome, err := b.screener.Screen(ctx, fullName, p.Nationality)
	if err != nil {
		b.log.Warn("watchlist screening failed", logger.ErrorField(err))
		return
	}

	if outcome.Sanctions.Matched {
		p.SanctionsMatch = true
	}
	if outcome.PEP.Matched {
		p.IsPEP = true
		if p.PEPLevel == "" {
			p.PEPLevel = outcome.PEP.Level
		}
	}
}
