package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/banking/kyc-service/internal/domain"
)

// CustomerRepository reads customer records, their products and their
// transaction history
type CustomerRepository struct {
	store
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sql.DB, queryTimeout time.Duration) *CustomerRepository {
	return &CustomerRepository{store{db: db, timeout: queryTimeout}}
}

// GetCustomer loads a customer record
func (r *CustomerRepository) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var (
		c                                                         domain.Customer
		nationality, residence, occupation, industry, income, sow sql.NullString
		entityType, pepLevel                                      sql.NullString
		netWorth, expectedVolume                                  decimal.NullDecimal
		openedAt                                                  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `SELECT id, full_name, nationality, residence_country,
		occupation, industry, income_range, source_of_wealth, entity_type, net_worth,
		account_opened_at, expected_monthly_volume, is_pep, pep_level, sanctions_match, adverse_media_hits
		FROM customers WHERE id = $1`, id).Scan(
		&c.ID, &c.FullName, &nationality, &residence,
		&occupation, &industry, &income, &sow, &entityType, &netWorth,
		&openedAt, &expectedVolume, &c.IsPEP, &pepLevel, &c.SanctionsMatch, &c.AdverseMediaHits,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}

	if c.EntityType, err = domain.ParseEntityType(entityType.String); err != nil {
		return nil, err
	}
	if c.PEPLevel, err = domain.ParsePEPLevel(pepLevel.String); err != nil {
		return nil, err
	}

	c.Nationality = nationality.String
	c.ResidenceCountry = residence.String
	c.Occupation = occupation.String
	c.Industry = industry.String
	c.IncomeRange = income.String
	c.SourceOfWealth = sow.String
	c.NetWorth = netWorth.Decimal
	c.ExpectedMonthlyVolume = expectedVolume.Decimal
	c.AccountOpenedAt = timePtr(openedAt)

	return &c, nil
}

// ListProducts returns the products a customer is enrolled in
func (r *CustomerRepository) ListProducts(ctx context.Context, customerID string) ([]domain.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT p.id, p.product_type, p.name, p.risk_level, p.risk_score
		FROM customer_products cp JOIN products p ON p.id = cp.product_id
		WHERE cp.customer_id = $1 ORDER BY p.name`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var (
			p           domain.Product
			productType string
			tier        string
			score       sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &productType, &p.Name, &tier, &score); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Type = domain.ProductType(productType)
		if p.RiskTier, err = domain.ParseProductRiskTier(tier); err != nil {
			return nil, err
		}
		if score.Valid {
			v := int(score.Int64)
			p.RiskScore = &v
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// ListTransactions returns a customer's transactions since the given time
func (r *CustomerRepository) ListTransactions(ctx context.Context, customerID string, since time.Time) ([]domain.FinancialTransaction, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, customer_id, amount, currency, direction, payment_method,
		source_country, destination_country, counterparty_name, occurred_at
		FROM financial_transactions WHERE customer_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at ASC`, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txs []domain.FinancialTransaction
	for rows.Next() {
		var (
			t                         domain.FinancialTransaction
			direction, method         string
			source, dest, counterpart sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Amount, &t.Currency, &direction, &method,
			&source, &dest, &counterpart, &t.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Direction, err = domain.ParseDirection(direction); err != nil {
			return nil, err
		}
		if t.PaymentMethod, err = domain.ParsePaymentMethod(method); err != nil {
			return nil, err
		}
		t.SourceCountry = source.String
		t.DestinationCountry = dest.String
		t.CounterpartyName = counterpart.String
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}
