package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banking/kyc-service/internal/domain"
)

// AuditRepository appends to kyc_audit_log
type AuditRepository struct {
	store
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, queryTimeout time.Duration) *AuditRepository {
	return &AuditRepository{store{db: db, timeout: queryTimeout}}
}

// LogAccess inserts one audit record
func (r *AuditRepository) LogAccess(ctx context.Context, rec *domain.AccessRecord) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	categories, err := json.Marshal(nonNil(rec.DataCategories))
	if err != nil {
		return fmt.Errorf("encode data categories: %w", err)
	}
	var details []byte
	if len(rec.Details) > 0 {
		details = rec.Details
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO kyc_audit_log
		(id, customer_id, action, legal_basis, performed_by, data_categories, success, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.CustomerRef, string(rec.Action), string(rec.LegalBasis), rec.PerformedBy,
		categories, rec.Success, details, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListByCustomer returns the audit trail of a pseudonymised customer, newest first
func (r *AuditRepository) ListByCustomer(ctx context.Context, customerRef string, limit int) ([]domain.AccessRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, customer_id, action, legal_basis, performed_by,
		data_categories, success, details, created_at
		FROM kyc_audit_log WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2`, customerRef, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []domain.AccessRecord{}
	for rows.Next() {
		var (
			rec                 domain.AccessRecord
			action, basis       string
			categories, details []byte
		)
		if err := rows.Scan(&rec.ID, &rec.CustomerRef, &action, &basis, &rec.PerformedBy,
			&categories, &rec.Success, &details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Action = domain.AuditAction(action)
		if rec.LegalBasis, err = domain.ParseLegalBasis(basis); err != nil {
			return nil, err
		}
		if len(categories) > 0 {
			if err := json.Unmarshal(categories, &rec.DataCategories); err != nil {
				return nil, &domain.InvariantError{Field: "data_categories", Value: string(categories)}
			}
		}
		if len(details) > 0 {
			rec.Details = json.RawMessage(details)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return records, nil
}
