package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banking/kyc-service/internal/domain"
)

const documentColumns = `id, customer_id, document_type, storage_path, verification_status,
	confidence_score, risk_level, extracted_data, findings, processing_legal_basis,
	consent_timestamp, data_retention_until, processed_at, processed_by, created_at, updated_at`

// DocumentRepository persists KYC documents in kyc_documents
type DocumentRepository struct {
	store
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, queryTimeout time.Duration) *DocumentRepository {
	return &DocumentRepository{store{db: db, timeout: queryTimeout}}
}

// Create inserts a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.KycDocument) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	extracted, findings, err := encodeDocumentJSON(doc)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO kyc_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		doc.ID, doc.CustomerID, string(doc.DocumentType), nullString(doc.StoragePath),
		string(doc.VerificationStatus), doc.ConfidenceScore, riskLevelValue(doc.RiskLevel),
		extracted, findings, string(doc.ProcessingLegalBasis),
		doc.ConsentTimestamp, doc.DataRetentionUntil, doc.ProcessedAt, nullString(doc.ProcessedBy),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

// Update writes the mutable document state
func (r *DocumentRepository) Update(ctx context.Context, doc *domain.KycDocument) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	extracted, findings, err := encodeDocumentJSON(doc)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `UPDATE kyc_documents SET
		storage_path = $2, verification_status = $3, confidence_score = $4, risk_level = $5,
		extracted_data = $6, findings = $7, processed_at = $8, processed_by = $9, updated_at = $10
		WHERE id = $1`,
		doc.ID, nullString(doc.StoragePath), string(doc.VerificationStatus), doc.ConfidenceScore,
		riskLevelValue(doc.RiskLevel), extracted, findings, doc.ProcessedAt, nullString(doc.ProcessedBy),
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document %s: %w", doc.ID, err)
	}
	return expectOneRow(res, doc.ID)
}

// Delete removes a document record
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM kyc_documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// ListByCustomer returns all documents of a customer, oldest first
func (r *DocumentRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.KycDocument, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+documentColumns+`
		FROM kyc_documents WHERE customer_id = $1 ORDER BY created_at ASC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := []domain.KycDocument{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// SaveRiskResults writes risk level and findings for all docs in one
// transaction
func (r *DocumentRepository) SaveRiskResults(ctx context.Context, docs []domain.KycDocument) error {
	return r.runInTx(ctx, func(tx *sql.Tx) error {
		for i := range docs {
			d := &docs[i]
			findings, err := json.Marshal(nonNil(d.Findings))
			if err != nil {
				return fmt.Errorf("encode findings: %w", err)
			}
			res, err := tx.ExecContext(ctx, `UPDATE kyc_documents
				SET risk_level = $2, findings = $3, updated_at = $4 WHERE id = $1`,
				d.ID, riskLevelValue(d.RiskLevel), findings, d.UpdatedAt)
			if err != nil {
				return fmt.Errorf("save risk results for %s: %w", d.ID, err)
			}
			if err := expectOneRow(res, d.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*domain.KycDocument, error) {
	var (
		doc                            domain.KycDocument
		docType, status, basis         string
		storagePath, riskLevel, procBy sql.NullString
		extracted, findings            []byte
		consentAt, retainUntil, procAt sql.NullTime
	)

	err := s.Scan(&doc.ID, &doc.CustomerID, &docType, &storagePath, &status,
		&doc.ConfidenceScore, &riskLevel, &extracted, &findings, &basis,
		&consentAt, &retainUntil, &procAt, &procBy, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if doc.DocumentType, err = domain.ParseDocumentType(docType); err != nil {
		return nil, err
	}
	if doc.VerificationStatus, err = domain.ParseVerificationStatus(status); err != nil {
		return nil, err
	}
	if doc.ProcessingLegalBasis, err = domain.ParseLegalBasis(basis); err != nil {
		return nil, err
	}
	if riskLevel.Valid {
		l, err := domain.ParseRiskLevel(riskLevel.String)
		if err != nil {
			return nil, err
		}
		doc.RiskLevel = &l
	}

	doc.StoragePath = storagePath.String
	doc.ProcessedBy = procBy.String
	doc.ConsentTimestamp = timePtr(consentAt)
	doc.DataRetentionUntil = timePtr(retainUntil)
	doc.ProcessedAt = timePtr(procAt)

	if len(extracted) > 0 && string(extracted) != "null" {
		doc.ExtractedData = &domain.ExtractedFields{}
		if err := json.Unmarshal(extracted, doc.ExtractedData); err != nil {
			return nil, &domain.InvariantError{Field: "extracted_data", Value: string(extracted)}
		}
	}
	doc.Findings = []string{}
	if len(findings) > 0 {
		if err := json.Unmarshal(findings, &doc.Findings); err != nil {
			return nil, &domain.InvariantError{Field: "findings", Value: string(findings)}
		}
		doc.Findings = nonNil(doc.Findings)
	}

	return &doc, nil
}

func encodeDocumentJSON(doc *domain.KycDocument) (extracted, findings []byte, err error) {
	if doc.ExtractedData != nil {
		if extracted, err = json.Marshal(doc.ExtractedData); err != nil {
			return nil, nil, fmt.Errorf("encode extracted data: %w", err)
		}
	}
	if findings, err = json.Marshal(nonNil(doc.Findings)); err != nil {
		return nil, nil, fmt.Errorf("encode findings: %w", err)
	}
	return extracted, findings, nil
}

func expectOneRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func riskLevelValue(l *domain.RiskLevel) sql.NullString {
	if l == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*l), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
