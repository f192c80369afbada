package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ConsentRepository reads customer_consents
type ConsentRepository struct {
	store
	now func() time.Time
}

// NewConsentRepository creates a new consent repository
func NewConsentRepository(db *sql.DB, queryTimeout time.Duration) *ConsentRepository {
	return &ConsentRepository{store: store{db: db, timeout: queryTimeout}, now: time.Now}
}

// HasValidConsent reports whether the customer holds a consent for purpose
// that is neither revoked nor expired
func (r *ConsentRepository) HasValidConsent(ctx context.Context, customerID, purpose string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM customer_consents
		WHERE customer_id = $1 AND purpose = $2 AND revoked_at IS NULL
		AND (expires_at IS NULL OR expires_at > $3))`,
		customerID, purpose, r.now().UTC()).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("query consent: %w", err)
	}
	return ok, nil
}
