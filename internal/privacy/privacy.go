// Package privacy holds the pseudonymisation and retention helpers applied
// before customer identifiers leave the service boundary.
package privacy

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"
)

// HashIdentifier pseudonymises a customer identifier. The same input always
// yields the same reference, so audit entries stay linkable without the raw id.
func HashIdentifier(id string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(id)))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RetentionUntil returns the date after which a record may be purged
func RetentionUntil(from time.Time, retentionDays int) time.Time {
	return from.AddDate(0, 0, retentionDays)
}

// LockKey is the per-customer serialisation key
func LockKey(customerRef string) string {
	return "kyc:customer:" + customerRef
}
