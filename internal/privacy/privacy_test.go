package privacy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHashIdentifier(t *testing.T) {
	a := HashIdentifier("customer-123")
	assert.Equal(t, a, HashIdentifier(" customer-123 "))
	assert.NotEqual(t, a, HashIdentifier("customer-124"))
	assert.NotContains(t, a, "customer")
	assert.Len(t, a, 43)
}

func TestRetentionUntil(t *testing.T) {
	from := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2033, 1, 13, 10, 0, 0, 0, time.UTC), RetentionUntil(from, 2555))
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "kyc:customer:abc", LockKey("abc"))
}
