package kyc

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/kyc-service/internal/domain"
)

func doc(t domain.DocumentType, s domain.VerificationStatus) domain.KycDocument {
	d := domain.NewKycDocument("cust-1", t, domain.LegalBasisLegalObligation, time.Now())
	d.VerificationStatus = s
	return *d
}

func withRisk(d domain.KycDocument, l domain.RiskLevel) domain.KycDocument {
	d.RiskLevel = &l
	return d
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name string
		docs []domain.KycDocument
		want domain.KycAggregateStatus
	}{
		{
			name: "no documents",
			want: domain.KycStatusIncomplete,
		},
		{
			name: "identity only",
			docs: []domain.KycDocument{doc(domain.DocumentPassport, domain.VerificationVerified)},
			want: domain.KycStatusIncomplete,
		},
		{
			name: "review beats verified",
			docs: []domain.KycDocument{
				doc(domain.DocumentPassport, domain.VerificationVerified),
				doc(domain.DocumentUtilityBill, domain.VerificationVerified),
				doc(domain.DocumentBankStatement, domain.VerificationNeedsReview),
			},
			want: domain.KycStatusUnderReview,
		},
		{
			name: "second identity document under review",
			docs: []domain.KycDocument{
				doc(domain.DocumentIDCard, domain.VerificationVerified),
				doc(domain.DocumentProofOfAddress, domain.VerificationVerified),
				doc(domain.DocumentIDCard, domain.VerificationNeedsReview),
			},
			want: domain.KycStatusUnderReview,
		},
		{
			name: "review beats rejected",
			docs: []domain.KycDocument{
				doc(domain.DocumentPassport, domain.VerificationRejected),
				doc(domain.DocumentUtilityBill, domain.VerificationNeedsReview),
			},
			want: domain.KycStatusUnderReview,
		},
		{
			name: "rejected",
			docs: []domain.KycDocument{
				doc(domain.DocumentIDCard, domain.VerificationRejected),
				doc(domain.DocumentProofOfAddress, domain.VerificationVerified),
			},
			want: domain.KycStatusRejected,
		},
		{
			name: "address still processing",
			docs: []domain.KycDocument{
				doc(domain.DocumentPassport, domain.VerificationVerified),
				doc(domain.DocumentUtilityBill, domain.VerificationInProgress),
			},
			want: domain.KycStatusPending,
		},
		{
			name: "critical risk restricts approval",
			docs: []domain.KycDocument{
				withRisk(doc(domain.DocumentPassport, domain.VerificationVerified), domain.RiskLevelCritical),
				withRisk(doc(domain.DocumentUtilityBill, domain.VerificationVerified), domain.RiskLevelCritical),
			},
			want: domain.KycStatusApprovedWithRestrictions,
		},
		{
			name: "approved",
			docs: []domain.KycDocument{
				withRisk(doc(domain.DocumentPassport, domain.VerificationVerified), domain.RiskLevelHigh),
				doc(domain.DocumentUtilityBill, domain.VerificationVerified),
			},
			want: domain.KycStatusApproved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateStatus(tt.docs))
		})
	}
}

func TestSummarize_NoDocuments(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, NoDocuments, s.DocumentStatus)
	assert.Equal(t, domain.RiskLevelPending, s.RiskLevel)
	assert.Zero(t, s.ConfidenceScore)
	assert.Equal(t, domain.KycStatusIncomplete, s.OverallStatus)
	assert.NotNil(t, s.Findings)
}

func TestSummarize(t *testing.T) {
	passport := withRisk(doc(domain.DocumentPassport, domain.VerificationVerified), domain.RiskLevelMedium)
	passport.ConfidenceScore = 0.9
	passport.Findings = []string{"Risk Score: 45 (MEDIUM)"}

	bill := doc(domain.DocumentUtilityBill, domain.VerificationRejected)
	bill.ConfidenceScore = 0.8
	bill.Findings = []string{"Document is expired"}

	pending := doc(domain.DocumentBankStatement, domain.VerificationPending)

	s := Summarize([]domain.KycDocument{passport, bill, pending})
	assert.Equal(t, "1 verified, 1 pending, 1 rejected", s.DocumentStatus)
	assert.Equal(t, string(domain.RiskLevelMedium), s.RiskLevel)
	assert.InDelta(t, 0.85, s.ConfidenceScore, 1e-9)
	assert.Equal(t, domain.KycStatusRejected, s.OverallStatus)
	assert.Equal(t, []string{"Risk Score: 45 (MEDIUM)", "Document is expired"}, s.Findings)
}

func TestSummarize_UnassessedDefaultsToLow(t *testing.T) {
	s := Summarize([]domain.KycDocument{doc(domain.DocumentPassport, domain.VerificationPending)})
	assert.Equal(t, string(domain.RiskLevelLow), s.RiskLevel)
}

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	m := NewKeyedMutex()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "kyc:customer:a")
			require.NoError(t, err)
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Zero(t, m.Len())
}

func TestKeyedMutex_DistinctKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex()
	unlockA, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := m.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutex_WaitTimesOut(t *testing.T) {
	m := NewKeyedMutex()
	unlock, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Zero(t, m.Len())
}
