package jurisdiction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		code        string
		nationality NationalityRisk
		residence   ResidenceRisk
		status      FatfStatus
	}{
		{"KP", NationalityCritical, ResidenceHigh, FatfBlacklisted},
		{"ir", NationalityCritical, ResidenceHigh, FatfBlacklisted},
		{" mm ", NationalityCritical, ResidenceHigh, FatfBlacklisted},
		{"NG", NationalityHigh, ResidenceMedium, FatfGreylisted},
		{"tr", NationalityHigh, ResidenceMedium, FatfGreylisted},
		{"FR", NationalityLow, ResidenceLow, FatfNone},
		{"", NationalityLow, ResidenceLow, FatfNone},
		{"XX", NationalityLow, ResidenceLow, FatfNone},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.nationality, Nationality(tt.code))
			assert.Equal(t, tt.residence, Residence(tt.code))
			assert.Equal(t, tt.status, Status(tt.code))
		})
	}
}

func TestReason(t *testing.T) {
	reason, ok := Reason("kp")
	assert.True(t, ok)
	assert.Equal(t, "Country is on the FATF Blacklist (High-Risk Jurisdictions)", reason)

	reason, ok = Reason("SY")
	assert.True(t, ok)
	assert.Equal(t, "Country is on the FATF Greylist (Increased Monitoring)", reason)

	_, ok = Reason("DE")
	assert.False(t, ok)
}

func TestBlacklistAndGreylistDisjoint(t *testing.T) {
	for code := range blacklist {
		_, grey := greylist[code]
		assert.False(t, grey, code)
	}
}
