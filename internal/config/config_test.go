package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("KYC_SERVICE_SECURITY_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Security.AuthEnabled)
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 0.7, cfg.Risk.ConfidenceThreshold)
	assert.Equal(t, "KYC_VERIFICATION", cfg.Compliance.ConsentPurpose)
	assert.Equal(t, "LEGAL_OBLIGATION", cfg.Compliance.DefaultLegalBasis)
	assert.Equal(t, 2555, cfg.Compliance.RetentionDays)
	assert.Equal(t, 30*time.Second, cfg.Agents.OracleTimeout)
	assert.Equal(t, 90, cfg.Patterns.TrailingWindowDays)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRequiresSecretUnlessAuthDisabled(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security.jwt_secret")

	t.Setenv("KYC_SERVICE_SECURITY_AUTH_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Security.AuthEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("KYC_SERVICE_SERVER_PORT", "9000")
	t.Setenv("KYC_SERVICE_AGENTS_ORACLE_TIMEOUT", "5s")
	t.Setenv("KYC_SERVICE_SECURITY_AUTH_ENABLED", "true")
	t.Setenv("KYC_SERVICE_SECURITY_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Agents.OracleTimeout)
	assert.True(t, cfg.Security.AuthEnabled)
	assert.Equal(t, "s3cret", cfg.Security.JWTSecret)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Risk:       RiskConfig{ConfidenceThreshold: 0.7},
			Compliance: ComplianceConfig{ConsentPurpose: "KYC_VERIFICATION", RetentionDays: 30},
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Risk.ConfidenceThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Compliance.ConsentPurpose = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Compliance.RetentionDays = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Security.AuthEnabled = true
	assert.Error(t, cfg.Validate())
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
