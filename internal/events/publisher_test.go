package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

var testKafka = &config.KafkaConfig{
	ClientID:    "kyc-service-test",
	AlertsTopic: "kyc.alerts",
	AuditTopic:  "kyc.audit",
	Timeout:     time.Second,
	MaxRetries:  3,
}

func TestPublisher_PublishAlert(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewPublisherWithProducer(producer, testKafka, logger.NewNop())
	defer func() { _ = pub.Close() }()

	alert := domain.NewComplianceAlert(domain.AlertSARConsideration, "ref-1", "SAR consideration", "score 92", time.Now())
	alert.RiskLevel = domain.RiskLevelCritical
	alert.RiskScore = 92

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got domain.ComplianceAlert
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.ID != alert.ID || got.AlertType != domain.AlertSARConsideration || got.RiskScore != 92 {
			return errors.New("unexpected alert payload")
		}
		return nil
	})

	require.NoError(t, pub.PublishAlert(context.Background(), alert))
}

func TestPublisher_LogAccess(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewPublisherWithProducer(producer, testKafka, logger.NewNop())
	defer func() { _ = pub.Close() }()

	rec := &domain.AccessRecord{
		ID:          uuid.New(),
		CustomerRef: "ref-1",
		Action:      domain.AuditProcess,
		LegalBasis:  domain.LegalBasisLegalObligation,
		PerformedBy: domain.PerformedByRisk,
		Success:     true,
		CreatedAt:   time.Now(),
	}

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got domain.AccessRecord
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.CustomerRef != "ref-1" || got.Action != domain.AuditProcess {
			return errors.New("unexpected audit payload")
		}
		return nil
	})

	require.NoError(t, pub.LogAccess(context.Background(), rec))
}

func TestPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewPublisherWithProducer(producer, testKafka, logger.NewNop())
	defer func() { _ = pub.Close() }()

	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	alert := domain.NewComplianceAlert(domain.AlertManualReview, "ref-1", "Manual review", "low confidence", time.Now())
	err := pub.PublishAlert(context.Background(), alert)
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
}

func TestPublisher_CancelledContextSkipsSend(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewPublisherWithProducer(producer, testKafka, logger.NewNop())
	defer func() { _ = pub.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alert := domain.NewComplianceAlert(domain.AlertCriticalRisk, "ref-1", "Critical", "", time.Now())
	assert.ErrorIs(t, pub.PublishAlert(ctx, alert), context.Canceled)
}

func TestNewSaramaConfig(t *testing.T) {
	sc := NewSaramaConfig(testKafka)
	assert.Equal(t, "kyc-service-test", sc.ClientID)
	assert.True(t, sc.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.True(t, sc.Producer.Idempotent)
	assert.Equal(t, 3, sc.Producer.Retry.Max)
	require.NoError(t, sc.Validate())
}
