package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

// Event type header values
const (
	EventComplianceAlert = "kyc.compliance_alert"
	EventAuditRecord     = "kyc.audit_record"
)

// Publisher sends compliance alerts and audit records to Kafka. Messages are
// keyed by the pseudonymised customer id so one customer's events stay ordered.
type Publisher struct {
	producer    sarama.SyncProducer
	alertsTopic string
	auditTopic  string
	log         *logger.Logger
}

// NewSaramaConfig builds the producer configuration
func NewSaramaConfig(cfg *config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	if cfg.MaxRetries > 0 {
		sc.Producer.Retry.Max = cfg.MaxRetries
	}
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	if cfg.Timeout > 0 {
		sc.Producer.Timeout = cfg.Timeout
		sc.Net.DialTimeout = cfg.Timeout
	}
	return sc
}

// NewPublisher connects a sync producer to the configured brokers
func NewPublisher(cfg *config.KafkaConfig, log *logger.Logger) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewPublisherWithProducer(producer, cfg, log), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer, cfg *config.KafkaConfig, log *logger.Logger) *Publisher {
	return &Publisher{
		producer:    producer,
		alertsTopic: cfg.AlertsTopic,
		auditTopic:  cfg.AuditTopic,
		log:         log.Named("publisher"),
	}
}

// PublishAlert sends a compliance alert to the alerts topic
func (p *Publisher) PublishAlert(ctx context.Context, alert *domain.ComplianceAlert) error {
	if err := p.send(ctx, p.alertsTopic, EventComplianceAlert, alert.CustomerRef, alert); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	p.log.AlertRaised(alert.ID.String(), string(alert.AlertType), alert.CustomerRef, alert.RiskScore)
	return nil
}

// LogAccess sends an audit record to the audit topic
func (p *Publisher) LogAccess(ctx context.Context, rec *domain.AccessRecord) error {
	if err := p.send(ctx, p.auditTopic, EventAuditRecord, rec.CustomerRef, rec); err != nil {
		return fmt.Errorf("publish audit record %s: %w", rec.ID, err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *Publisher) Close() error {
	return p.producer.Close()
}

func (p *Publisher) send(ctx context.Context, topic, eventType, key string, v any) error {
	// SyncProducer has no context support; do not start a send for a dead request
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
		},
		Timestamp: time.Now().UTC(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return err
	}
	p.log.Debug("Event published",
		zap.String("topic", topic),
		zap.String("event_type", eventType),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}
