package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/gaming/risk-service/internal/config"
	"github.com/gaming/risk-service/internal/domain"
)

// Event type header values
const (
	EventTypeAssessment = "risk.assessment.completed"
	EventTypeAlert      = "risk.alert.raised"
)

// Publisher publishes risk events to Kafka
type Publisher struct {
	producer         sarama.SyncProducer
	assessmentsTopic string
	alertsTopic      string
}

// NewPublisher wraps an existing producer
func NewPublisher(producer sarama.SyncProducer, cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		producer:         producer,
		assessmentsTopic: cfg.AssessmentsTopic,
		alertsTopic:      cfg.AlertsTopic,
	}
}

// NewSyncProducer creates a sarama producer tuned for durable, ordered delivery
func NewSyncProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Retry.Backoff = 200 * time.Millisecond
	sc.Producer.Return.Successes = true
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// PublishAssessment publishes an assessment event keyed by user id
func (p *Publisher) PublishAssessment(ctx context.Context, ev *domain.AssessmentEvent) error {
	return p.publish(ctx, p.assessmentsTopic, EventTypeAssessment, ev.UserID.String(), ev)
}

// PublishAlert publishes a fraud alert keyed by user id
func (p *Publisher) PublishAlert(ctx context.Context, alert *domain.FraudAlert) error {
	return p.publish(ctx, p.alertsTopic, EventTypeAlert, alert.UserID.String(), alert)
}

// Close closes the underlying producer
func (p *Publisher) Close() error {
	return p.producer.Close()
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
			{Key: []byte("content_type"), Value: []byte("application/json")},
		},
		Timestamp: time.Now().UTC(),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", eventType, topic, err)
	}
	return nil
}

// NopPublisher discards events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishAssessment(context.Context, *domain.AssessmentEvent) error { return nil }

func (NopPublisher) PublishAlert(context.Context, *domain.FraudAlert) error { return nil }

func (NopPublisher) Close() error { return nil }
