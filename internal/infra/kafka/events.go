package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/infra/config"
)

const schemaVersion = "1.0"

// Topics produced by the service. The downstream mailer consumes
// auth.challenge.issued and turns it into an email.
const (
	topicUserRegistered  = "user.registered"
	topicChallengeIssued = "auth.challenge.issued"
	topicLoginSucceeded  = "auth.login.succeeded"
	topicLoginFailed     = "auth.login.failed"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: envelopeMetadata{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string         `json:"user_id"`
		Username     string         `json:"username"`
		Email        string         `json:"email"`
		TwoFactor    bool           `json:"two_factor"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		Username:     event.Username,
		Email:        event.Email,
		TwoFactor:    event.TwoFactor,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, topicUserRegistered, event.UserID, event.RegisteredAt, payload)
}

// PublishChallengeIssued publishes auth.challenge.issued events. The
// one-time code rides in the payload for the mailer; the topic must be
// treated as sensitive.
func (p *EventPublisher) PublishChallengeIssued(ctx context.Context, event domain.ChallengeIssuedEvent) error {
	payload := struct {
		Destination string         `json:"destination"`
		Code        string         `json:"code"`
		IssuedAt    time.Time      `json:"issued_at"`
		ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		Destination: event.Destination,
		Code:        event.Code,
		IssuedAt:    event.IssuedAt.UTC(),
		Metadata:    event.Metadata,
	}
	if !event.ExpiresAt.IsZero() {
		expires := event.ExpiresAt.UTC()
		payload.ExpiresAt = &expires
	}

	return p.publish(ctx, event.EventID, topicChallengeIssued, "", event.IssuedAt, payload)
}

// PublishLoginSucceeded publishes auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		Username   string         `json:"username"`
		TwoFactor  bool           `json:"two_factor"`
		SignedInAt time.Time      `json:"signed_in_at"`
		IPAddress  *string        `json:"ip_address,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		Username:   event.Username,
		TwoFactor:  event.TwoFactor,
		SignedInAt: event.SignedInAt.UTC(),
		IPAddress:  event.IPAddress,
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, topicLoginSucceeded, event.UserID, event.SignedInAt, payload)
}

// PublishLoginFailed publishes auth.login.failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		Username  string         `json:"username"`
		Reason    string         `json:"reason"`
		FailedAt  time.Time      `json:"failed_at"`
		IPAddress *string        `json:"ip_address,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		Username:  event.Username,
		Reason:    event.Reason,
		FailedAt:  event.FailedAt.UTC(),
		IPAddress: event.IPAddress,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, topicLoginFailed, "", event.FailedAt, payload)
}
