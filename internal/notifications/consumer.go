package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/idempotency"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type idempotencyGuard interface {
	Process(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

// Consumer watches domain events and stores the in-app notifications they map to.
type Consumer struct {
	repo         Repository
	tx           txRunner
	builder      *Builder
	subscription *pubsub.Subscriber
	idempotency  idempotencyGuard
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo Repository, tx txRunner, subscription *pubsub.Subscriber, guard idempotencyGuard, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		tx:           tx,
		builder:      NewBuilder(repo),
		subscription: subscription,
		idempotency:  guard,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack     bool
	nack    bool
	created int
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	created := 0
	duplicate, err := c.idempotency.Process(ctx, idempotency.ConsumerNotifications, eventID, func(ctx context.Context) error {
		notifications, err := c.builder.Build(ctx, enums.OutboxEventType(eventType), eventID, envelope.Data)
		if err != nil {
			return fmt.Errorf("build notifications: %w", err)
		}
		if len(notifications) == 0 {
			return nil
		}
		if err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return c.repo.WithTx(tx).Create(ctx, notifications...)
		}); err != nil {
			return fmt.Errorf("store notifications: %w", err)
		}
		created = len(notifications)
		return nil
	})
	switch {
	case err != nil:
		c.logg.Error(logCtx, "notification delivery failed", err)
		return processResult{nack: true}
	case duplicate:
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	case created > 0:
		c.logg.Info(c.logg.WithField(logCtx, "recipients", created), "notifications stored")
	}
	return processResult{ack: true, created: created}
}
