package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/propertyhub-backend/pkg/redis"
)

// Consumer names scope the processed markers so each subscriber of the domain
// topic tracks its own progress.
const (
	ConsumerNotifications = "notifications"
	ConsumerAnalytics     = "analytics"
)

// Manager records which domain events each consumer has already applied.
// Keys look like `ph:idempotency:evt:processed:<consumer>:<event_id>` and
// expire after the configured TTL, which must outlive Pub/Sub redelivery.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed reports whether consumer already handled eventID and
// otherwise claims it.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return !claimed, nil
}

// Delete releases a claim so a redelivered message is handled again.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Process claims eventID for consumer and runs fn. A duplicate returns
// (true, nil) without calling fn. When fn fails the claim is released and
// the returned error carries both failures if the release also fails.
func (m *Manager) Process(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error) {
	duplicate, err := m.CheckAndMarkProcessed(ctx, consumer, eventID)
	if err != nil || duplicate {
		return duplicate, err
	}
	if err := fn(ctx); err != nil {
		if relErr := m.Delete(ctx, consumer, eventID); relErr != nil {
			err = multierr.Append(err, fmt.Errorf("release claim: %w", relErr))
		}
		return false, err
	}
	return false, nil
}

func (m *Manager) processedKey(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
