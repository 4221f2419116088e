// Package idempotency records which outbox events each consumer has already
// handled so redelivered Pub/Sub messages and replayed rows are processed
// once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/scentdrive/campaign-backend/pkg/redis"
)

// DefaultTTL applies when the ledger is built with a zero TTL.
const DefaultTTL = 72 * time.Hour

// Ledger stores one redis key per (consumer, event):
// sd:idempotency:evt:<consumer>:<event_id>, holding the claim time.
type Ledger struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

func NewLedger(store redis.IdempotencyStore, ttl time.Duration) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	switch {
	case ttl < 0:
		return nil, fmt.Errorf("ttl must not be negative, got %s", ttl)
	case ttl == 0:
		ttl = DefaultTTL
	}
	return &Ledger{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim marks the event as handled by consumer. It returns false when an
// earlier claim exists, meaning the caller should skip the event.
func (l *Ledger) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := l.store.SetNX(ctx, key, l.now().UTC().Format(time.RFC3339), l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s for %s: %w", eventID, consumer, err)
	}
	return claimed, nil
}

// Seen reports whether consumer already claimed the event, without claiming.
func (l *Ledger) Seen(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	_, err = l.store.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, goredis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("lookup %s for %s: %w", eventID, consumer, err)
	}
}

// Forget drops a claim so the event is handled again on redelivery. Used
// when processing failed after the claim was taken.
func (l *Ledger) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return l.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
