package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/scentdrive/campaign-backend/internal/analytics"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
)

func TestBuildEnvelope(t *testing.T) {
	actor := &outbox.ActorRef{UserID: uuid.New(), Role: string(enums.RoleAdmin)}
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Actor:      actor,
		Data:       json.RawMessage(`{"order_id":"ord-1"}`),
	}
	msg := buildMessage(payload, map[string]string{
		"event_type":     "order_placed",
		"aggregate_type": "order",
		"aggregate_id":   "ord-1",
	})

	env, err := buildEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventType != enums.EventOrderPlaced {
		t.Fatalf("unexpected event type %v", env.EventType)
	}
	if env.AggregateType != enums.AggregateOrder {
		t.Fatalf("unexpected aggregate type %v", env.AggregateType)
	}
	if env.EventID != payload.EventID {
		t.Fatalf("unexpected event id %s", env.EventID)
	}
	if !env.OccurredAt.Equal(payload.OccurredAt) {
		t.Fatalf("unexpected occurred at %v", env.OccurredAt)
	}
	if env.Actor == nil || env.Actor.Role != string(enums.RoleAdmin) {
		t.Fatalf("expected actor carried through, got %+v", env.Actor)
	}
}

func TestBuildEnvelopeFallsBackToAttributes(t *testing.T) {
	id := uuid.NewString()
	created := time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)
	msg := buildMessage(outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}, map[string]string{
		"event_id":       id,
		"event_type":     "volunteer_status_changed",
		"aggregate_type": "volunteer",
		"aggregate_id":   "v-1",
		"created_at":     created.Format(time.RFC3339Nano),
	})

	env, err := buildEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventID != id || !env.OccurredAt.Equal(created) {
		t.Fatalf("expected attribute fallbacks, got %+v", env)
	}
}

func TestBuildEnvelopeRejectsUnknownEventType(t *testing.T) {
	msg := buildMessage(outbox.PayloadEnvelope{EventID: uuid.NewString()}, map[string]string{
		"event_type":     "cart_abandoned",
		"aggregate_type": "order",
		"aggregate_id":   "x",
	})
	if _, err := buildEnvelope(msg); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestProcessAlreadyProcessed(t *testing.T) {
	ledger := &stubLedger{alreadyClaimed: true}
	handler := &stubHandler{}
	svc := newTestService(t, handler, ledger)

	if res := svc.process(context.Background(), buildCampaignMessage(t)); res.nack {
		t.Fatal("expected ack, got nack")
	}
	if handler.called {
		t.Fatal("handler should not be invoked when already processed")
	}
	if len(ledger.checked) != 1 {
		t.Fatalf("expected check once, got %d", len(ledger.checked))
	}
}

func TestProcessHandlerErrorRetries(t *testing.T) {
	ledger := &stubLedger{}
	handler := &stubHandler{err: errors.New("boom")}
	svc := newTestService(t, handler, ledger)

	if res := svc.process(context.Background(), buildCampaignMessage(t)); !res.nack {
		t.Fatal("expected nack on handler error")
	}
	if len(ledger.deleted) != 1 {
		t.Fatal("expected idempotency delete on failure")
	}
}

func TestProcessInvalidEnvelope(t *testing.T) {
	ledger := &stubLedger{}
	handler := &stubHandler{}
	svc := newTestService(t, handler, ledger)

	res := svc.process(context.Background(), &gcppubsub.Message{Data: []byte("invalid json")})
	if res.nack {
		t.Fatal("invalid envelope should ack")
	}
	if handler.called || len(ledger.checked) != 0 {
		t.Fatal("nothing should run for an invalid envelope")
	}
}

func TestProcessUnsupportedEvent(t *testing.T) {
	ledger := &stubLedger{}
	handler := &stubHandler{err: fmt.Errorf("%w: x", analytics.ErrUnsupportedEventType)}
	svc := newTestService(t, handler, ledger)

	if res := svc.process(context.Background(), buildCampaignMessage(t)); res.nack {
		t.Fatal("unsupported event should ack")
	}
	if len(ledger.deleted) != 0 {
		t.Fatal("idempotency delete should not run")
	}
}

func TestNewServiceValidates(t *testing.T) {
	if _, err := NewService(nil, &stubHandler{}, &stubLedger{}, testLogger()); err == nil {
		t.Fatal("expected subscription error")
	}
}

func buildCampaignMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	return buildMessage(outbox.PayloadEnvelope{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"` + uuid.NewString() + `"}`),
	}, map[string]string{
		"event_type":     "order_status_changed",
		"aggregate_type": "order",
		"aggregate_id":   "abc-123",
	})
}

func buildMessage(payload outbox.PayloadEnvelope, attrs map[string]string) *gcppubsub.Message {
	data, _ := json.Marshal(payload)
	return &gcppubsub.Message{ID: "msg-1", Data: data, Attributes: attrs}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard})
}

func newTestService(t *testing.T, handler Handler, ledger *stubLedger) *Service {
	t.Helper()
	return &Service{handler: handler, ledger: ledger, logg: testLogger()}
}

type stubHandler struct {
	called bool
	err    error
}

func (h *stubHandler) Handle(ctx context.Context, envelope analytics.Envelope) error {
	h.called = true
	return h.err
}

type stubLedger struct {
	alreadyClaimed bool
	checked        []uuid.UUID
	deleted        []uuid.UUID
}

func (s *stubLedger) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	s.checked = append(s.checked, eventID)
	return !s.alreadyClaimed, nil
}

func (s *stubLedger) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}
