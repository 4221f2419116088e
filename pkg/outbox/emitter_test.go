package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/db/dbtest"
	"github.com/scentdrive/campaign-backend/pkg/enums"
)

func TestEmitWritesEnvelopeKeyedByRowID(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	fixed := time.Date(2026, 10, 1, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	svc.now = func() time.Time { return fixed }
	rowID := uuid.New()
	svc.newID = func() uuid.UUID { return rowID }

	orderID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: "admin"}
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actor,
			Data:          map[string]string{"to": "confirmed"},
		})
	})
	require.NoError(t, err)

	rows := dbtest.Outbox(t, conn)
	require.Len(t, rows, 1)
	assert.Equal(t, rowID, rows[0].ID)
	assert.Equal(t, orderID, rows[0].AggregateID)

	envelope, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, rowID.String(), envelope.EventID)
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.True(t, envelope.OccurredAt.Equal(fixed))
	assert.Equal(t, time.UTC, envelope.OccurredAt.Location())
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)
	assert.JSONEq(t, `{"to":"confirmed"}`, string(envelope.Data))
}

func TestEmitRejectsInvalidEvents(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	valid := DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Data:          map[string]int{"quantity": 1},
	}

	assert.Error(t, svc.Emit(context.Background(), nil, valid), "transaction required")

	cases := map[string]func(e *DomainEvent){
		"unknown type":      func(e *DomainEvent) { e.EventType = "order.teleported" },
		"unknown aggregate": func(e *DomainEvent) { e.AggregateType = "warehouse" },
		"nil aggregate id":  func(e *DomainEvent) { e.AggregateID = uuid.Nil },
		"future version":    func(e *DomainEvent) { e.Version = EnvelopeVersion + 1 },
		"unencodable data":  func(e *DomainEvent) { e.Data = make(chan int) },
	}
	for name, mutate := range cases {
		event := valid
		mutate(&event)
		err := conn.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(context.Background(), tx, event)
		})
		assert.Error(t, err, name)
	}
	assert.Empty(t, dbtest.Outbox(t, conn))
}

func TestDecodeEnvelope(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"x","data":null}`))
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = DecodeEnvelope([]byte(`{"version":9,"eventId":"x","data":{}}`))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)

	raw, err := json.Marshal(PayloadEnvelope{Version: 1, EventID: "abc", Data: json.RawMessage(`{"a":1}`)})
	require.NoError(t, err)
	envelope, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc", envelope.EventID)
}
