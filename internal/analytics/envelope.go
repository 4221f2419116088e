// Package analytics turns published campaign events into rows for the
// BigQuery campaign_events table.
package analytics

import (
	"encoding/json"
	"time"

	"github.com/scentdrive/campaign-backend/pkg/enums"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
)

// Envelope is one campaign event as received from Pub/Sub.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Payload       json.RawMessage
}
