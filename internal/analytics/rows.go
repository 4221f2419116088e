package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignEventRow mirrors the campaign_events BigQuery schema. One row per
// outbox event; columns that do not apply to an event type stay NULL.
type CampaignEventRow struct {
	EventID        string             `bigquery:"event_id"`
	EventType      string             `bigquery:"event_type"`
	AggregateType  string             `bigquery:"aggregate_type"`
	AggregateID    string             `bigquery:"aggregate_id"`
	OccurredAt     time.Time          `bigquery:"occurred_at"`
	ActorRole      *string            `bigquery:"actor_role"`
	OrderID        *string            `bigquery:"order_id"`
	OrderNumber    *string            `bigquery:"order_number"`
	VolunteerID    *string            `bigquery:"volunteer_id"`
	OrderStatus    *string            `bigquery:"order_status"`
	PreviousStatus *string            `bigquery:"previous_status"`
	DeliveryStatus *string            `bigquery:"delivery_status"`
	// VolunteerStatus is set only for volunteer_status_changed.
	VolunteerStatus *string            `bigquery:"volunteer_status"`
	PaymentMethod   *string            `bigquery:"payment_method"`
	Quantity        *int64             `bigquery:"quantity"`
	AmountPaise     *int64             `bigquery:"amount_paise"`
	TotalBottles    *int64             `bigquery:"total_bottles"`
	Town            *string            `bigquery:"town"`
	Post            *string            `bigquery:"post"`
	Detail          *string            `bigquery:"detail"`
	Payload         cbigquery.NullJSON `bigquery:"payload"`
}

// EncodeJSON serializes payload for a BigQuery JSON column.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	}

	marshaled, err := json.Marshal(payload)
	if err != nil {
		return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(marshaled)}, nil
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	return stringPtr(id.String())
}

func int64Ptr(value int) *int64 {
	v := int64(value)
	return &v
}

// paise converts rupees to integer paise, rounding half away from zero.
func paise(amount decimal.Decimal) *int64 {
	v := amount.Shift(2).Round(0).IntPart()
	return &v
}
