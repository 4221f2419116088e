package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/scentdrive/campaign-backend/pkg/enums"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers rows produced by the router.
type Writer interface {
	InsertCampaignEvent(ctx context.Context, row CampaignEventRow) error
}

type rowBuilder func(envelope Envelope, payload any) (CampaignEventRow, error)

type route struct {
	factory func() any
	build   rowBuilder
}

// Router decodes each envelope's payload by event type and writes one row.
type Router struct {
	routes map[enums.OutboxEventType]route
	writer Writer
	logg   *logger.Logger
}

func NewRouter(writer Writer, logg *logger.Logger) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Router{
		routes: map[enums.OutboxEventType]route{
			enums.EventOrderPlaced: {
				factory: func() any { return &payloads.OrderPlacedEvent{} },
				build:   buildOrderPlaced,
			},
			enums.EventOrderStatusChanged: {
				factory: func() any { return &payloads.OrderStatusChangedEvent{} },
				build:   buildOrderStatusChanged,
			},
			enums.EventCommissionRecalculated: {
				factory: func() any { return &payloads.CommissionRecalculatedEvent{} },
				build:   buildCommissionRecalculated,
			},
			enums.EventDeliveryAssigned: {
				factory: func() any { return &payloads.DeliveryAssignedEvent{} },
				build:   buildDeliveryAssigned,
			},
			enums.EventDeliveryReviewRequired: {
				factory: func() any { return &payloads.DeliveryReviewRequiredEvent{} },
				build:   buildDeliveryReviewRequired,
			},
			enums.EventTrackingEventRecorded: {
				factory: func() any { return &payloads.TrackingEventRecordedEvent{} },
				build:   buildTrackingEventRecorded,
			},
			enums.EventVolunteerStatusChanged: {
				factory: func() any { return &payloads.VolunteerStatusChangedEvent{} },
				build:   buildVolunteerStatusChanged,
			},
		},
		writer: writer,
		logg:   logg,
	}, nil
}

// Handle dispatches the envelope to the builder for its event type.
func (r *Router) Handle(ctx context.Context, envelope Envelope) error {
	entry, ok := r.routes[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	payload := entry.factory()
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}

	row, err := entry.build(envelope, payload)
	if err != nil {
		return err
	}
	if row.Payload, err = EncodeJSON(envelope.Payload); err != nil {
		return fmt.Errorf("encode payload json: %w", err)
	}
	if err := r.writer.InsertCampaignEvent(ctx, row); err != nil {
		r.logg.Error(ctx, "failed to insert campaign event row", err)
		return err
	}
	return nil
}

func baseRow(envelope Envelope) CampaignEventRow {
	row := CampaignEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		AggregateType: string(envelope.AggregateType),
		AggregateID:   envelope.AggregateID,
		OccurredAt:    envelope.OccurredAt,
	}
	if envelope.Actor != nil {
		row.ActorRole = stringPtr(string(envelope.Actor.Role))
	}
	return row
}

func buildOrderPlaced(envelope Envelope, payload any) (CampaignEventRow, error) {
	event, ok := payload.(*payloads.OrderPlacedEvent)
	if !ok {
		return CampaignEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row := baseRow(envelope)
	row.OrderID = uuidPtr(event.OrderID)
	row.OrderNumber = stringPtr(event.OrderNumber)
	row.OrderStatus = stringPtr(string(event.Status))
	row.PaymentMethod = stringPtr(string(event.PaymentMethod))
	row.Quantity = int64Ptr(event.Quantity)
	row.AmountPaise = paise(event.TotalAmount)
	row.Town = stringPtr(event.Town)
	row.Post = stringPtr(event.Post)
	if event.VolunteerID != nil {
		row.VolunteerID = uuidPtr(*event.VolunteerID)
	}
	return row, nil
}

func buildOrderStatusChanged(envelope Envelope, payload any) (CampaignEventRow, error) {
	event, ok := payload.(*payloads.OrderStatusChangedEvent)
	if !ok {
		return CampaignEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row := baseRow(envelope)
	row.OrderID = uuidPtr(event.OrderID)
	row.OrderNumber = stringPtr(event.OrderNumber)
	row.OrderStatus = stringPtr(string(event.To))
	row.PreviousStatus = stringPtr(string(event.From))
	row.Detail = stringPtr(event.Reason)
	return row, nil
}

func buildCommissionRecalculated(envelope Envelope, payload any) (CampaignEventRow, error) {
	event, ok := payload.(*payloads.CommissionRecalculatedEvent)
	if !ok {
		return CampaignEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row := baseRow(envelope)
	row.VolunteerID = uuidPtr(event.VolunteerID)
	row.TotalBottles = int64Ptr(event.TotalBottles)
	row.AmountPaise = paise(event.Commission)
	row.Detail = stringPtr(event.Schedule + ":" + event.Trigger)
	return row, nil
}

func buildDeliveryAssigned(envelope Envelope, payload any) (CampaignEventRow, error) {
	event, ok := payload.(*payloads.DeliveryAssignedEvent)
	if !ok {
		return CampaignEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row := baseRow(envelope)
	row.OrderID = uuidPtr(event.OrderID)
	row.OrderNumber = stringPtr(event.OrderNumber)
	row.VolunteerID = uuidPtr(event.DeliveryVolunteerID)
	row.Detail = stringPtr(event.Mode)
	return row, nil
}

func buildDeliveryReviewRequired(envelope Envelope, payload any) (CampaignEventRow, error) {
	event, ok := payload.(*payloads.DeliveryReviewRequiredEvent)
	if !ok {
		return CampaignEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row := baseRow(envelope)
	row.OrderID = uuidPtr(event.OrderID)
	row.OrderNumber = stringPtr(event.OrderNumber)
	row.Detail = stringPtr(event.Reason)
	return row, nil
}

func buildTrackingEventRecorded(envelope Envelope, payload any) (CampaignEventRow, error) {
	event, ok := payload.(*payloads.TrackingEventRecordedEvent)
	if !ok {
		return CampaignEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row := baseRow(envelope)
	row.OrderID = uuidPtr(event.OrderID)
	row.DeliveryStatus = stringPtr(string(event.Status))
	row.Detail = stringPtr(string(event.Source))
	if !event.OccurredAt.IsZero() {
		row.OccurredAt = event.OccurredAt.UTC()
	}
	return row, nil
}

func buildVolunteerStatusChanged(envelope Envelope, payload any) (CampaignEventRow, error) {
	event, ok := payload.(*payloads.VolunteerStatusChangedEvent)
	if !ok {
		return CampaignEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row := baseRow(envelope)
	row.VolunteerID = uuidPtr(event.VolunteerID)
	row.VolunteerStatus = stringPtr(string(event.To))
	row.PreviousStatus = stringPtr(string(event.From))
	row.Detail = stringPtr(event.Action)
	return row, nil
}
