package enums

import "slices"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateVolunteer OutboxAggregateType = "volunteer"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateVolunteer}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return parse(aggregateTypes, "aggregate type", raw)
}

// OutboxEventType is published as the event_type attribute on Pub/Sub.
type OutboxEventType string

const (
	EventOrderPlaced            OutboxEventType = "order_placed"
	EventOrderStatusChanged     OutboxEventType = "order_status_changed"
	EventCommissionRecalculated OutboxEventType = "commission_recalculated"
	EventDeliveryAssigned       OutboxEventType = "delivery_assigned"
	EventDeliveryReviewRequired OutboxEventType = "delivery_review_required"
	EventTrackingEventRecorded  OutboxEventType = "tracking_event_recorded"
	EventVolunteerStatusChanged OutboxEventType = "volunteer_status_changed"
)

var outboxEventTypes = []OutboxEventType{
	EventOrderPlaced, EventOrderStatusChanged, EventCommissionRecalculated, EventDeliveryAssigned,
	EventDeliveryReviewRequired, EventTrackingEventRecorded, EventVolunteerStatusChanged,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(outboxEventTypes, e) }

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parse(outboxEventTypes, "event type", raw)
}
