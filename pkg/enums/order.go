package enums

import "slices"

// OrderStatus is the customer facing lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPaymentPending OrderStatus = "payment_pending"
	OrderStatusOrdered        OrderStatus = "ordered"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusCantReach      OrderStatus = "cant_reach"
	OrderStatusReturned       OrderStatus = "returned"
)

var orderStatuses = []OrderStatus{
	OrderStatusPaymentPending, OrderStatusOrdered, OrderStatusShipped, OrderStatusDelivered,
	OrderStatusCancelled, OrderStatusCantReach, OrderStatusReturned,
}

// QualifyingOrderStatuses count towards the referring volunteer's bottles.
// A shipped order is still a sale until it comes back.
var QualifyingOrderStatuses = []OrderStatus{OrderStatusOrdered, OrderStatusShipped, OrderStatusDelivered}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return slices.Contains(orderStatuses, s) }

func (s OrderStatus) QualifiesForCommission() bool {
	return slices.Contains(QualifyingOrderStatuses, s)
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	return parse(orderStatuses, "order status", raw)
}

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

var paymentMethods = []PaymentMethod{PaymentMethodCOD, PaymentMethodOnline}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return slices.Contains(paymentMethods, p) }

// InitialOrderStatus is where a new order starts: online payments wait for
// an admin to confirm the transfer, cash on delivery goes straight through.
func (p PaymentMethod) InitialOrderStatus() OrderStatus {
	if p == PaymentMethodOnline {
		return OrderStatusPaymentPending
	}
	return OrderStatusOrdered
}

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	return parse(paymentMethods, "payment method", raw)
}

// DeliveryStatus is the last mile leg of an order.
type DeliveryStatus string

const (
	DeliveryStatusUnassigned     DeliveryStatus = "unassigned"
	DeliveryStatusNeedsReview    DeliveryStatus = "needs_review"
	DeliveryStatusAssigned       DeliveryStatus = "assigned"
	DeliveryStatusPickedUp       DeliveryStatus = "picked_up"
	DeliveryStatusInTransit      DeliveryStatus = "in_transit"
	DeliveryStatusOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryStatusDelivered      DeliveryStatus = "delivered"
	DeliveryStatusFailed         DeliveryStatus = "failed"
	DeliveryStatusReturned       DeliveryStatus = "returned"
)

var deliveryStatuses = []DeliveryStatus{
	DeliveryStatusUnassigned, DeliveryStatusNeedsReview, DeliveryStatusAssigned,
	DeliveryStatusPickedUp, DeliveryStatusInTransit, DeliveryStatusOutForDelivery,
	DeliveryStatusDelivered, DeliveryStatusFailed, DeliveryStatusReturned,
}

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool { return slices.Contains(deliveryStatuses, s) }

// IsTerminal reports whether no further tracking events are expected.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusReturned
}

func ParseDeliveryStatus(raw string) (DeliveryStatus, error) {
	return parse(deliveryStatuses, "delivery status", raw)
}

// TrackingSource records who reported a tracking event.
type TrackingSource string

const (
	TrackingSourceAdmin     TrackingSource = "admin"
	TrackingSourceVolunteer TrackingSource = "volunteer"
	TrackingSourceCourier   TrackingSource = "courier"
	TrackingSourceSystem    TrackingSource = "system"
)

var trackingSources = []TrackingSource{
	TrackingSourceAdmin, TrackingSourceVolunteer, TrackingSourceCourier, TrackingSourceSystem,
}

func (s TrackingSource) IsValid() bool { return slices.Contains(trackingSources, s) }

func ParseTrackingSource(raw string) (TrackingSource, error) {
	return parse(trackingSources, "tracking source", raw)
}
