package tracking

import (
	"strings"

	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// courierStatuses maps the courier partner's status codes onto delivery
// statuses. Codes outside this table are rejected.
var courierStatuses = map[string]enums.DeliveryStatus{
	"PICKED":           enums.DeliveryStatusPickedUp,
	"PICKED_UP":        enums.DeliveryStatusPickedUp,
	"IN_TRANSIT":       enums.DeliveryStatusInTransit,
	"OUT_FOR_DELIVERY": enums.DeliveryStatusOutForDelivery,
	"DELIVERED":        enums.DeliveryStatusDelivered,
	"UNDELIVERED":      enums.DeliveryStatusFailed,
	"RTO":              enums.DeliveryStatusReturned,
}

// MapCourierStatus normalizes a raw courier code and returns the delivery
// status it stands for.
func MapCourierStatus(raw string) (string, enums.DeliveryStatus, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	code = strings.NewReplacer(" ", "_", "-", "_").Replace(code)
	status, ok := courierStatuses[code]
	return code, status, ok
}

// recordable lists the delivery statuses a tracking event may report.
// unassigned, needs_review and assigned belong to the assignment flow.
var recordable = map[enums.DeliveryStatus]bool{
	enums.DeliveryStatusPickedUp:       true,
	enums.DeliveryStatusInTransit:      true,
	enums.DeliveryStatusOutForDelivery: true,
	enums.DeliveryStatusDelivered:      true,
	enums.DeliveryStatusFailed:         true,
	enums.DeliveryStatusReturned:       true,
}
