package enums

import "slices"

// Role is the actor role carried in verified access tokens.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleVolunteer Role = "volunteer"
)

var roles = []Role{RoleAdmin, RoleVolunteer}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return slices.Contains(roles, r) }

func ParseRole(raw string) (Role, error) {
	return parse(roles, "role", raw)
}

// VolunteerStatus gates what a registered volunteer may do: only active
// volunteers are matched to deliveries or earn commission.
type VolunteerStatus string

const (
	VolunteerStatusPending   VolunteerStatus = "pending"
	VolunteerStatusActive    VolunteerStatus = "active"
	VolunteerStatusSuspended VolunteerStatus = "suspended"
)

var volunteerStatuses = []VolunteerStatus{
	VolunteerStatusPending, VolunteerStatusActive, VolunteerStatusSuspended,
}

func (s VolunteerStatus) String() string { return string(s) }

func (s VolunteerStatus) IsValid() bool { return slices.Contains(volunteerStatuses, s) }

func ParseVolunteerStatus(raw string) (VolunteerStatus, error) {
	return parse(volunteerStatuses, "volunteer status", raw)
}

// NotificationType categorises entries in a volunteer's inbox.
type NotificationType string

const (
	NotificationTypeDeliveryAssigned   NotificationType = "delivery_assigned"
	NotificationTypeDeliveryUnassigned NotificationType = "delivery_unassigned"
	NotificationTypeAccountStatus      NotificationType = "account_status"
	NotificationTypeCommissionUpdate   NotificationType = "commission_update"
	NotificationTypeAnnouncement       NotificationType = "announcement"
)

var notificationTypes = []NotificationType{
	NotificationTypeDeliveryAssigned, NotificationTypeDeliveryUnassigned,
	NotificationTypeAccountStatus, NotificationTypeCommissionUpdate, NotificationTypeAnnouncement,
}

func (n NotificationType) IsValid() bool { return slices.Contains(notificationTypes, n) }

func ParseNotificationType(raw string) (NotificationType, error) {
	return parse(notificationTypes, "notification type", raw)
}
