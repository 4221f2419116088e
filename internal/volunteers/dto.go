package volunteers

import (
	"github.com/google/uuid"

	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// RegisterInput is a self-registration from the public campaign page.
type RegisterInput struct {
	Name    string
	Phone   string
	Email   *string
	UPIID   *string
	Address Address
	Pincode string
	UserID  *uuid.UUID
}

// ListParams filters the admin volunteer list.
type ListParams struct {
	Status  *enums.VolunteerStatus
	Town    string
	Search  string
	Trashed bool
	Limit   int
	Cursor  string
}

// Lifecycle actions carried on volunteer_status_changed events.
const (
	ActionRegistered  = "registered"
	ActionApproved    = "approved"
	ActionSuspended   = "suspended"
	ActionReactivated = "reactivated"
	ActionTrashed     = "trashed"
	ActionRestored    = "restored"
	ActionPurged      = "purged"
)
