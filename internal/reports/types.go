package reports

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// Summary is the admin dashboard snapshot.
type Summary struct {
	OrdersByStatus      map[enums.OrderStatus]int64     `json:"orders_by_status"`
	TotalOrders         int64                           `json:"total_orders"`
	QualifyingBottles   int64                           `json:"qualifying_bottles"`
	QualifyingRevenue   decimal.Decimal                 `json:"qualifying_revenue"`
	CommissionLiability decimal.Decimal                 `json:"commission_liability"`
	Unassigned          int64                           `json:"unassigned_orders"`
	NeedsReview         int64                           `json:"needs_review_orders"`
	VolunteersByStatus  map[enums.VolunteerStatus]int64 `json:"volunteers_by_status"`
	TopVolunteers       []TopVolunteer                  `json:"top_volunteers"`
}

type TopVolunteer struct {
	ID                      uuid.UUID       `json:"id"`
	VolunteerID             string          `json:"volunteer_id"`
	Name                    string          `json:"name"`
	TotalReferredBottles    int             `json:"total_referred_bottles"`
	TotalReferralCommission decimal.Decimal `json:"total_referral_commission"`
}

type statusCount struct {
	Status string
	Total  int64
}

type qualifyingTotals struct {
	Bottles int64
	Revenue decimal.Decimal
}

type liabilityTotal struct {
	Total decimal.Decimal
}
