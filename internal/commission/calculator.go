package commission

import "github.com/shopspring/decimal"

// deliveryRatePerBottle is paid per bottle delivered on a single order.
var deliveryRatePerBottle = decimal.NewFromInt(10)

// Breakdown splits a referral commission into its tiers.
type Breakdown struct {
	Schedule          string           `json:"schedule"`
	TotalBottles      int              `json:"total_bottles"`
	Total             decimal.Decimal  `json:"total"`
	CurrentRate       decimal.Decimal  `json:"current_rate"`
	NextRate          *decimal.Decimal `json:"next_rate,omitempty"`
	BottlesToNextTier int              `json:"bottles_to_next_tier,omitempty"`
	Tiers             []TierAmount     `json:"tiers"`
}

// TierAmount is one band of a breakdown. To == 0 means unbounded.
type TierAmount struct {
	Tier    int             `json:"tier"`
	From    int             `json:"from"`
	To      int             `json:"to,omitempty"`
	Bottles int             `json:"bottles"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  decimal.Decimal `json:"amount"`
}

// CalculateReferralCommission applies the tiered schedule to a volunteer's
// cumulative qualifying bottles. Negative input counts as zero.
func CalculateReferralCommission(totalBottles int) decimal.Decimal {
	return TieredSchedule().Commission(totalBottles)
}

// ReferralBreakdown is CalculateReferralCommission with the per-tier split.
func ReferralBreakdown(totalBottles int) Breakdown {
	return TieredSchedule().Breakdown(totalBottles)
}

// CalculateDeliveryCommission is the per-order delivery payout. It is shown
// on dashboards and never stored.
func CalculateDeliveryCommission(bottlesInOrder int) decimal.Decimal {
	if bottlesInOrder <= 0 {
		return decimal.Zero
	}
	return deliveryRatePerBottle.Mul(decimal.NewFromInt(int64(bottlesInOrder)))
}
