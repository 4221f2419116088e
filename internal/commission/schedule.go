package commission

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ScheduleTiered    = "tiered"
	ScheduleThreshold = "threshold"
)

// Tier pays Rate per bottle for the bottles above the previous tier's bound
// up to and including UpTo. UpTo == 0 marks the open-ended last tier.
type Tier struct {
	UpTo int
	Rate decimal.Decimal
}

// ReferralSchedule turns a cumulative qualifying bottle count into a
// referral commission amount.
type ReferralSchedule interface {
	Name() string
	Commission(totalBottles int) decimal.Decimal
	Breakdown(totalBottles int) Breakdown
}

// TierSchedule is a progressive schedule: each bottle is paid at the rate of
// the tier it falls in.
type TierSchedule struct {
	name  string
	tiers []Tier
}

// TieredSchedule is the default four-band schedule: 2, 4, 6 and then 8 per
// bottle at the 10, 20 and 30 bottle boundaries.
func TieredSchedule() *TierSchedule {
	return &TierSchedule{
		name: ScheduleTiered,
		tiers: []Tier{
			{UpTo: 10, Rate: decimal.NewFromInt(2)},
			{UpTo: 20, Rate: decimal.NewFromInt(4)},
			{UpTo: 30, Rate: decimal.NewFromInt(6)},
			{UpTo: 0, Rate: decimal.NewFromInt(8)},
		},
	}
}

// ThresholdSchedule pays a flat 10 per bottle above a 20 bottle cumulative
// threshold and nothing below it.
func ThresholdSchedule() *TierSchedule {
	return &TierSchedule{
		name: ScheduleThreshold,
		tiers: []Tier{
			{UpTo: 20, Rate: decimal.Zero},
			{UpTo: 0, Rate: decimal.NewFromInt(10)},
		},
	}
}

// ScheduleByName resolves a configured schedule name.
func ScheduleByName(name string) (ReferralSchedule, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScheduleTiered:
		return TieredSchedule(), nil
	case ScheduleThreshold:
		return ThresholdSchedule(), nil
	default:
		return nil, fmt.Errorf("unknown referral schedule %q", name)
	}
}

func (s *TierSchedule) Name() string {
	return s.name
}

// Tiers returns a copy of the schedule bands.
func (s *TierSchedule) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

func (s *TierSchedule) Commission(totalBottles int) decimal.Decimal {
	return s.Breakdown(totalBottles).Total
}

func (s *TierSchedule) Breakdown(totalBottles int) Breakdown {
	if totalBottles < 0 {
		totalBottles = 0
	}
	out := Breakdown{
		Schedule:     s.name,
		TotalBottles: totalBottles,
		Total:        decimal.Zero,
		Tiers:        make([]TierAmount, 0, len(s.tiers)),
	}

	lower := 0
	for i, tier := range s.tiers {
		upper := tier.UpTo
		inTier := 0
		if totalBottles > lower {
			inTier = totalBottles - lower
			if upper > 0 && totalBottles > upper {
				inTier = upper - lower
			}
		}
		amount := tier.Rate.Mul(decimal.NewFromInt(int64(inTier)))
		out.Tiers = append(out.Tiers, TierAmount{
			Tier:    i + 1,
			From:    lower + 1,
			To:      upper,
			Bottles: inTier,
			Rate:    tier.Rate,
			Amount:  amount,
		})
		out.Total = out.Total.Add(amount)

		if upper == 0 {
			break
		}
		lower = upper
	}

	// Rate earned by the next referred bottle.
	next := totalBottles + 1
	for i, tier := range s.tiers {
		if tier.UpTo != 0 && next > tier.UpTo {
			continue
		}
		out.CurrentRate = tier.Rate
		if tier.UpTo != 0 && i+1 < len(s.tiers) {
			rate := s.tiers[i+1].Rate
			out.NextRate = &rate
			out.BottlesToNextTier = tier.UpTo - totalBottles + 1
		}
		break
	}
	return out
}
