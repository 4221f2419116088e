package reports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
)

const (
	defaultTop = 10
	maxTop     = 50
)

// Service provides the admin dashboard aggregates.
type Service interface {
	// Summary returns order, bottle and commission totals plus the top
	// referrers. top <= 0 selects the default.
	Summary(ctx context.Context, top int) (*Summary, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Summary(ctx context.Context, top int) (*Summary, error) {
	if top <= 0 {
		top = defaultTop
	}
	if top > maxTop {
		top = maxTop
	}

	summary := &Summary{
		OrdersByStatus:      make(map[enums.OrderStatus]int64),
		VolunteersByStatus:  make(map[enums.VolunteerStatus]int64),
		QualifyingRevenue:   decimal.Zero,
		CommissionLiability: decimal.Zero,
		TopVolunteers:       []TopVolunteer{},
	}

	orderCounts, err := s.repo.OrderCountsByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	for _, row := range orderCounts {
		summary.OrdersByStatus[enums.OrderStatus(row.Status)] = row.Total
		summary.TotalOrders += row.Total
	}

	totals, err := s.repo.QualifyingTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum qualifying orders")
	}
	summary.QualifyingBottles = totals.Bottles
	summary.QualifyingRevenue = totals.Revenue

	if summary.Unassigned, err = s.repo.CountDeliveryStatus(ctx, enums.DeliveryStatusUnassigned); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unassigned orders")
	}
	if summary.NeedsReview, err = s.repo.CountDeliveryStatus(ctx, enums.DeliveryStatusNeedsReview); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count review orders")
	}

	volunteerCounts, err := s.repo.VolunteerCountsByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count volunteers")
	}
	for _, row := range volunteerCounts {
		summary.VolunteersByStatus[enums.VolunteerStatus(row.Status)] = row.Total
	}

	if summary.CommissionLiability, err = s.repo.CommissionLiability(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum commission")
	}

	leaders, err := s.repo.TopVolunteers(ctx, top)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load top volunteers")
	}
	for _, v := range leaders {
		summary.TopVolunteers = append(summary.TopVolunteers, TopVolunteer{
			ID:                      v.ID,
			VolunteerID:             v.VolunteerID,
			Name:                    v.Name,
			TotalReferredBottles:    v.TotalReferredBottles,
			TotalReferralCommission: v.TotalReferralCommission,
		})
	}
	return summary, nil
}
