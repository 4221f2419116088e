package controllers

import (
	"context"
	"net/http"

	"github.com/scentdrive/campaign-backend/api/responses"
	"github.com/scentdrive/campaign-backend/api/validators"
	"github.com/scentdrive/campaign-backend/internal/commission"
	"github.com/scentdrive/campaign-backend/internal/reports"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
)

type ReportsService interface {
	Summary(ctx context.Context, top int) (*reports.Summary, error)
}

// ReportsSummary serves the admin dashboard totals. ?top caps the referrer
// leaderboard.
func ReportsSummary(svc ReportsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		top, err := validators.ParseQueryInt(r, "top", 0, 0, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), top)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// scheduleSamples are the bottle counts shown in the schedule preview.
var scheduleSamples = []int{10, 20, 25, 30, 50}

type scheduleResponse struct {
	Name    string                 `json:"name"`
	Samples []commission.Breakdown `json:"samples"`
}

// CommissionSchedule describes the active referral schedule with worked
// examples for a few bottle counts.
func CommissionSchedule(schedule commission.ReferralSchedule, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if schedule == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission schedule unavailable"))
			return
		}

		resp := scheduleResponse{Name: schedule.Name(), Samples: make([]commission.Breakdown, 0, len(scheduleSamples))}
		for _, n := range scheduleSamples {
			resp.Samples = append(resp.Samples, schedule.Breakdown(n))
		}
		responses.WriteSuccess(w, resp)
	}
}
