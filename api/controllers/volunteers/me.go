package volunteers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/scentdrive/campaign-backend/api/controllers"
	"github.com/scentdrive/campaign-backend/api/responses"
	"github.com/scentdrive/campaign-backend/api/validators"
	"github.com/scentdrive/campaign-backend/internal/commission"
	internalorders "github.com/scentdrive/campaign-backend/internal/orders"
	internalvolunteers "github.com/scentdrive/campaign-backend/internal/volunteers"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/pagination"
)

type Registrar interface {
	Register(ctx context.Context, input internalvolunteers.RegisterInput) (*models.Volunteer, error)
}

type Reader interface {
	Get(ctx context.Context, id uuid.UUID, includeTrashed bool) (*models.Volunteer, error)
}

// CommissionReader serves the earnings view.
type CommissionReader interface {
	Summary(ctx context.Context, volunteerID uuid.UUID) (*commission.Summary, error)
}

// DutyLister lists the orders a volunteer referred or has to deliver.
type DutyLister interface {
	ListReferrals(ctx context.Context, volunteerID uuid.UUID, params pagination.Params) (*pagination.Page[internalorders.ReferralView], error)
	ListDeliveries(ctx context.Context, volunteerID uuid.UUID, params pagination.Params) (*pagination.Page[internalorders.DeliveryDuty], error)
}

type registerRequest struct {
	Name          string  `json:"name" validate:"required,notblank,max=120"`
	Phone         string  `json:"phone" validate:"required,mobile"`
	Email         *string `json:"email" validate:"omitempty,email"`
	UPIID         *string `json:"upi_id" validate:"omitempty,max=100"`
	HouseBuilding string  `json:"house_building" validate:"required,notblank,max=200"`
	Town          string  `json:"town" validate:"required,notblank,max=100"`
	Post          string  `json:"post" validate:"required,notblank,max=100"`
	Pincode       string  `json:"pincode" validate:"omitempty,pincode"`
}

// Register signs up a volunteer. New volunteers start pending until an
// admin approves them.
func Register(svc Registrar, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volunteers service unavailable"))
			return
		}

		var req registerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		volunteer, err := svc.Register(r.Context(), internalvolunteers.RegisterInput{
			Name:  req.Name,
			Phone: req.Phone,
			Email: req.Email,
			UPIID: req.UPIID,
			Address: internalvolunteers.Address{
				HouseBuilding: req.HouseBuilding,
				Town:          req.Town,
				Post:          req.Post,
			},
			Pincode: req.Pincode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":           volunteer.ID,
			"volunteer_id": volunteer.VolunteerID,
			"status":       volunteer.Status,
		})
	}
}

func Me(svc Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volunteers service unavailable"))
			return
		}
		volunteerID, err := controllers.VolunteerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		volunteer, err := svc.Get(r.Context(), volunteerID, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, volunteer)
	}
}

func MyCommission(svc CommissionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		volunteerID, err := controllers.VolunteerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), volunteerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func MyReferrals(svc DutyLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		volunteerID, err := controllers.VolunteerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListReferrals(r.Context(), volunteerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func MyDeliveries(svc DutyLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		volunteerID, err := controllers.VolunteerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListDeliveries(r.Context(), volunteerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
