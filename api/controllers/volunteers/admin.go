package volunteers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/scentdrive/campaign-backend/api/middleware"
	"github.com/scentdrive/campaign-backend/api/responses"
	"github.com/scentdrive/campaign-backend/api/validators"
	"github.com/scentdrive/campaign-backend/internal/commission"
	internalvolunteers "github.com/scentdrive/campaign-backend/internal/volunteers"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
	"github.com/scentdrive/campaign-backend/pkg/pagination"
)

// AdminService is the volunteer management surface.
type AdminService interface {
	Get(ctx context.Context, id uuid.UUID, includeTrashed bool) (*models.Volunteer, error)
	List(ctx context.Context, params internalvolunteers.ListParams) (*pagination.Page[models.Volunteer], error)
	Approve(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error)
	Suspend(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error)
	Reactivate(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error)
	Trash(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error
	Restore(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error
	Purge(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error
}

type Recalculator interface {
	Recalculate(ctx context.Context, volunteerID uuid.UUID, trigger string) (*commission.Result, error)
}

type lifecycleFunc func(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error)

type removalFunc func(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error

func List(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volunteers service unavailable"))
			return
		}

		query := r.URL.Query()
		params := internalvolunteers.ListParams{
			Town:   strings.TrimSpace(query.Get("town")),
			Search: strings.TrimSpace(query.Get("q")),
			Cursor: strings.TrimSpace(query.Get("cursor")),
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseVolunteerStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		var err error
		if params.Trashed, err = validators.ParseQueryBool(r, "trashed", false); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Detail returns a volunteer, including trashed ones.
func Detail(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volunteers service unavailable"))
			return
		}
		id, err := validators.ParseURLUUID(r, "volunteerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		volunteer, err := svc.Get(r.Context(), id, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, volunteer)
	}
}

func Approve(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return lifecycle(nil, logg)
	}
	return lifecycle(svc.Approve, logg)
}

func Suspend(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return lifecycle(nil, logg)
	}
	return lifecycle(svc.Suspend, logg)
}

func Reactivate(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return lifecycle(nil, logg)
	}
	return lifecycle(svc.Reactivate, logg)
}

func Trash(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return removal(nil, logg)
	}
	return removal(svc.Trash, logg)
}

func Restore(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return removal(nil, logg)
	}
	return removal(svc.Restore, logg)
}

// Purge hard-deletes a trashed volunteer.
func Purge(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return removal(nil, logg)
	}
	return removal(svc.Purge, logg)
}

func lifecycle(fn lifecycleFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fn == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volunteers service unavailable"))
			return
		}
		id, err := validators.ParseURLUUID(r, "volunteerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		volunteer, err := fn(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, volunteer)
	}
}

func removal(fn removalFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fn == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "volunteers service unavailable"))
			return
		}
		id, err := validators.ParseURLUUID(r, "volunteerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := fn(r.Context(), id, middleware.ActorFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// RecalculateCommission rebuilds one volunteer's referral totals from their
// order history.
func RecalculateCommission(svc Recalculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		id, err := validators.ParseURLUUID(r, "volunteerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Recalculate(r.Context(), id, commission.TriggerManual)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Commission shows a volunteer's earnings to an admin.
func Commission(svc CommissionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		id, err := validators.ParseURLUUID(r, "volunteerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
