package orders

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scentdrive/campaign-backend/api/controllers"
	"github.com/scentdrive/campaign-backend/api/middleware"
	"github.com/scentdrive/campaign-backend/api/responses"
	"github.com/scentdrive/campaign-backend/api/validators"
	"github.com/scentdrive/campaign-backend/internal/tracking"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
)

// TrackingService records and lists delivery events.
type TrackingService interface {
	Record(ctx context.Context, input tracking.RecordInput) (*models.TrackingEvent, error)
	List(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error)
}

// recordTrackingRequest carries either a delivery status or a raw courier
// status code, never both.
type recordTrackingRequest struct {
	Status        string     `json:"status" validate:"omitempty,max=40"`
	CourierStatus string     `json:"courier_status" validate:"omitempty,max=20"`
	Location      *string    `json:"location" validate:"omitempty,max=200"`
	Note          *string    `json:"note" validate:"omitempty,max=500"`
	OccurredAt    *time.Time `json:"occurred_at"`
}

func ListTracking(svc TrackingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracking service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := svc.List(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"events": events})
	}
}

// RecordTracking appends a tracking event. Volunteer-sourced events carry the
// caller's volunteer id so the service can check they are the courier.
func RecordTracking(svc TrackingService, source enums.TrackingSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracking service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recordTrackingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := tracking.RecordInput{
			OrderID:       orderID,
			Status:        enums.DeliveryStatus(strings.ToLower(strings.TrimSpace(req.Status))),
			CourierStatus: req.CourierStatus,
			Location:      validators.CleanOptionalText(req.Location, 200),
			Note:          validators.CleanOptionalText(req.Note, 500),
			Source:        source,
			OccurredAt:    req.OccurredAt,
			Actor:         middleware.ActorFromContext(r.Context()),
		}
		if source == enums.TrackingSourceVolunteer {
			volunteerID, err := controllers.VolunteerFromContext(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.ActorVolunteerID = &volunteerID
		}

		event, err := svc.Record(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}
