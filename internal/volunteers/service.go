package volunteers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/contact"
	"github.com/scentdrive/campaign-backend/pkg/db"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
	"github.com/scentdrive/campaign-backend/pkg/outbox/payloads"
	"github.com/scentdrive/campaign-backend/pkg/pagination"
	"github.com/scentdrive/campaign-backend/pkg/refcode"
)

const codeAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier writes a volunteer notification inside the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, notification models.Notification) error
}

// Service covers volunteer registration, lifecycle and address matching.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Volunteer, error)
	Get(ctx context.Context, id uuid.UUID, includeTrashed bool) (*models.Volunteer, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[models.Volunteer], error)
	Approve(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error)
	Suspend(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error)
	Reactivate(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error)
	Trash(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error
	Restore(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error
	Purge(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error
	ResolveReferralTx(ctx context.Context, tx *gorm.DB, code string) (*models.Volunteer, error)
	FindMatchingVolunteers(ctx context.Context, addr Address) []models.Volunteer
	FindMatchingVolunteersTx(ctx context.Context, tx *gorm.DB, addr Address) []models.Volunteer
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	notifier Notifier
	logg     *logger.Logger
	now      func() time.Time
	newCode  func() (string, error)
}

// ServiceParams wires the volunteer service. Notifier is optional.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Notifier   Notifier
	Logger     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("volunteers repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
		newCode:  refcode.Volunteer,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Volunteer, error) {
	name := contact.CleanField(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	phone, ok := contact.NormalizePhone(input.Phone)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone must be a valid mobile number")
	}
	addr := input.Address.Normalize()
	if !addr.Complete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "house, town and post are required")
	}
	pincode := strings.TrimSpace(input.Pincode)
	if pincode != "" && !contact.ValidPincode(pincode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode must be 6 digits")
	}

	exists, err := s.repo.ExistsByPhone(ctx, phone)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check phone")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a volunteer with this phone is already registered")
	}

	volunteer := &models.Volunteer{
		UserID:        input.UserID,
		Name:          name,
		Phone:         phone,
		Email:         trimmedPtr(input.Email),
		UPIID:         trimmedPtr(input.UPIID),
		HouseBuilding: &addr.HouseBuilding,
		Town:          &addr.Town,
		Post:          &addr.Post,
		Pincode:       trimmedPtr(&pincode),
		Status:        enums.VolunteerStatusPending,
	}

	for attempt := 1; ; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate volunteer code")
		}
		volunteer.ID = uuid.Nil
		volunteer.VolunteerID = code

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, volunteer); err != nil {
				return err
			}
			return s.emitStatus(ctx, tx, volunteer, "", volunteer.Status, ActionRegistered, nil)
		})
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, "") {
			if strings.Contains(err.Error(), "phone") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "a volunteer with this phone is already registered")
			}
			if attempt < codeAttempts {
				continue
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create volunteer")
	}

	s.logg.Info(s.logg.WithVolunteerID(ctx, volunteer.ID.String()), "volunteer registered")
	return volunteer, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, includeTrashed bool) (*models.Volunteer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}
	volunteer, err := s.repo.FindByID(ctx, id, includeTrashed)
	if err != nil {
		return nil, mapFindError(err)
	}
	return volunteer, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[models.Volunteer], error) {
	query := listParams{
		Status:  params.Status,
		Town:    contact.CleanField(params.Town),
		Search:  strings.TrimSpace(params.Search),
		Trashed: params.Trashed,
		Limit:   params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list volunteers")
	}
	page := pagination.BuildPage(rows, params.Limit, func(v models.Volunteer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	})
	return &page, nil
}

type transition struct {
	from   enums.VolunteerStatus
	to     enums.VolunteerStatus
	verb   string
	action string
	title  string
	body   string
}

var (
	approveTransition = transition{
		from:   enums.VolunteerStatusPending,
		to:     enums.VolunteerStatusActive,
		verb:   "approve",
		action: ActionApproved,
		title:  "Welcome aboard",
		body:   "Your volunteer account is approved. Share your code %s to start earning.",
	}
	suspendTransition = transition{
		from:   enums.VolunteerStatusActive,
		to:     enums.VolunteerStatusSuspended,
		verb:   "suspend",
		action: ActionSuspended,
		title:  "Account suspended",
		body:   "Your volunteer account %s has been suspended. Contact the campaign team for details.",
	}
	reactivateTransition = transition{
		from:   enums.VolunteerStatusSuspended,
		to:     enums.VolunteerStatusActive,
		verb:   "reactivate",
		action: ActionReactivated,
		title:  "Account reactivated",
		body:   "Your volunteer account %s is active again.",
	}
)

func (s *service) Approve(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error) {
	return s.applyTransition(ctx, id, actor, approveTransition)
}

func (s *service) Suspend(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error) {
	return s.applyTransition(ctx, id, actor, suspendTransition)
}

func (s *service) Reactivate(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.Volunteer, error) {
	return s.applyTransition(ctx, id, actor, reactivateTransition)
}

func (s *service) applyTransition(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef, t transition) (*models.Volunteer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}
	var updated *models.Volunteer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		volunteer, err := repo.FindByID(ctx, id, false)
		if err != nil {
			return mapFindError(err)
		}
		if volunteer.Status != t.from {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s a %s volunteer", t.verb, volunteer.Status)
		}

		now := s.now()
		fields := map[string]any{"status": t.to}
		switch t.to {
		case enums.VolunteerStatusActive:
			fields["suspended_at"] = nil
			if volunteer.ApprovedAt == nil {
				fields["approved_at"] = now
			}
		case enums.VolunteerStatusSuspended:
			fields["suspended_at"] = now
		}
		if err := repo.UpdateFields(ctx, id, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update volunteer status")
		}

		from := volunteer.Status
		volunteer, err = repo.FindByID(ctx, id, false)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload volunteer")
		}
		if err := s.emitStatus(ctx, tx, volunteer, from, t.to, t.action, actor); err != nil {
			return err
		}
		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, tx, models.Notification{
				VolunteerID: id,
				Type:        enums.NotificationTypeAccountStatus,
				Title:       t.title,
				Message:     fmt.Sprintf(t.body, volunteer.VolunteerID),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify volunteer")
			}
		}
		updated = volunteer
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithVolunteerID(ctx, id.String()), map[string]any{
		"action": t.action,
		"status": t.to,
	})
	s.logg.Info(logCtx, "volunteer status changed")
	return updated, nil
}

func (s *service) Trash(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		volunteer, err := repo.FindByID(ctx, id, false)
		if err != nil {
			return mapFindError(err)
		}
		if err := repo.SoftDelete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "trash volunteer")
		}
		return s.emitStatus(ctx, tx, volunteer, volunteer.Status, volunteer.Status, ActionTrashed, actor)
	})
}

func (s *service) Restore(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		volunteer, err := repo.FindByID(ctx, id, true)
		if err != nil {
			return mapFindError(err)
		}
		if !volunteer.DeletedAt.Valid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "volunteer is not in trash")
		}
		if err := repo.Restore(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore volunteer")
		}
		return s.emitStatus(ctx, tx, volunteer, volunteer.Status, volunteer.Status, ActionRestored, actor)
	})
}

// Purge permanently removes a trashed volunteer. Volunteers referenced by
// any order, as referrer or courier, are kept so commission history holds.
func (s *service) Purge(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		volunteer, err := repo.FindByID(ctx, id, true)
		if err != nil {
			return mapFindError(err)
		}
		if !volunteer.DeletedAt.Valid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "move the volunteer to trash before purging")
		}
		refs, err := repo.CountOrderReferences(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order references")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "volunteer is referenced by orders and cannot be purged").
				WithDetails(map[string]any{"orders": refs})
		}
		if err := repo.Purge(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge volunteer")
		}
		return s.emitStatus(ctx, tx, volunteer, volunteer.Status, volunteer.Status, ActionPurged, actor)
	})
}

// ResolveReferralTx maps a customer-entered referral code to an active
// volunteer.
func (s *service) ResolveReferralTx(ctx context.Context, tx *gorm.DB, code string) (*models.Volunteer, error) {
	normalized := refcode.Normalize(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code is empty")
	}
	volunteer, err := s.repo.WithTx(tx).FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code not recognised").
				WithDetails(map[string]any{"referral_code": normalized})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve referral code")
	}
	if volunteer.Status != enums.VolunteerStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code is not active").
			WithDetails(map[string]any{"referral_code": normalized})
	}
	return volunteer, nil
}

// FindMatchingVolunteers returns active volunteers living at addr. It never
// fails: an incomplete address or a query error yields no match.
func (s *service) FindMatchingVolunteers(ctx context.Context, addr Address) []models.Volunteer {
	return s.match(ctx, s.repo, addr)
}

func (s *service) FindMatchingVolunteersTx(ctx context.Context, tx *gorm.DB, addr Address) []models.Volunteer {
	return s.match(ctx, s.repo.WithTx(tx), addr)
}

func (s *service) match(ctx context.Context, repo Repository, addr Address) []models.Volunteer {
	normalized := addr.Normalize()
	if !normalized.Complete() {
		return []models.Volunteer{}
	}
	rows, err := repo.MatchAddress(ctx, normalized)
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"town": normalized.Town,
			"post": normalized.Post,
		})
		s.logg.Error(logCtx, "volunteer address match failed", err)
		return []models.Volunteer{}
	}
	if rows == nil {
		return []models.Volunteer{}
	}
	return rows
}

func (s *service) emitStatus(ctx context.Context, tx *gorm.DB, v *models.Volunteer, from, to enums.VolunteerStatus, action string, actor *outbox.ActorRef) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventVolunteerStatusChanged,
		AggregateType: enums.AggregateVolunteer,
		AggregateID:   v.ID,
		Actor:         actor,
		Data: payloads.VolunteerStatusChangedEvent{
			VolunteerID: v.ID,
			Code:        v.VolunteerID,
			From:        from,
			To:          to,
			Action:      action,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit volunteer event")
	}
	return nil
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "volunteer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load volunteer")
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
