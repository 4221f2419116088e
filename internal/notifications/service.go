package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/db/models"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/pagination"
)

// Service defines notification write, list and read operations.
type Service interface {
	Notify(ctx context.Context, tx *gorm.DB, notification models.Notification) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, volunteerID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, volunteerID uuid.UUID) (int64, error)
	PruneRead(ctx context.Context, cutoff time.Time) (int64, error)
}

type service struct {
	repo Repository
}

// ListParams configures pagination for notifications.
type ListParams struct {
	VolunteerID uuid.UUID
	Limit       int
	Cursor      string
	UnreadOnly  bool
}

// ListResult wraps returned notifications, the cursor for the next page and
// the volunteer's unread badge count.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
	Unread int64                 `json:"unread"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

// Notify stores a notification inside tx so it commits or rolls back with
// the change that caused it.
func (s *service) Notify(ctx context.Context, tx *gorm.DB, notification models.Notification) error {
	if notification.VolunteerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification volunteer id required")
	}
	if !notification.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type")
	}
	if notification.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification title required")
	}
	return s.repo.WithTx(tx).Create(ctx, &notification)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.VolunteerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}

	query := listNotificationsParams{
		VolunteerID: params.VolunteerID,
		Limit:       params.Limit,
		UnreadOnly:  params.UnreadOnly,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, params.VolunteerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	page := pagination.BuildPage(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return &ListResult{
		Items:  page.Items,
		Cursor: page.NextCursor,
		Unread: unread,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, volunteerID, notificationID uuid.UUID) error {
	if volunteerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, volunteerID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, volunteerID uuid.UUID) (int64, error) {
	if volunteerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}

	count, err := s.repo.MarkAllRead(ctx, volunteerID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) PruneRead(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune notifications")
	}
	return deleted, nil
}
