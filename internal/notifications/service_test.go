package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/db/dbtest"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	paginationpkg "github.com/scentdrive/campaign-backend/pkg/pagination"
)

type fakeRepository struct {
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	markReadFn    func(ctx context.Context, volunteerID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	markAllReadFn func(ctx context.Context, volunteerID uuid.UUID, now time.Time) (int64, error)
	unread        int64
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil
}

func (f *fakeRepository) CountUnread(ctx context.Context, volunteerID uuid.UUID) (int64, error) {
	return f.unread, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, volunteerID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, volunteerID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, volunteerID uuid.UUID, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, volunteerID, now)
	}
	return 0, nil
}

func (f *fakeRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo)
	return svc
}

func TestService_ListNotifications(t *testing.T) {
	first := models.Notification{ID: uuid.New(), CreatedAt: time.Now()}
	second := models.Notification{ID: uuid.New(), CreatedAt: time.Now().Add(-time.Hour)}

	repo := &fakeRepository{
		unread: 4,
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
			if params.Limit != 1 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return []models.Notification{first, second}, nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.List(context.Background(), ListParams{VolunteerID: uuid.New(), Limit: 1})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result.Items))
	}
	if result.Unread != 4 {
		t.Fatalf("expected unread 4, got %d", result.Unread)
	}
	if result.Cursor == "" {
		t.Fatal("expected cursor for next page")
	}
	decoded, err := paginationpkg.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("failed to parse cursor: %v", err)
	}
	if decoded.ID != first.ID {
		t.Fatalf("cursor should point at the last served row, got %s", decoded.ID)
	}
}

func TestService_ListRequiresVolunteer(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	_, err := svc.List(context.Background(), ListParams{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, volunteerID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{}, nil
		},
	}

	svc := newServiceWithRepo(repo)
	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_MarkReadAlreadyRead(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, volunteerID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: true}, nil
		},
	}

	svc := newServiceWithRepo(repo)
	if err := svc.MarkRead(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestService_MarkAllReadDependencyError(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, volunteerID uuid.UUID, now time.Time) (int64, error) {
			return 0, errors.New("db down")
		},
	}

	svc := newServiceWithRepo(repo)
	_, err := svc.MarkAllRead(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_NotifyPersistsInsideTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newServiceWithRepo(NewRepository(conn))
	volunteerID := uuid.New()

	rollback := errors.New("rollback")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Notify(context.Background(), tx, models.Notification{
			VolunteerID: volunteerID,
			Type:        enums.NotificationTypeAnnouncement,
			Title:       "Dropped",
			Message:     "never committed",
		}); err != nil {
			return err
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("expected rollback, got %v", err)
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		return svc.Notify(context.Background(), tx, models.Notification{
			VolunteerID: volunteerID,
			Type:        enums.NotificationTypeAnnouncement,
			Title:       "Kept",
			Message:     "committed",
		})
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	result, err := svc.List(context.Background(), ListParams{VolunteerID: volunteerID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Title != "Kept" {
		t.Fatalf("expected only the committed notification, got %+v", result.Items)
	}
	if result.Unread != 1 {
		t.Fatalf("expected one unread, got %d", result.Unread)
	}

	marked, err := svc.MarkAllRead(context.Background(), volunteerID)
	if err != nil || marked != 1 {
		t.Fatalf("mark all read: %d %v", marked, err)
	}

	deleted, err := svc.PruneRead(context.Background(), time.Now().UTC().Add(-time.Hour))
	if err != nil || deleted != 0 {
		t.Fatalf("prune before read time: %d %v", deleted, err)
	}
	deleted, err = svc.PruneRead(context.Background(), time.Now().UTC().Add(time.Hour))
	if err != nil || deleted != 1 {
		t.Fatalf("prune after read time: %d %v", deleted, err)
	}
}

func TestService_NotifyRejectsUnknownType(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	err := svc.Notify(context.Background(), nil, models.Notification{
		VolunteerID: uuid.New(),
		Type:        enums.NotificationType("compliance"),
		Title:       "x",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
