package commission

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/db"
	"github.com/scentdrive/campaign-backend/pkg/db/dbtest"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
)

type recordingNotifier struct {
	sent []models.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, _ *gorm.DB, notification models.Notification) error {
	n.sent = append(n.sent, notification)
	return nil
}

func newTestService(t *testing.T, conn *gorm.DB, schedule ReferralSchedule, notifier Notifier) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "commission-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         db.Wrap(conn),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Notifier:   notifier,
		Schedule:   schedule,
		Logger:     logg,
	})
	require.NoError(t, err)
	return svc
}

func seedVolunteer(t *testing.T, conn *gorm.DB, status enums.VolunteerStatus) models.Volunteer {
	t.Helper()
	v := models.Volunteer{
		VolunteerID: "VOL-" + uuid.NewString()[:6],
		Name:        "Asha",
		Phone:       uuid.NewString()[:10],
		Status:      status,
	}
	require.NoError(t, conn.Create(&v).Error)
	return v
}

func seedOrder(t *testing.T, conn *gorm.DB, referrer *uuid.UUID, qty int, status enums.OrderStatus) models.Order {
	t.Helper()
	o := models.Order{
		OrderNumber:   fmt.Sprintf("SD-%s", uuid.NewString()[:8]),
		CustomerName:  "Customer",
		CustomerPhone: "9000000000",
		HouseBuilding: "12 Rose Villa",
		Town:          "Kottayam",
		Post:          "Nagampadam",
		Pincode:       "686001",
		Quantity:      qty,
		UnitPrice:     decimal.NewFromInt(499),
		TotalAmount:   decimal.NewFromInt(int64(499 * qty)),
		PaymentMethod: enums.PaymentMethodCOD,
		OrderStatus:   status,
		VolunteerID:   referrer,
	}
	require.NoError(t, conn.Create(&o).Error)
	return o
}

func TestRecalculateSumsQualifyingOrdersOnly(t *testing.T) {
	conn := dbtest.Open(t)
	notifier := &recordingNotifier{}
	svc := newTestService(t, conn, nil, notifier)
	v := seedVolunteer(t, conn, enums.VolunteerStatusActive)

	seedOrder(t, conn, &v.ID, 10, enums.OrderStatusOrdered)
	seedOrder(t, conn, &v.ID, 20, enums.OrderStatusDelivered)
	seedOrder(t, conn, &v.ID, 5, enums.OrderStatusDelivered)
	seedOrder(t, conn, &v.ID, 7, enums.OrderStatusCancelled)
	seedOrder(t, conn, &v.ID, 4, enums.OrderStatusPaymentPending)
	seedOrder(t, conn, nil, 9, enums.OrderStatusOrdered)
	deleted := seedOrder(t, conn, &v.ID, 50, enums.OrderStatusOrdered)
	require.NoError(t, conn.Delete(&deleted).Error)

	result, err := svc.Recalculate(context.Background(), v.ID, TriggerManual)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 35, result.TotalBottles)
	assert.True(t, result.Commission.Equal(decimal.NewFromInt(160)), "got %s", result.Commission)

	var stored models.Volunteer
	require.NoError(t, conn.First(&stored, "id = ?", v.ID).Error)
	assert.Equal(t, 35, stored.TotalReferredBottles)
	assert.True(t, stored.TotalReferralCommission.Equal(decimal.NewFromInt(160)))
	assert.NotNil(t, stored.CommissionUpdatedAt)

	events := dbtest.Outbox(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventCommissionRecalculated, events[0].EventType)
	assert.Equal(t, v.ID, events[0].AggregateID)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, enums.NotificationTypeCommissionUpdate, notifier.sent[0].Type)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newTestService(t, conn, nil, nil)
	v := seedVolunteer(t, conn, enums.VolunteerStatusActive)
	seedOrder(t, conn, &v.ID, 15, enums.OrderStatusOrdered)

	first, err := svc.Recalculate(context.Background(), v.ID, TriggerManual)
	require.NoError(t, err)
	require.True(t, first.Changed)
	assert.True(t, first.Commission.Equal(decimal.NewFromInt(40)))

	second, err := svc.Recalculate(context.Background(), v.ID, TriggerManual)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.True(t, second.Commission.Equal(first.Commission))
	assert.Len(t, dbtest.Outbox(t, conn), 1, "unchanged totals must not emit")
}

func TestRecalculateDropsToZeroWhenOrdersCancelled(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newTestService(t, conn, nil, nil)
	v := seedVolunteer(t, conn, enums.VolunteerStatusActive)
	order := seedOrder(t, conn, &v.ID, 12, enums.OrderStatusOrdered)

	_, err := svc.Recalculate(context.Background(), v.ID, TriggerOrderPlaced)
	require.NoError(t, err)

	require.NoError(t, conn.Model(&order).Update("order_status", enums.OrderStatusCancelled).Error)
	result, err := svc.Recalculate(context.Background(), v.ID, TriggerOrderStatus)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 0, result.TotalBottles)
	assert.True(t, result.Commission.IsZero())
}

func TestRecalculateUsesConfiguredSchedule(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newTestService(t, conn, ThresholdSchedule(), nil)
	v := seedVolunteer(t, conn, enums.VolunteerStatusActive)
	seedOrder(t, conn, &v.ID, 25, enums.OrderStatusDelivered)

	result, err := svc.Recalculate(context.Background(), v.ID, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, ScheduleThreshold, result.Schedule)
	assert.True(t, result.Commission.Equal(decimal.NewFromInt(50)), "got %s", result.Commission)
}

func TestRecalculateUnknownVolunteer(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newTestService(t, conn, nil, nil)

	_, err := svc.Recalculate(context.Background(), uuid.New(), TriggerManual)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Recalculate(context.Background(), uuid.Nil, TriggerManual)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestReconcileAllRepairsDrift(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newTestService(t, conn, nil, nil)

	drifted := seedVolunteer(t, conn, enums.VolunteerStatusActive)
	seedOrder(t, conn, &drifted.ID, 5, enums.OrderStatusOrdered)
	require.NoError(t, conn.Model(&drifted).Updates(map[string]any{
		"total_referred_bottles":    99,
		"total_referral_commission": decimal.NewFromInt(999),
	}).Error)

	suspended := seedVolunteer(t, conn, enums.VolunteerStatusSuspended)
	seedOrder(t, conn, &suspended.ID, 11, enums.OrderStatusDelivered)

	pending := seedVolunteer(t, conn, enums.VolunteerStatusPending)
	seedOrder(t, conn, &pending.ID, 3, enums.OrderStatusDelivered)

	summary, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 2, summary.Changed)
	assert.Zero(t, summary.Failed)

	var stored models.Volunteer
	require.NoError(t, conn.First(&stored, "id = ?", drifted.ID).Error)
	assert.Equal(t, 5, stored.TotalReferredBottles)
	assert.True(t, stored.TotalReferralCommission.Equal(decimal.NewFromInt(10)))

	require.NoError(t, conn.First(&stored, "id = ?", pending.ID).Error)
	assert.Zero(t, stored.TotalReferredBottles, "pending volunteers are not reconciled")

	again, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Changed)
}

func TestSummaryIncludesDeliveryCommission(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newTestService(t, conn, nil, nil)
	v := seedVolunteer(t, conn, enums.VolunteerStatusActive)
	seedOrder(t, conn, &v.ID, 12, enums.OrderStatusOrdered)

	delivered := seedOrder(t, conn, nil, 3, enums.OrderStatusDelivered)
	require.NoError(t, conn.Model(&delivered).Updates(map[string]any{
		"delivery_volunteer_id": v.ID,
		"is_delivery_duty":      true,
		"delivery_status":       enums.DeliveryStatusDelivered,
	}).Error)
	pendingDuty := seedOrder(t, conn, nil, 4, enums.OrderStatusOrdered)
	require.NoError(t, conn.Model(&pendingDuty).Updates(map[string]any{
		"delivery_volunteer_id": v.ID,
		"is_delivery_duty":      true,
		"delivery_status":       enums.DeliveryStatusAssigned,
	}).Error)

	_, err := svc.Recalculate(context.Background(), v.ID, TriggerManual)
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, summary.ReferredBottles)
	assert.True(t, summary.ReferralCommission.Equal(decimal.NewFromInt(28)))
	assert.Equal(t, 3, summary.DeliveredBottles)
	assert.True(t, summary.DeliveryCommission.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 12, summary.Breakdown.TotalBottles)
}
