package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
)

func order(qty int) models.Order {
	return models.Order{
		OrderNumber:    "SD-" + uuid.NewString()[:8],
		CustomerName:   "Customer",
		CustomerPhone:  "9000000000",
		HouseBuilding:  "12 Rose Villa",
		Town:           "Kottayam",
		Post:           "Nagampadam",
		Pincode:        "686001",
		Quantity:       qty,
		UnitPrice:      decimal.NewFromInt(499),
		TotalAmount:    decimal.NewFromInt(int64(499 * qty)),
		PaymentMethod:  enums.PaymentMethodCOD,
		OrderStatus:    enums.OrderStatusOrdered,
		DeliveryStatus: enums.DeliveryStatusUnassigned,
	}
}

func TestOpenEnforcesOrderChecks(t *testing.T) {
	conn := Open(t)

	empty := order(0)
	assert.Error(t, conn.Create(&empty).Error, "quantity must be positive")

	courier := models.Volunteer{
		VolunteerID: "VOL-" + uuid.NewString()[:6],
		Name:        "Courier",
		Phone:       uuid.NewString()[:10],
		Status:      enums.VolunteerStatusActive,
	}
	require.NoError(t, conn.Create(&courier).Error)

	o := order(2)
	require.NoError(t, conn.Create(&o).Error)

	err := conn.Model(&o).Updates(map[string]any{"delivery_volunteer_id": courier.ID}).Error
	assert.Error(t, err, "a delivery volunteer without the duty flag is rejected")

	err = conn.Model(&o).Updates(map[string]any{
		"delivery_volunteer_id": courier.ID,
		"is_delivery_duty":      true,
	}).Error
	assert.NoError(t, err)
}
