package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scentdrive/campaign-backend/api/middleware"
	"github.com/scentdrive/campaign-backend/internal/assignment"
	internalorders "github.com/scentdrive/campaign-backend/internal/orders"
	"github.com/scentdrive/campaign-backend/internal/tracking"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
	"github.com/scentdrive/campaign-backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func asAdmin(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(enums.RoleAdmin))
	return req.WithContext(ctx)
}

type stubPlacer struct {
	got internalorders.CreateInput
	err error
}

func (s *stubPlacer) Create(ctx context.Context, input internalorders.CreateInput) (*models.Order, error) {
	s.got = input
	if s.err != nil {
		return nil, s.err
	}
	volunteerID := uuid.New()
	return &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "SD-ABC123",
		OrderStatus:    enums.OrderStatusOrdered,
		PaymentMethod:  enums.PaymentMethodCOD,
		Quantity:       input.Quantity,
		UnitPrice:      decimal.NewFromInt(499),
		TotalAmount:    decimal.NewFromInt(int64(499 * input.Quantity)),
		DeliveryStatus: enums.DeliveryStatusUnassigned,
		VolunteerID:    &volunteerID,
	}, nil
}

func TestPlaceOrder(t *testing.T) {
	svc := &stubPlacer{}
	body := `{"customer_name":"Asha","customer_phone":"9876543210","house_building":"12 Lake View","town":"Kochi","post":"Edappally","pincode":"682024","quantity":2,"payment_method":"COD","referral_code":"sd-7k2p"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()

	PlaceOrder(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.got.PaymentMethod != enums.PaymentMethodCOD || svc.got.Quantity != 2 || svc.got.ReferralCode != "sd-7k2p" {
		t.Fatalf("unexpected input %+v", svc.got)
	}

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["order_number"] != "SD-ABC123" || envelope.Data["referred"] != true {
		t.Fatalf("unexpected response %v", envelope.Data)
	}
	if _, leaked := envelope.Data["customer_phone"]; leaked {
		t.Fatal("customer phone must not be echoed")
	}
}

func TestPlaceOrderRejectsInvalidBody(t *testing.T) {
	cases := map[string]string{
		"bad phone":     `{"customer_name":"Asha","customer_phone":"12345","house_building":"x","town":"y","post":"z","pincode":"682024","quantity":1}`,
		"bad pincode":   `{"customer_name":"Asha","customer_phone":"9876543210","house_building":"x","town":"y","post":"z","pincode":"68","quantity":1}`,
		"zero quantity": `{"customer_name":"Asha","customer_phone":"9876543210","house_building":"x","town":"y","post":"z","pincode":"682024","quantity":0}`,
		"unknown field": `{"customer_name":"Asha","customer_phone":"9876543210","house_building":"x","town":"y","post":"z","pincode":"682024","quantity":1,"discount":5}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubPlacer{}
			resp := httptest.NewRecorder()
			PlaceOrder(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body)))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
			if svc.got.CustomerName != "" {
				t.Fatal("service must not be called")
			}
		})
	}
}

func TestPlaceOrderSurfacesServiceErrors(t *testing.T) {
	svc := &stubPlacer{err: pkgerrors.New(pkgerrors.CodeValidation, "referral code is not active")}
	body := `{"customer_name":"Asha","customer_phone":"9876543210","house_building":"x","town":"y","post":"z","pincode":"682024","quantity":1,"referral_code":"nope"}`
	resp := httptest.NewRecorder()
	PlaceOrder(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type timelineFunc func(ctx context.Context, orderNumber, phone string) (*tracking.Timeline, error)

func (f timelineFunc) PublicTimeline(ctx context.Context, orderNumber, phone string) (*tracking.Timeline, error) {
	return f(ctx, orderNumber, phone)
}

func TestPublicTracking(t *testing.T) {
	svc := timelineFunc(func(ctx context.Context, orderNumber, phone string) (*tracking.Timeline, error) {
		if orderNumber != "SD-ABC123" || phone != "9876543210" {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return &tracking.Timeline{OrderNumber: orderNumber, Events: []tracking.TimelineEvent{}}, nil
	})

	req := withParam(httptest.NewRequest(http.MethodGet, "/?phone=9876543210", nil), "orderNumber", "SD-ABC123")
	resp := httptest.NewRecorder()
	PublicTracking(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	req = withParam(httptest.NewRequest(http.MethodGet, "/?phone=9000000000", nil), "orderNumber", "SD-ABC123")
	resp = httptest.NewRecorder()
	PublicTracking(svc, testLogger())(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}

	req = withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderNumber", "SD-ABC123")
	resp = httptest.NewRecorder()
	PublicTracking(svc, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without phone, got %d", resp.Code)
	}
}

type stubAdmin struct {
	listParams internalorders.ListParams
	statusIn   internalorders.UpdateStatusInput
	deleted    uuid.UUID
	actor      *outbox.ActorRef
}

func (s *stubAdmin) UpdateStatus(ctx context.Context, input internalorders.UpdateStatusInput) (*models.Order, error) {
	s.statusIn = input
	return &models.Order{ID: input.OrderID, OrderStatus: input.Status}, nil
}

func (s *stubAdmin) ConfirmPayment(ctx context.Context, orderID uuid.UUID, reference string, actor *outbox.ActorRef) (*models.Order, error) {
	ref := reference
	s.actor = actor
	return &models.Order{ID: orderID, OrderStatus: enums.OrderStatusOrdered, PaymentReference: &ref}, nil
}

func (s *stubAdmin) ChangeReferral(ctx context.Context, orderID uuid.UUID, code string, actor *outbox.ActorRef) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (s *stubAdmin) Delete(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) error {
	s.deleted = orderID
	s.actor = actor
	return nil
}

func (s *stubAdmin) List(ctx context.Context, params internalorders.ListParams) (*pagination.Page[models.Order], error) {
	s.listParams = params
	return &pagination.Page[models.Order]{Items: []models.Order{}}, nil
}

func (s *stubAdmin) Detail(ctx context.Context, orderID uuid.UUID) (*internalorders.OrderDetail, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubAdmin{}
	volunteerID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?status=ordered&delivery_status=needs_review&volunteer_id="+volunteerID.String()+"&unassigned=true&q=asha&limit=10", nil)
	resp := httptest.NewRecorder()

	List(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	p := svc.listParams
	if p.Status == nil || *p.Status != enums.OrderStatusOrdered {
		t.Fatalf("unexpected status filter %v", p.Status)
	}
	if p.DeliveryStatus == nil || *p.DeliveryStatus != enums.DeliveryStatusNeedsReview {
		t.Fatalf("unexpected delivery filter %v", p.DeliveryStatus)
	}
	if p.VolunteerID == nil || *p.VolunteerID != volunteerID || !p.UnassignedOnly || p.Search != "asha" || p.Limit != 10 {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	resp := httptest.NewRecorder()
	List(&stubAdmin{}, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/?status=lost", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateStatusCarriesActor(t *testing.T) {
	svc := &stubAdmin{}
	orderID := uuid.New()
	adminID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"status":"Shipped","reason":"handed to courier"}`))
	req = asAdmin(withParam(req, "orderId", orderID.String()), adminID)
	resp := httptest.NewRecorder()

	UpdateStatus(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.statusIn.OrderID != orderID || svc.statusIn.Status != enums.OrderStatusShipped || svc.statusIn.Reason != "handed to courier" {
		t.Fatalf("unexpected input %+v", svc.statusIn)
	}
	if svc.statusIn.Actor == nil || svc.statusIn.Actor.UserID != adminID || svc.statusIn.Actor.Role != string(enums.RoleAdmin) {
		t.Fatalf("unexpected actor %+v", svc.statusIn.Actor)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"status":"lost"}`))
	req = withParam(req, "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	UpdateStatus(&stubAdmin{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestConfirmPaymentRequiresReference(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reference":"  "}`))
	req = withParam(req, "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	ConfirmPayment(&stubAdmin{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDeleteReturnsNoContent(t *testing.T) {
	svc := &stubAdmin{}
	orderID := uuid.New()
	req := asAdmin(withParam(httptest.NewRequest(http.MethodDelete, "/", nil), "orderId", orderID.String()), uuid.New())
	resp := httptest.NewRecorder()

	Delete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.deleted != orderID || svc.actor == nil {
		t.Fatalf("unexpected delete call %s %+v", svc.deleted, svc.actor)
	}
}

func TestDetailNotFound(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	Detail(&stubAdmin{}, testLogger())(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

type stubAssigner struct {
	manualVolunteer uuid.UUID
}

func (s *stubAssigner) AutoAssign(ctx context.Context, orderID uuid.UUID) (*assignment.Result, error) {
	return &assignment.Result{OrderID: orderID, Outcome: assignment.OutcomeNoMatch, DeliveryStatus: enums.DeliveryStatusNeedsReview}, nil
}

func (s *stubAssigner) ManualAssign(ctx context.Context, orderID, volunteerID uuid.UUID, actor *outbox.ActorRef) (*assignment.Result, error) {
	s.manualVolunteer = volunteerID
	return &assignment.Result{OrderID: orderID, DeliveryStatus: enums.DeliveryStatusAssigned, DeliveryVolunteerID: &volunteerID}, nil
}

func (s *stubAssigner) Unassign(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) (*assignment.Result, error) {
	return &assignment.Result{OrderID: orderID, DeliveryStatus: enums.DeliveryStatusNeedsReview}, nil
}

func (s *stubAssigner) Candidates(ctx context.Context, orderID uuid.UUID) ([]assignment.Candidate, error) {
	return nil, nil
}

func TestAssign(t *testing.T) {
	svc := &stubAssigner{}
	volunteerID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"volunteer_id":"`+volunteerID.String()+`"}`))
	req = withParam(req, "orderId", uuid.NewString())
	resp := httptest.NewRecorder()

	Assign(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.manualVolunteer != volunteerID {
		t.Fatalf("unexpected volunteer %s", svc.manualVolunteer)
	}
}

func TestAssignRequiresVolunteer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{}`))
	req = withParam(req, "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	Assign(&stubAssigner{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCandidatesNeverNull(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	Candidates(&stubAssigner{}, testLogger())(resp, req)

	var envelope struct {
		Data struct {
			Candidates []assignment.Candidate `json:"candidates"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Candidates == nil {
		t.Fatal("expected empty candidates array")
	}
}

type stubTracking struct {
	got tracking.RecordInput
}

func (s *stubTracking) Record(ctx context.Context, input tracking.RecordInput) (*models.TrackingEvent, error) {
	s.got = input
	return &models.TrackingEvent{ID: uuid.New(), OrderID: input.OrderID, Status: enums.DeliveryStatusPickedUp, Source: input.Source}, nil
}

func (s *stubTracking) List(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error) {
	return []models.TrackingEvent{}, nil
}

func TestRecordTrackingVolunteerScope(t *testing.T) {
	svc := &stubTracking{}
	volunteerID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"courier_status":"PKD","location":"Kochi hub"}`))
	req = withParam(req, "orderId", uuid.NewString())
	req = req.WithContext(middleware.WithVolunteerID(req.Context(), volunteerID.String()))
	resp := httptest.NewRecorder()

	RecordTracking(svc, enums.TrackingSourceVolunteer, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.got.ActorVolunteerID == nil || *svc.got.ActorVolunteerID != volunteerID {
		t.Fatalf("expected volunteer scope, got %+v", svc.got.ActorVolunteerID)
	}
	if svc.got.CourierStatus != "PKD" || svc.got.Source != enums.TrackingSourceVolunteer {
		t.Fatalf("unexpected input %+v", svc.got)
	}
}

func TestRecordTrackingAdminHasNoVolunteerScope(t *testing.T) {
	svc := &stubTracking{}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"status":"in_transit"}`))
	req = asAdmin(withParam(req, "orderId", uuid.NewString()), uuid.New())
	resp := httptest.NewRecorder()

	RecordTracking(svc, enums.TrackingSourceAdmin, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.got.ActorVolunteerID != nil || svc.got.Status != enums.DeliveryStatusInTransit || svc.got.Actor == nil {
		t.Fatalf("unexpected input %+v", svc.got)
	}
}

func TestRecordTrackingVolunteerMissingContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"status":"in_transit"}`))
	req = withParam(req, "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	RecordTracking(&stubTracking{}, enums.TrackingSourceVolunteer, testLogger())(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
