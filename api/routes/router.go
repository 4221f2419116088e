package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scentdrive/campaign-backend/api/controllers"
	ordercontrollers "github.com/scentdrive/campaign-backend/api/controllers/orders"
	volunteercontrollers "github.com/scentdrive/campaign-backend/api/controllers/volunteers"
	"github.com/scentdrive/campaign-backend/api/middleware"
	"github.com/scentdrive/campaign-backend/internal/assignment"
	"github.com/scentdrive/campaign-backend/internal/commission"
	"github.com/scentdrive/campaign-backend/internal/notifications"
	"github.com/scentdrive/campaign-backend/internal/orders"
	"github.com/scentdrive/campaign-backend/internal/reports"
	"github.com/scentdrive/campaign-backend/internal/tracking"
	"github.com/scentdrive/campaign-backend/internal/volunteers"
	"github.com/scentdrive/campaign-backend/pkg/config"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	pkgredis "github.com/scentdrive/campaign-backend/pkg/redis"
)

// RedisStore covers what rate limiting and idempotency need from redis.
type RedisStore interface {
	pkgredis.IdempotencyStore
	pkgredis.RateLimitStore
}

type httpObserver interface {
	Observe(method, route string, status int, duration time.Duration)
}

// Dependencies carries everything the router hands to controllers. Nil
// services make their routes answer 500 rather than panic.
type Dependencies struct {
	DB      controllers.Pinger
	Redis   RedisStore
	Metrics httpObserver
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler

	Orders        orders.Service
	Volunteers    volunteers.Service
	Assignment    assignment.Service
	Commission    commission.Service
	Tracking      tracking.Service
	Notifications notifications.Service
	Reports       reports.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	var redisPinger controllers.Pinger
	if p, ok := deps.Redis.(controllers.Pinger); ok {
		redisPinger = p
	}

	orderPolicy := middleware.NewRateLimitPolicy("orders", cfg.RateLimit.OrderWindow, cfg.RateLimit.OrderIPLimit, cfg.RateLimit.OrderPhoneLimit)
	registerPolicy := middleware.NewRateLimitPolicy("register", cfg.RateLimit.RegisterWindow, cfg.RateLimit.RegisterIPLimit, 0)
	trackingPolicy := middleware.NewRateLimitPolicy("tracking", cfg.RateLimit.TrackingWindow, cfg.RateLimit.TrackingIPLimit, 0)

	var schedule commission.ReferralSchedule
	if deps.Commission != nil {
		schedule = deps.Commission.Schedule()
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": redisPinger,
		}))
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.With(middleware.RateLimit(orderPolicy, deps.Redis, logg)).
				Post("/orders", ordercontrollers.PlaceOrder(deps.Orders, logg))
			r.With(middleware.RateLimit(trackingPolicy, deps.Redis, logg)).
				Get("/orders/{orderNumber}/tracking", ordercontrollers.PublicTracking(deps.Tracking, logg))
			r.With(middleware.RateLimit(registerPolicy, deps.Redis, logg)).
				Post("/volunteers/register", volunteercontrollers.Register(deps.Volunteers, logg))
		})

		r.Route("/volunteer/me", func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, logg),
				middleware.RequireRole(enums.RoleVolunteer, logg),
				middleware.Idempotency(deps.Redis, logg),
			)
			r.Get("/", volunteercontrollers.Me(deps.Volunteers, logg))
			r.Get("/commission", volunteercontrollers.MyCommission(deps.Commission, logg))
			r.Get("/referrals", volunteercontrollers.MyReferrals(deps.Orders, logg))
			r.Get("/deliveries", volunteercontrollers.MyDeliveries(deps.Orders, logg))
			r.Post("/deliveries/{orderId}/tracking", ordercontrollers.RecordTracking(deps.Tracking, enums.TrackingSourceVolunteer, logg))
			r.Get("/notifications", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, logg),
				middleware.RequireRole(enums.RoleAdmin, logg),
				middleware.Idempotency(deps.Redis, logg),
			)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Route("/{orderId}", func(r chi.Router) {
					r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
					r.Delete("/", ordercontrollers.Delete(deps.Orders, logg))
					r.Post("/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
					r.Post("/confirm-payment", ordercontrollers.ConfirmPayment(deps.Orders, logg))
					r.Patch("/referral", ordercontrollers.ChangeReferral(deps.Orders, logg))
					r.Post("/auto-assign", ordercontrollers.AutoAssign(deps.Assignment, logg))
					r.Get("/candidates", ordercontrollers.Candidates(deps.Assignment, logg))
					r.Post("/assign", ordercontrollers.Assign(deps.Assignment, logg))
					r.Post("/unassign", ordercontrollers.Unassign(deps.Assignment, logg))
					r.Get("/tracking", ordercontrollers.ListTracking(deps.Tracking, logg))
					r.Post("/tracking", ordercontrollers.RecordTracking(deps.Tracking, enums.TrackingSourceAdmin, logg))
				})
			})

			r.Route("/volunteers", func(r chi.Router) {
				r.Get("/", volunteercontrollers.List(deps.Volunteers, logg))
				r.Route("/{volunteerId}", func(r chi.Router) {
					r.Get("/", volunteercontrollers.Detail(deps.Volunteers, logg))
					r.Delete("/", volunteercontrollers.Purge(deps.Volunteers, logg))
					r.Post("/approve", volunteercontrollers.Approve(deps.Volunteers, logg))
					r.Post("/suspend", volunteercontrollers.Suspend(deps.Volunteers, logg))
					r.Post("/reactivate", volunteercontrollers.Reactivate(deps.Volunteers, logg))
					r.Post("/trash", volunteercontrollers.Trash(deps.Volunteers, logg))
					r.Post("/restore", volunteercontrollers.Restore(deps.Volunteers, logg))
					r.Get("/commission", volunteercontrollers.Commission(deps.Commission, logg))
					r.Post("/commission/recalculate", volunteercontrollers.RecalculateCommission(deps.Commission, logg))
				})
			})

			r.Get("/reports/summary", controllers.ReportsSummary(deps.Reports, logg))
			r.Get("/commission/schedule", controllers.CommissionSchedule(schedule, logg))
		})
	})

	return r
}
