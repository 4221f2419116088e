package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
)

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxRole        contextKey = "actor_role"
	ctxVolunteerID contextKey = "volunteer_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// VolunteerIDFromContext returns the volunteer row id carried by volunteer
// tokens, or "" for admins.
func VolunteerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxVolunteerID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithVolunteerID injects the volunteer identifier for downstream handlers.
func WithVolunteerID(ctx context.Context, volunteerID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxVolunteerID, volunteerID)
}

// ActorFromContext builds the audit actor for the authenticated caller. It
// returns nil when no user id was injected by Auth.
func ActorFromContext(ctx context.Context) *outbox.ActorRef {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return nil
	}
	return &outbox.ActorRef{UserID: id, Role: RoleFromContext(ctx)}
}
