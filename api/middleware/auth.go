package middleware

import (
	"net/http"
	"strings"

	"github.com/scentdrive/campaign-backend/api/responses"
	pkgAuth "github.com/scentdrive/campaign-backend/pkg/auth"
	"github.com/scentdrive/campaign-backend/pkg/config"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// Auth validates a bearer token minted by the hosted auth provider and seeds
// the request context with its claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID, role := claims.UserID.String(), string(claims.Role)
			ctx := WithRole(WithUserID(r.Context(), userID), role)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), role)
			}
			if claims.VolunteerID != nil {
				volunteerID := claims.VolunteerID.String()
				ctx = WithVolunteerID(ctx, volunteerID)
				if logg != nil {
					ctx = logg.WithVolunteerID(ctx, volunteerID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// RequireRole admits callers whose token carries role. Volunteer routes also
// need the volunteer id claim since every handler below them is scoped by it.
func RequireRole(role enums.Role, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			switch {
			case RoleFromContext(ctx) != string(role):
				responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "%s role required", role))
			case role == enums.RoleVolunteer && VolunteerIDFromContext(ctx) == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "volunteer profile required"))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
