package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scentdrive/campaign-backend/pkg/auth"
	"github.com/scentdrive/campaign-backend/pkg/config"
	"github.com/scentdrive/campaign-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "scentdrive-auth"}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsForeignIssuer(t *testing.T) {
	foreign := config.JWTConfig{Secret: testJWT.Secret, Issuer: "someone-else"}
	token := mintTestToken(t, foreign, enums.RoleAdmin, nil)
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsVolunteerClaims(t *testing.T) {
	volunteerID := uuid.New()
	token := mintTestToken(t, testJWT, enums.RoleVolunteer, &volunteerID)

	var captured struct {
		user      string
		role      string
		volunteer string
	}
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		captured.volunteer = VolunteerIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user == "" {
		t.Fatal("expected user id in context")
	}
	if captured.role != string(enums.RoleVolunteer) {
		t.Fatalf("expected role volunteer got %s", captured.role)
	}
	if captured.volunteer != volunteerID.String() {
		t.Fatalf("expected volunteer %s got %s", volunteerID, captured.volunteer)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		volunteer string
		require   enums.Role
		want      int
	}{
		{"admin allowed", "admin", "", enums.RoleAdmin, http.StatusOK},
		{"volunteer blocked from admin", "volunteer", uuid.NewString(), enums.RoleAdmin, http.StatusForbidden},
		{"volunteer allowed", "volunteer", uuid.NewString(), enums.RoleVolunteer, http.StatusOK},
		{"volunteer without profile", "volunteer", "", enums.RoleVolunteer, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := WithRole(req.Context(), tt.role)
			if tt.volunteer != "" {
				ctx = WithVolunteerID(ctx, tt.volunteer)
			}
			resp := httptest.NewRecorder()
			RequireRole(tt.require, nil)(okHandler()).ServeHTTP(resp, req.WithContext(ctx))
			if resp.Code != tt.want {
				t.Fatalf("expected %d got %d", tt.want, resp.Code)
			}
		})
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.Role, volunteerID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:      uuid.New(),
		Role:        role,
		VolunteerID: volunteerID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc.def":   {"abc.def", true},
		"bearer   abc.def": {"abc.def", true},
		"Basic dXNlcjpw":   {"", false},
		"Bearer ":          {"", false},
		"abc.def":          {"", false},
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		token, ok := bearerToken(req)
		if ok != want.ok || token != want.token {
			t.Fatalf("%q: got (%q, %v) want (%q, %v)", header, token, ok, want.token, want.ok)
		}
	}
}
