package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
)

type sampleBody struct {
	Name    string `json:"name" validate:"notblank,max=20"`
	Phone   string `json:"phone" validate:"required,mobile"`
	Pincode string `json:"pincode" validate:"required,pincode"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  ","phone":"12345","pincode":"0123"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["name"])
	assert.Contains(t, details["phone"], "mobile")
	assert.Contains(t, details["pincode"], "pincode")
}

func TestDecodeJSONBodyAcceptsValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha","phone":"+91 98765 43210","pincode":"686001"}`))
	var body sampleBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, "Asha", body.Name)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha","extra":true}`))
	var body sampleBody
	assert.Error(t, DecodeJSONBody(req, &body))
}

func TestQueryParsers(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&unassigned=true&volunteer="+id.String(), nil)

	limit, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)

	flag, err := ParseQueryBool(req, "unassigned", false)
	require.NoError(t, err)
	assert.True(t, flag)

	parsed, err := ParseQueryUUID(req, "volunteer")
	require.NoError(t, err)
	assert.Equal(t, id, *parsed)

	missing, err := ParseQueryUUID(req, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	bad := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err = ParseQueryInt(bad, "limit", 25, 1, 100)
	assert.Error(t, err)
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseURLUUID(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseURLUUID(req, "missing")
	assert.Error(t, err)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "left at gate", CleanText("  left\tat \n gate ", 0))
	assert.Equal(t, "abc", CleanText("  abcdef ", 3))
	assert.Equal(t, "ab", CleanText("ab cd", 3))
	assert.Equal(t, "नमस्", CleanText("नमस्ते", 4))
	assert.Equal(t, "okay", CleanText("ok\x00ay", 0))
	assert.Empty(t, CleanText(" \t\n", 10))
}

func TestDecodeJSONBodyReportsShapeProblems(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"syntax":   `{"name":`,
		"type":     `{"name":42}`,
		"trailing": `{"name":"Asha","phone":"9876543210","pincode":"686001"}{}`,
		"huge":     `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, raw := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		var body sampleBody
		err := DecodeJSONBody(req, &body)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: %v", name, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nmae":"Asha"}`))
	var body sampleBody
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	require.NotNil(t, typed)
	assert.Equal(t, map[string]string{"nmae": "is not allowed"}, typed.Details())
}
