package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/upb/fraudshield/auth"
	"github.com/upb/fraudshield/middleware"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/utils"
)

// withURLParams attaches chi route parameters to the request
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withPrincipal authenticates the request as subject within orgID
func withPrincipal(r *http.Request, subject string, orgID uuid.UUID) *http.Request {
	ctx := middleware.WithPrincipal(r.Context(), &auth.Principal{
		Subject: subject,
		Email:   subject + "@example.com",
		OrgID:   orgID,
	})
	return r.WithContext(middleware.WithOrgID(ctx, orgID))
}

// withUser attaches a loaded user to the request
func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), user))
}

// decodeData decodes the data envelope of a success response
func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	return envelope.Data
}

// decodeError decodes an error response
func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}
