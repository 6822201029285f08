package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/fraudshield/app"
	"github.com/upb/fraudshield/config"
	"github.com/upb/fraudshield/repositories/postgres"
	"go.uber.org/zap"
)

var (
	orgCols  = []string{"id", "name", "slug", "plan", "created_at", "updated_at"}
	userCols = []string{"id", "email", "subject", "org_id", "created_at", "updated_at", "access_level"}
)

type testServer struct {
	handler http.Handler
	deps    *app.Dependencies
	mock    sqlmock.Sqlmock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zap.NewNop()
	factory := postgres.NewRepositoryFactoryFromDB(postgres.Wrap(sqlDB, logger), logger)

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Auth:        config.AuthConfig{JWTSecret: "test-secret", Issuer: "fraudshield", TokenTTL: time.Hour},
		Actions:     config.ActionsConfig{ErrorClearDelay: 3 * time.Second},
		Cache:       config.CacheConfig{PlanCacheSize: 10, PlanCacheTTL: time.Minute},
		Observability: config.ObservabilityConfig{
			MetricsEnabled: true,
		},
	}

	deps, err := app.NewDependenciesWithFactory(context.Background(), cfg, factory, clockwork.NewRealClock(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	return &testServer{handler: SetupRoutes(deps), deps: deps, mock: mock}
}

func (s *testServer) token(t *testing.T, subject string, orgID uuid.UUID) string {
	t.Helper()
	token, _, err := s.deps.TokenIssuer.Issue(subject, subject+"@example.com", orgID)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", "").Code)

	metrics := s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "fraudshield_http_requests_total")

	notFound := s.do(http.MethodGet, "/api/v2/anything", "", "")
	assert.Equal(t, http.StatusNotFound, notFound.Code)
	assert.Contains(t, notFound.Body.String(), "endpoint not found")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/v1/entitlements",
		"/api/v1/report-dimensions",
		"/api/v1/exclusions",
		"/api/v1/actions/save_profile",
		"/api/v1/admin/privileges",
		"/api/v1/notifications/ws",
	} {
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, path, "", "").Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/entitlements", "garbage", "").Code)
}

func TestEntitlementsRoute(t *testing.T) {
	s := newTestServer(t)
	orgID := uuid.New()
	now := time.Now()

	s.mock.ExpectQuery("FROM organizations WHERE id").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows(orgCols).AddRow(orgID, "Acme", "acme", "lite", now, now))

	token := s.token(t, "sub-1", orgID)

	w := s.do(http.MethodGet, "/api/v1/entitlements/max_assets?usage=5", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allowed":false`)

	// Plan is cached; no second query
	w = s.do(http.MethodGet, "/api/v1/report-dimensions", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"dimensions":["domain","campaign"]`)

	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestActionRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "sub-1", uuid.New())

	w := s.do(http.MethodPut, "/api/v1/actions/save_profile", token, `{"state":"error","message":"Network down"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/actions/save_profile", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"error"`)
	assert.Contains(t, w.Body.String(), `"message":"Network down"`)
	assert.Equal(t, 1, s.deps.Actions.Len())

	w = s.do(http.MethodPost, "/api/v1/auth/logout", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, s.deps.Actions.Len())

	// Logout stays public and ignores bad tokens
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/auth/logout", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/auth/logout", "garbage", "").Code)
}

func TestAdminRoutes(t *testing.T) {
	orgID := uuid.New()
	now := time.Now()

	expectUser := func(s *testServer, subject string, level interface{}) {
		s.mock.ExpectQuery("WHERE u.subject").
			WithArgs(subject).
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(uuid.New(), subject+"@example.com", subject, orgID, now, now, level))
	}

	t.Run("tenant user is not an admin", func(t *testing.T) {
		s := newTestServer(t)
		expectUser(s, "sub-1", nil)

		w := s.do(http.MethodGet, "/api/v1/admin/privileges", s.token(t, "sub-1", orgID), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NoError(t, s.mock.ExpectationsWereMet())
	})

	t.Run("basic admin lists privileges", func(t *testing.T) {
		s := newTestServer(t)
		expectUser(s, "sub-ops", "BASIC")

		w := s.do(http.MethodGet, "/api/v1/admin/privileges", s.token(t, "sub-ops", orgID), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"access_level":"BASIC"`)
	})

	t.Run("basic admin may not change plans", func(t *testing.T) {
		s := newTestServer(t)
		expectUser(s, "sub-ops", "BASIC")

		w := s.do(http.MethodPut, "/api/v1/admin/tenants/"+orgID.String()+"/plan", s.token(t, "sub-ops", orgID), `{"plan":"pro"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NoError(t, s.mock.ExpectationsWereMet())
	})

	t.Run("full admin changes a plan in a transaction", func(t *testing.T) {
		s := newTestServer(t)
		expectUser(s, "sub-ops", "FULL")
		s.mock.ExpectBegin()
		s.mock.ExpectExec("UPDATE organizations").
			WithArgs(orgID, "pro", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.mock.ExpectQuery("FROM organizations WHERE id").
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows(orgCols).AddRow(orgID, "Acme", "acme", "pro", now, now))
		s.mock.ExpectCommit()

		w := s.do(http.MethodPut, "/api/v1/admin/tenants/"+orgID.String()+"/plan", s.token(t, "sub-ops", orgID), `{"plan":"pro"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"plan":"pro"`)
		assert.NoError(t, s.mock.ExpectationsWereMet())
	})
}
