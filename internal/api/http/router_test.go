package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sunenergyxt/service-portal/internal/api/http/handlers"
	"github.com/sunenergyxt/service-portal/internal/auth"
	"github.com/sunenergyxt/service-portal/internal/events"
	"github.com/sunenergyxt/service-portal/internal/observability"
	"github.com/sunenergyxt/service-portal/internal/persistence"
	"github.com/sunenergyxt/service-portal/internal/repository"
	"github.com/sunenergyxt/service-portal/internal/seed"
	"github.com/sunenergyxt/service-portal/internal/service"
	"github.com/sunenergyxt/service-portal/internal/workflow"
)

type testServer struct {
	app   *fiber.App
	store *repository.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := repository.NewMemoryStore()

	fx, err := seed.Read(seed.Demo)
	require.NoError(t, err)
	_, err = seed.Apply(ctx, store, fx, bcrypt.MinCost, logger)
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	engine := workflow.NewEngine()
	tokens := auth.NewTokenManager("test-secret", 60)

	authService := service.NewAuthService(service.AuthDependencies{UserRepo: store.Users(), TokenManager: tokens})
	ticketService := service.NewTicketService(service.TicketDependencies{Store: store, Engine: engine, Dispatcher: dispatcher, Metrics: metrics})
	partnerService := service.NewPartnerService(service.PartnerDependencies{Store: store, Engine: engine, Dispatcher: dispatcher, Metrics: metrics})
	registrationService := service.NewRegistrationService(service.RegistrationDependencies{
		Store: store, Dispatcher: dispatcher, Metrics: metrics, BcryptCost: bcrypt.MinCost, DefaultPassword: "123",
	})
	userService := service.NewUserService(service.UserDependencies{Store: store, BcryptCost: bcrypt.MinCost, DefaultPassword: "123"})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("service-portal", "test", store, &persistence.Redis{}),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Companies:      handlers.NewCompaniesHandler(partnerService),
		Registrations:  handlers.NewRegistrationsHandler(registrationService),
		Users:          handlers.NewUsersHandler(authService, userService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users()),
		Metrics:        metrics,
	})
	return &testServer{app: app, store: store}
}

type call struct {
	method  string
	path    string
	token   string
	body    any
	ifMatch string
}

func (s *testServer) do(t *testing.T, c call) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, reader)
	if c.body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if c.ifMatch != "" {
		req.Header.Set(fiber.HeaderIfMatch, c.ifMatch)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	status, body := s.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": email, "password": "123"}})
	require.Equal(t, http.StatusOK, status, body)
	return body["data"].(map[string]any)["token"].(string)
}

func errorCode(body map[string]any) string {
	e, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "alice@sunenergyxt.com", "password": "nope"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = s.do(t, call{method: http.MethodGet, path: "/me"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	token := s.login(t, "alice@sunenergyxt.com")
	status, body = s.do(t, call{method: http.MethodGet, path: "/me", token: token})
	require.Equal(t, http.StatusOK, status)
	me := body["data"].(map[string]any)
	assert.Equal(t, "u1", me["id"])
	assert.Equal(t, "INTERNAL_SALES", me["role"])
	assert.NotContains(t, me, "password_hash")
}

func TestTicketFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice@sunenergyxt.com")
	ian := s.login(t, "ian@partner.com")

	status, body := s.do(t, call{method: http.MethodPost, path: "/tickets", token: alice, body: map[string]any{
		"sln":           "XT-HTTP-001",
		"title":         "Battery swap",
		"customer_name": "Chen",
		"service_types": []string{"REMOVAL"},
	}})
	require.Equal(t, http.StatusCreated, status, body)
	created := body["data"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "PENDING_ASSIGN", created["status"])
	assert.EqualValues(t, 1, created["version"])

	status, body = s.do(t, call{method: http.MethodPost, path: "/tickets/" + id + "/assign-company", token: alice, body: map[string]any{"company_id": "c2", "version": 1}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "PENDING_DISPATCH", body["data"].(map[string]any)["status"])

	// A writer holding version 1 loses.
	status, body = s.do(t, call{method: http.MethodPost, path: "/tickets/" + id + "/messages", token: ian, ifMatch: "1", body: map[string]any{"text": "on it"}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = s.do(t, call{method: http.MethodPost, path: "/tickets/" + id + "/assign-staff", token: ian, ifMatch: "2", body: map[string]any{"user_id": "u4"}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "PENDING_PROCESS", body["data"].(map[string]any)["status"])

	status, body = s.do(t, call{method: http.MethodGet, path: "/tickets/" + id, token: ian})
	require.Equal(t, http.StatusOK, status)
	caps := body["capabilities"].(map[string]any)
	assert.Equal(t, true, caps["can_message"])

	// Sam cannot decide an audit that has not been submitted.
	sam := s.login(t, "sam@partner.com")
	status, body = s.do(t, call{method: http.MethodPost, path: "/tickets/" + id + "/audit", token: sam, body: map[string]any{"approve": true}})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", errorCode(body))

	status, body = s.do(t, call{method: http.MethodPost, path: "/tickets/" + id + "/audit", token: ian, body: map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, call{method: http.MethodGet, path: "/tickets?status=PENDING_PROCESS", token: sam})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])
}

func TestPartnerCannotReachHeadquartersRoutes(t *testing.T) {
	s := newTestServer(t)
	sam := s.login(t, "sam@partner.com")

	status, body := s.do(t, call{method: http.MethodDelete, path: "/companies/c2", token: sam})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "required")

	status, _ = s.do(t, call{method: http.MethodGet, path: "/registrations", token: sam})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestPartnerRemovalOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice@sunenergyxt.com")

	status, body := s.do(t, call{method: http.MethodDelete, path: "/companies/c2", token: alice})
	require.Equal(t, http.StatusOK, status, body)
	removal := body["data"].(map[string]any)
	assert.EqualValues(t, 2, removal["users_removed"])
	assert.ElementsMatch(t, []any{"t1", "t4"}, removal["tickets_reverted"])

	// Removed users can no longer log in.
	status, _ = s.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "sam@partner.com", "password": "123"}})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPublicRegistrationAndApproval(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, call{method: http.MethodPost, path: "/registrations", body: map[string]any{"company_name": "Sunny Co"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, call{method: http.MethodPost, path: "/registrations", body: map[string]any{
		"company_name":   "Sunny Co",
		"contact_person": "Lee",
		"email":          "lee@sunny.example",
		"type":           "Distributor",
	}})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["data"].(map[string]any)["id"].(string)

	bob := s.login(t, "bob@sunenergyxt.com")
	status, body = s.do(t, call{method: http.MethodPost, path: "/registrations/" + id + "/decision", token: bob, body: map[string]any{"approve": true}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "APPROVED", body["data"].(map[string]any)["status"])

	status, body = s.do(t, call{method: http.MethodPost, path: "/registrations/" + id + "/decision", token: bob, body: map[string]any{"approve": false}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	s.login(t, "lee@sunny.example")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, call{method: http.MethodGet, path: "/health/live"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, call{method: http.MethodGet, path: "/health/ready"})
	require.Equal(t, http.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["store"])
	assert.Equal(t, "disabled", deps["redis"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "portal_http_requests_total")
}
