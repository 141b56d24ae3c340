package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-service/internal/api/http/handlers"
	"github.com/spec-kit/locate-service/internal/auth"
	"github.com/spec-kit/locate-service/internal/businessday"
	"github.com/spec-kit/locate-service/internal/compliance"
	"github.com/spec-kit/locate-service/internal/config"
	"github.com/spec-kit/locate-service/internal/events"
	"github.com/spec-kit/locate-service/internal/lifecycle"
	"github.com/spec-kit/locate-service/internal/observability"
	"github.com/spec-kit/locate-service/internal/repository"
	"github.com/spec-kit/locate-service/internal/service"
	"github.com/spec-kit/locate-service/internal/validation"
)

const (
	agentSecret    = "agent-secret"
	operatorSecret = "operator-secret"
)

type testServer struct {
	app *fiber.App
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	dataDir := t.TempDir()
	repo, err := repository.NewFileTicketRepository(dataDir)
	require.NoError(t, err)

	engine := validation.NewEngine(validation.Options{
		Region:          &validation.Region{MinLat: 25.84, MaxLat: 36.5, MinLng: -106.65, MaxLng: -93.51},
		ConfidenceFloor: 0.5,
	})
	machine := lifecycle.NewMachine(engine, compliance.NewDeriver(businessday.NewCalendar(), compliance.DefaultPolicy()))
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	// Thursday morning, so the lawful start is never in the past while
	// the test runs.
	now := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repo,
		Machine:    machine,
		Dispatcher: events.NewInMemoryDispatcher(),
		Metrics:    metrics,
		Logger:     logger,
		Clock:      func() time.Time { return now },
	})

	agentHash, err := auth.HashSecret(agentSecret, 4)
	require.NoError(t, err)
	operatorHash, err := auth.HashSecret(operatorSecret, 4)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("jwt-secret", time.Hour)
	authService := service.NewAuthService(config.AuthConfig{AgentSecretHash: agentHash, OperatorSecretHash: operatorHash}, tokens)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second, limiter)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("locate-service", "test", dataDir, nil, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &testServer{app: app}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) token(t *testing.T, actor, secret string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/auth/token", "", map[string]string{"actor": actor, "secret": secret})
	require.Equal(t, http.StatusOK, status)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out.Token
}

type ticketBody struct {
	ID             string           `json:"id"`
	Status         string           `json:"status"`
	DisplayStatus  string           `json:"display_status"`
	Fields         map[string]any   `json:"fields"`
	Gaps           []map[string]any `json:"gaps"`
	AllowedActions []string         `json:"allowed_actions"`
	PacketDigest   string           `json:"packet_digest"`
}

func decodeTicket(t *testing.T, env envelope) ticketBody {
	t.Helper()
	var tb ticketBody
	require.NoError(t, json.Unmarshal(env.Data, &tb))
	return tb
}

const completeFields = `{
	"contact_name": "Dana Reyes",
	"phone": "512-555-0142",
	"type_of_work": "Install fiber conduit",
	"county": "Travis",
	"city": "Austin",
	"work_area_description": "Front yard",
	"address": "1200 Barton Springs Rd"
}`

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	status, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, env := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "/health/live|GET|200")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(t, http.MethodGet, "/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = s.do(t, http.MethodPost, "/auth/token", "", map[string]string{"actor": "operator", "secret": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	agent := s.token(t, "agent", agentSecret)
	operator := s.token(t, "operator", operatorSecret)

	status, env := s.do(t, http.MethodPost, "/tickets", agent, `{"company":"ABC Co"}`)
	require.Equal(t, http.StatusCreated, status)
	created := decodeTicket(t, env)
	assert.Equal(t, "draft", created.DisplayStatus)
	assert.Len(t, created.Gaps, 7)
	id := created.ID

	status, env = s.do(t, http.MethodPost, "/tickets/"+id+"/confirm", operator, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "TRANSITION_REJECTED", env.Error.Code)
	assert.Equal(t, "invalid_transition", env.Error.Details["guard"])

	status, env = s.do(t, http.MethodPatch, "/tickets/"+id, agent, completeFields)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "validated_pending_confirm", decodeTicket(t, env).DisplayStatus)

	status, env = s.do(t, http.MethodPost, "/tickets/"+id+"/confirm", agent, nil)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = s.do(t, http.MethodPost, "/tickets/"+id+"/confirm", operator, nil)
	require.Equal(t, http.StatusOK, status)
	confirmed := decodeTicket(t, env)
	assert.Equal(t, "ready", confirmed.Status)
	assert.NotEmpty(t, confirmed.PacketDigest)

	status, env = s.do(t, http.MethodPatch, "/tickets/"+id, operator, `{"company":"Other Co"}`)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, []any{"mark_submitted", "cancel"}, env.Error.Details["allowed_actions"])

	status, env = s.do(t, http.MethodGet, "/tickets/"+id+"/packet", agent, nil)
	require.Equal(t, http.StatusOK, status)
	var p struct {
		Digest string `json:"digest"`
		Caller struct {
			Company string `json:"company"`
		} `json:"caller"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, confirmed.PacketDigest, p.Digest)
	assert.Equal(t, "ABC Co", p.Caller.Company)

	status, _ = s.do(t, http.MethodPost, "/tickets/"+id+"/submitted", operator, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.do(t, http.MethodPost, "/tickets/"+id+"/responses", operator, `{"positive_response_at":"2026-10-19T15:00:00Z"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready_to_dig", decodeTicket(t, env).Status)

	status, env = s.do(t, http.MethodGet, "/tickets/"+id+"/audit", agent, nil)
	require.Equal(t, http.StatusOK, status)
	var audit []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &audit))
	assert.Len(t, audit, 5)

	status, env = s.do(t, http.MethodPost, "/tickets/"+id+"/cancel", operator, `{"reason":"job postponed"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cancelled", decodeTicket(t, env).Status)
}

func TestPatchNullClearsField(t *testing.T) {
	s := newTestServer(t, nil)
	agent := s.token(t, "agent", agentSecret)

	status, env := s.do(t, http.MethodPost, "/tickets", agent, completeFields)
	require.Equal(t, http.StatusCreated, status)
	id := decodeTicket(t, env).ID

	status, env = s.do(t, http.MethodPatch, "/tickets/"+id, agent, `{"phone":null}`)
	require.Equal(t, http.StatusOK, status)
	tb := decodeTicket(t, env)
	assert.Equal(t, "draft", tb.DisplayStatus)
	assert.Contains(t, tb.Fields, "phone")
	assert.Nil(t, tb.Fields["phone"])
	assert.Equal(t, "Austin", tb.Fields["city"])
}

func TestInputErrors(t *testing.T) {
	s := newTestServer(t, nil)
	agent := s.token(t, "agent", agentSecret)

	status, env := s.do(t, http.MethodPost, "/tickets", agent, `{"company":"ABC Co","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	status, env = s.do(t, http.MethodPost, "/tickets", agent, `{"gps":{"lat":120,"lng":-97}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INPUT_REJECTED", env.Error.Code)

	status, _ = s.do(t, http.MethodGet, "/tickets?status=bogus", agent, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(t, http.MethodGet, "/tickets/does-not-exist", agent, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestValidateEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	agent := s.token(t, "agent", agentSecret)

	status, env := s.do(t, http.MethodPost, "/validate", agent, `{"company":"ABC Co","phone":"555-1234"}`)
	require.Equal(t, http.StatusOK, status)
	var out struct {
		Gaps   []map[string]any `json:"gaps"`
		Counts struct {
			Required int `json:"required"`
		} `json:"counts"`
		ReadyForConfirm bool `json:"ready_for_confirm"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.False(t, out.ReadyForConfirm)
	assert.Equal(t, 7, out.Counts.Required)
	assert.Equal(t, "contact_name", out.Gaps[0]["field"])

	var phoneProblems []any
	for _, g := range out.Gaps {
		if g["field"] == "phone" {
			phoneProblems = append(phoneProblems, g["problem"])
		}
	}
	assert.Equal(t, []any{"invalid_format"}, phoneProblems)
}

func TestListPagination(t *testing.T) {
	s := newTestServer(t, nil)
	agent := s.token(t, "agent", agentSecret)
	for i := 0; i < 3; i++ {
		status, _ := s.do(t, http.MethodPost, "/tickets", agent, `{"company":"ABC Co"}`)
		require.Equal(t, http.StatusCreated, status)
	}

	req := httptest.NewRequest(http.MethodGet, "/tickets?status=draft&page=2&page_size=2", nil)
	req.Header.Set("Authorization", "Bearer "+agent)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out struct {
		Data       []map[string]any `json:"data"`
		Pagination struct {
			Page     int `json:"page"`
			PageSize int `json:"page_size"`
			Total    int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Data, 1)
	assert.Equal(t, 3, out.Pagination.Total)
	assert.Equal(t, 2, out.Pagination.Page)
}

func TestRateLimiter(t *testing.T) {
	s := newTestServer(t, NewRateLimiter(0.001, 1))

	status, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, env := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
