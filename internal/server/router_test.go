package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plate/internal/auth"
	"plate/internal/domain"
	"plate/internal/kds"
	"plate/internal/kds/controller"
	"plate/internal/kds/service"
	"plate/internal/routing"
	"plate/internal/voice"
)

type stubBoard struct{}

func (stubBoard) ListStations(ctx context.Context) []domain.Station {
	return []domain.Station{{ID: 1, Name: "Grill", Type: domain.StationGrill}}
}

func (stubBoard) ListOrders(ctx context.Context, stationID int64) []routing.Entry { return nil }

func (stubBoard) ListByTable(ctx context.Context, stationID int64) []routing.TableGroup { return nil }

func (stubBoard) Stats(ctx context.Context) []routing.StationStats { return nil }

type stubCommands struct {
	calls int
}

func (s *stubCommands) Execute(ctx context.Context, id auth.Identity, m service.Mutation) (*service.MutationResult, error) {
	s.calls++
	return &service.MutationResult{
		Routing: domain.OrderRouting{ID: m.RoutingID, OrderID: 3},
		Order:   domain.Order{ID: 3, Status: domain.OrderStatusInProgress},
	}, nil
}

func (s *stubCommands) DispatchVoice(ctx context.Context, id auth.Identity, parsed voice.Parsed, stationID *int64) (string, error) {
	return "ok", nil
}

func newTestRouter(t *testing.T, commands *stubCommands) (http.Handler, *auth.Authenticator) {
	t.Helper()
	logger := zap.NewNop()
	authenticator := auth.NewAuthenticator("test-secret", time.Hour)
	module := &kds.Module{
		Board:      controller.NewBoardController(stubBoard{}, logger),
		Commands:   controller.NewCommandController(commands, logger),
		Orders:     controller.NewOrderController(nil, logger),
		Transcribe: controller.NewTranscribeController(nil, controller.NewClientLimiter(1, 1), 1<<20, logger),
	}
	screens := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return NewRouter(module, screens, authenticator, logger), authenticator
}

func TestRouter_Healthz(t *testing.T) {
	router, _ := newTestRouter(t, &stubCommands{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_PublicReads(t *testing.T) {
	router, _ := newTestRouter(t, &stubCommands{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/kds/stations", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Grill")
}

func TestRouter_MutationsRequireToken(t *testing.T) {
	commands := &stubCommands{}
	router, _ := newTestRouter(t, commands)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/kds/routings/7/bump"},
		{http.MethodPut, "/api/kds/routings/7/priority"},
		{http.MethodPost, "/api/kds/voice"},
		{http.MethodPost, "/api/orders"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`)))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.Zero(t, commands.calls)
}

func TestRouter_AuthenticatedBump(t *testing.T) {
	commands := &stubCommands{}
	router, authenticator := newTestRouter(t, commands)

	token, err := authenticator.GenerateToken("cook-1", auth.RoleKitchen)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/kds/routings/7/start", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, commands.calls)
	assert.Contains(t, rec.Body.String(), `"routingId":7`)
}

func TestRouter_RoutingActionsNeedKitchenRole(t *testing.T) {
	commands := &stubCommands{}
	router, authenticator := newTestRouter(t, commands)

	token, err := authenticator.GenerateToken("server-1", auth.RoleServer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/kds/routings/7/bump", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, commands.calls)

	// voice stays open to servers; read-only commands are theirs too
	req = httptest.NewRequest(http.MethodPost, "/api/kds/voice", strings.NewReader(`{"text":"help"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ScreensMounted(t *testing.T) {
	router, _ := newTestRouter(t, &stubCommands{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/kds", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
