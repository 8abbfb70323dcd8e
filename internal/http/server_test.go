package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipeshare/internal/events"
	"recipeshare/internal/identity"
	"recipeshare/internal/metrics"
	"recipeshare/internal/repository/memrepo"
	"recipeshare/internal/service"
)

type testServer struct {
	router   *gin.Engine
	store    *memrepo.Store
	provider *identity.Memory
	pinger   *fakePinger
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := memrepo.New()
	provider := identity.NewMemory()
	provider.AutoConfirm = true
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	limits := service.PageLimits{Default: 20, Max: 100}
	sanitizer := service.NewSanitizer()
	publisher := events.NewNoopPublisher()

	profiles := service.NewProfileService(logger, store.Profiles(), store.Follows(), sanitizer)
	graph := service.NewGraphService(logger, store.Profiles(), store.Follows(), publisher, collector, limits)
	recipes := service.NewRecipeService(logger, store.Recipes(), service.NewVisibilityChecker(store.Follows()), sanitizer, publisher, collector)
	feed := service.NewFeedService(logger, store.Recipes(), graph, collector, limits)
	accounts := service.NewAccountService(logger, provider, profiles)
	pinger := &fakePinger{}

	router := NewRouter(logger, RouterDeps{
		Auth:     accounts,
		AuthH:    NewAuthHandler(logger, accounts, profiles),
		ProfileH: NewProfileHandler(logger, profiles, graph, feed),
		RecipeH:  NewRecipeHandler(logger, recipes, feed),
		HealthH:  NewHealthHandler(logger, pinger),
		Limiter:  NewIPRateLimiter(0, 0),
		Recorder: collector,
		Gatherer: reg,
	})
	return &testServer{router: router, store: store, provider: provider, pinger: pinger}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// register da de alta una cuenta confirmada, inicia sesion y devuelve el access token y el id.
func (s *testServer) register(t *testing.T, username string) (string, string) {
	t.Helper()
	email := username + "@example.com"
	rec := s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "username": username,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res service.SignInResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Session.AccessToken, res.Profile.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var errBoom = errors.New("boom")
