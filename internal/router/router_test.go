package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"formini/internal/auth"
	"formini/internal/db"
	"formini/internal/handler"
	"formini/internal/logging"
	"formini/internal/metrics"
	"formini/internal/repository"
	"formini/internal/service"
)

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) SendVerificationCode(_ context.Context, to, code string, _ time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[to] = code
	return nil
}

func (i *inbox) code(to string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[to]
}

// revocations is an in-process token store; the redis-backed one fails open without a server.
type revocations struct {
	mu  sync.Mutex
	ids map[string]bool
}

func (r *revocations) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[tokenID] = true
	return nil
}

func (r *revocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids[tokenID], nil
}

func newTestServer(t *testing.T, tokens auth.TokenStoreInterface) (*echo.Echo, *inbox) {
	t.Helper()

	gormDB, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB, false))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	reg := prometheus.NewRegistry()
	mailbox := &inbox{codes: make(map[string]string)}
	logger := logging.Nop()
	authService := service.NewAuthService(
		repository.NewAccountRepository(gormDB),
		auth.NewBcryptHasher(bcrypt.MinCost),
		auth.NewJWTService("router-test-secret", time.Hour),
		tokens,
		mailbox,
		logger,
		metrics.New(reg),
	)

	e := echo.New()
	Register(e, logger, reg, []string{"https://formini.tn"}, authService, handler.NewAuthHandler(authService), handler.NewAccountHandler(authService))
	return e, mailbox
}

func call(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_AccountFlow(t *testing.T) {
	e, mailbox := newTestServer(t, &revocations{ids: make(map[string]bool)})

	rec := call(e, http.MethodPost, "/api/auth/register",
		`{"first_name":"Sara","last_name":"Ben Ali","email":"Sara@Formini.tn","password":"motdepasse1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email_sent":true`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = call(e, http.MethodPost, "/api/auth/login", `{"email":"sara@formini.tn","password":"motdepasse1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ACCOUNT_NOT_VERIFIED")

	code := mailbox.code("sara@formini.tn")
	require.NotEmpty(t, code)
	rec = call(e, http.MethodPost, "/api/auth/verify", `{"email":"sara@formini.tn","code":"`+code+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(e, http.MethodPost, "/api/auth/login", `{"email":"sara@formini.tn","password":"motdepasse1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session handler.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)

	rec = call(e, http.MethodGet, "/api/me", "", session.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me handler.AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, session.Account.ID, me.Account.ID)
	assert.True(t, me.Account.IsVerified)

	rec = call(e, http.MethodPost, "/api/auth/logout", "", session.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(e, http.MethodGet, "/api/me", "", session.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestRouter_BearerRejections(t *testing.T) {
	e, _ := newTestServer(t, auth.NewTokenStore(nil))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
		})
	}
}

func TestRouter_OpsEndpoints(t *testing.T) {
	e, _ := newTestServer(t, &revocations{ids: make(map[string]bool)})

	rec := call(e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Drive one operation so the counter family exists.
	call(e, http.MethodPost, "/api/auth/login", `{"email":"nobody@formini.tn","password":"motdepasse1"}`, "")

	rec = call(e, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`formini_auth_operations_total{operation="login",result="INVALID_CREDENTIALS"} 1`)))
}

func TestRouter_CORSPreflight(t *testing.T) {
	e, _ := newTestServer(t, &revocations{ids: make(map[string]bool)})

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set(echo.HeaderOrigin, "https://formini.tn")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, "content-type,authorization")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://formini.tn", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), echo.HeaderAuthorization)

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
		req.Header.Set(echo.HeaderOrigin, "https://evil.example")
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})
}
