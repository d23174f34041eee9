package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/lazytech/jjc-console/internal/api/http"
	"github.com/lazytech/jjc-console/internal/api/http/handlers"
	"github.com/lazytech/jjc-console/internal/auth"
	"github.com/lazytech/jjc-console/internal/broadcast"
	"github.com/lazytech/jjc-console/internal/config"
	"github.com/lazytech/jjc-console/internal/credstore"
	"github.com/lazytech/jjc-console/internal/directory"
	"github.com/lazytech/jjc-console/internal/observability"
	"github.com/lazytech/jjc-console/internal/session"
	"github.com/lazytech/jjc-console/internal/storage"
	"github.com/lazytech/jjc-console/internal/token"
)

type fakeAccounts struct {
	byUsername map[string]*directory.Account
}

func (f *fakeAccounts) Create(_ context.Context, account *directory.Account) error {
	f.byUsername[account.Username] = account
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*directory.Account, error) {
	for _, account := range f.byUsername {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (*directory.Account, error) {
	account, ok := f.byUsername[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return account, nil
}

func sessionCfg() config.SessionConfig {
	return config.SessionConfig{
		AdminChannel:        "admin",
		EmployeeChannel:     "employee",
		AdminTokenKey:       "auth.admin_token",
		EmployeeTokenKey:    "auth.employee_token",
		StoredAtKey:         "auth.stored_at",
		RelayKey:            "session.relay",
		RelayClearDelayMS:   1,
		DefaultLogoutReason: "You have been logged out from another tab",
	}
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	hash, err := directory.HashPassword("s3cret", 4)
	require.NoError(t, err)

	accounts := directory.NewService(&fakeAccounts{byUsername: map[string]*directory.Account{
		"msantos": {
			ID:           "11",
			Username:     "msantos",
			PasswordHash: hash,
			Name:         "Maria Santos",
			Department:   "finance",
			AccessLevel:  "admin",
			Role:         "admin",
			Active:       true,
		},
	}}, 4)

	cfg := sessionCfg()
	mem := storage.NewMemory()
	codec := token.NewCodec("test-secret")
	manager := session.NewManager(session.Options{
		Codec:       codec,
		Credentials: credstore.New(mem.Handle(), cfg, zap.NewNop()),
		Bus:         broadcast.NewHub(),
		Session:     cfg,
		Logger:      zap.NewNop(),
		Metrics:     observability.NewMetrics(),
	})
	manager.Start()
	t.Cleanup(manager.Close)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Session:        handlers.NewSessionHandler(accounts, manager, codec, token.ClassShort),
		Health:         handlers.NewHealthHandler("test", "dev", nil, nil),
		AuthMiddleware: auth.NewMiddleware(codec),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var parsed map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func TestSessionHandler_LoginAndState(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "msantos", "password": "s3cret", "department": "finance",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])

	state := data["state"].(map[string]any)
	assert.True(t, state["is_authenticated"].(bool))
	assert.True(t, state["is_employee_authenticated"].(bool))
	assert.Equal(t, "finance", state["selected_department"])
	assert.Equal(t, "11", state["user"].(map[string]any)["id"])
	assert.Equal(t, "EMP-11", state["employee"].(map[string]any)["id"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/session", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body["data"].(map[string]any)["is_authenticated"].(bool))
}

func TestSessionHandler_LoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "msantos", "password": "wrong", "department": "finance",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionHandler_LoginRejectsUnknownDepartment(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "msantos", "password": "s3cret", "department": "starfleet",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandler_LogoutClearsState(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "msantos", "password": "s3cret", "department": "finance",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/logout", map[string]string{}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := body["data"].(map[string]any)
	assert.False(t, state["is_authenticated"].(bool))
	assert.False(t, state["is_employee_authenticated"].(bool))
	assert.Nil(t, state["user"])
}

func TestSessionHandler_MeRequiresBearerToken(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	loginResp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "msantos", "password": "s3cret", "department": "finance",
	}, nil)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	tok := body["data"].(map[string]any)["token"].(string)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/me", nil, map[string]string{
		"Authorization": "Bearer " + tok,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "11", body["data"].(map[string]any)["id"])
}

func TestSessionHandler_DarkModeToggle(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/preferences/dark-mode", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body["data"].(map[string]any)["dark_mode"].(bool))

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/preferences/dark-mode", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, body["data"].(map[string]any)["dark_mode"].(bool))
}
