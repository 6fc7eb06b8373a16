package waitlist

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akeren/clothiq-api/config/router"
	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestEngine(t *testing.T, service WaitlistService) http.Handler {
	t.Helper()

	logger := log.NewLoggerWithJSONOutput()
	rs := router.CreateRouterService(logger, nil, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
	rs.MountController(NewWaitlistController(service))

	return rs.GetEngine()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestSubmitHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockWaitlistRepository(ctrl)
	notifier := NewMockNotifier(ctrl)
	service := NewWaitlistService(log.NewLoggerWithJSONOutput(), repo, notifier, nil, nil)
	engine := newTestEngine(t, service)

	t.Run("registered", func(t *testing.T) {
		repo.EXPECT().CreateEntry(gomock.Any(), "new@example.com").Return(&models.WaitlistEntry{ID: 1}, nil)
		notifier.EXPECT().SendWelcome(gomock.Any(), "new@example.com").Return(nil)

		code, resp := doJSON(t, engine, http.MethodPost, "/v1/waitlist", `{"email":"New@Example.com"}`)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "registered", resp["message"])
		assert.NotContains(t, resp, "error")
	})

	t.Run("already registered", func(t *testing.T) {
		repo.EXPECT().CreateEntry(gomock.Any(), "new@example.com").
			Return(nil, conflictError())

		code, resp := doJSON(t, engine, http.MethodPost, "/v1/waitlist", `{"email":"new@example.com"}`)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "already registered", resp["message"])
	})

	t.Run("honeypot", func(t *testing.T) {
		code, resp := doJSON(t, engine, http.MethodPost, "/v1/waitlist", `{"email":"","honeypot":"x"}`)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "registered", resp["message"])
	})

	t.Run("invalid email", func(t *testing.T) {
		code, resp := doJSON(t, engine, http.MethodPost, "/v1/waitlist", `{"email":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "invalid email", resp["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		code, resp := doJSON(t, engine, http.MethodPost, "/v1/waitlist", `{"email":`)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp, "error")
	})
}

func TestSubmitHandler_NotConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockWaitlistRepository(ctrl)
	service := NewWaitlistService(log.NewLoggerWithJSONOutput(), repo, nil, nil, nil)
	engine := newTestEngine(t, service)

	code, resp := doJSON(t, engine, http.MethodPost, "/v1/waitlist", `{"email":"new@example.com"}`)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Email configuration missing on server.", resp["error"])
}

func TestCountHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockWaitlistRepository(ctrl)
	repo.EXPECT().CountEntries(gomock.Any()).Return(int64(1000), nil)

	service := NewWaitlistService(log.NewLoggerWithJSONOutput(), repo, nil, nil, nil)
	engine := newTestEngine(t, service)

	req := httptest.NewRequest(http.MethodGet, "/v1/waitlist/count", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data WaitlistCountResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1000), resp.Data.Count)
	assert.Equal(t, "+1.0k", resp.Data.Display)
}
