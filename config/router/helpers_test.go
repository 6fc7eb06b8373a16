package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/akeren/clothiq-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func mountBindController(rs *RouterService) {
	rs.MountController(NewVersionedRESTController("BindController", "v1", "subscribe", func(rs *RouterService, c *RESTController) {
		rs.AddPostHandler(c, nil, "", func(ctx *RequestContext) *ServiceResult {
			var req subscribeRequest
			if result := BindJSON(ctx, &req); result != nil {
				return result
			}
			return OKResult(req.Email, "ok")
		})
	}))
}

func TestBindJSON(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountBindController(rs)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/subscribe", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return serve(rs, req)
	}

	t.Run("valid", func(t *testing.T) {
		w := post(`{"email":"a@b.co"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "a@b.co", decodeBody(t, w)["data"])
	})

	t.Run("field errors use json names", func(t *testing.T) {
		w := post(`{"email":"nope"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "Invalid request payload", body["message"])
		fields, ok := body["data"].([]any)
		require.True(t, ok)
		require.Len(t, fields, 1)
		assert.Equal(t, "email", fields[0].(map[string]any)["field"])
	})

	t.Run("malformed body", func(t *testing.T) {
		w := post(`{"email":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", decodeBody(t, w)["message"])
	})
}

func TestAppErrorResult(t *testing.T) {
	conflict := AppErrorResult(apperrors.NewConflictError("already registered", errors.New("23505")))
	assert.Equal(t, http.StatusConflict, conflict.StatusCode)
	assert.Equal(t, "already registered", conflict.Message)

	internal := AppErrorResult(errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, internal.StatusCode)
	assert.NotContains(t, internal.Message, "10.0.0.5")
}
