package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountTestController(rs *RouterService) {
	ctrl := NewRESTController("TestController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "ip", func(ctx *RequestContext) *ServiceResult {
			return OKResult(ctx.ClientIP(), "ok")
		})

		rs.AddPostHandler(c, nil, "echo", func(ctx *RequestContext) *ServiceResult {
			var payload map[string]any
			if err := ctx.ShouldBindJSON(&payload); err != nil {
				return BadRequestResult("bad", nil)
			}
			return OKResult(payload, "ok")
		})

		rs.AddGetHandler(c, ratelimit.NewMemoryLimiter(1, time.Hour), "limited", func(ctx *RequestContext) *ServiceResult {
			return OKResult(nil, "ok")
		})

		rs.AddGetHandler(c, nil, "broken", func(ctx *RequestContext) *ServiceResult {
			return nil
		})
	})

	rs.MountController(ctrl)
}

func newTestRouterService(t *testing.T, cfg RouterConfig) *RouterService {
	t.Helper()

	if cfg.RateLimitRequests == 0 {
		cfg.RateLimitRequests = 1000
		cfg.RateLimitWindow = time.Minute
	}
	cfg.RequestTimeout = 5 * time.Second

	return CreateRouterService(log.NewLoggerWithJSONOutput(), nil, &cfg)
}

func serve(rs *RouterService, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTrustedProxies_DisabledByDefault(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := serve(rs, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "10.0.0.2", decodeBody(t, w)["data"])
}

func TestTrustedProxies_TrustsForwardedForWhenConfigured(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{TrustedProxies: []string{"0.0.0.0/0", "::/0"}})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := serve(rs, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "1.1.1.1", decodeBody(t, w)["data"])
}

func TestMaxBodySize_Returns413(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{MaxBodyBytes: 10})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(bytes.Repeat([]byte{'a'}, 50)))
	req.Header.Set("Content-Type", "application/json")

	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(rs, req).Code)
}

func TestHandlerRateLimiter_Returns429WithRetryAfter(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	first := serve(rs, httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := serve(rs, httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "3600", second.Header().Get("Retry-After"))

	// Other routes keep using the global budget.
	assert.Equal(t, http.StatusOK, serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil)).Code)
}

func TestControllerRateLimiter_AppliesToAllHandlers(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	rs.MountController(NewVersionedRESTController("Limited", "v1", "things", func(rs *RouterService, c *RESTController) {
		c.RateLimitWith(rs, ratelimit.NewMemoryLimiter(1, time.Hour))
		rs.AddGetHandler(c, nil, "", func(*RequestContext) *ServiceResult { return OKResult(nil, "ok") })
		rs.AddGetHandler(c, nil, "count", func(*RequestContext) *ServiceResult { return OKResult(nil, "ok") })
	}))

	assert.Equal(t, http.StatusOK, serve(rs, httptest.NewRequest(http.MethodGet, "/v1/things", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(rs, httptest.NewRequest(http.MethodGet, "/v1/things/count", nil)).Code)
}

func TestDuplicateRoute_Panics(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	handler := func(*RequestContext) *ServiceResult { return OKResult(nil, "ok") }

	rs.MountController(NewRESTController("First", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "dup", handler)
	}))

	assert.Panics(t, func() {
		rs.MountController(NewRESTController("Second", "/", func(rs *RouterService, c *RESTController) {
			rs.AddGetHandler(c, nil, "dup", handler)
		}))
	})
}

func TestNilHandlerResult_Returns500(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/broken", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An unexpected error occurred", decodeBody(t, w)["error"])
}

func TestNoRoute_Returns404Envelope(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", decodeBody(t, w)["error"])
}

func TestCorrelationID(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	t.Run("echoes a valid client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.Header.Set("X-Correlation-ID", "abc-123")

		assert.Equal(t, "abc-123", serve(rs, req).Header().Get("X-Correlation-ID"))
	})

	t.Run("accepts X-Request-ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.Header.Set("X-Request-ID", "req-9")

		assert.Equal(t, "req-9", serve(rs, req).Header().Get("X-Correlation-ID"))
	})

	t.Run("replaces an unsafe id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.Header.Set("X-Correlation-ID", strings.Repeat("x", 200))

		got := serve(rs, req).Header().Get("X-Correlation-ID")
		assert.Len(t, got, 36)
	})
}

func TestCORS(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{AllowedOrigins: []string{"https://clothiq.app"}})
	mountTestController(rs)

	t.Run("allowed origin preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/echo", nil)
		req.Header.Set("Origin", "https://clothiq.app")

		w := serve(rs, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://clothiq.app", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("other origin gets no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.Header.Set("Origin", "https://evil.example")

		w := serve(rs, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORS_WildcardOmitsCredentials(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{AllowedOrigins: []string{"*"}})
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodOptions, "/echo", nil)
	req.Header.Set("Origin", "https://anywhere.example")

	w := serve(rs, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{HSTS: HSTSConfig{Enabled: true, MaxAge: 600, IncludeSubdomains: true}})
	mountTestController(rs)

	plain := serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))
	assert.Equal(t, "nosniff", plain.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, plain.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "max-age=600; includeSubDomains", serve(rs, req).Header().Get("Strict-Transport-Security"))
}

func TestErrorResult_IncludesErrorField(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	rs.MountController(NewRESTController("FailingController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "fail", func(ctx *RequestContext) *ServiceResult {
			return BadRequestResult("invalid email", nil)
		})
	}))

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/fail", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid email", decodeBody(t, w)["error"])
}

func TestOKResult_OmitsErrorField(t *testing.T) {
	assert.NotContains(t, OKResult(nil, "registered").ToJSON(), "error")
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":        {header: "Bearer abc.def", token: "abc.def", ok: true},
		"lower scheme": {header: "bearer abc", token: "abc", ok: true},
		"missing":      {header: "", ok: false},
		"basic scheme": {header: "Basic dXNlcjpwYXNz", ok: false},
		"empty token":  {header: "Bearer   ", ok: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
			ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				ctx.Request.Header.Set("Authorization", tc.header)
			}

			token, ok := BearerToken(ctx)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestNormalizePath(t *testing.T) {
	root := NewRESTController("Root", "/", nil)
	versioned := NewVersionedRESTController("Waitlist", "v1", "/waitlist", nil)

	assert.Equal(t, "/", normalizePath(root, ""))
	assert.Equal(t, "/health", normalizePath(root, "health"))
	assert.Equal(t, "/v1/waitlist", normalizePath(versioned, ""))
	assert.Equal(t, "/v1/waitlist/count", normalizePath(versioned, "/count"))
}

func TestMetricsRegisterer_AvailableWhenMetricsDisabled(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{DisableMetrics: true})

	assert.NotNil(t, rs.MetricsRegisterer())
	assert.Equal(t, http.StatusNotFound, serve(rs, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestMetricsEndpoint_ExposesRequestCounters(t *testing.T) {
	rs := newTestRouterService(t, RouterConfig{})
	mountTestController(rs)

	serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))
	w := serve(rs, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/ip",status="200"} 1`)
}
