package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticUUID struct{}

func (staticUUID) Generate() string { return "00000000-0000-0000-0000-000000000000" }

type stubJWT struct {
	claims jwt.Claims
	err    error
}

func (s stubJWT) Generate(int64, string, string) (string, error) { return "token", nil }

func (s stubJWT) Verify(string) (jwt.Claims, error) { return s.claims, s.err }

type recordedAudit struct {
	entries []AuditEntry
}

func (r *recordedAudit) Record(_ context.Context, e AuditEntry) {
	r.entries = append(r.entries, e)
}

func newTestConfig(t *testing.T, yaml string) config.Config {
	t.Helper()
	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)
	return cfg
}

func newTestRouter(t *testing.T, opts ...func(*Config)) *Router {
	t.Helper()

	cfg := Config{
		Config:     newTestConfig(t, "app:\n  name: test\n"),
		UUID:       staticUUID{},
		JWT:        stubJWT{err: jwt.ErrInvalidToken},
		Instrument: instrument.NewNoop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewRouter(cfg)
}

func TestRouterWelcome(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to API otpgate")
}

func TestRouterNotFound(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterSuccessEnvelope(t *testing.T) {
	r := newTestRouter(t)
	r.POST("/api/v1/auth/challenge", func(_ *Request) (any, error) {
		return map[string]string{"status": "issued"}, nil
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/challenge", strings.NewReader("{}")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"issued"`)
	assert.Contains(t, rec.Body.String(), `"message"`)
}

func TestRouterErrorEnvelope(t *testing.T) {
	r := newTestRouter(t)
	r.POST("/api/v1/auth/verify", func(_ *Request) (any, error) {
		return nil, goerror.NewBusiness("Challenge has expired", goerror.CodeUnauthorized)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/verify", strings.NewReader("{}")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Challenge has expired")
}

func TestRouterAuthenticationRequired(t *testing.T) {
	r := newTestRouter(t)
	r.GET("/api/v1/auth/profile", func(_ *Request) (any, error) {
		return map[string]string{"ok": "true"}, nil
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAuthenticationAccepted(t *testing.T) {
	claims := jwt.Claims{PrincipalID: 42, Identity: "user@example.com", Role: "user"}
	r := newTestRouter(t, func(cfg *Config) {
		cfg.JWT = stubJWT{claims: claims}
	})

	var got *jwt.Claims
	r.GET("/api/v1/auth/profile", func(req *Request) (any, error) {
		got = jwt.GetAuth(req.Context())
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.PrincipalID)
}

func TestRouterCorrelationIDHeader(t *testing.T) {
	r := newTestRouter(t)
	r.POST("/api/v1/auth/challenge", func(_ *Request) (any, error) { return nil, nil })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/challenge", strings.NewReader("{}")))
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", rec.Header().Get("X-Correlation-ID"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/challenge", strings.NewReader("{}"))
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))
}

func TestRouterMaintenance(t *testing.T) {
	r := newTestRouter(t, func(cfg *Config) {
		cfg.Config = newTestConfig(t, "app:\n  maintenance:\n    endpoints: POST /api/v1/auth/challenge\n")
	})
	r.POST("/api/v1/auth/challenge", func(_ *Request) (any, error) { return nil, nil })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/challenge", strings.NewReader("{}")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterRecoversPanic(t *testing.T) {
	r := newTestRouter(t)
	r.POST("/api/v1/auth/challenge", func(_ *Request) (any, error) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/challenge", strings.NewReader("{}")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouterAuditHook(t *testing.T) {
	hook := &recordedAudit{}
	r := newTestRouter(t, func(cfg *Config) {
		cfg.Audit = hook
	})
	r.POST("/api/v1/auth/challenge", func(_ *Request) (any, error) { return nil, nil })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/challenge", strings.NewReader("{}")))

	require.Len(t, hook.entries, 1)
	assert.Equal(t, http.MethodPost, hook.entries[0].Method)
	assert.Equal(t, "/api/v1/auth/challenge", hook.entries[0].Route)
	assert.Equal(t, http.StatusOK, hook.entries[0].Status)
	assert.EqualValues(t, 1, r.Served())
}

func TestRequestDecodeBody(t *testing.T) {
	body := strings.NewReader(`{"identity":"user@example.com"}`)
	req := &Request{Request: httptest.NewRequest(http.MethodPost, "/", body)}

	var dst struct {
		Identity string `json:"identity"`
	}
	require.NoError(t, req.DecodeBody(&dst))
	assert.Equal(t, "user@example.com", dst.Identity)
}

func TestRequestDecodeBodyUnknownField(t *testing.T) {
	body := strings.NewReader(`{"identity":"x","extra":true}`)
	req := &Request{Request: httptest.NewRequest(http.MethodPost, "/", body)}

	var dst struct {
		Identity string `json:"identity"`
	}
	assert.Error(t, req.DecodeBody(&dst))
}

func TestRequestDecodeBodyTrailingData(t *testing.T) {
	body := strings.NewReader(`{"identity":"x"}{"identity":"y"}`)
	req := &Request{Request: httptest.NewRequest(http.MethodPost, "/", body)}

	var dst struct {
		Identity string `json:"identity"`
	}
	assert.Error(t, req.DecodeBody(&dst))
}

func TestRequestQueryHelpers(t *testing.T) {
	req := &Request{Request: httptest.NewRequest(http.MethodGet,
		"/?limit=25&cursor=9000000000&from=2026-01-15&bad=x", nil)}

	assert.EqualValues(t, 25, req.GetQueryInt32("limit", 10))
	assert.EqualValues(t, 10, req.GetQueryInt32("missing", 10))
	assert.EqualValues(t, 10, req.GetQueryInt32("bad", 10))
	assert.EqualValues(t, 9000000000, req.GetQueryInt64("cursor", 0))
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), req.GetQueryDate("from"))
	assert.True(t, req.GetQueryDate("missing").IsZero())
}
