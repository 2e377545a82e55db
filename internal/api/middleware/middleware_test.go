package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"id": GetRequestID(r.Context())})
	})
}

func TestAuth(t *testing.T) {
	h := Auth("secret")(ok())

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing token", "/api/accounts", "", http.StatusUnauthorized},
		{"wrong token", "/api/accounts", "Bearer nope", http.StatusUnauthorized},
		{"missing scheme", "/api/accounts", "secret", http.StatusUnauthorized},
		{"valid token", "/api/accounts", "Bearer secret", http.StatusOK},
		{"health is open", "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuth_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	Auth("")(ok()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	RequestID(ok()).ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"id":"abc"`)

	rec = httptest.NewRecorder()
	RequestID(ok()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "has spaces\nand newline")
	RequestID(ok()).ServeHTTP(rec, req)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(zerolog.New(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "Panic recovered")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info().Msg("listing jobs")
		w.WriteHeader(http.StatusOK)
	})
	h := RequestID(Logger(zerolog.New(&buf))(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("X-Request-ID", "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"path":"/api/jobs"`)
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Equal(t, 2, strings.Count(buf.String(), `"request_id":"req-42"`))
}
