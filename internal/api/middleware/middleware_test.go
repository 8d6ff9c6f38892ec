package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplefish/interviewchat/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() { gin.SetMode(gin.TestMode) }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func adminEngine(cfg config.AuthConfig) *gin.Engine {
	r := gin.New()
	handlers := append(RequireAdmin(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.DELETE("/conversations", handlers...)
	return r
}

func TestRequireAdmin(t *testing.T) {
	cfg := config.AuthConfig{Secret: testSecret, Issuer: "interviewchat"}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"admin", "Bearer " + signToken(t, jwt.MapClaims{"sub": "op-1", "role": "admin", "iss": "interviewchat", "exp": exp}), http.StatusOK},
		{"plain user", "Bearer " + signToken(t, jwt.MapClaims{"sub": "u-1", "iss": "interviewchat", "exp": exp}), http.StatusForbidden},
		{"wrong issuer", "Bearer " + signToken(t, jwt.MapClaims{"sub": "op-1", "role": "admin", "iss": "other", "exp": exp}), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, jwt.MapClaims{"sub": "op-1", "role": "admin", "iss": "interviewchat", "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized},
		{"no subject", "Bearer " + signToken(t, jwt.MapClaims{"role": "admin", "iss": "interviewchat", "exp": exp}), http.StatusUnauthorized},
	}
	r := adminEngine(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/conversations", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRequireAdminDisabled(t *testing.T) {
	r := adminEngine(config.AuthConfig{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/conversations", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/chat", RateLimit(config.RateLimiterConfig{Enabled: true, RPS: 0.001, Burst: 2}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// another client has its own bucket
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(config.RateLimiterConfig{Enabled: true, RPS: 1, Burst: 1})
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))

	now = now.Add(10 * time.Minute)
	assert.True(t, rl.allow("b"))
	assert.Len(t, rl.visitors, 1)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/conversations", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/conversations", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/conversations/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/conversations/abc", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get("X-Request-Id"))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "/conversations/:id", entry.Data["path"])
	assert.Equal(t, "abc", entry.Data["conversation_id"])
}
