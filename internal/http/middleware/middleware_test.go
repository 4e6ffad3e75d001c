package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-analytics-service/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(parser *auth.Parser) *gin.Engine {
	r := gin.New()
	r.Use(Auth(parser))
	r.GET("/ping", func(c *gin.Context) {
		subject := ""
		if claims, ok := ClaimsFrom(c); ok {
			subject = claims.Subject
		}
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})
	return r
}

func TestAuth(t *testing.T) {
	parser := auth.NewParser("secret")
	valid, err := parser.Sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		parser *auth.Parser
		header string
		status int
		body   string
	}{
		{name: "disabled gate", parser: auth.NewParser(""), status: http.StatusOK, body: `{"subject":""}`},
		{name: "missing header", parser: parser, status: http.StatusUnauthorized, body: `{"error":"authorization header missing"}`},
		{name: "wrong scheme", parser: parser, header: "Basic abc", status: http.StatusUnauthorized, body: `{"error":"invalid authorization header"}`},
		{name: "bad token", parser: parser, header: "Bearer nope", status: http.StatusUnauthorized, body: `{"error":"invalid token"}`},
		{name: "valid token", parser: parser, header: "bearer " + valid, status: http.StatusOK, body: `{"subject":"user-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			protectedRouter(tt.parser).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewClientLimiter(1)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(ip string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
	limited := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, call("10.0.0.2").Code, "budgets are per client")
}

func TestRateLimitDisabled(t *testing.T) {
	l := NewClientLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("10.0.0.1"))
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}
