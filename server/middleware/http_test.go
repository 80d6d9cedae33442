package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarizer/logger"
	"github.com/kbukum/diarizer/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	e := gin.New()
	e.Use(mw...)
	e.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	e.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	e.GET("/panic", func(*gin.Context) { panic("test panic") })
	e.POST("/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		c.String(http.StatusOK, string(b))
	})
	e.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestIDFromContext(c.Request.Context()))
	})
	e.GET("/whoami", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.ContextKeySubject)) })
	return e
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeStatus(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, rr.Body.String())
	}
	return body
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_NoPanic(t *testing.T) {
	rr := serve(newEngine(middleware.Recovery(logger.Nop())), httptest.NewRequest("GET", "/ok", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRecovery_Panic(t *testing.T) {
	rr := serve(newEngine(middleware.Recovery(logger.Nop())), httptest.NewRequest("GET", "/panic", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if body := decodeStatus(t, rr); body["status"] != "error" || body["message"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID_GeneratesID(t *testing.T) {
	rr := serve(newEngine(middleware.RequestID()), httptest.NewRequest("GET", "/id", http.NoBody))
	id := rr.Header().Get(middleware.HeaderRequestID)
	if id == "" {
		t.Fatal("expected a generated request ID")
	}
	if rr.Body.String() != id {
		t.Errorf("expected request context to carry %q, got %q", id, rr.Body.String())
	}
}

func TestRequestID_PreservesClientID(t *testing.T) {
	req := httptest.NewRequest("GET", "/id", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "client-123")
	rr := serve(newEngine(middleware.RequestID()), req)
	if got := rr.Header().Get(middleware.HeaderRequestID); got != "client-123" {
		t.Errorf("expected client ID to be echoed, got %q", got)
	}
}

func TestRequestID_ReplacesOversizedID(t *testing.T) {
	req := httptest.NewRequest("GET", "/id", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, strings.Repeat("x", 500))
	rr := serve(newEngine(middleware.RequestID()), req)
	if got := rr.Header().Get(middleware.HeaderRequestID); len(got) > 128 {
		t.Errorf("expected oversized ID to be replaced, got %d chars", len(got))
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORS_OpenEchoesOrigin(t *testing.T) {
	cfg := middleware.OpenCORS()
	req := httptest.NewRequest("GET", "/ok", http.NoBody)
	req.Header.Set("Origin", "http://example.com")
	rr := serve(newEngine(middleware.GinCORS(&cfg)), req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("expected origin echoed, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials allowed, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	cfg := middleware.OpenCORS()
	req := httptest.NewRequest("OPTIONS", "/ok", http.NoBody)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Custom")
	rr := serve(newEngine(middleware.GinCORS(&cfg)), req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
		t.Errorf("expected requested method allowed, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "X-Custom" {
		t.Errorf("expected requested headers allowed, got %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	cfg := middleware.CORSConfig{AllowedOrigins: []string{"http://allowed.com"}}
	req := httptest.NewRequest("GET", "/ok", http.NoBody)
	req.Header.Set("Origin", "http://evil.com")
	rr := serve(newEngine(middleware.GinCORS(&cfg)), req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for disallowed origin, got %q", got)
	}
}

// ---------------------------------------------------------------------------
// BodySizeLimit
// ---------------------------------------------------------------------------

func TestBodySizeLimit(t *testing.T) {
	e := newEngine(middleware.GinBodySizeLimit("10B"))

	rr := serve(e, httptest.NewRequest("POST", "/echo", strings.NewReader("small")))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 under the limit, got %d", rr.Code)
	}
	rr = serve(e, httptest.NewRequest("POST", "/echo", strings.NewReader(strings.Repeat("x", 100))))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected read to fail over the limit, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	e := newEngine(middleware.RateLimit(middleware.RateLimitConfig{Rate: 0.001, Burst: 2}))

	for i := range 2 {
		if rr := serve(e, httptest.NewRequest("GET", "/ok", http.NoBody)); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
	rr := serve(e, httptest.NewRequest("GET", "/ok", http.NoBody))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if body := decodeStatus(t, rr); body["status"] != "error" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	e := newEngine(middleware.RateLimit(middleware.RateLimitConfig{Rate: 0.001, Burst: 1}))

	first := httptest.NewRequest("GET", "/ok", http.NoBody)
	first.RemoteAddr = "10.0.0.1:1234"
	second := httptest.NewRequest("GET", "/ok", http.NoBody)
	second.RemoteAddr = "10.0.0.2:1234"

	if rr := serve(e, first); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := serve(e, second); rr.Code != http.StatusOK {
		t.Errorf("expected separate budget per client, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestAuth(t *testing.T) {
	cfg := middleware.AuthConfig{Secret: "s3cret", Issuer: "diarizer", SkipPaths: []string{"/health"}}
	e := newEngine(middleware.Auth(cfg))

	valid, err := middleware.IssueToken(cfg, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := middleware.IssueToken(cfg, "alice", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	wrongKey, err := middleware.IssueToken(middleware.AuthConfig{Secret: "other", Issuer: "diarizer"}, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"skip path", "/health", "", http.StatusOK},
		{"missing header", "/whoami", "", http.StatusUnauthorized},
		{"wrong scheme", "/whoami", "Basic " + valid, http.StatusUnauthorized},
		{"valid", "/whoami", "Bearer " + valid, http.StatusOK},
		{"expired", "/whoami", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "/whoami", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"garbage", "/whoami", "Bearer not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := serve(e, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, rr.Code, rr.Body.String())
			}
			if tt.name == "valid" && rr.Body.String() != "alice" {
				t.Errorf("expected subject on context, got %q", rr.Body.String())
			}
		})
	}
}

func TestIssueToken_RequiresSecret(t *testing.T) {
	if _, err := middleware.IssueToken(middleware.AuthConfig{}, "alice", time.Hour); err == nil {
		t.Error("expected error without a secret")
	}
}

// ---------------------------------------------------------------------------
// RequestLogger
// ---------------------------------------------------------------------------

func TestRequestLogger_PassesThrough(t *testing.T) {
	e := newEngine(middleware.RequestLogger(logger.Nop(), nil))
	for _, path := range []string{"/ok", "/health", "/missing"} {
		rr := serve(e, httptest.NewRequest("GET", path, http.NoBody))
		if path != "/missing" && rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rr.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// Chain
// ---------------------------------------------------------------------------

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := middleware.Chain(mark("a"), mark("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	serve(h, httptest.NewRequest("GET", "/", http.NoBody))
	if strings.Join(order, ",") != "a,b,handler" {
		t.Errorf("unexpected order %v", order)
	}
}
