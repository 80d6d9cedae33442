package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarizer/bootstrap"
	"github.com/kbukum/diarizer/component"
	apperrors "github.com/kbukum/diarizer/errors"
	"github.com/kbukum/diarizer/logger"
	"github.com/kbukum/diarizer/server/middleware"
)

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := Config{Host: "127.0.0.1"}
	if mutate != nil {
		mutate(&cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	s := New(cfg, logger.Nop())
	s.ApplyMiddleware(nil)
	return s
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8000 || cfg.MaxBodySize != "200MB" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.CORS.AllowedOrigins[0] != "*" || !cfg.CORS.AllowCredentials {
		t.Errorf("expected open CORS by default, got %+v", cfg.CORS)
	}
	if cfg.Auth.Enabled() {
		t.Error("auth must be disabled by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"port", Config{Port: 70000}},
		{"timeout", Config{ReadTimeout: -1}},
		{"short secret", Config{Auth: middleware.AuthConfig{Secret: "short"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestServer_StartStop(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.Port = 0 })
	s.GinEngine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	comp := NewComponent(s)

	if h := comp.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := comp.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer comp.Stop(context.Background())

	if h := comp.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy after start, got %s", h.Status)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + s.Addr() + "/ping")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "pong" {
		t.Errorf("expected pong, got %q", body)
	}
	if resp.Header.Get(middleware.HeaderRequestID) == "" {
		t.Error("expected request ID header from the middleware chain")
	}
}

func TestServer_NotFoundIsJSON(t *testing.T) {
	s := newTestServer(t, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/nope", http.NoBody))
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), `"status":"error"`) {
		t.Errorf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
}

func TestServer_PreflightOnUnregisteredMethod(t *testing.T) {
	s := newTestServer(t, nil)
	s.GinEngine().POST("/diarize", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("OPTIONS", "/diarize", http.NoBody)
	req.Header.Set("Origin", "http://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://app.example" {
		t.Error("expected origin to be allowed")
	}
}

func TestServer_Guards(t *testing.T) {
	if g := newTestServer(t, nil).Guards(); len(g) != 0 {
		t.Errorf("expected no guards by default, got %d", len(g))
	}
	s := newTestServer(t, func(c *Config) {
		c.Auth.Secret = "0123456789abcdef"
		c.RateLimit.Enabled = true
	})
	if g := s.Guards(); len(g) != 2 {
		t.Errorf("expected auth and rate limit guards, got %d", len(g))
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", apperrors.PipelineLoading("loading"), http.StatusAccepted},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			RespondWithError(c, tt.err)
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestFormatHandlerName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"github.com/kbukum/diarizer/api.(*Handler).Diarize-fm", "Handler.Diarize"},
		{"github.com/kbukum/diarizer/server/endpoint.Info.func1", "info"},
	}
	for _, tt := range tests {
		if got := formatHandlerName(tt.in); got != tt.want {
			t.Errorf("formatHandlerName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoutes_APIFirst(t *testing.T) {
	s := newTestServer(t, nil)
	s.RegisterDefaultEndpoints("diarizer", nil)
	s.GinEngine().POST("/diarize", func(*gin.Context) {})

	routes := s.Routes()
	if len(routes) == 0 || routes[0].Path != "/diarize" {
		t.Errorf("expected API route first, got %+v", routes)
	}

	summary := bootstrap.NewSummary("diarizer", "dev")
	s.TrackRoutes(summary)
	if len(summary.Routes()) != len(routes) {
		t.Errorf("expected %d tracked routes, got %d", len(routes), len(summary.Routes()))
	}
}
