package endpoint_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarizer/component"
	"github.com/kbukum/diarizer/server/endpoint"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, h gin.HandlerFunc) (int, map[string]any) {
	t.Helper()
	e := gin.New()
	e.GET("/", h)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return rr.Code, body
}

func checker(statuses ...component.HealthStatus) endpoint.HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, 0, len(statuses))
		for i, s := range statuses {
			out = append(out, component.Health{Name: string(rune('a' + i)), Status: s})
		}
		return out
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name    string
		checker endpoint.HealthChecker
		want    int
		status  string
	}{
		{"no checker", nil, http.StatusOK, "ready"},
		{"healthy", checker(component.StatusHealthy), http.StatusOK, "ready"},
		{"degraded is ready", checker(component.StatusHealthy, component.StatusDegraded), http.StatusOK, "ready"},
		{"unhealthy", checker(component.StatusHealthy, component.StatusUnhealthy), http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, endpoint.Readiness("diarizer", tt.checker))
			if code != tt.want || body["status"] != tt.status {
				t.Errorf("expected %d %s, got %d %v", tt.want, tt.status, code, body)
			}
		})
	}
}

func TestLiveness(t *testing.T) {
	code, body := get(t, endpoint.Liveness("diarizer"))
	if code != http.StatusOK || body["status"] != "alive" || body["service"] != "diarizer" {
		t.Errorf("unexpected response %d %v", code, body)
	}
}

func TestInfo(t *testing.T) {
	code, body := get(t, endpoint.Info("diarizer"))
	if code != http.StatusOK || body["version"] == "" || body["uptime"] == nil {
		t.Errorf("unexpected response %d %v", code, body)
	}
}
