package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kbukum/diarizer/component"
)

// RouteInfo is one HTTP route shown in the summary.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary prints what started and where it listens.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	routes          []RouteInfo
	out             io.Writer
}

// NewSummary creates a summary writing to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stdout}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// Routes returns the tracked routes.
func (s *Summary) Routes() []RouteInfo {
	return s.routes
}

// Display prints the summary with live component health.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry != nil {
		results := registry.HealthAll(ctx)
		if len(results) > 0 {
			fmt.Fprintf(w, "📦 Components\n")
			for i, h := range results {
				line := fmt.Sprintf("   %s %s %s (%s)", treePrefix(i, len(results)), healthIcon(h.Status), h.Name, h.Status)
				if h.Message != "" {
					line += ": " + h.Message
				}
				fmt.Fprintln(w, line)
			}
			fmt.Fprintln(w)
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "🌐 Routes\n")
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-6s %-28s → %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
		fmt.Fprintln(w)
	}
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⏳"
	default:
		return "❌"
	}
}
