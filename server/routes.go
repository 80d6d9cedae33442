package server

import (
	"sort"
	"strings"

	"github.com/kbukum/diarizer/bootstrap"
)

var systemPaths = map[string]bool{
	"/health": true,
	"/info":   true,
	"/alive":  true,
	"/ready":  true,
}

// Route is one registered route.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// Routes lists the registered routes, API routes first.
func (s *Server) Routes() []Route {
	ginRoutes := s.engine.Routes()
	sort.Slice(ginRoutes, func(i, j int) bool {
		iSys, jSys := systemPaths[ginRoutes[i].Path], systemPaths[ginRoutes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if ginRoutes[i].Path != ginRoutes[j].Path {
			return ginRoutes[i].Path < ginRoutes[j].Path
		}
		return methodOrder(ginRoutes[i].Method) < methodOrder(ginRoutes[j].Method)
	})

	routes := make([]Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		routes = append(routes, Route{Method: r.Method, Path: r.Path, Handler: formatHandlerName(r.Handler)})
	}
	return routes
}

// TrackRoutes adds the route table to the startup summary. Call it after
// all routes are registered.
func (s *Server) TrackRoutes(summary *bootstrap.Summary) {
	for _, r := range s.Routes() {
		summary.TrackRoute(r.Method, r.Path, r.Handler)
	}
}

// formatHandlerName shortens Gin's handler names:
// "github.com/x/diarizer/api.(*Handler).Diarize-fm" becomes "Handler.Diarize".
func formatHandlerName(fullPath string) string {
	name := strings.TrimSuffix(fullPath, "-fm")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	// Closures: "endpoint.Info.func1" becomes "info".
	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				return strings.ToLower(parts[i])
			}
		}
	}

	if pkg, rest, ok := strings.Cut(name, "."); ok && rest != "" && strings.ToLower(pkg) == pkg {
		name = rest
	}
	return name
}

func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	default:
		return 5
	}
}
