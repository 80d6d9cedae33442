package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds CORS settings. "*" in a list allows anything.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
}

// OpenCORS allows every origin, method and header, with credentials.
func OpenCORS() CORSConfig {
	return CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"*"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}

// CORS sets CORS headers and answers preflight requests with 204.
func CORS(cfg *CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed := setCORSHeaders(w.Header(), r, cfg)
			if allowed && r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GinCORS is CORS for the Gin chain.
func GinCORS(cfg *CORSConfig) gin.HandlerFunc {
	return GinWrap(CORS(cfg))
}

// setCORSHeaders writes the headers when the origin is allowed. The
// origin is echoed rather than "*" so credentialed requests work.
func setCORSHeaders(h http.Header, r *http.Request, cfg *CORSConfig) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || !allows(cfg.AllowedOrigins, origin) {
		return false
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if r.Method != http.MethodOptions {
		return true
	}

	if method := r.Header.Get("Access-Control-Request-Method"); slices.Contains(cfg.AllowedMethods, "*") && method != "" {
		h.Set("Access-Control-Allow-Methods", method)
	} else if len(cfg.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
	}
	if headers := r.Header.Get("Access-Control-Request-Headers"); slices.Contains(cfg.AllowedHeaders, "*") && headers != "" {
		h.Set("Access-Control-Allow-Headers", headers)
	} else if len(cfg.AllowedHeaders) > 0 && !slices.Contains(cfg.AllowedHeaders, "*") {
		h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
	}
	return true
}

func allows(list []string, v string) bool {
	return slices.Contains(list, "*") || slices.Contains(list, v)
}
