package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarizer/util"
)

const defaultMaxBodySize = 100 * 1024 * 1024 // 100MB

// BodySizeLimit caps the request body at maxSize ("100MB", "512KB").
// Reads past the cap fail with *http.MaxBytesError.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				w.Header().Set("Connection", "close")
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}

// GinBodySizeLimit is BodySizeLimit for the Gin chain.
func GinBodySizeLimit(maxSize string) gin.HandlerFunc {
	return GinWrap(BodySizeLimit(maxSize))
}
