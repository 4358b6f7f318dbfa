package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/cloudfiles/webapp/internal/response"
)

// Recover turns a panic into a generic 500 JSON response. The panic value and
// stack go to the log only.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.ErrorContext(r.Context(), "panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rvr,
					"stack", string(debug.Stack()),
				)
				response.InternalError(w, "Internal Server Error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
