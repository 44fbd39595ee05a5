package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/sinkapp/sink/internal/auth"
)

// Recoverer turns a handler panic into a logged 500 with the JSON error
// envelope. http.ErrAbortHandler is re-raised so net/http can drop the
// connection quietly.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rvr)
				}

				attrs := []any{
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				}
				if principal := auth.AuthFromContext(r.Context()); principal != nil {
					attrs = append(attrs, slog.String("user_id", principal.UserID))
				}
				logger.Error("panic_recovered", attrs...)

				// A socket that was already upgraded has no response to write.
				if rw, ok := w.(*responseWriter); ok && rw.wroteHeader {
					return
				}
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
