package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlink/pkg/middleware"
)

// New recovers from handler panics, logs them and answers 500 with body
// rendered as JSON. http.ErrAbortHandler is re-raised so net/http can abort
// the connection.
func New(logger *slog.Logger, body any) middleware.Middleware {
	const op = "middleware.recoverer.New"

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

				logger.Error(
					"something went wrong, panic occurred",
					slog.Group(op,
						slog.Any("err", rvr),
						slog.String("stack", string(debug.Stack())),
					),
				)

				if r.Header.Get("Connection") != "Upgrade" {
					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, body)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
