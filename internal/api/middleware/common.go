package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/pongmatch-go/internal/api/apierr"
	"github.com/mcoot/pongmatch-go/internal/middleware"
)

// healthPath is polled by load balancers and only logged at debug level
const healthPath = "/api/v1/health"

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger, healthPath)
}

// Recovery creates panic recovery middleware for the API.
// A panic becomes a JSON INTERNAL_ERROR response.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
