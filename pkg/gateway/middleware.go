package gateway

import (
	"net/http"
	"time"

	"github.com/estebmaister/supportbot/internal/tracing"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// statusRecorder captures the response code for access logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestContext attaches trace and request IDs, tracks in-flight
// requests for graceful shutdown, and emits one access log line per
// request.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.shuttingDown() {
			writeError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		traceID := r.Header.Get("X-Trace-Id")
		if traceID == "" {
			traceID = tracing.NewTraceID()
		}
		requestID, _ := gonanoid.New()

		ctx := tracing.WithTraceID(r.Context(), traceID)
		ctx = tracing.WithRequestID(ctx, requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r.WithContext(ctx))

		logger := tracing.LoggerFromContext(ctx, s.logger)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
