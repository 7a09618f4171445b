package http

import (
	"net/http"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
)

func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		start := time.Now()

		uri := r.RequestURI
		method := r.Method

		lw := &responseWriter{
			ResponseWriter: w,
		}

		next.ServeHTTP(lw, r)

		duration := time.Since(start)

		event := log.Info().
			Str("uri", uri).
			Str("method", method).
			Int("status", lw.status).
			Dur("duration", duration).
			Int("size", lw.size)
		if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
			event = event.Str("device_id", deviceID)
		}
		event.Send()
	})
}
