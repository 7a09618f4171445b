package http

import "net/http"

// responseWriter is a thin decorator around [http.ResponseWriter] that
// captures the status code and the number of body bytes written, so the
// logging middleware can report them after the downstream handler has
// returned. WriteHeader is forwarded to the underlying writer exactly once,
// matching the standard library's contract.
type responseWriter struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
	size        int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.status = statusCode
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}
