package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"
)

// sseWriter streams server-sent events. Once a write fails (client went
// away), further sends become no-ops so producers can finish their loop
// without checking every call.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, eris.New("api: response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

// Send writes one event as a data frame. Returns false once the client is
// gone.
func (s *sseWriter) Send(v any) bool {
	if s.closed {
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.closed = true
		return false
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.closed = true
		return false
	}
	s.flusher.Flush()
	return true
}
