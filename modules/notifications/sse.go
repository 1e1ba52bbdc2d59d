package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// stream serves the real-time protocol over server-sent events. Each
// fan-out message becomes one SSE event named after the message kind.
// The hub pushes the current unread state on connect, so a client that
// reconnects after a drop is caught up immediately.
func (s *Service) stream(w http.ResponseWriter, r *http.Request) {
	recipientID, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, ErrStreamingUnsupported)
		return
	}

	sub, err := s.engine.Connect(r.Context(), recipientID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = sub.Close() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.Receive():
			if !ok {
				return
			}
			payload, err := json.Marshal(msg.Payload)
			if err != nil {
				s.log.ErrorContext(r.Context(), "failed to marshal stream payload",
					logger.RecipientID(recipientID), logger.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Kind, payload)
			flusher.Flush()
		}
	}
}
