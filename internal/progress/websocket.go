package progress

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"captioner/internal/logging"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams jobID's events as JSON
// messages, starting with the buffered history. The stream ends after a
// terminal event, when the client disconnects, or when the hub closes.
func (h *Hub) ServeWebSocket(w http.ResponseWriter, r *http.Request, jobID string, logger *slog.Logger) {
	logger = logging.NewComponentLogger(logger, "progress-ws").With(logging.String(logging.FieldJobID, jobID))
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()
	// Hijacked connections keep the HTTP server's deadlines.
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var cursor uint64
	for {
		events, next, err := h.Fetch(ctx, jobID, cursor, 0, true)
		for _, evt := range events {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if werr := conn.WriteJSON(evt); werr != nil {
				logger.Debug("websocket write failed", logging.Error(werr))
				return
			}
			if evt.Terminal() {
				closeNormally(conn)
				return
			}
		}
		cursor = next
		if err != nil {
			if errors.Is(err, ErrClosed) {
				closeNormally(conn)
			}
			return
		}
	}
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
