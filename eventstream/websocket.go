package eventstream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oraclenet/registry/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Subscribers are other chains' off-box processes; the registry does
	// not gate by Origin, relying on the host's own network boundary.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 5 * time.Second

// WebSocketHandler serves a long-lived feed of every Record published after
// the connection is accepted. It never replays history; catch-up reads are
// the host's concern.
func WebSocketHandler(pub *Publisher, log *logger.Logger) http.HandlerFunc {
	if log == nil {
		log = logger.NewDefault("eventstream-ws")
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithField("err", err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		records, unsubscribe := pub.Subscribe(128)
		defer unsubscribe()

		for rec := range records {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(recordJSON(rec)); err != nil {
				return
			}
		}
	}
}

type recordPayload struct {
	ID    string         `json:"id"`
	Index uint64         `json:"index"`
	Type  string         `json:"type"`
	At    time.Time      `json:"at"`
	Data  map[string]any `json:"data"`
}

func recordJSON(rec Record) recordPayload {
	return recordPayload{ID: rec.ID, Index: rec.Index, Type: string(rec.Event.Type), At: rec.Event.At, Data: rec.Event.Data}
}
