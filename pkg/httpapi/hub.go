package httpapi

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"
	"github.com/sidilemine/InsightSprint-sub001/pkg/pipeline"
)

// progressEvent is the wire shape pushed to websocket subscribers.
type progressEvent struct {
	Type     string  `json:"type"`
	Attempt  string  `json:"attempt"`
	From     string  `json:"from,omitempty"`
	To       string  `json:"to,omitempty"`
	Poll     int     `json:"poll,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	Status   string  `json:"status,omitempty"`
}

// Hub fans pipeline state and poll progress out to websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logging.NewComponentLogger(logger, "progress_hub"),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and keeps it subscribed until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade_failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	count := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("subscriber_joined", slog.Int("subscribers", count))

	// Drain reads so close frames are processed.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) broadcast(event progressEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(event); err != nil {
			h.drop(c)
		}
	}
}

// OnStateChange implements pipeline.StateListener.
func (h *Hub) OnStateChange(event pipeline.StateChange) {
	h.broadcast(progressEvent{
		Type:    "state",
		Attempt: event.Attempt,
		From:    event.FromState.String(),
		To:      event.ToState.String(),
	})
}

// OnPollProgress implements pipeline.ProgressListener.
func (h *Hub) OnPollProgress(update pipeline.ProgressUpdate) {
	h.broadcast(progressEvent{
		Type:     "progress",
		Attempt:  update.Attempt,
		Poll:     update.Poll,
		Progress: update.Progress,
		Status:   string(update.Status),
	})
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

var (
	_ pipeline.StateListener    = (*Hub)(nil)
	_ pipeline.ProgressListener = (*Hub)(nil)
)
