package ws

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler serves the push endpoint.
type Handler struct {
	hub    *Hub
	cfg    Config
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a push handler that registers accepted connections with hub.
func NewHandler(hub *Hub, cfg Config, logger *zap.Logger) *Handler {
	cfg = cfg.withDefaults()
	hub.SetSendTimeout(cfg.SendTimeout)
	return &Handler{hub: hub, cfg: cfg, logger: logger}
}

// Hub returns the hub the handler registers connections with.
func (h *Handler) Hub() *Hub { return h.hub }

// RegisterRoutes registers the push endpoint on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+h.cfg.Path, h.handleStream)
}

// handleStream upgrades the request and keeps the connection registered
// until the peer goes away or the hub drops it.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
	if len(h.cfg.AllowedOrigins) == 0 {
		opts.InsecureSkipVerify = true
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	conn := newSocketConn(uuid.New().String(), ws, h.cfg, h.logger)
	h.hub.Register(conn)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		conn.writePump(ctx)
		close(done)
	}()

	// readPump blocks until the peer disconnects.
	conn.readPump(ctx)

	h.hub.Unregister(conn)
	conn.Close() //nolint:errcheck // also covers a conn the hub already dropped
	<-done
}
