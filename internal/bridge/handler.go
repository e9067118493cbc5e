package bridge

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/turtletrace/internal/debug"
	"github.com/dshills/turtletrace/internal/jsoncodec"
	"github.com/dshills/turtletrace/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// outboundBuffer is how many editor commands may queue per connection.
	outboundBuffer = 256
)

// Config configures a Handler.
type Config struct {
	// Engine is the template for each connection's engine. Editor and
	// Anchor are set per connection.
	Engine debug.Options

	// Logger receives connection diagnostics.
	Logger *logging.Logger

	// CheckOrigin validates the Origin header. Nil accepts every origin,
	// which suits a local dev server.
	CheckOrigin func(r *http.Request) bool
}

// Handler upgrades requests to websocket debug sessions.
type Handler struct {
	opts        debug.Options
	logger      *logging.Logger
	upgrader    websocket.Upgrader
	connections prometheus.Gauge

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewHandler creates a websocket handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Null()
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		opts:   cfg.Engine,
		logger: logger.WithComponent("bridge"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "turtletrace",
			Subsystem: "bridge",
			Name:      "connections",
			Help:      "Open websocket debug sessions.",
		}),
		active: make(map[string]context.CancelFunc),
	}
}

// Collector returns the handler's connection gauge.
func (h *Handler) Collector() prometheus.Collector {
	return h.connections
}

// Active returns the number of open sessions.
func (h *Handler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}

// Close ends every open session.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cancel := range h.active {
		cancel()
	}
}

func (h *Handler) track(id string, cancel context.CancelFunc) {
	h.mu.Lock()
	h.active[id] = cancel
	h.mu.Unlock()
	h.connections.Inc()
}

func (h *Handler) untrack(id string) {
	h.mu.Lock()
	delete(h.active, id)
	h.mu.Unlock()
	h.connections.Dec()
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := h.logger.WithField("conn", connID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	h.track(connID, cancel)
	defer h.untrack(connID)

	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Warn("set read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	writeCh := make(chan any, outboundBuffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		h.writeLoop(ctx, conn, writeCh, logger)
	}()

	send := func(msg any) {
		select {
		case writeCh <- msg:
		case <-ctx.Done():
		}
	}

	opts := h.opts
	opts.Logger = logger
	session, err := NewSession(opts, send)
	if err != nil {
		logger.Error("create session: %v", err)
		cancel()
		<-writerDone
		return
	}
	logger.Info("debug session opened from %s", r.RemoteAddr)

	// Unblock the read below once the session is cancelled.
	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				logger.Warn("read: %v", err)
			}
			break
		}
		if err := h.handle(session, data); err != nil {
			logger.Debug("%v", err)
			send(errorReply(err))
		}
	}

	cancel()
	<-writerDone
	logger.Info("debug session closed")
}

func (h *Handler) handle(s *Session, data []byte) error {
	in, err := Decode(data)
	if err != nil {
		return err
	}
	return s.Handle(in)
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, writeCh <-chan any, logger *logging.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-writeCh:
			data, err := jsoncodec.Marshal(msg)
			if err != nil {
				logger.Error("encode %T: %v", msg, err)
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("write: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
