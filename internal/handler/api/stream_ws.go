package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	models "Jyotish/internal/domain/models"
	"Jyotish/internal/usecase"
	xlogger "Jyotish/pkg/logger"
	"Jyotish/pkg/util"
)

const (
	writeWait       = 10 * time.Second
	defaultPingSecs = 30
)

// streamFrame is one websocket message.
type streamFrame struct {
	Type string                 `json:"type"`
	Data *models.PanchangResult `json:"data,omitempty"`
}

// StreamHandler upgrades /api/panchang/stream and forwards every snapshot of the
// shared PanchangStream until the client leaves.
type StreamHandler struct {
	logger   *xlogger.Logger
	stream   *usecase.PanchangStream
	upgrader websocket.Upgrader
}

func NewStreamHandler(logger *xlogger.Logger, stream *usecase.PanchangStream) *StreamHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &StreamHandler{
		logger: logger,
		stream: stream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/panchang/stream", h.Stream)
}

// Stream accepts ?ping=<seconds> (5..120) for the keepalive period.
func (h *StreamHandler) Stream(c echo.Context) error {
	ping := time.Duration(clamp(util.ParseIntDefault(c.QueryParam("ping"), defaultPingSecs), 5, 120)) * time.Second

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	snapshots, unsubscribe := h.stream.Subscribe()
	defer unsubscribe()

	// the read loop only drains control frames and notices the close
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(2 * ping))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * ping))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	h.logger.Debug("stream client connected", xlogger.String("remote", c.RealIP()))
	for {
		select {
		case <-gone:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case res, ok := <-snapshots:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(streamFrame{Type: "panchang", Data: &res}); err != nil {
				h.logger.Debug("stream write failed", xlogger.Error(err))
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
