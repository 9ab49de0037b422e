package state

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"onboarding-hub/internal/errors"
	"onboarding-hub/internal/notify"
	"onboarding-hub/internal/utils"
)

// Subscriber is the part of the notification hub the stream endpoints use.
type Subscriber interface {
	Subscribe(sink notify.Sink) *notify.Subscription
}

// HistoryProvider lists persisted snapshots; only the postgres backend has one.
type HistoryProvider interface {
	History(ctx context.Context, page, pageSize int) (*PaginatedSnapshots, error)
}

// Handler is the sync endpoint layer. Its only state is the shutdown signal
// that ends open streams.
type Handler struct {
	service   Service
	hub       Subscriber
	history   HistoryProvider
	heartbeat time.Duration
	buffer    int
	upgrader  websocket.Upgrader

	closing   chan struct{}
	closeOnce sync.Once
}

type HandlerOption func(*Handler)

func WithHeartbeat(d time.Duration) HandlerOption {
	return func(h *Handler) { h.heartbeat = d }
}

func WithSubscriberBuffer(n int) HandlerOption {
	return func(h *Handler) { h.buffer = n }
}

func WithHistory(p HistoryProvider) HandlerOption {
	return func(h *Handler) { h.history = p }
}

func NewHandler(service Service, hub Subscriber, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:   service,
		hub:       hub,
		heartbeat: 30 * time.Second,
		buffer:    16,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		closing: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Shutdown ends every open event stream and socket. http.Server.Shutdown
// does not cancel hijacked or long-running handlers, so register this with
// RegisterOnShutdown.
func (h *Handler) Shutdown() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// ShowState returns the canonical document verbatim.
func (h *Handler) ShowState(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Get())
}

// UpdateState forwards any subset of the five fields to the store. The merged
// document is not returned; writers learn it from the stream.
func (h *Handler) UpdateState(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(errors.BadRequest("Can't read request body", err))
		return
	}

	var patch Patch
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &patch); err != nil {
			c.Error(errors.BadRequest("Invalid state payload", err))
			return
		}
	}

	h.service.Update(patch)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// StreamEvents serves GET /api/events as server-sent events. The first event
// is the current document; each store change adds one more.
func (h *Handler) StreamEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sink := notify.NewChannelSink(h.buffer)
	sub := h.hub.Subscribe(sink)
	defer sub.Unsubscribe()

	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closing:
			return
		case <-sink.Done():
			log.Debug().Msg("event stream dropped by hub")
			return
		case payload := <-sink.C():
			if err := sse.Encode(c.Writer, sse.Event{Data: string(payload)}); err != nil {
				log.Debug().Err(err).Msg("event stream write failed")
				return
			}
			c.Writer.Flush()
		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// StreamSocket serves the same snapshots over a WebSocket, one text frame each.
func (h *Handler) StreamSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sink := notify.NewChannelSink(h.buffer)
	sub := h.hub.Subscribe(sink)
	defer sub.Unsubscribe()

	// reads only detect the peer going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-closed:
			return
		case <-h.closing:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		case <-sink.Done():
			return
		case payload := <-sink.C():
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// ShowHistory lists persisted snapshots when the backend keeps history.
func (h *Handler) ShowHistory(c *gin.Context) {
	if h.history == nil {
		c.Error(errors.NotFound("Snapshot history is not enabled", nil))
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.history.History(c.Request.Context(), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
