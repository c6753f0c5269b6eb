package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"driveport/internal/bot"
	"driveport/internal/domain"
	"driveport/internal/transport"
	"driveport/pkg/logger"
)

// inboundFrame is one JSON frame from a connected client.
type inboundFrame struct {
	Type        string `json:"type"` // "message" | "file" | "select"
	Text        string `json:"text,omitempty"`
	Ref         string `json:"ref,omitempty"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Caption     string `json:"caption,omitempty"`
	Data        string `json:"data,omitempty"`
}

type WSHandler struct {
	tokens *TokenService
	hub    *Hub
	bot    *bot.Handler
	log    *logger.Logger
}

func NewWSHandler(tokens *TokenService, hub *Hub, botHandler *bot.Handler, log *logger.Logger) *WSHandler {
	return &WSHandler{tokens: tokens, hub: hub, bot: botHandler, log: log}
}

func (h *WSHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userID, err := h.tokens.Parse(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		h.dispatch(userID, data)
	}

	h.hub.Unregister(client)
}

// dispatch turns a frame into an engine event and runs it as its own
// task. Events for one user serialize on the session lock.
func (h *WSHandler) dispatch(userID string, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.log.Warnf("bad frame from %s: %v", userID, err)
		return
	}

	in := transport.Inbound{UserID: userID}
	switch frame.Type {
	case "message":
		in.Text = frame.Text
	case "file":
		in.Text = frame.Caption
		in.File = &domain.FileDescriptor{
			Ref:         frame.Ref,
			Name:        frame.Name,
			ContentType: frame.ContentType,
			SizeBytes:   frame.SizeBytes,
			Kind:        domain.FileKind(frame.Kind),
		}
	case "select":
		in.Select = frame.Data
	default:
		h.log.Warnf("unknown frame type %q from %s", frame.Type, userID)
		return
	}

	go h.bot.HandleInbound(context.Background(), in)
}
