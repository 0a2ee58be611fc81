package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
)

// WSHandler upgrades GET /ws and feeds frames to the relay.
type WSHandler struct {
	hub      *hub.Hub
	relay    service.RelayService
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, relay service.RelayService, wsCfg config.WebSocketConfig, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:   h,
		relay: relay,
		wsCfg: wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	// The connection outlives the upgrade request.
	ctx := context.WithoutCancel(c.Request.Context())
	l.Info().Str(log.FieldConnID, client.ID).Msg("websocket connected")

	go client.WritePump()
	go client.ReadPump(ctx, h.handleMessage, func(cl *hub.Client) {
		h.relay.HandleDisconnect(ctx, cl)
	})
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, message []byte) {
	l := log.Ctx(ctx)

	evt, err := domain.ParseClientEvent(message)
	if err != nil {
		l.Debug().Err(err).Msg("rejected client frame")
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, err.Error()))
		return
	}

	switch e := evt.(type) {
	case *domain.JoinEvent:
		if err := h.relay.HandleJoin(ctx, client, e.Username); err != nil {
			l.Warn().Err(err).Str(log.FieldUsername, e.Username).Msg("join failed")
		}

	case *domain.SendMessageEvent:
		err := h.relay.HandleSendMessage(ctx, client, e)
		if err != nil && !errors.Is(err, service.ErrNotJoined) && !errors.Is(err, service.ErrInvalidMessage) {
			l.Warn().Err(err).Str(log.FieldSender, e.Sender).Msg("send failed")
		}

	case *domain.PingEvent:
		client.SendMessage(domain.NewPongMessage())
	}
}
