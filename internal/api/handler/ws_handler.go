package handler

import (
	"Milestone/internal/api/config"
	"Milestone/internal/pkg/ws"
	"Milestone/internal/service"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	hub         *ws.Hub
	chatService service.ChatService
}

func NewWsHandler(hub *ws.Hub, chatService service.ChatService) *WsHandler {
	return &WsHandler{hub: hub, chatService: chatService}
}

// Connect 升级 Websocket 并驱动会话直到断开。
// 鉴权不在升级时做：首个 enterChat 事件携带凭证，由路由层校验。
func (s *WsHandler) Connect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	var wsCfg config.WSConfig
	if config.Cfg != nil {
		wsCfg = config.Cfg.WS
	}

	sess := ws.NewSession(conn, s.hub, s.chatService, wsCfg)
	log.Info("WS 连接已建立", "remote", conn.RemoteAddr().String())

	sess.Run(c.Request.Context())
}
