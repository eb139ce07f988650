package ws

import (
	"Milestone/internal/api/dto"
	"context"
)

// Router 会话入站事件的业务处理契约。
// EnterChat 返回非 nil 错误表示鉴权失败，连接将被终止；
// 其余校验类失败由实现方向会话发送 errorEvent 自行消化。
type Router interface {
	EnterChat(ctx context.Context, s *Session, req *dto.EnterChatReq) error
	Online(ctx context.Context, s *Session, req *dto.RoomSignalReq)
	Typing(ctx context.Context, s *Session, req *dto.RoomSignalReq)
	Message(ctx context.Context, s *Session, req *dto.ChatMessageReq)
	BeforeDisconnect(ctx context.Context, s *Session, req *dto.BeforeDisconnectReq)

	// Disconnect 连接关闭时由会话保证恰好调用一次
	Disconnect(s *Session)
}
