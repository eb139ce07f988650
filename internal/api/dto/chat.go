package dto

// ===== Websocket 入站事件载荷 =====

// EnterChatReq 进入聊天请求：携带凭证与房间标识（或对端用户）
type EnterChatReq struct {
	Token      string `json:"token"`
	RoomID     uint64 `json:"room_id"`
	SenderID   uint64 `json:"sender_id"`
	ReceiverID uint64 `json:"receiver_id"`
}

// RoomSignalReq 在线/正在输入等临态信号
type RoomSignalReq struct {
	RoomID uint64 `json:"room_id"`
}

// ChatMessageReq 发送消息请求
type ChatMessageReq struct {
	SenderID uint64 `json:"sender_id"`
	RoomID   uint64 `json:"room_id"`
	Text     string `json:"text"`
}

// BeforeDisconnectReq 断开前显式上报，用于记录最后在线时间
type BeforeDisconnectReq struct {
	UserID uint64 `json:"user_id"`
	RoomID uint64 `json:"room_id"`
}

// ===== Websocket 出站事件载荷 =====

// RoomResolvedEvent 房间解析结果
type RoomResolvedEvent struct {
	RoomName string `json:"room_name"`
	RoomID   uint64 `json:"room_id"`
}

// LastOnlineEvent 对端最后在线时间，0 表示从未在线
type LastOnlineEvent struct {
	LastOnline int64 `json:"last_online"`
}

// StatusEvent 对端在线状态广播
type StatusEvent struct {
	Status int `json:"status"` // 1-在线, 0-离线
}

// MessageEvent 实时消息推送
type MessageEvent struct {
	RoomID    uint64 `json:"room_id"`
	SenderID  uint64 `json:"sender_id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorEvent 发送方本地错误信号
type ErrorEvent struct {
	Message string `json:"message"`
}

// ===== HTTP 聊天接口 =====

// RoomListItem 会话列表项：对端信息 + 未读/最后在线
type RoomListItem struct {
	RoomID           uint64 `json:"roomId"`
	RoomName         string `json:"roomName"`
	ReceiverID       uint64 `json:"receiverId"`
	ReceiverName     string `json:"receiverName"`
	ProfilePic       string `json:"profilePic"`
	LastTimestamp    int64  `json:"lastTimestamp"`
	NewMessageInRoom bool   `json:"newMessageInRoom"`
	LastOnline       int64  `json:"lastOnline"`
}

// ChatMessageDTO 历史消息项
type ChatMessageDTO struct {
	ChatID    uint64 `json:"chatId"`
	RoomID    uint64 `json:"roomId"`
	SenderID  uint64 `json:"senderId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// PageCountDTO 分页总页数
type PageCountDTO struct {
	Pages int64 `json:"pages"`
}
