package ws

import (
	"Milestone/internal/api/config"
	"Milestone/internal/api/dto"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultReadLimit      = 4096
	defaultSendBufferSize = 256
)

// Session 单个长连接的会话状态。
// 入站事件全部在读循环这一个 goroutine 上处理，出站写入由独立的写循环消费，
// 因此同一发送方的事件天然保持发出顺序。
type Session struct {
	conn   *websocket.Conn
	hub    *Hub
	router Router

	send      chan Frame
	done      chan struct{}
	closeOnce sync.Once

	mu            sync.Mutex
	userID        uint64
	roomID        uint64
	authenticated bool
	closed        bool
}

func NewSession(conn *websocket.Conn, hub *Hub, router Router, cfg config.WSConfig) *Session {
	bufSize := cfg.SendBufferSize
	if bufSize <= 0 {
		bufSize = defaultSendBufferSize
	}
	readLimit := cfg.ReadLimit
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}

	s := &Session{
		conn:   conn,
		hub:    hub,
		router: router,
		send:   make(chan Frame, bufSize),
		done:   make(chan struct{}),
	}
	conn.SetReadLimit(readLimit)
	return s
}

// UserID 当前会话已鉴权的用户 ID，未鉴权为 0
func (s *Session) UserID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// RoomID 当前绑定的房间 ID，未绑定为 0
func (s *Session) RoomID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Authenticated 会话是否已通过鉴权
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// SetIdentity 鉴权成功后记录用户身份
func (s *Session) SetIdentity(userID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.userID = userID
	s.authenticated = true
}

// BindRoom 绑定会话到房间，重复进入时先解绑旧房间
func (s *Session) BindRoom(roomID uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	old := s.roomID
	s.roomID = roomID
	s.mu.Unlock()

	if old != 0 && old != roomID {
		s.hub.Unbind(old, s)
	}
	s.hub.Bind(roomID, s)
}

// UnbindRoom 释放房间绑定，返回原先绑定的房间 ID
func (s *Session) UnbindRoom() uint64 {
	s.mu.Lock()
	old := s.roomID
	s.roomID = 0
	s.mu.Unlock()

	if old != 0 {
		s.hub.Unbind(old, s)
	}
	return old
}

// forceDetach 房间被删除时由 Hub 调用，仅清理本地绑定
func (s *Session) forceDetach() {
	s.mu.Lock()
	s.roomID = 0
	s.mu.Unlock()
}

// Send 非阻塞入队出站帧，队列满则丢弃（慢消费者不拖垮发送方）
func (s *Session) Send(frame Frame) {
	select {
	case s.send <- frame:
	default:
		log.Warn("会话发送队列已满，丢弃消息帧", "event", frame.Event, "userID", s.UserID())
	}
}

// SendEvent 构造并入队出站事件
func (s *Session) SendEvent(event string, v interface{}) {
	frame, err := NewFrame(event, v)
	if err != nil {
		log.Error("构造消息帧失败", "event", event, "err", err)
		return
	}
	s.Send(frame)
}

// Close 幂等关闭会话
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		_ = s.conn.Close()
	})
}

// Run 驱动会话读循环，阻塞直到连接断开。
// 无论正常断开还是异常断开，清理路径（离线广播、最后在线落库）保证恰好执行一次。
func (s *Session) Run(ctx context.Context) {
	go s.writePump()

	defer func() {
		s.router.Disconnect(s)
		s.Close()
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame Frame
		if err = json.Unmarshal(data, &frame); err != nil {
			log.Warn("非法消息帧，已忽略", "err", err)
			continue
		}

		if !s.dispatch(ctx, &frame) {
			return
		}
	}
}

// dispatch 分发入站事件，返回 false 表示连接应当终止
func (s *Session) dispatch(ctx context.Context, frame *Frame) bool {
	// 未鉴权连接只接受 enterChat，其余事件直接丢弃
	if frame.Event != EventEnterChat && !s.Authenticated() {
		return true
	}

	switch frame.Event {
	case EventEnterChat:
		var req dto.EnterChatReq
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			log.Warn("enterChat 载荷解析失败", "err", err)
			return true
		}
		if err := s.router.EnterChat(ctx, s, &req); err != nil {
			log.Warn("WS 鉴权失败，断开连接", "err", err)
			return false
		}
	case EventOnline:
		var req dto.RoomSignalReq
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return true
		}
		s.router.Online(ctx, s, &req)
	case EventTyping:
		var req dto.RoomSignalReq
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return true
		}
		s.router.Typing(ctx, s, &req)
	case EventMessage:
		var req dto.ChatMessageReq
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return true
		}
		s.router.Message(ctx, s, &req)
	case EventBeforeDisconnect:
		var req dto.BeforeDisconnectReq
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return true
		}
		s.router.BeforeDisconnect(ctx, s, &req)
	default:
		log.Warn("未知事件", "event", frame.Event)
	}
	return true
}

// writePump 出站写循环，独立 goroutine 串行消费发送队列
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			data, err := json.Marshal(frame)
			if err != nil {
				log.Error("序列化消息帧失败", "event", frame.Event, "err", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err = s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
