package ws

import (
	log "log/slog"
	"sync"
)

// Hub 房间到活跃会话的权威注册表。
// 绑定/解绑时写入，每次消息投递决策时读取；
// 读取在锁内完成，保证判定时刻的一致快照。
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint64]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint64]map[*Session]struct{})}
}

// Bind 将会话绑定到房间
func (s *Hub) Bind(roomID uint64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.rooms[roomID]
	if !ok {
		set = make(map[*Session]struct{})
		s.rooms[roomID] = set
	}
	set[sess] = struct{}{}
}

// Unbind 解除会话与房间的绑定
func (s *Hub) Unbind(roomID uint64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.rooms[roomID]
	if !ok {
		return
	}
	delete(set, sess)
	if len(set) == 0 {
		delete(s.rooms, roomID)
	}
}

// OthersPresent 房间内是否存在除指定会话外的其他活跃连接。
// 这是实时投递与离线推送的分流依据，必须反映当下的连接集合。
func (s *Hub) OthersPresent(roomID uint64, except *Session) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sess := range s.rooms[roomID] {
		if sess != except {
			return true
		}
	}
	return false
}

// Broadcast 向房间内除指定会话外的所有会话投递帧
func (s *Hub) Broadcast(roomID uint64, except *Session, frame Frame) {
	s.mu.RLock()
	targets := make([]*Session, 0, len(s.rooms[roomID]))
	for sess := range s.rooms[roomID] {
		if sess != except {
			targets = append(targets, sess)
		}
	}
	s.mu.RUnlock()

	for _, sess := range targets {
		sess.Send(frame)
	}
}

// CloseRoom 房间被删除时强制解绑所有在场会话
func (s *Hub) CloseRoom(roomID uint64) {
	s.mu.Lock()
	set := s.rooms[roomID]
	delete(s.rooms, roomID)
	s.mu.Unlock()

	for sess := range set {
		sess.forceDetach()
	}
	if len(set) > 0 {
		log.Info("房间已关闭，强制解绑在场会话", "roomID", roomID, "sessions", len(set))
	}
}

// RoomSize 房间当前绑定的会话数
func (s *Hub) RoomSize(roomID uint64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomID])
}
