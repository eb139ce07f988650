package job

import (
	"Milestone/internal/pkg/consts"
	"Milestone/internal/pkg/logger"
	"Milestone/internal/pkg/redis"
	"Milestone/internal/pkg/ws"
	"Milestone/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// 创建后超过该时长仍无任何消息的房间视为废弃房间
const emptyRoomMaxAge = 30 * 24 * time.Hour

type RoomActivityJob struct {
	roomRepo repository.RoomRepo
	hub      *ws.Hub
}

func NewRoomActivityJob(roomRepo repository.RoomRepo, hub *ws.Hub) *RoomActivityJob {
	return &RoomActivityJob{
		roomRepo: roomRepo,
		hub:      hub,
	}
}

func (s *RoomActivityJob) Run() {
	traceID := "job-room-clean-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	// 多实例部署时只允许一个节点执行清理
	ok, err := redis.TryLock(ctx, consts.RoomCleanLock, traceID, 10*time.Minute, 1)
	if err != nil {
		log.ErrorContext(ctx, "acquire room clean lock error", "err", err)
		return
	}
	if !ok {
		return
	}
	defer redis.UnLock(ctx, consts.RoomCleanLock, traceID)

	cutoff := time.Now().Add(-emptyRoomMaxAge)
	log.InfoContext(ctx, "start room activity cleanup", "cutoff", cutoff)

	deleted, err := s.roomRepo.DeleteEmptyRoomsBefore(ctx, cutoff)

	// 已删除的房间必须强制解绑在场会话，失败时也要处理已删除的部分
	for _, roomID := range deleted {
		s.hub.CloseRoom(roomID)
	}
	if err != nil {
		log.ErrorContext(ctx, "delete empty rooms error", "err", err)
		return
	}

	if len(deleted) > 0 {
		log.InfoContext(ctx, "room activity cleanup finished", "deleted_count", len(deleted))
	}
}
