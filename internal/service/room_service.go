package service

import (
	"Milestone/internal/api/dto"
	"Milestone/internal/model"
	"Milestone/internal/pkg/consts"
	"Milestone/internal/pkg/ws"
	"Milestone/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"time"
)

// RoomService 房间目录服务接口定义
type RoomService interface {
	FindRoom(ctx context.Context, userA, userB uint64) (*model.Room, error)
	CreateRoom(ctx context.Context, userA, userB uint64) (*model.Room, error)
	GetOrCreateRoom(ctx context.Context, userA, userB uint64) (*model.Room, error)
	ResolveRoomByID(ctx context.Context, roomID uint64) (*model.Room, error)
	DeleteRoom(ctx context.Context, userID, roomID uint64) error

	GetRoomList(ctx context.Context, userID uint64) ([]*dto.RoomListItem, error)
	GetChatHistory(ctx context.Context, userID, roomID uint64, page int) ([]*dto.ChatMessageDTO, error)
	GetChatPageCount(ctx context.Context, userID, roomID uint64) (int64, error)
}

type roomServiceImpl struct {
	roomRepo repository.RoomRepo
	userRepo repository.UserRepo
	hub      *ws.Hub
}

func NewRoomService(roomRepo repository.RoomRepo, userRepo repository.UserRepo, hub *ws.Hub) RoomService {
	return &roomServiceImpl{roomRepo: roomRepo, userRepo: userRepo, hub: hub}
}

// CanonicalRoomName 由两个用户 ID 生成确定的房间名，小 ID 在前。
// 同一对用户无论谁先发起，得到的名字一致，唯一索引据此兜底并发创建。
func CanonicalRoomName(userA, userB uint64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d#%d", userA, userB)
}

// FindRoom 对称查找两个用户间的房间，不存在返回 nil
func (s *roomServiceImpl) FindRoom(ctx context.Context, userA, userB uint64) (*model.Room, error) {
	return s.roomRepo.GetRoomByName(ctx, CanonicalRoomName(userA, userB))
}

// CreateRoom 创建两个用户的单聊房间。
// 并发创建同一对用户时，后到者收到 ErrRoomConflict，应回退到 FindRoom。
func (s *roomServiceImpl) CreateRoom(ctx context.Context, userA, userB uint64) (*model.Room, error) {
	if userA == 0 || userB == 0 || userA == userB {
		return nil, ErrParamInvalid
	}

	room := &model.Room{
		Name:          CanonicalRoomName(userA, userB),
		LastMessageAt: time.Now(),
	}
	members := []*model.RoomMember{
		{UserID: userA},
		{UserID: userB},
	}

	if err := s.roomRepo.CreateRoom(ctx, room, members); err != nil {
		// 唯一索引冲突与普通写失败在驱动层不可靠区分，以重查结果为准
		if existing, findErr := s.roomRepo.GetRoomByName(ctx, room.Name); findErr == nil && existing != nil {
			return nil, ErrRoomConflict
		}
		return nil, err
	}
	return room, nil
}

// GetOrCreateRoom 查找或创建房间，吞掉创建竞态
func (s *roomServiceImpl) GetOrCreateRoom(ctx context.Context, userA, userB uint64) (*model.Room, error) {
	room, err := s.FindRoom(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}

	room, err = s.CreateRoom(ctx, userA, userB)
	if err == ErrRoomConflict {
		return s.FindRoom(ctx, userA, userB)
	}
	return room, err
}

// ResolveRoomByID 按 ID 解析房间
func (s *roomServiceImpl) ResolveRoomByID(ctx context.Context, roomID uint64) (*model.Room, error) {
	room, err := s.roomRepo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// DeleteRoom 删除房间并级联成员与消息，在场会话被强制解绑
func (s *roomServiceImpl) DeleteRoom(ctx context.Context, userID, roomID uint64) error {
	isMember, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotRoomMember
	}

	if err = s.roomRepo.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	s.hub.CloseRoom(roomID)
	log.InfoContext(ctx, "房间已删除", "roomID", roomID, "userID", userID)
	return nil
}

// GetRoomList 获取用户会话列表：对端信息 + 自身未读/最后在线
func (s *roomServiceImpl) GetRoomList(ctx context.Context, userID uint64) ([]*dto.RoomListItem, error) {
	memberships, err := s.roomRepo.ListMembershipsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []*dto.RoomListItem{}, nil
	}

	roomIDs := make([]uint64, 0, len(memberships))
	for _, m := range memberships {
		roomIDs = append(roomIDs, m.RoomID)
	}

	others, err := s.roomRepo.ListOtherMembers(ctx, roomIDs, userID)
	if err != nil {
		return nil, err
	}
	peerByRoom := make(map[uint64]uint64, len(others))
	peerIDs := make([]uint64, 0, len(others))
	for _, m := range others {
		peerByRoom[m.RoomID] = m.UserID
		peerIDs = append(peerIDs, m.UserID)
	}

	peers, err := s.userRepo.GetUserByIds(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	peerInfo := make(map[uint64]*model.User, len(peers))
	for _, u := range peers {
		peerInfo[u.ID] = u
	}

	res := make([]*dto.RoomListItem, 0, len(memberships))
	for _, m := range memberships {
		item := &dto.RoomListItem{
			RoomID:           m.RoomID,
			RoomName:         m.Room.Name,
			LastTimestamp:    m.Room.LastMessageAt.Unix(),
			NewMessageInRoom: m.HasUnread,
		}
		if m.LastOnlineAt != nil {
			item.LastOnline = m.LastOnlineAt.Unix()
		}
		if peerID, ok := peerByRoom[m.RoomID]; ok {
			item.ReceiverID = peerID
			if u, ok := peerInfo[peerID]; ok {
				item.ReceiverName = u.Name
				item.ProfilePic = u.AvatarURL
			}
		}
		res = append(res, item)
	}
	return res, nil
}

// GetChatHistory 按页读取历史消息，时间倒序
func (s *roomServiceImpl) GetChatHistory(ctx context.Context, userID, roomID uint64, page int) ([]*dto.ChatMessageDTO, error) {
	isMember, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotRoomMember
	}
	if page < 0 {
		page = 0
	}

	messages, err := s.roomRepo.ListMessages(ctx, roomID, page, consts.ChatPageSize)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ChatMessageDTO, 0, len(messages))
	for _, m := range messages {
		res = append(res, &dto.ChatMessageDTO{
			ChatID:    m.ID,
			RoomID:    m.RoomID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			Timestamp: m.CreatedAt.Unix(),
		})
	}
	return res, nil
}

// GetChatPageCount 历史消息总页数
func (s *roomServiceImpl) GetChatPageCount(ctx context.Context, userID, roomID uint64) (int64, error) {
	isMember, err := s.roomRepo.IsMember(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}
	if !isMember {
		return 0, ErrNotRoomMember
	}

	count, err := s.roomRepo.CountMessages(ctx, roomID)
	if err != nil {
		return 0, err
	}
	pages := count / consts.ChatPageSize
	if count%consts.ChatPageSize != 0 {
		pages++
	}
	return pages, nil
}
