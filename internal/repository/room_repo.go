package repository

import (
	"Milestone/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type RoomRepo interface {
	CreateRoom(ctx context.Context, room *model.Room, members []*model.RoomMember) error
	GetRoomByName(ctx context.Context, name string) (*model.Room, error)
	GetRoomByID(ctx context.Context, roomID uint64) (*model.Room, error)
	DeleteRoom(ctx context.Context, roomID uint64) error

	IsMember(ctx context.Context, roomID uint64, userID uint64) (bool, error)
	GetOtherMember(ctx context.Context, roomID uint64, excludeUserID uint64) (*model.RoomMember, error)
	ListMembershipsForUser(ctx context.Context, userID uint64) ([]*model.RoomMember, error)
	ListOtherMembers(ctx context.Context, roomIDs []uint64, excludeUserID uint64) ([]*model.RoomMember, error)

	SetUnread(ctx context.Context, roomID uint64, userID uint64, flag bool) error
	MarkUnreadExcept(ctx context.Context, roomID uint64, senderID uint64) error
	SetLastOnline(ctx context.Context, roomID uint64, userID uint64, t time.Time) error
	GetLastOnline(ctx context.Context, roomID uint64, userID uint64) (*time.Time, error)

	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	ListMessages(ctx context.Context, roomID uint64, page int, pageSize int) ([]*model.ChatMessage, error)
	CountMessages(ctx context.Context, roomID uint64) (int64, error)

	DeleteEmptyRoomsBefore(ctx context.Context, cutoff time.Time) ([]uint64, error)
}

type roomRepoImpl struct {
	db *gorm.DB
}

func NewRoomRepo(db *gorm.DB) RoomRepo {
	return &roomRepoImpl{db: db}
}

// CreateRoom 开启事务创建房间及两名初始成员，房间名唯一索引兜底并发创建
func (s *roomRepoImpl) CreateRoom(ctx context.Context, room *model.Room, members []*model.RoomMember) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		for _, m := range members {
			m.RoomID = room.ID
			m.JoinedAt = time.Now()
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRoomByName 根据规范名获取房间，未命中返回 nil
func (s *roomRepoImpl) GetRoomByName(ctx context.Context, name string) (*model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// GetRoomByID 根据房间 ID 获取房间，未命中返回 nil
func (s *roomRepoImpl) GetRoomByID(ctx context.Context, roomID uint64) (*model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).First(&room, roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// DeleteRoom 删除房间并级联成员与消息
func (s *roomRepoImpl) DeleteRoom(ctx context.Context, roomID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&model.RoomMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Room{}, roomID).Error
	})
}

// IsMember 检查用户是否是房间成员
func (s *roomRepoImpl) IsMember(ctx context.Context, roomID uint64, userID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

// GetOtherMember 获取房间内除指定用户外的成员（单聊即对端）
func (s *roomRepoImpl) GetOtherMember(ctx context.Context, roomID uint64, excludeUserID uint64) (*model.RoomMember, error) {
	var member model.RoomMember
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND user_id != ?", roomID, excludeUserID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// ListMembershipsForUser 获取用户的全部房间成员关系，按房间最新活跃排序
func (s *roomRepoImpl) ListMembershipsForUser(ctx context.Context, userID uint64) ([]*model.RoomMember, error) {
	var members []*model.RoomMember
	err := s.db.WithContext(ctx).
		Preload("Room").
		Joins("JOIN rooms ON rooms.id = room_members.room_id").
		Where("room_members.user_id = ?", userID).
		Order("rooms.last_message_at DESC").
		Find(&members).Error
	return members, err
}

// ListOtherMembers 批量获取若干房间中的对端成员
func (s *roomRepoImpl) ListOtherMembers(ctx context.Context, roomIDs []uint64, excludeUserID uint64) ([]*model.RoomMember, error) {
	var members []*model.RoomMember
	err := s.db.WithContext(ctx).
		Where("room_id IN ? AND user_id != ?", roomIDs, excludeUserID).
		Find(&members).Error
	return members, err
}

// SetUnread 设置单个成员的未读标记
func (s *roomRepoImpl) SetUnread(ctx context.Context, roomID uint64, userID uint64, flag bool) error {
	return s.db.WithContext(ctx).Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("has_unread", flag).Error
}

// MarkUnreadExcept 发送方之外的所有成员标记未读
func (s *roomRepoImpl) MarkUnreadExcept(ctx context.Context, roomID uint64, senderID uint64) error {
	return s.db.WithContext(ctx).Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id != ?", roomID, senderID).
		Update("has_unread", true).Error
}

// SetLastOnline 记录成员在房间内的最后在线时间
func (s *roomRepoImpl) SetLastOnline(ctx context.Context, roomID uint64, userID uint64, t time.Time) error {
	return s.db.WithContext(ctx).Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("last_online_at", t).Error
}

// GetLastOnline 读取成员最后在线时间，从未记录返回 nil
func (s *roomRepoImpl) GetLastOnline(ctx context.Context, roomID uint64, userID uint64) (*time.Time, error) {
	var member model.RoomMember
	err := s.db.WithContext(ctx).
		Select("last_online_at").
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return member.LastOnlineAt, nil
}

// AppendMessage 追加写入消息并刷新房间活跃时间
func (s *roomRepoImpl) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Room{}).
			Where("id = ?", msg.RoomID).
			Update("last_message_at", msg.CreatedAt).Error
	})
}

// ListMessages 按创建时间倒序分页读取消息
func (s *roomRepoImpl) ListMessages(ctx context.Context, roomID uint64, page int, pageSize int) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	return messages, err
}

// CountMessages 统计房间消息总数
func (s *roomRepoImpl) CountMessages(ctx context.Context, roomID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

// DeleteEmptyRoomsBefore 清理在截止时间前创建且从未产生消息的房间，返回被删除的房间 ID
func (s *roomRepoImpl) DeleteEmptyRoomsBefore(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	var roomIDs []uint64
	err := s.db.WithContext(ctx).Model(&model.Room{}).
		Joins("LEFT JOIN chat_messages ON chat_messages.room_id = rooms.id").
		Where("rooms.last_message_at < ? AND chat_messages.id IS NULL", cutoff).
		Pluck("rooms.id", &roomIDs).Error
	if err != nil {
		return nil, err
	}

	deleted := make([]uint64, 0, len(roomIDs))
	for _, id := range roomIDs {
		if err = s.DeleteRoom(ctx, id); err != nil {
			return deleted, err
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}
