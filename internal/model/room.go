package model

import "time"

// Room 单聊房间主表
type Room struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"uniqueIndex;type:varchar(64)" json:"name"` // uid1#uid2，小 ID 在前
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Room) TableName() string { return "rooms" }

// RoomMember 房间成员表，单聊恒为两行
type RoomMember struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID       uint64     `gorm:"uniqueIndex:idx_room_user" json:"roomId"`
	UserID       uint64     `gorm:"uniqueIndex:idx_room_user;index" json:"userId"`
	HasUnread    bool       `gorm:"not null;default:0" json:"hasUnread"` // 对端有未读消息
	LastOnlineAt *time.Time `json:"lastOnlineAt"`
	JoinedAt     time.Time  `json:"joinedAt"`

	Room Room `gorm:"foreignKey:RoomID;references:ID" json:"room"`
}

func (RoomMember) TableName() string { return "room_members" }
