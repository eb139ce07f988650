package model

import "time"

// ChatMessage 聊天消息，只追加不修改
type ChatMessage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    uint64    `gorm:"index:idx_room_created,priority:1;not null" json:"roomId"`
	SenderID  uint64    `gorm:"not null" json:"senderId"`
	Text      string    `gorm:"type:varchar(2000);not null" json:"text"`
	CreatedAt time.Time `gorm:"index:idx_room_created,priority:2" json:"createdAt"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
