package model

import (
	"time"
)

type User struct {
	ID         uint64  `gorm:"primaryKey"`
	Username   *string `gorm:"type:varchar(50);uniqueIndex:idx_username"`
	Password   *string `gorm:"type:varchar(255)"`
	Name       string  `gorm:"type:varchar(50)"`
	Lastname   string  `gorm:"type:varchar(50)"`
	AvatarURL  string  `gorm:"type:varchar(255)"`
	PushyToken *string `gorm:"type:varchar(255);index"` // 设备推送凭证
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (User) TableName() string {
	return "users"
}
