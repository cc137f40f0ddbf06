package model

import (
	"time"

	"gorm.io/gorm"
)

// ShortLink 短链接模型
// 软删除保留墓碑记录，短码删除后也不会被重新分配
type ShortLink struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	OwnerID        uint           `gorm:"not null;index" json:"owner_id"`
	ShortCode      string         `gorm:"size:64;uniqueIndex;not null" json:"short_code"`
	DestinationURL string         `gorm:"type:text;not null" json:"destination_url"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	ClickCount     int64          `gorm:"default:0" json:"click_count"`
	CreatedAt      time.Time      `json:"created_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (ShortLink) TableName() string {
	return "short_links"
}

// IsExpired 判断链接在给定时刻是否已过期，ExpiresAt 为空表示永不过期
func (l *ShortLink) IsExpired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	return !l.ExpiresAt.After(now)
}
