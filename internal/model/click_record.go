package model

import (
	"time"
)

// ClickRecord 每次成功跳转写入一条访问记录，用于统计
type ClickRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ShortLinkID uint      `gorm:"not null;index" json:"short_link_id"`
	IPAddress   string    `gorm:"size:45" json:"ip_address"`
	UserAgent   string    `gorm:"type:text" json:"user_agent"`
	Referer     string    `gorm:"type:text" json:"referer"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ClickRecord) TableName() string {
	return "click_records"
}
