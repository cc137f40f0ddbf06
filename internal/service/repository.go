package service

import (
	"context"

	"fasturl-platform/internal/model"
)

// LinkRepository 是引擎依赖的存储抽象
// Insert 必须在 short_code 唯一索引上保证原子性：两次并发写入同一短码时
// 恰好一次成功，另一次返回 ErrCodeTaken。唯一性最终依赖该约束而非应用层预检查
type LinkRepository interface {
	// FindByCode 按短码查找链接，不存在时返回 ErrNotFound
	FindByCode(ctx context.Context, code string) (*model.ShortLink, error)
	// ExistsByCode 检查短码是否被占用，包含已删除的墓碑记录
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// Insert 写入新链接，短码冲突时返回 ErrCodeTaken
	Insert(ctx context.Context, link *model.ShortLink) error
	// IncrementClickCount 以单条原子 UPDATE 将点击数加一，记录不存在时返回 ErrNotFound
	IncrementClickCount(ctx context.Context, id uint) error
	// InsertClick 追加一条访问记录
	InsertClick(ctx context.Context, click *model.ClickRecord) error
}

// CodeSource 提供随机短码候选，issuance 层在冲突时重新取号
type CodeSource interface {
	Random() (string, error)
}
