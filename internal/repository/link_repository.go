package repository

import (
	"context"
	"errors"
	"fmt"

	"fasturl-platform/internal/model"
	"fasturl-platform/internal/service"

	"gorm.io/gorm"
)

// LinkRepository 基于 GORM 的存储实现
// 唯一性依赖 short_code 上的唯一索引，数据库需开启 TranslateError
// 以便把驱动层的重复键错误统一翻译为 gorm.ErrDuplicatedKey
type LinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository 创建存储实例
func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// FindByCode 按短码查找未删除的链接
func (r *LinkRepository) FindByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	var link model.ShortLink
	err := r.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return &link, nil
}

// ExistsByCode 检查短码是否被占用
// Unscoped 把软删除的墓碑记录也算在内，删除过的短码不再发放
func (r *LinkRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.ShortLink{}).
		Where("short_code = ?", code).Count(&count).Error
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return count > 0, nil
}

// Insert 写入新链接，依赖唯一索引保证并发下恰好一次成功
func (r *LinkRepository) Insert(ctx context.Context, link *model.ShortLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return service.ErrCodeTaken
		}
		return wrapUnavailable(err)
	}
	return nil
}

// IncrementClickCount 以单条原子 UPDATE 累加点击数，避免读改写丢失更新
func (r *LinkRepository) IncrementClickCount(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&model.ShortLink{}).
		Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if result.Error != nil {
		return wrapUnavailable(result.Error)
	}
	if result.RowsAffected == 0 {
		return service.ErrNotFound
	}
	return nil
}

// InsertClick 追加访问记录
func (r *LinkRepository) InsertClick(ctx context.Context, click *model.ClickRecord) error {
	if err := r.db.WithContext(ctx).Create(click).Error; err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", service.ErrRepositoryUnavailable, err)
}
