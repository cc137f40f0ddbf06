package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fasturl-platform/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Resolution 负责短码解析：查找、过期校验、点击数累加
type Resolution struct {
	repo   LinkRepository
	cache  *redis.Client
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewResolution 创建解析服务，cache 可以为 nil
func NewResolution(repo LinkRepository, cache *redis.Client, logger *zap.SugaredLogger) *Resolution {
	return &Resolution{
		repo:   repo,
		cache:  cache,
		logger: logger.Named("resolution"),
		now:    time.Now,
	}
}

// Resolve 把短码解析为链接记录
// 过期校验以解析时刻的墙上时钟为准，过期的记录保留不删除
// 点击数累加失败（如记录被并发删除）不影响本次跳转，对访客的首要承诺是正确跳转
func (s *Resolution) Resolve(ctx context.Context, code string) (*model.ShortLink, error) {
	link, fromCache := s.lookupCache(ctx, code)
	if link == nil {
		var err error
		link, err = s.repo.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
	}

	if link.IsExpired(s.now()) {
		return nil, ErrExpired
	}

	if err := s.repo.IncrementClickCount(ctx, link.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warnw("点击数累加时记录已不存在，跳转照常进行", "code", code)
		} else {
			s.logger.Errorw("点击数累加失败", "code", code, "err", err)
		}
	} else {
		link.ClickCount++
	}

	if !fromCache {
		s.storeCache(ctx, link)
	}
	return link, nil
}

// RecordClick 追加访问记录，尽力而为，由调用方异步触发
func (s *Resolution) RecordClick(ctx context.Context, linkID uint, ip, userAgent, referer string) {
	click := &model.ClickRecord{
		ShortLinkID: linkID,
		IPAddress:   ip,
		UserAgent:   userAgent,
		Referer:     referer,
	}
	if err := s.repo.InsertClick(ctx, click); err != nil {
		s.logger.Warnw("写入访问记录失败", "link_id", linkID, "err", err)
	}
}

// lookupCache 从缓存读取链接记录，缓存命中也要重新做过期校验
func (s *Resolution) lookupCache(ctx context.Context, code string) (*model.ShortLink, bool) {
	if s.cache == nil {
		return nil, false
	}
	cctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	val, err := s.cache.Get(cctx, CacheKeyPrefix+code).Result()
	if err != nil {
		return nil, false
	}
	var link model.ShortLink
	if err := json.Unmarshal([]byte(val), &link); err != nil {
		return nil, false
	}
	return &link, true
}

func (s *Resolution) storeCache(ctx context.Context, link *model.ShortLink) {
	if s.cache == nil {
		return
	}
	ttl := DefaultCacheTTL
	if link.ExpiresAt != nil {
		remaining := link.ExpiresAt.Sub(s.now())
		if remaining <= 0 {
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	payload, err := json.Marshal(link)
	if err != nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	if err := s.cache.Set(cctx, CacheKeyPrefix+link.ShortCode, payload, ttl).Err(); err != nil {
		s.logger.Warnw("写入缓存失败", "code", link.ShortCode, "err", err)
	}
}
