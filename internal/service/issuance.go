package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"fasturl-platform/internal/model"
	"fasturl-platform/internal/policy"
	"fasturl-platform/internal/shortcode"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// maxGenerateRetries 随机短码冲突时的最大重试次数
	maxGenerateRetries = 5
	// maxDestinationLength 目标 URL 的最大长度
	maxDestinationLength = 2048
	// CacheKeyPrefix 链接缓存键前缀
	CacheKeyPrefix = "shortlink:"
	// DefaultCacheTTL 永不过期链接的缓存时长
	DefaultCacheTTL = 24 * time.Hour
)

// CreateLinkInput 创建链接的输入参数
type CreateLinkInput struct {
	DestinationURL string
	CustomAlias    string
	ExpiryOption   string
	CustomExpiry   *time.Time
}

// Issuance 负责签发短链接：生成短码、计算过期时间并落库
type Issuance struct {
	repo   LinkRepository
	codes  CodeSource
	cache  *redis.Client
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewIssuance 创建签发服务，cache 可以为 nil
func NewIssuance(repo LinkRepository, codes CodeSource, cache *redis.Client, logger *zap.SugaredLogger) *Issuance {
	return &Issuance{
		repo:   repo,
		codes:  codes,
		cache:  cache,
		logger: logger.Named("issuance"),
		now:    time.Now,
	}
}

// CreateLink 为 owner 创建一条短链接
// 自定义别名冲突直接失败；随机短码冲突在有限次数内换号重试
func (s *Issuance) CreateLink(ctx context.Context, owner *model.Account, in CreateLinkInput) (*model.ShortLink, error) {
	if err := validateDestination(in.DestinationURL); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := policy.ComputeExpiry(owner.Plan, in.ExpiryOption, in.CustomExpiry, now)

	if strings.TrimSpace(in.CustomAlias) != "" {
		return s.createWithAlias(ctx, owner, in, expiresAt, now)
	}
	return s.createWithRandomCode(ctx, owner, in, expiresAt, now)
}

// createWithAlias 别名路径：规范化后只尝试一次，占用即失败
// 偷偷换成别的短码等于篡改用户要求的别名，不可接受
func (s *Issuance) createWithAlias(ctx context.Context, owner *model.Account, in CreateLinkInput, expiresAt *time.Time, now time.Time) (*model.ShortLink, error) {
	code := shortcode.Normalize(in.CustomAlias)

	taken, err := s.repo.ExistsByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrAliasTaken
	}

	link := &model.ShortLink{
		OwnerID:        owner.ID,
		ShortCode:      code,
		DestinationURL: in.DestinationURL,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
	}
	if err := s.repo.Insert(ctx, link); err != nil {
		// 预检查和写入之间被并发请求抢占，同样按别名占用处理
		if errors.Is(err, ErrCodeTaken) {
			return nil, ErrAliasTaken
		}
		return nil, err
	}

	s.primeCache(ctx, link)
	s.logger.Infow("短链接创建成功", "code", code, "owner_id", owner.ID)
	return link, nil
}

// createWithRandomCode 随机路径：唯一性交给存储层的唯一索引，冲突则换号重试
func (s *Issuance) createWithRandomCode(ctx context.Context, owner *model.Account, in CreateLinkInput, expiresAt *time.Time, now time.Time) (*model.ShortLink, error) {
	for i := 0; i < maxGenerateRetries; i++ {
		code, err := s.codes.Random()
		if err != nil {
			return nil, err
		}

		link := &model.ShortLink{
			OwnerID:        owner.ID,
			ShortCode:      code,
			DestinationURL: in.DestinationURL,
			ExpiresAt:      expiresAt,
			CreatedAt:      now,
		}
		err = s.repo.Insert(ctx, link)
		if err == nil {
			s.primeCache(ctx, link)
			s.logger.Infow("短链接创建成功", "code", code, "owner_id", owner.ID, "attempt", i+1)
			return link, nil
		}
		if errors.Is(err, ErrCodeTaken) {
			s.logger.Warnw("随机短码冲突，重新生成", "code", code, "attempt", i+1)
			continue
		}
		return nil, err
	}

	// 短码空间趋于饱和，应当触发告警并调整长度或字符集
	s.logger.Errorw("随机短码重试次数耗尽", "retries", maxGenerateRetries)
	return nil, ErrGenerationExhausted
}

// primeCache 创建成功后预热缓存，缓存时长不超过链接剩余有效期
func (s *Issuance) primeCache(ctx context.Context, link *model.ShortLink) {
	if s.cache == nil {
		return
	}
	ttl := DefaultCacheTTL
	if link.ExpiresAt != nil {
		remaining := time.Until(*link.ExpiresAt)
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
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.cache.Set(cctx, CacheKeyPrefix+link.ShortCode, payload, ttl).Err(); err != nil {
		s.logger.Warnw("写入缓存失败", "code", link.ShortCode, "err", err)
	}
}

// validateDestination 校验目标地址是带 host 的 http/https 绝对 URL
func validateDestination(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxDestinationLength {
		return ErrInvalidDestination
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidDestination
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidDestination
	}
	if parsed.Host == "" {
		return ErrInvalidDestination
	}
	return nil
}
