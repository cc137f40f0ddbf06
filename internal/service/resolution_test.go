package service

import (
	"context"
	"testing"
	"time"

	"fasturl-platform/internal/model"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestResolution(repo LinkRepository, now *time.Time) *Resolution {
	s := NewResolution(repo, nil, zap.NewNop().Sugar())
	s.now = func() time.Time { return *now }
	return s
}

// TestResolve_HappyPath 有效链接返回目标地址并把点击数加一
func TestResolve_HappyPath(t *testing.T) {
	repo := newStubRepo()
	expires := time.Now().Add(time.Hour)
	assert.NoError(t, repo.Insert(context.Background(), &model.ShortLink{
		ShortCode:      "abcd123",
		DestinationURL: "https://example.com/article",
		ExpiresAt:      &expires,
	}))

	now := time.Now()
	s := newTestResolution(repo, &now)

	link, err := s.Resolve(context.Background(), "abcd123")
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/article", link.DestinationURL)
	assert.EqualValues(t, 1, link.ClickCount, "点击数应从 0 变为 1")
	assert.EqualValues(t, 1, repo.links["abcd123"].ClickCount, "存储中的点击数也应为 1")

	// 再访问一次只加一
	link, err = s.Resolve(context.Background(), "abcd123")
	assert.NoError(t, err)
	assert.EqualValues(t, 2, link.ClickCount)
}

// TestResolve_NotFound 未签发过的短码返回 ErrNotFound 而非其它错误
func TestResolve_NotFound(t *testing.T) {
	repo := newStubRepo()
	now := time.Now()
	s := newTestResolution(repo, &now)

	_, err := s.Resolve(context.Background(), "nothere")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrExpired)
}

// TestResolve_Expired 1 小时有效期的链接在 61 分钟后过期，记录保留不删除
func TestResolve_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)

	repo := newStubRepo()
	assert.NoError(t, repo.Insert(context.Background(), &model.ShortLink{
		ShortCode:      "shortly",
		DestinationURL: "https://example.com/article",
		ExpiresAt:      &expires,
	}))

	clock := now
	s := newTestResolution(repo, &clock)

	// 创建后立刻访问成功
	link, err := s.Resolve(context.Background(), "shortly")
	assert.NoError(t, err)
	assert.EqualValues(t, 1, link.ClickCount)

	// 模拟时钟拨到 61 分钟后
	clock = now.Add(61 * time.Minute)
	_, err = s.Resolve(context.Background(), "shortly")
	assert.ErrorIs(t, err, ErrExpired)
	assert.NotErrorIs(t, err, ErrNotFound, "过期与不存在必须可区分")

	// 过期链接仍在存储中，点击数没有继续增长
	assert.Contains(t, repo.links, "shortly")
	assert.EqualValues(t, 1, repo.links["shortly"].ClickCount)
}

// TestResolve_ExpiryBoundary 恰好等于过期时刻视为已过期
func TestResolve_ExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expires := now

	repo := newStubRepo()
	assert.NoError(t, repo.Insert(context.Background(), &model.ShortLink{
		ShortCode:      "onedge1",
		DestinationURL: "https://example.com",
		ExpiresAt:      &expires,
	}))

	clock := now
	s := newTestResolution(repo, &clock)
	_, err := s.Resolve(context.Background(), "onedge1")
	assert.ErrorIs(t, err, ErrExpired)
}

// TestResolve_IncrementFailureTolerated 记录在读取后被并发删除，跳转仍然成功
func TestResolve_IncrementFailureTolerated(t *testing.T) {
	repo := newStubRepo()
	assert.NoError(t, repo.Insert(context.Background(), &model.ShortLink{
		ShortCode:      "gone123",
		DestinationURL: "https://example.com/article",
	}))
	repo.incrementErr = ErrNotFound

	now := time.Now()
	s := newTestResolution(repo, &now)

	link, err := s.Resolve(context.Background(), "gone123")
	assert.NoError(t, err, "点击数累加失败不应影响跳转")
	assert.Equal(t, "https://example.com/article", link.DestinationURL)
}

// TestRecordClick 访问记录落到存储层
func TestRecordClick(t *testing.T) {
	repo := newStubRepo()
	now := time.Now()
	s := newTestResolution(repo, &now)

	s.RecordClick(context.Background(), 7, "203.0.113.9", "curl/8.0", "https://referrer.example")
	if assert.Len(t, repo.clicks, 1) {
		assert.EqualValues(t, 7, repo.clicks[0].ShortLinkID)
		assert.Equal(t, "203.0.113.9", repo.clicks[0].IPAddress)
	}
}
