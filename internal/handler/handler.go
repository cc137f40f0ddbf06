package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fasturl-platform/internal/model"
	"fasturl-platform/internal/policy"
	"fasturl-platform/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ShortLinkHandler 处理器
type ShortLinkHandler struct {
	db         *gorm.DB
	redis      *redis.Client
	issuance   *service.Issuance
	resolution *service.Resolution
}

// NewShortLinkHandler 创建处理器实例
func NewShortLinkHandler(db *gorm.DB, redisClient *redis.Client, issuance *service.Issuance, resolution *service.Resolution) *ShortLinkHandler {
	return &ShortLinkHandler{
		db:         db,
		redis:      redisClient,
		issuance:   issuance,
		resolution: resolution,
	}
}

// HealthCheck 健康检查
func (h *ShortLinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

// CreateShortLinkRequest 创建短链接的请求体
type CreateShortLinkRequest struct {
	URL          string     `json:"url" binding:"required" example:"https://example.com/article"`
	CustomAlias  string     `json:"custom_alias" example:"my-cool-link"`
	ExpiryOption string     `json:"expiry_option" example:"1week"`
	CustomExpiry *time.Time `json:"custom_expiry,omitempty"`
}

// CreateShortLinkResponse 创建成功的响应
type CreateShortLinkResponse struct {
	ShortURL string          `json:"short_url" example:"http://localhost:8080/s/xxxxxxx"`
	Link     model.ShortLink `json:"link"`
}

// CreateShortLink godoc
// @Summary 创建短链接
// @Description 为一个长 URL 创建短链接，可选自定义别名与过期策略
// @Tags ShortLink
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   link  body   CreateShortLinkRequest  true  "创建参数"
// @Success 201 {object} CreateShortLinkResponse "成功响应"
// @Failure 400 {object} gin.H "目标 URL 无效"
// @Failure 409 {object} gin.H "别名已被占用"
// @Failure 500 {object} gin.H "服务器内部错误"
// @Router /api/shorten [post]
func (h *ShortLinkHandler) CreateShortLink(c *gin.Context) {
	var req CreateShortLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	owner, ok := h.currentAccount(c)
	if !ok {
		return
	}

	link, err := h.issuance.CreateLink(c.Request.Context(), owner, service.CreateLinkInput{
		DestinationURL: req.URL,
		CustomAlias:    req.CustomAlias,
		ExpiryOption:   req.ExpiryOption,
		CustomExpiry:   req.CustomExpiry,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDestination):
			c.JSON(http.StatusBadRequest, gin.H{"error": "目标 URL 无效，请填写完整的 http/https 地址"})
		case errors.Is(err, service.ErrAliasTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "该自定义别名已被占用，请换一个"})
		case errors.Is(err, service.ErrGenerationExhausted):
			// 短码空间饱和属于运维问题，记录错误日志触发告警
			zap.S().Errorf("短码生成重试耗尽: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "短码生成失败，请稍后再试"})
		default:
			zap.S().Errorf("创建短链接失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "创建短链接失败"})
		}
		return
	}

	c.JSON(http.StatusCreated, CreateShortLinkResponse{
		ShortURL: "http://" + c.Request.Host + "/s/" + link.ShortCode,
		Link:     *link,
	})
}

// RedirectToOriginal godoc
// @Summary 短码跳转
// @Description 将短码解析为原始地址并跳转，过期与不存在返回不同的错误
// @Tags ShortLink
// @Produce  json
// @Param   code  path   string  true  "短码"
// @Success 302 "跳转到原始地址"
// @Failure 404 {object} gin.H "链接不存在"
// @Failure 410 {object} gin.H "链接已过期"
// @Router /s/{code} [get]
func (h *ShortLinkHandler) RedirectToOriginal(c *gin.Context) {
	code := c.Param("code")

	link, err := h.resolution.Resolve(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "链接不存在"})
		case errors.Is(err, service.ErrExpired):
			c.JSON(http.StatusGone, gin.H{"error": "链接已过期"})
		default:
			zap.S().Errorf("解析短码失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "服务暂时不可用"})
		}
		return
	}

	// 访问记录异步写入，不阻塞跳转
	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	referer := c.Request.Referer()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.resolution.RecordClick(ctx, link.ID, ip, ua, referer)
	}()

	c.Redirect(http.StatusFound, link.DestinationURL)
}

// GetMyLinks godoc
// @Summary 当前用户的链接列表
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {array} model.ShortLink
// @Router /api/links [get]
func (h *ShortLinkHandler) GetMyLinks(c *gin.Context) {
	owner, ok := h.currentAccount(c)
	if !ok {
		return
	}

	var links []model.ShortLink
	if err := h.db.Where("owner_id = ?", owner.ID).Order("created_at DESC").Find(&links).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取链接失败"})
		return
	}
	c.JSON(http.StatusOK, links)
}

// GetExpiryOptions godoc
// @Summary 当前套餐可用的过期选项
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} gin.H
// @Router /api/expiry-options [get]
func (h *ShortLinkHandler) GetExpiryOptions(c *gin.Context) {
	owner, ok := h.currentAccount(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": owner.Plan, "options": policy.Options(owner.Plan)})
}

// GetStats godoc
// @Summary 当前用户的统计信息
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} gin.H
// @Router /api/stats [get]
func (h *ShortLinkHandler) GetStats(c *gin.Context) {
	owner, ok := h.currentAccount(c)
	if !ok {
		return
	}

	var stats struct {
		TotalLinks  int64 `json:"total_links"`
		TotalClicks int64 `json:"total_clicks"`
		ActiveLinks int64 `json:"active_links"`
	}
	h.db.Model(&model.ShortLink{}).Where("owner_id = ?", owner.ID).Count(&stats.TotalLinks)
	h.db.Model(&model.ShortLink{}).Where("owner_id = ?", owner.ID).
		Select("COALESCE(SUM(click_count), 0)").Scan(&stats.TotalClicks)
	h.db.Model(&model.ShortLink{}).
		Where("owner_id = ? AND (expires_at IS NULL OR expires_at > ?)", owner.ID, time.Now()).
		Count(&stats.ActiveLinks)
	c.JSON(http.StatusOK, stats)
}

// AdminStats godoc
// @Summary 全局统计信息
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} gin.H
// @Router /api/admin/stats [get]
func (h *ShortLinkHandler) AdminStats(c *gin.Context) {
	var stats struct {
		TotalLinks   int64 `json:"total_links"`
		TotalClicks  int64 `json:"total_clicks"`
		TotalVisits  int64 `json:"total_visits"`
		ActiveLinks  int64 `json:"active_links"`
		TotalAccount int64 `json:"total_accounts"`
	}
	h.db.Model(&model.ShortLink{}).Count(&stats.TotalLinks)
	h.db.Model(&model.ShortLink{}).Select("COALESCE(SUM(click_count), 0)").Scan(&stats.TotalClicks)
	h.db.Model(&model.ClickRecord{}).Count(&stats.TotalVisits)
	h.db.Model(&model.ShortLink{}).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).Count(&stats.ActiveLinks)
	h.db.Model(&model.Account{}).Count(&stats.TotalAccount)
	c.JSON(http.StatusOK, stats)
}

// DeleteLink godoc
// @Summary 删除短链接
// @Description 软删除保留墓碑记录，短码不会被重新分配
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Param   code  path   string  true  "短码"
// @Success 200 {object} gin.H
// @Failure 404 {object} gin.H "链接不存在"
// @Router /api/links/{code} [delete]
func (h *ShortLinkHandler) DeleteLink(c *gin.Context) {
	code := c.Param("code")
	owner, ok := h.currentAccount(c)
	if !ok {
		return
	}

	result := h.db.Where("short_code = ? AND owner_id = ?", code, owner.ID).Delete(&model.ShortLink{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除失败"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "链接不存在"})
		return
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.redis.Del(ctx, service.CacheKeyPrefix+code)
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// currentAccount 从上下文取出认证用户对应的账户记录
func (h *ShortLinkHandler) currentAccount(c *gin.Context) (*model.Account, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		c.Abort()
		return nil, false
	}

	var account model.Account
	if err := h.db.First(&account, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "账户不存在"})
		c.Abort()
		return nil, false
	}
	return &account, true
}
