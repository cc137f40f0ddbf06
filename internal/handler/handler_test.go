package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fasturl-platform/internal/model"
	"fasturl-platform/internal/repository"
	"fasturl-platform/internal/service"
	"fasturl-platform/internal/shortcode"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTest 为集成测试初始化一个干净的环境
// 返回配置好的 gin.Engine、数据库和测试账户
func setupTest(t *testing.T) (*gin.Engine, *gorm.DB, *model.Account) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// 内存数据库，TranslateError 与生产配置一致
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("无法连接到内存数据库: %v", err)
	}
	if err := db.AutoMigrate(&model.Account{}, &model.ShortLink{}, &model.ClickRecord{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	account := &model.Account{Username: "tester", Email: "tester@example.com", Plan: model.PlanFree, Role: "user", IsActive: true}
	if err := account.SetPassword("password123"); err != nil {
		t.Fatalf("设置密码失败: %v", err)
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("创建测试账户失败: %v", err)
	}

	// 测试不依赖 Redis，缓存一律传 nil
	sugared := zap.NewNop().Sugar()
	repo := repository.NewLinkRepository(db)
	issuance := service.NewIssuance(repo, shortcode.NewGenerator(), nil, sugared)
	resolution := service.NewResolution(repo, nil, sugared)

	linkHandler := NewShortLinkHandler(db, nil, issuance, resolution)

	router := gin.New()
	// 用固定身份替代 JWT 中间件
	fakeAuth := func(c *gin.Context) {
		c.Set("user_id", account.ID)
		c.Set("username", account.Username)
		c.Set("role", account.Role)
		c.Next()
	}
	router.GET("/s/:code", linkHandler.RedirectToOriginal)
	api := router.Group("/api", fakeAuth)
	{
		api.POST("/shorten", linkHandler.CreateShortLink)
		api.GET("/links", linkHandler.GetMyLinks)
		api.GET("/stats", linkHandler.GetStats)
		api.GET("/expiry-options", linkHandler.GetExpiryOptions)
		api.DELETE("/links/:code", linkHandler.DeleteLink)
	}

	return router, db, account
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("编码请求体失败: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestShortLink_EndToEnd Free 账户创建 1week 链接并跳转的完整流程
func TestShortLink_EndToEnd(t *testing.T) {
	router, db, _ := setupTest(t)

	originalURL := "https://example.com/article"
	w := doJSON(t, router, http.MethodPost, "/api/shorten", CreateShortLinkRequest{
		URL:          originalURL,
		ExpiryOption: "1week",
	})
	assert.Equal(t, http.StatusCreated, w.Code, "创建短链接时，状态码应为 201 Created")

	var createResp CreateShortLinkResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	assert.EqualValues(t, 0, createResp.Link.ClickCount, "新链接点击数应为 0")
	assert.Len(t, createResp.Link.ShortCode, shortcode.CodeLength, "短码长度应符合配置")
	for _, r := range createResp.Link.ShortCode {
		assert.True(t, strings.ContainsRune(shortcode.Charset, r), "短码字符应来自配置的字符集")
	}
	if assert.NotNil(t, createResp.Link.ExpiresAt, "1week 链接应有过期时间") {
		delta := time.Until(*createResp.Link.ExpiresAt)
		assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), delta.Seconds(), 60, "过期时间应约等于 now+7d")
	}
	assert.True(t, strings.HasSuffix(createResp.ShortURL, "/s/"+createResp.Link.ShortCode))

	// 访问短链接
	req, _ := http.NewRequest(http.MethodGet, "/s/"+createResp.Link.ShortCode, nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)

	assert.Equal(t, http.StatusFound, w2.Code, "访问短码时，状态码应为 302 Found")
	assert.Equal(t, originalURL, w2.Header().Get("Location"), "重定向的 URL 应与原始 URL 匹配")

	var stored model.ShortLink
	assert.NoError(t, db.Where("short_code = ?", createResp.Link.ShortCode).First(&stored).Error)
	assert.EqualValues(t, 1, stored.ClickCount, "跳转后点击数应为 1")
}

// TestShortLink_CustomAliasConflict 同一别名第二次创建返回 409
func TestShortLink_CustomAliasConflict(t *testing.T) {
	router, _, _ := setupTest(t)

	first := doJSON(t, router, http.MethodPost, "/api/shorten", CreateShortLinkRequest{
		URL:          "https://example.com/one",
		CustomAlias:  "My Cool Link!",
		ExpiryOption: "1day",
	})
	assert.Equal(t, http.StatusCreated, first.Code)

	var createResp CreateShortLinkResponse
	assert.NoError(t, json.Unmarshal(first.Body.Bytes(), &createResp))
	assert.Equal(t, "my-cool-link-", createResp.Link.ShortCode, "别名应按规范化结果存储")

	second := doJSON(t, router, http.MethodPost, "/api/shorten", CreateShortLinkRequest{
		URL:          "https://example.com/two",
		CustomAlias:  "My Cool Link!",
		ExpiryOption: "1day",
	})
	assert.Equal(t, http.StatusConflict, second.Code, "别名冲突应返回 409")
}

// TestShortLink_InvalidDestination 非法地址返回 400
func TestShortLink_InvalidDestination(t *testing.T) {
	router, _, _ := setupTest(t)

	w := doJSON(t, router, http.MethodPost, "/api/shorten", CreateShortLinkRequest{
		URL:          "not-a-url",
		ExpiryOption: "1day",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestRedirect_NotFoundAndExpired 不存在与过期必须返回不同的状态码
func TestRedirect_NotFoundAndExpired(t *testing.T) {
	router, db, account := setupTest(t)

	// 未签发过的短码
	req, _ := http.NewRequest(http.MethodGet, "/s/nothere", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code, "未知短码应返回 404")

	// 直接写入一条已过期的链接
	past := time.Now().Add(-time.Minute)
	expired := &model.ShortLink{
		OwnerID:        account.ID,
		ShortCode:      "expired1",
		DestinationURL: "https://example.com/old",
		ExpiresAt:      &past,
	}
	assert.NoError(t, db.Create(expired).Error)

	req, _ = http.NewRequest(http.MethodGet, "/s/expired1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusGone, w.Code, "过期短码应返回 410")

	// 过期记录保留，点击数不变
	var stored model.ShortLink
	assert.NoError(t, db.Where("short_code = ?", "expired1").First(&stored).Error)
	assert.EqualValues(t, 0, stored.ClickCount)
}

// TestDeleteLink_Tombstone 删除后短码不可解析也不可复用
func TestDeleteLink_Tombstone(t *testing.T) {
	router, _, _ := setupTest(t)

	created := doJSON(t, router, http.MethodPost, "/api/shorten", CreateShortLinkRequest{
		URL:          "https://example.com/article",
		CustomAlias:  "to-delete",
		ExpiryOption: "1week",
	})
	assert.Equal(t, http.StatusCreated, created.Code)

	w := doJSON(t, router, http.MethodDelete, "/api/links/to-delete", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 删除后解析返回 404
	req, _ := http.NewRequest(http.MethodGet, "/s/to-delete", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusNotFound, w2.Code)

	// 同一短码不能再次发放
	again := doJSON(t, router, http.MethodPost, "/api/shorten", CreateShortLinkRequest{
		URL:          "https://example.com/other",
		CustomAlias:  "to-delete",
		ExpiryOption: "1week",
	})
	assert.Equal(t, http.StatusConflict, again.Code, "墓碑短码不应复用")
}

// TestExpiryOptions Free 套餐看不到 Premium 专属选项
func TestExpiryOptions(t *testing.T) {
	router, _, _ := setupTest(t)

	w := doJSON(t, router, http.MethodGet, "/api/expiry-options", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Plan    string   `json:"plan"`
		Options []string `json:"options"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.PlanFree, resp.Plan)
	assert.Equal(t, []string{"1hour", "1day", "1week"}, resp.Options)
	assert.NotContains(t, resp.Options, "permanent")
}

// TestStats 用户维度统计
func TestStats(t *testing.T) {
	router, _, _ := setupTest(t)

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/shorten", CreateShortLinkRequest{
			URL:          fmt.Sprintf("https://example.com/p/%d", i),
			ExpiryOption: "1week",
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		TotalLinks  int64 `json:"total_links"`
		TotalClicks int64 `json:"total_clicks"`
		ActiveLinks int64 `json:"active_links"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 3, stats.TotalLinks)
	assert.EqualValues(t, 0, stats.TotalClicks)
	assert.EqualValues(t, 3, stats.ActiveLinks)
}
