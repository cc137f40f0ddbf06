package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"fasturl-platform/internal/config"
	"fasturl-platform/internal/handler"
	"fasturl-platform/internal/middleware"
	"fasturl-platform/internal/model"
	"fasturl-platform/internal/repository"
	"fasturl-platform/internal/service"
	"fasturl-platform/internal/shortcode"
	"fasturl-platform/pkg/database"
	auth "fasturl-platform/pkg/jwt"
	"fasturl-platform/pkg/logger"
	"fasturl-platform/pkg/redis"

	_ "fasturl-platform/docs"

	"github.com/gin-gonic/gin"
	redisClient "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title FastURL API
// @version 1.0
// @description 短链接签发与解析服务
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Println("配置加载失败:", err)
		return
	}

	logger.InitLogger(cfg.App.Mode)
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	db, err := database.InitMySQL(cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name)
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库连接成功")

	err = db.AutoMigrate(&model.Account{}, &model.ShortLink{}, &model.ClickRecord{})
	if err != nil {
		sugaredLogger.Fatalf("数据库迁移失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库迁移成功")

	var rdb *redisClient.Client
	if cfg.Cache.Host != "" {
		rdb, err = redis.NewClient(&redis.Options{
			Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
		})
		if err != nil {
			sugaredLogger.Warnf("缓存连接失败: %v", err)
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
				}
			}()
			sugaredLogger.Info("✅ 缓存连接成功")
		}
	}

	linkRepo := repository.NewLinkRepository(db)
	codeGenerator := shortcode.NewGenerator()
	issuance := service.NewIssuance(linkRepo, codeGenerator, rdb, sugaredLogger)
	resolution := service.NewResolution(linkRepo, rdb, sugaredLogger)
	sugaredLogger.Info("✅ 签发与解析服务初始化成功")

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
	sugaredLogger.Info("✅ 认证管理器初始化成功")

	if err := createAdminAccount(db); err != nil {
		sugaredLogger.Errorf("创建管理员失败: %v", err)
	}

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(logger.Logger, true))
	router.Use(middleware.GinZapLogger(logger.Logger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authMiddleware := middleware.AuthMiddleware(tokenManager)
	adminMiddleware := middleware.AdminMiddleware()
	rateLimitMiddleware := middleware.RateLimit(rdb, &cfg.RateLimit)
	router.Use(rateLimitMiddleware)

	urlHandler := handler.NewShortLinkHandler(db, rdb, issuance, resolution)
	authHandler := handler.NewAuthHandler(db, rdb, tokenManager)

	registerRoutes(router, urlHandler, authHandler, authMiddleware, adminMiddleware)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
	sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugaredLogger.Fatalf("服务启动失败: %v", err)
	}
}

func registerRoutes(
	router *gin.Engine,
	urlHandler *handler.ShortLinkHandler,
	authHandler *handler.AuthHandler,
	authMiddleware, adminMiddleware gin.HandlerFunc,
) {
	router.GET("/health", urlHandler.HealthCheck)
	router.GET("/s/:code", urlHandler.RedirectToOriginal)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	api := router.Group("/api")
	api.Use(authMiddleware)
	{
		api.GET("/me", authHandler.GetCurrentUser)
		api.POST("/shorten", urlHandler.CreateShortLink)
		api.GET("/links", urlHandler.GetMyLinks)
		api.GET("/stats", urlHandler.GetStats)
		api.GET("/expiry-options", urlHandler.GetExpiryOptions)
		api.DELETE("/links/:code", urlHandler.DeleteLink)
	}

	admin := api.Group("/admin")
	admin.Use(adminMiddleware)
	{
		admin.GET("/stats", urlHandler.AdminStats)
	}
}

func createAdminAccount(db *gorm.DB) error {
	var existing model.Account
	if err := db.Where("username = ?", "admin").First(&existing).Error; err == nil {
		return nil
	}

	admin := model.Account{Username: "admin", Email: "admin@fasturl.local", Plan: model.PlanPremium, Role: "admin", IsActive: true}
	if err := admin.SetPassword("admin"); err != nil {
		return err
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	zap.S().Infow("✅ 默认管理员创建成功", "username", "admin")
	return nil
}
