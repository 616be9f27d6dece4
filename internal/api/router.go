package api

import (
	"fmt"
	"time"

	"recipe-recommender/internal/api/handlers/calorie"
	"recipe-recommender/internal/api/handlers/health"
	"recipe-recommender/internal/api/handlers/recipe"
	"recipe-recommender/internal/api/middleware"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
	"recipe-recommender/internal/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Recommender recipe.Recommender
	Analyzer    calorie.Analyzer
	Index       health.IndexInfo
	Cache       health.StatsProvider
	Metrics     *metrics.Metrics
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Recommender == nil || deps.Analyzer == nil {
		return nil, fmt.Errorf("recommender and analyzer are required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger(deps.Metrics))

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	// 健康檢查與指標不受限流
	healthHandler := health.NewHandler(cfg.App.Version, deps.Index, deps.Cache)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	if cfg.Metrics.Enabled && deps.Metrics != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	recipeHandler := recipe.NewHandler(deps.Recommender)
	calorieHandler := calorie.NewHandler(deps.Analyzer)

	chain := []gin.HandlerFunc{
		middleware.BodySizeLimit(cfg.Server.MaxBodyBytes),
		middleware.Timeout(cfg.Server.RequestTimeout),
	}
	if cfg.RateLimit.Enabled {
		chain = append(chain, middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if cfg.DedupWindow > 0 {
		chain = append(chain, middleware.Deduplication(cfg.DedupWindow))
	}

	// 同一組處理器同時掛在根路徑與 /api/v1
	for _, prefix := range []string{"/", "/api/v1"} {
		group := router.Group(prefix, chain...)
		group.POST("/recommend", recipeHandler.HandleRecommend)
		group.POST("/calorie", calorieHandler.HandleCalorie)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	return router, nil
}
