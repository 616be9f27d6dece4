package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-recommender/internal/api"
	"recipe-recommender/internal/core/cache"
	"recipe-recommender/internal/core/embedding"
	"recipe-recommender/internal/core/index"
	"recipe-recommender/internal/core/nutrition"
	"recipe-recommender/internal/core/recommend"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
	"recipe-recommender/internal/pkg/metrics"
	"recipe-recommender/internal/pkg/resilience"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if err := cfg.RequireCredentials(); err != nil {
		common.LogFatal("Missing credentials", zap.Error(err))
	}

	common.LogInfo("載入設定",
		zap.String("gemini_api_key", cfg.Embedding.APIKey),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("edamam_app_key", cfg.Nutrition.AppKey),
		zap.String("index_path", cfg.Index.Path),
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	breakerSettings := resilience.BreakerSettings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
		HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
	}

	// 初始化快取
	cacheManager := cache.NewManager(cfg.Cache)
	defer cacheManager.Close()

	redisCache, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		// Redis 只是二級快取，連不上就停用
		common.LogWarn("Redis unavailable, continuing without it", zap.Error(err))
		redisCache = nil
	}
	defer redisCache.Close()

	// 載入索引，失敗即終止
	artifact, err := index.Load(cfg.Index.Path)
	if err != nil {
		common.LogFatal("Failed to load recipe index", zap.Error(err))
	}

	gemini := embedding.NewGeminiClient(cfg.Embedding, resilience.NewBreaker("gemini", breakerSettings, m), m)
	if artifact.Model != "" && artifact.Model != gemini.Model() {
		common.LogWarn("Index was built with a different embedding model",
			zap.String("index_model", artifact.Model),
			zap.String("query_model", gemini.Model()),
		)
	}
	embedder := embedding.NewCachedEmbedder(gemini, cacheManager, redisCache, cfg.Embedding.Timeout, m)

	recipeIndex, err := index.New(artifact, embedder)
	if err != nil {
		common.LogFatal("Failed to build recipe index", zap.Error(err))
	}
	m.SetIndexDocuments(recipeIndex.Len())
	common.LogInfo("索引已載入",
		zap.Int("documents", recipeIndex.Len()),
		zap.Int("dimension", recipeIndex.Dimension()),
		zap.String("metric", recipeIndex.Metric()),
	)

	ranker := recommend.NewRanker(recipeIndex, recommend.Policy{
		Candidates: cfg.Recommend.Candidates,
		Results:    cfg.Recommend.Results,
		MinOverlap: cfg.Recommend.MinOverlap,
	}, m)

	edamam := nutrition.NewEdamamClient(cfg.Nutrition, resilience.NewBreaker("edamam", breakerSettings, m), m)
	analyzer := nutrition.NewAnalyzer(edamam)

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Recommender: ranker,
		Analyzer:    analyzer,
		Index:       recipeIndex,
		Cache:       cacheManager,
		Metrics:     m,
	})
	if err != nil {
		common.LogFatal("Failed to setup router", zap.Error(err))
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
