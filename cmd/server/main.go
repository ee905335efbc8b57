package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradelog/internal/auth"
	"tradelog/internal/broker"
	"tradelog/internal/config"
	cronrunner "tradelog/internal/cron"
	"tradelog/internal/db"
	"tradelog/internal/gate"
	"tradelog/internal/handler"
	"tradelog/internal/logger"
	"tradelog/internal/notify"
	gormrepository "tradelog/internal/repository/gorm"
	"tradelog/internal/service"
)

func main() {
	cfgPath := os.Getenv("TL_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TL_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	notifier := &notify.LogNotifier{Logger: logger}
	tradeGate := &gate.Gate{Config: cfg.Gate, Repo: store, Logger: logger}
	ingestSvc := &service.IngestService{
		Repo:     store,
		Gate:     tradeGate,
		Notifier: notifier,
		Logger:   logger,
		Config:   cfg.Ingest,
	}
	analyticsSvc := &service.AnalyticsService{Repo: store, Config: cfg.Analytics}
	statsSvc := &service.DailyStatsService{Repo: store, Logger: logger, Config: cfg.DailyStats}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(auth.APIKeyMiddleware(store, logger))

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	webhookHandler := &handler.WebhookHandler{
		Repo:     store,
		Ingest:   ingestSvc,
		Validate: broker.NewValidator(),
		Logger:   logger,
	}
	webhookHandler.Register(engine)
	tradesHandler := &handler.TradesHandler{Repo: store, Ingest: ingestSvc, Logger: logger}
	tradesHandler.Register(engine)
	checklistHandler := &handler.ChecklistHandler{Repo: store, Gate: tradeGate, Logger: logger}
	checklistHandler.Register(engine)
	analyticsHandler := &handler.AnalyticsHandler{Repo: store, Analytics: analyticsSvc, Logger: logger}
	analyticsHandler.Register(engine)
	instrumentsHandler := &handler.InstrumentsHandler{Repo: store, Logger: logger}
	instrumentsHandler.Register(engine)
	accountsHandler := &handler.AccountsHandler{Repo: store, Logger: logger}
	accountsHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled && cfg.DailyStats.Enabled {
		_, err := cronRunner.Add(cfg.Cron.DailyStats, func(ctx context.Context) {
			if err := statsSvc.RunOnce(ctx); err != nil {
				logger.Warn("daily stats rebuild failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register daily stats failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
